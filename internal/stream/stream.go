// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package stream implements the run progress protocol: newline-delimited
// JSON, one full State snapshot per line. Publisher is the single writer;
// Reader is the lazy consumer and never parses a line before its newline
// arrives.
package stream

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"sync"

	"github.com/pdiddy/equity-research/pkg/types"
)

// ContentType is the media type of the protocol over HTTP.
const ContentType = "application/x-ndjson"

// Publisher writes snapshots to w, one JSON document per line. When w can
// flush (http.Flusher, bufio.Writer) it is flushed after every line.
type Publisher struct {
	mu    sync.Mutex
	w     io.Writer
	lines int
}

// NewPublisher returns a Publisher writing to w.
func NewPublisher(w io.Writer) *Publisher {
	return &Publisher{w: w}
}

// Publish encodes s as one line.
func (p *Publisher) Publish(s types.State) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	data = append(data, '\n')

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := p.w.Write(data); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	p.lines++
	switch f := p.w.(type) {
	case interface{ Flush() error }:
		if err := f.Flush(); err != nil {
			return fmt.Errorf("flushing snapshot: %w", err)
		}
	case interface{ Flush() }:
		f.Flush()
	}
	return nil
}

// Lines returns the number of snapshots written.
func (p *Publisher) Lines() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lines
}

// Reader decodes snapshots from a byte stream. Data after the last newline
// is held back until the rest of the line arrives, so a Reader over a file
// that is still being written can be polled again after io.EOF.
type Reader struct {
	br      *bufio.Reader
	pending []byte
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReader(r)}
}

// Next returns the next complete snapshot. It returns io.EOF when the
// source is exhausted; any incomplete trailing line stays buffered.
func (r *Reader) Next() (types.State, error) {
	for {
		chunk, err := r.br.ReadBytes('\n')
		r.pending = append(r.pending, chunk...)
		if err != nil {
			return types.State{}, err
		}
		line := bytes.TrimSpace(r.pending)
		r.pending = r.pending[:0]
		if len(line) == 0 {
			continue
		}
		var s types.State
		if err := json.Unmarshal(line, &s); err != nil {
			return types.State{}, fmt.Errorf("decoding snapshot: %w", err)
		}
		return s, nil
	}
}

// Buffered returns the number of bytes of an incomplete trailing line.
func (r *Reader) Buffered() int {
	return len(r.pending)
}

// Snapshots yields every complete snapshot until the source ends. A decode
// or read error is yielded once and ends the sequence.
func (r *Reader) Snapshots() iter.Seq2[types.State, error] {
	return func(yield func(types.State, error) bool) {
		for {
			s, err := r.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(s, err) || err != nil {
				return
			}
		}
	}
}

// Last reads src to the end and returns the final complete snapshot.
func Last(src io.Reader) (types.State, error) {
	var (
		last  types.State
		found bool
	)
	for s, err := range NewReader(src).Snapshots() {
		if err != nil {
			return types.State{}, err
		}
		last, found = s, true
	}
	if !found {
		return types.State{}, errors.New("stream contains no snapshots")
	}
	return last, nil
}
