// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package stream

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/equity-research/pkg/types"
)

func TestPublisherWritesOneLinePerSnapshot(t *testing.T) {
	var buf bytes.Buffer
	p := NewPublisher(&buf)

	require.NoError(t, p.Publish(types.State{Status: types.StatusPlanning}))
	require.NoError(t, p.Publish(types.State{Status: types.StatusCompleted, ReportID: "r-1"}))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"status":"planning"`)
	assert.Contains(t, lines[0], `"completedChains":null`)
	assert.Contains(t, lines[1], `"reportId":"r-1"`)
	assert.Equal(t, 2, p.Lines())
}

func TestPublisherFlushes(t *testing.T) {
	rec := httptest.NewRecorder()
	p := NewPublisher(rec)
	require.NoError(t, p.Publish(types.State{Status: types.StatusPlanning}))
	assert.True(t, rec.Flushed)

	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)
	require.NoError(t, NewPublisher(bw).Publish(types.State{Status: types.StatusPlanning}))
	assert.Contains(t, buf.String(), "planning")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestPublisherWriteError(t *testing.T) {
	err := NewPublisher(failingWriter{}).Publish(types.State{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "writing snapshot")
}

func TestReaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	p := NewPublisher(&buf)
	statuses := []types.Status{types.StatusInitializing, types.StatusPlanning, types.StatusResearching, types.StatusCompleted}
	for _, s := range statuses {
		require.NoError(t, p.Publish(types.State{Status: s}))
	}

	var got []types.Status
	for s, err := range NewReader(&buf).Snapshots() {
		require.NoError(t, err)
		got = append(got, s.Status)
	}
	assert.Equal(t, statuses, got)
}

func TestReaderBuffersPartialLine(t *testing.T) {
	var src bytes.Buffer
	src.WriteString(`{"status":"planning"}` + "\n" + `{"status":"compl`)

	r := NewReader(&src)
	s, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, types.StatusPlanning, s.Status)

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, len(`{"status":"compl`), r.Buffered())

	src.WriteString(`eted"}` + "\n")
	s, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, s.Status)
	assert.Zero(t, r.Buffered())
}

func TestReaderOverPipe(t *testing.T) {
	pr, pw := io.Pipe()
	go func() {
		_, _ = pw.Write([]byte(`{"status":"res`))
		_, _ = pw.Write([]byte(`earching"}` + "\n\n"))
		_, _ = pw.Write([]byte(`{"status":"error","error":"boom"}` + "\n"))
		_ = pw.Close()
	}()

	r := NewReader(pr)
	s, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, types.StatusResearching, s.Status)
	s, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, "boom", s.Error)
	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReaderDecodeError(t *testing.T) {
	r := NewReader(strings.NewReader("not json\n"))
	var errs int
	for _, err := range r.Snapshots() {
		if err != nil {
			errs++
		}
	}
	assert.Equal(t, 1, errs)
}

func TestLast(t *testing.T) {
	src := `{"status":"planning"}` + "\n" + `{"status":"completed","reportId":"abc"}` + "\n" + `{"status":"trunc`
	s, err := Last(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, "abc", s.ReportID)

	_, err = Last(strings.NewReader(""))
	assert.Error(t, err)
}
