// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract turns semi-structured model output (JSON embedded in free
// text) into typed records. Parsers never return errors or panic; they
// return a Result that callers resolve against their own default.
package extract

import (
	"iter"
	"strings"
)

// FirstJSONObject returns the first balanced {...} span in text.
func FirstJSONObject(text string) (string, bool) {
	return first(JSONSpans(text, '{', '}'))
}

// FirstJSONArray returns the first balanced [...] span in text.
func FirstJSONArray(text string) (string, bool) {
	return first(JSONSpans(text, '[', ']'))
}

// JSONSpans yields every top-level balanced span delimited by open and
// close, left to right, skipping delimiters inside JSON string literals.
// After a span the scan resumes past its close, so nested spans are not
// yielded. An opening delimiter that never balances is skipped.
func JSONSpans(text string, open, close byte) iter.Seq[string] {
	return func(yield func(string) bool) {
		for start := strings.IndexByte(text, open); start >= 0; {
			from := start + 1
			if end, ok := matchClose(text, start, open, close); ok {
				if !yield(text[start : end+1]) {
					return
				}
				from = end + 1
			}
			next := strings.IndexByte(text[from:], open)
			if next < 0 {
				return
			}
			start = from + next
		}
	}
}

func first(spans iter.Seq[string]) (string, bool) {
	for s := range spans {
		return s, true
	}
	return "", false
}

func matchClose(text string, start int, open, close byte) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
