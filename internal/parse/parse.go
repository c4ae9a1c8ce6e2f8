// internal/parse/parse.go
//
// Collaborator replies are expected to contain exactly one JSON object, but
// arrive wrapped in prose, fenced code blocks, or with small syntax defects.
// This package digs the object out and repairs the common defects before a
// strict parse. It never guesses: if the object cannot be recovered, the
// caller gets a MalformedResponseError with the original text attached.

package parse

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// MalformedResponseError reports that no JSON object could be recovered
// from the collaborator output. Raw preserves the original text for
// diagnostics.
type MalformedResponseError struct {
	Raw string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("parse: malformed collaborator response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

var (
	taggedFenceRe = regexp.MustCompile("(?s)```[ \t]*(?i:json)[ \t]*\r?\n?(.*?)```")
	anyFenceRe    = regexp.MustCompile("(?s)```(.*?)```")
)

// Object extracts and parses the single JSON object expected in text.
// Extraction order: a fenced block tagged json, any fenced block containing
// a brace, then the first balanced object in the raw text. One repair pass
// (escaping literal control characters inside strings, dropping trailing
// commas) is applied before giving up.
func Object(text string) (map[string]any, error) {
	span, ok := extractSpan(text)
	if !ok {
		return nil, &MalformedResponseError{Raw: text, Err: fmt.Errorf("no JSON object found")}
	}

	var result map[string]any
	if err := json.Unmarshal([]byte(span), &result); err == nil {
		return result, nil
	}

	repaired := repair(span)
	var err error
	if err = json.Unmarshal([]byte(repaired), &result); err == nil {
		return result, nil
	}
	return nil, &MalformedResponseError{Raw: text, Err: err}
}

func extractSpan(text string) (string, bool) {
	if m := taggedFenceRe.FindStringSubmatch(text); m != nil {
		if span, ok := balancedObject(m[1]); ok {
			return span, true
		}
	}
	if m := anyFenceRe.FindStringSubmatch(text); m != nil {
		interior := m[1]
		if strings.Contains(interior, "{") {
			interior = strings.TrimSpace(interior)
			// A bare language tag may lead the block.
			if rest, found := strings.CutPrefix(interior, "json"); found {
				interior = rest
			}
			if span, ok := balancedObject(interior); ok {
				return span, true
			}
		}
	}
	return balancedObject(text)
}

// balancedObject returns the first top-level {...} span. The scan tracks
// string and escape state so braces inside quoted values do not confuse the
// depth count.
func balancedObject(text string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
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
			if start >= 0 {
				inString = true
			}
		case '{':
			if start < 0 {
				start = i
			}
			depth++
		case '}':
			if start < 0 {
				continue
			}
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// repair applies the two lenient fixes in one string-aware pass: literal
// newline, carriage-return, and tab characters inside quoted strings become
// their escape sequences, and a trailing comma immediately before a closing
// brace or bracket is dropped.
func repair(span string) string {
	var sb strings.Builder
	sb.Grow(len(span))
	inString := false
	escaped := false
	for i := 0; i < len(span); i++ {
		c := span[i]
		if inString {
			switch {
			case escaped:
				escaped = false
				sb.WriteByte(c)
			case c == '\\':
				escaped = true
				sb.WriteByte(c)
			case c == '"':
				inString = false
				sb.WriteByte(c)
			case c == '\n':
				sb.WriteString(`\n`)
			case c == '\r':
				sb.WriteString(`\r`)
			case c == '\t':
				sb.WriteString(`\t`)
			default:
				sb.WriteByte(c)
			}
			continue
		}
		switch c {
		case '"':
			inString = true
			sb.WriteByte(c)
		case ',':
			if next := nextMeaningful(span, i+1); next == '}' || next == ']' {
				continue
			}
			sb.WriteByte(c)
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// nextMeaningful returns the next non-whitespace byte at or after pos, or 0.
func nextMeaningful(s string, pos int) byte {
	for i := pos; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			return s[i]
		}
	}
	return 0
}
