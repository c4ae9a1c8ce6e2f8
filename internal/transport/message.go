// internal/transport/message.go
//
// The inter-stage transport only carries text, never structured objects.
// Every message therefore embeds a marker token followed by the correlation
// id so the receiving stage can recover its run state from the store. A
// message without the marker cannot be tied to any run and must make the
// stage refuse to work.

package transport

import (
	"errors"
	"fmt"
	"strings"
)

// RunIDMarker precedes the correlation id inside message text. The marker
// uses a double-colon sequence that prompt and summary text never produce.
const RunIDMarker = "run_id::"

// idTerminator ends the id when it is followed by a human-readable summary.
const idTerminator = '|'

// ErrRunIDMissing reports a message with no run-id marker anywhere in it.
var ErrRunIDMissing = errors.New("transport: run id marker missing from message")

// Fragment is one role-tagged span of message text. Parts carry nested
// content blocks for transports that split a turn into multiple pieces.
type Fragment struct {
	Role  string
	Text  string
	Parts []Fragment
}

// Message is the opaque payload passed between workflow nodes.
type Message struct {
	Fragments []Fragment
}

// NewText wraps plain text in a single-fragment message.
func NewText(text string) Message {
	return Message{Fragments: []Fragment{{Role: "user", Text: text}}}
}

// WithRunID builds an outgoing message that carries the correlation id
// followed by a short summary of what happened.
func WithRunID(id, summary string) Message {
	text := RunIDMarker + id
	if summary != "" {
		text = fmt.Sprintf("%s%s %c %s", RunIDMarker, id, idTerminator, summary)
	}
	return NewText(text)
}

// Append returns a copy of the message with one more fragment. Later
// fragments are considered more recent during extraction.
func (m Message) Append(role, text string) Message {
	fragments := make([]Fragment, len(m.Fragments), len(m.Fragments)+1)
	copy(fragments, m.Fragments)
	return Message{Fragments: append(fragments, Fragment{Role: role, Text: text})}
}

// Text flattens the message for logging and prompts, most recent last.
func (m Message) Text() string {
	var sb strings.Builder
	writeFragments(&sb, m.Fragments)
	return strings.TrimSpace(sb.String())
}

func writeFragments(sb *strings.Builder, fragments []Fragment) {
	for _, f := range fragments {
		if f.Text != "" {
			if sb.Len() > 0 {
				sb.WriteByte('\n')
			}
			sb.WriteString(f.Text)
		}
		writeFragments(sb, f.Parts)
	}
}

// ExtractRunID recovers the correlation id from a message. Fragments are
// scanned from most recent to least recent, nested parts included, and the
// first marker found wins. The id runs from just after the marker to the
// next whitespace or terminator character.
func ExtractRunID(m Message) (string, error) {
	if id, ok := extractFromFragments(m.Fragments); ok {
		return id, nil
	}
	return "", ErrRunIDMissing
}

func extractFromFragments(fragments []Fragment) (string, bool) {
	for i := len(fragments) - 1; i >= 0; i-- {
		if id, ok := extractFromFragments(fragments[i].Parts); ok {
			return id, true
		}
		if id, ok := extractFromText(fragments[i].Text); ok {
			return id, true
		}
	}
	return "", false
}

func extractFromText(text string) (string, bool) {
	idx := strings.Index(text, RunIDMarker)
	if idx < 0 {
		return "", false
	}
	rest := text[idx+len(RunIDMarker):]
	end := len(rest)
	for i, r := range rest {
		if r == idTerminator || r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			end = i
			break
		}
	}
	id := rest[:end]
	if id == "" {
		return "", false
	}
	return id, true
}
