package sse

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

// DefaultMaxBuffer is the default cap on undelimited bytes held by a Decoder.
const DefaultMaxBuffer = 1 << 20

// ErrBufferOverflow is returned by Feed when the bytes buffered without a
// frame delimiter exceed the configured cap.
var ErrBufferOverflow = errors.New("sse: undelimited buffer exceeds limit")

var delimiter = []byte("\n\n")

// Decoder splits a raw incremental byte stream into Events.
//
// A Decoder belongs to exactly one stream and is not safe for concurrent use.
// Bytes are buffered until a "\n\n" delimiter arrives, so a frame split across
// any number of reads (including in the middle of a multi-byte character) is
// decoded exactly once, after its final piece has been fed.
type Decoder struct {
	buf       []byte
	maxBuffer int
}

// NewDecoder returns a Decoder that fails once more than maxBuffer bytes are
// pending without a delimiter. A maxBuffer <= 0 selects DefaultMaxBuffer.
func NewDecoder(maxBuffer int) *Decoder {
	if maxBuffer <= 0 {
		maxBuffer = DefaultMaxBuffer
	}
	return &Decoder{maxBuffer: maxBuffer}
}

// Feed appends chunk to the buffer and returns every Event completed by it,
// in stream order. Frames missing either the "event:" or the "data:" field
// (comments, keep-alives, bare data lines) produce nothing.
//
// Leftover bytes after the last delimiter stay buffered for the next call.
func (d *Decoder) Feed(chunk []byte) ([]Event, error) {
	d.buf = append(d.buf, chunk...)

	var events []Event
	for {
		idx := bytes.Index(d.buf, delimiter)
		if idx < 0 {
			break
		}

		raw := string(d.buf[:idx])
		d.buf = d.buf[idx+len(delimiter):]

		if ev, ok := parseFrame(raw); ok {
			events = append(events, ev)
		}
	}

	// Compact so a long-lived stream does not pin the consumed prefix.
	if len(d.buf) == 0 {
		d.buf = nil
	}

	if len(d.buf) > d.maxBuffer {
		return events, fmt.Errorf("%w: %d bytes pending (limit %d)", ErrBufferOverflow, len(d.buf), d.maxBuffer)
	}

	return events, nil
}

// Pending reports the number of buffered bytes not yet terminated by a
// delimiter.
func (d *Decoder) Pending() int {
	return len(d.buf)
}

// Reset discards any buffered partial frame and returns how many bytes were
// dropped.
func (d *Decoder) Reset() int {
	n := len(d.buf)
	d.buf = nil
	return n
}

// parseFrame decodes one delimiter-free frame. The boolean is false unless the
// frame has both an event and a data field.
func parseFrame(raw string) (Event, bool) {
	var (
		ev      Event
		hasData bool
		hasType bool
	)

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		// Strip a single leading space after the colon, per spec.
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "data":
			if hasData {
				ev.Data += "\n"
			}
			ev.Data += value
			hasData = true
		case "event":
			ev.Type = strings.TrimSpace(value)
			hasType = true
		case "id":
			ev.ID = value
		default:
			// "retry" and unknown fields are ignored per the SSE spec.
		}
	}

	return ev, hasData && hasType
}
