// Package sse provides a minimal, purpose-built SSE (Server-Sent Events)
// frame decoder and encoder for the relay. The decoder is push based: raw
// upstream reads are fed in as they arrive, with no assumption that a read
// lines up with a frame boundary, and complete frames come out once their
// terminating blank line has been seen.
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

// Event represents a single parsed SSE event, delimited by a blank line
// in the upstream byte stream.
type Event struct {
	// Type is the SSE event type from the "event:" field.
	Type string

	// Data is the concatenated contents of all "data:" lines for this event,
	// joined with "\n" (per the SSE spec, multiple data fields are joined
	// with a single newline).
	Data string

	// ID is the last event ID from the "id:" field, if present.
	ID string
}
