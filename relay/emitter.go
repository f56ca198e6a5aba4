package relay

import (
	"io"
	"unicode/utf8"

	"github.com/papercomputeco/relay/pkg/segment"
	"github.com/papercomputeco/relay/pkg/sse"
)

// ErrorEventType is the event type of the in-band error frame sent when a
// stream fails after headers were committed.
const ErrorEventType = "error"

// Chunk is one outbound unit written to the caller.
type Chunk struct {
	Answer string `json:"answer"`
	IsEnd  bool   `json:"isEnd"`
}

// errorBody is the JSON shape of every relay error, synchronous or in-band.
type errorBody struct {
	Error   string   `json:"error"`
	Missing []string `json:"missing,omitempty"`
}

// Emitter writes flush decisions to the caller as SSE data frames.
type Emitter struct {
	w io.Writer

	chunks int
	chars  int
}

// NewEmitter returns an Emitter writing to w.
func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{w: w}
}

// Emit writes one chunk for d. It writes nothing and reports false when d
// does not emit.
func (e *Emitter) Emit(d segment.Decision) (bool, error) {
	if !d.Emit {
		return false, nil
	}

	if err := sse.WriteData(e.w, Chunk{Answer: d.Text, IsEnd: d.IsEnd}); err != nil {
		return false, err
	}

	e.chunks++
	e.chars += utf8.RuneCountInString(d.Text)
	return true, nil
}

// Fail writes the in-band error frame.
func (e *Emitter) Fail(message string) error {
	return sse.WriteEvent(e.w, ErrorEventType, errorBody{Error: message})
}

// Chunks is the number of chunks written.
func (e *Emitter) Chunks() int {
	return e.chunks
}

// Chars is the number of answer characters written.
func (e *Emitter) Chars() int {
	return e.chars
}
