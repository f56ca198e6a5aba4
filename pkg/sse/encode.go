package sse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// WriteData writes v as a single "data: <json>\n\n" frame.
//
// HTML escaping is disabled so text reaches the client byte for byte; only
// the characters JSON itself requires are escaped.
func WriteData(w io.Writer, v any) error {
	return WriteEvent(w, "", v)
}

// WriteEvent writes v as an SSE frame with the given event type. An empty
// eventType omits the "event:" line.
func WriteEvent(w io.Writer, eventType string, v any) error {
	payload, err := marshal(v)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if eventType != "" {
		buf.WriteString("event: ")
		buf.WriteString(eventType)
		buf.WriteByte('\n')
	}
	buf.WriteString("data: ")
	buf.Write(payload)
	buf.Write(delimiter)

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("writing sse frame: %w", err)
	}
	return nil
}

func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encoding sse payload: %w", err)
	}

	// Encode terminates the value with a newline that would break framing.
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
