package segment

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/papercomputeco/relay/pkg/sse"
)

// ReplyEventType is the SSE event type of frames carrying answer content.
const ReplyEventType = "reply"

// ErrMissingPayload is returned when a reply frame decodes as JSON but has
// no content payload.
var ErrMissingPayload = errors.New("reply frame has no payload")

// Reply is the decoded content of a reply frame. Content is cumulative: each
// frame of one answer repeats everything sent so far plus new text.
type Reply struct {
	Content string `json:"content"`
	IsFinal bool   `json:"is_final"`
}

// replyEnvelope is the upstream wire shape {"payload": {...}}. Some upstreams
// send the payload fields at the top level, which is accepted too.
type replyEnvelope struct {
	Type    string  `json:"type,omitempty"`
	Payload *Reply  `json:"payload"`
	Content *string `json:"content"`
	IsFinal bool    `json:"is_final"`
}

// DecodeError reports a reply frame whose data could not be decoded.
type DecodeError struct {
	Event sse.Event
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %q frame: %v", e.Event.Type, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// DecodeReply decodes the data of a reply frame.
func DecodeReply(ev sse.Event) (Reply, error) {
	var env replyEnvelope
	if err := json.Unmarshal([]byte(ev.Data), &env); err != nil {
		return Reply{}, &DecodeError{Event: ev, Err: err}
	}

	switch {
	case env.Payload != nil:
		return *env.Payload, nil
	case env.Content != nil:
		return Reply{Content: *env.Content, IsFinal: env.IsFinal}, nil
	default:
		return Reply{}, &DecodeError{Event: ev, Err: ErrMissingPayload}
	}
}
