package relay

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Request is the inbound conversation request.
type Request struct {
	VisitorID      flexString      `json:"sid"`
	Code           flexString      `json:"dh-code"`
	Question       flexString      `json:"dh-question"`
	ConversationID flexString      `json:"dh-conversation-id"`
	Context        json.RawMessage `json:"dh-context,omitempty"`
}

// Missing lists the wire names of required fields that are absent or empty.
func (r *Request) Missing() []string {
	var missing []string
	for _, f := range []struct {
		name  string
		value flexString
	}{
		{"sid", r.VisitorID},
		{"dh-code", r.Code},
		{"dh-question", r.Question},
		{"dh-conversation-id", r.ConversationID},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// flexString accepts a JSON string or number. Numbers keep their literal
// text, so 0 is present while "" is not.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}

	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", b)
	}
	*f = flexString(n.String())
	return nil
}
