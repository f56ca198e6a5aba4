package storage

import "time"

// Record is the ledger entry for one finished relay session. It carries
// counters and identifiers only; answer text is never stored.
type Record struct {
	ID             string    `json:"id"`
	VisitorID      string    `json:"visitor_id"`
	ConversationID string    `json:"conversation_id"`
	Code           string    `json:"code"`
	State          string    `json:"state"`
	Frames         int       `json:"frames"`
	DecodeFaults   int       `json:"decode_faults"`
	Chunks         int       `json:"chunks"`
	Chars          int       `json:"chars"`
	Error          string    `json:"error,omitempty"`
	StartedAt      time.Time `json:"started_at"`
	CompletedAt    time.Time `json:"completed_at"`
}

// Duration is the wall time of the session.
func (r *Record) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}
