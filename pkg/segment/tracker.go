package segment

// Tracker computes the new suffix of cumulative reply content and runs it
// through a Policy.
//
// The first reply frame of a session only establishes a baseline: it is
// counted but never flushed from, since upstreams open an answer with an
// acknowledgement frame before real content. A final frame is always
// flushed, including when it is the first one.
type Tracker struct {
	policy Policy

	flushedLength int
	frameCount    int
}

// NewTracker returns a Tracker for one session using policy.
func NewTracker(policy Policy) *Tracker {
	return &Tracker{policy: policy}
}

// Observe records one reply and reports the flush decision for it. The
// boolean is false when the frame was only counted.
func (t *Tracker) Observe(r Reply) (Decision, bool) {
	t.frameCount++

	if t.frameCount < 2 && !r.IsFinal {
		return Decision{}, false
	}

	d := t.policy.Decide(t.pending(r.Content), r.IsFinal)
	t.flushedLength += d.Consumed

	// A new answer on the same stream starts its content from scratch.
	// frameCount is left alone: only a session's first frame is a baseline.
	if d.IsEnd {
		t.flushedLength = 0
	}

	return d, true
}

// FlushedLength is the number of characters of the current answer already
// consumed by a flush decision.
func (t *Tracker) FlushedLength() int {
	return t.flushedLength
}

// FrameCount is the number of reply frames observed so far.
func (t *Tracker) FrameCount() int {
	return t.frameCount
}

// pending returns content past the flushed length. Content that shrank below
// the flushed length yields an empty span.
func (t *Tracker) pending(content string) []rune {
	runes := []rune(content)
	if t.flushedLength >= len(runes) {
		return nil
	}
	return runes[t.flushedLength:]
}
