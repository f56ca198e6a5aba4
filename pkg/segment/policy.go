package segment

// DefaultMinChars is the pending span length, in characters, at which a
// non-final span becomes eligible for flushing.
const DefaultMinChars = 100

// Decision is the outcome of evaluating one pending span.
type Decision struct {
	// Emit reports whether Text should be written downstream.
	Emit bool

	// Text is the prefix of the pending span to forward.
	Text string

	// Consumed is the number of characters of the pending span covered by
	// this decision. The tracker advances its flushed length by Consumed.
	Consumed int

	// IsEnd marks the final chunk of an answer.
	IsEnd bool
}

// Policy decides when an accumulated span of new text is ready to flush.
type Policy struct {
	// MinChars is the span length below which a non-final span is held.
	MinChars int

	// Markers are the boundary characters a non-final flush must end on.
	Markers []rune
}

// DefaultPolicy returns the policy with DefaultMinChars and DefaultMarkers.
func DefaultPolicy() Policy {
	return Policy{
		MinChars: DefaultMinChars,
		Markers:  DefaultMarkers,
	}
}

// Decide evaluates pending, the not yet flushed suffix of an answer.
//
// A final span is always emitted whole, even when empty. A non-final span
// shorter than MinChars is held. Otherwise the span is cut just after its
// latest boundary marker; with no marker anywhere the span is held until one
// shows up.
func (p Policy) Decide(pending []rune, isFinal bool) Decision {
	if isFinal {
		return Decision{
			Emit:     true,
			Text:     string(pending),
			Consumed: len(pending),
			IsEnd:    true,
		}
	}

	if len(pending) < p.minChars() {
		return Decision{}
	}

	idx := LastBoundary(pending, p.markers())
	if idx < 0 {
		return Decision{}
	}

	return Decision{
		Emit:     true,
		Text:     string(pending[:idx+1]),
		Consumed: idx + 1,
	}
}

func (p Policy) minChars() int {
	if p.MinChars <= 0 {
		return DefaultMinChars
	}
	return p.MinChars
}

func (p Policy) markers() []rune {
	if len(p.Markers) == 0 {
		return DefaultMarkers
	}
	return p.Markers
}
