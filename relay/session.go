package relay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/papercomputeco/relay/pkg/metrics"
	"github.com/papercomputeco/relay/pkg/segment"
	"github.com/papercomputeco/relay/pkg/sse"
	"github.com/papercomputeco/relay/pkg/storage"
)

// State is the lifecycle state of one relay session.
type State string

const (
	StateIdle      State = "idle"
	StateStreaming State = "streaming"
	StateDraining  State = "draining"
	StateClosed    State = "closed"
	StateFailed    State = "failed"
)

var (
	errIdleTimeout  = errors.New("upstream idle timeout")
	errClientGone   = errors.New("client disconnected")
	errRelayClosing = errors.New("relay shutting down")
)

// session owns all mutable state of one relay request. It is driven by a
// single goroutine.
type session struct {
	id        string
	req       Request
	startedAt time.Time

	log     *slog.Logger
	metrics *metrics.Metrics

	decoder *sse.Decoder
	tracker *segment.Tracker
	emitter *Emitter

	state        State
	err          error
	lastEventID  string
	decodeFaults int
	answers      int
	firstChunk   bool
}

func (s *session) transition(to State) {
	s.log.Debug("session state changed", "from", s.state, "to", to)
	s.state = to
}

// stream runs the session from Streaming to Closed or Failed, writing chunks
// to w. Reads from body stop when ctx is cancelled; cancel is invoked with
// the reason when the session itself has to abort the upstream read.
func (s *session) stream(ctx context.Context, cancel context.CancelCauseFunc, body io.Reader, w io.Writer, idleTimeout time.Duration) {
	s.emitter = NewEmitter(w)
	s.transition(StateStreaming)

	idle := newIdleTimer(body, idleTimeout, func() { cancel(errIdleTimeout) })
	defer idle.stop()

	src := newFrameSource(idle, s.decoder)
	for {
		sig := src.next()
		switch sig.kind {
		case signalFrame:
			if err := s.handleFrame(sig.event); err != nil {
				cancel(errClientGone)
				s.fail(errClientGone, false)
				return
			}

		case signalEnd:
			s.drain()
			return

		case signalError:
			err := sig.err
			if cause := context.Cause(ctx); cause != nil {
				err = cause
			}
			s.fail(err, true)
			return
		}
	}
}

// handleFrame feeds one decoded frame through the tracker and emitter. It
// only returns an error when writing to the caller failed.
func (s *session) handleFrame(ev sse.Event) error {
	if ev.ID != "" {
		s.lastEventID = ev.ID
	}
	if ev.Type != segment.ReplyEventType {
		s.metrics.Frames.WithLabelValues("other").Inc()
		return nil
	}
	s.metrics.Frames.WithLabelValues(segment.ReplyEventType).Inc()

	reply, err := segment.DecodeReply(ev)
	if err != nil {
		s.decodeFaults++
		s.metrics.DecodeFaults.Inc()
		s.log.Warn("dropping malformed reply frame", "error", err)
		return nil
	}

	d, observed := s.tracker.Observe(reply)
	if !observed {
		s.log.Debug("baseline reply frame",
			"chars", utf8.RuneCountInString(reply.Content),
		)
		return nil
	}

	wrote, err := s.emitter.Emit(d)
	if err != nil {
		return err
	}
	if !wrote {
		return nil
	}

	if !s.firstChunk {
		s.firstChunk = true
		s.metrics.ObserveFirstChunk(time.Since(s.startedAt))
	}
	s.metrics.ObserveChunk(utf8.RuneCountInString(d.Text), d.IsEnd)

	if d.IsEnd {
		s.answers++
		s.log.Debug("answer complete", "frames", s.tracker.FrameCount())
	}
	return nil
}

// drain handles the upstream end of stream. Bytes left without a frame
// delimiter are dropped, never flushed.
func (s *session) drain() {
	s.transition(StateDraining)

	if n := s.decoder.Reset(); n > 0 {
		s.log.Warn("dropping undelimited bytes at end of stream", "bytes", n)
	}
	if s.answers == 0 {
		s.log.Warn("upstream stream ended without a final reply frame",
			"frames", s.tracker.FrameCount(),
		)
	}

	s.transition(StateClosed)
}

// fail moves the session to Failed. With inBand set, a best-effort error
// frame is written to the caller first.
func (s *session) fail(err error, inBand bool) {
	s.err = err
	s.transition(StateFailed)
	s.metrics.UpstreamErrors.WithLabelValues(faultKind(err)).Inc()

	if errors.Is(err, errClientGone) {
		s.log.Info("client went away, upstream read cancelled")
		return
	}

	s.log.Error("stream fault", "error", err, "last_event_id", s.lastEventID)
	if inBand {
		if werr := s.emitter.Fail(faultMessage(err)); werr != nil {
			s.log.Debug("could not send in-band error", "error", werr)
		}
	}
}

// record is the ledger entry for the finished session.
func (s *session) record() *storage.Record {
	r := &storage.Record{
		ID:             s.id,
		VisitorID:      string(s.req.VisitorID),
		ConversationID: string(s.req.ConversationID),
		Code:           string(s.req.Code),
		State:          string(s.state),
		Frames:         s.tracker.FrameCount(),
		DecodeFaults:   s.decodeFaults,
		StartedAt:      s.startedAt,
		CompletedAt:    time.Now(),
	}
	if s.emitter != nil {
		r.Chunks = s.emitter.Chunks()
		r.Chars = s.emitter.Chars()
	}
	if s.err != nil {
		r.Error = s.err.Error()
	}
	return r
}

func faultKind(err error) string {
	switch {
	case errors.Is(err, errClientGone):
		return "client_gone"
	case errors.Is(err, errIdleTimeout):
		return "idle_timeout"
	case errors.Is(err, sse.ErrBufferOverflow):
		return "buffer_overflow"
	case errors.Is(err, errRelayClosing):
		return "shutdown"
	default:
		return "stream"
	}
}

func faultMessage(err error) string {
	switch {
	case errors.Is(err, errIdleTimeout):
		return "upstream idle timeout"
	case errors.Is(err, sse.ErrBufferOverflow):
		return "upstream frame exceeds buffer limit"
	case errors.Is(err, errRelayClosing):
		return "relay shutting down"
	default:
		return "upstream stream error"
	}
}
