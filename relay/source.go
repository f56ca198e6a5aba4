package relay

import (
	"errors"
	"io"
	"time"

	"github.com/papercomputeco/relay/pkg/sse"
)

// signalKind tags what the upstream produced next.
type signalKind int

const (
	signalFrame signalKind = iota
	signalEnd
	signalError
)

// signal is one step of the upstream stream: a decoded frame, the end of
// the stream, or a failure.
type signal struct {
	kind  signalKind
	event sse.Event
	err   error
}

const readSize = 32 << 10

// frameSource turns the upstream body into a sequence of signals. Each call
// to next blocks on at most one body read.
type frameSource struct {
	body    io.Reader
	decoder *sse.Decoder
	buf     []byte

	queue   []sse.Event
	pending error
	eof     bool
}

func newFrameSource(body io.Reader, decoder *sse.Decoder) *frameSource {
	return &frameSource{
		body:    body,
		decoder: decoder,
		buf:     make([]byte, readSize),
	}
}

// next returns the next signal. After signalEnd or signalError it keeps
// returning the same terminal kind.
func (s *frameSource) next() signal {
	for len(s.queue) == 0 {
		if s.pending != nil {
			return signal{kind: signalError, err: s.pending}
		}
		if s.eof {
			return signal{kind: signalEnd}
		}

		n, err := s.body.Read(s.buf)
		if n > 0 {
			events, ferr := s.decoder.Feed(s.buf[:n])
			s.queue = append(s.queue, events...)
			if ferr != nil {
				s.pending = ferr
			}
		}

		switch {
		case errors.Is(err, io.EOF):
			s.eof = true
		case err != nil && s.pending == nil:
			s.pending = err
		}
	}

	ev := s.queue[0]
	s.queue = s.queue[1:]
	return signal{kind: signalFrame, event: ev}
}

// idleTimer fires onIdle when a single read waits longer than timeout.
// Time spent outside Read, such as blocking on a slow caller, is not
// counted.
type idleTimer struct {
	r       io.Reader
	timeout time.Duration
	timer   *time.Timer
}

func newIdleTimer(r io.Reader, timeout time.Duration, onIdle func()) *idleTimer {
	t := &idleTimer{
		r:       r,
		timeout: timeout,
		timer:   time.AfterFunc(timeout, onIdle),
	}
	t.timer.Stop()
	return t
}

func (t *idleTimer) Read(p []byte) (int, error) {
	t.timer.Reset(t.timeout)
	n, err := t.r.Read(p)
	t.timer.Stop()
	return n, err
}

func (t *idleTimer) stop() {
	t.timer.Stop()
}
