// Package relay provides a streaming relay that forwards conversation
// requests to an upstream chat service and re-emits its event stream to the
// caller in sentence-aligned chunks.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/papercomputeco/relay/pkg/eventstream"
	"github.com/papercomputeco/relay/pkg/metrics"
	"github.com/papercomputeco/relay/pkg/segment"
	"github.com/papercomputeco/relay/pkg/sse"
	"github.com/papercomputeco/relay/pkg/storage"
	"github.com/papercomputeco/relay/pkg/upstream"
	"github.com/papercomputeco/relay/relay/worker"
)

// Relay accepts conversation requests, streams them from the upstream chat
// service and writes resegmented chunks back. Finished sessions are handed
// to its worker pool for storage and event publishing.
type Relay struct {
	config     Config
	upstream   *upstream.Client
	workerPool *worker.Pool
	metrics    *metrics.Metrics
	logger     *slog.Logger
	server     *fiber.App

	policy atomic.Pointer[segment.Policy]

	// ctx is the parent of every session context; Close cancels it.
	ctx      context.Context
	cancel   context.CancelCauseFunc
	sessions sync.WaitGroup
}

// New creates a new Relay. The publisher may be nil to disable completion
// events.
func New(config Config, driver storage.Driver, publisher eventstream.Publisher, logger *slog.Logger) (*Relay, error) {
	client, err := upstream.New(config.Upstream)
	if err != nil {
		return nil, fmt.Errorf("could not create upstream client: %w", err)
	}

	if config.IdleTimeout <= 0 {
		config.IdleTimeout = DefaultIdleTimeout
	}
	if config.MaxBuffer <= 0 {
		config.MaxBuffer = sse.DefaultMaxBuffer
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = defaultShutdownTimeout
	}

	wp, err := worker.NewPool(&worker.Config{
		Driver:    driver,
		Publisher: publisher,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create worker pool: %w", err)
	}

	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
	})

	ctx, cancel := context.WithCancelCause(context.Background())

	r := &Relay{
		config:     config,
		upstream:   client,
		workerPool: wp,
		metrics:    metrics.New(config.MetricsNamespace),
		logger:     logger,
		server:     app,
		ctx:        ctx,
		cancel:     cancel,
	}
	r.SetPolicy(config.Policy)

	app.Post("/conversation", r.handleConversation)
	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.SendString("pong")
	})
	app.Get("/metrics", adaptor.HTTPHandler(r.metrics.Handler()))

	return r, nil
}

// Run starts the relay server on the configured listening address
func (r *Relay) Run() error {
	r.logger.Info("starting relay server",
		"listen", r.config.ListenAddr,
		"upstream", r.upstream.URL(),
	)

	return r.server.Listen(r.config.ListenAddr)
}

// RunWithListener starts the relay server using the provided listener.
func (r *Relay) RunWithListener(listener net.Listener) error {
	r.logger.Info("starting relay server",
		"listen", listener.Addr().String(),
		"upstream", r.upstream.URL(),
	)

	return r.server.Listener(listener)
}

// Close stops accepting requests, gives open streams ShutdownTimeout to
// finish, aborts the rest and waits for the worker pool to drain.
func (r *Relay) Close() error {
	err := r.server.ShutdownWithTimeout(r.config.ShutdownTimeout)

	r.cancel(errRelayClosing)
	r.sessions.Wait()
	r.workerPool.Close()
	return err
}

// SetPolicy replaces the flush policy for sessions started afterwards.
// Running sessions keep the policy they started with.
func (r *Relay) SetPolicy(p segment.Policy) {
	r.policy.Store(&p)
	r.logger.Debug("flush policy set",
		"min_chars", p.MinChars,
		"markers", string(p.Markers),
	)
}

// Policy returns the current flush policy.
func (r *Relay) Policy() segment.Policy {
	return *r.policy.Load()
}

// Metrics exposes the relay's instruments.
func (r *Relay) Metrics() *metrics.Metrics {
	return r.metrics
}

// handleConversation validates the request, opens the upstream stream and
// hands the response body to a session goroutine.
func (r *Relay) handleConversation(c *fiber.Ctx) error {
	var req Request
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		r.logger.Warn("invalid request body", "error", err)
		r.metrics.Sessions.WithLabelValues("rejected").Inc()
		return c.Status(fiber.StatusBadRequest).JSON(errorBody{Error: "Invalid request body"})
	}

	if missing := req.Missing(); len(missing) > 0 {
		r.logger.Warn("missing required fields", "missing", missing)
		r.metrics.Sessions.WithLabelValues("rejected").Inc()
		return c.Status(fiber.StatusBadRequest).JSON(errorBody{
			Error:   "Missing required fields",
			Missing: missing,
		})
	}

	s := r.newSession(req)
	if len(req.Context) > 0 {
		s.log.Debug("request carries context", "bytes", len(req.Context))
	}

	// The session context outlives the handler: fasthttp recycles its
	// RequestCtx once the handler returns while the stream keeps running.
	ctx, cancel := context.WithCancelCause(r.ctx)

	body, err := r.upstream.Open(ctx, string(req.Question), string(req.ConversationID), string(req.VisitorID))
	if err != nil {
		cancel(err)
		return r.setupFault(c, s, err)
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	// io.Pipe gives per-chunk flushing and backpressure: pw.Write blocks
	// until fasthttp has pushed the previous chunk to the socket.
	pr, pw := io.Pipe()

	r.metrics.ActiveSessions.Inc()
	r.sessions.Add(1)
	go func() {
		defer r.sessions.Done()
		defer r.metrics.ActiveSessions.Dec()
		defer cancel(nil)
		defer body.Close()
		defer pw.Close()

		s.stream(ctx, cancel, body, pw, r.config.IdleTimeout)
		r.finish(s)
	}()

	c.Context().Response.SetBodyStream(pr, -1)
	return nil
}

// setupFault answers synchronously when the upstream could not be opened.
func (r *Relay) setupFault(c *fiber.Ctx, s *session, err error) error {
	s.err = err
	s.transition(StateFailed)

	var statusErr *upstream.StatusError
	switch {
	case errors.As(err, &statusErr):
		s.log.Error("upstream returned error",
			"status", statusErr.StatusCode,
			"body", string(statusErr.Body),
		)
		r.metrics.UpstreamErrors.WithLabelValues("status").Inc()
		r.finish(s)

		if statusErr.ContentType != "" {
			c.Set(fiber.HeaderContentType, statusErr.ContentType)
		}
		return c.Status(statusErr.StatusCode).Send(statusErr.Body)

	case errors.Is(err, upstream.ErrNoResponse):
		s.log.Error("no response received from upstream", "error", err)
		r.metrics.UpstreamErrors.WithLabelValues("no_response").Inc()
		r.finish(s)
		return c.Status(fiber.StatusInternalServerError).JSON(errorBody{Error: "no response received from upstream"})

	default:
		s.log.Error("error in setting up request", "error", err)
		r.metrics.UpstreamErrors.WithLabelValues("setup").Inc()
		r.finish(s)
		return c.Status(fiber.StatusInternalServerError).JSON(errorBody{Error: "error in setting up request"})
	}
}

func (r *Relay) newSession(req Request) *session {
	id := uuid.NewString()
	policy := r.Policy()

	return &session{
		id:        id,
		req:       req,
		startedAt: time.Now(),
		log: r.logger.With(
			"session_id", id,
			"conversation_id", string(req.ConversationID),
			"visitor_id", string(req.VisitorID),
		),
		metrics: r.metrics,
		decoder: sse.NewDecoder(r.config.MaxBuffer),
		tracker: segment.NewTracker(policy),
		state:   StateIdle,
	}
}

// finish records the terminal session and enqueues it for storage.
func (r *Relay) finish(s *session) {
	record := s.record()
	r.metrics.Sessions.WithLabelValues(record.State).Inc()
	r.metrics.SessionDuration.Observe(record.Duration().Seconds())

	s.log.Info("session finished",
		"state", record.State,
		"frames", record.Frames,
		"chunks", record.Chunks,
		"chars", record.Chars,
		"decode_faults", record.DecodeFaults,
		"duration", record.Duration(),
		"last_event_id", s.lastEventID,
	)

	r.workerPool.Enqueue(worker.Job{Record: record})
}
