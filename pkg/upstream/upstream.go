// Package upstream is the HTTP client for the chat-completion service the
// relay sits in front of. It opens one streaming chat call per relay session
// and hands back the raw event-stream body; decoding is left to the caller.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// DefaultURL is the streaming chat endpoint used when none is configured.
const DefaultURL = "https://wss.lke.cloud.tencent.com/v1/qbot/chat/sse"

// maxErrorBody bounds how much of a non-2xx response body is kept.
const maxErrorBody = 64 << 10

// ErrNoResponse is returned when the upstream call failed before any
// response was received (connection refused, DNS failure, timeout).
var ErrNoResponse = errors.New("no response received from upstream")

// StatusError is returned when the upstream answers with a non-2xx status.
type StatusError struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, strings.TrimSpace(string(e.Body)))
}

// Request is one chat call.
type Request struct {
	BotAppKey    string `json:"bot_app_key"`
	Content      string `json:"content"`
	SessionID    string `json:"session_id"`
	VisitorBizID string `json:"visitor_biz_id"`
}

// Config configures a Client.
type Config struct {
	// URL is the streaming chat endpoint.
	URL string

	// BotAppKey identifies the bot on the upstream service.
	BotAppKey string

	// Timeout bounds dialing, the TLS handshake and the wait for response
	// headers, each on its own. The body is governed by the caller's context,
	// since answers stream for as long as the model generates.
	Timeout time.Duration
}

// Client opens streaming chat calls against the upstream service.
type Client struct {
	config     Config
	dialer     *net.Dialer
	httpClient *http.Client
}

// New creates a Client.
func New(config Config) (*Client, error) {
	if strings.TrimSpace(config.BotAppKey) == "" {
		return nil, errors.New("upstream bot app key is required")
	}
	if strings.TrimSpace(config.URL) == "" {
		config.URL = DefaultURL
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	dialer := &net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = dialer.DialContext
	transport.TLSHandshakeTimeout = timeout
	transport.ResponseHeaderTimeout = timeout

	return &Client{
		config: config,
		dialer: dialer,
		httpClient: &http.Client{
			Transport: transport,
		},
	}, nil
}

// Open starts a chat call for question within the given upstream session and
// returns the streaming body. The caller must close it. Cancelling ctx aborts
// any read in progress on the body.
//
// A non-2xx answer yields a *StatusError carrying the upstream body; a
// transport failure yields an error wrapping ErrNoResponse.
func (c *Client) Open(ctx context.Context, question, sessionID, visitorID string) (io.ReadCloser, error) {
	payload, err := json.Marshal(Request{
		BotAppKey:    c.config.BotAppKey,
		Content:      question,
		SessionID:    sessionID,
		VisitorBizID: visitorID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	res, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoResponse, err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		defer res.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return nil, &StatusError{
			StatusCode:  res.StatusCode,
			ContentType: res.Header.Get("Content-Type"),
			Body:        body,
		}
	}

	return res.Body, nil
}

// URL returns the configured endpoint.
func (c *Client) URL() string {
	return c.config.URL
}
