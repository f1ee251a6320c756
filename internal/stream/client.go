package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/olexi-ai/olexi-go/internal/log"
)

// Credentials carries the per-session auth material. Both values travel as
// headers on the session request.
type Credentials struct {
	Token       string
	Fingerprint string
}

// Config holds the client's wiring.
type Config struct {
	// BaseURL is the research host root, without a trailing slash.
	BaseURL string

	// ExtensionID identifies this client to the host.
	ExtensionID string

	// UserAgent is sent on every request.
	UserAgent string

	// SessionTimeout bounds a whole session, open through last event.
	SessionTimeout time.Duration

	// HTTPClient, when nil, falls back to http.DefaultClient. The session
	// timeout is enforced by context, so the client itself needs none.
	HTTPClient *http.Client
}

// Client opens research sessions. It is stateless and safe for reuse; each
// Open call is an independent session.
type Client struct {
	cfg    Config
	http   *http.Client
	logger log.Logger
}

func New(cfg Config, logger log.Logger) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Client{cfg: cfg, http: hc, logger: logger}
}

type sessionRequest struct {
	Prompt string `json:"prompt"`
}

// Open submits a prompt and returns the session's event stream. The session
// budget starts here: the returned stream dies with ErrTimeout once
// SessionTimeout elapses, however many events have arrived. Callers must
// Close the stream.
//
// A 401 whose detail mentions the token comes back as ErrTokenRejected so
// the caller can refresh credentials and retry once.
func (c *Client) Open(ctx context.Context, prompt string, creds Credentials) (*Stream, error) {
	body, err := json.Marshal(sessionRequest{Prompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("encoding session request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.SessionTimeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/session/research", bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("building session request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("X-Extension-Id", c.cfg.ExtensionID)
	req.Header.Set("X-Extension-Fingerprint", creds.Fingerprint)
	req.Header.Set("X-Session-Token", creds.Token)
	req.Header.Set("X-Request-Id", requestID)

	c.logger.Debug("opening research session",
		"request_id", requestID,
		"prompt_len", len(prompt))

	resp, err := c.http.Do(req)
	if err != nil {
		cancel()
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: no response within session budget", ErrTimeout)
		}
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := c.openError(resp)
		resp.Body.Close()
		cancel()
		return nil, err
	}

	if ct := resp.Header.Get("Content-Type"); !strings.Contains(strings.ToLower(ct), "text/event-stream") {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("%w: got %q", ErrContentType, ct)
	}

	return &Stream{
		body:      resp.Body,
		cancel:    cancel,
		logger:    c.logger,
		requestID: requestID,
	}, nil
}

// openError classifies a non-success status on session open. The response
// body is decoded as {"detail": ...} when possible, kept verbatim otherwise.
func (c *Client) openError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	detail := strings.TrimSpace(string(raw))
	var parsed struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Detail != "" {
		detail = parsed.Detail
	}

	if resp.StatusCode == http.StatusUnauthorized && strings.Contains(strings.ToLower(detail), "token") {
		return fmt.Errorf("%w: %s", ErrTokenRejected, detail)
	}
	return &ServiceError{Status: resp.StatusCode, Detail: detail}
}

// Stream is a pull iterator over a session's events. It is single-consumer
// and does no internal buffering beyond frame reassembly; the usual loop is
//
//	for st.Next() {
//	    ev := st.Event()
//	    ...
//	}
//	if err := st.Err(); err != nil { ... }
type Stream struct {
	body      io.ReadCloser
	cancel    context.CancelFunc
	logger    log.Logger
	requestID string

	dec     decoder
	pending []Event
	cur     Event
	err     error
	done    bool
}

// Next advances to the next event, blocking on the network as needed. It
// returns false when the host closes the stream, the session budget runs
// out, or the transport fails; Err distinguishes the three.
func (s *Stream) Next() bool {
	for {
		if len(s.pending) > 0 {
			s.cur = s.pending[0]
			s.pending = s.pending[1:]
			return true
		}
		if s.done {
			return false
		}

		var chunk [4096]byte
		n, err := s.body.Read(chunk[:])
		if n > 0 {
			for _, f := range s.dec.feed(chunk[:n]) {
				ev, ok := decodeEvent(f)
				if !ok {
					s.logger.Debug("skipping malformed frame",
						"request_id", s.requestID,
						"event", f.kind)
					continue
				}
				s.pending = append(s.pending, ev)
			}
		}
		if err != nil {
			// Events completed by the final chunk still drain before
			// the loop reports the end of the stream.
			s.done = true
			s.err = s.finishErr(err)
		}
	}
}

// finishErr maps the terminal read error. EOF is the normal end of session.
func (s *Stream) finishErr(err error) error {
	switch {
	case errors.Is(err, io.EOF):
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: session budget exhausted", ErrTimeout)
	case errors.Is(err, context.Canceled):
		return context.Canceled
	default:
		return fmt.Errorf("%w: reading event stream: %v", ErrNetwork, err)
	}
}

// Event returns the event produced by the last successful Next.
func (s *Stream) Event() Event { return s.cur }

// Err returns the terminal error, nil after a clean end of stream.
func (s *Stream) Err() error { return s.err }

// Close releases the session. Safe to call at any point, including after
// Next has returned false.
func (s *Stream) Close() error {
	s.cancel()
	return s.body.Close()
}
