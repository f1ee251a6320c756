// Package research ties the session manager and the stream client together
// into the one operation the rest of the program uses: ask a question, get
// an event stream back.
package research

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/olexi-ai/olexi-go/internal/log"
	"github.com/olexi-ai/olexi-go/internal/session"
	"github.com/olexi-ai/olexi-go/internal/stream"
)

// ErrRateLimited reports that the local courtesy limiter refused to open a
// session. The host enforces its own limits; tripping this one locally
// saves a round trip that would only come back as a 429.
var ErrRateLimited = errors.New("session rate limit reached, try again later")

// Service opens research sessions with credential handling folded in: it
// resolves the token, opens the stream, and on a token rejection refreshes
// credentials and retries the session exactly once.
type Service struct {
	tokens  *session.Manager
	client  *stream.Client
	limiter *rate.Limiter
	logger  log.Logger
}

// New builds a Service. sessionsPerHour <= 0 disables the courtesy limiter.
func New(tokens *session.Manager, client *stream.Client, sessionsPerHour int, logger log.Logger) *Service {
	if logger == nil {
		logger = log.NewNop()
	}
	var limiter *rate.Limiter
	if sessionsPerHour > 0 {
		limiter = rate.NewLimiter(rate.Limit(sessionsPerHour)/3600, sessionsPerHour)
	}
	return &Service{tokens: tokens, client: client, limiter: limiter, logger: logger}
}

// Ask opens a research session for the prompt. A stale cached token costs
// one extra round trip: the rejected session is reopened once with fresh
// credentials, and only a second rejection surfaces to the caller.
func (s *Service) Ask(ctx context.Context, prompt string) (*stream.Stream, error) {
	if s.limiter != nil && !s.limiter.Allow() {
		return nil, ErrRateLimited
	}

	token, err := s.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	st, err := s.client.Open(ctx, prompt, stream.Credentials{
		Token:       token,
		Fingerprint: s.tokens.Fingerprint(),
	})
	if !errors.Is(err, stream.ErrTokenRejected) {
		return st, err
	}

	s.logger.Info("session token rejected, refreshing and retrying")
	if err := s.tokens.Invalidate(); err != nil {
		return nil, fmt.Errorf("discarding rejected token: %w", err)
	}
	token, err = s.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	return s.client.Open(ctx, prompt, stream.Credentials{
		Token:       token,
		Fingerprint: s.tokens.Fingerprint(),
	})
}
