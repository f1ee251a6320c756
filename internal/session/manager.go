// Package session obtains and caches the token that authenticates research
// sessions. A token is minted against the installation fingerprint, proven
// by a validation round trip before reuse, and persisted only once the host
// has accepted it.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/olexi-ai/olexi-go/internal/fingerprint"
	"github.com/olexi-ai/olexi-go/internal/log"
)

// Config holds the manager's wiring.
type Config struct {
	// BaseURL is the research host root, without a trailing slash.
	BaseURL string

	// ExtensionID identifies this client to the host.
	ExtensionID string

	// UserAgent is sent on every request.
	UserAgent string

	// RequestTimeout bounds each token request individually.
	RequestTimeout time.Duration

	// HTTPClient, when nil, falls back to http.DefaultClient.
	HTTPClient *http.Client
}

// Manager resolves the current session token. Acquisition is serialised
// under a mutex so concurrent callers share one validation or mint round
// trip instead of racing the host.
type Manager struct {
	cfg    Config
	http   *http.Client
	store  TokenStore
	prints *fingerprint.Source
	logger log.Logger

	mu    sync.Mutex
	token string
}

func NewManager(cfg Config, store TokenStore, prints *fingerprint.Source, logger log.Logger) *Manager {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Manager{cfg: cfg, http: hc, store: store, prints: prints, logger: logger}
}

// Fingerprint returns the installation fingerprint the manager mints
// tokens against.
func (m *Manager) Fingerprint() string {
	return m.prints.Get()
}

// Token returns a usable session token, resolving in order: the in-memory
// token from this process, a validated token from the store, a freshly
// minted one. Validation failures on a cached token are not fatal; they
// simply fall through to minting. ErrAuth is returned only when every path
// is exhausted.
func (m *Manager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token != "" {
		return m.token, nil
	}

	fp := m.prints.Get()

	if cached, err := m.store.Load(); err == nil {
		if err := m.validate(ctx, cached, fp); err == nil {
			m.logger.Debug("reusing cached session token")
			m.token = cached
			return cached, nil
		} else if ctx.Err() != nil {
			return "", ctx.Err()
		} else {
			m.logger.Debug("cached token failed validation", "error", err)
		}
	} else if !errors.Is(err, ErrNoToken) {
		m.logger.Warn("reading cached token", "error", err)
	}

	token, err := m.mint(ctx, fp)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %v", ErrAuth, err)
	}

	if err := m.store.Save(token); err != nil {
		// A token that cannot be cached is still good for this process.
		m.logger.Warn("caching session token", "error", err)
	}
	m.token = token
	return token, nil
}

// Invalidate discards the current token, in memory and in the store. The
// next Token call mints a fresh one.
func (m *Manager) Invalidate() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.token = ""
	if err := m.store.Clear(); err != nil {
		return fmt.Errorf("clearing session token: %w", err)
	}
	return nil
}

// validate proves a cached token against the host. Any 2xx means the token
// is still live; everything else, including transport failures, reports an
// error and the caller falls through to minting.
func (m *Manager) validate(ctx context.Context, token, fp string) error {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.cfg.BaseURL+"/session/token/info", nil)
	if err != nil {
		return fmt.Errorf("building validation request: %w", err)
	}
	req.Header.Set("User-Agent", m.cfg.UserAgent)
	req.Header.Set("X-Session-Token", token)
	req.Header.Set("X-Extension-Fingerprint", fp)

	resp, err := m.http.Do(req)
	if err != nil {
		return fmt.Errorf("validating token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("token validation: status %d", resp.StatusCode)
	}
	return nil
}

type mintRequest struct {
	Fingerprint string `json:"fingerprint"`
}

type mintResponse struct {
	Token string `json:"token"`
}

// mint asks the host for a new token bound to the fingerprint.
func (m *Manager) mint(ctx context.Context, fp string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.RequestTimeout)
	defer cancel()

	body, err := json.Marshal(mintRequest{Fingerprint: fp})
	if err != nil {
		return "", fmt.Errorf("encoding token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.BaseURL+"/session/token", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", m.cfg.UserAgent)
	req.Header.Set("X-Extension-Fingerprint", fp)
	req.Header.Set("X-Extension-Id", m.cfg.ExtensionID)

	resp, err := m.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("requesting token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("token request: status %d", resp.StatusCode)
	}

	var parsed mintResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decoding token response: %w", err)
	}
	if parsed.Token == "" {
		return "", errors.New("token response missing token")
	}

	m.logger.Debug("minted new session token")
	return parsed.Token, nil
}
