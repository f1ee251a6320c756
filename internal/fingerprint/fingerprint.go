// Package fingerprint derives the stable installation identifier that scopes
// session tokens on the research host.
//
// The identifier is a deterministic digest of environment attributes. It is
// computed lazily once per process and memoized; two runs on the same
// installation produce the same value, two installations almost never do.
// The host only accepts 32-character lowercase hex fingerprints, so both the
// primary and fallback derivations go through SHA-256.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/olexi-ai/olexi-go/internal/log"
)

// renderSeed plays the role a canvas drawing plays in a browser: a constant
// input that ties the digest to this client implementation.
const renderSeed = "Olexi Extension Fingerprint"

// maxUserAgentLen truncates the user agent before hashing so minor version
// bumps within the prefix do not churn the fingerprint.
const maxUserAgentLen = 100

// Length of the derived fingerprint in hex characters. The host validates
// this exactly.
const Length = 32

// UserAgent returns the client identification string sent with every request
// and folded into the fingerprint.
func UserAgent() string {
	return fmt.Sprintf("olexi-go/1.0 (%s; %s; %s)", runtime.GOOS, runtime.GOARCH, runtime.Version())
}

// attributes is the hashed attribute set. Field order is fixed by the struct
// definition, which keeps the JSON encoding, and therefore the digest, stable.
type attributes struct {
	RenderSeed string `json:"renderSeed"`
	Timezone   string `json:"timezone"`
	Locale     string `json:"locale"`
	Platform   string `json:"platform"`
	Geometry   string `json:"geometry"`
	UserAgent  string `json:"userAgent"`
	Origin     string `json:"origin"`
}

// Source computes and memoizes the installation fingerprint.
// The zero value is not usable; construct with New.
type Source struct {
	logger log.Logger

	// Injection points for deterministic tests.
	getenv   func(string) string
	hostname func() (string, error)
	now      func() time.Time

	once  sync.Once
	value string
}

// Option customizes a Source, mainly for tests.
type Option func(*Source)

// WithEnv overrides environment lookups.
func WithEnv(getenv func(string) string) Option {
	return func(s *Source) { s.getenv = getenv }
}

// WithHostname overrides hostname resolution.
func WithHostname(hostname func() (string, error)) Option {
	return func(s *Source) { s.hostname = hostname }
}

// WithClock overrides the clock used for timezone detection.
func WithClock(now func() time.Time) Option {
	return func(s *Source) { s.now = now }
}

// New creates a fingerprint source. The logger must not be nil.
func New(logger log.Logger, opts ...Option) *Source {
	s := &Source{
		logger:   logger,
		getenv:   os.Getenv,
		hostname: os.Hostname,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the installation fingerprint, computing it on first call and
// reusing the memoized value afterwards. It never fails: when the full
// attribute set is unavailable it falls back to a lower-entropy derivation
// from the user agent and display geometry.
func (s *Source) Get() string {
	s.once.Do(func() {
		s.value = s.compute()
	})
	return s.value
}

func (s *Source) compute() string {
	ua := UserAgent()
	if len(ua) > maxUserAgentLen {
		ua = ua[:maxUserAgentLen]
	}
	geometry := s.geometry()

	origin, err := s.hostname()
	if err != nil {
		s.logger.Warn("fingerprint attributes incomplete, using fallback derivation", "error", err)
		return digest([]byte(ua + geometry))
	}

	zone, _ := s.now().Zone()
	attrs := attributes{
		RenderSeed: renderSeed,
		Timezone:   zone,
		Locale:     s.locale(),
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
		Geometry:   geometry,
		UserAgent:  ua,
		Origin:     origin,
	}

	data, err := json.Marshal(attrs)
	if err != nil {
		// Marshalling a flat string struct cannot fail in practice, but the
		// caller must never be failed over fingerprinting.
		s.logger.Warn("fingerprint attributes unencodable, using fallback derivation", "error", err)
		return digest([]byte(ua + geometry))
	}

	return digest(data)
}

// locale reads the active locale the way POSIX tools do: LC_ALL beats LANG.
func (s *Source) locale() string {
	if v := s.getenv("LC_ALL"); v != "" {
		return v
	}
	return s.getenv("LANG")
}

// geometry reports the terminal dimensions, the closest analog this client
// has to a screen resolution.
func (s *Source) geometry() string {
	cols := s.getenv("COLUMNS")
	lines := s.getenv("LINES")
	if cols == "" || lines == "" {
		return "0x0"
	}
	return cols + "x" + lines
}

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:Length]
}
