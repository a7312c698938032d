// internal/form/csrf.go
//
// Forms subsystem: stateless CSRF tokens and submit-timing guard.
//
// Context
//   The rendered contact form embeds a hidden `csrf_token` input and a
//   `render_ts` input.  On POST the adapter verifies both before any field
//   validation runs.  The token is stateless:
//
//      base64url( nonce | unixMicro | HMAC_SHA256(secret, nonce+unixMicro) )
//
//   •  nonce – 16 random bytes.
//   •  unixMicro – issue time, 8 bytes, big-endian.
//   •  HMAC – keyed with the configured secret.
//
//   Verification checks the signature and that the issue time lies within
//   MaxAge.  No server-side session is needed, so any instance can verify a
//   token any other instance issued.
//
//   Consume additionally spends the nonce: a second POST carrying the same
//   token (double click, browser resubmit) gets ErrTokenReused.  Spent nonces
//   live in a bounded in-process LRU until MaxAge, after which the token
//   fails the age check anyway.  Behind a load balancer without sticky
//   sessions a replay can slip through on another instance.
//
//   CheckTiming rejects forms posted faster than a human could type them or
//   long after the page was rendered.
//
//------------------------------------------------------------------------------

package form

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/contact/internal/cache"
)

const (
	tokenBytes = 16 + 8 + sha256.Size // nonce + ts + sig

	// DefaultTokenMaxAge bounds how long a rendered form stays submittable.
	DefaultTokenMaxAge = 2 * time.Hour

	// MinSecretLen is the shortest accepted HMAC key.
	MinSecretLen = 32

	// spentCapacity bounds how many spent nonces are remembered.
	spentCapacity = 50_000
)

// Token errors returned by Consume.
var (
	ErrTokenInvalid = errors.New("csrf token invalid or expired")
	ErrTokenReused  = errors.New("csrf token already used")
)

// CSRF issues and verifies tokens.  Safe for concurrent use.
type CSRF struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
	spent  *cache.LRU[string, struct{}]
}

// NewCSRF returns a token issuer keyed with secret.  A nil secret generates a
// random key, which only works for a single process and resets on restart.
func NewCSRF(secret []byte, maxAge time.Duration) (*CSRF, error) {
	if secret == nil {
		secret = make([]byte, MinSecretLen)
		if _, err := rand.Read(secret); err != nil {
			return nil, err
		}
		zap.S().Warnw("csrf key not configured, using ephemeral random key")
	}
	if len(secret) < MinSecretLen {
		return nil, errors.New("csrf secret must be at least 32 bytes")
	}
	if maxAge <= 0 {
		maxAge = DefaultTokenMaxAge
	}
	return &CSRF{
		secret: secret,
		maxAge: maxAge,
		now:    time.Now,
		spent:  cache.New[string, struct{}](spentCapacity, maxAge),
	}, nil
}

// DecodeSecret parses a base64url key as stored in configuration.
func DecodeSecret(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Generate creates a new token.  Call once per form render.
func (c *CSRF) Generate() (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	ts := make([]byte, 8)
	binary.BigEndian.PutUint64(ts, uint64(c.now().UnixMicro()))

	buf := make([]byte, 0, tokenBytes)
	buf = append(buf, nonce...)
	buf = append(buf, ts...)
	buf = append(buf, c.sign(nonce, ts)...)

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Verify reports whether tok passes the HMAC and age checks.  It does not
// spend the token.
func (c *CSRF) Verify(tok string) bool {
	_, ok := c.check(tok)
	return ok
}

// Consume verifies tok and marks it spent.  It returns ErrTokenInvalid for a
// bad or expired token and ErrTokenReused when the token was consumed before.
func (c *CSRF) Consume(tok string) error {
	nonce, ok := c.check(tok)
	if !ok {
		return ErrTokenInvalid
	}
	if !c.spent.AddIfAbsent(nonce, struct{}{}) {
		return ErrTokenReused
	}
	return nil
}

// check returns the token nonce when the signature and age are good.
func (c *CSRF) check(tok string) (string, bool) {
	if tok == "" {
		return "", false
	}
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil || len(raw) != tokenBytes {
		return "", false
	}

	nonce, tsBytes, sig := raw[:16], raw[16:24], raw[24:]

	issued := time.UnixMicro(int64(binary.BigEndian.Uint64(tsBytes)))
	now := c.now()
	if now.Sub(issued) > c.maxAge || issued.Sub(now) > time.Minute {
		// Too old, or from the future beyond clock skew.
		return "", false
	}

	if !hmac.Equal(sig, c.sign(nonce, tsBytes)) {
		return "", false
	}
	return string(nonce), true
}

func (c *CSRF) sign(nonce, ts []byte) []byte {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write(nonce)
	mac.Write(ts)
	return mac.Sum(nil)
}

// -----------------------------------------------------------------------------
// Timing guard
// -----------------------------------------------------------------------------

// Timing bounds between render and submit.
const (
	MinFillTime = 2 * time.Second
	MaxFillTime = 30 * time.Minute
)

// CheckTiming validates the render_ts hidden input (microseconds since Unix
// epoch).  It returns "" on success, otherwise a user-visible message.
func CheckTiming(tsRaw string, now time.Time) string {
	if tsRaw == "" {
		return "Timestamp missing.  Please reload the page."
	}
	ts, err := strconv.ParseInt(tsRaw, 10, 64)
	if err != nil {
		return "Bad timestamp.  Please retry."
	}
	delta := now.Sub(time.UnixMicro(ts))
	switch {
	case delta < MinFillTime:
		return "Form submitted too quickly.  Please enter the fields manually."
	case delta > MaxFillTime:
		return "Form expired.  Please reload and submit again."
	default:
		return ""
	}
}
