// internal/form/deliver/webhook.go
//
// Webhook backend: POSTs each submission as JSON.
//
// Context
//   The endpoint is guarded by a circuit breaker so a dead receiver fails
//   fast instead of tying up every submission for the full timeout.  2xx is
//   success, 4xx is ErrRejected, anything else is ErrUnavailable.  When a
//   secret is set the body is signed:
//
//      X-Contact-Timestamp: <unix seconds>
//      X-Contact-Signature: sha256=<hex HMAC(secret, ts + "." + body)>
//
//------------------------------------------------------------------------------

package deliver

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/felixgeelhaar/fortify/circuitbreaker"

	"github.com/yanizio/contact/internal/form"
)

// WebhookConfig configures a Webhook.
type WebhookConfig struct {
	URL     string
	Secret  string
	Headers map[string]string
	// Timeout bounds one HTTP round trip.
	Timeout time.Duration
	// BreakerThreshold is consecutive failures before the circuit opens.
	BreakerThreshold int
	// BreakerTimeout is how long the circuit stays open.
	BreakerTimeout time.Duration
	UserAgent      string
}

// webhookPayload is the JSON body.
type webhookPayload struct {
	Event       string        `json:"event"`
	SubmittedAt time.Time     `json:"submitted_at"`
	Data        form.Snapshot `json:"data"`
}

// Webhook delivers submissions over HTTP.
type Webhook struct {
	cfg     WebhookConfig
	client  *http.Client
	breaker circuitbreaker.CircuitBreaker[*http.Response]
	now     func() time.Time
}

// NewWebhook validates cfg and returns a Webhook.
func NewWebhook(cfg WebhookConfig) (*Webhook, error) {
	if cfg.URL == "" {
		return nil, errors.New("webhook backend requires a url")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.BreakerThreshold <= 0 {
		cfg.BreakerThreshold = 5
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "contact-webhook/1.0"
	}

	threshold := uint32(cfg.BreakerThreshold) // #nosec G115 -- positive, checked above
	return &Webhook{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		breaker: circuitbreaker.New[*http.Response](circuitbreaker.Config{
			MaxRequests: 1,
			Interval:    cfg.BreakerTimeout,
			Timeout:     cfg.BreakerTimeout,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
		}),
		now: time.Now,
	}, nil
}

func (w *Webhook) Deliver(ctx context.Context, s form.Snapshot) error {
	now := w.now().UTC()
	body, err := json.Marshal(webhookPayload{
		Event:       "contact.submitted",
		SubmittedAt: now,
		Data:        s,
	})
	if err != nil {
		return fmt.Errorf("%w: encode payload: %v", ErrRejected, err)
	}

	_, err = w.breaker.Execute(ctx, func(ctx context.Context) (*http.Response, error) {
		return w.post(ctx, body, now)
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrRejected), errors.Is(err, ErrUnavailable):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		// Open circuit or breaker-internal failure.
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}

func (w *Webhook) post(ctx context.Context, body []byte, now time.Time) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrRejected, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", w.cfg.UserAgent)
	for k, v := range w.cfg.Headers {
		req.Header.Set(k, v)
	}
	if w.cfg.Secret != "" {
		ts := strconv.FormatInt(now.Unix(), 10)
		req.Header.Set("X-Contact-Timestamp", ts)
		req.Header.Set("X-Contact-Signature", "sha256="+Sign(w.cfg.Secret, ts, body))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return resp, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, snippet)
	default:
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, snippet)
	}
}

// BreakerState reports the circuit state, e.g. "closed" or "open".
func (w *Webhook) BreakerState() string { return w.breaker.State().String() }

// Sign returns the hex HMAC-SHA256 of ts + "." + body.
func Sign(secret, ts string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
