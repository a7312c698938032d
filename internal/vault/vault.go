// internal/vault/vault.go
//
// Vault client wrapper for the contact service.
//
// Context
// -------
//   - Wraps the HashiCorp Vault Go SDK with KV-v2 reads and a per-key cache.
//   - Keeps the token alive with a lifetime watcher until ctx is cancelled.
//   - Satisfies config.SecretSource, so `vault:` references in YAML resolve
//     through GetKV.
//
// Public workflow
// ---------------
//  1. cli, err := vault.New(ctx, zap.S())        // during boot, only when
//     VAULT_ADDR is set.
//  2. err = config.ResolveSecrets(ctx, cfg, cli)
package vault

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	vault "github.com/hashicorp/vault/api"
	"go.uber.org/zap"
)

//
// SECTION 1.  Public façade
//

// kvReader reads one KV-v2 secret.  Swapped in tests.
type kvReader func(ctx context.Context, mount, rel string) (map[string]any, error)

// Client is safe for concurrent use.  Zero value is invalid.
type Client struct {
	api  *vault.Client
	log  *zap.SugaredLogger
	read kvReader
	now  func() time.Time

	cacheMu sync.RWMutex
	cache   map[string]cached // path#key → value + expiry.
}

type cached struct {
	val string
	exp time.Time
}

// Enabled reports whether the environment points at a Vault server.
func Enabled() bool { return os.Getenv("VAULT_ADDR") != "" }

// New constructs a Vault client from VAULT_ADDR / VAULT_TOKEN and starts the
// token watcher.
func New(ctx context.Context, log *zap.SugaredLogger) (*Client, error) {
	if log == nil {
		log = zap.S()
	}

	cfg := vault.DefaultConfig()
	if err := cfg.ReadEnvironment(); err != nil {
		return nil, fmt.Errorf("vault env cfg: %w", err)
	}

	api, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault api: %w", err)
	}
	if tok := os.Getenv("VAULT_TOKEN"); tok != "" {
		api.SetToken(tok)
	}

	c := newClient(func(ctx context.Context, mount, rel string) (map[string]any, error) {
		sec, err := api.KVv2(mount).Get(ctx, rel)
		if err != nil {
			return nil, err
		}
		return sec.Data, nil
	}, log)
	c.api = api

	go c.watchToken(ctx)
	return c, nil
}

func newClient(read kvReader, log *zap.SugaredLogger) *Client {
	return &Client{
		log:   log,
		read:  read,
		now:   time.Now,
		cache: make(map[string]cached),
	}
}

// GetKV fetches one key from a KV-v2 secret.  With ttl > 0 the value is
// cached for that long.
func (c *Client) GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error) {
	if secretPath == "" || key == "" {
		return "", errors.New("secret path and key must be non-empty")
	}
	canonical := secretPath + "#" + key

	if ttl > 0 {
		c.cacheMu.RLock()
		cv, ok := c.cache[canonical]
		c.cacheMu.RUnlock()
		if ok && c.now().Before(cv.exp) {
			return cv.val, nil
		}
	}

	mount, rel := splitMount(secretPath)
	data, err := c.read(ctx, mount, rel)
	if err != nil {
		return "", fmt.Errorf("vault get %s: %w", secretPath, err)
	}

	raw, ok := data[key]
	if !ok {
		return "", fmt.Errorf("key %q not found in secret %q", key, secretPath)
	}
	sval, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("value at %s is not a string", canonical)
	}

	if ttl > 0 {
		c.cacheMu.Lock()
		c.cache[canonical] = cached{val: sval, exp: c.now().Add(ttl)}
		c.cacheMu.Unlock()
	}
	return sval, nil
}

//
// SECTION 2.  Token renewal
//

func (c *Client) watchToken(ctx context.Context) {
	for ctx.Err() == nil {
		sec, err := c.api.Auth().Token().RenewSelfWithContext(ctx, 0)
		if err != nil {
			c.log.Warnw("vault token renew failed", "err", err)
			backoff(ctx, 30*time.Second)
			continue
		}
		if sec == nil || sec.Auth == nil || !sec.Auth.Renewable {
			c.log.Infow("vault token not renewable, rechecking in 1h")
			backoff(ctx, time.Hour)
			continue
		}

		w, err := c.api.NewLifetimeWatcher(&vault.LifetimeWatcherInput{
			Secret: sec,
		})
		if err != nil {
			c.log.Warnw("vault watcher init failed", "err", err)
			backoff(ctx, 30*time.Second)
			continue
		}
		go w.Start()
		c.watch(ctx, w)
		w.Stop()
		backoff(ctx, 15*time.Second)
	}
}

func (c *Client) watch(ctx context.Context, w *vault.LifetimeWatcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-w.DoneCh():
			if err != nil {
				c.log.Warnw("vault token watcher stopped", "err", err)
			}
			return
		case ev := <-w.RenewCh():
			if ev != nil && ev.Secret != nil && ev.Secret.Auth != nil {
				c.log.Debugw("vault token renewed", "ttl_s", ev.Secret.Auth.LeaseDuration)
			}
		}
	}
}

//
// SECTION 3.  Helpers
//

// splitMount separates "secret/contact/app" into mount "secret" and
// relative path "contact/app".
func splitMount(p string) (mount, rel string) {
	mount, rel, _ = strings.Cut(p, "/")
	return mount, rel
}

func backoff(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
