// internal/config/secrets.go
//
// `vault:` secret references.
//
// Any secret-bearing string may be written as
//
//	vault:<mount>/<path>#<key>     e.g. vault:secret/contact#csrf_key
//
// ResolveSecrets swaps each reference for the value stored in Vault.  Plain
// strings pass through untouched, so local development needs no Vault.

package config

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const secretPrefix = "vault:"

// SecretTTL is how long resolved secrets stay in the client cache.
const SecretTTL = 10 * time.Minute

// SecretSource is satisfied by *vault.Client.
type SecretSource interface {
	GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error)
}

// IsSecretRef reports whether s is a vault: reference.
func IsSecretRef(s string) bool { return strings.HasPrefix(s, secretPrefix) }

// ParseSecretRef splits "vault:path#key".
func ParseSecretRef(s string) (path, key string, err error) {
	if !IsSecretRef(s) {
		return "", "", fmt.Errorf("not a vault reference: %q", s)
	}
	ref := strings.TrimPrefix(s, secretPrefix)
	path, key, ok := strings.Cut(ref, "#")
	if !ok || path == "" || key == "" {
		return "", "", fmt.Errorf("vault reference %q must look like vault:path#key", s)
	}
	return path, key, nil
}

// secretFields lists every value that may hold a vault: reference.
func (c *Config) secretFields() map[string]*string {
	return map[string]*string{
		"database.password":      &c.Database.Password,
		"contact.csrf_key":       &c.Contact.CSRFKey,
		"contact.webhook.secret": &c.Contact.Webhook.Secret,
		"contact.mail.password":  &c.Contact.Mail.Password,
	}
}

// HasSecretRefs reports whether any secret field still holds a reference.
func (c *Config) HasSecretRefs() bool {
	for _, p := range c.secretFields() {
		if IsSecretRef(*p) {
			return true
		}
	}
	return false
}

// ResolveSecrets replaces every vault: reference in c using src.  The first
// failure aborts and names the offending key.
func ResolveSecrets(ctx context.Context, c *Config, src SecretSource) error {
	for name, p := range c.secretFields() {
		if !IsSecretRef(*p) {
			continue
		}
		path, key, err := ParseSecretRef(*p)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		val, err := src.GetKV(ctx, path, key, SecretTTL)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*p = val
	}
	return nil
}

// DatabaseDSN returns the DSN with the first %s placeholder replaced by the
// password.  Other percent sequences (e.g. loc=Europe%2FMadrid) are kept.
func (c *Config) DatabaseDSN() string {
	return strings.Replace(c.Database.DSN, "%s", c.Database.Password, 1)
}
