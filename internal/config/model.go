// internal/config/model.go
//
// Typed configuration model for the contact service.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                           – dotenv values,
//   • `conf/global.yaml`                        – primary static file,
//   • `CONTACT_`-prefixed environment overrides – highest precedence.
//
// Any secret whose string begins with `vault:` is resolved through Vault
// after unmarshalling (see secrets.go), so callers only ever see plain
// strings.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.
//   • Durations accept Go syntax ("2s", "500ms").
//   • The `Paths` block is filled at runtime; YAML must not try to set it.

package config

import "time"

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
	ForceHTTPS bool   `koanf:"force_https"`
	// TrustProxy honours X-Forwarded-For / X-Real-IP for client addresses.
	TrustProxy bool   `koanf:"trust_proxy"`
	GeoIPDB    string `koanf:"geoip_db"`
}

//
// Database section
//

// Database is only required when the "store" backend is enabled.  The DSN
// may contain one %s verb, replaced by Password, so the secret can live in
// Vault while operators tweak host and flags in YAML.
type Database struct {
	DSN      string `koanf:"dsn"`
	Password string `koanf:"password"`
}

//
// Contact section
//

// RateLimit bounds POST /contact per client address.
type RateLimit struct {
	Rate  int `koanf:"rate"  validate:"gte=0"` // tokens per second, 0 disables
	Burst int `koanf:"burst" validate:"gte=0"`
}

// Webhook configures the webhook backend.
type Webhook struct {
	URL              string            `koanf:"url"     validate:"omitempty,url"`
	Secret           string            `koanf:"secret"`
	Headers          map[string]string `koanf:"headers"`
	Timeout          time.Duration     `koanf:"timeout"`
	BreakerThreshold int               `koanf:"breaker_threshold" validate:"gte=0"`
	BreakerTimeout   time.Duration     `koanf:"breaker_timeout"`
}

// Mail configures the email backend and its queue.
type Mail struct {
	To            []string `koanf:"to"             validate:"dive,email"`
	From          string   `koanf:"from"           validate:"omitempty,email"`
	SubjectPrefix string   `koanf:"subject_prefix"`
	SMTPAddr      string   `koanf:"smtp_addr"      validate:"omitempty,hostname_port"`
	Username      string   `koanf:"username"`
	Password      string   `koanf:"password"`
	QueueSize     int      `koanf:"queue_size"     validate:"gte=0"`
	Workers       int      `koanf:"workers"        validate:"gte=0"`
}

// Contact holds the form controller and delivery settings.
type Contact struct {
	Backends            []string      `koanf:"backends" validate:"dive,oneof=simulated store email webhook"`
	SimulatedDelay      time.Duration `koanf:"simulated_delay"`
	SubmitTimeout       time.Duration `koanf:"submit_timeout"`
	NotificationDisplay time.Duration `koanf:"notification_display"`
	NotificationExit    time.Duration `koanf:"notification_exit"`
	MaxNotifications    int           `koanf:"max_notifications" validate:"gte=0"`
	RulesFile           string        `koanf:"rules_file"`
	CSRFKey             string        `koanf:"csrf_key"`
	RateLimit           RateLimit     `koanf:"rate_limit"`
	Webhook             Webhook       `koanf:"webhook"`
	Mail                Mail          `koanf:"mail"`
}

// Enabled reports whether backend name is listed.
func (c Contact) Enabled(name string) bool {
	for _, b := range c.Backends {
		if b == name {
			return true
		}
	}
	return false
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.
type Paths struct {
	Root string // CONTACT_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads.
type Config struct {
	HTTP     HTTP     `koanf:"http"`
	Database Database `koanf:"database"`
	Contact  Contact  `koanf:"contact"`
	Paths    Paths    `koanf:"-"`
}

// setDefaults fills zero values after unmarshal.
func (c *Config) setDefaults() {
	ct := &c.Contact
	if len(ct.Backends) == 0 {
		ct.Backends = []string{"simulated"}
	}
	if ct.SimulatedDelay <= 0 {
		ct.SimulatedDelay = 2 * time.Second
	}
	if ct.SubmitTimeout <= 0 {
		ct.SubmitTimeout = 30 * time.Second
	}
	if ct.NotificationDisplay <= 0 {
		ct.NotificationDisplay = 5 * time.Second
	}
	if ct.NotificationExit <= 0 {
		ct.NotificationExit = 500 * time.Millisecond
	}
	if ct.Mail.QueueSize <= 0 {
		ct.Mail.QueueSize = 64
	}
	if ct.Mail.Workers <= 0 {
		ct.Mail.Workers = 2
	}
	if ct.Mail.SubjectPrefix == "" {
		ct.Mail.SubjectPrefix = "[Contact]"
	}
}
