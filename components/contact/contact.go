// components/contact/contact.go
//
// Contact component – the HTTP host for the contact form controller.
//
// Context
// -------
// Every request builds its own form.Controller over its own
// form.MemorySurface, replays the browser event it received (submit or
// blur), then renders the surface.  Nothing is shared between requests
// except the delivery backend, the rule table, and the CSRF key.
//
// Routes
// ------
//
//	GET  /contact                  form page, ?sent=1 shows the success toast
//	POST /contact                  submit; 303 / 422 / 502 / 429 / 403
//	POST /contact/validate/{field} blur validation, JSON
//	GET  /contact/assets/*         stylesheet and script
package contact

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/contact/internal/component"
	"github.com/yanizio/contact/internal/form"
	"github.com/yanizio/contact/internal/form/deliver"
	"github.com/yanizio/contact/internal/middleware"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed assets/*
var assetFS embed.FS

// compile-time assertions
var (
	_ component.Component   = (*Component)(nil)
	_ component.Initializer = (*Component)(nil)
)

// Component implements component.Component.  Init must run before Routes.
type Component struct {
	opts      form.Options
	validator *form.Validator
	csrf      *form.CSRF
	page      *template.Template
	limit     middleware.RateLimitConfig
	store     bool
	now       func() time.Time

	display, exit time.Duration
}

// Register component at program start.
func init() { component.Register(&Component{}) }

/*────────────────── component.Component methods ───────────────────────────*/

// Name returns the canonical component key.
func (c *Component) Name() string { return "contact" }

// Migrations returns the submission table when the store backend is on.
func (c *Component) Migrations() []string {
	if !c.store {
		return nil
	}
	return []string{deliver.Migration}
}

// Init builds the rule table, delivery chain, and CSRF issuer from config.
func (c *Component) Init(deps component.Deps) error {
	if deps.Config == nil {
		return errors.New("contact: config is required")
	}
	cc := deps.Config.Contact

	rules := form.DefaultRules()
	if cc.RulesFile != "" {
		var err error
		if rules, err = form.LoadRules(cc.RulesFile); err != nil {
			return fmt.Errorf("contact: %w", err)
		}
	}

	backend, err := buildBackend(deps)
	if err != nil {
		return fmt.Errorf("contact: %w", err)
	}

	secret, err := form.DecodeSecret(cc.CSRFKey)
	if err != nil {
		return fmt.Errorf("contact: csrf_key: %w", err)
	}
	csrf, err := form.NewCSRF(secret, 0)
	if err != nil {
		return fmt.Errorf("contact: %w", err)
	}

	c.store = cc.Enabled("store")
	return c.configure(form.Options{
		Rules:         rules,
		Backend:       backend,
		SubmitTimeout: cc.SubmitTimeout,
		Presenter: form.PresenterOptions{
			Display:  cc.NotificationDisplay,
			Exit:     cc.NotificationExit,
			MaxStack: cc.MaxNotifications,
		},
	}, csrf, middleware.RateLimitConfig{Rate: cc.RateLimit.Rate, Burst: cc.RateLimit.Burst})
}

// configure finishes construction.  Tests call it directly with fakes.
func (c *Component) configure(opts form.Options, csrf *form.CSRF, limit middleware.RateLimitConfig) error {
	page, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return fmt.Errorf("contact: parse templates: %w", err)
	}
	if opts.SuccessTitle == "" {
		opts.SuccessTitle, opts.SuccessBody = form.DefaultSuccessTitle, form.DefaultSuccessBody
	}
	c.opts = opts
	c.validator = form.NewValidator(opts.Rules)
	c.csrf = csrf
	c.page = page
	c.now = time.Now
	c.display, c.exit = opts.Presenter.Display, opts.Presenter.Exit
	if c.display <= 0 {
		c.display = form.DefaultDisplayDuration
	}
	if c.exit <= 0 {
		c.exit = form.DefaultExitDuration
	}
	limit.OnLimited = c.handleLimited
	c.limit = limit
	return nil
}

// Routes builds and returns the router mounted at “/”.
func (c *Component) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/contact", c.handleForm)
	r.With(middleware.RateLimit(c.limit)).Post("/contact", c.handleSubmit)
	r.Post("/contact/validate/{field}", c.handleValidate)

	assets, _ := fs.Sub(assetFS, "assets")
	r.Handle("/contact/assets/*", http.StripPrefix("/contact/assets/", http.FileServer(http.FS(assets))))
	return r
}
