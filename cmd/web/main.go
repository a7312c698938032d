// cmd/web/main.go
//
// Contact service – HTTP entry point.
//
// Boot sequence
// -------------
//
//  1. Load configuration (.env → conf/global.yaml → CONTACT_* env).
//
//  2. Start the rotating logger (tees to console when running in a TTY).
//
//  3. Resolve `vault:` secrets when VAULT_ADDR is set.
//
//  4. Open the database when the store backend is enabled, and the mail
//     queue when the email backend is enabled.
//
//  5. Init every registered component, run its migrations, mount its routes.
//
//  6. Serve until SIGINT/SIGTERM, then drain HTTP and the mail queue.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yanizio/contact/internal/component"
	"github.com/yanizio/contact/internal/config"
	"github.com/yanizio/contact/internal/database"
	"github.com/yanizio/contact/internal/logger"
	"github.com/yanizio/contact/internal/message"
	"github.com/yanizio/contact/internal/middleware"
	"github.com/yanizio/contact/internal/requestinfo"
	"github.com/yanizio/contact/internal/server"
	"github.com/yanizio/contact/internal/vault"

	_ "github.com/yanizio/contact/components/contact"
)

// shutdownGrace bounds graceful HTTP shutdown and mail drain.
const shutdownGrace = 10 * time.Second

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("contact: %v", err)
	}
}

func run(ctx context.Context) error {
	//
	// ── 1.  Configuration and logger ────────────────────────────────────
	//
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logOut, err := logger.New(cfg.Paths.Root, runningInTTY())
	if err != nil {
		return err
	}
	defer func() { _ = logOut.Sync() }()

	//
	// ── 2.  Vault secrets ───────────────────────────────────────────────
	//
	if cfg.HasSecretRefs() {
		if !vault.Enabled() {
			return errors.New("config holds vault: references but VAULT_ADDR is not set")
		}
		vc, err := vault.New(ctx, logOut)
		if err != nil {
			return err
		}
		if err := config.ResolveSecrets(ctx, cfg, vc); err != nil {
			return err
		}
		logOut.Infow("vault secrets resolved")
	}

	if err := requestinfo.InitGeo(cfg.HTTP.GeoIPDB); err != nil {
		logOut.Warnw("geoip disabled", "err", err)
	}

	//
	// ── 3.  Optional resources ──────────────────────────────────────────
	//
	deps := component.Deps{Config: cfg}

	if cfg.Contact.Enabled("store") {
		db, err := database.Open(ctx, cfg.DatabaseDSN())
		if err != nil {
			return err
		}
		defer db.Close()
		deps.DB = db
		logOut.Infow("database online")
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Contact.Enabled("email") {
		var mailer message.Mailer = message.LogMailer{Log: logOut}
		if cfg.Contact.Mail.SMTPAddr != "" {
			mailer = message.SMTPMailer{
				Addr:     cfg.Contact.Mail.SMTPAddr,
				From:     cfg.Contact.Mail.From,
				Username: cfg.Contact.Mail.Username,
				Password: cfg.Contact.Mail.Password,
			}
		}
		q := message.NewQueue(mailer, cfg.Contact.Mail.QueueSize, cfg.Contact.Mail.Workers)
		deps.Mail = q
		g.Go(func() error { return q.Run(context.WithoutCancel(gctx)) })
		g.Go(func() error {
			<-gctx.Done()
			q.Close()
			return nil
		})
	}

	//
	// ── 4.  Router ──────────────────────────────────────────────────────
	//
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	if cfg.HTTP.ForceHTTPS {
		r.Use(middleware.ForceHTTPS(cfg.HTTP.TrustProxy))
	}
	r.Use(middleware.Security(cfg.HTTP.ForceHTTPS))
	r.Use(requestinfo.Enrich(cfg.HTTP.TrustProxy))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if deps.DB != nil {
			if err := deps.DB.PingContext(r.Context()); err != nil {
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/contact", http.StatusFound)
	})

	for _, c := range component.All() {
		if in, ok := c.(component.Initializer); ok {
			if err := in.Init(deps); err != nil {
				return err
			}
		}
		if stmts := c.Migrations(); len(stmts) > 0 {
			if deps.DB == nil {
				return errors.New(c.Name() + " needs migrations but no database is open")
			}
			if err := database.Migrate(ctx, deps.DB, stmts); err != nil {
				return err
			}
		}
		r.Mount("/", c.Routes())
		logOut.Infow("component mounted", "name", c.Name())
	}

	//
	// ── 5.  Serve ───────────────────────────────────────────────────────
	//
	srv := server.New(cfg.HTTP.ListenAddr, r, cfg.Contact.SubmitTimeout)
	g.Go(func() error { return server.Run(gctx, srv, shutdownGrace) })

	err = g.Wait()
	zap.S().Infow("contact stopped", "err", err)
	return err
}
