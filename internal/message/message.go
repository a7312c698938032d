// internal/message/message.go
//
// Outbound email queue.
//
// Context
//   Delivery backends enqueue email instead of talking SMTP on the request
//   path.  Queue buffers jobs in a bounded channel and a fixed pool of
//   workers hands them to a Mailer.  LogMailer only logs the payload and is
//   the default when no SMTP host is configured; SMTPMailer sends for real.
//
// Workflow
//   •  q := message.NewQueue(mailer, 64, 2)
//   •  go q.Run(ctx)              – blocks until ctx ends or Close.
//   •  q.Enqueue(ctx, email)      – blocks only while the buffer is full.
//
//------------------------------------------------------------------------------

package message

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Email represents a basic outbound email job.
type Email struct {
	To      []string
	ReplyTo string
	Subject string
	Text    string
}

// Mailer sends one email.
type Mailer interface {
	Send(ctx context.Context, msg Email) error
}

// ErrClosed is returned by Enqueue after Close.
var ErrClosed = errors.New("message: queue closed")

// -----------------------------------------------------------------------------
// Queue
// -----------------------------------------------------------------------------

// Queue is a bounded email queue drained by a worker pool.
type Queue struct {
	jobs    chan Email
	mailer  Mailer
	workers int

	closeOnce sync.Once
	closed    chan struct{}
}

// NewQueue returns a queue with the given buffer size and worker count.
// Values below 1 are raised to 1.
func NewQueue(m Mailer, size, workers int) *Queue {
	if size < 1 {
		size = 1
	}
	if workers < 1 {
		workers = 1
	}
	return &Queue{
		jobs:    make(chan Email, size),
		mailer:  m,
		workers: workers,
		closed:  make(chan struct{}),
	}
}

// Enqueue adds msg to the queue.  It blocks while the buffer is full and
// returns ctx.Err() if ctx ends first.
func (q *Queue) Enqueue(ctx context.Context, msg Email) error {
	if len(msg.To) == 0 {
		return errors.New("message: email has no recipients")
	}
	select {
	case <-q.closed:
		return ErrClosed
	default:
	}
	select {
	case q.jobs <- msg:
		return nil
	case <-q.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts the workers and blocks until ctx ends or Close is called.  Jobs
// still buffered at Close are drained first.  Send errors are logged, never
// returned; one bad address must not stop the pool.
func (q *Queue) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < q.workers; i++ {
		worker := i
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-q.closed:
					q.drain(gctx, worker)
					return nil
				case msg := <-q.jobs:
					q.send(gctx, worker, msg)
				}
			}
		})
	}
	return g.Wait()
}

func (q *Queue) drain(ctx context.Context, worker int) {
	for {
		select {
		case msg := <-q.jobs:
			q.send(ctx, worker, msg)
		default:
			return
		}
	}
}

func (q *Queue) send(ctx context.Context, worker int, msg Email) {
	if err := q.mailer.Send(ctx, msg); err != nil {
		zap.S().Errorw("email send failed",
			"worker", worker, "to", msg.To, "subject", msg.Subject, "err", err)
	}
}

// Close stops accepting jobs.  Run returns once the buffer is drained.
func (q *Queue) Close() { q.closeOnce.Do(func() { close(q.closed) }) }

// Len reports buffered jobs.
func (q *Queue) Len() int { return len(q.jobs) }

// -----------------------------------------------------------------------------
// Mailers
// -----------------------------------------------------------------------------

// LogMailer logs the email instead of sending it.
type LogMailer struct{ Log *zap.SugaredLogger }

func (m LogMailer) Send(_ context.Context, msg Email) error {
	log := m.Log
	if log == nil {
		log = zap.S()
	}
	log.Infow("email (log only)",
		"to", msg.To, "reply_to", msg.ReplyTo, "subject", msg.Subject, "len", len(msg.Text))
	return nil
}

// SMTPMailer sends plain-text email through an SMTP relay.
type SMTPMailer struct {
	Addr     string // host:port
	From     string
	Username string
	Password string
}

func (m SMTPMailer) Send(ctx context.Context, msg Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var auth smtp.Auth
	if m.Username != "" {
		host := m.Addr
		if i := strings.LastIndexByte(host, ':'); i != -1 {
			host = host[:i]
		}
		auth = smtp.PlainAuth("", m.Username, m.Password, host)
	}
	if err := smtp.SendMail(m.Addr, auth, m.From, msg.To, buildMIME(m.From, msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// buildMIME renders msg as a minimal RFC 5322 plain-text message.  Header
// values have CR and LF stripped so user input cannot inject headers.
func buildMIME(from string, msg Email) []byte {
	clean := strings.NewReplacer("\r", "", "\n", " ")
	var b strings.Builder
	b.WriteString("From: " + clean.Replace(from) + "\r\n")
	b.WriteString("To: " + clean.Replace(strings.Join(msg.To, ", ")) + "\r\n")
	if msg.ReplyTo != "" {
		b.WriteString("Reply-To: " + clean.Replace(msg.ReplyTo) + "\r\n")
	}
	b.WriteString("Subject: " + clean.Replace(msg.Subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(msg.Text)
	return []byte(b.String())
}
