package deliver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yanizio/contact/internal/form"
	"github.com/yanizio/contact/internal/message"
)

// Enqueuer accepts outbound email.  *message.Queue satisfies it.
type Enqueuer interface {
	Enqueue(ctx context.Context, msg message.Email) error
}

// Email forwards each submission to the site owners as a plain-text email.
// Delivery completes once the email is queued, not when SMTP accepts it.
type Email struct {
	Queue         Enqueuer
	To            []string
	SubjectPrefix string
}

func (e Email) Deliver(ctx context.Context, s form.Snapshot) error {
	if len(e.To) == 0 {
		return fmt.Errorf("%w: email backend has no recipients", ErrRejected)
	}
	prefix := e.SubjectPrefix
	if prefix == "" {
		prefix = "[Contact]"
	}

	msg := message.Email{
		To:      e.To,
		ReplyTo: strings.TrimSpace(s.Email),
		Subject: prefix + " " + strings.TrimSpace(s.Subject),
		Text: fmt.Sprintf("From: %s <%s>\nSubject: %s\n\n%s\n",
			strings.TrimSpace(s.Name), strings.TrimSpace(s.Email),
			strings.TrimSpace(s.Subject), s.Message),
	}
	if err := e.Queue.Enqueue(ctx, msg); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%w: enqueue email: %v", ErrUnavailable, err)
	}
	return nil
}
