package message

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

type memMailer struct {
	mu   sync.Mutex
	sent []Email
	err  error
}

func (m *memMailer) Send(_ context.Context, e Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, e)
	return m.err
}

func (m *memMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func TestQueueDrainsOnClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := &memMailer{}
	q := NewQueue(m, 8, 3)
	for i := 0; i < 5; i++ {
		if err := q.Enqueue(context.Background(), Email{To: []string{"a@example.com"}, Subject: "s"}); err != nil {
			t.Fatal(err)
		}
	}

	done := make(chan error, 1)
	go func() { done <- q.Run(context.Background()) }()
	q.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}
	if m.count() != 5 {
		t.Errorf("sent = %d, want 5", m.count())
	}
	if err := q.Enqueue(context.Background(), Email{To: []string{"a@example.com"}}); !errors.Is(err, ErrClosed) {
		t.Errorf("Enqueue after Close = %v", err)
	}
}

func TestQueueSendErrorDoesNotStopPool(t *testing.T) {
	m := &memMailer{err: errors.New("550 mailbox unavailable")}
	q := NewQueue(m, 4, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- q.Run(ctx) }()

	for i := 0; i < 3; i++ {
		if err := q.Enqueue(ctx, Email{To: []string{"x@example.com"}}); err != nil {
			t.Fatal(err)
		}
	}
	deadline := time.Now().Add(2 * time.Second)
	for m.count() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if m.count() != 3 {
		t.Fatalf("sent = %d, want 3", m.count())
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run = %v", err)
	}
}

func TestEnqueueRespectsContext(t *testing.T) {
	q := NewQueue(&memMailer{}, 1, 1)
	if err := q.Enqueue(context.Background(), Email{To: []string{"a@example.com"}}); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := q.Enqueue(ctx, Email{To: []string{"a@example.com"}}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("full queue err = %v", err)
	}
	if err := q.Enqueue(context.Background(), Email{}); err == nil {
		t.Fatal("email without recipients accepted")
	}
	if q.Len() != 1 {
		t.Errorf("Len = %d", q.Len())
	}
}

func TestBuildMIMEStripsHeaderInjection(t *testing.T) {
	raw := string(buildMIME("site@example.com", Email{
		To:      []string{"team@example.com"},
		ReplyTo: "evil@example.com\r\nBcc: victim@example.com",
		Subject: "Hi\nBcc: victim@example.com",
		Text:    "body",
	}))
	head, body, _ := strings.Cut(raw, "\r\n\r\n")
	if strings.Contains(head, "\r\nBcc:") || strings.Contains(head, "\nBcc:") {
		t.Fatalf("header injection survived:\n%s", head)
	}
	if body != "body" {
		t.Errorf("body = %q", body)
	}
	if !strings.Contains(head, "Content-Type: text/plain; charset=UTF-8") {
		t.Error("content type missing")
	}
}

func TestLogMailer(t *testing.T) {
	if err := (LogMailer{}).Send(context.Background(), Email{To: []string{"a@example.com"}}); err != nil {
		t.Fatal(err)
	}
}
