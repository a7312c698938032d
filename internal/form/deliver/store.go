// internal/form/deliver/store.go
//
// Store backend: persists each submission to SQL.
//
// Context
//   One row per submission in `contact_submission`.  Client metadata comes
//   from requestinfo when the Enrich middleware ran; otherwise those columns
//   are empty.  The query uses `?` bind vars (MySQL wire protocol).
//   Column widths match the form's maxlength rules, so every snapshot that
//   passed validation fits.
//
//------------------------------------------------------------------------------

package deliver

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/yanizio/contact/internal/form"
	"github.com/yanizio/contact/internal/requestinfo"
)

// Migration creates the submission table.
const Migration = `CREATE TABLE IF NOT EXISTS contact_submission (
  id           BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
  submitted_at DATETIME(6)  NOT NULL,
  name         VARCHAR(255) NOT NULL,
  email        VARCHAR(255) NOT NULL,
  subject      VARCHAR(255) NOT NULL,
  message      TEXT         NOT NULL,
  client_ip    VARCHAR(45)  NOT NULL DEFAULT '',
  user_agent   VARCHAR(512) NOT NULL DEFAULT '',
  country      CHAR(2)      NOT NULL DEFAULT ''
) DEFAULT CHARSET=utf8mb4`

const insertSubmission = `INSERT INTO contact_submission
  (submitted_at, name, email, subject, message, client_ip, user_agent, country)
  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

// Record is one stored submission.
type Record struct {
	ID          int64     `db:"id"`
	SubmittedAt time.Time `db:"submitted_at"`
	form.Snapshot
	ClientIP  string `db:"client_ip"`
	UserAgent string `db:"user_agent"`
	Country   string `db:"country"`
}

// Store writes submissions through db.
type Store struct {
	DB  *sqlx.DB
	Now func() time.Time
}

// NewStore returns a Store over db.
func NewStore(db *sqlx.DB) *Store { return &Store{DB: db, Now: time.Now} }

func (s *Store) Deliver(ctx context.Context, snap form.Snapshot) error {
	rec := Record{SubmittedAt: s.Now().UTC(), Snapshot: snap}
	if ri := requestinfo.FromContext(ctx); ri != nil {
		rec.ClientIP = ri.ClientIP()
		rec.UserAgent = truncate(ri.UA.Raw, 512)
		rec.Country = ri.Geo.CountryISO
	}

	_, err := s.DB.ExecContext(ctx, insertSubmission,
		rec.SubmittedAt, rec.Name, rec.Email, rec.Subject, rec.Message,
		rec.ClientIP, rec.UserAgent, rec.Country,
	)
	if err != nil {
		return fmt.Errorf("%w: store submission: %v", ErrUnavailable, err)
	}
	return nil
}

// Recent returns the latest limit submissions, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	var out []Record
	err := s.DB.SelectContext(ctx, &out, `SELECT id, submitted_at, name, email, subject, message,
	    client_ip, user_agent, country
	  FROM contact_submission ORDER BY submitted_at DESC LIMIT ?`, limit)
	return out, err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
