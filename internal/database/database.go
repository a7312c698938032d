// Package database centralises sqlx connection helpers for the contact
// store backend.  The driver is go-sql-driver/mysql, which also works with
// MariaDB.
//
// Public entry points:
//
//	Open(ctx, dsn)                          – conservative pool sizes.
//	OpenWithOptions(ctx, dsn, maxOpen, maxIdle) – fine-grained control.
//	Migrate(ctx, db, stmts)                 – idempotent schema setup.
//
// Both openers Ping the database before returning so callers fail fast
// during bootstrap.  Callers should Close() the returned *sqlx.DB.
package database

import (
	"context"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// Open returns a *sqlx.DB with 10 max open, 2 idle, and a 30-minute
// connection lifetime.  A contact form writes rarely, so the pool is small.
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	return OpenWithOptions(ctx, dsn, 10, 2)
}

// OpenWithOptions lets callers tune maxOpen and maxIdle.
func OpenWithOptions(ctx context.Context, dsn string, maxOpen, maxIdle int) (*sqlx.DB, error) {
	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(30 * time.Minute)

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate runs each statement in order.  Statements must be idempotent
// (CREATE TABLE IF NOT EXISTS …) because Migrate runs on every boot.
func Migrate(ctx context.Context, db *sqlx.DB, stmts []string) error {
	for i, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
