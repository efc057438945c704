package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/bookingsaas/libs/db"
	"github.com/md-rashed-zaman/bookingsaas/services/booking-service/internal/outbox"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

type Options struct {
	// RecordEvents writes lifecycle events to the outbox alongside each change.
	// Off when nothing relays the outbox, so the table does not grow unread.
	RecordEvents bool
}

// Store is the Postgres entity store. Every method is a single statement or a
// short transaction; there are no multi-request locks.
type Store struct {
	db   db.DBTX
	opts Options
}

func NewStore(q db.DBTX, opts Options) *Store {
	return &Store{db: q, opts: opts}
}

func (s *Store) inTx(ctx context.Context, fn func(q db.DBTX) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) appendEvent(ctx context.Context, q db.DBTX, build func() (outbox.Event, error)) error {
	if !s.opts.RecordEvents {
		return nil
	}
	evt, err := build()
	if err != nil {
		return err
	}
	return outbox.Insert(ctx, q, evt)
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("storage: %s: %w", op, ErrNotFound)
	case db.IsUniqueViolation(err):
		return fmt.Errorf("storage: %s: %w", op, ErrConflict)
	}
	return fmt.Errorf("storage: %s: %w", op, err)
}
