package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/spec-kit/request-desk/internal/domain"
)

const ticketsBucket = "tickets"

type sqliteTicketRepository struct {
	db    *sql.DB
	codec SnapshotCodec
}

// NewSQLiteTicketRepository stores the ticket set as one encoded blob row.
// The payload records its codec so a later codec switch can still read it.
func NewSQLiteTicketRepository(ctx context.Context, db *sql.DB, codec SnapshotCodec) (TicketRepository, error) {
	if codec == nil {
		codec = jsonCodec{}
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS ticket_snapshots (
		bucket TEXT PRIMARY KEY,
		codec TEXT NOT NULL,
		payload BLOB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create snapshot table: %w", err)
	}
	return &sqliteTicketRepository{db: db, codec: codec}, nil
}

func (r *sqliteTicketRepository) Load(ctx context.Context) ([]domain.Ticket, error) {
	var codecName string
	var payload []byte
	err := r.db.QueryRowContext(ctx, `SELECT codec, payload FROM ticket_snapshots WHERE bucket = ?`, ticketsBucket).
		Scan(&codecName, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select snapshot: %w", err)
	}
	codec, err := NewSnapshotCodec(codecName)
	if err != nil {
		return nil, err
	}
	var snapshot ticketSnapshot
	if err := codec.Unmarshal(payload, &snapshot); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return snapshot.Tickets, nil
}

func (r *sqliteTicketRepository) Save(ctx context.Context, tickets []domain.Ticket) (retErr error) {
	payload, err := r.codec.Marshal(ticketSnapshot{Version: snapshotVersion, Tickets: tickets})
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO ticket_snapshots(bucket, codec, payload) VALUES(?, ?, ?)
		 ON CONFLICT(bucket) DO UPDATE SET codec = excluded.codec, payload = excluded.payload`,
		ticketsBucket, r.codec.Name(), payload); err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return tx.Commit()
}
