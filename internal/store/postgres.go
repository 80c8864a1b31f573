package store

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const Table = "payment_snapshots"

const schema = `
CREATE TABLE IF NOT EXISTS payment_snapshots (
	seq         BIGSERIAL PRIMARY KEY,
	kind        TEXT NOT NULL,
	resource_id TEXT NOT NULL,
	payment_id  TEXT NOT NULL DEFAULT '',
	method      TEXT NOT NULL,
	body        JSONB,
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS payment_snapshots_payment_idx ON payment_snapshots (payment_id);`

type PostgresJournal struct {
	Db *pgxpool.Pool
}

func NewPostgresJournal(connString string) (*PostgresJournal, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &PostgresJournal{Db: pool}, nil
}

func (j *PostgresJournal) Close() {
	j.Db.Close()
}

// EnsureSchema creates the snapshot table when missing.
func (j *PostgresJournal) EnsureSchema(ctx context.Context) error {
	_, err := j.Db.Exec(ctx, schema)
	return err
}

func (j *PostgresJournal) Record(ctx context.Context, s Snapshot) error {
	if s.RecordedAt.IsZero() {
		s.RecordedAt = time.Now().UTC()
	}
	_, err := j.Db.Exec(ctx,
		"INSERT INTO payment_snapshots (kind, resource_id, payment_id, method, body, recorded_at) VALUES ($1, $2, $3, $4, $5, $6)",
		s.Row()...)
	return err
}

// History retrieves the snapshots of a payment and its transactions.
func (j *PostgresJournal) History(ctx context.Context, paymentID string) ([]Snapshot, error) {
	rows, err := j.Db.Query(ctx,
		`SELECT kind, resource_id, payment_id, method, body, recorded_at FROM payment_snapshots
		 WHERE payment_id = $1 OR (kind = 'payment' AND resource_id = $1) ORDER BY seq`,
		paymentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var s Snapshot
		if err := rows.Scan(&s.Kind, &s.ID, &s.PaymentID, &s.Method, &s.Body, &s.RecordedAt); err != nil {
			log.Printf("Error scanning snapshot: %v", err)
			continue
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}
