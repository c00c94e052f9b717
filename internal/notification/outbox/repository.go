// Package outbox persists notification intents so they are delivered after
// the request that produced them has returned.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Status string

const (
	StatusPending        Status = "pending"
	StatusEnqueued       Status = "enqueued"
	StatusProcessing     Status = "processing"
	StatusSucceeded      Status = "succeeded"
	StatusFailed         Status = "failed"
	errRepoNotConfigured        = "outbox repository not configured"
)

const recordColumns = `id, buyer_id, kind, recipient_id, payload, run_at, status, attempts`

type Record struct {
	ID          uuid.UUID
	BuyerID     uuid.UUID
	Kind        string
	RecipientID uuid.UUID
	Payload     json.RawMessage
	RunAt       time.Time
	Status      Status
	Attempts    int
}

type InsertParams struct {
	BuyerID     uuid.UUID
	Kind        string
	RecipientID uuid.UUID
	Payload     any
	RunAt       time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, p InsertParams) (uuid.UUID, error) {
	if r == nil || r.pool == nil {
		return uuid.Nil, errors.New(errRepoNotConfigured)
	}
	if p.BuyerID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("buyerId is required")
	}
	if p.RecipientID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("recipientId is required")
	}
	if p.Kind == "" {
		return uuid.Nil, fmt.Errorf("kind is required")
	}
	if p.RunAt.IsZero() {
		p.RunAt = time.Now().UTC()
	}

	payloadBytes, err := json.Marshal(p.Payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal payload: %w", err)
	}

	var id uuid.UUID
	err = r.pool.QueryRow(ctx,
		`INSERT INTO notification_outbox (buyer_id, kind, recipient_id, payload, run_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		p.BuyerID, p.Kind, p.RecipientID, payloadBytes, p.RunAt,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Record, error) {
	if r == nil || r.pool == nil {
		return Record{}, errors.New(errRepoNotConfigured)
	}
	return scanRecord(r.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM notification_outbox WHERE id = $1`, id))
}

// ListByRecipient returns a page of the rows addressed to recipientID, newest
// first, and the total number of such rows.
func (r *Repository) ListByRecipient(ctx context.Context, recipientID uuid.UUID, limit, offset int) ([]Record, int, error) {
	if r == nil || r.pool == nil {
		return nil, 0, errors.New(errRepoNotConfigured)
	}

	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notification_outbox WHERE recipient_id = $1`, recipientID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+recordColumns+`
		 FROM notification_outbox
		 WHERE recipient_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		recipientID, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]Record, 0, limit)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rec)
	}
	return items, total, rows.Err()
}

// ClaimPending moves up to limit due rows to enqueued and returns them.
// Concurrent dispatchers never claim the same row.
func (r *Repository) ClaimPending(ctx context.Context, now time.Time, limit int) ([]Record, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New(errRepoNotConfigured)
	}
	if limit < 1 {
		limit = 50
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `WITH cte AS (
		SELECT id
		FROM notification_outbox
		WHERE status = 'pending' AND run_at <= $2
		ORDER BY run_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	)
	UPDATE notification_outbox o
	SET status = 'enqueued', updated_at = now()
	FROM cte
	WHERE o.id = cte.id
	RETURNING o.id, o.buyer_id, o.kind, o.recipient_id, o.payload, o.run_at, o.status, o.attempts`, limit, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return results, nil
}

// MarkPending returns a row to the queue, to run again at runAt.
func (r *Repository) MarkPending(ctx context.Context, id uuid.UUID, runAt time.Time, lastError *string) error {
	if r == nil || r.pool == nil {
		return errors.New(errRepoNotConfigured)
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE notification_outbox
		 SET status = 'pending', run_at = $2, last_error = $3, updated_at = now()
		 WHERE id = $1`,
		id, runAt, lastError,
	)
	return err
}

func (r *Repository) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	if r == nil || r.pool == nil {
		return errors.New(errRepoNotConfigured)
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE notification_outbox
		 SET status = 'processing', attempts = attempts + 1, updated_at = now()
		 WHERE id = $1`,
		id,
	)
	return err
}

func (r *Repository) MarkSucceeded(ctx context.Context, id uuid.UUID) error {
	if r == nil || r.pool == nil {
		return errors.New(errRepoNotConfigured)
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE notification_outbox
		 SET status = 'succeeded', last_error = NULL, updated_at = now()
		 WHERE id = $1`,
		id,
	)
	return err
}

func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error {
	if r == nil || r.pool == nil {
		return errors.New(errRepoNotConfigured)
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE notification_outbox
		 SET status = 'failed', last_error = $2, updated_at = now()
		 WHERE id = $1`,
		id, lastError,
	)
	return err
}

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	var status string
	if err := row.Scan(&rec.ID, &rec.BuyerID, &rec.Kind, &rec.RecipientID, &rec.Payload, &rec.RunAt, &status, &rec.Attempts); err != nil {
		return Record{}, err
	}
	rec.Status = Status(status)
	return rec, nil
}
