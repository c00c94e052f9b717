package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"procurement_backend/internal/quotations/domain"
	"procurement_backend/platform/apperr"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Repository persists quotations with pgx.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new quotations repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create stores a quotation with its invited suppliers and lines.
func (r *Repository) Create(ctx context.Context, q domain.Quotation) (domain.Quotation, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Quotation{}, fmt.Errorf("begin create quotation: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO quotations (id, buyer_id, name, deadline, status, counter_proposal_minutes, reminder_percentage, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
		q.ID, q.BuyerID, q.Name, q.Deadline, string(q.Status), q.CounterProposalMinutes, q.ReminderPercentage, q.CreatedAt,
	)
	if err != nil {
		return domain.Quotation{}, fmt.Errorf("insert quotation: %w", err)
	}

	if len(q.SupplierIDs) > 0 {
		insert := psql.Insert("quotation_suppliers").Columns("quotation_id", "supplier_id")
		for _, supplierID := range q.SupplierIDs {
			insert = insert.Values(q.ID, supplierID)
		}
		sql, args, err := insert.Suffix("ON CONFLICT DO NOTHING").ToSql()
		if err != nil {
			return domain.Quotation{}, fmt.Errorf("build supplier insert: %w", err)
		}
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return domain.Quotation{}, fmt.Errorf("insert quotation suppliers: %w", err)
		}
	}

	if len(q.Lines) > 0 {
		insert := psql.Insert("quotation_lines").
			Columns("id", "quotation_id", "name", "quantity", "unit", "preferred_brands", "item_status",
				"delivery_date", "delivery_mismatches", "position")
		for i, line := range q.Lines {
			brands := line.PreferredBrands
			if brands == nil {
				brands = []string{}
			}
			mismatches := line.DeliveryMismatches
			if mismatches == nil {
				mismatches = []uuid.UUID{}
			}
			insert = insert.Values(line.ID, q.ID, line.Name, sq.Expr("?::numeric", line.Quantity.String()),
				string(line.Unit), brands, string(line.ItemStatus), line.DeliveryDate, mismatches, i)
		}
		sql, args, err := insert.ToSql()
		if err != nil {
			return domain.Quotation{}, fmt.Errorf("build line insert: %w", err)
		}
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return domain.Quotation{}, fmt.Errorf("insert quotation lines: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Quotation{}, fmt.Errorf("commit create quotation: %w", err)
	}
	return q, nil
}

// Get loads a quotation with suppliers and lines.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (domain.Quotation, error) {
	var (
		q         domain.Quotation
		status    string
		suppliers []string
	)
	err := r.pool.QueryRow(ctx, `
		SELECT q.id, q.buyer_id, q.name, q.deadline, q.status,
		       q.counter_proposal_minutes, q.reminder_percentage, q.created_at, q.updated_at,
		       COALESCE((SELECT array_agg(s.supplier_id::text) FROM quotation_suppliers s WHERE s.quotation_id = q.id), '{}')
		FROM quotations q
		WHERE q.id = $1`, id,
	).Scan(&q.ID, &q.BuyerID, &q.Name, &q.Deadline, &status,
		&q.CounterProposalMinutes, &q.ReminderPercentage, &q.CreatedAt, &q.UpdatedAt, &suppliers)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quotation{}, apperr.NotFound(quotationNotFoundMsg)
	}
	if err != nil {
		return domain.Quotation{}, fmt.Errorf("get quotation: %w", err)
	}
	q.Status = domain.Status(status)
	if q.SupplierIDs, err = parseIDs(suppliers); err != nil {
		return domain.Quotation{}, err
	}

	lines, err := r.listLines(ctx, id)
	if err != nil {
		return domain.Quotation{}, err
	}
	q.Lines = lines
	return q, nil
}

func (r *Repository) listLines(ctx context.Context, quotationID uuid.UUID) ([]domain.Line, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, quotation_id, name, quantity::text, unit, preferred_brands, item_status,
		       stopped_suppliers::text[], delivery_date, delivery_mismatches::text[], acknowledged_mismatches::text[]
		FROM quotation_lines
		WHERE quotation_id = $1
		ORDER BY position ASC`, quotationID)
	if err != nil {
		return nil, fmt.Errorf("list quotation lines: %w", err)
	}
	defer rows.Close()

	var lines []domain.Line
	for rows.Next() {
		var (
			line                              domain.Line
			quantity                          string
			unit, itemStatus                  string
			stopped, mismatched, acknowledged []string
		)
		if err := rows.Scan(&line.ID, &line.QuotationID, &line.Name, &quantity, &unit,
			&line.PreferredBrands, &itemStatus, &stopped, &line.DeliveryDate, &mismatched, &acknowledged); err != nil {
			return nil, fmt.Errorf("scan quotation line: %w", err)
		}
		if line.Quantity, err = decimal.NewFromString(quantity); err != nil {
			return nil, fmt.Errorf("parse line quantity: %w", err)
		}
		line.Unit = domain.Unit(unit)
		line.ItemStatus = domain.ItemStatus(itemStatus)
		if line.StoppedSuppliers, err = parseIDs(stopped); err != nil {
			return nil, err
		}
		if line.DeliveryMismatches, err = parseIDs(mismatched); err != nil {
			return nil, err
		}
		if line.AcknowledgedMismatches, err = parseIDs(acknowledged); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// TransitionStatus moves the quotation to status `to` only if its current
// status is one of from. A nil deadline keeps the current one.
func (r *Repository) TransitionStatus(ctx context.Context, id uuid.UUID, from []domain.Status, to domain.Status, deadline *time.Time) (domain.Quotation, bool, error) {
	var updated uuid.UUID
	err := r.pool.QueryRow(ctx, `
		UPDATE quotations
		SET status = $3, deadline = COALESCE($4, deadline), updated_at = now()
		WHERE id = $1 AND status = ANY($2)
		RETURNING id`,
		id, statusStrings(from), string(to), deadline,
	).Scan(&updated)
	if errors.Is(err, pgx.ErrNoRows) {
		q, getErr := r.Get(ctx, id)
		return q, false, getErr
	}
	if err != nil {
		return domain.Quotation{}, false, fmt.Errorf("transition quotation status: %w", err)
	}
	q, err := r.Get(ctx, id)
	return q, true, err
}

// ClaimClose atomically flips the status to Fechada and closes every
// non-final item in the same transaction. Only one caller gets Claimed.
func (r *Repository) ClaimClose(ctx context.Context, id uuid.UUID, from []domain.Status, now time.Time) (ClaimResult, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return ClaimResult{}, fmt.Errorf("begin claim close: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var claimed uuid.UUID
	err = tx.QueryRow(ctx, `
		UPDATE quotations
		SET status = $3, closed_at = $4, updated_at = $4
		WHERE id = $1 AND status = ANY($2)
		RETURNING id`,
		id, statusStrings(from), string(domain.StatusClosed), now,
	).Scan(&claimed)
	if errors.Is(err, pgx.ErrNoRows) {
		_ = tx.Rollback(ctx)
		q, getErr := r.Get(ctx, id)
		if getErr != nil {
			return ClaimResult{}, getErr
		}
		return ClaimResult{Claimed: false, Quotation: q}, nil
	}
	if err != nil {
		return ClaimResult{}, fmt.Errorf("claim close: %w", err)
	}

	finals := make([]string, len(domain.FinalItemStatuses))
	for i, s := range domain.FinalItemStatuses {
		finals[i] = string(s)
	}
	sql, args, err := psql.Update("quotation_lines").
		Set("item_status", string(domain.ItemClosed)).
		Set("updated_at", now).
		Where(sq.Eq{"quotation_id": id}).
		Where(sq.NotEq{"item_status": finals}).
		ToSql()
	if err != nil {
		return ClaimResult{}, fmt.Errorf("build close items: %w", err)
	}
	tag, err := tx.Exec(ctx, sql, args...)
	if err != nil {
		return ClaimResult{}, fmt.Errorf("close items: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return ClaimResult{}, fmt.Errorf("commit claim close: %w", err)
	}

	q, err := r.Get(ctx, id)
	if err != nil {
		return ClaimResult{}, err
	}
	return ClaimResult{Claimed: true, UpdatedItems: int(tag.RowsAffected()), Quotation: q}, nil
}

// RecordClosureSummary stores the closing statistics.
func (r *Repository) RecordClosureSummary(ctx context.Context, id uuid.UUID, summary ClosureSummary) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE quotations
		SET closed_by = $2, total_offers_at_close = $3, closed_items = $4, closed_at = $5
		WHERE id = $1`,
		id, string(summary.Trigger), summary.TotalOffers, summary.ClosedItems, summary.ClosedAt,
	)
	if err != nil {
		return fmt.Errorf("record closure summary: %w", err)
	}
	return nil
}

// ListExpiredOpen returns open quotations whose deadline passed.
func (r *Repository) ListExpiredOpen(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id FROM quotations
		WHERE status = $1 AND deadline <= $2
		ORDER BY deadline ASC
		LIMIT $3`, string(domain.StatusOpen), now, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired quotations: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan expired quotation: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MarkStopped adds the supplier to the line's stopped set.
func (r *Repository) MarkStopped(ctx context.Context, quotationID, productID, supplierID uuid.UUID) error {
	return r.appendToLineSet(ctx, "stopped_suppliers", quotationID, productID, supplierID)
}

// AcknowledgeMismatch records the supplier's confirmation that it delivers
// on the line's date.
func (r *Repository) AcknowledgeMismatch(ctx context.Context, quotationID, productID, supplierID uuid.UUID) error {
	return r.appendToLineSet(ctx, "acknowledged_mismatches", quotationID, productID, supplierID)
}

func (r *Repository) appendToLineSet(ctx context.Context, column string, quotationID, productID, supplierID uuid.UUID) error {
	sql, args, err := psql.Update("quotation_lines").
		Set(column, sq.Expr("array_append("+column+", ?::uuid)", supplierID.String())).
		Set("updated_at", sq.Expr("now()")).
		Where(sq.Eq{"id": productID, "quotation_id": quotationID}).
		Where(sq.Expr("NOT (?::uuid = ANY("+column+"))", supplierID.String())).
		ToSql()
	if err != nil {
		return fmt.Errorf("build %s update: %w", column, err)
	}
	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", column, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM quotation_lines WHERE id = $1 AND quotation_id = $2)`,
		productID, quotationID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("check quotation line: %w", err)
	}
	if !exists {
		return apperr.NotFound(lineNotFoundMsg)
	}
	return nil
}

func parseIDs(values []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(values))
	for _, v := range values {
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, fmt.Errorf("parse id %q: %w", v, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
