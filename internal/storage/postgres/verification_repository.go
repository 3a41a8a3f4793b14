package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/maryoneshop/orderflow/internal/domain"
)

type verificationRepository struct {
	db *sql.DB
}

// NewVerificationRepository создаёт PostgreSQL-реализацию журнала верификации.
func NewVerificationRepository(store *Store) domain.VerificationRepository {
	return &verificationRepository{db: store.DB()}
}

func (r *verificationRepository) Append(entry domain.VerificationLogEntry) (domain.VerificationLogEntry, error) {
	if entry.OrderID == "" {
		return domain.VerificationLogEntry{}, domain.ErrOrderIDRequired
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO verification_logs (
			id, order_id, action, outcome, note, actor, occurred_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		entry.ID, entry.OrderID, string(entry.Action), string(entry.Outcome),
		entry.Note, entry.Actor, entry.Occurred,
	)
	if err != nil {
		return domain.VerificationLogEntry{}, fmt.Errorf("insert verification log: %w", err)
	}

	return entry, nil
}

func (r *verificationRepository) List(orderID string) ([]domain.VerificationLogEntry, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, action, outcome, note, actor, occurred_at
		FROM verification_logs
		WHERE order_id = $1
		ORDER BY occurred_at ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list verification logs: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.VerificationLogEntry, 0)
	for rows.Next() {
		var entry domain.VerificationLogEntry
		var action, outcome string
		if err := rows.Scan(
			&entry.ID, &entry.OrderID, &action, &outcome,
			&entry.Note, &entry.Actor, &entry.Occurred,
		); err != nil {
			return nil, fmt.Errorf("scan verification log: %w", err)
		}
		entry.Action = domain.VerificationAction(action)
		entry.Outcome = domain.VerificationOutcome(outcome)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate verification logs: %w", err)
	}

	return entries, nil
}

var _ domain.VerificationRepository = (*verificationRepository)(nil)
