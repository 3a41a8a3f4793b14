package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/maryoneshop/orderflow/internal/domain"
)

type ledgerRepository struct {
	db *sql.DB
}

// NewLedgerRepository создаёт PostgreSQL-реализацию складского журнала.
// Таблица append-only: записи только вставляются, Seq присваивает BIGSERIAL.
func NewLedgerRepository(store *Store) domain.LedgerRepository {
	return &ledgerRepository{db: store.DB()}
}

func (r *ledgerRepository) Append(entry domain.StockLedgerEntry) (domain.StockLedgerEntry, error) {
	if errs := entry.Validate(); len(errs) > 0 {
		return domain.StockLedgerEntry{}, errs[0]
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO stock_ledger (
			id, product_id, variant_id, change_amount, reason, note, actor, occurred_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING seq
	`,
		entry.ID, entry.SKU.ProductID, entry.SKU.VariantID,
		entry.ChangeAmount, string(entry.Reason), entry.Note, entry.Actor, entry.Occurred,
	).Scan(&entry.Seq)
	if err != nil {
		return domain.StockLedgerEntry{}, fmt.Errorf("insert ledger entry: %w", err)
	}

	return entry, nil
}

func (r *ledgerRepository) ListBySKU(sku domain.SKU) ([]domain.StockLedgerEntry, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, variant_id, change_amount, reason, note, actor, seq, occurred_at
		FROM stock_ledger
		WHERE product_id = $1 AND variant_id = $2
		ORDER BY seq ASC
	`, sku.ProductID, sku.VariantID)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.StockLedgerEntry, 0)
	for rows.Next() {
		var entry domain.StockLedgerEntry
		var reason string
		if err := rows.Scan(
			&entry.ID, &entry.SKU.ProductID, &entry.SKU.VariantID,
			&entry.ChangeAmount, &reason, &entry.Note, &entry.Actor, &entry.Seq, &entry.Occurred,
		); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entry.Reason = domain.StockReason(reason)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}

	return entries, nil
}

func (r *ledgerRepository) SumBySKU(sku domain.SKU) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var sum int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(change_amount), 0)
		FROM stock_ledger
		WHERE product_id = $1 AND variant_id = $2
	`, sku.ProductID, sku.VariantID).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum ledger entries: %w", err)
	}
	return sum, nil
}

var _ domain.LedgerRepository = (*ledgerRepository)(nil)
