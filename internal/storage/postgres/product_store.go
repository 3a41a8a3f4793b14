package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/maryoneshop/orderflow/internal/domain"
)

type productStore struct {
	db *sql.DB
}

// NewProductStore создаёт PostgreSQL-реализацию каталога остатков.
func NewProductStore(store *Store) domain.ProductStore {
	return &productStore{db: store.DB()}
}

func (s *productStore) GetStock(sku domain.SKU) (domain.StockInfo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var info domain.StockInfo
	err := s.db.QueryRowContext(ctx, `
		SELECT stock_level, allow_backorders
		FROM products
		WHERE product_id = $1 AND variant_id = $2
	`, sku.ProductID, sku.VariantID).Scan(&info.Level, &info.AllowBackorders)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.StockInfo{}, domain.ErrSKUNotFound
		}
		return domain.StockInfo{}, fmt.Errorf("select stock: %w", err)
	}
	return info, nil
}

func (s *productStore) SetStock(sku domain.SKU, level int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET stock_level = $1, updated_at = NOW()
		WHERE product_id = $2 AND variant_id = $3
	`, level, sku.ProductID, sku.VariantID)
	if err != nil {
		return fmt.Errorf("update stock: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrSKUNotFound
	}
	return nil
}

// Seed регистрирует SKU с начальным уровнем (dev-инструменты и тесты).
func (s *productStore) Seed(sku domain.SKU, level int64, allowBackorders bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (product_id, variant_id, stock_level, allow_backorders)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (product_id, variant_id)
		DO UPDATE SET stock_level = EXCLUDED.stock_level, allow_backorders = EXCLUDED.allow_backorders
	`, sku.ProductID, sku.VariantID, level, allowBackorders)
	if err != nil {
		return fmt.Errorf("seed product: %w", err)
	}
	return nil
}

var _ domain.ProductStore = (*productStore)(nil)
