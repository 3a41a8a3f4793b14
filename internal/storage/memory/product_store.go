package memory

import (
	"sync"

	"github.com/maryoneshop/orderflow/internal/domain"
)

// ProductStore — in-memory каталог товаров с уровнями остатков.
// Экспортируется конкретным типом ради Seed в тестах и dev-режиме.
type ProductStore struct {
	mu    sync.RWMutex
	items map[string]domain.StockInfo
}

// NewProductStore возвращает пустой каталог.
func NewProductStore() *ProductStore {
	return &ProductStore{
		items: make(map[string]domain.StockInfo),
	}
}

// Seed регистрирует SKU с начальным уровнем остатка.
func (s *ProductStore) Seed(sku domain.SKU, level int64, allowBackorders bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[sku.Key()] = domain.StockInfo{
		Level:           level,
		AllowBackorders: allowBackorders,
	}
}

// GetStock возвращает состояние SKU или ErrSKUNotFound.
func (s *ProductStore) GetStock(sku domain.SKU) (domain.StockInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.items[sku.Key()]
	if !ok {
		return domain.StockInfo{}, domain.ErrSKUNotFound
	}
	return info, nil
}

// SetStock обновляет материализованный уровень SKU.
func (s *ProductStore) SetStock(sku domain.SKU, level int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, ok := s.items[sku.Key()]
	if !ok {
		return domain.ErrSKUNotFound
	}
	info.Level = level
	s.items[sku.Key()] = info
	return nil
}

var _ domain.ProductStore = (*ProductStore)(nil)
