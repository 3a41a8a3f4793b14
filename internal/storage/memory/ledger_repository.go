package memory

import (
	"sync"

	"github.com/google/uuid"

	"github.com/maryoneshop/orderflow/internal/domain"
)

// ledgerRepositoryInMemory — in-memory реализация append-only складского журнала.
type ledgerRepositoryInMemory struct {
	mu      sync.RWMutex
	entries map[string][]domain.StockLedgerEntry
	seq     int64
}

// NewLedgerRepository возвращает in-memory журнал для локальной разработки и тестов.
func NewLedgerRepository() domain.LedgerRepository {
	return &ledgerRepositoryInMemory{
		entries: make(map[string][]domain.StockLedgerEntry),
	}
}

// Append добавляет запись, присваивая ей глобально монотонный Seq.
func (r *ledgerRepositoryInMemory) Append(entry domain.StockLedgerEntry) (domain.StockLedgerEntry, error) {
	if errs := entry.Validate(); len(errs) > 0 {
		return domain.StockLedgerEntry{}, errs[0]
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	r.seq++
	entry.Seq = r.seq

	key := entry.SKU.Key()
	r.entries[key] = append(r.entries[key], entry)
	return entry, nil
}

// ListBySKU возвращает записи SKU в порядке добавления.
func (r *ledgerRepositoryInMemory) ListBySKU(sku domain.SKU) ([]domain.StockLedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.entries[sku.Key()]
	result := make([]domain.StockLedgerEntry, len(stored))
	copy(result, stored)
	return result, nil
}

// SumBySKU возвращает бегущую сумму журнала по SKU.
func (r *ledgerRepositoryInMemory) SumBySKU(sku domain.SKU) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sum int64
	for _, entry := range r.entries[sku.Key()] {
		sum += entry.ChangeAmount
	}
	return sum, nil
}

var _ domain.LedgerRepository = (*ledgerRepositoryInMemory)(nil)
