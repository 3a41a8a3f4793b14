package memory

import (
	"sync"

	"github.com/google/uuid"

	"github.com/maryoneshop/orderflow/internal/domain"
)

// verificationRepositoryInMemory — in-memory журнал попыток подтверждения.
type verificationRepositoryInMemory struct {
	mu      sync.RWMutex
	entries map[string][]domain.VerificationLogEntry
}

// NewVerificationRepository возвращает in-memory журнал верификации.
func NewVerificationRepository() domain.VerificationRepository {
	return &verificationRepositoryInMemory{
		entries: make(map[string][]domain.VerificationLogEntry),
	}
}

// Append добавляет запись в журнал заказа.
func (r *verificationRepositoryInMemory) Append(entry domain.VerificationLogEntry) (domain.VerificationLogEntry, error) {
	if entry.OrderID == "" {
		return domain.VerificationLogEntry{}, domain.ErrOrderIDRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	r.entries[entry.OrderID] = append(r.entries[entry.OrderID], entry)
	return entry, nil
}

// List возвращает записи заказа в порядке добавления.
func (r *verificationRepositoryInMemory) List(orderID string) ([]domain.VerificationLogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.entries[orderID]
	result := make([]domain.VerificationLogEntry, len(stored))
	copy(result, stored)
	return result, nil
}

var _ domain.VerificationRepository = (*verificationRepositoryInMemory)(nil)
