package verification

import (
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/maryoneshop/orderflow/internal/domain"
	"github.com/maryoneshop/orderflow/internal/metrics"
)

// Service ведёт журнал попыток подтверждения заказа и поддерживает
// агрегированный verificationStatus заказа: confirmed делает заказ
// verified, no_answer и wrong_number — unreachable, остальные исходы
// статус не трогают. При конфликте записей побеждает последняя.
type Service struct {
	orders  domain.OrderRepository
	entries domain.VerificationRepository
	logger  *log.Entry
	metrics *metrics.EngineMetrics
}

// New создаёт сервис верификации.
func New(orders domain.OrderRepository, entries domain.VerificationRepository, logger *log.Entry, m *metrics.EngineMetrics) *Service {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Service{
		orders:  orders,
		entries: entries,
		logger:  logger.WithField("component", "verification"),
		metrics: m,
	}
}

// Log фиксирует попытку связи с клиентом и применяет её эффект к заказу.
func (s *Service) Log(orderID string, action domain.VerificationAction, outcome domain.VerificationOutcome, note, actor string) (domain.VerificationLogEntry, error) {
	if orderID == "" {
		return domain.VerificationLogEntry{}, domain.ErrOrderIDRequired
	}
	if !action.Valid() {
		return domain.VerificationLogEntry{}, domain.ErrUnknownAction
	}
	if !outcome.Valid() {
		return domain.VerificationLogEntry{}, domain.ErrUnknownOutcome
	}

	order, err := s.orders.Get(orderID)
	if err != nil {
		return domain.VerificationLogEntry{}, err
	}

	entry := domain.VerificationLogEntry{
		ID:       uuid.NewString(),
		OrderID:  orderID,
		Action:   action,
		Outcome:  outcome,
		Note:     note,
		Actor:    actor,
		Occurred: time.Now().UTC(),
	}
	entry, err = s.entries.Append(entry)
	if err != nil {
		return domain.VerificationLogEntry{}, err
	}

	if effect, ok := outcome.StatusEffect(); ok && order.VerificationStatus != effect {
		if err := s.applyEffect(order, effect); err != nil {
			// Запись в журнале уже есть; статус догонит следующая попытка.
			s.logger.WithError(err).WithField("order_id", orderID).Warn("verification status update failed")
		}
	}

	if s.metrics != nil {
		s.metrics.RecordVerificationLog(string(outcome))
	}
	s.logger.WithFields(log.Fields{
		"order_id": orderID,
		"action":   action,
		"outcome":  outcome,
	}).Info("verification logged")

	return entry, nil
}

// List возвращает журнал попыток по заказу в порядке добавления.
func (s *Service) List(orderID string) ([]domain.VerificationLogEntry, error) {
	if orderID == "" {
		return nil, domain.ErrOrderIDRequired
	}
	return s.entries.List(orderID)
}

// applyEffect сохраняет новый verificationStatus с повтором при конфликте версий.
func (s *Service) applyEffect(order domain.Order, effect domain.VerificationStatus) error {
	const maxRetries = 3
	const baseDelay = 10 * time.Millisecond

	for attempt := 0; attempt < maxRetries; attempt++ {
		order.VerificationStatus = effect
		order.UpdatedAt = time.Now().UTC()

		err := s.orders.Save(order)
		if err == nil {
			return nil
		}
		if !domain.IsVersionConflict(err) || attempt == maxRetries-1 {
			return err
		}

		fresh, loadErr := s.orders.Get(order.ID)
		if loadErr != nil {
			return loadErr
		}
		order = fresh
		time.Sleep(baseDelay * time.Duration(1<<uint(attempt)))
	}
	return domain.ErrOrderVersionConflict
}
