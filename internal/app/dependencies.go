package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/maryoneshop/orderflow/internal/domain"
	"github.com/maryoneshop/orderflow/internal/storage/memory"
	"github.com/maryoneshop/orderflow/internal/storage/postgres"
)

// Dependencies содержит хранилища приложения. Выбор реализации определяется
// конфигурацией: при заданном DSN используется PostgreSQL, иначе in-memory.
type Dependencies struct {
	Orders       domain.OrderRepository
	Ledger       domain.LedgerRepository
	Products     domain.ProductStore
	Verification domain.VerificationRepository
	Timeline     domain.TimelineRepository
	Outbox       domain.OutboxRepository
	Idempotency  domain.IdempotencyRepository

	store *Store
}

// Store хранит ссылку на PostgreSQL-подключение для health-check и закрытия.
type Store struct {
	pg *postgres.Store
}

// Ping проверяет доступность базы; для in-memory конфигурации всегда nil.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.pg == nil {
		return nil
	}
	return s.pg.Ping(ctx)
}

func (s *Store) Close() error {
	if s == nil || s.pg == nil {
		return nil
	}
	return s.pg.Close()
}

// Store возвращает обёртку над подключением к базе (nil-safe).
func (d *Dependencies) Store() *Store { return d.store }

func (d *Dependencies) Close() error { return d.store.Close() }

// NewDependencies инициализирует хранилища согласно конфигурации.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	if cfg.PostgresDSN == "" {
		logger.Info("postgres DSN is not set, using in-memory storage")
		return &Dependencies{
			Orders:       memory.NewOrderRepository(),
			Ledger:       memory.NewLedgerRepository(),
			Products:     memory.NewProductStore(),
			Verification: memory.NewVerificationRepository(),
			Timeline:     memory.NewTimelineRepository(),
			Outbox:       memory.NewOutboxRepository(),
			Idempotency:  memory.NewIdempotencyRepository(),
			store:        &Store{},
		}, nil
	}

	store, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	logger.Info("postgres storage initialized")

	return &Dependencies{
		Orders:       postgres.NewOrderRepository(store),
		Ledger:       postgres.NewLedgerRepository(store),
		Products:     postgres.NewProductStore(store),
		Verification: postgres.NewVerificationRepository(store),
		Timeline:     postgres.NewTimelineRepository(store),
		Outbox:       postgres.NewOutboxRepository(store),
		Idempotency:  postgres.NewIdempotencyRepository(store),
		store:        &Store{pg: store},
	}, nil
}
