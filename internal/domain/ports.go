package domain

import "time"

// OrderFilter задаёт параметры выборки заказов.
type OrderFilter struct {
	CustomerID string
	Status     OrderStatus
	Limit      int
}

// OrderStats — агрегированная сводка по заказам (выручка, потери, зависшие деньги).
type OrderStats struct {
	Count             int
	TotalRevenueMinor int64
	PendingValueMinor int64
	TotalLossMinor    int64
}

// OrderRepository хранит заказы; Save использует оптимистическую проверку версии.
type OrderRepository interface {
	Create(order Order) error
	Get(id string) (Order, error)
	List(filter OrderFilter) ([]Order, error)
	// Save возвращает ErrOrderVersionConflict, если заказ изменился с момента чтения.
	Save(order Order) error
	Stats() (OrderStats, error)
}

// LedgerRepository хранит append-only складской журнал.
// Append присваивает записи монотонный Seq; записи никогда не меняются.
type LedgerRepository interface {
	Append(entry StockLedgerEntry) (StockLedgerEntry, error)
	ListBySKU(sku SKU) ([]StockLedgerEntry, error)
	SumBySKU(sku SKU) (int64, error)
}

// ProductStore — каталог товаров с материализованным уровнем остатка.
// Уровень меняет только складской сервис и только вместе с записью в журнал.
type ProductStore interface {
	GetStock(sku SKU) (StockInfo, error)
	SetStock(sku SKU, level int64) error
}

// VerificationRepository хранит журнал попыток подтверждения заказов.
type VerificationRepository interface {
	Append(entry VerificationLogEntry) (VerificationLogEntry, error)
	List(orderID string) ([]VerificationLogEntry, error)
}

// TimelineRepository хранит события жизненного цикла заказа.
type TimelineRepository interface {
	Append(event TimelineEvent) error
	List(orderID string) ([]TimelineEvent, error)
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// IdempotencyRepository хранит состояние обработки запросов по idempotency-key.
type IdempotencyRepository interface {
	CreateProcessing(key, requestHash string, ttlAt time.Time) (IdempotencyRecord, error)
	Get(key string) (IdempotencyRecord, error)
	MarkDone(key string, responseBody []byte, httpStatus int) error
	MarkFailed(key string, responseBody []byte, httpStatus int) error
	DeleteExpired(before time.Time, limit int) (int, error)
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
