package kafka

import "time"

// EventType определяет тип события
type EventType string

const (
	// Order события
	EventTypeOrderCreated         EventType = "order.created"
	EventTypeOrderStatusChanged   EventType = "order.status_changed"
	EventTypeOrderItemsEdited     EventType = "order.items_edited"
	EventTypeOrderCancelled       EventType = "order.cancelled"
	EventTypeOrderReturnResolved  EventType = "order.return_resolved"
	EventTypePaymentStatusChanged EventType = "order.payment_status_changed"
	EventTypeOrderVerified        EventType = "order.verification_logged"

	// Stock события
	EventTypeStockAdjusted  EventType = "stock.adjusted"
	EventTypeStockRestocked EventType = "stock.restocked"
)

// Topics для Kafka
const (
	TopicOrderEvents     = "orderflow.order.events"
	TopicStockEvents     = "orderflow.stock.events"
	TopicDeadLetterQueue = "orderflow.dlq" // Dead Letter Queue для failed messages
)

// Типы агрегатов в outbox-сообщениях.
const (
	AggregateOrder = "order"
	AggregateStock = "stock"
)

// OrderEvent представляет событие заказа
type OrderEvent struct {
	EventType  EventType              `json:"event_type"`
	OrderID    string                 `json:"order_id"`
	CustomerID string                 `json:"customer_id"`
	Status     string                 `json:"status"`
	Timestamp  time.Time              `json:"timestamp"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// StockEvent представляет событие изменения остатка
type StockEvent struct {
	EventType EventType `json:"event_type"`
	SKU       string    `json:"sku"`
	Change    int64     `json:"change"`
	Level     int64     `json:"level"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// NewOrderEvent создает новое событие заказа
func NewOrderEvent(eventType EventType, orderID, customerID, status string, metadata map[string]interface{}) *OrderEvent {
	return &OrderEvent{
		EventType:  eventType,
		OrderID:    orderID,
		CustomerID: customerID,
		Status:     status,
		Timestamp:  time.Now(),
		Metadata:   metadata,
	}
}

// NewStockEvent создает новое событие изменения остатка
func NewStockEvent(eventType EventType, sku string, change, level int64, reason string) *StockEvent {
	return &StockEvent{
		EventType: eventType,
		SKU:       sku,
		Change:    change,
		Level:     level,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}
