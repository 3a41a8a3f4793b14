package lifecycle

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/maryoneshop/orderflow/internal/domain"
	"github.com/maryoneshop/orderflow/internal/messaging/kafka"
	"github.com/maryoneshop/orderflow/internal/metrics"
	"github.com/maryoneshop/orderflow/internal/service/ledger"
	"github.com/maryoneshop/orderflow/internal/service/reconcile"
)

// Service — фасад операций над заказами: создание, правка состава,
// переходы статуса, возвраты, складские операции. Все складские эффекты
// проходят через Ledger, все события — через transactional outbox.
type Service struct {
	orders     domain.OrderRepository
	timeline   domain.TimelineRepository
	outbox     domain.OutboxRepository
	stock      *ledger.Ledger
	reconciler *reconcile.Engine
	logger     *log.Entry
	metrics    *metrics.EngineMetrics
}

// New создаёт сервис заказов с метриками по умолчанию.
func New(
	orders domain.OrderRepository,
	timeline domain.TimelineRepository,
	outbox domain.OutboxRepository,
	stock *ledger.Ledger,
	reconciler *reconcile.Engine,
	logger *log.Entry,
) *Service {
	return newService(orders, timeline, outbox, stock, reconciler, logger, metrics.NewEngineMetrics())
}

// NewWithoutMetrics создаёт сервис заказов без метрик (для тестов).
func NewWithoutMetrics(
	orders domain.OrderRepository,
	timeline domain.TimelineRepository,
	outbox domain.OutboxRepository,
	stock *ledger.Ledger,
	reconciler *reconcile.Engine,
	logger *log.Entry,
) *Service {
	return newService(orders, timeline, outbox, stock, reconciler, logger, nil)
}

func newService(
	orders domain.OrderRepository,
	timeline domain.TimelineRepository,
	outbox domain.OutboxRepository,
	stock *ledger.Ledger,
	reconciler *reconcile.Engine,
	logger *log.Entry,
	m *metrics.EngineMetrics,
) *Service {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Service{
		orders:     orders,
		timeline:   timeline,
		outbox:     outbox,
		stock:      stock,
		reconciler: reconciler,
		logger:     logger.WithField("component", "order_lifecycle"),
		metrics:    m,
	}
}

// ItemParams описывает позицию заказа на входе операции.
type ItemParams struct {
	ProductID  string
	VariantID  string
	Name       string
	ImageURL   string
	Qty        int32
	PriceMinor int64
}

// CreateOrderParams — параметры создания заказа.
type CreateOrderParams struct {
	CustomerID      string
	CustomerName    string
	Email           string
	Phone           string
	ShippingAddress domain.Address
	PaymentMethod   string
	ShippingMinor   int64
	FeeMinor        int64
	Items           []ItemParams
	Actor           string
}

// CreateOrder создаёт заказ в статусе pending и списывает сток под каждую
// линию одной атомарной партией записей журнала (reason=order). При
// нехватке стока заказ не создаётся и журнал не меняется.
func (s *Service) CreateOrder(params CreateOrderParams) (domain.Order, error) {
	now := time.Now().UTC()

	items := buildItems(params.Items, now)
	order := domain.Order{
		ID:                 uuid.NewString(),
		CustomerID:         params.CustomerID,
		CustomerName:       params.CustomerName,
		Email:              params.Email,
		Phone:              params.Phone,
		ShippingAddress:    params.ShippingAddress,
		Status:             domain.OrderStatusPending,
		PaymentStatus:      domain.PaymentStatusPending,
		PaymentMethod:      params.PaymentMethod,
		ReturnStatus:       domain.ReturnStatusNone,
		VerificationStatus: domain.VerificationStatusPending,
		ShippingMinor:      params.ShippingMinor,
		FeeMinor:           params.FeeMinor,
		Items:              items,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	order.RecomputeTotals()

	if errs := order.ValidateInvariants(); len(errs) > 0 {
		return domain.Order{}, joinErrors(errs)
	}

	deltas := make([]domain.StockDelta, 0, len(order.Items))
	for _, item := range order.Items {
		deltas = append(deltas, domain.StockDelta{
			SKU:    item.SKU(),
			Change: -int64(item.Qty),
			Reason: domain.StockReasonOrder,
			Note:   fmt.Sprintf("Order #%s placed", order.ID),
		})
	}
	if _, err := s.stock.ApplyDeltas(deltas, params.Actor); err != nil {
		return domain.Order{}, err
	}

	if err := s.orders.Create(order); err != nil {
		// Сток уже списан — компенсируем, иначе журнал разойдётся с заказами.
		s.compensate(order.ID, deltas, params.Actor, "order create failed")
		return domain.Order{}, fmt.Errorf("create order: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordOrderCreated()
	}
	s.emitOrderEvent(&order, kafka.EventTypeOrderCreated, domain.TimelineOrderCreated, "", map[string]interface{}{
		"total_minor": order.TotalMinor,
		"items":       len(order.Items),
	})
	s.logger.WithFields(log.Fields{
		"order_id":    order.ID,
		"items":       len(order.Items),
		"total_minor": order.TotalMinor,
	}).Info("order created")

	return order, nil
}

// EditOrderItems заменяет состав заказа, проводя разницу через складской
// журнал. Цена существующей линии не меняется; новые линии получают цену
// из запроса. При конфликте версий заказа уже применённые дельты
// компенсируются, ошибка отдаётся вызывающему.
func (s *Service) EditOrderItems(orderID string, newItems []ItemParams, actor string) (domain.Order, error) {
	order, err := s.orders.Get(orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if !order.Editable() {
		return domain.Order{}, domain.ErrOrderNotEditable
	}

	now := time.Now().UTC()
	edited := buildEditedItems(order.Items, newItems, now)

	candidate := order
	candidate.Items = edited
	candidate.RecomputeTotals()
	candidate.UpdatedAt = now
	if errs := candidate.ValidateInvariants(); len(errs) > 0 {
		return domain.Order{}, joinErrors(errs)
	}

	applied, err := s.reconciler.Reconcile(order.ID, order.Items, edited, actor)
	if err != nil {
		return domain.Order{}, err
	}

	if err := s.orders.Save(candidate); err != nil {
		s.revertReconcile(order.ID, applied, actor)
		if domain.IsVersionConflict(err) {
			return domain.Order{}, err
		}
		return domain.Order{}, fmt.Errorf("save order: %w", err)
	}
	candidate.Version++

	s.emitOrderEvent(&candidate, kafka.EventTypeOrderItemsEdited, domain.TimelineItemsEdited, "", map[string]interface{}{
		"total_minor": candidate.TotalMinor,
		"items":       len(candidate.Items),
		"deltas":      len(applied),
	})
	s.logger.WithFields(log.Fields{
		"order_id": candidate.ID,
		"deltas":   len(applied),
	}).Info("order items edited")

	return candidate, nil
}

// buildItems агрегирует входные позиции: строки с одинаковой парой
// (product, variant) складываются в одну линию.
func buildItems(params []ItemParams, now time.Time) []domain.OrderItem {
	items := make([]domain.OrderItem, 0, len(params))
	index := make(map[string]int, len(params))

	for _, p := range params {
		key := domain.SKU{ProductID: p.ProductID, VariantID: p.VariantID}.Key()
		if i, ok := index[key]; ok {
			items[i].Qty += p.Qty
			continue
		}
		index[key] = len(items)
		items = append(items, domain.OrderItem{
			ID:         uuid.NewString(),
			ProductID:  p.ProductID,
			VariantID:  p.VariantID,
			Name:       p.Name,
			ImageURL:   p.ImageURL,
			Qty:        p.Qty,
			PriceMinor: p.PriceMinor,
			CreatedAt:  now,
		})
	}
	return items
}

// buildEditedItems строит новый состав, сохраняя идентичность и цену линий,
// переживших правку: цена зафиксирована в момент заказа и не меняется.
func buildEditedItems(existing []domain.OrderItem, params []ItemParams, now time.Time) []domain.OrderItem {
	byKey := make(map[string]domain.OrderItem, len(existing))
	for _, item := range existing {
		byKey[item.SKU().Key()] = item
	}

	edited := buildItems(params, now)
	for i := range edited {
		if prev, ok := byKey[edited[i].SKU().Key()]; ok {
			edited[i].ID = prev.ID
			edited[i].PriceMinor = prev.PriceMinor
			edited[i].CreatedAt = prev.CreatedAt
		}
	}
	return edited
}

// compensate возвращает журнал к состоянию до неудачной операции.
func (s *Service) compensate(orderID string, applied []domain.StockDelta, actor, why string) {
	inverted := reconcile.Invert(applied)
	for i := range inverted {
		inverted[i].Note = fmt.Sprintf("Order #%s: %s", orderID, why)
	}
	if _, err := s.stock.ApplyDeltas(inverted, actor); err != nil {
		s.logger.WithError(err).WithField("order_id", orderID).Error("stock compensation failed")
	}
}

func (s *Service) revertReconcile(orderID string, applied []domain.StockDelta, actor string) {
	if err := s.reconciler.Revert(orderID, applied, actor); err != nil {
		s.logger.WithError(err).WithField("order_id", orderID).Error("reconcile revert failed")
	}
}

// emitOrderEvent кладёт событие заказа в outbox и в timeline.
func (s *Service) emitOrderEvent(order *domain.Order, eventType kafka.EventType, timelineType, reason string, metadata map[string]interface{}) {
	event := kafka.NewOrderEvent(eventType, order.ID, order.CustomerID, string(order.Status), metadata)
	data, err := json.Marshal(event)
	if err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": order.ID,
			"event":    eventType,
		}).Error("marshal event failed")
		return
	}

	msg := domain.OutboxMessage{
		AggregateType: kafka.AggregateOrder,
		AggregateID:   order.ID,
		EventType:     string(eventType),
		Payload:       data,
	}
	if _, err := s.outbox.Enqueue(msg); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": order.ID,
			"event":    eventType,
		}).Error("enqueue event failed")
	} else if s.metrics != nil {
		s.metrics.RecordOutboxEvent()
	}

	if s.timeline == nil {
		return
	}
	timelineEvent := domain.TimelineEvent{
		OrderID:  order.ID,
		Type:     timelineType,
		Reason:   reason,
		Occurred: time.Now().UTC(),
	}
	if err := s.timeline.Append(timelineEvent); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": order.ID,
			"event":    eventType,
		}).Warn("append timeline event failed")
	} else if s.metrics != nil {
		s.metrics.RecordTimelineEvent()
	}
}

// emitStockEvent кладёт складское событие в outbox.
func (s *Service) emitStockEvent(eventType kafka.EventType, sku domain.SKU, change, level int64, reason domain.StockReason) {
	event := kafka.NewStockEvent(eventType, sku.Key(), change, level, string(reason))
	data, err := json.Marshal(event)
	if err != nil {
		s.logger.WithError(err).WithField("sku", sku.Key()).Error("marshal stock event failed")
		return
	}

	msg := domain.OutboxMessage{
		AggregateType: kafka.AggregateStock,
		AggregateID:   sku.Key(),
		EventType:     string(eventType),
		Payload:       data,
	}
	if _, err := s.outbox.Enqueue(msg); err != nil {
		s.logger.WithError(err).WithField("sku", sku.Key()).Error("enqueue stock event failed")
	} else if s.metrics != nil {
		s.metrics.RecordOutboxEvent()
	}
}

func joinErrors(errs []error) error {
	return errors.Join(errs...)
}
