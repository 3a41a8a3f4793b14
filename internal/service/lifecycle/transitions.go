package lifecycle

import (
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/maryoneshop/orderflow/internal/domain"
	"github.com/maryoneshop/orderflow/internal/messaging/kafka"
	"github.com/maryoneshop/orderflow/internal/service/returns"
)

// TransitionOptions — дополнительные параметры перехода статуса.
type TransitionOptions struct {
	// Courier обязателен для перехода в shipped.
	Courier string
	// Reason — необязательное пояснение (попадает в timeline).
	Reason string
}

// TransitionStatus переводит заказ в новый статус по машине состояний.
// Переход в shipped идемпотентен: повторный вызов с тем же курьером на уже
// отгруженном заказе возвращает заказ без изменений и без нового трек-номера.
// Переход в cancelled открывает возврат (returnStatus=pending) и не трогает
// сток: физическую судьбу товара фиксирует ResolveReturn.
// Конфликты версий решаются ограниченным числом повторов с backoff.
func (s *Service) TransitionStatus(orderID string, target domain.OrderStatus, opts TransitionOptions, actor string) (domain.Order, error) {
	if !target.Valid() {
		return domain.Order{}, domain.ErrUnknownStatus
	}

	const maxRetries = 3
	const baseDelay = 10 * time.Millisecond

	for attempt := 0; attempt < maxRetries; attempt++ {
		order, err := s.orders.Get(orderID)
		if err != nil {
			return domain.Order{}, err
		}

		if target == domain.OrderStatusShipped && order.Status == domain.OrderStatusShipped {
			courier := strings.TrimSpace(opts.Courier)
			if courier == "" || strings.EqualFold(courier, order.CourierName) {
				return order, nil
			}
			if s.metrics != nil {
				s.metrics.RecordInvalidTransition()
			}
			return domain.Order{}, fmt.Errorf("%w: order already shipped via %s", domain.ErrInvalidTransition, order.CourierName)
		}

		if !domain.CanTransition(order.Status, target) {
			if s.metrics != nil {
				s.metrics.RecordInvalidTransition()
			}
			return domain.Order{}, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, order.Status, target)
		}

		from := order.Status
		switch target {
		case domain.OrderStatusShipped:
			courier := strings.TrimSpace(opts.Courier)
			if courier == "" {
				return domain.Order{}, domain.ErrCourierRequired
			}
			order.CourierName = courier
			if order.TrackingNumber == "" {
				order.TrackingNumber = generateTracking(courier, order.ID)
			}
		case domain.OrderStatusCancelled:
			order.ReturnStatus = domain.ReturnStatusPending
		}
		order.Status = target
		order.UpdatedAt = time.Now().UTC()

		if err := s.orders.Save(order); err != nil {
			if domain.IsVersionConflict(err) && attempt < maxRetries-1 {
				s.logger.WithFields(log.Fields{
					"order_id": order.ID,
					"attempt":  attempt + 1,
				}).Warn("version conflict detected, retrying")
				time.Sleep(baseDelay * time.Duration(1<<uint(attempt)))
				continue
			}
			return domain.Order{}, err
		}
		order.Version++

		if s.metrics != nil {
			s.metrics.RecordStatusTransition(string(target))
			if target == domain.OrderStatusCancelled {
				s.metrics.PendingReturnOpened()
			}
		}

		eventType := kafka.EventTypeOrderStatusChanged
		if target == domain.OrderStatusCancelled {
			eventType = kafka.EventTypeOrderCancelled
		}
		s.emitOrderEvent(&order, eventType, domain.TimelineStatusChanged, opts.Reason, map[string]interface{}{
			"from": string(from),
			"to":   string(target),
		})
		s.logger.WithFields(log.Fields{
			"order_id": order.ID,
			"from":     from,
			"to":       target,
		}).Info("order status changed")

		return order, nil
	}

	return domain.Order{}, domain.ErrOrderVersionConflict
}

// ResolveReturn решает судьбу возврата отменённого заказа: returned
// возвращает каждую линию на склад и фиксирует потерю в размере доставки,
// lost оставляет склад как есть и фиксирует потерю в полную сумму заказа.
// Решение одноразовое.
func (s *Service) ResolveReturn(orderID string, action domain.ReturnStatus, actor string) (domain.Order, error) {
	order, err := s.orders.Get(orderID)
	if err != nil {
		return domain.Order{}, err
	}

	resolution, err := returns.Resolve(order, action)
	if err != nil {
		return domain.Order{}, err
	}

	if len(resolution.Restock) > 0 {
		if _, err := s.stock.ApplyDeltas(resolution.Restock, actor); err != nil {
			return domain.Order{}, err
		}
	}

	order.ReturnStatus = resolution.Status
	order.LossAmountMinor = resolution.LossMinor
	order.UpdatedAt = time.Now().UTC()

	if err := s.orders.Save(order); err != nil {
		s.compensate(order.ID, resolution.Restock, actor, "return resolution failed")
		if domain.IsVersionConflict(err) {
			return domain.Order{}, err
		}
		return domain.Order{}, fmt.Errorf("save order: %w", err)
	}
	order.Version++

	if s.metrics != nil {
		s.metrics.RecordReturnResolution(string(resolution.Status))
		s.metrics.PendingReturnClosed()
	}
	s.emitOrderEvent(&order, kafka.EventTypeOrderReturnResolved, domain.TimelineReturnResolved, string(resolution.Status), map[string]interface{}{
		"resolution": string(resolution.Status),
		"loss_minor": resolution.LossMinor,
		"restocked":  len(resolution.Restock),
	})
	s.logger.WithFields(log.Fields{
		"order_id":   order.ID,
		"resolution": resolution.Status,
		"loss_minor": resolution.LossMinor,
	}).Info("return resolved")

	return order, nil
}

// SetPaymentStatus меняет статус оплаты; он живёт отдельно от машины исполнения.
func (s *Service) SetPaymentStatus(orderID string, status domain.PaymentStatus, actor string) (domain.Order, error) {
	if !status.Valid() {
		return domain.Order{}, domain.ErrUnknownStatus
	}

	order, err := s.orders.Get(orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if order.PaymentStatus == status {
		return order, nil
	}

	order.PaymentStatus = status
	order.UpdatedAt = time.Now().UTC()
	if err := s.orders.Save(order); err != nil {
		return domain.Order{}, err
	}
	order.Version++

	s.emitOrderEvent(&order, kafka.EventTypePaymentStatusChanged, domain.TimelinePaymentStatusChanged, string(status), map[string]interface{}{
		"payment_status": string(status),
	})

	return order, nil
}
