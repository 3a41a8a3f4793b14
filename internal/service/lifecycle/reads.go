package lifecycle

import "github.com/maryoneshop/orderflow/internal/domain"

// GetOrder возвращает заказ вместе с его таймлайном.
func (s *Service) GetOrder(orderID string) (domain.Order, []domain.TimelineEvent, error) {
	order, err := s.orders.Get(orderID)
	if err != nil {
		return domain.Order{}, nil, err
	}

	var events []domain.TimelineEvent
	if s.timeline != nil {
		events, err = s.timeline.List(orderID)
		if err != nil {
			s.logger.WithError(err).WithField("order_id", orderID).Warn("timeline read failed")
			events = nil
		}
	}
	return order, events, nil
}

// ListOrders возвращает заказы по фильтру.
func (s *Service) ListOrders(filter domain.OrderFilter) ([]domain.Order, error) {
	return s.orders.List(filter)
}

// Stats возвращает сводку по заказам: выручка, зависшие деньги, потери.
func (s *Service) Stats() (domain.OrderStats, error) {
	return s.orders.Stats()
}
