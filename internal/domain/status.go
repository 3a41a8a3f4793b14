package domain

// orderStatusTransitions задаёт разрешённые переходы машины статусов.
// Линейный счастливый путь pending → processing → shipped → delivered;
// отмена возможна только до отгрузки.
var orderStatusTransitions = map[OrderStatus]map[OrderStatus]bool{
	OrderStatusPending: {
		OrderStatusProcessing: true,
		OrderStatusCancelled:  true,
	},
	OrderStatusProcessing: {
		OrderStatusShipped:   true,
		OrderStatusCancelled: true,
	},
	OrderStatusShipped: {
		OrderStatusDelivered: true,
	},
	OrderStatusDelivered: {},
	OrderStatusCancelled: {},
}

// CanTransition сообщает, разрешён ли переход из статуса from в статус to.
func CanTransition(from, to OrderStatus) bool {
	next, ok := orderStatusTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

// Valid проверяет, что статус заказа относится к поддерживаемым значениям.
func (s OrderStatus) Valid() bool {
	_, ok := orderStatusTransitions[s]
	return ok
}

// ParseOrderStatus валидирует внешнее значение статуса на границе системы.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	s := OrderStatus(raw)
	if !s.Valid() {
		return "", ErrUnknownStatus
	}
	return s, nil
}
