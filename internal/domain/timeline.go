package domain

import "time"

// TimelineEvent описывает событие в жизненном цикле заказа:
// создание, переходы статуса, правки состава, решение возврата.
type TimelineEvent struct {
	OrderID  string
	Type     string
	Reason   string
	Occurred time.Time
}

// Типы событий таймлайна заказа.
const (
	TimelineOrderCreated         = "order_created"
	TimelineStatusChanged        = "status_changed"
	TimelineItemsEdited          = "items_edited"
	TimelineReturnResolved       = "return_resolved"
	TimelinePaymentStatusChanged = "payment_status_changed"
	TimelineVerificationLogged   = "verification_logged"
)
