package domain

import "time"

// VerificationStatus — агрегированный статус подтверждения заказа клиентом.
type VerificationStatus string

const (
	VerificationStatusPending     VerificationStatus = "pending"
	VerificationStatusVerified    VerificationStatus = "verified"
	VerificationStatusUnreachable VerificationStatus = "unreachable"
)

// VerificationAction — способ связи с клиентом.
type VerificationAction string

const (
	VerificationActionCall    VerificationAction = "call"
	VerificationActionMessage VerificationAction = "message"
	VerificationActionEmail   VerificationAction = "email"
)

// VerificationOutcome — исход попытки связи.
type VerificationOutcome string

const (
	VerificationOutcomeConfirmed   VerificationOutcome = "confirmed"
	VerificationOutcomeNoAnswer    VerificationOutcome = "no_answer"
	VerificationOutcomeBusy        VerificationOutcome = "busy"
	VerificationOutcomeWrongNumber VerificationOutcome = "wrong_number"
	VerificationOutcomeFollowUp    VerificationOutcome = "follow_up"
)

// VerificationLogEntry — запись журнала попыток подтверждения заказа.
type VerificationLogEntry struct {
	ID       string
	OrderID  string
	Action   VerificationAction
	Outcome  VerificationOutcome
	Note     string
	Actor    string
	Occurred time.Time
}

// Valid проверяет, что способ связи относится к поддерживаемым значениям.
func (a VerificationAction) Valid() bool {
	switch a {
	case VerificationActionCall, VerificationActionMessage, VerificationActionEmail:
		return true
	default:
		return false
	}
}

// Valid проверяет, что исход относится к поддерживаемым значениям.
func (o VerificationOutcome) Valid() bool {
	switch o {
	case VerificationOutcomeConfirmed, VerificationOutcomeNoAnswer, VerificationOutcomeBusy,
		VerificationOutcomeWrongNumber, VerificationOutcomeFollowUp:
		return true
	default:
		return false
	}
}

// StatusEffect возвращает статус подтверждения, который влечёт данный исход.
// Исходы без эффекта (busy, follow_up) статус заказа не трогают;
// при конфликте побеждает последняя запись.
func (o VerificationOutcome) StatusEffect() (VerificationStatus, bool) {
	switch o {
	case VerificationOutcomeConfirmed:
		return VerificationStatusVerified, true
	case VerificationOutcomeNoAnswer, VerificationOutcomeWrongNumber:
		return VerificationStatusUnreachable, true
	default:
		return "", false
	}
}
