package lifecycle_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/maryoneshop/orderflow/internal/domain"
	"github.com/maryoneshop/orderflow/internal/service/lifecycle"
)

func TestTransitionStatus_HappyPath(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "p1", "", 10)
	order := f.createOrder(t, lifecycle.ItemParams{ProductID: "p1", Qty: 1, PriceMinor: 100})

	order, err := f.svc.TransitionStatus(order.ID, domain.OrderStatusProcessing, lifecycle.TransitionOptions{}, "admin")
	if err != nil {
		t.Fatalf("to processing failed: %v", err)
	}

	order, err = f.svc.TransitionStatus(order.ID, domain.OrderStatusShipped, lifecycle.TransitionOptions{Courier: "pathao"}, "admin")
	if err != nil {
		t.Fatalf("to shipped failed: %v", err)
	}
	if order.CourierName != "pathao" {
		t.Fatalf("expected courier pathao, got %s", order.CourierName)
	}
	if !strings.HasPrefix(order.TrackingNumber, "PTH-") {
		t.Fatalf("expected PTH- tracking prefix, got %s", order.TrackingNumber)
	}
	if !strings.HasSuffix(order.TrackingNumber, order.ID[len(order.ID)-8:]) {
		t.Fatalf("tracking %s must end with order id suffix", order.TrackingNumber)
	}

	order, err = f.svc.TransitionStatus(order.ID, domain.OrderStatusDelivered, lifecycle.TransitionOptions{}, "admin")
	if err != nil {
		t.Fatalf("to delivered failed: %v", err)
	}
	if !order.IsTerminal() {
		t.Fatal("delivered order must be terminal")
	}
}

func TestTransitionStatus_InvalidJump(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "p1", "", 10)
	order := f.createOrder(t, lifecycle.ItemParams{ProductID: "p1", Qty: 1, PriceMinor: 100})

	_, err := f.svc.TransitionStatus(order.ID, domain.OrderStatusDelivered, lifecycle.TransitionOptions{}, "admin")
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	stored, getErr := f.orders.Get(order.ID)
	if getErr != nil {
		t.Fatalf("get failed: %v", getErr)
	}
	if stored.Status != domain.OrderStatusPending {
		t.Fatalf("rejected transition must not change status, got %s", stored.Status)
	}
}

func TestTransitionStatus_UnknownStatus(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "p1", "", 10)
	order := f.createOrder(t, lifecycle.ItemParams{ProductID: "p1", Qty: 1, PriceMinor: 100})

	if _, err := f.svc.TransitionStatus(order.ID, "beamed_up", lifecycle.TransitionOptions{}, "admin"); !errors.Is(err, domain.ErrUnknownStatus) {
		t.Fatalf("expected ErrUnknownStatus, got %v", err)
	}
}

func TestTransitionStatus_ShipRequiresCourier(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "p1", "", 10)
	order := f.createOrder(t, lifecycle.ItemParams{ProductID: "p1", Qty: 1, PriceMinor: 100})

	if _, err := f.svc.TransitionStatus(order.ID, domain.OrderStatusProcessing, lifecycle.TransitionOptions{}, "admin"); err != nil {
		t.Fatalf("to processing failed: %v", err)
	}

	_, err := f.svc.TransitionStatus(order.ID, domain.OrderStatusShipped, lifecycle.TransitionOptions{}, "admin")
	if !errors.Is(err, domain.ErrCourierRequired) {
		t.Fatalf("expected ErrCourierRequired, got %v", err)
	}
}

func TestTransitionStatus_ShipIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "p1", "", 10)
	order := f.createOrder(t, lifecycle.ItemParams{ProductID: "p1", Qty: 1, PriceMinor: 100})

	if _, err := f.svc.TransitionStatus(order.ID, domain.OrderStatusProcessing, lifecycle.TransitionOptions{}, "admin"); err != nil {
		t.Fatalf("to processing failed: %v", err)
	}
	shipped, err := f.svc.TransitionStatus(order.ID, domain.OrderStatusShipped, lifecycle.TransitionOptions{Courier: "redx"}, "admin")
	if err != nil {
		t.Fatalf("to shipped failed: %v", err)
	}

	// Повтор с тем же курьером — no-op с тем же трек-номером.
	again, err := f.svc.TransitionStatus(order.ID, domain.OrderStatusShipped, lifecycle.TransitionOptions{Courier: "redx"}, "admin")
	if err != nil {
		t.Fatalf("repeat ship failed: %v", err)
	}
	if again.TrackingNumber != shipped.TrackingNumber {
		t.Fatalf("tracking changed on repeat: %s vs %s", again.TrackingNumber, shipped.TrackingNumber)
	}
	if again.Version != shipped.Version {
		t.Fatalf("repeat ship must not bump version: %d vs %d", again.Version, shipped.Version)
	}

	// Повтор без курьера — тоже no-op.
	if _, err := f.svc.TransitionStatus(order.ID, domain.OrderStatusShipped, lifecycle.TransitionOptions{}, "admin"); err != nil {
		t.Fatalf("courierless repeat ship failed: %v", err)
	}

	// Другой курьер — конфликт.
	if _, err := f.svc.TransitionStatus(order.ID, domain.OrderStatusShipped, lifecycle.TransitionOptions{Courier: "steadfast"}, "admin"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for courier change, got %v", err)
	}
}

func TestTransitionStatus_CancelOpensReturnWithoutRestock(t *testing.T) {
	f := newFixture(t)
	sku := f.seed(t, "p1", "", 10)
	order := f.createOrder(t, lifecycle.ItemParams{ProductID: "p1", Qty: 2, PriceMinor: 500})

	cancelled, err := f.svc.TransitionStatus(order.ID, domain.OrderStatusCancelled, lifecycle.TransitionOptions{Reason: "customer asked"}, "admin")
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.Status != domain.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}
	if cancelled.ReturnStatus != domain.ReturnStatusPending {
		t.Fatalf("expected return pending, got %s", cancelled.ReturnStatus)
	}
	if cancelled.IsTerminal() {
		t.Fatal("cancelled order with open return is not terminal")
	}

	// Сток не трогаем до решения возврата.
	if got := f.level(t, sku); got != 8 {
		t.Fatalf("cancel must not restock, expected 8, got %d", got)
	}
	entries, err := f.stock.History(sku)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("cancel must not write ledger entries, got %+v", entries)
	}
}

func TestResolveReturn_Returned(t *testing.T) {
	f := newFixture(t)
	sku := f.seed(t, "p1", "", 10)
	order := f.createOrder(t, lifecycle.ItemParams{ProductID: "p1", Qty: 2, PriceMinor: 500})

	if _, err := f.svc.TransitionStatus(order.ID, domain.OrderStatusCancelled, lifecycle.TransitionOptions{}, "admin"); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	resolved, err := f.svc.ResolveReturn(order.ID, domain.ReturnStatusReturned, "admin")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved.ReturnStatus != domain.ReturnStatusReturned {
		t.Fatalf("expected returned, got %s", resolved.ReturnStatus)
	}
	if resolved.LossAmountMinor != resolved.ShippingMinor {
		t.Fatalf("expected loss %d, got %d", resolved.ShippingMinor, resolved.LossAmountMinor)
	}
	if !resolved.IsTerminal() {
		t.Fatal("resolved return makes the order terminal")
	}

	if got := f.level(t, sku); got != 10 {
		t.Fatalf("expected full restock to 10, got %d", got)
	}
	entries, err := f.stock.History(sku)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	last := entries[len(entries)-1]
	if last.Reason != domain.StockReasonReturn || last.ChangeAmount != 2 {
		t.Fatalf("expected +2 return entry, got %+v", last)
	}
}

func TestResolveReturn_Lost(t *testing.T) {
	f := newFixture(t)
	sku := f.seed(t, "p1", "", 10)
	order := f.createOrder(t, lifecycle.ItemParams{ProductID: "p1", Qty: 2, PriceMinor: 500})

	if _, err := f.svc.TransitionStatus(order.ID, domain.OrderStatusCancelled, lifecycle.TransitionOptions{}, "admin"); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	resolved, err := f.svc.ResolveReturn(order.ID, domain.ReturnStatusLost, "admin")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved.LossAmountMinor != resolved.TotalMinor {
		t.Fatalf("expected loss %d, got %d", resolved.TotalMinor, resolved.LossAmountMinor)
	}
	if got := f.level(t, sku); got != 8 {
		t.Fatalf("lost resolution must not restock, got %d", got)
	}
}

func TestResolveReturn_OneShot(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "p1", "", 10)
	order := f.createOrder(t, lifecycle.ItemParams{ProductID: "p1", Qty: 1, PriceMinor: 100})

	if _, err := f.svc.TransitionStatus(order.ID, domain.OrderStatusCancelled, lifecycle.TransitionOptions{}, "admin"); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if _, err := f.svc.ResolveReturn(order.ID, domain.ReturnStatusReturned, "admin"); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	if _, err := f.svc.ResolveReturn(order.ID, domain.ReturnStatusLost, "admin"); !errors.Is(err, domain.ErrAlreadyResolved) {
		t.Fatalf("expected ErrAlreadyResolved, got %v", err)
	}
}

func TestResolveReturn_RequiresCancelledOrder(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "p1", "", 10)
	order := f.createOrder(t, lifecycle.ItemParams{ProductID: "p1", Qty: 1, PriceMinor: 100})

	if _, err := f.svc.ResolveReturn(order.ID, domain.ReturnStatusReturned, "admin"); !errors.Is(err, domain.ErrNotPendingReturn) {
		t.Fatalf("expected ErrNotPendingReturn, got %v", err)
	}
}

func TestSetPaymentStatus(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "p1", "", 10)
	order := f.createOrder(t, lifecycle.ItemParams{ProductID: "p1", Qty: 1, PriceMinor: 100})

	paid, err := f.svc.SetPaymentStatus(order.ID, domain.PaymentStatusPaid, "admin")
	if err != nil {
		t.Fatalf("set payment failed: %v", err)
	}
	if paid.PaymentStatus != domain.PaymentStatusPaid {
		t.Fatalf("expected paid, got %s", paid.PaymentStatus)
	}

	// Повтор того же статуса — no-op.
	again, err := f.svc.SetPaymentStatus(order.ID, domain.PaymentStatusPaid, "admin")
	if err != nil {
		t.Fatalf("repeat set payment failed: %v", err)
	}
	if again.Version != paid.Version {
		t.Fatalf("no-op must not bump version: %d vs %d", again.Version, paid.Version)
	}

	if _, err := f.svc.SetPaymentStatus(order.ID, "iou", "admin"); !errors.Is(err, domain.ErrUnknownStatus) {
		t.Fatalf("expected ErrUnknownStatus, got %v", err)
	}
}

// Сквозной сценарий: заказ на 2 единицы при стоке 10, правка до 5,
// отмена с открытием возврата и решение returned.
func TestOrderLifecycle_EndToEnd(t *testing.T) {
	f := newFixture(t)
	sku := f.seed(t, "p1", "", 10)

	order := f.createOrder(t, lifecycle.ItemParams{ProductID: "p1", Qty: 2, PriceMinor: 500})
	if got := f.level(t, sku); got != 8 {
		t.Fatalf("after create: expected 8, got %d", got)
	}

	if _, err := f.svc.EditOrderItems(order.ID, []lifecycle.ItemParams{{ProductID: "p1", Qty: 5, PriceMinor: 500}}, "admin"); err != nil {
		t.Fatalf("edit failed: %v", err)
	}
	if got := f.level(t, sku); got != 5 {
		t.Fatalf("after edit: expected 5, got %d", got)
	}

	cancelled, err := f.svc.TransitionStatus(order.ID, domain.OrderStatusCancelled, lifecycle.TransitionOptions{}, "admin")
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.ReturnStatus != domain.ReturnStatusPending {
		t.Fatalf("expected pending return, got %s", cancelled.ReturnStatus)
	}
	if got := f.level(t, sku); got != 5 {
		t.Fatalf("after cancel: expected 5, got %d", got)
	}

	resolved, err := f.svc.ResolveReturn(order.ID, domain.ReturnStatusReturned, "admin")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if got := f.level(t, sku); got != 10 {
		t.Fatalf("after return: expected 10, got %d", got)
	}
	if resolved.LossAmountMinor != resolved.ShippingMinor {
		t.Fatalf("expected shipping loss, got %d", resolved.LossAmountMinor)
	}

	// Журнал: -2 (order), -3 (correction), +5 (return).
	entries, err := f.stock.History(sku)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 ledger entries, got %d: %+v", len(entries), entries)
	}
	var sum int64
	for _, e := range entries {
		sum += e.ChangeAmount
	}
	if sum != 0 {
		t.Fatalf("lifecycle must net to zero, got %d", sum)
	}
}
