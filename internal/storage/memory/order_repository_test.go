package memory_test

import (
	"errors"
	"testing"
	"time"

	"github.com/maryoneshop/orderflow/internal/domain"
	"github.com/maryoneshop/orderflow/internal/storage/memory"
)

func newOrder(id string) domain.Order {
	now := time.Now().UTC()
	order := domain.Order{
		ID:            id,
		CustomerID:    "customer-1",
		Status:        domain.OrderStatusPending,
		PaymentStatus: domain.PaymentStatusPending,
		PaymentMethod: "cod",
		ReturnStatus:  domain.ReturnStatusNone,
		Items: []domain.OrderItem{
			{ID: id + "-item-1", ProductID: "p1", Qty: 2, PriceMinor: 500, CreatedAt: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	order.RecomputeTotals()
	return order
}

func TestOrderRepository_CreateGet(t *testing.T) {
	repo := memory.NewOrderRepository()
	order := newOrder("order-1")

	if err := repo.Create(order); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	stored, err := repo.Get(order.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.ID != order.ID || stored.TotalMinor != order.TotalMinor {
		t.Fatalf("stored order mismatch: %+v", stored)
	}
}

func TestOrderRepository_CreateDuplicate(t *testing.T) {
	repo := memory.NewOrderRepository()
	order := newOrder("order-1")

	if err := repo.Create(order); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := repo.Create(order); !errors.Is(err, domain.ErrOrderVersionConflict) {
		t.Fatalf("expected conflict on duplicate create, got %v", err)
	}
}

func TestOrderRepository_GetNotFound(t *testing.T) {
	repo := memory.NewOrderRepository()
	if _, err := repo.Get("ghost"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderRepository_SaveVersionConflict(t *testing.T) {
	repo := memory.NewOrderRepository()
	order := newOrder("order-1")
	if err := repo.Create(order); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	first, err := repo.Get(order.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	second, err := repo.Get(order.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}

	first.Status = domain.OrderStatusProcessing
	if err := repo.Save(first); err != nil {
		t.Fatalf("first save failed: %v", err)
	}

	second.Status = domain.OrderStatusCancelled
	if err := repo.Save(second); !errors.Is(err, domain.ErrOrderVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}

	stored, err := repo.Get(order.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.Status != domain.OrderStatusProcessing {
		t.Fatalf("expected processing to win, got %s", stored.Status)
	}
	if stored.Version != order.Version+1 {
		t.Fatalf("expected version %d, got %d", order.Version+1, stored.Version)
	}
}

func TestOrderRepository_ListFilters(t *testing.T) {
	repo := memory.NewOrderRepository()

	a := newOrder("order-a")
	b := newOrder("order-b")
	b.CustomerID = "customer-2"
	b.Status = domain.OrderStatusProcessing
	b.CreatedAt = a.CreatedAt.Add(time.Second)

	if err := repo.Create(a); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := repo.Create(b); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	all, err := repo.List(domain.OrderFilter{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(all))
	}
	// Свежие первыми.
	if all[0].ID != "order-b" {
		t.Fatalf("expected order-b first, got %s", all[0].ID)
	}

	byCustomer, err := repo.List(domain.OrderFilter{CustomerID: "customer-2"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(byCustomer) != 1 || byCustomer[0].ID != "order-b" {
		t.Fatalf("unexpected customer filter result: %+v", byCustomer)
	}

	byStatus, err := repo.List(domain.OrderFilter{Status: domain.OrderStatusPending})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(byStatus) != 1 || byStatus[0].ID != "order-a" {
		t.Fatalf("unexpected status filter result: %+v", byStatus)
	}

	limited, err := repo.List(domain.OrderFilter{Limit: 1})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("expected 1 order, got %d", len(limited))
	}
}

func TestOrderRepository_CloneIsolation(t *testing.T) {
	repo := memory.NewOrderRepository()
	order := newOrder("order-1")
	if err := repo.Create(order); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	stored, err := repo.Get(order.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	stored.Items[0].Qty = 99

	fresh, err := repo.Get(order.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if fresh.Items[0].Qty != 2 {
		t.Fatalf("stored order mutated through returned copy: %d", fresh.Items[0].Qty)
	}
}

func TestOrderRepository_Stats(t *testing.T) {
	repo := memory.NewOrderRepository()

	delivered := newOrder("order-delivered")
	delivered.Status = domain.OrderStatusDelivered

	lost := newOrder("order-lost")
	lost.Status = domain.OrderStatusCancelled
	lost.ReturnStatus = domain.ReturnStatusLost
	lost.LossAmountMinor = lost.TotalMinor

	pending := newOrder("order-pending")

	for _, order := range []domain.Order{delivered, lost, pending} {
		if err := repo.Create(order); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	stats, err := repo.Stats()
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.Count != 3 {
		t.Fatalf("expected count 3, got %d", stats.Count)
	}
	if stats.TotalRevenueMinor != delivered.TotalMinor {
		t.Fatalf("expected revenue %d, got %d", delivered.TotalMinor, stats.TotalRevenueMinor)
	}
	if stats.TotalLossMinor != lost.TotalMinor {
		t.Fatalf("expected loss %d, got %d", lost.TotalMinor, stats.TotalLossMinor)
	}
	if stats.PendingValueMinor != pending.TotalMinor {
		t.Fatalf("expected pending value %d, got %d", pending.TotalMinor, stats.PendingValueMinor)
	}
}
