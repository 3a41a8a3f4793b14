package domain_test

import (
	"errors"
	"testing"

	"github.com/maryoneshop/orderflow/internal/domain"
)

func TestCanTransition_AllowedPaths(t *testing.T) {
	allowed := []struct {
		from, to domain.OrderStatus
	}{
		{domain.OrderStatusPending, domain.OrderStatusProcessing},
		{domain.OrderStatusPending, domain.OrderStatusCancelled},
		{domain.OrderStatusProcessing, domain.OrderStatusShipped},
		{domain.OrderStatusProcessing, domain.OrderStatusCancelled},
		{domain.OrderStatusShipped, domain.OrderStatusDelivered},
	}

	for _, tc := range allowed {
		if !domain.CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}
}

func TestCanTransition_ForbiddenPaths(t *testing.T) {
	forbidden := []struct {
		from, to domain.OrderStatus
	}{
		{domain.OrderStatusPending, domain.OrderStatusShipped},
		{domain.OrderStatusPending, domain.OrderStatusDelivered},
		{domain.OrderStatusProcessing, domain.OrderStatusDelivered},
		{domain.OrderStatusProcessing, domain.OrderStatusPending},
		{domain.OrderStatusShipped, domain.OrderStatusCancelled},
		{domain.OrderStatusShipped, domain.OrderStatusPending},
		{domain.OrderStatusDelivered, domain.OrderStatusShipped},
		{domain.OrderStatusDelivered, domain.OrderStatusCancelled},
		{domain.OrderStatusCancelled, domain.OrderStatusPending},
		{domain.OrderStatusCancelled, domain.OrderStatusProcessing},
	}

	for _, tc := range forbidden {
		if domain.CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be forbidden", tc.from, tc.to)
		}
	}
}

func TestCanTransition_SameStatus(t *testing.T) {
	statuses := []domain.OrderStatus{
		domain.OrderStatusPending,
		domain.OrderStatusProcessing,
		domain.OrderStatusShipped,
		domain.OrderStatusDelivered,
		domain.OrderStatusCancelled,
	}
	for _, status := range statuses {
		if domain.CanTransition(status, status) {
			t.Errorf("self-transition %s -> %s must be rejected", status, status)
		}
	}
}

func TestParseOrderStatus(t *testing.T) {
	status, err := domain.ParseOrderStatus("shipped")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if status != domain.OrderStatusShipped {
		t.Fatalf("expected shipped, got %s", status)
	}

	if _, err := domain.ParseOrderStatus("teleported"); !errors.Is(err, domain.ErrUnknownStatus) {
		t.Fatalf("expected ErrUnknownStatus, got %v", err)
	}
}
