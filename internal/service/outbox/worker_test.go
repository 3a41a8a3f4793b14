package outbox_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/maryoneshop/orderflow/internal/domain"
	"github.com/maryoneshop/orderflow/internal/service/outbox"
	"github.com/maryoneshop/orderflow/internal/storage/memory"
)

type stubPublisher struct {
	mu       sync.Mutex
	err      error
	messages []domain.OutboxMessage
}

func (s *stubPublisher) Publish(msg domain.OutboxMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.messages = append(s.messages, msg)
	return nil
}

func (s *stubPublisher) published() []domain.OutboxMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.OutboxMessage(nil), s.messages...)
}

func enqueue(t *testing.T, repo domain.OutboxRepository, aggregateID string) domain.OutboxMessage {
	t.Helper()
	msg, err := repo.Enqueue(domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   aggregateID,
		EventType:     "order.created",
		Payload:       []byte(`{"order_id":"` + aggregateID + `"}`),
	})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	return msg
}

func TestWorker_ProcessOnce_PublishesAndMarksSent(t *testing.T) {
	repo := memory.NewOutboxRepository()
	publisher := &stubPublisher{}
	worker := outbox.NewWorker(repo, publisher, outbox.WithRetryBaseDelay(0))

	enqueue(t, repo, "order-1")
	enqueue(t, repo, "order-2")

	worker.ProcessOnce(context.Background())

	if got := len(publisher.published()); got != 2 {
		t.Fatalf("expected 2 published messages, got %d", got)
	}
	if pending := repo.AllPending(); len(pending) != 0 {
		t.Fatalf("expected empty backlog, got %d", len(pending))
	}
}

func TestWorker_ProcessOnce_FailureGoesToDLQ(t *testing.T) {
	repo := memory.NewOutboxRepository()
	publisher := &stubPublisher{err: errors.New("broker is down")}
	dlq := &stubPublisher{}
	worker := outbox.NewWorker(repo, publisher,
		outbox.WithDLQPublisher(dlq),
		outbox.WithMaxAttempts(2),
		outbox.WithRetryBaseDelay(0),
	)

	msg := enqueue(t, repo, "order-1")

	worker.ProcessOnce(context.Background())

	if pending := repo.AllPending(); len(pending) != 0 {
		t.Fatalf("failed message must leave pending set, got %d", len(pending))
	}

	dlqMessages := dlq.published()
	if len(dlqMessages) != 1 {
		t.Fatalf("expected 1 DLQ message, got %d", len(dlqMessages))
	}
	if dlqMessages[0].ID != msg.ID {
		t.Fatalf("DLQ message must keep original id, got %s", dlqMessages[0].ID)
	}
}

func TestWorker_ProcessOnce_EmptyBacklog(t *testing.T) {
	repo := memory.NewOutboxRepository()
	publisher := &stubPublisher{}
	worker := outbox.NewWorker(repo, publisher)

	worker.ProcessOnce(context.Background())

	if got := len(publisher.published()); got != 0 {
		t.Fatalf("expected no publishes, got %d", got)
	}
}

func TestWorker_ProcessOnce_CancelledContext(t *testing.T) {
	repo := memory.NewOutboxRepository()
	publisher := &stubPublisher{}
	worker := outbox.NewWorker(repo, publisher)

	enqueue(t, repo, "order-1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	worker.ProcessOnce(ctx)

	if got := len(publisher.published()); got != 0 {
		t.Fatalf("cancelled context must skip publishing, got %d", got)
	}
	if pending := repo.AllPending(); len(pending) != 1 {
		t.Fatalf("message must stay pending, got %d", len(pending))
	}
}
