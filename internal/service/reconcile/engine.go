package reconcile

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/maryoneshop/orderflow/internal/domain"
	"github.com/maryoneshop/orderflow/internal/metrics"
	"github.com/maryoneshop/orderflow/internal/service/ledger"
)

// Engine применяет результат Diff к складскому журналу.
// Сам Diff чистый; Engine добавляет атомарное применение и наблюдаемость.
type Engine struct {
	stock   *ledger.Ledger
	logger  *log.Entry
	metrics *metrics.EngineMetrics
}

// NewEngine создаёт движок сверки.
func NewEngine(stock *ledger.Ledger, logger *log.Entry, m *metrics.EngineMetrics) *Engine {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Engine{
		stock:   stock,
		logger:  logger.WithField("component", "reconcile_engine"),
		metrics: m,
	}
}

// Reconcile вычисляет и применяет дельты перехода состава заказа
// oldItems → newItems. Возвращает применённый план, чтобы вызывающая
// сторона могла компенсировать его при сбое сохранения заказа.
// План применяется целиком либо не применяется вовсе.
func (e *Engine) Reconcile(orderID string, oldItems, newItems []domain.OrderItem, actor string) ([]domain.StockDelta, error) {
	started := time.Now()

	deltas := Diff(oldItems, newItems)
	if len(deltas) == 0 {
		return nil, nil
	}
	for i := range deltas {
		deltas[i].Note = fmt.Sprintf("Order #%s items edited", orderID)
	}

	if _, err := e.stock.ApplyDeltas(deltas, actor); err != nil {
		if e.metrics != nil {
			e.metrics.RecordReconcileFailure()
		}
		e.logger.WithError(err).WithField("order_id", orderID).Warn("reconcile rejected")
		return nil, err
	}

	if e.metrics != nil {
		e.metrics.RecordReconcile(time.Since(started))
	}
	e.logger.WithFields(log.Fields{
		"order_id": orderID,
		"deltas":   len(deltas),
	}).Info("order items reconciled")

	return deltas, nil
}

// Revert компенсирует ранее применённый план (сохранение заказа не удалось).
func (e *Engine) Revert(orderID string, applied []domain.StockDelta, actor string) error {
	if len(applied) == 0 {
		return nil
	}

	inverted := Invert(applied)
	for i := range inverted {
		inverted[i].Note = fmt.Sprintf("Order #%s edit reverted", orderID)
	}

	if _, err := e.stock.ApplyDeltas(inverted, actor); err != nil {
		e.logger.WithError(err).WithField("order_id", orderID).Error("reconcile revert failed")
		return err
	}
	return nil
}
