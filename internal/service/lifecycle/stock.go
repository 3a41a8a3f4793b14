package lifecycle

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/maryoneshop/orderflow/internal/domain"
	"github.com/maryoneshop/orderflow/internal/messaging/kafka"
)

// POLine — строка приёмки закупки.
type POLine struct {
	SKU domain.SKU
	Qty int64
}

// AdjustStock применяет ручную складскую корректировку и возвращает новый уровень.
func (s *Service) AdjustStock(sku domain.SKU, change int64, reason domain.StockReason, note, actor string) (int64, error) {
	level, err := s.stock.ApplyDelta(sku, change, reason, note, actor)
	if err != nil {
		return 0, err
	}

	s.emitStockEvent(kafka.EventTypeStockAdjusted, sku, change, level, reason)
	s.logger.WithFields(log.Fields{
		"sku":    sku.Key(),
		"change": change,
		"reason": reason,
		"level":  level,
	}).Info("stock adjusted")

	return level, nil
}

// ReceivePurchaseOrder приходует закупку: каждая строка пополняет свой SKU
// записью reason=restock с пометкой о номере закупки. Партия атомарна.
func (s *Service) ReceivePurchaseOrder(poNumber string, lines []POLine, actor string) (map[string]int64, error) {
	poNumber = strings.TrimSpace(poNumber)
	if poNumber == "" {
		return nil, fmt.Errorf("po number is required")
	}
	if len(lines) == 0 {
		return nil, domain.ErrItemsRequired
	}

	deltas := make([]domain.StockDelta, 0, len(lines))
	for _, line := range lines {
		if line.Qty <= 0 {
			return nil, domain.ErrItemQtyInvalid
		}
		deltas = append(deltas, domain.StockDelta{
			SKU:    line.SKU,
			Change: line.Qty,
			Reason: domain.StockReasonRestock,
			Note:   fmt.Sprintf("Received PO #%s", poNumber),
		})
	}

	levels, err := s.stock.ApplyDeltas(deltas, actor)
	if err != nil {
		return nil, err
	}

	for _, d := range deltas {
		s.emitStockEvent(kafka.EventTypeStockRestocked, d.SKU, d.Change, levels[d.SKU.Key()], d.Reason)
	}
	s.logger.WithFields(log.Fields{
		"po_number": poNumber,
		"lines":     len(lines),
	}).Info("purchase order received")

	return levels, nil
}

// StockLevel возвращает текущий остаток SKU.
func (s *Service) StockLevel(sku domain.SKU) (int64, error) {
	return s.stock.Level(sku)
}

// StockHistory возвращает журнал SKU в порядке добавления записей.
func (s *Service) StockHistory(sku domain.SKU) ([]domain.StockLedgerEntry, error) {
	return s.stock.History(sku)
}
