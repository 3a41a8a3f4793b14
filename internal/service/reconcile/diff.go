package reconcile

import (
	"sort"

	"github.com/maryoneshop/orderflow/internal/domain"
)

// Diff вычисляет минимальный набор складских дельт, переводящий сток из
// состояния «списано под oldItems» в состояние «списано под newItems».
// Ключ линии — пара (ProductID, VariantID); дубли строк с одним ключом
// складываются. Возвращает дельты в детерминированном порядке ключей.
//
// Правила:
//   - линия исчезла: вернуть весь её объём (+oldQty, correction);
//   - количество изменилось: компенсировать разницу (-(new-old), correction);
//   - линия добавилась: списать под неё как под обычный заказ (-newQty, order).
func Diff(oldItems, newItems []domain.OrderItem) []domain.StockDelta {
	oldQty := aggregate(oldItems)
	newQty := aggregate(newItems)

	keys := make([]string, 0, len(oldQty)+len(newQty))
	skus := make(map[string]domain.SKU, len(oldQty)+len(newQty))
	for key, line := range oldQty {
		keys = append(keys, key)
		skus[key] = line.sku
	}
	for key, line := range newQty {
		if _, ok := skus[key]; !ok {
			keys = append(keys, key)
			skus[key] = line.sku
		}
	}
	sort.Strings(keys)

	deltas := make([]domain.StockDelta, 0, len(keys))
	for _, key := range keys {
		oldLine, wasThere := oldQty[key]
		newLine, isThere := newQty[key]

		switch {
		case wasThere && !isThere:
			deltas = append(deltas, domain.StockDelta{
				SKU:    skus[key],
				Change: oldLine.qty,
				Reason: domain.StockReasonCorrection,
			})
		case wasThere && isThere && newLine.qty != oldLine.qty:
			deltas = append(deltas, domain.StockDelta{
				SKU:    skus[key],
				Change: -(newLine.qty - oldLine.qty),
				Reason: domain.StockReasonCorrection,
			})
		case !wasThere && isThere:
			deltas = append(deltas, domain.StockDelta{
				SKU:    skus[key],
				Change: -newLine.qty,
				Reason: domain.StockReasonOrder,
			})
		}
	}
	return deltas
}

// Invert возвращает план, компенсирующий уже применённые дельты.
func Invert(deltas []domain.StockDelta) []domain.StockDelta {
	inverted := make([]domain.StockDelta, 0, len(deltas))
	for _, d := range deltas {
		inverted = append(inverted, domain.StockDelta{
			SKU:    d.SKU,
			Change: -d.Change,
			Reason: domain.StockReasonCorrection,
			Note:   d.Note,
		})
	}
	return inverted
}

type line struct {
	sku domain.SKU
	qty int64
}

func aggregate(items []domain.OrderItem) map[string]line {
	result := make(map[string]line, len(items))
	for _, item := range items {
		sku := item.SKU()
		key := sku.Key()
		agg := result[key]
		agg.sku = sku
		agg.qty += int64(item.Qty)
		result[key] = agg
	}
	return result
}
