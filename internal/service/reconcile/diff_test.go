package reconcile_test

import (
	"testing"

	"github.com/maryoneshop/orderflow/internal/domain"
	"github.com/maryoneshop/orderflow/internal/service/reconcile"
)

func item(productID, variantID string, qty int32) domain.OrderItem {
	return domain.OrderItem{ProductID: productID, VariantID: variantID, Qty: qty, PriceMinor: 100}
}

func deltaByKey(deltas []domain.StockDelta, key string) (domain.StockDelta, bool) {
	for _, d := range deltas {
		if d.SKU.Key() == key {
			return d, true
		}
	}
	return domain.StockDelta{}, false
}

func TestDiff_RemovedLineRestocks(t *testing.T) {
	oldItems := []domain.OrderItem{item("p1", "", 3), item("p2", "", 1)}
	newItems := []domain.OrderItem{item("p2", "", 1)}

	deltas := reconcile.Diff(oldItems, newItems)
	if len(deltas) != 1 {
		t.Fatalf("expected 1 delta, got %d", len(deltas))
	}
	if deltas[0].SKU.Key() != "p1" || deltas[0].Change != 3 || deltas[0].Reason != domain.StockReasonCorrection {
		t.Fatalf("unexpected delta: %+v", deltas[0])
	}
}

func TestDiff_QuantityChange(t *testing.T) {
	oldItems := []domain.OrderItem{item("p1", "", 2)}

	// Увеличение количества — дополнительное списание.
	deltas := reconcile.Diff(oldItems, []domain.OrderItem{item("p1", "", 5)})
	if len(deltas) != 1 || deltas[0].Change != -3 || deltas[0].Reason != domain.StockReasonCorrection {
		t.Fatalf("unexpected deltas for increase: %+v", deltas)
	}

	// Уменьшение — частичный возврат.
	deltas = reconcile.Diff(oldItems, []domain.OrderItem{item("p1", "", 1)})
	if len(deltas) != 1 || deltas[0].Change != 1 || deltas[0].Reason != domain.StockReasonCorrection {
		t.Fatalf("unexpected deltas for decrease: %+v", deltas)
	}
}

func TestDiff_AddedLineDebitsAsOrder(t *testing.T) {
	deltas := reconcile.Diff(nil, []domain.OrderItem{item("p9", "xl", 2)})
	if len(deltas) != 1 {
		t.Fatalf("expected 1 delta, got %d", len(deltas))
	}
	if deltas[0].SKU.Key() != "p9:xl" || deltas[0].Change != -2 || deltas[0].Reason != domain.StockReasonOrder {
		t.Fatalf("unexpected delta: %+v", deltas[0])
	}
}

func TestDiff_VariantsAreSeparateLines(t *testing.T) {
	oldItems := []domain.OrderItem{item("p1", "s", 1), item("p1", "m", 1)}
	newItems := []domain.OrderItem{item("p1", "s", 2)}

	deltas := reconcile.Diff(oldItems, newItems)
	if len(deltas) != 2 {
		t.Fatalf("expected 2 deltas, got %d", len(deltas))
	}

	mDelta, ok := deltaByKey(deltas, "p1:m")
	if !ok || mDelta.Change != 1 {
		t.Fatalf("expected +1 for removed p1:m, got %+v", deltas)
	}
	sDelta, ok := deltaByKey(deltas, "p1:s")
	if !ok || sDelta.Change != -1 {
		t.Fatalf("expected -1 for grown p1:s, got %+v", deltas)
	}
}

func TestDiff_AggregatesDuplicateRows(t *testing.T) {
	// Две строки одного SKU считаются одной линией суммарного объёма.
	oldItems := []domain.OrderItem{item("p1", "", 2), item("p1", "", 3)}
	newItems := []domain.OrderItem{item("p1", "", 5)}

	if deltas := reconcile.Diff(oldItems, newItems); len(deltas) != 0 {
		t.Fatalf("expected no deltas for equal aggregate qty, got %+v", deltas)
	}
}

func TestDiff_NoChanges(t *testing.T) {
	items := []domain.OrderItem{item("p1", "", 2), item("p2", "red", 1)}
	if deltas := reconcile.Diff(items, items); len(deltas) != 0 {
		t.Fatalf("expected no deltas, got %+v", deltas)
	}
}

func TestDiff_Deterministic(t *testing.T) {
	oldItems := []domain.OrderItem{item("b", "", 1), item("a", "", 1), item("c", "", 1)}

	first := reconcile.Diff(oldItems, nil)
	second := reconcile.Diff(oldItems, nil)
	if len(first) != 3 || len(second) != 3 {
		t.Fatalf("expected 3 deltas, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i].SKU != second[i].SKU || first[i].Change != second[i].Change {
			t.Fatalf("diff order is not deterministic: %+v vs %+v", first, second)
		}
	}
	if first[0].SKU.Key() != "a" || first[1].SKU.Key() != "b" || first[2].SKU.Key() != "c" {
		t.Fatalf("expected sorted key order, got %+v", first)
	}
}

// Сумма дельт по SKU зависит только от начального и конечного состава,
// а не от пути редактирования.
func TestDiff_PathIndependentNetEffect(t *testing.T) {
	start := []domain.OrderItem{item("p1", "", 4)}
	middle := []domain.OrderItem{item("p1", "", 1), item("p2", "", 2)}
	end := []domain.OrderItem{item("p1", "", 2), item("p2", "", 2)}

	direct := reconcile.Diff(start, end)

	step1 := reconcile.Diff(start, middle)
	step2 := reconcile.Diff(middle, end)

	net := map[string]int64{}
	for _, d := range append(step1, step2...) {
		net[d.SKU.Key()] += d.Change
	}
	for _, d := range direct {
		net[d.SKU.Key()] -= d.Change
	}
	for key, sum := range net {
		if sum != 0 {
			t.Fatalf("net effect for %s differs between paths by %d", key, sum)
		}
	}
}

func TestInvert(t *testing.T) {
	deltas := []domain.StockDelta{
		{SKU: domain.SKU{ProductID: "p1"}, Change: -3, Reason: domain.StockReasonOrder},
		{SKU: domain.SKU{ProductID: "p2"}, Change: 2, Reason: domain.StockReasonCorrection},
	}

	inverted := reconcile.Invert(deltas)
	if len(inverted) != 2 {
		t.Fatalf("expected 2 deltas, got %d", len(inverted))
	}
	if inverted[0].Change != 3 || inverted[1].Change != -2 {
		t.Fatalf("unexpected inverted changes: %+v", inverted)
	}
	for _, d := range inverted {
		if d.Reason != domain.StockReasonCorrection {
			t.Fatalf("inverted delta must use correction reason, got %s", d.Reason)
		}
	}
}
