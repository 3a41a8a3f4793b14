package returns

import (
	"fmt"

	"github.com/maryoneshop/orderflow/internal/domain"
)

// Resolution — результат применения политики возврата к заказу.
type Resolution struct {
	// Status — итоговый returnStatus заказа.
	Status domain.ReturnStatus
	// LossMinor — зафиксированная потеря в минимальных единицах.
	LossMinor int64
	// Restock — план возврата товара на склад; пуст для lost.
	Restock []domain.StockDelta
}

// Resolve применяет политику возврата к отменённому заказу.
// Товар вернулся (returned): полный возврат каждой линии на склад,
// потеря равна стоимости доставки. Товар потерян (lost): склад не
// трогаем, потеря равна полной сумме заказа. Решение одноразовое.
//
// Функция чистая: план возврата применяет вызывающая сторона.
func Resolve(order domain.Order, action domain.ReturnStatus) (Resolution, error) {
	if action != domain.ReturnStatusReturned && action != domain.ReturnStatusLost {
		return Resolution{}, domain.ErrUnknownResolution
	}
	if order.Status != domain.OrderStatusCancelled {
		return Resolution{}, domain.ErrNotPendingReturn
	}
	switch order.ReturnStatus {
	case domain.ReturnStatusPending:
	case domain.ReturnStatusReturned, domain.ReturnStatusLost:
		return Resolution{}, domain.ErrAlreadyResolved
	default:
		return Resolution{}, domain.ErrNotPendingReturn
	}

	if action == domain.ReturnStatusLost {
		return Resolution{
			Status:    domain.ReturnStatusLost,
			LossMinor: order.TotalMinor,
		}, nil
	}

	restock := make([]domain.StockDelta, 0, len(order.Items))
	for _, item := range order.Items {
		restock = append(restock, domain.StockDelta{
			SKU:    item.SKU(),
			Change: int64(item.Qty),
			Reason: domain.StockReasonReturn,
			Note:   fmt.Sprintf("Order #%s return received", order.ID),
		})
	}
	return Resolution{
		Status:    domain.ReturnStatusReturned,
		LossMinor: order.ShippingMinor,
		Restock:   restock,
	}, nil
}
