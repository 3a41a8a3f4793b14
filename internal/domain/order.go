package domain

import "time"

// OrderStatus описывает жизненный цикл заказа от оформления до доставки.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан, сток уже списан, исполнение не началось.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusProcessing — заказ собирается на складе.
	OrderStatusProcessing OrderStatus = "processing"
	// OrderStatusShipped — заказ передан курьеру, назначен трек-номер.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusDelivered — заказ вручён клиенту; терминальный статус.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled — заказ отменён; судьбу товара решает обработка возврата.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// PaymentStatus — статус оплаты, живёт независимо от машины исполнения.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// ReturnStatus — состояние возврата; осмыслен только для отменённого заказа.
type ReturnStatus string

const (
	// ReturnStatusNone — возврат не открывался.
	ReturnStatusNone ReturnStatus = "none"
	// ReturnStatusPending — заказ отменён, физическая судьба товара не подтверждена.
	ReturnStatusPending ReturnStatus = "pending"
	// ReturnStatusReturned — товар вернулся на склад, потеря равна стоимости доставки.
	ReturnStatusReturned ReturnStatus = "returned"
	// ReturnStatusLost — товар не вернулся, потеря равна полной сумме заказа.
	ReturnStatusLost ReturnStatus = "lost"
)

// Address — адрес доставки, хранится снимком внутри заказа.
type Address struct {
	Name       string
	Phone      string
	Street     string
	City       string
	Region     string
	PostalCode string
}

// OrderItem представляет одну позицию заказа.
type OrderItem struct {
	// ID позиции нужен для однозначной идентификации и аудита.
	ID string
	// ProductID — внешний идентификатор товара в каталоге.
	ProductID string
	// VariantID — идентификатор варианта (размер/цвет); пустой для базового товара.
	VariantID string
	// Name — снимок названия на момент заказа, для отображения и журналов.
	Name string
	// ImageURL — снимок изображения товара.
	ImageURL string
	// Qty — количество единиц товара.
	Qty int32
	// PriceMinor — цена за единицу в минимальных денежных единицах, неизменна после фиксации.
	PriceMinor int64
	// CreatedAt фиксирует момент добавления позиции в заказ.
	CreatedAt time.Time
}

// SKU возвращает складской ключ позиции: две строки заказа считаются одной
// линией тогда и только тогда, когда совпадает пара (ProductID, VariantID).
func (i OrderItem) SKU() SKU {
	return SKU{ProductID: i.ProductID, VariantID: i.VariantID}
}

// Order агрегирует состояние заказа, его позиции и денежные поля.
type Order struct {
	ID         string
	CustomerID string
	// CustomerName/Email/Phone — контактные данные, CustomerID пуст для гостевых заказов.
	CustomerName string
	Email        string
	Phone        string

	ShippingAddress Address

	Status             OrderStatus
	PaymentStatus      PaymentStatus
	PaymentMethod      string
	ReturnStatus       ReturnStatus
	VerificationStatus VerificationStatus

	// LossAmountMinor устанавливается только обработкой возврата (returned/lost).
	LossAmountMinor int64

	CourierName    string
	TrackingNumber string

	SubtotalMinor int64
	ShippingMinor int64
	FeeMinor      int64
	TotalMinor    int64

	Items []OrderItem

	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RecomputeTotals пересчитывает subtotal и total по текущим позициям.
// Инвариант total = subtotal + shipping + fee поддерживается только здесь.
func (o *Order) RecomputeTotals() {
	var subtotal int64
	for _, item := range o.Items {
		subtotal += int64(item.Qty) * item.PriceMinor
	}
	o.SubtotalMinor = subtotal
	o.TotalMinor = o.SubtotalMinor + o.ShippingMinor + o.FeeMinor
}

// IsTerminal сообщает, достиг ли заказ конца жизненного цикла:
// доставлен либо отменён с решённым возвратом.
func (o *Order) IsTerminal() bool {
	if o.Status == OrderStatusDelivered {
		return true
	}
	if o.Status == OrderStatusCancelled {
		return o.ReturnStatus == ReturnStatusReturned || o.ReturnStatus == ReturnStatusLost
	}
	return false
}

// Editable сообщает, можно ли менять состав заказа.
// Отменённый заказ не редактируется: его складской след закрывает возврат.
func (o *Order) Editable() bool {
	return o.Status != OrderStatusDelivered && o.Status != OrderStatusCancelled
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if o.PaymentMethod == "" {
		errs = append(errs, ErrPaymentMethodRequired)
	}
	if o.ShippingMinor < 0 || o.FeeMinor < 0 {
		errs = append(errs, ErrChargeNegative)
	}

	var subtotal int64
	for _, item := range o.Items {
		if item.ProductID == "" {
			errs = append(errs, ErrProductRequired)
		}
		if item.Qty <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.PriceMinor < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
		subtotal += int64(item.Qty) * item.PriceMinor
	}
	if subtotal != o.SubtotalMinor || o.TotalMinor != o.SubtotalMinor+o.ShippingMinor+o.FeeMinor {
		errs = append(errs, ErrTotalMismatch)
	}

	// returnStatus осмыслен только у отменённого заказа, lossAmount — только у решённого возврата.
	if o.Status != OrderStatusCancelled && o.ReturnStatus != ReturnStatusNone {
		errs = append(errs, ErrNotPendingReturn)
	}
	if o.LossAmountMinor < 0 {
		errs = append(errs, ErrChargeNegative)
	}

	return errs
}

// Valid проверяет, что статус оплаты относится к поддерживаемым значениям.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	default:
		return false
	}
}

// Valid проверяет, что статус возврата относится к поддерживаемым значениям.
func (s ReturnStatus) Valid() bool {
	switch s {
	case ReturnStatusNone, ReturnStatusPending, ReturnStatusReturned, ReturnStatusLost:
		return true
	default:
		return false
	}
}
