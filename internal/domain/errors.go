package domain

import "errors"

var (
	// Ошибка отсутствия хотя бы одного товара в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrItemQtyInvalid = errors.New("item qty must be greater than zero")
	// Ошибка, если цена позиции отрицательная.
	ErrItemPriceInvalid = errors.New("item price must be non-negative")
	// Ошибка отсутствующего product_id в позиции заказа или в складской операции.
	ErrProductRequired = errors.New("product_id is required")
	// Ошибка отсутствующего способа оплаты.
	ErrPaymentMethodRequired = errors.New("payment method is required")
	// Ошибка отрицательной стоимости доставки или комиссии.
	ErrChargeNegative = errors.New("shipping and fee must be non-negative")
	// Ошибка несоответствия итоговой суммы заказа её слагаемым.
	ErrTotalMismatch = errors.New("order total does not match subtotal+shipping+fee")
	// Ошибка отсутствующего идентификатора заказа.
	ErrOrderIDRequired = errors.New("order_id is required")

	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderVersionConflict сигнализирует о конфликте версий при сохранении.
	ErrOrderVersionConflict = errors.New("order version conflict")
	// ErrOrderNotEditable — заказ в терминальном статусе, состав менять нельзя.
	ErrOrderNotEditable = errors.New("order is not editable")

	// ErrInvalidTransition — запрошенный переход статуса не разрешён машиной состояний.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrCourierRequired — переход в shipped без указания курьера.
	ErrCourierRequired = errors.New("courier is required to ship an order")

	// ErrInsufficientStock — списание увело бы остаток SKU ниже нуля.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrSKUNotFound — SKU отсутствует в товарном каталоге.
	ErrSKUNotFound = errors.New("sku not found")
	// ErrUnknownStockReason — причина складской операции вне допустимого перечня.
	ErrUnknownStockReason = errors.New("unknown stock reason")
	// ErrZeroDelta — складская операция с нулевым изменением не имеет смысла.
	ErrZeroDelta = errors.New("stock delta must be non-zero")

	// ErrNotPendingReturn — возврат не ожидается (заказ не отменён или returnStatus != pending).
	ErrNotPendingReturn = errors.New("order has no pending return")
	// ErrAlreadyResolved — судьба возврата уже решена, повторное решение запрещено.
	ErrAlreadyResolved = errors.New("return already resolved")
	// ErrUnknownResolution — допустимы только решения returned и lost.
	ErrUnknownResolution = errors.New("unknown return resolution")

	// ErrUnknownStatus — значение статуса вне закрытого перечня.
	ErrUnknownStatus = errors.New("unknown status value")
	// ErrUnknownOutcome — исход верификации вне допустимого перечня.
	ErrUnknownOutcome = errors.New("unknown verification outcome")
	// ErrUnknownAction — способ связи с клиентом вне допустимого перечня.
	ErrUnknownAction = errors.New("unknown verification action")

	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")

	// ErrIdempotencyKeyRequired — пустой idempotency-key.
	ErrIdempotencyKeyRequired = errors.New("idempotency key is required")
	// ErrIdempotencyRequestHashRequired — пустой хеш запроса.
	ErrIdempotencyRequestHashRequired = errors.New("idempotency request hash is required")
	// ErrIdempotencyKeyAlreadyExists — ключ уже зарегистрирован с тем же хешем запроса.
	ErrIdempotencyKeyAlreadyExists = errors.New("idempotency key already exists")
	// ErrIdempotencyHashMismatch — ключ переиспользован с другим телом запроса.
	ErrIdempotencyHashMismatch = errors.New("idempotency key reused with different request")
	// ErrIdempotencyKeyNotFound — запись по ключу не найдена.
	ErrIdempotencyKeyNotFound = errors.New("idempotency key not found")
)

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrOrderVersionConflict)
}
