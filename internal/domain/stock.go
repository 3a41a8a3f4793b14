package domain

import "time"

// SKU — единица складского учёта: товар либо конкретный вариант товара.
type SKU struct {
	ProductID string
	VariantID string
}

// Key возвращает строковый ключ SKU для блокировок и индексов хранилищ.
func (s SKU) Key() string {
	if s.VariantID == "" {
		return s.ProductID
	}
	return s.ProductID + ":" + s.VariantID
}

// StockReason — причина изменения остатка в складском журнале.
type StockReason string

const (
	// StockReasonOrder — списание под размещённый заказ.
	StockReasonOrder StockReason = "order"
	// StockReasonCorrection — корректировка: правка состава заказа или ручная сверка.
	StockReasonCorrection StockReason = "correction"
	// StockReasonReturn — возврат товара от клиента на склад.
	StockReasonReturn StockReason = "return"
	// StockReasonRestock — пополнение склада (приёмка закупки).
	StockReasonRestock StockReason = "restock"
	// StockReasonDamage — списание повреждённого товара.
	StockReasonDamage StockReason = "damage"
	// StockReasonOther — прочее, с пояснением в note.
	StockReasonOther StockReason = "other"
)

// Valid проверяет, что причина относится к поддерживаемым значениям.
func (r StockReason) Valid() bool {
	switch r {
	case StockReasonOrder, StockReasonCorrection, StockReasonReturn,
		StockReasonRestock, StockReasonDamage, StockReasonOther:
		return true
	default:
		return false
	}
}

// StockLedgerEntry — запись append-only складского журнала.
// Записи никогда не изменяются и не удаляются; текущий остаток SKU —
// это бегущая сумма его записей поверх начального уровня.
type StockLedgerEntry struct {
	ID  string
	SKU SKU
	// ChangeAmount — знаковое изменение: положительное добавляет сток, отрицательное списывает.
	ChangeAmount int64
	Reason       StockReason
	Note         string
	Actor        string
	// Seq — монотонный порядковый номер внутри журнала, присваивается хранилищем.
	Seq      int64
	Occurred time.Time
}

// Validate проверяет запись журнала перед записью в хранилище.
func (e *StockLedgerEntry) Validate() []error {
	var errs []error
	if e.SKU.ProductID == "" {
		errs = append(errs, ErrProductRequired)
	}
	if e.ChangeAmount == 0 {
		errs = append(errs, ErrZeroDelta)
	}
	if !e.Reason.Valid() {
		errs = append(errs, ErrUnknownStockReason)
	}
	return errs
}

// StockDelta — элемент плана изменения остатков; план применяется
// атомарно (все дельты либо ни одной).
type StockDelta struct {
	SKU    SKU
	Change int64
	Reason StockReason
	Note   string
}

// StockInfo — текущее состояние SKU в товарном каталоге.
type StockInfo struct {
	// Level — материализованная бегущая сумма журнала.
	Level int64
	// AllowBackorders разрешает уход остатка в минус (предзаказы).
	AllowBackorders bool
}
