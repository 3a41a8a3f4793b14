package ledger

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/maryoneshop/orderflow/internal/domain"
	"github.com/maryoneshop/orderflow/internal/metrics"
)

// Ledger — единственная точка записи складских изменений.
// Каждое изменение уровня проходит через append в журнал; уровень в каталоге —
// материализованная бегущая сумма, обновляемая строго под блокировкой SKU.
type Ledger struct {
	entries  domain.LedgerRepository
	products domain.ProductStore
	logger   *log.Entry
	metrics  *metrics.EngineMetrics

	// mu защищает карту locks; сами операции сериализуются per-SKU.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New создаёт складской сервис с метриками по умолчанию.
func New(entries domain.LedgerRepository, products domain.ProductStore, logger *log.Entry) *Ledger {
	return newLedger(entries, products, logger, metrics.NewEngineMetrics())
}

// NewWithoutMetrics создаёт складской сервис без метрик (для тестов).
func NewWithoutMetrics(entries domain.LedgerRepository, products domain.ProductStore, logger *log.Entry) *Ledger {
	return newLedger(entries, products, logger, nil)
}

func newLedger(entries domain.LedgerRepository, products domain.ProductStore, logger *log.Entry, m *metrics.EngineMetrics) *Ledger {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Ledger{
		entries:  entries,
		products: products,
		logger:   logger.WithField("component", "stock_ledger"),
		metrics:  m,
		locks:    make(map[string]*sync.Mutex),
	}
}

// ApplyDelta применяет одно изменение остатка и возвращает новый уровень.
// Списание ниже нуля отклоняется с ErrInsufficientStock, если для SKU
// не разрешены предзаказы; запись в журнал и уровень меняются атомарно
// относительно других операций над тем же SKU.
func (l *Ledger) ApplyDelta(sku domain.SKU, change int64, reason domain.StockReason, note, actor string) (int64, error) {
	if err := validateDelta(sku, change, reason); err != nil {
		return 0, err
	}

	lock := l.skuLock(sku.Key())
	lock.Lock()
	defer lock.Unlock()

	return l.applyLocked(sku, change, reason, note, actor)
}

// ApplyDeltas применяет план изменений атомарно: сначала проверяет каждую
// дельту против текущих уровней, и только если весь план проходит —
// записывает его. Блокировки SKU берутся в отсортированном порядке ключей.
func (l *Ledger) ApplyDeltas(deltas []domain.StockDelta, actor string) (map[string]int64, error) {
	if len(deltas) == 0 {
		return map[string]int64{}, nil
	}
	for _, d := range deltas {
		if err := validateDelta(d.SKU, d.Change, d.Reason); err != nil {
			return nil, fmt.Errorf("sku %s: %w", d.SKU.Key(), err)
		}
	}

	keys := make([]string, 0, len(deltas))
	seen := make(map[string]bool, len(deltas))
	for _, d := range deltas {
		key := d.SKU.Key()
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		lock := l.skuLock(key)
		lock.Lock()
		defer lock.Unlock()
	}

	// Фаза проверки: план либо проходит целиком, либо отклоняется без следа.
	projected := make(map[string]int64, len(keys))
	allow := make(map[string]bool, len(keys))
	for _, d := range deltas {
		key := d.SKU.Key()
		if _, ok := projected[key]; !ok {
			info, err := l.products.GetStock(d.SKU)
			if err != nil {
				return nil, fmt.Errorf("sku %s: %w", key, err)
			}
			projected[key] = info.Level
			allow[key] = info.AllowBackorders
		}
		projected[key] += d.Change
		if projected[key] < 0 && !allow[key] {
			if l.metrics != nil {
				l.metrics.RecordStockRejection()
			}
			return nil, fmt.Errorf("sku %s: %w", key, domain.ErrInsufficientStock)
		}
	}

	// Фаза применения.
	levels := make(map[string]int64, len(keys))
	for _, d := range deltas {
		level, err := l.applyLocked(d.SKU, d.Change, d.Reason, d.Note, actor)
		if err != nil {
			return nil, err
		}
		levels[d.SKU.Key()] = level
	}
	return levels, nil
}

// Level возвращает текущий остаток SKU.
func (l *Ledger) Level(sku domain.SKU) (int64, error) {
	info, err := l.products.GetStock(sku)
	if err != nil {
		return 0, err
	}
	return info.Level, nil
}

// History возвращает записи журнала по SKU в порядке добавления.
func (l *Ledger) History(sku domain.SKU) ([]domain.StockLedgerEntry, error) {
	return l.entries.ListBySKU(sku)
}

// Audit сверяет материализованный уровень с суммой журнала.
// Расхождение означает, что уровень менялся в обход журнала.
func (l *Ledger) Audit(sku domain.SKU, baseline int64) (bool, error) {
	lock := l.skuLock(sku.Key())
	lock.Lock()
	defer lock.Unlock()

	info, err := l.products.GetStock(sku)
	if err != nil {
		return false, err
	}
	sum, err := l.entries.SumBySKU(sku)
	if err != nil {
		return false, err
	}
	return baseline+sum == info.Level, nil
}

// applyLocked выполняет запись под уже взятой блокировкой SKU.
func (l *Ledger) applyLocked(sku domain.SKU, change int64, reason domain.StockReason, note, actor string) (int64, error) {
	info, err := l.products.GetStock(sku)
	if err != nil {
		return 0, err
	}

	next := info.Level + change
	if next < 0 && !info.AllowBackorders {
		if l.metrics != nil {
			l.metrics.RecordStockRejection()
		}
		return 0, fmt.Errorf("sku %s: %w", sku.Key(), domain.ErrInsufficientStock)
	}

	entry := domain.StockLedgerEntry{
		ID:           uuid.NewString(),
		SKU:          sku,
		ChangeAmount: change,
		Reason:       reason,
		Note:         note,
		Actor:        actor,
		Occurred:     time.Now().UTC(),
	}
	if _, err := l.entries.Append(entry); err != nil {
		return 0, fmt.Errorf("append ledger entry: %w", err)
	}
	if err := l.products.SetStock(sku, next); err != nil {
		return 0, fmt.Errorf("update stock level: %w", err)
	}

	if l.metrics != nil {
		l.metrics.RecordLedgerEntry(string(reason))
	}
	l.logger.WithFields(log.Fields{
		"sku":    sku.Key(),
		"change": change,
		"reason": reason,
		"level":  next,
	}).Debug("ledger entry applied")

	return next, nil
}

// skuLock возвращает мьютекс для ключа SKU, создавая его при первом обращении.
func (l *Ledger) skuLock(key string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[key] = lock
	}
	return lock
}

func validateDelta(sku domain.SKU, change int64, reason domain.StockReason) error {
	if sku.ProductID == "" {
		return domain.ErrProductRequired
	}
	if change == 0 {
		return domain.ErrZeroDelta
	}
	if !reason.Valid() {
		return domain.ErrUnknownStockReason
	}
	return nil
}
