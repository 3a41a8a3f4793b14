package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics содержит метрики операций над заказами и складом.
type EngineMetrics struct {
	// Счётчики операций над заказами
	ordersCreated      prometheus.Counter
	statusTransitions  *prometheus.CounterVec
	invalidTransitions prometheus.Counter
	returnResolutions  *prometheus.CounterVec
	verificationLogs   *prometheus.CounterVec

	// Складской журнал
	ledgerEntries     *prometheus.CounterVec
	stockRejections   prometheus.Counter
	reconcileFailures prometheus.Counter

	// Гистограмма времени сверки состава заказа
	reconcileDuration prometheus.Histogram

	// Счётчики событий timeline и outbox
	timelineEvents prometheus.Counter
	outboxEvents   prometheus.Counter

	// Gauge заказов, ожидающих решения по возврату
	pendingReturns prometheus.Gauge
}

// NewEngineMetrics создаёт новый экземпляр метрик движка.
func NewEngineMetrics() *EngineMetrics {
	return newEngineMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newEngineMetricsWithRegisterer(registerer prometheus.Registerer) *EngineMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &EngineMetrics{
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orderflow_orders_created_total",
			Help: "Total number of orders created",
		}),
		statusTransitions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "orderflow_status_transitions_total",
			Help: "Total number of order status transitions by target status",
		}, []string{"status"}),
		invalidTransitions: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orderflow_invalid_transitions_total",
			Help: "Total number of rejected status transitions",
		}),
		returnResolutions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "orderflow_return_resolutions_total",
			Help: "Total number of return resolutions by outcome",
		}, []string{"resolution"}),
		verificationLogs: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "orderflow_verification_logs_total",
			Help: "Total number of verification log entries by outcome",
		}, []string{"outcome"}),
		ledgerEntries: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "orderflow_ledger_entries_total",
			Help: "Total number of stock ledger entries by reason",
		}, []string{"reason"}),
		stockRejections: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orderflow_stock_rejections_total",
			Help: "Total number of stock mutations rejected for insufficient stock",
		}),
		reconcileFailures: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orderflow_reconcile_failures_total",
			Help: "Total number of failed item reconciliations",
		}),
		reconcileDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "orderflow_reconcile_duration_seconds",
			Help:    "Duration of order item reconciliations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}),
		timelineEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orderflow_timeline_events_total",
			Help: "Total number of timeline events recorded",
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orderflow_outbox_events_total",
			Help: "Total number of outbox events enqueued",
		}),
		pendingReturns: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "orderflow_pending_returns",
			Help: "Number of cancelled orders awaiting return resolution",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

// RecordOrderCreated увеличивает счётчик созданных заказов.
func (m *EngineMetrics) RecordOrderCreated() {
	m.ordersCreated.Inc()
}

// RecordStatusTransition увеличивает счётчик переходов в указанный статус.
func (m *EngineMetrics) RecordStatusTransition(status string) {
	m.statusTransitions.WithLabelValues(status).Inc()
}

// RecordInvalidTransition увеличивает счётчик отклонённых переходов.
func (m *EngineMetrics) RecordInvalidTransition() {
	m.invalidTransitions.Inc()
}

// RecordReturnResolution увеличивает счётчик решений по возвратам.
func (m *EngineMetrics) RecordReturnResolution(resolution string) {
	m.returnResolutions.WithLabelValues(resolution).Inc()
}

// RecordVerificationLog увеличивает счётчик записей верификации.
func (m *EngineMetrics) RecordVerificationLog(outcome string) {
	m.verificationLogs.WithLabelValues(outcome).Inc()
}

// RecordLedgerEntry увеличивает счётчик записей складского журнала.
func (m *EngineMetrics) RecordLedgerEntry(reason string) {
	m.ledgerEntries.WithLabelValues(reason).Inc()
}

// RecordStockRejection увеличивает счётчик отказов по нехватке стока.
func (m *EngineMetrics) RecordStockRejection() {
	m.stockRejections.Inc()
}

// RecordReconcile записывает длительность сверки состава заказа.
func (m *EngineMetrics) RecordReconcile(duration time.Duration) {
	m.reconcileDuration.Observe(duration.Seconds())
}

// RecordReconcileFailure увеличивает счётчик неудачных сверок.
func (m *EngineMetrics) RecordReconcileFailure() {
	m.reconcileFailures.Inc()
}

// RecordTimelineEvent увеличивает счётчик событий timeline.
func (m *EngineMetrics) RecordTimelineEvent() {
	m.timelineEvents.Inc()
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *EngineMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}

// PendingReturnOpened увеличивает количество заказов, ожидающих решения по возврату.
func (m *EngineMetrics) PendingReturnOpened() {
	m.pendingReturns.Inc()
}

// PendingReturnClosed уменьшает количество заказов, ожидающих решения по возврату.
func (m *EngineMetrics) PendingReturnClosed() {
	m.pendingReturns.Dec()
}
