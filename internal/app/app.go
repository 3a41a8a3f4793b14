package app

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/maryoneshop/orderflow/internal/health"
	"github.com/maryoneshop/orderflow/internal/messaging/kafka"
	"github.com/maryoneshop/orderflow/internal/metrics"
	httpserver "github.com/maryoneshop/orderflow/internal/server/http"
	"github.com/maryoneshop/orderflow/internal/service/idempotency"
	"github.com/maryoneshop/orderflow/internal/service/ledger"
	"github.com/maryoneshop/orderflow/internal/service/lifecycle"
	"github.com/maryoneshop/orderflow/internal/service/outbox"
	"github.com/maryoneshop/orderflow/internal/service/reconcile"
	"github.com/maryoneshop/orderflow/internal/service/verification"
	"github.com/maryoneshop/orderflow/internal/version"
)

// Run собирает все зависимости и держит приложение до отмены контекста.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := deps.Close(); closeErr != nil {
			logger.WithError(closeErr).Warn("failed to close storage")
		}
	}()

	// Kafka опционален: без брокеров события копятся в outbox,
	// но заказные операции работают как обычно.
	var kafkaProducer *kafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		} else {
			kafkaProducer = producer
			logger.WithField("brokers", cfg.KafkaBrokers).Info("kafka producer initialized")
		}
	}
	defer func() {
		if kafkaProducer == nil {
			return
		}
		if closeErr := kafkaProducer.Close(); closeErr != nil {
			logger.WithError(closeErr).Warn("failed to close kafka producer")
		} else {
			logger.Info("kafka producer closed")
		}
	}()

	engineMetrics := metrics.NewEngineMetrics()

	stockLedger := ledger.New(deps.Ledger, deps.Products, logger.WithField("component", "ledger"))
	reconciler := reconcile.NewEngine(stockLedger, logger.WithField("component", "reconcile"), engineMetrics)
	orderService := lifecycle.New(
		deps.Orders,
		deps.Timeline,
		deps.Outbox,
		stockLedger,
		reconciler,
		logger.WithField("component", "lifecycle"),
	)
	verificationService := verification.New(
		deps.Orders,
		deps.Verification,
		logger.WithField("component", "verification"),
		engineMetrics,
	)

	router := httpserver.NewRouter(httpserver.RouterDeps{
		Orders:       httpserver.NewOrderHandler(orderService, verificationService, logger.WithField("layer", "http")),
		Stock:        httpserver.NewStockHandler(orderService, logger.WithField("layer", "http")),
		Idempotency:  deps.Idempotency,
		Logger:       logger.WithField("layer", "http"),
		DebugLogging: cfg.Debug,
	})

	healthHandler := health.NewHandler(version.String())
	healthHandler.RegisterChecker("storage", health.NewSimpleChecker("storage", func() error {
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return deps.Store().Ping(pingCtx)
	}))
	healthHandler.RegisterChecker("outbox", health.NewOutboxChecker(deps.Outbox, 100, 1000))

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	var wg sync.WaitGroup

	// Outbox-воркер имеет смысл только при живом продюсере: без него
	// сообщения остаются pending и будут доставлены после рестарта с Kafka.
	if kafkaProducer != nil {
		publisher := kafka.NewOutboxPublisher(kafkaProducer, cfg.OrderTopic, cfg.StockTopic)
		dlq := kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicDeadLetterQueue, kafka.TopicDeadLetterQueue)

		worker := outbox.NewWorker(deps.Outbox, publisher,
			outbox.WithLogger(logger.WithField("component", "outbox-worker")),
			outbox.WithDLQPublisher(dlq),
			outbox.WithPollInterval(cfg.OutboxPollInterval),
			outbox.WithBatchSize(cfg.OutboxBatchSize),
		)
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.Run(ctx)
		}()
	}

	cleanup := idempotency.NewCleanupWorker(deps.Idempotency,
		idempotency.WithLogger(logger.WithField("component", "idempotency-cleanup")),
		idempotency.WithInterval(cfg.IdempotencyCleanupInterval),
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		cleanup.Run(ctx)
	}()

	apiSrv := &http.Server{
		Addr:              cfg.APIAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("API сервер слушает %s", cfg.APIAddr)
		errCh <- apiSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем API сервер")
		shutdownHTTP(apiSrv, logger)
		shutdownHTTP(metricsSrv, logger)
		wg.Wait()
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(metricsSrv, logger)
		wg.Wait()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *health.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)
	mux.HandleFunc("/livez", health.LivenessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/readyz, %s/livez", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
