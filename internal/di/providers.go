package di

import (
	"context"
	"fmt"
	"time"

	"PredWatch/internal/domain/repository"
	"PredWatch/internal/handler/api"
	internalrepo "PredWatch/internal/repository"
	"PredWatch/internal/service/inference"
	"PredWatch/internal/service/stooq"
	"PredWatch/internal/service/training"
	yahooprov "PredWatch/internal/service/yahoo"
	"PredWatch/internal/usecase"
	"PredWatch/pkg/cache"
	pkgch "PredWatch/pkg/clickhouse"
	"PredWatch/pkg/config"
	xhttp "PredWatch/pkg/http"
	pkgkafka "PredWatch/pkg/kafka"
	applogger "PredWatch/pkg/logger"
	"PredWatch/pkg/metrics"
	"PredWatch/pkg/server"
	"PredWatch/pkg/sqlite"
	"PredWatch/pkg/stats"
)

// ProvideLogger builds the app logger and, when Kafka is configured,
// attaches the aggregating collector that ships error logs to a topic.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	if producer != nil && cfg.Kafka.LogsTopic != "" {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.LogsTopic,
			Publisher:      &logPublisher{producer: producer},
		})
	}
	return l, nil
}

// logPublisher adapts the Kafka producer to the collector's interface.
type logPublisher struct {
	producer *pkgkafka.Producer
}

func (p *logPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.producer.Publish(ctx, topic, nil, payload)
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates the primary store client and ensures
// the schema exists.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.ClickHouseSchema); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideSQLiteClient opens the local mirror database and ensures the
// schema exists.
func ProvideSQLiteClient(cfg *config.Config) (*sqlite.Client, error) {
	client, err := sqlite.Open(cfg.Mirror.Dir, "predwatch.db")
	if err != nil {
		return nil, fmt.Errorf("sqlite client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.SQLiteSchema); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return client, nil
}

// ProvideCache creates the Redis cache, or nil when disabled. Callers
// treat a nil cache as a pass-through.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	c, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix("predwatch"),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return c, nil
}

// ProvideKafkaProducer creates the producer, or nil when Kafka is
// disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.WriteTimeout),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideNotifier delivers alerts via Kafka when configured, otherwise
// to the structured log.
func ProvideNotifier(cfg *config.Config, producer *pkgkafka.Producer, logger *applogger.Logger) repository.Notifier {
	if producer != nil && cfg.Kafka.AlertsTopic != "" {
		return internalrepo.NewKafkaNotifier(producer, cfg.Kafka.AlertsTopic)
	}
	return internalrepo.NewLogNotifier(logger)
}

// ProvideObservationStore assembles the failover pair: ClickHouse
// primary, SQLite mirror.
func ProvideObservationStore(
	chClient *pkgch.Client,
	sqClient *sqlite.Client,
	m repository.Metrics,
	logger *applogger.Logger,
) *internalrepo.FailoverObservationStore {
	return internalrepo.NewFailoverObservationStore(
		internalrepo.NewCHObservationStore(chClient.DB()),
		internalrepo.NewSQLiteObservationStore(sqClient.DB()),
		m, logger,
	)
}

// ProvidePrimaryLedger creates the ClickHouse ledger backend.
func ProvidePrimaryLedger(chClient *pkgch.Client) repository.PredictionStore {
	return internalrepo.NewCHLedger(chClient.DB())
}

// ProvideMirrorLedger creates the SQLite ledger mirror.
func ProvideMirrorLedger(sqClient *sqlite.Client) repository.MirrorStore {
	return internalrepo.NewSQLiteLedger(sqClient.DB())
}

// ProvideDriftStore creates the append-only drift audit trail.
func ProvideDriftStore(chClient *pkgch.Client) repository.DriftStore {
	return internalrepo.NewCHDriftStore(chClient.DB())
}

// ProvideSnapshotRegistry creates the snapshot registry. It lives in
// SQLite because the promote swap needs a real transaction.
func ProvideSnapshotRegistry(sqClient *sqlite.Client) repository.SnapshotRegistry {
	return internalrepo.NewSQLiteSnapshotRegistry(sqClient.DB())
}

// ProvideDataSource assembles the provider chain in priority order:
// Yahoo, then Stooq, then the durable cache, then the bundled snapshot.
func ProvideDataSource(
	cfg *config.Config,
	store *internalrepo.FailoverObservationStore,
	m repository.Metrics,
	logger *applogger.Logger,
) (*usecase.DataSource, error) {
	static, err := internalrepo.NewStaticProvider()
	if err != nil {
		return nil, fmt.Errorf("static snapshot provider: %w", err)
	}

	providers := []repository.DataProvider{
		yahooprov.New(cfg),
		stooq.New(cfg),
		internalrepo.NewCacheProvider(store),
		static,
	}
	return usecase.NewDataSource(providers, store, m, logger, cfg.Providers.ProviderTimeout), nil
}

// ProvideRefresher creates the incremental cache refresher.
func ProvideRefresher(
	cfg *config.Config,
	source *usecase.DataSource,
	store *internalrepo.FailoverObservationStore,
	logger *applogger.Logger,
) *usecase.Refresher {
	return usecase.NewRefresher(source, store, logger, cfg.Monitor.Tickers)
}

// ProvideLedger creates the dual-write prediction ledger.
func ProvideLedger(
	primary repository.PredictionStore,
	mirror repository.MirrorStore,
	m repository.Metrics,
	logger *applogger.Logger,
) *usecase.Ledger {
	return usecase.NewLedger(primary, mirror, m, logger)
}

// ProvideReconciler creates the mirror replay worker.
func ProvideReconciler(
	primary repository.PredictionStore,
	mirror repository.MirrorStore,
	logger *applogger.Logger,
) *usecase.Reconciler {
	return usecase.NewReconciler(primary, mirror, logger)
}

// ProvideValidator creates the performance validator.
func ProvideValidator(
	cfg *config.Config,
	ledger *usecase.Ledger,
	source *usecase.DataSource,
	m repository.Metrics,
	logger *applogger.Logger,
) *usecase.Validator {
	return usecase.NewValidator(ledger, source, m, logger, cfg.Monitor.GraceDays)
}

// ProvideDriftDetector creates the drift detector with its reference
// period parsed from config.
func ProvideDriftDetector(
	cfg *config.Config,
	source *usecase.DataSource,
	store *internalrepo.FailoverObservationStore,
	drifts repository.DriftStore,
	cacheSvc cache.Service,
	m repository.Metrics,
	logger *applogger.Logger,
) (*usecase.DriftDetector, error) {
	refStart, err := time.Parse("2006-01-02", cfg.Monitor.ReferenceStart)
	if err != nil {
		return nil, fmt.Errorf("monitor.reference_start: %w", err)
	}
	refEnd, err := time.Parse("2006-01-02", cfg.Monitor.ReferenceEnd)
	if err != nil {
		return nil, fmt.Errorf("monitor.reference_end: %w", err)
	}

	return usecase.NewDriftDetector(
		source, store, drifts,
		stats.KolmogorovSmirnov{},
		cacheSvc, m, logger,
		cfg.Monitor.DriftWindowDays,
		cfg.Monitor.Significance,
		refStart, refEnd,
	), nil
}

// ProvideAlertManager creates the alert decision layer.
func ProvideAlertManager(cfg *config.Config, notifier repository.Notifier, logger *applogger.Logger) *usecase.AlertManager {
	return usecase.NewAlertManager(cfg.Thresholds, notifier, logger)
}

// ProvideSnapshotService creates the snapshot read-through service.
func ProvideSnapshotService(
	registry repository.SnapshotRegistry,
	cacheSvc cache.Service,
	logger *applogger.Logger,
) *usecase.SnapshotService {
	return usecase.NewSnapshotService(registry, cacheSvc, logger)
}

// ProvideTrainer creates the training collaborator client.
func ProvideTrainer(cfg *config.Config) repository.Trainer {
	return training.New(cfg)
}

// ProvideInferencer creates the inference collaborator client.
func ProvideInferencer(cfg *config.Config) repository.Inferencer {
	return inference.New(cfg)
}

// ProvideRetrainEngine creates the retrain decision engine.
func ProvideRetrainEngine(
	cfg *config.Config,
	trainer repository.Trainer,
	snapshots *usecase.SnapshotService,
	drift *usecase.DriftDetector,
	cacheSvc cache.Service,
	m repository.Metrics,
	logger *applogger.Logger,
) *usecase.RetrainEngine {
	return usecase.NewRetrainEngine(
		trainer, snapshots, drift, cacheSvc, m, logger,
		cfg.Retrain.Tolerance, cfg.Retrain.MaxMAPE, cfg.Retrain.MinR2,
		cfg.Retrain.TrainYears,
	)
}

// ProvidePredictor creates the forecast recording worker.
func ProvidePredictor(
	cfg *config.Config,
	inferencer repository.Inferencer,
	source *usecase.DataSource,
	ledger *usecase.Ledger,
	snapshots *usecase.SnapshotService,
	logger *applogger.Logger,
) *usecase.Predictor {
	return usecase.NewPredictor(inferencer, source, ledger, snapshots, logger, cfg.Monitor.Tickers)
}

// ProvideDiagnoser creates the diagnostics collector.
func ProvideDiagnoser(
	store *internalrepo.FailoverObservationStore,
	ledger *usecase.Ledger,
	mirror repository.MirrorStore,
	drifts repository.DriftStore,
	primary repository.PredictionStore,
	snapshots *usecase.SnapshotService,
	logger *applogger.Logger,
) *usecase.Diagnoser {
	return usecase.NewDiagnoser(store, ledger, mirror, drifts, primary, snapshots, logger)
}

// ProvideScheduler creates the periodic worker runner.
func ProvideScheduler(
	cfg *config.Config,
	refresher *usecase.Refresher,
	predictor *usecase.Predictor,
	validator *usecase.Validator,
	drift *usecase.DriftDetector,
	alerts *usecase.AlertManager,
	reconciler *usecase.Reconciler,
	retrain *usecase.RetrainEngine,
	logger *applogger.Logger,
) *usecase.Scheduler {
	return usecase.NewScheduler(cfg, refresher, predictor, validator, drift, alerts, reconciler, retrain, logger)
}

// ProvideHandler creates the monitoring HTTP handler.
func ProvideHandler(
	logger *applogger.Logger,
	validator *usecase.Validator,
	drift *usecase.DriftDetector,
	diagnoser *usecase.Diagnoser,
	snapshots *usecase.SnapshotService,
) xhttp.Handler {
	return api.NewMonitorEchoHandler(logger, validator, drift, diagnoser, snapshots)
}

// ProvideApp creates the application server and registers the optional
// resources for shutdown.
func ProvideApp(
	cfg *config.Config,
	logger *applogger.Logger,
	scheduler *usecase.Scheduler,
	handler xhttp.Handler,
	chClient *pkgch.Client,
	sqClient *sqlite.Client,
	producer *pkgkafka.Producer,
	cacheSvc cache.Service,
	notifier repository.Notifier,
) *server.App {
	app := server.New(cfg, logger, scheduler, handler, chClient, sqClient)
	if producer != nil {
		app.AddCloser(producer.Close)
	}
	if rc, ok := cacheSvc.(*cache.RedisCache); ok && rc != nil {
		app.AddCloser(rc.Close)
	}
	app.AddCloser(notifier.Close)
	return app
}
