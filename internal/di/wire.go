//go:build wireinject
// +build wireinject

package di

import (
	"PredWatch/internal/usecase"
	"PredWatch/pkg/config"
	"PredWatch/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideMetrics,
		ProvideKafkaProducer,
		ProvideLogger,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideSQLiteClient,
		ProvideCache,

		// Repositories
		ProvideObservationStore,
		ProvidePrimaryLedger,
		ProvideMirrorLedger,
		ProvideDriftStore,
		ProvideSnapshotRegistry,
		ProvideNotifier,

		// Collaborators
		ProvideTrainer,
		ProvideInferencer,

		// Use cases
		ProvideDataSource,
		ProvideRefresher,
		ProvideLedger,
		ProvideReconciler,
		ProvideValidator,
		ProvideDriftDetector,
		ProvideAlertManager,
		ProvideSnapshotService,
		ProvideRetrainEngine,
		ProvidePredictor,
		ProvideDiagnoser,
		ProvideScheduler,

		// HTTP surface and application server
		ProvideHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}

// InitializeRetrain wires only what a one-shot retrain cycle needs. The
// cleanup closes the storage clients.
func InitializeRetrain(cfg *config.Config) (*usecase.RetrainEngine, func(), error) {
	wire.Build(
		ProvideMetrics,
		ProvideKafkaProducer,
		ProvideLogger,
		ProvideClickHouseClient,
		ProvideSQLiteClient,
		ProvideCache,
		ProvideObservationStore,
		ProvideDriftStore,
		ProvideSnapshotRegistry,
		ProvideTrainer,
		ProvideDataSource,
		ProvideDriftDetector,
		ProvideSnapshotService,
		ProvideRetrainEngine,
	)
	return nil, nil, nil
}
