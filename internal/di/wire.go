//go:build wireinject
// +build wireinject

package di

import (
	"ClaimReserve/pkg/config"
	"ClaimReserve/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideRegistry,
		ProvideMetrics,
		ProvideEndpointMetrics,

		// Core
		ProvideEngine,
		ProvideAnalyzer,

		// Infrastructure clients (nil when disabled)
		ProvideKafkaProducer,
		ProvideClickHouseClient,
		ProvideResultCache,

		// Repositories
		ProvideResultPublisher,
		ProvidePolicySource,
		ProvideCSVReader,

		// Use cases
		ProvideReserveAnalysis,
		ProvideKafkaAnalysisHandler,

		// Transport
		ProvideRateLimiter,
		ProvideHTTPHandler,
		ProvideHTTPServer,
		ProvideKafkaConsumer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
