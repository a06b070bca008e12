//go:build wireinject
// +build wireinject

package di

import (
	"TrendPulse/pkg/config"
	"TrendPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideTrendSource,
		ProvideCacheStore,
		ProvideCooldownGate,
		ProvideReportPublisher,
		ProvideChartRenderer,

		// Use cases
		ProvideTrendFetcher,
		ProvideDashboard,

		// HTTP
		ProvideLimiter,
		ProvideDashboardHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
