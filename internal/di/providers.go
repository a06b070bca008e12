package di

import (
	"fmt"

	"golang.org/x/time/rate"

	"TrendPulse/internal/domain/repository"
	domsvc "TrendPulse/internal/domain/service"
	"TrendPulse/internal/handler/api"
	internalrepo "TrendPulse/internal/repository"
	"TrendPulse/internal/service/cooldown"
	svcmetrics "TrendPulse/internal/service/metrics"
	"TrendPulse/internal/service/ratelimit"
	"TrendPulse/internal/service/trends"
	"TrendPulse/internal/services/chart"
	"TrendPulse/internal/usecase"
	"TrendPulse/pkg/cache"
	"TrendPulse/pkg/config"
	xhttp "TrendPulse/pkg/http"
	"TrendPulse/pkg/http/middleware"
	pkgkafka "TrendPulse/pkg/kafka"
	applogger "TrendPulse/pkg/logger"
	"TrendPulse/pkg/metrics"
	"TrendPulse/pkg/server"
)

// ProvideLogger creates the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	svcmetrics.Register()
	return metrics.New()
}

// ProvideTrendSource creates the Google Trends client.
func ProvideTrendSource(cfg *config.Config, l *applogger.Logger) repository.TrendSource {
	return trends.New(trends.Options{
		BaseURL:  cfg.Trends.BaseURL,
		Language: cfg.Trends.Language,
		TZOffset: cfg.Trends.TZOffset,
		Geo:      cfg.Trends.Geo,
		Timeout:  cfg.Trends.RequestTimeout,
	}, l)
}

// ProvideCacheStore creates the store backing the cooldown gate. It is nil when the
// gate is disabled.
func ProvideCacheStore(cfg *config.Config) (cache.Service, error) {
	switch cfg.Cooldown.Backend {
	case "redis":
		rc := cfg.Cooldown.Redis
		store, err := cache.NewRedisCache(
			cache.WithRedisAddr(rc.Addr),
			cache.WithRedisPassword(rc.Password),
			cache.WithRedisDB(rc.DB),
			cache.WithRedisPool(rc.PoolSize, rc.MinIdleConns, rc.PoolTimeout),
			cache.WithRedisPrefix(rc.Prefix),
		)
		if err != nil {
			return nil, fmt.Errorf("cooldown redis: %w", err)
		}
		return store, nil
	case "memory":
		mc := cfg.Cooldown.Memory
		return cache.NewMemoryCache(
			cache.WithMemoryMaxSize(mc.MaxEntries),
			cache.WithMemoryCleanup(mc.CleanupInterval),
		), nil
	default:
		return nil, nil
	}
}

// ProvideCooldownGate wraps the store in a per-keyword gate.
func ProvideCooldownGate(store cache.Service, l *applogger.Logger) repository.CooldownGate {
	if store == nil {
		return nil
	}
	return cooldown.New(store, l)
}

// ProvideTrendFetcher creates the retrying fetcher.
func ProvideTrendFetcher(
	cfg *config.Config,
	source repository.TrendSource,
	gate repository.CooldownGate,
	m repository.Metrics,
	l *applogger.Logger,
) (*usecase.TrendFetcher, error) {
	return usecase.NewTrendFetcher(source, usecase.RetryPolicy{
		MaxRetries:     cfg.Trends.MaxRetries,
		InitialBackoff: cfg.Trends.InitialBackoff,
		MaxBackoff:     cfg.Trends.MaxBackoff,
	},
		usecase.WithCooldownGate(gate),
		usecase.WithFetcherMetrics(m),
		usecase.WithFetcherLogger(l),
	)
}

// ProvideReportPublisher publishes reports to Kafka, or drops them when Kafka is off.
func ProvideReportPublisher(cfg *config.Config) (repository.ReportPublisher, error) {
	if !cfg.Kafka.Enabled {
		return internalrepo.NopPublisher{}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.WriteTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic), nil
}

// ProvideChartRenderer creates the PNG renderer.
func ProvideChartRenderer(cfg *config.Config) domsvc.ChartRenderer {
	return chart.NewPNGRenderer(chart.Options{
		WidthInches:  cfg.Chart.WidthInches,
		HeightInches: cfg.Chart.HeightInches,
		WindowDays:   cfg.Trends.WindowDays,
	})
}

// ProvideDashboard creates the fetch, compare and render use case.
func ProvideDashboard(
	cfg *config.Config,
	fetcher *usecase.TrendFetcher,
	renderer domsvc.ChartRenderer,
	pub repository.ReportPublisher,
	m repository.Metrics,
	l *applogger.Logger,
) (*usecase.Dashboard, error) {
	return usecase.NewDashboard(usecase.DashboardConfig{
		Keyword:       cfg.Trends.Keyword,
		WindowDays:    cfg.Trends.WindowDays,
		ShareBoundary: cfg.Trends.ShareBoundary,
		BuildTimeout:  cfg.Trends.RequestDeadline,
	}, fetcher, usecase.NewGrowthCalculator(), renderer,
		usecase.WithPublisher(pub),
		usecase.WithDashboardMetrics(m),
		usecase.WithDashboardLogger(l),
	)
}

// ProvideLimiter creates the per-client token bucket, or nil when disabled.
func ProvideLimiter(cfg *config.Config) *ratelimit.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(rate.Limit(cfg.RateLimit.RefillPerSec), cfg.RateLimit.Burst, cfg.RateLimit.IdleAfter)
}

// ProvideDashboardHandler creates the echo handler.
func ProvideDashboardHandler(
	cfg *config.Config,
	l *applogger.Logger,
	dash *usecase.Dashboard,
	limiter *ratelimit.Limiter,
) *api.DashboardEchoHandler {
	var lim middleware.Limiter
	if limiter != nil {
		lim = limiter
	}
	return api.NewDashboardEchoHandler(l, dash, lim, cfg.Trends.RequestDeadline)
}

// ProvideHTTPServer creates the echo server with the page templates.
func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, h *api.DashboardEchoHandler) (*xhttp.Server, error) {
	renderer, err := xhttp.NewTemplateRenderer(api.Templates, api.TemplatePattern)
	if err != nil {
		return nil, err
	}
	return xhttp.NewServer(h,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS.Enabled, cfg.Server.CORS.AllowOrigins...),
		xhttp.WithMetrics(cfg.Metrics.Enabled, cfg.Metrics.Path),
		xhttp.WithRenderer(renderer),
		xhttp.WithLogger(l),
	), nil
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	pub repository.ReportPublisher,
	store cache.Service,
	limiter *ratelimit.Limiter,
) *server.App {
	return server.New(cfg, l, srv,
		server.WithCloser("report publisher", pub),
		server.WithCloser("cooldown store", store),
		server.WithLimiter(limiter),
	)
}
