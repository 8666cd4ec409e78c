package di

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"ClaimReserve/internal/domain/repository"
	"ClaimReserve/internal/domain/service"
	"ClaimReserve/internal/handler/api"
	internalrepo "ClaimReserve/internal/repository"
	"ClaimReserve/internal/service/metrics"
	"ClaimReserve/internal/service/ratelimit"
	"ClaimReserve/internal/services/chainladder"
	"ClaimReserve/internal/usecase"
	"ClaimReserve/pkg/cache"
	pkgch "ClaimReserve/pkg/clickhouse"
	"ClaimReserve/pkg/config"
	xhttp "ClaimReserve/pkg/http"
	"ClaimReserve/pkg/http/middleware"
	pkgkafka "ClaimReserve/pkg/kafka"
	applogger "ClaimReserve/pkg/logger"
	pkgmetrics "ClaimReserve/pkg/metrics"
	"ClaimReserve/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideRegistry creates the Prometheus registry shared by every collector.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) repository.Metrics {
	return pkgmetrics.New(reg)
}

// ProvideEndpointMetrics creates per-endpoint latency metrics.
func ProvideEndpointMetrics(reg *prometheus.Registry) *metrics.Endpoints {
	return metrics.NewEndpoints(reg)
}

// ProvideEngine creates the Chain-Ladder engine from the analysis section.
func ProvideEngine(cfg *config.Config) *chainladder.Engine {
	return chainladder.NewEngine(chainladder.Config{
		CurrentPeriod:      cfg.Analysis.CurrentPeriod,
		Seed:               cfg.Analysis.Seed,
		HistoryWindow:      cfg.Analysis.HistoryWindow,
		DevelopmentPeriods: cfg.Analysis.DevelopmentPeriods,
		MaskUnobserved:     cfg.Analysis.Masked(),
	})
}

// ProvideAnalyzer exposes the engine through the domain interface.
func ProvideAnalyzer(engine *chainladder.Engine) service.ReserveAnalyzer {
	return engine
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
// When the log collector is enabled, aggregated error logs are shipped
// through the same producer.
func ProvideKafkaProducer(cfg *config.Config, reg *prometheus.Registry, l *applogger.Logger) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(reg,
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	if cfg.Logging.Collector.Enabled {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cfg.Logging.Collector.Interval,
			CountThreshold: cfg.Logging.Collector.CountThreshold,
			Topic:          cfg.Logging.Collector.Topic,
			Publisher:      producer,
		})
	}
	return producer, nil
}

// ProvideResultPublisher publishes reserve events, or returns nil without a producer.
func ProvideResultPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.ResultPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaResultPublisher(producer, cfg.Kafka.ResultTopic)
}

// ProvideResultCache creates the analysis cache: memory only, or memory in
// front of Redis. Returns nil when caching is disabled.
func ProvideResultCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	mem := cache.NewMemoryCache(
		cache.WithMemoryMaxSize(cfg.Cache.MaxItems),
		cache.WithMemoryDefaultTTL(cfg.Cache.TTL),
	)
	if !cfg.Cache.Redis.Enabled {
		return mem, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	remote, err := cache.NewRedisCache(ctx,
		cache.WithRedisAddr(cfg.Cache.Redis.Addr),
		cache.WithRedisPassword(cfg.Cache.Redis.Password),
		cache.WithRedisDB(cfg.Cache.Redis.DB),
	)
	if err != nil {
		_ = mem.Close()
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(mem, remote, time.Minute), nil
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := pkgch.NewClient(ctx,
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvidePolicySource creates the portfolio store over ClickHouse.
func ProvidePolicySource(client *pkgch.Client, cfg *config.Config) (repository.PolicySource, error) {
	if client == nil {
		return nil, nil
	}
	table := cfg.ClickHouse.PolicyTable
	if !strings.Contains(table, ".") && cfg.ClickHouse.Database != "" {
		table = cfg.ClickHouse.Database + "." + table
	}
	store, err := internalrepo.NewCHPolicyStore(client.DB(), table, cfg.Upload.MaxRows)
	if err != nil {
		return nil, fmt.Errorf("policy store: %w", err)
	}
	return store, nil
}

// ProvideReserveAnalysis creates the analysis use case with every optional
// collaborator that is configured.
func ProvideReserveAnalysis(
	analyzer service.ReserveAnalyzer,
	engine *chainladder.Engine,
	m repository.Metrics,
	src repository.PolicySource,
	pub repository.ResultPublisher,
	c cache.Service,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.ReserveAnalysis {
	opts := []usecase.Option{usecase.WithLogger(l)}
	if src != nil {
		opts = append(opts, usecase.WithPolicySource(src))
	}
	if pub != nil {
		opts = append(opts, usecase.WithPublisher(pub))
	}
	if c != nil {
		opts = append(opts, usecase.WithResultCache(c, cfg.Cache.TTL, fmt.Sprintf("%+v", engine.Config())))
	}
	return usecase.NewReserveAnalysis(analyzer, m, opts...)
}

// ProvideCSVReader creates the upload parser.
func ProvideCSVReader(cfg *config.Config) *internalrepo.CSVPolicyReader {
	return internalrepo.NewCSVPolicyReader(cfg.Upload.MaxRows)
}

// ProvideRateLimiter creates the per-client limiter for analysis routes.
func ProvideRateLimiter(cfg *config.Config) middleware.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(cfg.RateLimit.Rate, cfg.RateLimit.Burst)
}

// ProvideHTTPHandler creates the API handler.
func ProvideHTTPHandler(
	l *applogger.Logger,
	analysis *usecase.ReserveAnalysis,
	reader *internalrepo.CSVPolicyReader,
	limiter middleware.Limiter,
	endpoints *metrics.Endpoints,
) *api.ReserveEchoHandler {
	return api.NewReserveEchoHandler(l, analysis, reader, limiter, endpoints)
}

// ProvideHTTPServer creates the Echo server.
func ProvideHTTPServer(cfg *config.Config, h *api.ReserveEchoHandler, reg *prometheus.Registry, l *applogger.Logger) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithBodyLimit(cfg.Upload.MaxBytes),
		xhttp.WithCORS(true, cfg.Server.AllowOrigins...),
		xhttp.WithLogger(l),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(cfg.Metrics.Path, reg, reg))
	}
	return xhttp.NewServer(h, opts...)
}

// ProvideKafkaConsumer creates the analysis request consumer, or nil when
// consumption is disabled.
func ProvideKafkaConsumer(cfg *config.Config, reg *prometheus.Registry, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(l, reg,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaAnalysisHandler creates the handler for the request topic.
func ProvideKafkaAnalysisHandler(cfg *config.Config, analysis *usecase.ReserveAnalysis, m repository.Metrics) *usecase.KafkaAnalysisHandler {
	return usecase.NewKafkaAnalysisHandler(cfg.Kafka.RequestTopic, analysis, m)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaAnalysisHandler,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
	c cache.Service,
) *server.App {
	app := server.New(cfg, l, httpServer)
	if consumer != nil {
		app.WithConsumer(consumer, kh)
	}
	if c != nil {
		app.OnClose("result cache", c.Close)
	}
	if chClient != nil {
		app.OnClose("clickhouse", chClient.Close)
	}
	if producer != nil {
		// the log collector publishes through the producer, so stop it first
		app.OnClose("log collector", func() error { l.RemoveCollector(); return nil })
		app.OnClose("kafka producer", producer.Close)
	}
	return app
}
