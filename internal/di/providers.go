package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"PerpDesk/internal/domain/models"
	"PerpDesk/internal/domain/repository"
	dsvc "PerpDesk/internal/domain/service"
	"PerpDesk/internal/handler/api"
	internalrepo "PerpDesk/internal/repository"
	"PerpDesk/internal/service/hyperliquid"
	"PerpDesk/internal/service/ratelimit"
	"PerpDesk/internal/services/anchoring"
	"PerpDesk/internal/services/features"
	"PerpDesk/internal/services/llm"
	"PerpDesk/internal/services/signals"
	"PerpDesk/internal/services/validation"
	"PerpDesk/internal/usecase"
	"PerpDesk/pkg/cache"
	pkgch "PerpDesk/pkg/clickhouse"
	"PerpDesk/pkg/config"
	pkgkafka "PerpDesk/pkg/kafka"
	applogger "PerpDesk/pkg/logger"
	"PerpDesk/pkg/metrics"
	"PerpDesk/pkg/server"
)

const initTimeout = 10 * time.Second

// Container holds everything a command may need.
type Container struct {
	Config    *config.Config
	Logger    *applogger.Logger
	Collector *usecase.Collector
	Analysis  *usecase.Analysis
	Status    *usecase.Status
	Signals   repository.SignalLog
	App       *server.App
}

// ProvideLogger builds the root logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

func ProvideRiskLimits(cfg *config.Config) models.RiskLimits {
	r := cfg.Risk
	return models.RiskLimits{
		EquityUSD:          r.EquityUSD,
		MaxRiskPerTradePct: r.MaxRiskPerTradePct,
		MaxTotalRiskPct:    r.MaxTotalRiskPct,
		MinLeverage:        r.MinLeverage,
		MaxLeverage:        r.MaxLeverage,
		MarginBudgetPct:    r.MarginBudgetPct,
		MinRewardRisk:      r.MinRewardRisk,
	}
}

// ProvideCache returns the in-process cache, or Redis fronted by a small
// in-process layer when cache.backend is redis.
func ProvideCache(cfg *config.Config, l *applogger.Logger) (cache.Service, func(), error) {
	if cfg.Cache.Backend != "redis" {
		c := cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize))
		return c, func() { _ = c.Close() }, nil
	}
	rc := cfg.Cache.Redis
	redisCache, err := cache.NewRedisCache(
		cache.WithRedisHost(rc.Host),
		cache.WithRedisPort(rc.Port),
		cache.WithRedisPassword(rc.Password),
		cache.WithRedisDB(rc.DB),
		cache.WithRedisPrefix(rc.Prefix),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis cache: %w", err)
	}
	l.Info("redis cache connected", applogger.String("host", rc.Host), applogger.Int("port", rc.Port))
	lc := cache.NewLayeredCache(redisCache, cfg.Cache.MemoryMaxSize, 10*time.Second)
	return lc, func() { _ = lc.Close() }, nil
}

func ProvideSnapshotStore(cfg *config.Config, l *applogger.Logger) (repository.SnapshotStore, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	store, err := internalrepo.OpenSQLiteSnapshotStore(ctx, cfg.Storage.SnapshotDB, l)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot store: %w", err)
	}
	return store, func() {
		if err := store.Close(); err != nil {
			l.Warn("snapshot store close error", applogger.Error(err))
		}
	}, nil
}

func ProvideSignalLog(cfg *config.Config, l *applogger.Logger) repository.SignalLog {
	return internalrepo.NewJSONLSignalLog(cfg.Storage.SignalLog, l)
}

func ProvideAnalysisLog(cfg *config.Config, l *applogger.Logger) repository.AnalysisLog {
	return internalrepo.NewJSONLAnalysisLog(cfg.Storage.AnalysisLog, l)
}

// ProvideKafkaProducer returns nil when kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	k := cfg.Kafka
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(k.Brokers),
		pkgkafka.WithCompression(k.Compression),
		pkgkafka.WithRequiredAcks(k.RequiredAcks),
		pkgkafka.WithBatchSize(k.Producer.BatchSize),
		pkgkafka.WithBatchBytes(k.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(k.Producer.Linger),
		pkgkafka.WithTimeouts(k.Producer.WriteTimeout, k.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(k.Producer.MaxAttempts),
		pkgkafka.WithAsync(k.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvidePublisher owns the producer and closes it on cleanup.
func ProvidePublisher(cfg *config.Config, producer *pkgkafka.Producer, l *applogger.Logger) (repository.EventPublisher, func()) {
	if producer == nil {
		return internalrepo.NopPublisher{}, func() {}
	}
	pub := internalrepo.NewKafkaPublisher(producer, cfg.Kafka.SignalTopic, cfg.Kafka.AnalysisTopic)
	l.Info("kafka publishing enabled",
		applogger.Strings("brokers", cfg.Kafka.Brokers),
		applogger.String("signals", cfg.Kafka.SignalTopic),
		applogger.String("analyses", cfg.Kafka.AnalysisTopic),
	)
	return pub, func() {
		if err := pub.Close(); err != nil {
			l.Warn("kafka producer close error", applogger.Error(err))
		}
	}
}

// ProvideClickHouseClient returns nil when clickhouse is disabled.
func ProvideClickHouseClient(cfg *config.Config, l *applogger.Logger) (*pkgch.Client, func(), error) {
	if !cfg.ClickHouse.Enabled {
		return nil, func() {}, nil
	}
	ch := cfg.ClickHouse
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	client, err := pkgch.NewClient(ctx,
		pkgch.WithHost(ch.Host),
		pkgch.WithPort(ch.Port),
		pkgch.WithDatabase(ch.Database),
		pkgch.WithCredentials(ch.User, ch.Password),
		pkgch.WithHTTP(ch.UseHTTP),
		pkgch.WithAsyncInsert(ch.AsyncInsert, ch.WaitForAsync),
		pkgch.WithTimeouts(ch.DialTimeout, ch.ReadTimeout),
		pkgch.WithMaxExecutionTime(ch.MaxExecutionTime),
		pkgch.WithMaxConnections(ch.MaxOpenConns, ch.MaxIdleConns),
		pkgch.WithLogger(l),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, func() {
		if err := client.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}, nil
}

func ProvideFeatureSink(client *pkgch.Client, l *applogger.Logger) (repository.FeatureSink, error) {
	if client == nil {
		return internalrepo.NopFeatureSink{}, nil
	}
	sink := internalrepo.NewCHFeatureSink(client)
	sink.SetLogger(l)

	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	if err := sink.Init(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return sink, nil
}

func ProvideMetrics() repository.Metrics {
	return metrics.Default()
}

// ProvideCollectorLimiter bounds requests to the info endpoint.
func ProvideCollectorLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Collector.RateLimitRPS, cfg.Collector.RateLimitBurst)
}

func ProvideHyperliquidClient(cfg *config.Config, limiter *ratelimit.Limiter, l *applogger.Logger) *hyperliquid.Client {
	c := cfg.Collector
	return hyperliquid.NewClient(hyperliquid.Config{
		InfoURL:     c.InfoURL,
		Timeout:     c.RequestTimeout,
		BookSigFigs: c.BookSigFigs,
		Lookback: hyperliquid.Lookback{
			Bars15m: c.Lookback.Bars15m,
			Bars1h:  c.Lookback.Bars1h,
			Bars4h:  c.Lookback.Bars4h,
			Bars1d:  c.Lookback.Bars1d,
		},
	}, limiter, l)
}

func ProvideFeatureEngine(cfg *config.Config, risk models.RiskLimits, l *applogger.Logger) *features.Engine {
	return features.NewEngine(cfg.Assets, risk,
		features.WithCadence(cfg.Collector.PollInterval),
		features.WithATRPeriod(cfg.Features.ATRPeriod),
		features.WithIntradayWindow(cfg.Features.IntradayWindow),
		features.WithLogger(l),
	)
}

func ProvideValidator(cfg *config.Config, risk models.RiskLimits, l *applogger.Logger) *validation.Validator {
	return validation.New(risk,
		validation.WithLogger(l),
		validation.WithResizeOnScale(cfg.Analysis.ResizeOnScale),
	)
}

func ProvideAnchorBuilder(l *applogger.Logger) *anchoring.Builder {
	return anchoring.NewBuilder(anchoring.WithLogger(l))
}

func ProvideTracker(cfg *config.Config, l *applogger.Logger) *signals.Tracker {
	return signals.NewTracker(cfg.Assets,
		signals.WithLargeMovePct(cfg.Features.LargeMovePct),
		signals.WithLogger(l),
	)
}

// ProvideAnalyzer returns the configured provider behind a circuit breaker,
// or nil when no API key is set.
func ProvideAnalyzer(cfg *config.Config, l *applogger.Logger) (dsvc.Analyzer, error) {
	c := cfg.LLM
	url := c.OpenAIURL
	if c.Provider == llm.ProviderAnthropic {
		url = c.AnthropicURL
	}
	client, err := llm.New(llm.Config{
		Provider:    c.Provider,
		Model:       c.Model,
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
		Timeout:     c.Timeout,
		APIKey:      cfg.LLMAPIKey(),
		URL:         url,
	}, l)
	if errors.Is(err, llm.ErrMissingAPIKey) {
		l.Warn("no LLM API key configured, analysis limited to dry runs", applogger.String("provider", c.Provider))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return llm.NewBreaker(client, llm.BreakerConfig{
		Name:        c.Provider,
		MaxFailures: c.Breaker.MaxFailures,
		OpenTimeout: c.Breaker.OpenTimeout,
	}, l), nil
}

func ProvideCollector(
	cfg *config.Config,
	source dsvc.SnapshotSource,
	store repository.SnapshotStore,
	signalLog repository.SignalLog,
	tracker dsvc.SignalTracker,
	pub repository.EventPublisher,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.Collector {
	return usecase.NewCollector(usecase.CollectorDeps{
		Source:    source,
		Store:     store,
		Signals:   signalLog,
		Tracker:   tracker,
		Publisher: pub,
		Metrics:   m,
		Logger:    l,
	}, cfg.Assets, cfg.Collector.PollInterval)
}

func ProvideAnalysis(
	cfg *config.Config,
	store repository.SnapshotStore,
	signalLog repository.SignalLog,
	analyses repository.AnalysisLog,
	builder dsvc.StateBuilder,
	validator dsvc.OutputValidator,
	anchor dsvc.AnchorBuilder,
	analyzer dsvc.Analyzer,
	c cache.Service,
	pub repository.EventPublisher,
	sink repository.FeatureSink,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.Analysis {
	return usecase.NewAnalysis(usecase.AnalysisDeps{
		Store:     store,
		Signals:   signalLog,
		Analyses:  analyses,
		Builder:   builder,
		Validator: validator,
		Anchor:    anchor,
		LLM:       analyzer,
		Cache:     c,
		Publisher: pub,
		Sink:      sink,
		Metrics:   m,
		Logger:    l,
	}, usecase.AnalysisConfig{
		Window:     cfg.Features.SnapshotWindow,
		Cooldown:   cfg.Analysis.Cooldown,
		MaxSignals: cfg.Analysis.MaxSignals,
		LockTTL:    cfg.Analysis.LockTTL,
		StateTTL:   cfg.Analysis.StateCacheTTL,
		Provider:   cfg.LLM.Provider,
		Model:      cfg.LLM.Model,
	})
}

func ProvideStatus(cfg *config.Config, store repository.SnapshotStore, signalLog repository.SignalLog, analyses repository.AnalysisLog) *usecase.Status {
	return usecase.NewStatus(store, signalLog, analyses, cfg.Assets)
}

func ProvideAPIHandler(cfg *config.Config, analysis *usecase.Analysis, status *usecase.Status, signalLog repository.SignalLog, l *applogger.Logger) *api.Handler {
	return api.NewHandler(analysis, status, signalLog,
		api.WithAnalyzeLimiter(ratelimit.New(cfg.Server.AnalyzeRPS, cfg.Server.AnalyzeBurst)),
		api.WithFeedInterval(cfg.Server.FeedInterval),
		api.WithLogger(l),
	)
}

func ProvideApp(cfg *config.Config, l *applogger.Logger, collector *usecase.Collector, handler *api.Handler) *server.App {
	return server.New(cfg, l, collector, handler)
}
