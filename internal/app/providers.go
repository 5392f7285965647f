package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"sentinel/internal/account"
	"sentinel/internal/analysis/indicator"
	"sentinel/internal/analysis/veto"
	"sentinel/internal/audit"
	"sentinel/internal/config"
	"sentinel/internal/debate"
	"sentinel/internal/gateway/cache"
	"sentinel/internal/gateway/notifier"
	"sentinel/internal/gateway/provider"
	"sentinel/internal/gateway/stream"
	"sentinel/internal/judge"
	"sentinel/internal/logger"
	"sentinel/internal/metrics"
	"sentinel/internal/monitor"
	"sentinel/internal/pkg/circuit"
	"sentinel/internal/pkg/decimalx"
	"sentinel/internal/pkg/resilience"
	"sentinel/internal/retrieval"
	"sentinel/internal/store/gormstore"
	httpapi "sentinel/internal/transport/http"
)

func ProvideMetrics() *metrics.Recorder {
	return metrics.New()
}

// ProvideBreaker builds the breaker shared by every LLM call.
func ProvideBreaker(cfg *config.Config, rec *metrics.Recorder) *circuit.CircuitBreaker {
	r := cfg.Resilience
	cb := circuit.New(circuit.Settings{
		Name:             "llm",
		FailureThreshold: r.FailureThreshold,
		SuccessThreshold: r.SuccessThreshold,
		RecoveryTimeout:  time.Duration(r.RecoveryTimeoutSeconds) * time.Second,
	})
	cb.SetStateChangeHandler(rec.BreakerStateChanged)
	rec.TrackBreaker(cb)
	return cb
}

func ProvideCaller(cfg *config.Config, cb *circuit.CircuitBreaker) *resilience.Caller {
	r := cfg.Resilience
	policy := resilience.Policy{
		MaxRetries:     r.MaxRetries,
		BaseDelay:      time.Duration(r.BaseDelayMS) * time.Millisecond,
		MaxDelay:       time.Duration(r.MaxDelayMS) * time.Millisecond,
		AttemptTimeout: time.Duration(r.AttemptTimeoutSeconds) * time.Second,
		Jitter:         r.Jitter,
		FailFastOnOpen: r.FailFastOnOpen,
	}
	var opts []resilience.Option
	if r.RatePerSecond > 0 {
		burst := r.RateBurst
		if burst <= 0 {
			burst = 1
		}
		opts = append(opts, resilience.WithLimiter(rate.NewLimiter(rate.Limit(r.RatePerSecond), burst)))
	}
	return resilience.NewCaller(cb, policy, opts...)
}

// ProvideGenerator returns nil when the LLM is disabled; agents then argue
// from indicators alone.
func ProvideGenerator(ctx context.Context, cfg *config.Config, caller *resilience.Caller, rec *metrics.Recorder) (provider.TextGenerator, error) {
	l := cfg.LLM
	if !l.Enabled {
		logger.Infof("llm disabled, debate runs on indicator arguments only")
		return nil, nil
	}
	gen, err := provider.Build(ctx, l.Provider, provider.OpenAIConfig{
		BaseURL:      l.BaseURL,
		APIKey:       l.APIKey,
		Model:        l.Model,
		Temperature:  l.Temperature,
		MaxTokens:    l.MaxTokens,
		Timeout:      time.Duration(l.TimeoutSeconds) * time.Second,
		ExtraHeaders: l.Headers,
	})
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}
	return provider.NewResilient(gen, caller, rec), nil
}

func ProvideGormStore(cfg *config.Config) (*gormstore.GormStore, func(), error) {
	gs, err := gormstore.NewGormStore(cfg.Storage.TradesDB)
	if err != nil {
		return nil, nil, fmt.Errorf("trade store: %w", err)
	}
	return gs, func() {
		if err := gs.Close(); err != nil {
			logger.Warnf("close trade store: %v", err)
		}
	}, nil
}

// ProvideAuditStore shares the trade store connection when both point at
// the same file.
func ProvideAuditStore(cfg *config.Config, gs *gormstore.GormStore) (*audit.Store, func(), error) {
	st, err := openAudit(cfg.Storage, gs)
	if err != nil {
		return nil, nil, fmt.Errorf("audit store: %w", err)
	}
	return st, func() {
		if err := st.Close(); err != nil {
			logger.Warnf("close audit store: %v", err)
		}
	}, nil
}

func openAudit(sc config.StorageConfig, gs *gormstore.GormStore) (*audit.Store, error) {
	if filepath.Clean(sc.AuditDB) != filepath.Clean(sc.TradesDB) {
		return audit.Open(sc.AuditDB)
	}
	db, err := gs.SQLDB()
	if err != nil {
		return nil, err
	}
	return audit.UseDB(db)
}

// ProvideRedisCooldown returns nil when redis is disabled.
func ProvideRedisCooldown(ctx context.Context, cfg *config.Config, gs *gormstore.GormStore) (*cache.Cooldown, func(), error) {
	r := cfg.Redis
	if !r.Enabled {
		return nil, func() {}, nil
	}
	rcfg := cache.RedisConfig{
		Addr:     r.Addr,
		Password: r.Password,
		DB:       r.DB,
		PoolSize: r.PoolSize,
		Prefix:   r.Prefix,
		TTL:      time.Duration(r.TTLMinutes) * time.Minute,
	}
	client, err := cache.NewRedisClient(ctx, rcfg)
	if err != nil {
		return nil, nil, err
	}
	cd := cache.NewCooldown(client, rcfg, gs)
	return cd, func() {
		if err := cd.Close(); err != nil {
			logger.Warnf("close redis: %v", err)
		}
	}, nil
}

// ProvideCooldownStore prefers the shared redis view over the local table.
func ProvideCooldownStore(rc *cache.Cooldown, gs *gormstore.GormStore) judge.CooldownStore {
	if rc != nil {
		return rc
	}
	return gs
}

func ProvideTradeMarker(rc *cache.Cooldown) httpapi.TradeMarker {
	if rc == nil {
		return nil
	}
	return rc
}

func ProvideAccountManager(ctx context.Context, cfg *config.Config, gs *gormstore.GormStore) (*account.Manager, error) {
	m := account.NewManager(gs, nil)
	if err := m.Load(ctx); err != nil {
		return nil, err
	}
	if seed := strings.TrimSpace(cfg.Trading.AccountsSeed); seed != "" {
		n, err := m.Seed(ctx, seed)
		if err != nil {
			return nil, err
		}
		logger.Infof("seeded %d accounts from %s", n, seed)
	}
	return m, nil
}

func ProvideRetriever(gs *gormstore.GormStore) retrieval.Retriever {
	return retrieval.NewIndex(gs)
}

func ProvideIngester(gs *gormstore.GormStore) *retrieval.Ingester {
	return retrieval.NewIngester(gs)
}

func ProvideNotifier(cfg *config.Config) (notifier.TextNotifier, error) {
	tg := cfg.Notify.Telegram
	if !tg.Enabled {
		return notifier.LogNotifier{}, nil
	}
	n, err := notifier.NewTelegram(notifier.TelegramConfig{
		BotToken: tg.BotToken,
		ChatID:   tg.ChatID,
		BaseURL:  tg.BaseURL,
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

// ProvidePublisher returns nil when kafka is disabled.
func ProvidePublisher(cfg *config.Config) (*stream.Publisher, func(), error) {
	k := cfg.Kafka
	if !k.Enabled {
		return nil, func() {}, nil
	}
	pub, err := stream.NewPublisher(stream.Config{
		Brokers:     k.Brokers,
		Topic:       k.Topic,
		Compression: k.Compression,
		MaxAttempts: k.MaxAttempts,
	})
	if err != nil {
		return nil, nil, err
	}
	return pub, func() {
		if err := pub.Close(); err != nil {
			logger.Warnf("close kafka publisher: %v", err)
		}
	}, nil
}

func ProvideDispatcher(cfg *config.Config, st *audit.Store, pub *stream.Publisher, rec *metrics.Recorder) *audit.Dispatcher {
	sinks := []audit.Sink{st}
	if pub != nil {
		sinks = append(sinks, pub)
	}
	d := audit.NewDispatcher(time.Duration(cfg.Judge.HookTimeoutSeconds)*time.Second, sinks...)
	d.OnError(rec.HookFailed)
	return d
}

func ProvideMonitor(cfg *config.Config) *monitor.Monitor {
	return monitor.New(cfg.Judge.MonitorCapacity)
}

func ProvideEnricher(cfg *config.Config) *indicator.Enricher {
	ind := cfg.Trading.Indicators
	settings := indicator.Settings{
		FastPeriod:  ind.FastPeriod,
		SlowPeriod:  ind.SlowPeriod,
		TrendPeriod: ind.TrendPeriod,
		RSIPeriod:   ind.RSIPeriod,
		ATRPeriod:   ind.ATRPeriod,
	}
	return indicator.NewEnricher(settings, indicator.NewCache(time.Duration(ind.CacheTTLSeconds)*time.Second, nil))
}

func judgeParams(cfg *config.Config) (judge.Params, error) {
	mode, err := account.ParseRiskMode(cfg.Trading.RiskMode)
	if err != nil {
		return judge.Params{}, err
	}
	return judge.Params{
		CooldownMinutes: cfg.Judge.CooldownMinutes,
		HistoryK:        cfg.Judge.HistoryK,
		ConceptK:        cfg.Judge.ConceptK,
		ArbitrationMode: cfg.Judge.ArbitrationMode,
		DebateMargin:    cfg.Judge.DebateMargin,
		StopLossPct:     decimalx.FromFloat(cfg.Trading.StopLossPct),
		TakeProfitPct:   decimalx.FromFloat(cfg.Trading.TakeProfitPct),
		MinStopPips:     cfg.Trading.MinStopPips,
		PipSize:         decimalx.FromFloat(cfg.Trading.PipSize),
		RiskMode:        mode,
		DefaultAccount:  cfg.Trading.DefaultAccount,
	}, nil
}

// JudgeDeps groups the collaborators built elsewhere in the graph.
type JudgeDeps struct {
	Generator  provider.TextGenerator
	Enricher   *indicator.Enricher
	Retriever  retrieval.Retriever
	Accounts   *account.Manager
	Cooldown   judge.CooldownStore
	Dispatcher *audit.Dispatcher
	Notifier   notifier.TextNotifier
	Monitor    *monitor.Monitor
	Metrics    *metrics.Recorder
}

func ProvideJudge(cfg *config.Config, d JudgeDeps) (*judge.Judge, func(), error) {
	params, err := judgeParams(cfg)
	if err != nil {
		return nil, nil, err
	}
	deps := judge.Deps{
		Analyzer:  veto.NewEngine(cfg.Judge.VetoThreshold),
		Enricher:  d.Enricher,
		Retriever: d.Retriever,
		Pro:       debate.NewProAgent(d.Generator),
		Con:       debate.NewConAgent(d.Generator),
		Accounts:  d.Accounts,
		Cooldown:  d.Cooldown,
		Hooks:     d.Dispatcher,
		Notifier:  d.Notifier,
		Observers: []judge.Observer{d.Monitor, d.Metrics},
	}
	if params.ArbitrationMode == judge.ModeLLM {
		if d.Generator == nil {
			return nil, nil, fmt.Errorf("judge.arbitration_mode llm requires llm.enabled")
		}
		arb, err := judge.NewLLMArbiter(d.Generator)
		if err != nil {
			return nil, nil, err
		}
		deps.Arbiter = arb
	}
	j, err := judge.New(deps, params)
	if err != nil {
		return nil, nil, err
	}
	return j, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := j.Close(ctx); err != nil {
			logger.Warnf("judge hooks did not drain: %v", err)
		}
	}, nil
}

func ProvideServer(cfg *config.Config, j *judge.Judge, gs *gormstore.GormStore, marker httpapi.TradeMarker,
	accounts *account.Manager, st *audit.Store, mon *monitor.Monitor, cb *circuit.CircuitBreaker, rec *metrics.Recorder,
) (*httpapi.Server, error) {
	return httpapi.NewServer(httpapi.ServerConfig{
		Addr:      cfg.App.HTTPAddr,
		Evaluator: j,
		Trades:    gs,
		Marker:    marker,
		Accounts:  accounts,
		Audit:     st,
		Monitor:   mon,
		Breaker:   cb,
		Metrics:   rec.Handler(),
	})
}
