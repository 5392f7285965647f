package config

import "strings"

const (
	defaultAppEnv          = "dev"
	defaultAppLogLevel     = "info"
	defaultAppLogFormat    = "text"
	defaultAppHTTPAddr     = ":9991"
	defaultLLMProvider     = "openai"
	defaultLLMModel        = "gpt-4o-mini"
	defaultLLMTemperature  = 0.2
	defaultLLMMaxTokens    = 1024
	defaultLLMTimeout      = 60
	defaultFailThreshold   = 5
	defaultSuccessThresh   = 2
	defaultRecoverySeconds = 60
	defaultMaxRetries      = 3
	defaultBaseDelayMS     = 1000
	defaultMaxDelayMS      = 10000
	defaultAttemptTimeout  = 30
	defaultJitter          = 0.2
	defaultArbitration     = "debate"
	defaultDebateMargin    = 0.15
	defaultVetoThreshold   = 0.7
	defaultCooldownMinutes = 15
	defaultHistoryK        = 3
	defaultConceptK        = 2
	defaultHookTimeout     = 10
	defaultMonitorCapacity = 200
	defaultRiskMode        = "balanced"
	defaultStopLossPct     = 0.01
	defaultTakeProfitPct   = 0.02
	defaultMinStopPips     = 10
	defaultPipSize         = 0.0001
	defaultIndicatorTTL    = 60
	defaultAuditDB         = "data/audit.db"
	defaultTradesDB        = "data/sentinel.db"
	defaultRedisAddr       = "localhost:6379"
	defaultRedisPrefix     = "sentinel"
	defaultKafkaTopic      = "sentinel.decisions"
	defaultKafkaCompress   = "gzip"
	defaultKafkaAttempts   = 3
)

func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.LLM.applyDefaults(keys)
	c.Resilience.applyDefaults(keys)
	c.Judge.applyDefaults(keys)
	c.Trading.applyDefaults(keys)
	c.Storage.applyDefaults(keys)
	c.Redis.applyDefaults(keys)
	c.Kafka.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.log_format", &a.LogFormat, defaultAppLogFormat),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
	)
}

func (l *LLMConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("llm.provider", &l.Provider, defaultLLMProvider),
		stringFieldDefault("llm.model", &l.Model, defaultLLMModel),
		floatFieldDefault("llm.temperature", &l.Temperature, defaultLLMTemperature),
		intFieldDefault("llm.max_tokens", &l.MaxTokens, defaultLLMMaxTokens),
		intFieldDefault("llm.timeout_seconds", &l.TimeoutSeconds, defaultLLMTimeout),
	)
}

func (r *ResilienceConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		intFieldDefault("resilience.failure_threshold", &r.FailureThreshold, defaultFailThreshold),
		intFieldDefault("resilience.success_threshold", &r.SuccessThreshold, defaultSuccessThresh),
		intFieldDefault("resilience.recovery_timeout_seconds", &r.RecoveryTimeoutSeconds, defaultRecoverySeconds),
		intFieldDefault("resilience.max_retries", &r.MaxRetries, defaultMaxRetries),
		intFieldDefault("resilience.base_delay_ms", &r.BaseDelayMS, defaultBaseDelayMS),
		intFieldDefault("resilience.max_delay_ms", &r.MaxDelayMS, defaultMaxDelayMS),
		intFieldDefault("resilience.attempt_timeout_seconds", &r.AttemptTimeoutSeconds, defaultAttemptTimeout),
		fieldDefault{
			key:   "resilience.jitter",
			need:  func() bool { return r.Jitter == 0 },
			apply: func() { r.Jitter = defaultJitter },
		},
		boolFieldDefault("resilience.fail_fast_on_open", &r.FailFastOnOpen, true),
	)
}

func (j *JudgeConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("judge.arbitration_mode", &j.ArbitrationMode, defaultArbitration),
		floatFieldDefault("judge.debate_margin", &j.DebateMargin, defaultDebateMargin),
		floatFieldDefault("judge.veto_threshold", &j.VetoThreshold, defaultVetoThreshold),
		// zero is a valid cooldown, so only an absent key gets the default
		fieldDefault{
			key:   "judge.cooldown_minutes",
			apply: func() { j.CooldownMinutes = defaultCooldownMinutes },
		},
		intFieldDefault("judge.history_k", &j.HistoryK, defaultHistoryK),
		intFieldDefault("judge.concept_k", &j.ConceptK, defaultConceptK),
		intFieldDefault("judge.hook_timeout_seconds", &j.HookTimeoutSeconds, defaultHookTimeout),
		intFieldDefault("judge.monitor_capacity", &j.MonitorCapacity, defaultMonitorCapacity),
	)
}

func (t *TradingConfig) applyDefaults(keys keySet) {
	t.RiskMode = strings.ToLower(strings.TrimSpace(t.RiskMode))
	applyFieldDefaults(keys,
		stringFieldDefault("trading.risk_mode", &t.RiskMode, defaultRiskMode),
		floatFieldDefault("trading.stop_loss_pct", &t.StopLossPct, defaultStopLossPct),
		floatFieldDefault("trading.take_profit_pct", &t.TakeProfitPct, defaultTakeProfitPct),
		intFieldDefault("trading.min_stop_pips", &t.MinStopPips, defaultMinStopPips),
		floatFieldDefault("trading.pip_size", &t.PipSize, defaultPipSize),
		intFieldDefault("trading.indicators.cache_ttl_seconds", &t.Indicators.CacheTTLSeconds, defaultIndicatorTTL),
	)
}

func (s *StorageConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("storage.audit_db", &s.AuditDB, defaultAuditDB),
		stringFieldDefault("storage.trades_db", &s.TradesDB, defaultTradesDB),
	)
}

func (r *RedisConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("redis.addr", &r.Addr, defaultRedisAddr),
		stringFieldDefault("redis.prefix", &r.Prefix, defaultRedisPrefix),
	)
}

func (k *KafkaConfig) applyDefaults(keys keySet) {
	k.Brokers = normalizeList(k.Brokers)
	applyFieldDefaults(keys,
		stringFieldDefault("kafka.topic", &k.Topic, defaultKafkaTopic),
		stringFieldDefault("kafka.compression", &k.Compression, defaultKafkaCompress),
		intFieldDefault("kafka.max_attempts", &k.MaxAttempts, defaultKafkaAttempts),
	)
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return strings.TrimSpace(*target) == "" },
		apply: func() { *target = def },
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return *target <= 0 },
		apply: func() { *target = def },
	}
}

func floatFieldDefault(key string, target *float64, def float64) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return *target <= 0 },
		apply: func() { *target = def },
	}
}

// boolFieldDefault only applies when the key is absent; false is a value.
func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:   key,
		apply: func() { *target = def },
	}
}

func normalizeList(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == "" || seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
