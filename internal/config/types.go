package config

import "strings"

// Config is the root of the sentinel configuration file.
type Config struct {
	App        AppConfig        `toml:"app"`
	LLM        LLMConfig        `toml:"llm"`
	Resilience ResilienceConfig `toml:"resilience"`
	Judge      JudgeConfig      `toml:"judge"`
	Trading    TradingConfig    `toml:"trading"`
	Storage    StorageConfig    `toml:"storage"`
	Redis      RedisConfig      `toml:"redis"`
	Kafka      KafkaConfig      `toml:"kafka"`
	Notify     NotifyConfig     `toml:"notify"`
	Knowledge  KnowledgeConfig  `toml:"knowledge"`
}

type AppConfig struct {
	Env       string `toml:"env"`
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
	HTTPAddr  string `toml:"http_addr"`
	LogPath   string `toml:"log_path"`
	LLMLog    string `toml:"llm_log_path"`
	LLMDump   bool   `toml:"llm_dump_payload"`
}

// LLMConfig selects the text generator behind the debate agents and the
// LLM arbiter. Disabled means agents argue from indicators only.
type LLMConfig struct {
	Enabled        bool              `toml:"enabled"`
	Provider       string            `toml:"provider"`
	BaseURL        string            `toml:"base_url"`
	APIKey         string            `toml:"api_key"`
	Model          string            `toml:"model"`
	Temperature    float64           `toml:"temperature"`
	MaxTokens      int               `toml:"max_tokens"`
	TimeoutSeconds int               `toml:"timeout_seconds"`
	Headers        map[string]string `toml:"headers"`
}

type ResilienceConfig struct {
	FailureThreshold       int     `toml:"failure_threshold"`
	SuccessThreshold       int     `toml:"success_threshold"`
	RecoveryTimeoutSeconds int     `toml:"recovery_timeout_seconds"`
	MaxRetries             int     `toml:"max_retries"`
	BaseDelayMS            int     `toml:"base_delay_ms"`
	MaxDelayMS             int     `toml:"max_delay_ms"`
	AttemptTimeoutSeconds  int     `toml:"attempt_timeout_seconds"`
	Jitter                 float64 `toml:"jitter"`
	FailFastOnOpen         bool    `toml:"fail_fast_on_open"`
	// RatePerSecond of zero disables the attempt limiter.
	RatePerSecond float64 `toml:"rate_per_second"`
	RateBurst     int     `toml:"rate_burst"`
}

type JudgeConfig struct {
	ArbitrationMode    string  `toml:"arbitration_mode"`
	DebateMargin       float64 `toml:"debate_margin"`
	VetoThreshold      float64 `toml:"veto_threshold"`
	CooldownMinutes    int     `toml:"cooldown_minutes"`
	HistoryK           int     `toml:"history_k"`
	ConceptK           int     `toml:"concept_k"`
	HookTimeoutSeconds int     `toml:"hook_timeout_seconds"`
	MonitorCapacity    int     `toml:"monitor_capacity"`
}

// TradingConfig holds sizing and level parameters. Percentages are
// fractions, 0.01 = 1%.
type TradingConfig struct {
	RiskMode       string          `toml:"risk_mode"`
	StopLossPct    float64         `toml:"stop_loss_pct"`
	TakeProfitPct  float64         `toml:"take_profit_pct"`
	MinStopPips    int             `toml:"min_stop_pips"`
	PipSize        float64         `toml:"pip_size"`
	AccountsSeed   string          `toml:"accounts_seed"`
	DefaultAccount string          `toml:"default_account"`
	Indicators     IndicatorConfig `toml:"indicators"`
}

type IndicatorConfig struct {
	FastPeriod      int `toml:"fast_period"`
	SlowPeriod      int `toml:"slow_period"`
	TrendPeriod     int `toml:"trend_period"`
	RSIPeriod       int `toml:"rsi_period"`
	ATRPeriod       int `toml:"atr_period"`
	CacheTTLSeconds int `toml:"cache_ttl_seconds"`
}

type StorageConfig struct {
	AuditDB  string `toml:"audit_db"`
	TradesDB string `toml:"trades_db"`
}

type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	Prefix     string `toml:"prefix"`
	TTLMinutes int    `toml:"ttl_minutes"`
}

type KafkaConfig struct {
	Enabled     bool     `toml:"enabled"`
	Brokers     []string `toml:"brokers"`
	Topic       string   `toml:"topic"`
	Compression string   `toml:"compression"`
	MaxAttempts int      `toml:"max_attempts"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `toml:"enabled"`
	BotToken string `toml:"bot_token"`
	ChatID   string `toml:"chat_id"`
	BaseURL  string `toml:"base_url"`
}

type KnowledgeConfig struct {
	Dir   string `toml:"dir"`
	Watch bool   `toml:"watch"`
}

// keySet tracks the dotted paths explicitly present in the config sources.
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault applies def unless the key was set or need reports false.
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
