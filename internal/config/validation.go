package config

import (
	"fmt"
	"strings"
)

func validate(c *Config) error {
	checks := []func() error{
		c.App.validate,
		c.LLM.validate,
		c.Resilience.validate,
		c.Judge.validate,
		c.Trading.validate,
		c.Redis.validate,
		c.Kafka.validate,
		c.Notify.validate,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (a *AppConfig) validate() error {
	switch strings.ToLower(a.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("app.log_format must be text or json, got %q", a.LogFormat)
	}
	return nil
}

func (l *LLMConfig) validate() error {
	if !l.Enabled {
		return nil
	}
	switch strings.ToLower(l.Provider) {
	case "openai", "eino":
	default:
		return fmt.Errorf("llm.provider must be openai or eino, got %q", l.Provider)
	}
	if strings.TrimSpace(l.Model) == "" {
		return fmt.Errorf("llm.model cannot be empty")
	}
	if l.Temperature < 0 || l.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be within [0,2]")
	}
	if l.MaxTokens <= 0 {
		return fmt.Errorf("llm.max_tokens must be > 0")
	}
	return nil
}

func (r *ResilienceConfig) validate() error {
	if r.FailureThreshold <= 0 || r.SuccessThreshold <= 0 {
		return fmt.Errorf("resilience thresholds must be > 0")
	}
	if r.MaxRetries < 0 {
		return fmt.Errorf("resilience.max_retries must be >= 0")
	}
	if r.MaxDelayMS < r.BaseDelayMS {
		return fmt.Errorf("resilience.max_delay_ms must be >= base_delay_ms")
	}
	if r.Jitter < 0 || r.Jitter > 1 {
		return fmt.Errorf("resilience.jitter must be within [0,1]")
	}
	if r.RatePerSecond < 0 {
		return fmt.Errorf("resilience.rate_per_second must be >= 0")
	}
	return nil
}

func (j *JudgeConfig) validate() error {
	switch j.ArbitrationMode {
	case "debate", "llm":
	default:
		return fmt.Errorf("judge.arbitration_mode must be debate or llm, got %q", j.ArbitrationMode)
	}
	if j.DebateMargin <= 0 || j.DebateMargin >= 1 {
		return fmt.Errorf("judge.debate_margin must be within (0,1)")
	}
	if j.VetoThreshold <= 0 || j.VetoThreshold >= 1 {
		return fmt.Errorf("judge.veto_threshold must be within (0,1)")
	}
	if j.CooldownMinutes < 0 {
		return fmt.Errorf("judge.cooldown_minutes must be >= 0")
	}
	return nil
}

func (t *TradingConfig) validate() error {
	switch t.RiskMode {
	case "safe", "balanced", "aggressive", "sniper":
	default:
		return fmt.Errorf("trading.risk_mode %q is not a known mode", t.RiskMode)
	}
	if t.StopLossPct <= 0 || t.StopLossPct >= 1 {
		return fmt.Errorf("trading.stop_loss_pct must be within (0,1)")
	}
	if t.TakeProfitPct <= 0 || t.TakeProfitPct >= 1 {
		return fmt.Errorf("trading.take_profit_pct must be within (0,1)")
	}
	if t.MinStopPips < 0 {
		return fmt.Errorf("trading.min_stop_pips must be >= 0")
	}
	if t.PipSize <= 0 {
		return fmt.Errorf("trading.pip_size must be > 0")
	}
	return nil
}

func (r *RedisConfig) validate() error {
	if r.Enabled && strings.TrimSpace(r.Addr) == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	return nil
}

func (k *KafkaConfig) validate() error {
	if !k.Enabled {
		return nil
	}
	if len(k.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when kafka is enabled")
	}
	if strings.TrimSpace(k.Topic) == "" {
		return fmt.Errorf("kafka.topic cannot be empty")
	}
	return nil
}

func (n *NotifyConfig) validate() error {
	tg := n.Telegram
	if tg.Enabled && (strings.TrimSpace(tg.BotToken) == "" || strings.TrimSpace(tg.ChatID) == "") {
		return fmt.Errorf("notify.telegram requires bot_token and chat_id when enabled")
	}
	return nil
}
