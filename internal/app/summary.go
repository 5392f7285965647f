package app

import (
	"fmt"
	"strings"

	"sentinel/internal/config"
)

// StartupSummary lists what was wired at boot.
type StartupSummary struct {
	Env        string
	HTTPAddr   string
	LLM        string
	Arbitrator string
	Breaker    string
	Retry      string
	Risk       string
	Storage    []string
	Cooldown   string
	Sinks      []string
	Notifier   string
	Knowledge  string
}

func ProvideSummary(cfg *config.Config) *StartupSummary {
	s := &StartupSummary{
		Env:        cfg.App.Env,
		HTTPAddr:   cfg.App.HTTPAddr,
		LLM:        "disabled",
		Arbitrator: fmt.Sprintf("%s (margin %.2f, veto %.2f)", cfg.Judge.ArbitrationMode, cfg.Judge.DebateMargin, cfg.Judge.VetoThreshold),
		Risk: fmt.Sprintf("%s sl=%.4f tp=%.4f min_stop=%d pips",
			cfg.Trading.RiskMode, cfg.Trading.StopLossPct, cfg.Trading.TakeProfitPct, cfg.Trading.MinStopPips),
		Storage:   []string{"audit=" + cfg.Storage.AuditDB, "trades=" + cfg.Storage.TradesDB},
		Cooldown:  fmt.Sprintf("%dm via sqlite", cfg.Judge.CooldownMinutes),
		Sinks:     []string{"audit"},
		Notifier:  "log",
		Knowledge: "-",
	}
	if cfg.LLM.Enabled {
		s.LLM = fmt.Sprintf("%s %s", cfg.LLM.Provider, cfg.LLM.Model)
	}
	r := cfg.Resilience
	s.Breaker = fmt.Sprintf("open after %d failures, probe after %ds, close after %d successes",
		r.FailureThreshold, r.RecoveryTimeoutSeconds, r.SuccessThreshold)
	s.Retry = fmt.Sprintf("%d retries %dms..%dms jitter %.0f%%", r.MaxRetries, r.BaseDelayMS, r.MaxDelayMS, r.Jitter*100)
	if r.RatePerSecond > 0 {
		s.Retry += fmt.Sprintf(", %.1f req/s", r.RatePerSecond)
	}
	if cfg.Redis.Enabled {
		s.Cooldown = fmt.Sprintf("%dm via redis %s", cfg.Judge.CooldownMinutes, cfg.Redis.Addr)
	}
	if cfg.Kafka.Enabled {
		s.Sinks = append(s.Sinks, "kafka:"+cfg.Kafka.Topic)
	}
	if cfg.Notify.Telegram.Enabled {
		s.Notifier = "telegram"
	}
	if dir := strings.TrimSpace(cfg.Knowledge.Dir); dir != "" {
		s.Knowledge = dir
		if cfg.Knowledge.Watch {
			s.Knowledge += " (watching)"
		}
	}
	return s
}

func (s *StartupSummary) Render() string {
	var b strings.Builder
	line := strings.Repeat("=", 64)
	b.WriteString(line + "\n")
	b.WriteString("STARTUP SUMMARY\n")
	b.WriteString(line + "\n")
	row := func(k, v string) {
		if v == "" {
			v = "-"
		}
		fmt.Fprintf(&b, "  %-11s %s\n", k+":", v)
	}
	row("env", s.Env)
	row("http", s.HTTPAddr)
	row("llm", s.LLM)
	row("arbitrator", s.Arbitrator)
	row("breaker", s.Breaker)
	row("retry", s.Retry)
	row("risk", s.Risk)
	row("storage", formatList(s.Storage))
	row("cooldown", s.Cooldown)
	row("sinks", formatList(s.Sinks))
	row("notifier", s.Notifier)
	row("knowledge", s.Knowledge)
	b.WriteString(line)
	return b.String()
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
