package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"

	"sentinel/internal/analysis/veto"
	"sentinel/internal/debate"
	"sentinel/internal/gateway/provider"
	"sentinel/internal/market"
	"sentinel/internal/pkg/jsonutil"
	textutil "sentinel/internal/pkg/text"
)

// Verdict is the typed arbitration result. Fallback marks the neutral
// score used when the reply could not be parsed.
type Verdict struct {
	Score    float64 `json:"score"`
	Reason   string  `json:"reason"`
	Fallback bool    `json:"fallback,omitempty"`
}

const (
	fallbackScore     = 0.5
	fallbackReasonLen = 50
)

const verdictSchema = `{
	"type": "object",
	"required": ["score", "reason"],
	"properties": {
		"score": {"type": "number", "minimum": 0, "maximum": 1},
		"reason": {"type": "string"}
	}
}`

type ArbiterInput struct {
	Snapshot market.Snapshot
	Tier     veto.Result
	Pro      debate.Analysis
	Con      debate.Analysis
}

// Arbiter turns both debate sides into a single score.
type Arbiter interface {
	Arbitrate(ctx context.Context, in ArbiterInput) (Verdict, error)
}

const arbiterSystemPrompt = `ROLE:
You are the Head of Trading (The Judge). Decide whether to execute or wait
based on the two arguments you are given.

DECISION RULES:
1. If the Con Agent identifies a fatal flaw (structure, resistance, negative R:R) you must reject (score < 0.5).
2. If the Pro Agent has strong logic and the Con Agent only minor concerns, approve (score > 0.7).
3. Use the technical context as additional validation.
4. If both are weak, wait (score 0.5).

OUTPUT FORMAT:
Score|Reason
Example: 0.85|Valid trend with safe R:R.
Example: 0.20|Rejected due to overhead resistance.`

// LLMArbiter asks the text generator for a verdict.
type LLMArbiter struct {
	gen    provider.TextGenerator
	schema *jsonschema.Schema
}

func NewLLMArbiter(gen provider.TextGenerator) (*LLMArbiter, error) {
	if gen == nil {
		return nil, fmt.Errorf("llm arbiter requires a text generator")
	}
	schema, err := compileVerdictSchema()
	if err != nil {
		return nil, err
	}
	return &LLMArbiter{gen: gen, schema: schema}, nil
}

func compileVerdictSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("verdict.json", strings.NewReader(verdictSchema)); err != nil {
		return nil, err
	}
	return compiler.Compile("verdict.json")
}

// Arbitrate returns an error only when the provider call itself failed.
func (a *LLMArbiter) Arbitrate(ctx context.Context, in ArbiterInput) (Verdict, error) {
	raw, err := a.gen.Generate(ctx, provider.Prompt{
		Purpose:   "arbitration",
		System:    arbiterSystemPrompt,
		User:      buildArbiterPrompt(in),
		MaxTokens: 256,
	})
	if err != nil {
		return Verdict{}, fmt.Errorf("arbitration: %w", err)
	}
	return ParseVerdict(raw, a.schema), nil
}

func buildArbiterPrompt(in ArbiterInput) string {
	s := in.Snapshot
	var b strings.Builder
	fmt.Fprintf(&b, "ARGUMENT 1 (THE PRO AGENT - GAS):\n%q\n\n", agentArgument(in.Pro))
	fmt.Fprintf(&b, "ARGUMENT 2 (THE CON AGENT - BRAKE):\n%q\n\n", agentArgument(in.Con))
	b.WriteString("MARKET DATA:\n")
	fmt.Fprintf(&b, "Symbol: %s %s | Price: %.5f | RSI: %.1f | Trend: %s\n\n", s.Symbol, s.Timeframe, s.Price, s.RSIValue(), in.Tier.Trend())
	b.WriteString(in.Tier.Context())
	b.WriteString("\nYour Answer:")
	return b.String()
}

func agentArgument(a debate.Analysis) string {
	if a.RawText != "" {
		return a.RawText
	}
	if len(a.KeyPoints) == 0 {
		return "No arguments."
	}
	return fmt.Sprintf("%s (confidence %.2f)", strings.Join(a.KeyPoints, "; "), a.Confidence)
}

// ParseVerdict accepts "score|reason" or {"score":..,"reason":..}, also when
// the object is embedded in prose. Anything else yields the neutral
// fallback; it never fails. A nil schema skips JSON schema validation.
func ParseVerdict(raw string, schema *jsonschema.Schema) Verdict {
	content := jsonutil.Unfence(raw)
	if strings.HasPrefix(content, "{") {
		if v, ok := parseJSONVerdict(content, schema); ok {
			return v
		}
		return fallback(content)
	}
	if left, right, found := strings.Cut(content, "|"); found {
		score, err := strconv.ParseFloat(strings.TrimSpace(left), 64)
		if err == nil && score >= 0 && score <= 1 {
			return Verdict{Score: score, Reason: strings.TrimSpace(right)}
		}
	}
	if obj, ok := jsonutil.Object(content); ok {
		if v, ok := parseJSONVerdict(obj, schema); ok {
			return v
		}
	}
	return fallback(content)
}

func parseJSONVerdict(content string, schema *jsonschema.Schema) (Verdict, bool) {
	if !gjson.Valid(content) {
		return Verdict{}, false
	}
	if schema != nil {
		var doc any
		if err := json.Unmarshal([]byte(content), &doc); err != nil {
			return Verdict{}, false
		}
		if err := schema.Validate(doc); err != nil {
			return Verdict{}, false
		}
	}
	score := gjson.Get(content, "score")
	if score.Type != gjson.Number {
		return Verdict{}, false
	}
	v := score.Float()
	if v < 0 || v > 1 {
		return Verdict{}, false
	}
	return Verdict{Score: v, Reason: strings.TrimSpace(gjson.Get(content, "reason").String())}, true
}

func fallback(content string) Verdict {
	return Verdict{
		Score:    fallbackScore,
		Reason:   textutil.Truncate(textutil.OneLine(content), fallbackReasonLen),
		Fallback: true,
	}
}
