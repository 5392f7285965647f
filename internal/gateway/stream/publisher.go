// Package stream publishes decision events to kafka.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"sentinel/internal/audit"
	"sentinel/internal/decision"
)

type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Config struct {
	Brokers      []string
	Topic        string
	Compression  string
	RequiredAcks int
	MaxAttempts  int
	BatchTimeout time.Duration
	WriteTimeout time.Duration
}

// Event is the wire form of one evaluation. Messages are keyed by symbol so
// a consumer sees each symbol in order.
type Event struct {
	TraceID    string          `json:"trace_id"`
	Timestamp  time.Time       `json:"ts"`
	Symbol     string          `json:"symbol"`
	Timeframe  string          `json:"timeframe"`
	Price      float64         `json:"price"`
	Action     decision.Action `json:"action"`
	Confidence float64         `json:"confidence"`
	Reason     string          `json:"reason"`
	Lot        string          `json:"lot"`
	StopLoss   string          `json:"stop_loss"`
	TakeProfit string          `json:"take_profit"`
	FinalScore string          `json:"final_score"`
	VetoActive bool            `json:"veto_active"`
	Winner     string          `json:"debate_winner,omitempty"`
	DurationMS int64           `json:"duration_ms"`
	Error      string          `json:"error,omitempty"`
}

func NewEvent(rec audit.Record) Event {
	ev := Event{
		TraceID:    rec.TraceID,
		Timestamp:  rec.Timestamp.UTC(),
		Symbol:     rec.Snapshot.Symbol,
		Timeframe:  rec.Snapshot.Timeframe,
		Price:      rec.Snapshot.Price,
		Action:     rec.Signal.Action,
		Confidence: rec.Signal.Confidence,
		Reason:     rec.Signal.Reason,
		Lot:        rec.Signal.LotSize.String(),
		StopLoss:   rec.Signal.StopLoss.String(),
		TakeProfit: rec.Signal.TakeProfit.String(),
		FinalScore: rec.FinalScore.String(),
		DurationMS: rec.Duration.Milliseconds(),
		Error:      rec.Error,
	}
	if v := rec.Verdict; v != nil {
		ev.VetoActive = v.VetoActive
		ev.Winner = string(v.Winner)
	}
	return ev
}

// Publisher is an audit.Sink writing one message per decision.
type Publisher struct {
	w     writer
	topic string
}

func NewPublisher(cfg Config) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: brokers are required")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, fmt.Errorf("kafka: topic is required")
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 100 * time.Millisecond
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	acks := kafka.RequiredAcks(cfg.RequiredAcks)
	if cfg.RequiredAcks == 0 {
		acks = kafka.RequireAll
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: acks,
		Compression:  parseCompression(cfg.Compression),
		MaxAttempts:  cfg.MaxAttempts,
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return newPublisher(w, cfg.Topic), nil
}

func newPublisher(w writer, topic string) *Publisher {
	return &Publisher{w: w, topic: topic}
}

func (p *Publisher) Topic() string { return p.topic }

func (p *Publisher) LogDecision(ctx context.Context, rec audit.Record) error {
	ev := NewEvent(rec)
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(ev.Symbol),
		Value: body,
		Time:  ev.Timestamp,
		Headers: []kafka.Header{
			{Key: "trace_id", Value: []byte(ev.TraceID)},
			{Key: "action", Value: []byte(ev.Action)},
		},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka publish %s: %w", p.topic, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	if p.w == nil {
		return nil
	}
	return p.w.Close()
}

func parseCompression(name string) kafka.Compression {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "gzip":
		return kafka.Gzip
	case "snappy":
		return kafka.Snappy
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	default:
		return 0
	}
}
