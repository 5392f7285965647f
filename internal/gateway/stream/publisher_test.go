package stream

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"sentinel/internal/audit"
	"sentinel/internal/debate"
	"sentinel/internal/decision"
	"sentinel/internal/market"
)

type mockWriter struct{ mock.Mock }

func (m *mockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	return m.Called(ctx, msgs).Error(0)
}

func (m *mockWriter) Close() error { return m.Called().Error(0) }

func sampleRecord() audit.Record {
	return audit.Record{
		TraceID:    "trace-1",
		Timestamp:  time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
		Snapshot:   market.Snapshot{Symbol: "EURUSD", Timeframe: "M15", Price: 1.1},
		Verdict:    &debate.Verdict{Winner: debate.SidePro},
		FinalScore: decimal.RequireFromString("0.74"),
		Signal: decision.TradeSignal{
			TraceID:    "trace-1",
			Symbol:     "EURUSD",
			Action:     decision.ActionBuy,
			LotSize:    decimal.RequireFromString("0.12"),
			StopLoss:   decimal.RequireFromString("1.08405"),
			TakeProfit: decimal.RequireFromString("1.122"),
			Confidence: 0.74,
			Reason:     "Score: 0.74 | Judge: PRO wins",
		},
		Duration: 1500 * time.Millisecond,
	}
}

func TestPublisherWritesKeyedEvent(t *testing.T) {
	w := &mockWriter{}
	var sent []kafka.Message
	w.On("WriteMessages", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).([]kafka.Message) }).
		Return(nil)
	p := newPublisher(w, "sentinel.decisions")

	require.NoError(t, p.LogDecision(context.Background(), sampleRecord()))
	require.Len(t, sent, 1)
	assert.Equal(t, "EURUSD", string(sent[0].Key))
	assert.Equal(t, "trace_id", sent[0].Headers[0].Key)
	assert.Equal(t, "BUY", string(sent[0].Headers[1].Value))

	var ev Event
	require.NoError(t, json.Unmarshal(sent[0].Value, &ev))
	assert.Equal(t, "trace-1", ev.TraceID)
	assert.Equal(t, decision.ActionBuy, ev.Action)
	assert.Equal(t, "0.12", ev.Lot)
	assert.Equal(t, "0.74", ev.FinalScore)
	assert.Equal(t, string(debate.SidePro), ev.Winner)
	assert.Equal(t, int64(1500), ev.DurationMS)
}

func TestPublisherWrapsWriteError(t *testing.T) {
	w := &mockWriter{}
	w.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("broker down"))
	p := newPublisher(w, "decisions")

	err := p.LogDecision(context.Background(), sampleRecord())
	assert.ErrorContains(t, err, "kafka publish decisions: broker down")
}

func TestNewPublisherValidates(t *testing.T) {
	_, err := NewPublisher(Config{Topic: "x"})
	assert.Error(t, err)
	_, err = NewPublisher(Config{Brokers: []string{"localhost:9092"}})
	assert.Error(t, err)

	p, err := NewPublisher(Config{Brokers: []string{"localhost:9092"}, Topic: "decisions", Compression: "zstd"})
	require.NoError(t, err)
	assert.Equal(t, "decisions", p.Topic())
	assert.NoError(t, p.Close())
}

func TestParseCompression(t *testing.T) {
	assert.Equal(t, kafka.Gzip, parseCompression("GZIP"))
	assert.Equal(t, kafka.Compression(0), parseCompression("none"))
}
