package retrieval

import (
	"context"
	"time"

	"sentinel/internal/market"
)

const (
	OutcomeWin  = "win"
	OutcomeLoss = "loss"
	OutcomeOpen = "open"
)

// PastTrade is a historical analogue offered to the debate.
type PastTrade struct {
	ID         string    `json:"id"`
	Symbol     string    `json:"symbol"`
	Side       string    `json:"side"`
	Outcome    string    `json:"outcome"`
	Profit     float64   `json:"profit"`
	Features   []float64 `json:"features"`
	Similarity float64   `json:"similarity"`
	OpenedAt   time.Time `json:"opened_at"`
	Notes      string    `json:"notes,omitempty"`
}

type Concept struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Title  string `json:"title"`
	Text   string `json:"text"`
}

// Retriever returns the most similar items first and may return none.
type Retriever interface {
	QuerySimilarHistory(ctx context.Context, snap market.Snapshot, k int) ([]PastTrade, error)
	QueryConcepts(ctx context.Context, query string, k int) ([]string, error)
}

// Source is the persisted history and knowledge base behind an Index.
type Source interface {
	ListTrades(ctx context.Context, symbol string, limit int) ([]PastTrade, error)
	ListConcepts(ctx context.Context) ([]Concept, error)
}

// WinRate over closed trades, with the number of closed trades counted.
func WinRate(trades []PastTrade) (float64, int) {
	wins, closed := 0, 0
	for _, t := range trades {
		switch t.Outcome {
		case OutcomeWin:
			wins++
			closed++
		case OutcomeLoss:
			closed++
		}
	}
	if closed == 0 {
		return 0, 0
	}
	return float64(wins) / float64(closed), closed
}
