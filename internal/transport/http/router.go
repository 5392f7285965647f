package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/gin-gonic/gin"

	"sentinel/internal/account"
	"sentinel/internal/audit"
	"sentinel/internal/decision"
	"sentinel/internal/logger"
	"sentinel/internal/market"
	"sentinel/internal/monitor"
	"sentinel/internal/pkg/circuit"
	"sentinel/internal/pkg/decimalx"
	"sentinel/internal/store"
)

type Evaluator interface {
	Evaluate(ctx context.Context, snap market.Snapshot) decision.TradeSignal
}

type AuditReader interface {
	Recent(ctx context.Context, symbol string, limit int) ([]audit.Entry, error)
}

type Accounts interface {
	Get(ctx context.Context, accountID string) (account.Profile, bool, error)
	Update(ctx context.Context, p account.Profile) (account.Profile, error)
}

// TradeMarker is told about every newly opened trade, typically the shared
// redis cooldown.
type TradeMarker interface {
	MarkTrade(ctx context.Context, symbol string, at time.Time) error
}

type ServerConfig struct {
	Addr      string
	Evaluator Evaluator
	Trades    store.TradeRecorder
	Marker    TradeMarker
	Accounts  Accounts
	Audit     AuditReader
	Monitor   *monitor.Monitor
	Breaker   *circuit.CircuitBreaker
	Metrics   http.Handler
	// EvaluateTimeout bounds one evaluation; zero means the request context.
	EvaluateTimeout time.Duration
}

type router struct {
	cfg ServerConfig
}

func newRouter(cfg ServerConfig) *router { return &router{cfg: cfg} }

func (r *router) register(group *gin.RouterGroup) {
	group.POST("/evaluate", r.handleEvaluate)
	if r.cfg.Trades != nil {
		group.POST("/trades", r.handleRecordTrade)
		group.POST("/trades/:id/close", r.handleCloseTrade)
	}
	if r.cfg.Accounts != nil {
		group.GET("/accounts/:id", r.handleGetAccount)
		group.PUT("/accounts", r.handlePutAccount)
	}
	if r.cfg.Audit != nil {
		group.GET("/audit", r.handleAudit)
	}
	if r.cfg.Monitor != nil {
		group.GET("/monitor", r.handleMonitor)
	}
	if r.cfg.Breaker != nil {
		group.GET("/breaker", r.handleBreaker)
		group.POST("/breaker/reset", r.handleBreakerReset)
	}
}

func (r *router) handleEvaluate(c *gin.Context) {
	var snap market.Snapshot
	if err := c.ShouldBindJSON(&snap); err != nil {
		badRequest(c, describeValidation(err))
		return
	}
	if err := defaults.Set(&snap); err != nil {
		badRequest(c, describeValidation(err))
		return
	}
	ctx := c.Request.Context()
	if r.cfg.EvaluateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.EvaluateTimeout)
		defer cancel()
	}
	// the judge validates the snapshot itself and answers HOLD on bad input
	c.JSON(http.StatusOK, r.cfg.Evaluator.Evaluate(ctx, snap))
}

type tradeRequest struct {
	TraceID    string     `json:"trace_id" validate:"max=64"`
	AccountID  string     `json:"account_id" validate:"max=64"`
	Symbol     string     `json:"symbol" validate:"required,max=32"`
	Side       string     `json:"side" validate:"required,oneof=buy sell"`
	Lot        float64    `json:"lot" validate:"gt=0"`
	Entry      float64    `json:"entry_price" validate:"gt=0"`
	StopLoss   float64    `json:"stop_loss" validate:"gte=0"`
	TakeProfit float64    `json:"take_profit" validate:"gte=0"`
	Outcome    string     `json:"outcome" default:"open" validate:"oneof=open win loss"`
	Profit     float64    `json:"profit"`
	Features   []float64  `json:"features" validate:"omitempty,len=3"`
	Notes      string     `json:"notes" validate:"max=1024"`
	OpenedAt   *time.Time `json:"opened_at"`
	ClosedAt   *time.Time `json:"closed_at"`
}

func (t tradeRequest) trade() store.Trade {
	tr := store.Trade{
		TraceID:    t.TraceID,
		AccountID:  t.AccountID,
		Symbol:     t.Symbol,
		Side:       market.Side(t.Side),
		Lot:        decimalx.FromFloat(t.Lot),
		Entry:      decimalx.FromFloat(t.Entry),
		StopLoss:   decimalx.FromFloat(t.StopLoss),
		TakeProfit: decimalx.FromFloat(t.TakeProfit),
		Outcome:    t.Outcome,
		Profit:     t.Profit,
		Features:   t.Features,
		Notes:      t.Notes,
		ClosedAt:   t.ClosedAt,
	}
	if t.OpenedAt != nil {
		tr.OpenedAt = *t.OpenedAt
	}
	return tr
}

func (r *router) handleRecordTrade(c *gin.Context) {
	var req tradeRequest
	if !bindRequest(c, &req) {
		return
	}
	saved, err := r.cfg.Trades.RecordTrade(c.Request.Context(), req.trade())
	if err != nil {
		logger.Errorf("[api] record trade failed ip=%s err=%v", c.ClientIP(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if r.cfg.Marker != nil {
		if err := r.cfg.Marker.MarkTrade(c.Request.Context(), saved.Symbol, saved.OpenedAt); err != nil {
			logger.Warnf("[api] cooldown mark %s failed: %v", saved.Symbol, err)
		}
	}
	c.JSON(http.StatusCreated, saved)
}

type closeRequest struct {
	Outcome  string     `json:"outcome" validate:"required,oneof=win loss"`
	Profit   float64    `json:"profit"`
	ClosedAt *time.Time `json:"closed_at"`
}

func (r *router) handleCloseTrade(c *gin.Context) {
	var req closeRequest
	if !bindRequest(c, &req) {
		return
	}
	var at time.Time
	if req.ClosedAt != nil {
		at = *req.ClosedAt
	}
	id := c.Param("id")
	err := r.cfg.Trades.CloseTrade(c.Request.Context(), id, req.Outcome, req.Profit, at)
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "trade " + id + " not found"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"id": id, "outcome": req.Outcome})
	}
}

func (r *router) handleGetAccount(c *gin.Context) {
	p, ok, err := r.cfg.Accounts.Get(c.Request.Context(), c.Param("id"))
	switch {
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	case !ok:
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
	default:
		c.JSON(http.StatusOK, p)
	}
}

type accountRequest struct {
	AccountID   string  `json:"account_id" validate:"required,max=64"`
	AccountType string  `json:"account_type" default:"normal" validate:"max=32"`
	Balance     float64 `json:"balance" validate:"gte=0"`
	Equity      float64 `json:"equity" validate:"gte=0"`
	MarginFree  float64 `json:"margin_free" validate:"gte=0"`
	Leverage    int     `json:"leverage" default:"100" validate:"gte=1"`
	Currency    string  `json:"currency" default:"USD" validate:"len=3"`
	MinLot      float64 `json:"min_lot" default:"0.01" validate:"gt=0"`
	LotStep     float64 `json:"lot_step" default:"0.01" validate:"gt=0"`
	MaxLot      float64 `json:"max_lot" default:"100" validate:"gtefield=MinLot"`
}

func (a accountRequest) profile() account.Profile {
	return account.Profile{
		AccountID:   a.AccountID,
		AccountType: a.AccountType,
		Balance:     decimalx.FromFloat(a.Balance),
		Equity:      decimalx.FromFloat(a.Equity),
		MarginFree:  decimalx.FromFloat(a.MarginFree),
		Leverage:    a.Leverage,
		Currency:    strings.ToUpper(a.Currency),
		MinLot:      decimalx.FromFloat(a.MinLot),
		LotStep:     decimalx.FromFloat(a.LotStep),
		MaxLot:      decimalx.FromFloat(a.MaxLot),
	}
}

func (r *router) handlePutAccount(c *gin.Context) {
	var req accountRequest
	if !bindRequest(c, &req) {
		return
	}
	p, err := r.cfg.Accounts.Update(c.Request.Context(), req.profile())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (r *router) handleAudit(c *gin.Context) {
	limit := queryInt(c, "limit", 50)
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	entries, err := r.cfg.Audit.Recent(ctx, c.Query("symbol"), limit)
	if err != nil {
		logger.Errorf("[api] audit list failed ip=%s err=%v", c.ClientIP(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

func (r *router) handleMonitor(c *gin.Context) {
	m := r.cfg.Monitor
	resp := gin.H{
		"stats":  m.Stats(),
		"recent": m.Recent(queryInt(c, "limit", 20)),
		"last":   m.Last(),
	}
	if r.cfg.Breaker != nil {
		resp["breaker"] = r.cfg.Breaker.Snapshot()
	}
	c.JSON(http.StatusOK, resp)
}

func (r *router) handleBreaker(c *gin.Context) {
	c.JSON(http.StatusOK, r.cfg.Breaker.Snapshot())
}

func (r *router) handleBreakerReset(c *gin.Context) {
	r.cfg.Breaker.Reset()
	logger.Infof("[api] breaker %s reset by %s", r.cfg.Breaker.Name(), c.ClientIP())
	c.JSON(http.StatusOK, r.cfg.Breaker.Snapshot())
}

func queryInt(c *gin.Context, key string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(c.Query(key)))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
