package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"sentinel/internal/pkg/decimalx"
)

// Entry is one trade_audit_logs row.
type Entry struct {
	ID              int64     `json:"id"`
	TraceID         string    `json:"trace_id"`
	Timestamp       time.Time `json:"ts"`
	Symbol          string    `json:"symbol"`
	Timeframe       string    `json:"timeframe"`
	Decision        string    `json:"decision"`
	FinalScore      float64   `json:"final_score"`
	Price           float64   `json:"price"`
	RSI             float64   `json:"rsi"`
	MarketDataJSON  string    `json:"market_data_json"`
	Tier1Score      float64   `json:"tier_1_score"`
	Tier1Reason     string    `json:"tier_1_reason"`
	ProResponse     string    `json:"pro_agent_response"`
	ConResponse     string    `json:"con_agent_response"`
	Tier3Score      float64   `json:"tier_3_score"`
	Tier3Reason     string    `json:"tier_3_reason"`
	LotSize         float64   `json:"lot_size"`
	StopLoss        float64   `json:"stop_loss"`
	TakeProfit      float64   `json:"take_profit"`
	ExecutionJSON   string    `json:"execution_json,omitempty"`
	ExecutionTimeMS float64   `json:"execution_time_ms"`
	Error           string    `json:"error_message,omitempty"`
}

var errStoreClosed = errors.New("audit store closed")

// Store is the sqlite-backed audit log.
type Store struct {
	mu     sync.Mutex
	db     *sql.DB
	ownsDB bool
	now    func() time.Time
}

// Open creates or opens the audit database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("audit db path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, ownsDB: true, now: time.Now}, nil
}

// UseDB wraps an existing connection, which stays owned by the caller.
func UseDB(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("external db is nil")
	}
	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	var err error
	if s.ownsDB {
		err = s.db.Close()
	}
	s.db = nil
	return err
}

func (s *Store) conn() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, errStoreClosed
	}
	return s.db, nil
}

func ensureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS trade_audit_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			trace_id TEXT,
			ts INTEGER NOT NULL,
			symbol TEXT NOT NULL,
			timeframe TEXT,
			decision TEXT NOT NULL,
			final_score REAL,
			price REAL,
			rsi REAL,
			market_data_json TEXT,
			tier_1_score REAL,
			tier_1_reason TEXT,
			pro_agent_response TEXT,
			con_agent_response TEXT,
			tier_3_score REAL,
			tier_3_reason TEXT,
			lot_size REAL,
			stop_loss REAL,
			take_profit REAL,
			execution_json TEXT,
			execution_time_ms REAL,
			error_message TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_trade_audit_logs_ts ON trade_audit_logs(ts DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_trade_audit_logs_symbol ON trade_audit_logs(symbol, ts DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

type marketData struct {
	Price   float64 `json:"price"`
	RSI     float64 `json:"rsi"`
	MAFast  float64 `json:"ma_fast"`
	MASlow  float64 `json:"ma_slow"`
	MATrend float64 `json:"ma_trend"`
	Balance float64 `json:"balance"`
	Spread  float64 `json:"spread"`
}

func last(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	return series[len(series)-1]
}

func encodeJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// LogDecision implements Sink.
func (s *Store) LogDecision(ctx context.Context, rec Record) error {
	_, err := s.Insert(ctx, rec)
	return err
}

// Insert writes one record and returns its row id.
func (s *Store) Insert(ctx context.Context, rec Record) (int64, error) {
	db, err := s.conn()
	if err != nil {
		return 0, err
	}
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}
	snap := rec.Snapshot
	md := encodeJSON(marketData{
		Price:   snap.Price,
		RSI:     snap.RSIValue(),
		MAFast:  last(snap.MAFast),
		MASlow:  last(snap.MASlow),
		MATrend: last(snap.MATrend),
		Balance: snap.Balance,
		Spread:  snap.Spread,
	})
	t3Score, t3Reason := rec.tier3()
	var execJSON string
	if rec.Execution != nil {
		execJSON = encodeJSON(rec.Execution)
	}
	sig := rec.Signal
	res, err := db.ExecContext(ctx, `
		INSERT INTO trade_audit_logs
			(trace_id, ts, symbol, timeframe, decision, final_score, price, rsi, market_data_json,
			 tier_1_score, tier_1_reason, pro_agent_response, con_agent_response,
			 tier_3_score, tier_3_reason, lot_size, stop_loss, take_profit,
			 execution_json, execution_time_ms, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.TraceID,
		ts.UnixMilli(),
		snap.Symbol,
		snap.Timeframe,
		string(sig.Action),
		decimalx.ToFloat(rec.FinalScore),
		snap.Price,
		snap.RSIValue(),
		md,
		rec.tier1Score(),
		rec.tier1Reason(),
		agentText(rec.Pro),
		agentText(rec.Con),
		decimalx.ToFloat(t3Score),
		t3Reason,
		decimalx.ToFloat(sig.LotSize),
		decimalx.ToFloat(sig.StopLoss),
		decimalx.ToFloat(sig.TakeProfit),
		execJSON,
		float64(rec.Duration.Microseconds())/1000,
		rec.Error,
	)
	if err != nil {
		return 0, fmt.Errorf("insert audit log: %w", err)
	}
	return res.LastInsertId()
}

// Recent returns the newest entries first, optionally for one symbol.
func (s *Store) Recent(ctx context.Context, symbol string, limit int) ([]Entry, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	query := `SELECT id, trace_id, ts, symbol, timeframe, decision, final_score, price, rsi,
			market_data_json, tier_1_score, tier_1_reason, pro_agent_response, con_agent_response,
			tier_3_score, tier_3_reason, lot_size, stop_loss, take_profit, execution_json,
			execution_time_ms, error_message
		FROM trade_audit_logs`
	args := []any{}
	if symbol != "" {
		query += ` WHERE symbol = ?`
		args = append(args, symbol)
	}
	query += ` ORDER BY ts DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var (
			e                                 Entry
			ts                                int64
			trace, tf, md, t1r, pro, con, t3r sql.NullString
			execJSON, errMsg                  sql.NullString
		)
		if err := rows.Scan(&e.ID, &trace, &ts, &e.Symbol, &tf, &e.Decision, &e.FinalScore, &e.Price, &e.RSI,
			&md, &e.Tier1Score, &t1r, &pro, &con, &e.Tier3Score, &t3r, &e.LotSize, &e.StopLoss, &e.TakeProfit,
			&execJSON, &e.ExecutionTimeMS, &errMsg); err != nil {
			return nil, err
		}
		e.Timestamp = time.UnixMilli(ts)
		e.TraceID, e.Timeframe, e.MarketDataJSON = trace.String, tf.String, md.String
		e.Tier1Reason, e.ProResponse, e.ConResponse, e.Tier3Reason = t1r.String, pro.String, con.String, t3r.String
		e.ExecutionJSON, e.Error = execJSON.String, errMsg.String
		out = append(out, e)
	}
	return out, rows.Err()
}
