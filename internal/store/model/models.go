package model

import (
	"gorm.io/datatypes"
)

// TradeModel is an executed trade. Open trades have no closed_at.
type TradeModel struct {
	ID            string         `gorm:"column:id;primaryKey"`
	TraceID       string         `gorm:"column:trace_id;index"`
	AccountID     string         `gorm:"column:account_id"`
	Symbol        string         `gorm:"column:symbol;index:idx_trades_symbol_opened,priority:1"`
	Side          string         `gorm:"column:side"`
	Lot           string         `gorm:"column:lot"`
	EntryPrice    string         `gorm:"column:entry_price"`
	StopLoss      string         `gorm:"column:stop_loss"`
	TakeProfit    string         `gorm:"column:take_profit"`
	Outcome       string         `gorm:"column:outcome"`
	Profit        float64        `gorm:"column:profit"`
	Features      datatypes.JSON `gorm:"column:features;type:TEXT"`
	Notes         string         `gorm:"column:notes"`
	OpenedAtUnix  int64          `gorm:"column:opened_at;index:idx_trades_symbol_opened,priority:2"`
	ClosedAtUnix  *int64         `gorm:"column:closed_at"`
	CreatedAtUnix int64          `gorm:"column:created_at"`
	UpdatedAtUnix int64          `gorm:"column:updated_at"`
}

func (TradeModel) TableName() string { return "trades" }

// ConceptModel is one knowledge-base document.
type ConceptModel struct {
	ID            string `gorm:"column:id;primaryKey"`
	Source        string `gorm:"column:source;index"`
	Title         string `gorm:"column:title"`
	Body          string `gorm:"column:body"`
	CreatedAtUnix int64  `gorm:"column:created_at"`
	UpdatedAtUnix int64  `gorm:"column:updated_at"`
}

func (ConceptModel) TableName() string { return "knowledge_concepts" }

// AccountModel stores money and lot fields as decimal strings.
type AccountModel struct {
	AccountID     string `gorm:"column:account_id;primaryKey"`
	AccountType   string `gorm:"column:account_type"`
	Balance       string `gorm:"column:balance"`
	Equity        string `gorm:"column:equity"`
	MarginFree    string `gorm:"column:margin_free"`
	Leverage      int    `gorm:"column:leverage"`
	Currency      string `gorm:"column:currency"`
	MinLot        string `gorm:"column:min_lot"`
	LotStep       string `gorm:"column:lot_step"`
	MaxLot        string `gorm:"column:max_lot"`
	IsMicro       bool   `gorm:"column:is_micro"`
	UpdatedAtUnix int64  `gorm:"column:updated_at"`
}

func (AccountModel) TableName() string { return "accounts" }
