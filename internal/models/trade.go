package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"fxjournal/internal/uuid"

	"gorm.io/gorm"
)

var symbolPattern = regexp.MustCompile(`^[A-Z0-9]{1,20}$`)

// MaxNotesLength is the longest note, in characters, a trade may carry.
const MaxNotesLength = 2000

// NormalizeSymbol trims and upper-cases a symbol. ok is false when the result is not
// 1-20 letters or digits.
func NormalizeSymbol(s string) (string, bool) {
	sym := strings.ToUpper(strings.TrimSpace(s))
	return sym, symbolPattern.MatchString(sym)
}

// Direction is the side of a trade. Stored and serialised in the journal's
// BUY/SELL vocabulary.
type Direction string

const (
	DirectionLong  Direction = "BUY"
	DirectionShort Direction = "SELL"
)

// ParseDirection accepts BUY/SELL and LONG/SHORT in any case.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY", "LONG":
		return DirectionLong, nil
	case "SELL", "SHORT":
		return DirectionShort, nil
	}
	return "", fmt.Errorf("unknown trade direction %q", s)
}

// Valid reports whether d is one of the two known directions.
func (d Direction) Valid() bool {
	return d == DirectionLong || d == DirectionShort
}

// Sign is +1 for long trades and -1 for short trades.
func (d Direction) Sign() float64 {
	if d == DirectionShort {
		return -1
	}
	return 1
}

// TradeAttributes is the user-editable part of a trade. Derived fields are never
// part of it.
type TradeAttributes struct {
	Symbol     string    `json:"symbol"`
	OpenedAt   time.Time `json:"opened_at"`
	Direction  Direction `json:"direction"`
	Volume     float64   `json:"volume"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  *float64  `json:"exit_price"`
	StopLoss   *float64  `json:"stop_loss"`
	TakeProfit *float64  `json:"take_profit"`
	Swap       *float64  `json:"swap"`
	Notes      *string   `json:"notes"`
}

// Trade is one logged forex transaction together with its derived performance
// fields. Trades are hard-deleted, so there is no DeletedAt column.
type Trade struct {
	ID         string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID     string    `gorm:"type:varchar(36);not null;index:idx_trades_user_month,priority:1;index:idx_trades_user_opened,priority:1" json:"user_id"`
	Symbol     string    `gorm:"size:20;not null" json:"symbol"`
	OpenedAt   time.Time `gorm:"not null;index:idx_trades_user_opened,priority:2" json:"opened_at"`
	Direction  Direction `gorm:"size:4;not null" json:"direction"`
	Volume     float64   `gorm:"not null" json:"volume"`
	EntryPrice float64   `gorm:"not null" json:"entry_price"`
	ExitPrice  *float64  `json:"exit_price"`
	StopLoss   *float64  `json:"stop_loss"`
	TakeProfit *float64  `json:"take_profit"`
	Swap       *float64  `json:"swap"`
	Notes      *string   `json:"notes"`

	// Derived on every write.
	MonthKey  string  `gorm:"size:7;not null;index:idx_trades_user_month,priority:2" json:"month_key"`
	ChangePct float64 `gorm:"not null;default:0" json:"change_pct"`
	PLPct     float64 `gorm:"column:pl_pct;not null;default:0" json:"pl_pct"`
	PLSign    string  `gorm:"column:pl_sign;size:1;not null" json:"pl_sign"`
	PLAmount  float64 `gorm:"column:pl_amount;not null;default:0" json:"pl_amount"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (t *Trade) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New()
	}
	return nil
}

// IsClosed reports whether the trade has an exit price.
func (t *Trade) IsClosed() bool {
	return t.ExitPrice != nil
}

// Attributes returns a copy of the trade's editable attributes.
func (t *Trade) Attributes() TradeAttributes {
	return TradeAttributes{
		Symbol:     t.Symbol,
		OpenedAt:   t.OpenedAt,
		Direction:  t.Direction,
		Volume:     t.Volume,
		EntryPrice: t.EntryPrice,
		ExitPrice:  copyPtr(t.ExitPrice),
		StopLoss:   copyPtr(t.StopLoss),
		TakeProfit: copyPtr(t.TakeProfit),
		Swap:       copyPtr(t.Swap),
		Notes:      copyPtr(t.Notes),
	}
}

// SetAttributes overwrites the trade's editable attributes. Derived fields are left
// untouched; callers re-derive afterwards.
func (t *Trade) SetAttributes(a TradeAttributes) {
	t.Symbol = a.Symbol
	t.OpenedAt = a.OpenedAt
	t.Direction = a.Direction
	t.Volume = a.Volume
	t.EntryPrice = a.EntryPrice
	t.ExitPrice = copyPtr(a.ExitPrice)
	t.StopLoss = copyPtr(a.StopLoss)
	t.TakeProfit = copyPtr(a.TakeProfit)
	t.Swap = copyPtr(a.Swap)
	t.Notes = copyPtr(a.Notes)
}

// TradePatch is a partial update. Unset fields keep their stored value; a null on a
// nullable field clears it.
type TradePatch struct {
	Symbol     Optional[string]    `json:"symbol"`
	OpenedAt   Optional[time.Time] `json:"opened_at"`
	Direction  Optional[Direction] `json:"direction"`
	Volume     Optional[float64]   `json:"volume"`
	EntryPrice Optional[float64]   `json:"entry_price"`
	ExitPrice  Optional[float64]   `json:"exit_price"`
	StopLoss   Optional[float64]   `json:"stop_loss"`
	TakeProfit Optional[float64]   `json:"take_profit"`
	Swap       Optional[float64]   `json:"swap"`
	Notes      Optional[string]    `json:"notes"`
}

// ApplyTo merges the patch onto a. Nulling a required attribute is an error.
func (p TradePatch) ApplyTo(a TradeAttributes) (TradeAttributes, error) {
	var err error
	if a.Symbol, err = required(p.Symbol, a.Symbol, "symbol"); err != nil {
		return a, err
	}
	if a.OpenedAt, err = required(p.OpenedAt, a.OpenedAt, "opened_at"); err != nil {
		return a, err
	}
	if a.Direction, err = required(p.Direction, a.Direction, "direction"); err != nil {
		return a, err
	}
	if a.Volume, err = required(p.Volume, a.Volume, "volume"); err != nil {
		return a, err
	}
	if a.EntryPrice, err = required(p.EntryPrice, a.EntryPrice, "entry_price"); err != nil {
		return a, err
	}
	a.ExitPrice = nullable(p.ExitPrice, a.ExitPrice)
	a.StopLoss = nullable(p.StopLoss, a.StopLoss)
	a.TakeProfit = nullable(p.TakeProfit, a.TakeProfit)
	a.Swap = nullable(p.Swap, a.Swap)
	a.Notes = nullable(p.Notes, a.Notes)
	return a, nil
}

// IsEmpty reports whether the patch changes nothing.
func (p TradePatch) IsEmpty() bool {
	return !p.Symbol.Set && !p.OpenedAt.Set && !p.Direction.Set && !p.Volume.Set &&
		!p.EntryPrice.Set && !p.ExitPrice.Set && !p.StopLoss.Set && !p.TakeProfit.Set &&
		!p.Swap.Set && !p.Notes.Set
}

func required[T any](o Optional[T], current T, name string) (T, error) {
	if !o.Set {
		return current, nil
	}
	if o.Null {
		return current, fmt.Errorf("%s cannot be null", name)
	}
	return o.Value, nil
}

func nullable[T any](o Optional[T], current *T) *T {
	if !o.Set {
		return copyPtr(current)
	}
	return o.Ptr()
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
