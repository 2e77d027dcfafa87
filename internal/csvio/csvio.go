// Package csvio reads and writes the journal's CSV exchange format:
//
//	symbol,datetime,type,volume,entry,exit,sl,tp,swap,notes
//
// An empty cell is a null value. Column order in input files is free; unknown
// columns are ignored.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	apperrors "fxjournal/internal/errors"
	"fxjournal/internal/models"
)

// Header is the column order written by Encode.
var Header = []string{"symbol", "datetime", "type", "volume", "entry", "exit", "sl", "tp", "swap", "notes"}

var requiredColumns = []string{"symbol", "datetime", "type", "volume", "entry"}

// timeLayouts are tried in order. Layouts without a zone are read in the
// decoder's location.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// Decode reads trades from r, interpreting zone-less datetimes as local time.
func Decode(r io.Reader) ([]models.TradeAttributes, error) {
	return DecodeIn(r, time.Local)
}

// DecodeIn reads trades from r, interpreting zone-less datetimes in loc. Errors
// are ErrInvalidCSV naming the offending line.
func DecodeIn(r io.Reader, loc *time.Location) ([]models.TradeAttributes, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidCSV, "file is empty")
	}
	if err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidCSV, err.Error())
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidCSV, fmt.Sprintf("missing column %q", name))
		}
	}

	out := []models.TradeAttributes{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidCSV, err.Error())
		}
		line, _ := reader.FieldPos(0)

		row := rowReader{record: record, cols: cols}
		attrs, err := row.attributes(loc)
		if err != nil {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidCSV, fmt.Sprintf("line %d: %s", line, err))
		}
		out = append(out, attrs)
	}
	return out, nil
}

type rowReader struct {
	record []string
	cols   map[string]int
}

func (r rowReader) cell(name string) string {
	i, ok := r.cols[name]
	if !ok || i >= len(r.record) {
		return ""
	}
	return strings.TrimSpace(r.record[i])
}

// parseNumber rejects NaN and infinities, which strconv accepts by name.
func parseNumber(name, raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s is not a number", name)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s must be a finite number", name)
	}
	return v, nil
}

func (r rowReader) positive(name string) (float64, error) {
	v, err := parseNumber(name, r.cell(name))
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be greater than zero", name)
	}
	return v, nil
}

func (r rowReader) optional(name string, mustBePositive bool) (*float64, error) {
	raw := r.cell(name)
	if raw == "" {
		return nil, nil
	}
	v, err := parseNumber(name, raw)
	if err != nil {
		return nil, err
	}
	if mustBePositive && v <= 0 {
		return nil, fmt.Errorf("%s must be greater than zero", name)
	}
	return &v, nil
}

func (r rowReader) attributes(loc *time.Location) (models.TradeAttributes, error) {
	var a models.TradeAttributes
	var err error

	symbol, ok := models.NormalizeSymbol(r.cell("symbol"))
	if !ok {
		return a, fmt.Errorf("invalid symbol %q", r.cell("symbol"))
	}
	a.Symbol = symbol

	if a.OpenedAt, err = parseTime(r.cell("datetime"), loc); err != nil {
		return a, err
	}
	if a.Direction, err = models.ParseDirection(r.cell("type")); err != nil {
		return a, fmt.Errorf("type must be BUY or SELL")
	}
	if a.Volume, err = r.positive("volume"); err != nil {
		return a, err
	}
	if a.EntryPrice, err = r.positive("entry"); err != nil {
		return a, err
	}
	if a.ExitPrice, err = r.optional("exit", true); err != nil {
		return a, err
	}
	if a.StopLoss, err = r.optional("sl", true); err != nil {
		return a, err
	}
	if a.TakeProfit, err = r.optional("tp", true); err != nil {
		return a, err
	}
	if a.Swap, err = r.optional("swap", false); err != nil {
		return a, err
	}
	if notes := r.cell("notes"); notes != "" {
		a.Notes = &notes
	}
	return a, nil
}

func parseTime(raw string, loc *time.Location) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("datetime is required")
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("datetime %q is not a recognised format", raw)
}

// Encode writes trades to w with a header row. Datetimes are written as RFC 3339.
func Encode(w io.Writer, trades []models.Trade) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Header); err != nil {
		return err
	}
	for _, t := range trades {
		notes := ""
		if t.Notes != nil {
			notes = *t.Notes
		}
		if err := writer.Write([]string{
			t.Symbol,
			t.OpenedAt.Format(time.RFC3339),
			string(t.Direction),
			num(t.Volume),
			num(t.EntryPrice),
			optNum(t.ExitPrice),
			optNum(t.StopLoss),
			optNum(t.TakeProfit),
			optNum(t.Swap),
			notes,
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func num(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}

func optNum(x *float64) string {
	if x == nil {
		return ""
	}
	return num(*x)
}
