package csvio

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "fxjournal/internal/errors"
	"fxjournal/internal/models"
)

func TestDecode(t *testing.T) {
	input := strings.Join([]string{
		"Symbol,Datetime,Type,Volume,Entry,Exit,SL,TP,Swap,Notes",
		"eurusd,2026-03-02T09:30,buy,0.5,1.1,1.105,,,-1.25,first",
		`XAUUSD,2026-03-03 14:00:05,SELL,0.1,2050,,40,,,"with, comma"`,
	}, "\n")

	got, err := DecodeIn(strings.NewReader(input), time.UTC)
	require.NoError(t, err)
	require.Len(t, got, 2)

	first := got[0]
	assert.Equal(t, "EURUSD", first.Symbol)
	assert.Equal(t, time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC), first.OpenedAt)
	assert.Equal(t, models.DirectionLong, first.Direction)
	assert.Equal(t, 0.5, first.Volume)
	assert.Equal(t, 1.1, first.EntryPrice)
	require.NotNil(t, first.ExitPrice)
	assert.Equal(t, 1.105, *first.ExitPrice)
	assert.Nil(t, first.StopLoss)
	assert.Nil(t, first.TakeProfit)
	require.NotNil(t, first.Swap)
	assert.Equal(t, -1.25, *first.Swap)
	require.NotNil(t, first.Notes)
	assert.Equal(t, "first", *first.Notes)

	second := got[1]
	assert.Equal(t, models.DirectionShort, second.Direction)
	assert.Equal(t, time.Date(2026, 3, 3, 14, 0, 5, 0, time.UTC), second.OpenedAt)
	assert.Nil(t, second.ExitPrice)
	require.NotNil(t, second.StopLoss)
	assert.Equal(t, 40.0, *second.StopLoss)
	assert.Nil(t, second.Swap)
	require.NotNil(t, second.Notes)
	assert.Equal(t, "with, comma", *second.Notes)
}

func TestDecode_ColumnOrderIsFree(t *testing.T) {
	input := "entry,volume,type,datetime,symbol\n1.2,1,SELL,2026-03-02T09:30:00Z,GBPUSD\n"

	got, err := DecodeIn(strings.NewReader(input), time.UTC)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "GBPUSD", got[0].Symbol)
	assert.Equal(t, 1.2, got[0].EntryPrice)
	assert.Nil(t, got[0].ExitPrice)
	assert.Nil(t, got[0].Notes)
}

func TestDecode_HeaderOnly(t *testing.T) {
	got, err := DecodeIn(strings.NewReader(strings.Join(Header, ",")+"\n"), time.UTC)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestDecode_Errors(t *testing.T) {
	header := strings.Join(Header, ",") + "\n"

	tests := []struct {
		name    string
		input   string
		message string
	}{
		{"empty_file", "", "file is empty"},
		{"missing_column", "symbol,datetime,type,volume\n", `missing column "entry"`},
		{"bad_symbol", header + "EUR/USD,2026-03-02T09:30,BUY,1,1.1,,,,,\n", "line 2: invalid symbol"},
		{"bad_datetime", header + "EURUSD,yesterday,BUY,1,1.1,,,,,\n", "line 2: datetime"},
		{"bad_type", header + "EURUSD,2026-03-02T09:30,HOLD,1,1.1,,,,,\n", "line 2: type must be BUY or SELL"},
		{"zero_volume", header + "EURUSD,2026-03-02T09:30,BUY,0,1.1,,,,,\n", "line 2: volume must be greater than zero"},
		{"bad_entry", header + "EURUSD,2026-03-02T09:30,BUY,1,abc,,,,,\n", "line 2: entry is not a number"},
		{"negative_exit", header + "EURUSD,2026-03-02T09:30,BUY,1,1.1,-1,,,,\n", "line 2: exit must be greater than zero"},
		{"nan_volume", header + "EURUSD,2026-03-04 10:00,BUY,NaN,1.1,Inf,,,,\n", "line 2: volume must be a finite number"},
		{"inf_exit", header + "EURUSD,2026-03-04 10:00,BUY,1,1.1,Inf,,,,\n", "line 2: exit must be a finite number"},
		{"negative_inf_swap", header + "EURUSD,2026-03-04 10:00,BUY,1,1.1,,,,-Inf,\n", "line 2: swap must be a finite number"},
		{"nan_take_profit", header + "EURUSD,2026-03-04 10:00,BUY,1,1.1,,,nan,,\n", "line 2: tp must be a finite number"},
		{"names_later_line", header + "EURUSD,2026-03-02T09:30,BUY,1,1.1,,,,,\nEURUSD,2026-03-02T09:30,BUY,1,,,,,,\n", "line 3: entry"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeIn(strings.NewReader(tt.input), time.UTC)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrInvalidCSV)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestDecode_NegativeSwapAllowed(t *testing.T) {
	input := strings.Join(Header, ",") + "\nEURUSD,2026-03-02T09:30,BUY,1,1.1,,,,-3.5,\n"

	got, err := DecodeIn(strings.NewReader(input), time.UTC)
	require.NoError(t, err)
	require.NotNil(t, got[0].Swap)
	assert.Equal(t, -3.5, *got[0].Swap)
}

func TestEncode(t *testing.T) {
	exit := 1.105
	notes := "scalp, quick"
	trades := []models.Trade{{
		Symbol:     "EURUSD",
		OpenedAt:   time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
		Direction:  models.DirectionLong,
		Volume:     0.5,
		EntryPrice: 1.1,
		ExitPrice:  &exit,
		Notes:      &notes,
	}}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, trades))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "symbol,datetime,type,volume,entry,exit,sl,tp,swap,notes", lines[0])
	assert.Equal(t, `EURUSD,2026-03-02T09:30:00Z,BUY,0.5,1.1,1.105,,,,"scalp, quick"`, lines[1])
}

func TestRoundTrip(t *testing.T) {
	exit, sl, swap := 2061.35, 25.0, -0.4
	notes := "round trip"
	trades := []models.Trade{
		{
			Symbol: "XAUUSD", OpenedAt: time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC),
			Direction: models.DirectionShort, Volume: 0.25, EntryPrice: 2050.1,
			ExitPrice: &exit, StopLoss: &sl, Swap: &swap, Notes: &notes,
		},
		{
			Symbol: "USDJPY", OpenedAt: time.Date(2026, 2, 3, 17, 45, 0, 0, time.UTC),
			Direction: models.DirectionLong, Volume: 1, EntryPrice: 145.123,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, trades))

	got, err := DecodeIn(&buf, time.UTC)
	require.NoError(t, err)
	require.Len(t, got, len(trades))
	for i := range trades {
		want := trades[i].Attributes()
		assert.True(t, want.OpenedAt.Equal(got[i].OpenedAt))
		got[i].OpenedAt = want.OpenedAt
		assert.Equal(t, want, got[i])
	}
}
