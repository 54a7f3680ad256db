package core

import (
	"errors"
	"testing"
	"time"
)

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func TestDirection_IsValid(t *testing.T) {
	for _, d := range []Direction{Short, Neutral, Long} {
		if !d.IsValid() {
			t.Errorf("%s should be valid", d)
		}
	}
	if Direction(2).IsValid() {
		t.Error("2 should not be a valid direction")
	}
}

func TestDirection_String(t *testing.T) {
	tests := []struct {
		d    Direction
		want string
	}{
		{Long, "long"},
		{Short, "short"},
		{Neutral, "neutral"},
		{Direction(3), "direction(3)"},
	}
	for _, tt := range tests {
		if got := tt.d.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestPriceSeries_Validate(t *testing.T) {
	ok := PriceSeries{ID: "ES", Bars: []Bar{{Date: day(0)}, {Date: day(1)}, {Date: day(4)}}}
	if err := ok.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	dup := PriceSeries{ID: "ES", Bars: []Bar{{Date: day(0)}, {Date: day(0)}}}
	if err := dup.Validate(); !errors.Is(err, ErrInvalidSeries) {
		t.Errorf("expected ErrInvalidSeries for duplicate date, got %v", err)
	}

	backwards := PriceSeries{ID: "ES", Bars: []Bar{{Date: day(3)}, {Date: day(1)}}}
	if err := backwards.Validate(); !errors.Is(err, ErrInvalidSeries) {
		t.Errorf("expected ErrInvalidSeries for decreasing dates, got %v", err)
	}
}

func TestPriceSeries_Columns(t *testing.T) {
	s := PriceSeries{ID: "GC", Bars: []Bar{
		{Date: day(0), Open: 1, High: 3, Low: 0.5, Close: 2},
		{Date: day(1), Open: 2, High: 4, Low: 1.5, Close: 3},
	}}

	if s.Len() != 2 {
		t.Fatalf("expected 2 bars, got %d", s.Len())
	}
	if got := s.Closes(); got[0] != 2 || got[1] != 3 {
		t.Errorf("unexpected closes %v", got)
	}
	if got := s.Highs(); got[1] != 4 {
		t.Errorf("unexpected highs %v", got)
	}
	if got := s.Lows(); got[0] != 0.5 {
		t.Errorf("unexpected lows %v", got)
	}
	if got := s.Opens(); got[1] != 2 {
		t.Errorf("unexpected opens %v", got)
	}
	if got := s.Dates(); !got[1].Equal(day(1)) {
		t.Errorf("unexpected dates %v", got)
	}
}

func TestSectorPath_Level(t *testing.T) {
	p := SectorPath{"Commodities", "Energy", "Petroleum"}
	if p.Level(1) != "Energy" {
		t.Errorf("expected Energy, got %s", p.Level(1))
	}
	if p.Level(4) != "" || p.Level(-1) != "" {
		t.Error("out of range levels should be empty")
	}
	if p.String() != "Commodities / Energy / Petroleum" {
		t.Errorf("unexpected String(): %s", p.String())
	}
}
