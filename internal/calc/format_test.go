package calc

import (
	"math"
	"testing"
)

func TestFormatEUR(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{41664, "41.664,00 €"},
		{18432.1536, "18.432,15 €"},
		{1234567.891, "1.234.567,89 €"},
		{-0.001, FormatEUR(0)},
		{math.NaN(), FormatEUR(0)},
	}
	for _, tt := range tests {
		if got := FormatEUR(tt.in); got != tt.want {
			t.Errorf("FormatEUR(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatPct(t *testing.T) {
	if got := FormatPct(20); got != "20,00%" {
		t.Fatalf("expected 20,00%% got %q", got)
	}
	if got := FormatPct(3.9); got != "3,90%" {
		t.Fatalf("expected 3,90%% got %q", got)
	}
	if got := FormatPctRounded(68.4); got != "68%" {
		t.Fatalf("expected 68%% got %q", got)
	}
}

func TestFormatPerStay(t *testing.T) {
	if got := FormatPerStay(3.5); got != "€ 3,50" {
		t.Fatalf("expected € 3,50 got %q", got)
	}
}
