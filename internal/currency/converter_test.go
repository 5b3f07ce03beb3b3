package currency

import (
	"math"
	"testing"
)

func TestToUSD(t *testing.T) {
	conv := NewConverter(map[string]float64{
		"MXN": 17.0,
		"COP": 4000.0,
		"CLP": 950.0,
	})

	tests := []struct {
		name     string
		amount   float64
		code     string
		expected float64
	}{
		{"MXN", 10000, "MXN", 10000.0 / 17.0},
		{"COP", 2000000, "COP", 500.0},
		{"CLP", 950000, "CLP", 1000.0},
		{"UnknownCurrency", 123.45, "BRL", 123.45},
		{"EmptyCode", 50, "", 50},
		{"Zero", 0, "MXN", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := conv.ToUSD(tt.amount, tt.code)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("ToUSD(%v, %q) = %v, want %v", tt.amount, tt.code, got, tt.expected)
			}
		})
	}
}

func TestRate(t *testing.T) {
	conv := NewConverter(map[string]float64{"MXN": 17.0})

	if got := conv.Rate("MXN"); got != 17.0 {
		t.Errorf("Rate(MXN) = %v, want 17.0", got)
	}
	if got := conv.Rate("USD"); got != 1.0 {
		t.Errorf("Rate(USD) = %v, want 1.0", got)
	}
}

func TestConverterCopiesTable(t *testing.T) {
	rates := map[string]float64{"MXN": 17.0}
	conv := NewConverter(rates)

	rates["MXN"] = 99.0

	if got := conv.ToUSD(17, "MXN"); got != 1.0 {
		t.Errorf("expected converter to be unaffected by table mutation, got %v", got)
	}
}
