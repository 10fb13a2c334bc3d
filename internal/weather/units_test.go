package weather

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestToCelsius(t *testing.T) {
	tests := []struct {
		kelvin string
		want   string
	}{
		{"273.15", "0.00"},
		{"299.15", "26.00"},
		{"298.16", "25.01"},
		{"300.456", "27.31"},
		{"300.454", "27.30"},
		{"0", "-273.15"},
		{"253.15", "-20.00"},
	}

	for _, tt := range tests {
		got := ToCelsius(decimal.RequireFromString(tt.kelvin))
		if got.StringFixed(2) != tt.want {
			t.Errorf("ToCelsius(%s) = %s, want %s", tt.kelvin, got.StringFixed(2), tt.want)
		}
	}
}

func TestToCelsiusMatchesRoundedDifference(t *testing.T) {
	for k := 200.0; k < 330.0; k += 0.137 {
		kelvin := decimal.NewFromFloat(k)
		want := kelvin.Sub(decimal.RequireFromString("273.15")).Round(2)
		if got := ToCelsius(kelvin); !got.Equal(want) {
			t.Fatalf("ToCelsius(%s) = %s, want %s", kelvin, got, want)
		}
		if got := ToCelsius(kelvin); got.Exponent() < -2 {
			t.Fatalf("ToCelsius(%s) has more than 2 fractional digits: %s", kelvin, got)
		}
	}
}
