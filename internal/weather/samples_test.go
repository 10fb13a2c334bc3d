package weather

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestEncodeSamples(t *testing.T) {
	got := string(EncodeSamples([]decimal.Decimal{
		decimal.RequireFromString("20"),
		decimal.RequireFromString("30.5"),
		decimal.RequireFromString("-1.25"),
	}))
	if want := "[20.00,30.50,-1.25]"; got != want {
		t.Fatalf("EncodeSamples = %s, want %s", got, want)
	}

	if got := string(EncodeSamples(nil)); got != "[]" {
		t.Fatalf("EncodeSamples(nil) = %s, want []", got)
	}
}

func TestDecodeSamples(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   []string
		wantOK bool
	}{
		{"array", `[20.00, 30, 25.5]`, []string{"20", "30", "25.5"}, true},
		{"quoted numbers", `["26.00"]`, []string{"26"}, true},
		{"empty", ``, nil, true},
		{"null", `null`, nil, true},
		{"object", `{"temps":[1,2]}`, nil, false},
		{"scalar", `42`, nil, false},
		{"garbage", `not json`, nil, false},
		{"mixed", `[1, "x", true, 2]`, nil, false},
		{"bad element", `[20.00, "oops", {}]`, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DecodeSamples([]byte(tt.raw))
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if got == nil {
				t.Fatalf("expected non-nil slice")
			}
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d (%v)", len(got), len(tt.want), got)
			}
			for i, w := range tt.want {
				if !got[i].Equal(decimal.RequireFromString(w)) {
					t.Errorf("sample[%d] = %s, want %s", i, got[i], w)
				}
			}
		})
	}
}
