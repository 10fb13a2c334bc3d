package weather

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// EncodeSamples renders temperatures as a JSON array of 2-decimal numbers.
func EncodeSamples(samples []decimal.Decimal) []byte {
	nums := make([]json.Number, 0, len(samples))
	for _, s := range samples {
		nums = append(nums, json.Number(s.StringFixed(2)))
	}
	b, _ := json.Marshal(nums)
	return b
}

// DecodeSamples parses a stored temperature sequence. Numeric strings are
// accepted. Anything that is not an array of numbers yields an empty sequence
// and ok=false.
func DecodeSamples(raw []byte) (samples []decimal.Decimal, ok bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []decimal.Decimal{}, true
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var items []any
	if err := dec.Decode(&items); err != nil {
		return []decimal.Decimal{}, false
	}

	samples = make([]decimal.Decimal, 0, len(items))
	for _, it := range items {
		var s string
		switch v := it.(type) {
		case json.Number:
			s = v.String()
		case string:
			s = v
		default:
			return []decimal.Decimal{}, false
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return []decimal.Decimal{}, false
		}
		samples = append(samples, d)
	}
	return samples, true
}
