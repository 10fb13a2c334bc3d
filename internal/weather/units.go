package weather

import "github.com/shopspring/decimal"

var absoluteZeroC = decimal.RequireFromString("273.15")

// ToCelsius converts a Kelvin temperature to Celsius rounded to 2 decimals.
func ToCelsius(kelvin decimal.Decimal) decimal.Decimal {
	return kelvin.Sub(absoluteZeroC).Round(2)
}
