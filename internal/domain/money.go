package domain

import "github.com/shopspring/decimal"

// RoundMoney rounds to two decimal places, half away from zero.
func RoundMoney(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// SumMoney adds amounts in decimal and rounds the total to two places.
func SumMoney(vs ...float64) float64 {
	sum := decimal.Zero
	for _, v := range vs {
		sum = sum.Add(decimal.NewFromFloat(v))
	}
	f, _ := sum.Round(2).Float64()
	return f
}

// MoneyEqual compares two amounts after rounding each to two places.
func MoneyEqual(a, b float64) bool {
	return decimal.NewFromFloat(a).Round(2).Equal(decimal.NewFromFloat(b).Round(2))
}
