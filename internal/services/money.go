package services

import "github.com/shopspring/decimal"

var (
	commissionRate = decimal.RequireFromString("0.15")
	driverRate     = decimal.RequireFromString("0.85")
)

// reservationTotal is price × seats, kept to cents
func reservationTotal(pricePerSeat float64, seats int) float64 {
	return decimal.NewFromFloat(pricePerSeat).
		Mul(decimal.NewFromInt(int64(seats))).
		Round(2).
		InexactFloat64()
}

// commission is the platform share, rounded to a whole unit
func commission(amount float64) float64 {
	return decimal.NewFromFloat(amount).Mul(commissionRate).Round(0).InexactFloat64()
}

// driverShare is the per-payment amount owed to the driver, rounded to a whole unit
func driverShare(amount float64) float64 {
	return decimal.NewFromFloat(amount).Mul(driverRate).Round(0).InexactFloat64()
}

func sum(amounts []float64) float64 {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(decimal.NewFromFloat(a))
	}
	return total.Round(2).InexactFloat64()
}

func subtract(a, b float64) float64 {
	return decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).Round(2).InexactFloat64()
}
