package model

import "time"

// Quote is the most recent observed price for a ticker.
type Quote struct {
	Ticker Ticker
	Price  float64
	Time   time.Time
}

// Valid returns true if the quote carries a usable price.
func (q Quote) Valid() bool {
	return q.Price > 0
}

// CostBasis is the average price at which the held quantity of a ticker was acquired.
type CostBasis struct {
	Ticker      Ticker
	AverageCost float64
}

// ReturnPercent computes the return of the given price against the cost basis.
func (c CostBasis) ReturnPercent(price float64) float64 {
	return 100 * (price - c.AverageCost) / c.AverageCost
}
