package model

// Position is the quantity of a ticker held in one account.
// Quantity is signed, negative values are short positions.
type Position struct {
	Account  string
	Ticker   Ticker
	Quantity float64
}

// Aggregate sums the quantity for the given ticker across all positions.
func Aggregate(ticker Ticker, positions []Position) float64 {
	var total float64
	for _, p := range positions {
		if p.Ticker == ticker {
			total += p.Quantity
		}
	}
	return total
}
