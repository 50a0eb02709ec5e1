package catalog

import (
	"fmt"
	"math"
)

type Pricer struct{}

func NewPricer() *Pricer {
	return &Pricer{}
}

// ComputeTotal returns quantity * unitPriceCents, refusing negative inputs and overflow.
func (p *Pricer) ComputeTotal(unitPriceCents int64, quantity int) (int64, error) {
	if unitPriceCents < 0 {
		return 0, fmt.Errorf("unit price must not be negative")
	}
	if quantity < 0 {
		return 0, fmt.Errorf("quantity must not be negative")
	}
	if quantity > 0 && unitPriceCents > math.MaxInt64/int64(quantity) {
		return 0, fmt.Errorf("order total overflows")
	}
	return unitPriceCents * int64(quantity), nil
}

// FormatCents renders an amount in cents as a dollar string.
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}
