package models

import (
	"time"

	"github.com/google/uuid"
)

type Product struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Category       string    `json:"category"`
	Description    string    `json:"description,omitempty"`
	Image          string    `json:"image,omitempty"`
	DemoVideo      string    `json:"demoVideo,omitempty"`
	PriceCents     int64     `json:"priceCents"`
	Quantity       int       `json:"quantity"`
	MinimumOrder   int       `json:"minimumOrder"`
	Features       []string  `json:"features"`
	PaymentOptions []string  `json:"paymentOptions"`
	ShowOnHome     bool      `json:"showOnHome"`
	CreatedBy      string    `json:"createdBy"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (p *Product) InStock() bool {
	return p != nil && p.Quantity > 0
}

// AcceptsPaymentOption reports whether option is one of the product's payment tags.
// Products without tags accept any option.
func (p *Product) AcceptsPaymentOption(option string) bool {
	if p == nil {
		return false
	}
	if len(p.PaymentOptions) == 0 || option == "" {
		return true
	}
	for _, candidate := range p.PaymentOptions {
		if candidate == option {
			return true
		}
	}
	return false
}
