package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"github.com/garmentrack/garmentrack/internal/access"
	"github.com/garmentrack/garmentrack/internal/catalog"
	"github.com/garmentrack/garmentrack/internal/models"
)

var pricer = catalog.NewPricer()

type OrderInput struct {
	Quantity        int
	PaymentOption   string
	BuyerName       string
	ContactNumber   string
	DeliveryAddress string
	Notes           string
}

// CheckQuantity enforces minimumOrder <= quantity <= available stock.
func CheckQuantity(product *models.Product, quantity int) error {
	if quantity < product.MinimumOrder {
		return invalidField("quantity", "Minimum order is %d", product.MinimumOrder)
	}
	if quantity > product.Quantity {
		return invalidField("quantity", "Cannot order more than %d", product.Quantity)
	}
	if quantity <= 0 {
		return invalidField("quantity", "Quantity must be positive")
	}
	return nil
}

// NewOrder builds a Pending order that snapshots the product's name and price.
// The ID and creation time are left for the store to assign.
func NewOrder(product *models.Product, buyer *models.User, input OrderInput, now time.Time) (*models.Order, error) {
	if !access.ForUser(buyer).CanPlaceOrder {
		return nil, fmt.Errorf("%w: placing orders requires an active buyer account", ErrForbidden)
	}
	if !access.CanPlaceOrderFor(buyer, product) {
		return nil, invalidField("quantity", "%s is out of stock", product.Name)
	}
	if err := CheckQuantity(product, input.Quantity); err != nil {
		return nil, err
	}

	option := strings.TrimSpace(input.PaymentOption)
	if !product.AcceptsPaymentOption(option) {
		return nil, invalidField("paymentOption", "Payment option %s is not offered for this product", option)
	}

	total, err := pricer.ComputeTotal(product.PriceCents, input.Quantity)
	if err != nil {
		return nil, invalidField("quantity", "%s", err.Error())
	}

	buyerName := strings.TrimSpace(input.BuyerName)
	if buyerName == "" {
		buyerName = buyer.Name
	}

	return &models.Order{
		BuyerEmail:      models.NormalizeEmail(buyer.Email),
		BuyerName:       buyerName,
		ContactNumber:   strings.TrimSpace(input.ContactNumber),
		DeliveryAddress: strings.TrimSpace(input.DeliveryAddress),
		Notes:           strings.TrimSpace(input.Notes),
		ProductID:       product.ID,
		ProductName:     product.Name,
		UnitPriceCents:  product.PriceCents,
		Quantity:        input.Quantity,
		TotalCents:      total,
		Status:          models.StatusPending,
		PaymentStatus:   models.PaymentUnpaid,
		PaymentOption:   option,
		TrackingHistory: []models.TrackingEvent{},
		CreatedAt:       now,
	}, nil
}
