package catalog

// Package catalog provides product validation.

import (
	"fmt"
	"net/mail"
	"net/url"
	"strings"

	"github.com/garmentrack/garmentrack/internal/models"
)

// FieldError names the product field that failed validation.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

func (v *Validator) Validate(file *CatalogFile) error {
	owner := strings.TrimSpace(file.Owner)
	if owner != "" && !IsValidEmail(owner) {
		return fmt.Errorf("catalog owner must be a valid email address")
	}

	if len(file.Products) == 0 {
		return fmt.Errorf("at least one product is required")
	}

	names := make(map[string]bool)
	for i, product := range file.Products {
		converted := models.Product{
			Name:           product.Name,
			Category:       product.Category,
			Image:          product.Image,
			DemoVideo:      product.DemoVideo,
			PriceCents:     product.PriceCents,
			Quantity:       product.Quantity,
			MinimumOrder:   product.MinimumOrder,
			PaymentOptions: product.PaymentOptions,
		}
		if err := v.ValidateProduct(&converted); err != nil {
			return fmt.Errorf("product %d validation failed: %w", i, err)
		}

		key := strings.ToLower(strings.TrimSpace(product.Name))
		if names[key] {
			return fmt.Errorf("duplicate product name: %s", product.Name)
		}
		names[key] = true
	}

	return nil
}

// ValidateProduct checks the fields a product needs before it can be ordered.
func (v *Validator) ValidateProduct(product *models.Product) error {
	if strings.TrimSpace(product.Name) == "" {
		return &FieldError{Field: "name", Message: "Product name is required"}
	}

	if strings.TrimSpace(product.Category) == "" {
		return &FieldError{Field: "category", Message: "Category is required"}
	}

	if product.PriceCents <= 0 {
		return &FieldError{Field: "price", Message: "Price must be positive"}
	}

	if product.Quantity < 0 {
		return &FieldError{Field: "quantity", Message: "Available quantity cannot be negative"}
	}

	if product.MinimumOrder < 1 {
		return &FieldError{Field: "minimumOrder", Message: "Minimum order must be at least 1"}
	}

	if product.Quantity > 0 && product.MinimumOrder > product.Quantity {
		return &FieldError{Field: "minimumOrder", Message: "Minimum order cannot exceed available quantity"}
	}

	for _, link := range []struct{ field, value string }{
		{field: "image", value: product.Image},
		{field: "demoVideo", value: product.DemoVideo},
	} {
		if strings.TrimSpace(link.value) == "" {
			continue
		}
		if !isAbsoluteURL(link.value) {
			return &FieldError{Field: link.field, Message: "Must be an absolute URL"}
		}
	}

	seen := make(map[string]bool)
	for _, option := range product.PaymentOptions {
		trimmed := strings.TrimSpace(option)
		if trimmed == "" {
			return &FieldError{Field: "paymentOptions", Message: "Payment options cannot be blank"}
		}
		if seen[trimmed] {
			return &FieldError{Field: "paymentOptions", Message: fmt.Sprintf("Duplicate payment option: %s", trimmed)}
		}
		seen[trimmed] = true
	}

	return nil
}

func IsValidEmail(value string) bool {
	addr, err := mail.ParseAddress(value)
	return err == nil && addr.Address == strings.TrimSpace(value)
}

func isAbsoluteURL(value string) bool {
	parsed, err := url.Parse(strings.TrimSpace(value))
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}
