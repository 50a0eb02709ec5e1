package catalog

import (
	"testing"
)

func TestParser_Parse(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
	}{
		{
			name: "valid catalog",
			yaml: `
owner: "manager@example.com"
products:
  - name: "Pique Polo Shirt"
    category: "Shirts"
    description: "220 GSM cotton pique"
    image: "https://cdn.example.com/polo.jpg"
    price_cents: 1000
    quantity: 20
    minimum_order: 5
    features: ["Ribbed collar", "Side vents"]
    payment_options: ["Cash on Delivery", "PayFirst"]
    show_on_home: true
`,
			wantErr: false,
		},
		{
			name:    "invalid yaml",
			yaml:    "invalid: yaml: content:",
			wantErr: true,
		},
	}

	parser := NewParser()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file, err := parser.ParseFromString(tt.yaml)

			if tt.wantErr {
				if err == nil {
					t.Error("expected error but got none")
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}

			if file == nil {
				t.Error("expected catalog but got nil")
				return
			}

			if file.Owner != "manager@example.com" {
				t.Errorf("expected owner 'manager@example.com', got '%s'", file.Owner)
			}

			if len(file.Products) != 1 {
				t.Fatalf("expected 1 product, got %d", len(file.Products))
			}

			product := file.Products[0]
			if product.MinimumOrder != 5 || product.Quantity != 20 || product.PriceCents != 1000 {
				t.Errorf("unexpected product numbers: %+v", product)
			}
			if len(product.PaymentOptions) != 2 || !product.ShowOnHome {
				t.Errorf("unexpected product flags: %+v", product)
			}
		})
	}
}

func TestCatalogFile_ProductsUsesFallbackOwner(t *testing.T) {
	t.Parallel()

	file := &CatalogFile{
		Products: []ProductConfig{{Name: " Denim Jacket ", Category: "Jackets", PriceCents: 4500, Quantity: 10, MinimumOrder: 2}},
	}

	products := file.SeedProducts("Admin@Example.com")
	if len(products) != 1 {
		t.Fatalf("unexpected product count: got=%d want=1", len(products))
	}
	if products[0].CreatedBy != "admin@example.com" {
		t.Fatalf("unexpected owner: got=%q want=%q", products[0].CreatedBy, "admin@example.com")
	}
	if products[0].Name != "Denim Jacket" {
		t.Fatalf("unexpected name: got=%q want=%q", products[0].Name, "Denim Jacket")
	}
}
