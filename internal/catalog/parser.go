package catalog

// Package catalog provides product catalog seed parsing, validation and pricing.

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/garmentrack/garmentrack/internal/models"
)

type CatalogFile struct {
	Owner    string          `yaml:"owner"`
	Products []ProductConfig `yaml:"products"`
}

type ProductConfig struct {
	Name           string   `yaml:"name"`
	Category       string   `yaml:"category"`
	Description    string   `yaml:"description"`
	Image          string   `yaml:"image"`
	DemoVideo      string   `yaml:"demo_video"`
	PriceCents     int64    `yaml:"price_cents"`
	Quantity       int      `yaml:"quantity"`
	MinimumOrder   int      `yaml:"minimum_order"`
	Features       []string `yaml:"features"`
	PaymentOptions []string `yaml:"payment_options"`
	ShowOnHome     bool     `yaml:"show_on_home"`
}

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(content []byte) (*CatalogFile, error) {
	var file CatalogFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &file, nil
}

func (p *Parser) ParseFromString(content string) (*CatalogFile, error) {
	return p.Parse([]byte(content))
}

func (p *Parser) ParseFile(path string) (*CatalogFile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return p.Parse(content)
}

// SeedProducts converts the seed entries into products owned by the file owner,
// or by fallbackOwner when the file names none.
func (f *CatalogFile) SeedProducts(fallbackOwner string) []models.Product {
	owner := strings.TrimSpace(f.Owner)
	if owner == "" {
		owner = strings.TrimSpace(fallbackOwner)
	}

	products := make([]models.Product, 0, len(f.Products))
	for _, cfg := range f.Products {
		products = append(products, models.Product{
			Name:           strings.TrimSpace(cfg.Name),
			Category:       strings.TrimSpace(cfg.Category),
			Description:    cfg.Description,
			Image:          cfg.Image,
			DemoVideo:      cfg.DemoVideo,
			PriceCents:     cfg.PriceCents,
			Quantity:       cfg.Quantity,
			MinimumOrder:   cfg.MinimumOrder,
			Features:       cfg.Features,
			PaymentOptions: cfg.PaymentOptions,
			ShowOnHome:     cfg.ShowOnHome,
			CreatedBy:      models.NormalizeEmail(owner),
		})
	}
	return products
}
