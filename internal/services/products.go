package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"

	"github.com/garmentrack/garmentrack/internal/access"
	"github.com/garmentrack/garmentrack/internal/catalog"
	"github.com/garmentrack/garmentrack/internal/db"
	"github.com/garmentrack/garmentrack/internal/lifecycle"
	"github.com/garmentrack/garmentrack/internal/logging"
	"github.com/garmentrack/garmentrack/internal/models"
)

const featuredLimit = 6

type productValidator interface {
	Validate(file *catalog.CatalogFile) error
	ValidateProduct(product *models.Product) error
}

type ProductService struct {
	products  ProductRepository
	users     UserRepository
	validator productValidator
	logger    *slog.Logger
	now       func() time.Time
}

func NewProductService(products ProductRepository, users UserRepository, logger *slog.Logger) *ProductService {
	return &ProductService{
		products:  products,
		users:     users,
		validator: catalog.NewValidator(),
		logger:    logger,
		now:       defaultClock,
	}
}

func (s *ProductService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

type ProductQuery struct {
	Category  string
	CreatedBy string
	Limit     int
}

// List is public: the catalog can be browsed without an account.
func (s *ProductService) List(ctx context.Context, query ProductQuery) ([]models.Product, error) {
	products, err := s.products.List(ctx, db.ProductFilter{
		Category:  strings.TrimSpace(query.Category),
		CreatedBy: models.NormalizeEmail(query.CreatedBy),
		Limit:     query.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// Featured returns the newest products flagged for the home page.
func (s *ProductService) Featured(ctx context.Context) ([]models.Product, error) {
	products, err := s.products.List(ctx, db.ProductFilter{ShowOnHome: true, Limit: featuredLimit})
	if err != nil {
		return nil, fmt.Errorf("failed to list featured products: %w", err)
	}
	return products, nil
}

func (s *ProductService) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "product")
	}
	return product, nil
}

// Create stores a new product owned by the caller.
func (s *ProductService) Create(ctx context.Context, actorEmail string, product *models.Product) (*models.Product, error) {
	span := sentry.StartSpan(
		ctx,
		"service.product.create",
		sentry.WithOpName("service.product"),
		sentry.WithDescription("Create"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	actor, err := loadActor(ctx, s.users, actorEmail)
	if err != nil {
		return nil, err
	}
	if !access.ForUser(actor).CanManageProducts {
		return nil, fmt.Errorf("%w: adding products requires an active manager or admin", lifecycle.ErrForbidden)
	}

	product.ID = uuid.Nil
	product.Name = strings.TrimSpace(product.Name)
	product.CreatedBy = models.NormalizeEmail(actor.Email)
	product.CreatedAt = s.now()
	if err := s.validator.ValidateProduct(product); err != nil {
		return nil, fieldError(err)
	}

	if err := s.products.Create(ctx, product); err != nil {
		return nil, duplicateName(err)
	}

	s.loggerFromContext(ctx).Info("product created", "product_id", product.ID, "name", product.Name, "actor", actor.Email)
	return product, nil
}

// ProductPatch holds the fields a PATCH may change. Nil fields are left alone.
type ProductPatch struct {
	Name           *string   `json:"name"`
	Category       *string   `json:"category"`
	Description    *string   `json:"description"`
	Image          *string   `json:"image"`
	DemoVideo      *string   `json:"demoVideo"`
	PriceCents     *int64    `json:"priceCents"`
	Quantity       *int      `json:"quantity"`
	MinimumOrder   *int      `json:"minimumOrder"`
	Features       *[]string `json:"features"`
	PaymentOptions *[]string `json:"paymentOptions"`
	ShowOnHome     *bool     `json:"showOnHome"`
}

func (p ProductPatch) apply(product *models.Product) {
	if p.Name != nil {
		product.Name = strings.TrimSpace(*p.Name)
	}
	if p.Category != nil {
		product.Category = strings.TrimSpace(*p.Category)
	}
	if p.Description != nil {
		product.Description = *p.Description
	}
	if p.Image != nil {
		product.Image = strings.TrimSpace(*p.Image)
	}
	if p.DemoVideo != nil {
		product.DemoVideo = strings.TrimSpace(*p.DemoVideo)
	}
	if p.PriceCents != nil {
		product.PriceCents = *p.PriceCents
	}
	if p.Quantity != nil {
		product.Quantity = *p.Quantity
	}
	if p.MinimumOrder != nil {
		product.MinimumOrder = *p.MinimumOrder
	}
	if p.Features != nil {
		product.Features = *p.Features
	}
	if p.PaymentOptions != nil {
		product.PaymentOptions = *p.PaymentOptions
	}
	if p.ShowOnHome != nil {
		product.ShowOnHome = *p.ShowOnHome
	}
}

// Update edits a product. Existing orders keep the price they were booked at.
func (s *ProductService) Update(ctx context.Context, actorEmail string, id uuid.UUID, patch ProductPatch) (*models.Product, error) {
	span := sentry.StartSpan(
		ctx,
		"service.product.update",
		sentry.WithOpName("service.product"),
		sentry.WithDescription("Update"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	actor, product, err := s.loadForEdit(ctx, actorEmail, id)
	if err != nil {
		return nil, err
	}

	patch.apply(product)
	if err := s.validator.ValidateProduct(product); err != nil {
		return nil, fieldError(err)
	}
	if err := s.products.Update(ctx, product); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return nil, duplicateName(err)
		}
		return nil, storeError(err, "product")
	}

	s.loggerFromContext(ctx).Info("product updated", "product_id", product.ID, "actor", actor.Email)
	return product, nil
}

func (s *ProductService) Delete(ctx context.Context, actorEmail string, id uuid.UUID) error {
	actor, product, err := s.loadForEdit(ctx, actorEmail, id)
	if err != nil {
		return err
	}
	if err := s.products.Delete(ctx, product.ID); err != nil {
		return storeError(err, "product")
	}

	s.loggerFromContext(ctx).Info("product deleted", "product_id", product.ID, "actor", actor.Email)
	return nil
}

func (s *ProductService) loadForEdit(ctx context.Context, actorEmail string, id uuid.UUID) (*models.User, *models.Product, error) {
	actor, err := loadActor(ctx, s.users, actorEmail)
	if err != nil {
		return nil, nil, err
	}
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, nil, storeError(err, "product")
	}
	if !access.CanEditProduct(actor, product) {
		return nil, nil, fmt.Errorf("%w: only the owner or an admin may change this product", lifecycle.ErrForbidden)
	}
	return actor, product, nil
}

// Seed upserts every product of a catalog file. Products are matched by
// owner and name so running it twice changes nothing.
func (s *ProductService) Seed(ctx context.Context, file *catalog.CatalogFile, fallbackOwner string) (int, error) {
	logger := s.loggerFromContext(ctx)

	if err := s.validator.Validate(file); err != nil {
		return 0, fmt.Errorf("invalid catalog: %w", err)
	}

	seeded := 0
	for _, product := range file.SeedProducts(fallbackOwner) {
		product.CreatedBy = models.NormalizeEmail(product.CreatedBy)
		if product.CreatedBy == "" {
			return seeded, UserError{Message: "catalog owner is required"}
		}
		if err := s.validator.ValidateProduct(&product); err != nil {
			return seeded, fmt.Errorf("product %q: %w", product.Name, err)
		}
		if err := s.products.Upsert(ctx, &product); err != nil {
			return seeded, fmt.Errorf("failed to seed product %q: %w", product.Name, err)
		}
		seeded++
		logger.Debug("seeded product", "product_id", product.ID, "name", product.Name)
	}

	logger.Info("catalog seeded", "products", seeded)
	return seeded, nil
}

func duplicateName(err error) error {
	if errors.Is(err, db.ErrDuplicate) {
		return &lifecycle.ValidationError{Field: "name", Message: "You already have a product with this name"}
	}
	return fmt.Errorf("failed to save product: %w", err)
}
