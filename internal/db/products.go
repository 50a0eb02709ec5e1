package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/garmentrack/garmentrack/internal/models"
)

type ProductFilter struct {
	CreatedBy  string
	ShowOnHome bool
	Category   string
	Limit      int
}

type ProductStore struct {
	pool *pgxpool.Pool
}

func NewProductStore(pool *pgxpool.Pool) *ProductStore {
	return &ProductStore{pool: pool}
}

const productColumns = `
	id, name, category, description, image, demo_video, price_cents, quantity,
	minimum_order, features, payment_options, show_on_home, created_by, created_at`

func (s *ProductStore) Create(ctx context.Context, product *models.Product) error {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO products (
			name, category, description, image, demo_video, price_cents, quantity,
			minimum_order, features, payment_options, show_on_home, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at
	`, productArgs(product)...)
	if err := row.Scan(&product.ID, &product.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert product: %w", translate(err))
	}
	return nil
}

// Upsert inserts the product or refreshes the owner's product of the same name.
func (s *ProductStore) Upsert(ctx context.Context, product *models.Product) error {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO products (
			name, category, description, image, demo_video, price_cents, quantity,
			minimum_order, features, payment_options, show_on_home, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (lower(created_by), name) DO UPDATE SET
			category = EXCLUDED.category,
			description = EXCLUDED.description,
			image = EXCLUDED.image,
			demo_video = EXCLUDED.demo_video,
			price_cents = EXCLUDED.price_cents,
			quantity = EXCLUDED.quantity,
			minimum_order = EXCLUDED.minimum_order,
			features = EXCLUDED.features,
			payment_options = EXCLUDED.payment_options,
			show_on_home = EXCLUDED.show_on_home
		RETURNING id, created_at
	`, productArgs(product)...)
	if err := row.Scan(&product.ID, &product.CreatedAt); err != nil {
		return fmt.Errorf("failed to upsert product: %w", translate(err))
	}
	return nil
}

func (s *ProductStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	product, err := scanProduct(row)
	if err != nil {
		return nil, translate(err)
	}
	return product, nil
}

func (s *ProductStore) List(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	var (
		clauses []string
		args    []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.CreatedBy != "" {
		clauses = append(clauses, "lower(created_by) = lower("+arg(filter.CreatedBy)+")")
	}
	if filter.ShowOnHome {
		clauses = append(clauses, "show_on_home")
	}
	if filter.Category != "" {
		clauses = append(clauses, "category = "+arg(filter.Category))
	}

	query := `SELECT ` + productColumns + ` FROM products`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *product)
	}
	return products, rows.Err()
}

// Update rewrites the editable fields. Existing orders keep their own snapshot.
func (s *ProductStore) Update(ctx context.Context, product *models.Product) error {
	cmdTag, err := s.pool.Exec(ctx, `
		UPDATE products SET
			name = $1, category = $2, description = $3, image = $4, demo_video = $5,
			price_cents = $6, quantity = $7, minimum_order = $8, features = $9,
			payment_options = $10, show_on_home = $11
		WHERE id = $12
	`,
		product.Name, product.Category, product.Description, product.Image, product.DemoVideo,
		product.PriceCents, product.Quantity, product.MinimumOrder, nonNil(product.Features),
		nonNil(product.PaymentOptions), product.ShowOnHome, product.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", translate(err))
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ProductStore) Delete(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := s.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func productArgs(product *models.Product) []any {
	return []any{
		product.Name, product.Category, product.Description, product.Image, product.DemoVideo,
		product.PriceCents, product.Quantity, product.MinimumOrder, nonNil(product.Features),
		nonNil(product.PaymentOptions), product.ShowOnHome, product.CreatedBy,
	}
}

func scanProduct(row pgx.Row) (*models.Product, error) {
	var product models.Product
	err := row.Scan(
		&product.ID, &product.Name, &product.Category, &product.Description, &product.Image,
		&product.DemoVideo, &product.PriceCents, &product.Quantity, &product.MinimumOrder,
		&product.Features, &product.PaymentOptions, &product.ShowOnHome, &product.CreatedBy,
		&product.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
