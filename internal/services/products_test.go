package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garmentrack/garmentrack/internal/catalog"
	"github.com/garmentrack/garmentrack/internal/lifecycle"
	"github.com/garmentrack/garmentrack/internal/models"
)

func newDenim() *models.Product {
	return &models.Product{
		Name:         "Denim Jacket",
		Category:     "Jacket",
		PriceCents:   4500,
		Quantity:     100,
		MinimumOrder: 10,
		ShowOnHome:   true,
	}
}

func TestCreateProduct(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	_, err := f.products.Create(ctx, buyerEmail, newDenim())
	require.ErrorIs(t, err, lifecycle.ErrForbidden)

	_, err = f.products.Create(ctx, suspendedEmail, newDenim())
	require.ErrorIs(t, err, lifecycle.ErrForbidden)

	created, err := f.products.Create(ctx, managerEmail, newDenim())
	require.NoError(t, err)
	assert.Equal(t, managerEmail, created.CreatedBy)
	assert.Equal(t, fixedNow, created.CreatedAt)

	_, err = f.products.Create(ctx, managerEmail, newDenim())
	var verr *lifecycle.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)

	invalid := newDenim()
	invalid.Name = "Chino"
	invalid.MinimumOrder = 0
	_, err = f.products.Create(ctx, managerEmail, invalid)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "minimumOrder", verr.Field)

	featured, err := f.products.Featured(ctx)
	require.NoError(t, err)
	require.Len(t, featured, 1)
	assert.Equal(t, "Denim Jacket", featured[0].Name)
}

func TestUpdateProductOwnership(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	other := &models.User{Email: "second@example.com", Role: models.RoleManager, Status: models.AccountActive}
	require.NoError(t, f.store.Users.Upsert(ctx, other))

	price := int64(1200)
	_, err := f.products.Update(ctx, other.Email, f.product.ID, ProductPatch{PriceCents: &price})
	require.ErrorIs(t, err, lifecycle.ErrForbidden)

	updated, err := f.products.Update(ctx, managerEmail, f.product.ID, ProductPatch{PriceCents: &price})
	require.NoError(t, err)
	assert.Equal(t, price, updated.PriceCents)
	assert.Equal(t, managerEmail, updated.CreatedBy)

	zero := int64(0)
	_, err = f.products.Update(ctx, adminEmail, f.product.ID, ProductPatch{PriceCents: &zero})
	assert.True(t, lifecycle.IsValidation(err))

	require.NoError(t, f.products.Delete(ctx, adminEmail, f.product.ID))
	_, err = f.products.Get(ctx, f.product.ID)
	assert.ErrorIs(t, err, lifecycle.ErrNotFound)
}

func TestPriceEditKeepsOrderSnapshot(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	order := f.place(t, buyerEmail, 5)

	price := int64(9999)
	_, err := f.products.Update(ctx, managerEmail, f.product.ID, ProductPatch{PriceCents: &price})
	require.NoError(t, err)

	stored, err := f.orders.Get(ctx, buyerEmail, order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), stored.UnitPriceCents)
	assert.Equal(t, int64(5000), stored.TotalCents)
}

func TestSeedCatalogIsRepeatable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	file, err := catalog.NewParser().ParseFromString(`
owner: seed@example.com
products:
  - name: Crew Neck Tee
    category: T-Shirt
    price_cents: 350
    quantity: 500
    minimum_order: 50
    show_on_home: true
  - name: Cargo Pants
    category: Pants
    price_cents: 1500
    quantity: 200
    minimum_order: 20
`)
	require.NoError(t, err)

	for range 2 {
		seeded, err := f.products.Seed(ctx, file, "")
		require.NoError(t, err)
		assert.Equal(t, 2, seeded)
	}

	products, err := f.products.List(ctx, ProductQuery{CreatedBy: "seed@example.com"})
	require.NoError(t, err)
	assert.Len(t, products, 2)
}
