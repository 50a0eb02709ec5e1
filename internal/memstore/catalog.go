package memstore

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/garmentrack/garmentrack/internal/db"
	"github.com/garmentrack/garmentrack/internal/models"
)

type ProductStore struct{ s *Store }

func cloneProduct(p *models.Product) *models.Product {
	cloned := *p
	cloned.Features = slices.Clone(p.Features)
	cloned.PaymentOptions = slices.Clone(p.PaymentOptions)
	return &cloned
}

func (p *ProductStore) Create(ctx context.Context, product *models.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	if existing := p.s.productByOwnerName(product.CreatedBy, product.Name); existing != nil {
		return fmt.Errorf("%w: products_owner_name_key", db.ErrDuplicate)
	}
	product.ID = uuid.New()
	product.CreatedAt = p.s.stamp(product.CreatedAt)
	p.s.products[product.ID] = cloneProduct(product)
	return nil
}

func (p *ProductStore) Upsert(ctx context.Context, product *models.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	if existing := p.s.productByOwnerName(product.CreatedBy, product.Name); existing != nil {
		product.ID = existing.ID
		product.CreatedAt = existing.CreatedAt
		product.CreatedBy = existing.CreatedBy
	} else {
		product.ID = uuid.New()
		product.CreatedAt = p.s.stamp(product.CreatedAt)
	}
	p.s.products[product.ID] = cloneProduct(product)
	return nil
}

func (p *ProductStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()

	product, ok := p.s.products[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return cloneProduct(product), nil
}

func (p *ProductStore) List(ctx context.Context, filter db.ProductFilter) ([]models.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()

	result := make([]models.Product, 0, len(p.s.products))
	for _, product := range p.s.products {
		if filter.CreatedBy != "" && !strings.EqualFold(product.CreatedBy, filter.CreatedBy) {
			continue
		}
		if filter.ShowOnHome && !product.ShowOnHome {
			continue
		}
		if filter.Category != "" && product.Category != filter.Category {
			continue
		}
		result = append(result, *cloneProduct(product))
	}
	slices.SortFunc(result, func(a, b models.Product) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (p *ProductStore) Update(ctx context.Context, product *models.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	stored, ok := p.s.products[product.ID]
	if !ok {
		return db.ErrNotFound
	}
	if other := p.s.productByOwnerName(stored.CreatedBy, product.Name); other != nil && other.ID != product.ID {
		return fmt.Errorf("%w: products_owner_name_key", db.ErrDuplicate)
	}
	updated := cloneProduct(product)
	updated.CreatedBy = stored.CreatedBy
	updated.CreatedAt = stored.CreatedAt
	p.s.products[product.ID] = updated
	return nil
}

func (p *ProductStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	if _, ok := p.s.products[id]; !ok {
		return db.ErrNotFound
	}
	delete(p.s.products, id)
	return nil
}

func (s *Store) productByOwnerName(owner, name string) *models.Product {
	for _, product := range s.products {
		if strings.EqualFold(product.CreatedBy, owner) && product.Name == name {
			return product
		}
	}
	return nil
}

type UserStore struct{ s *Store }

func (u *UserStore) Upsert(ctx context.Context, user *models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	if existing := u.s.userByEmail(user.Email); existing != nil {
		if user.Name != "" {
			existing.Name = user.Name
		}
		if user.PhotoURL != "" {
			existing.PhotoURL = user.PhotoURL
		}
		*user = *existing
		return nil
	}

	user.ID = uuid.New()
	user.CreatedAt = u.s.stamp(user.CreatedAt)
	stored := *user
	u.s.users[user.ID] = &stored
	return nil
}

func (u *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()

	user := u.s.userByEmail(email)
	if user == nil {
		return nil, db.ErrNotFound
	}
	cloned := *user
	return &cloned, nil
}

func (u *UserStore) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()

	user, ok := u.s.users[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cloned := *user
	return &cloned, nil
}

func (u *UserStore) List(ctx context.Context) ([]models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()

	result := make([]models.User, 0, len(u.s.users))
	for _, user := range u.s.users {
		result = append(result, *user)
	}
	slices.SortFunc(result, func(a, b models.User) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return result, nil
}

func (u *UserStore) UpdateProfile(ctx context.Context, user *models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	stored, ok := u.s.users[user.ID]
	if !ok {
		return db.ErrNotFound
	}
	stored.Name = user.Name
	stored.PhotoURL = user.PhotoURL
	return nil
}

func (u *UserStore) UpdateAccess(ctx context.Context, user *models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	stored, ok := u.s.users[user.ID]
	if !ok {
		return db.ErrNotFound
	}
	stored.Role = user.Role
	stored.Status = user.Status
	stored.SuspendReason = user.SuspendReason
	stored.SuspendFeedback = user.SuspendFeedback
	return nil
}

func (s *Store) userByEmail(email string) *models.User {
	for _, user := range s.users {
		if strings.EqualFold(user.Email, strings.TrimSpace(email)) {
			return user
		}
	}
	return nil
}
