package repository

import (
	"context"
	"sync"

	"github.com/Baruah123/Pinnacle-Paints-Client-sub000/models"
	"github.com/google/uuid"
)

// MemoryCatalog keeps products in insertion order. Readers always receive
// copies, so only whole products are ever visible.
type MemoryCatalog struct {
	name  string
	mu    sync.RWMutex
	order []uuid.UUID
	items map[uuid.UUID]models.Product
}

func NewMemoryCatalog(name string) *MemoryCatalog {
	return &MemoryCatalog{name: name, items: make(map[uuid.UUID]models.Product)}
}

func (c *MemoryCatalog) Name() string {
	return c.name
}

// Upsert keeps the original CreatedAt when replacing an existing product.
func (c *MemoryCatalog) Upsert(ctx context.Context, product models.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p := product.Clone()

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.items[p.ID]; ok {
		if !existing.CreatedAt.IsZero() {
			p.CreatedAt = existing.CreatedAt
		}
	} else {
		c.order = append(c.order, p.ID)
	}
	c.items[p.ID] = p
	return nil
}

func (c *MemoryCatalog) Get(ctx context.Context, id uuid.UUID) (models.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.items[id]
	if !ok {
		return models.Product{}, ErrNotFound
	}
	return p.Clone(), nil
}

// List returns up to limit products after skip, in insertion order. A limit of
// zero or less returns everything after skip.
func (c *MemoryCatalog) List(ctx context.Context, limit, skip int) ([]models.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if skip < 0 {
		skip = 0
	}
	if skip >= len(c.order) {
		return []models.Product{}, nil
	}
	ids := c.order[skip:]
	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}
	out := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.items[id].Clone())
	}
	return out, nil
}

func (c *MemoryCatalog) Len(ctx context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order), nil
}
