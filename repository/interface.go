package repository

import (
	"context"
	"errors"

	"github.com/Baruah123/Pinnacle-Paints-Client-sub000/models"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a product is not in the catalog.
var ErrNotFound = errors.New("product not found")

// Catalog is a product collection fed by the import pipeline.
// Upsert appends a new product or replaces the one with the same ID.
type Catalog interface {
	Upsert(ctx context.Context, product models.Product) error
	Get(ctx context.Context, id uuid.UUID) (models.Product, error)
	List(ctx context.Context, limit, skip int) ([]models.Product, error)
	Len(ctx context.Context) (int, error)
}

// ProductMirror receives a copy of every committed product, e.g. a durable table.
type ProductMirror interface {
	Put(ctx context.Context, product models.Product) error
}
