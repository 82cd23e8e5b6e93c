package repository

import (
	"context"
	"fmt"

	"github.com/Baruah123/Pinnacle-Paints-Client-sub000/models"
	"go.uber.org/zap"
)

// CatalogSet writes every committed product into the admin and shop catalogs,
// each receiving its own copy, and then to any configured mirrors.
type CatalogSet struct {
	Admin   Catalog
	Shop    Catalog
	mirrors []ProductMirror
	log     *zap.Logger
}

func NewCatalogSet(admin, shop Catalog, log *zap.Logger, mirrors ...ProductMirror) *CatalogSet {
	if log == nil {
		log = zap.NewNop()
	}
	return &CatalogSet{Admin: admin, Shop: shop, mirrors: mirrors, log: log}
}

// Commit upserts into both catalogs. Upsert is idempotent, so a retried commit
// after a partial failure converges. Mirror failures are logged, not returned.
func (s *CatalogSet) Commit(ctx context.Context, product models.Product) error {
	if err := s.Admin.Upsert(ctx, product.Clone()); err != nil {
		return fmt.Errorf("admin catalog upsert: %w", err)
	}
	if err := s.Shop.Upsert(ctx, product.Clone()); err != nil {
		return fmt.Errorf("shop catalog upsert: %w", err)
	}
	for _, m := range s.mirrors {
		if err := m.Put(ctx, product); err != nil {
			s.log.Warn("Product mirror write failed",
				zap.String("product_id", product.ID.String()),
				zap.String("sku", product.SKU),
				zap.Error(err))
		}
	}
	return nil
}
