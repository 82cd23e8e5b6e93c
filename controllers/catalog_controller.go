package controllers

import (
	"context"
	"errors"
	"math"
	"net/http"
	"time"

	apperrors "github.com/Baruah123/Pinnacle-Paints-Client-sub000/common/errors"
	"github.com/Baruah123/Pinnacle-Paints-Client-sub000/common/logger"
	"github.com/Baruah123/Pinnacle-Paints-Client-sub000/repository"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CatalogController serves the admin and shop product catalogs.
type CatalogController struct {
	admin     repository.Catalog
	shop      repository.Catalog
	cache     *CacheManager
	validator *RequestValidator
	timeout   time.Duration
}

func NewCatalogController(admin, shop repository.Catalog, cache *CacheManager, v *RequestValidator) *CatalogController {
	if v == nil {
		v = NewRequestValidator()
	}
	return &CatalogController{
		admin:     admin,
		shop:      shop,
		cache:     cache,
		validator: v,
		timeout:   DefaultContextTimeout,
	}
}

// ListAdminProducts pages through the admin catalog without caching.
func (cc *CatalogController) ListAdminProducts(c *gin.Context) {
	page, perPage, err := cc.validator.ParsePagination(c)
	if err != nil {
		_ = c.Error(apperrors.BadRequest(err.Error(), err))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), cc.timeout)
	defer cancel()

	response, err := cc.page(ctx, cc.admin, page, perPage)
	if err != nil {
		logger.Error(c, "Failed to list admin catalog", err)
		_ = c.Error(apperrors.Internal(err))
		return
	}
	c.JSON(http.StatusOK, response)
}

// ListShopProducts pages through the shop catalog, served from Redis when the
// page is cached for the current catalog version.
func (cc *CatalogController) ListShopProducts(c *gin.Context) {
	page, perPage, err := cc.validator.ParsePagination(c)
	if err != nil {
		_ = c.Error(apperrors.BadRequest(err.Error(), err))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), cc.timeout)
	defer cancel()

	if cached, ok := cc.cache.GetShopList(ctx, page, perPage); ok {
		c.Header("X-Cache", "HIT")
		c.JSON(http.StatusOK, cached)
		return
	}

	response, err := cc.page(ctx, cc.shop, page, perPage)
	if err != nil {
		logger.Error(c, "Failed to list shop catalog", err)
		_ = c.Error(apperrors.Internal(err))
		return
	}
	cc.cache.SetShopListAsync(page, perPage, response)
	c.Header("X-Cache", "MISS")
	c.JSON(http.StatusOK, response)
}

// GetShopProduct returns one product of the shop catalog.
func (cc *CatalogController) GetShopProduct(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		zap.L().Warn("Invalid UUID format", zap.String("id", c.Param("id")))
		_ = c.Error(apperrors.BadRequest("Invalid UUID format", err))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), cc.timeout)
	defer cancel()

	product, err := cc.shop.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		_ = c.Error(apperrors.NotFound("Product not found"))
		return
	}
	if err != nil {
		logger.Error(c, "Failed to get product", err, zap.String("id", id.String()))
		_ = c.Error(apperrors.Internal(err))
		return
	}
	c.JSON(http.StatusOK, product)
}

func (cc *CatalogController) page(ctx context.Context, catalog repository.Catalog, page, perPage int) (map[string]interface{}, error) {
	products, err := catalog.List(ctx, perPage, (page-1)*perPage)
	if err != nil {
		return nil, err
	}
	total, err := catalog.Len(ctx)
	if err != nil {
		return nil, err
	}
	return gin.H{
		"products": products,
		"meta": gin.H{
			"page":       page,
			"perPage":    perPage,
			"total":      total,
			"totalPages": int(math.Ceil(float64(total) / float64(perPage))),
		},
	}, nil
}
