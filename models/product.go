package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is a fully resolved catalog entry. Image fields only ever hold
// hosted URLs.
type Product struct {
	ID            uuid.UUID         `json:"id" validate:"required"`
	Name          string            `json:"name" validate:"required"`
	SKU           string            `json:"sku" validate:"required"`
	Description   string            `json:"description" validate:"required"`
	Price         float64           `json:"price" validate:"gte=0"`
	OriginalPrice float64           `json:"original_price,omitempty" validate:"gte=0"`
	Category      string            `json:"category,omitempty"`
	Finish        string            `json:"finish,omitempty"`
	Coverage      string            `json:"coverage,omitempty"`
	ImageURL      string            `json:"image_url,omitempty" validate:"omitempty,url"`
	Gallery       []string          `json:"gallery,omitempty" validate:"omitempty,dive,url"`
	InStock       bool              `json:"in_stock"`
	IsEcoFriendly bool              `json:"is_eco_friendly"`
	IsNew         bool              `json:"is_new"`
	IsPopular     bool              `json:"is_popular"`
	Rating        float64           `json:"rating" validate:"gte=0,lte=5"`
	Reviews       int               `json:"reviews" validate:"gte=0"`
	Features      []string          `json:"features,omitempty"`
	Specs         map[string]string `json:"specs,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// Clone returns a deep copy so two catalogs never share slices or maps.
func (p Product) Clone() Product {
	out := p
	if p.Gallery != nil {
		out.Gallery = append([]string(nil), p.Gallery...)
	}
	if p.Features != nil {
		out.Features = append([]string(nil), p.Features...)
	}
	if p.Specs != nil {
		out.Specs = make(map[string]string, len(p.Specs))
		for k, v := range p.Specs {
			out.Specs[k] = v
		}
	}
	return out
}
