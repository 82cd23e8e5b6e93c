package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Baruah123/Pinnacle-Paints-Client-sub000/models"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// productNamespace seeds deterministic product IDs so re-importing a row
// replaces the existing entry instead of duplicating it.
var productNamespace = uuid.MustParse("6f0b6a52-3f5c-4a8e-9d4c-7b1f0c2e9a11")

// rowInput is the raw, string-typed view of a record used for validation.
type rowInput struct {
	ID            string `validate:"omitempty,uuid"`
	Name          string `validate:"required"`
	Description   string `validate:"required"`
	Price         string `validate:"required,numeric"`
	OriginalPrice string `validate:"omitempty,numeric"`
	InStock       string `validate:"omitempty,oneof=true false"`
	EcoFriendly   string `validate:"omitempty,oneof=true false"`
	IsNew         string `validate:"omitempty,oneof=true false"`
	IsPopular     string `validate:"omitempty,oneof=true false"`
	Rating        string `validate:"omitempty,numeric"`
	Reviews       string `validate:"omitempty,number"`
}

var fieldColumns = map[string]string{
	"ID":            ColumnID,
	"Name":          ColumnName,
	"Description":   ColumnDescription,
	"Price":         ColumnPrice,
	"OriginalPrice": ColumnOriginalPrice,
	"InStock":       ColumnInStock,
	"EcoFriendly":   ColumnEcoFriendly,
	"IsNew":         ColumnIsNew,
	"IsPopular":     ColumnIsPopular,
	"Rating":        ColumnRating,
	"Reviews":       ColumnReviews,
}

// recordDraft is a validated record whose images are not yet resolved.
type recordDraft struct {
	id            uuid.UUID
	name          string
	sku           string
	description   string
	price         float64
	originalPrice float64
	category      string
	finish        string
	coverage      string
	features      []string
	specs         map[string]string
	image         string
	gallery       []string
	inStock       bool
	ecoFriendly   bool
	isNew         bool
	isPopular     bool
	rating        float64
	reviews       int
}

func newRowValidator() *validator.Validate {
	return validator.New()
}

// validateRecord checks required fields and literal types and returns a draft.
func validateRecord(v *validator.Validate, rec models.CandidateRecord) (recordDraft, error) {
	if rec.ParseErr != "" {
		return recordDraft{}, errors.New(rec.ParseErr)
	}

	in := rowInput{
		ID:            rec.Value(ColumnID),
		Name:          rec.Value(ColumnName),
		Description:   rec.Value(ColumnDescription),
		Price:         rec.Value(ColumnPrice),
		OriginalPrice: rec.Value(ColumnOriginalPrice),
		InStock:       strings.ToLower(rec.Value(ColumnInStock)),
		EcoFriendly:   strings.ToLower(rec.Value(ColumnEcoFriendly)),
		IsNew:         strings.ToLower(rec.Value(ColumnIsNew)),
		IsPopular:     strings.ToLower(rec.Value(ColumnIsPopular)),
		Rating:        rec.Value(ColumnRating),
		Reviews:       rec.Value(ColumnReviews),
	}
	if err := v.Struct(in); err != nil {
		return recordDraft{}, describeValidation(err)
	}

	d := recordDraft{
		name:        in.Name,
		sku:         rec.Value(ColumnSKU),
		description: in.Description,
		category:    rec.Value(ColumnCategory),
		finish:      rec.Value(ColumnFinish),
		coverage:    rec.Value(ColumnCoverage),
		features:    splitList(rec.Value(ColumnFeatures)),
		specs:       parseSpecs(rec.Value(ColumnSpecs)),
		image:       rec.Value(ColumnImageURL),
		gallery:     splitList(rec.Value(ColumnGalleryURLs)),
		inStock:     in.InStock != "false",
		ecoFriendly: in.EcoFriendly == "true",
		isNew:       in.IsNew == "true",
		isPopular:   in.IsPopular == "true",
	}

	d.price, _ = strconv.ParseFloat(in.Price, 64)
	if d.price < 0 {
		return recordDraft{}, errors.New("price must not be negative")
	}
	if in.OriginalPrice != "" {
		d.originalPrice, _ = strconv.ParseFloat(in.OriginalPrice, 64)
		if d.originalPrice < 0 {
			return recordDraft{}, errors.New("originalPrice must not be negative")
		}
	}
	if in.Rating != "" {
		d.rating, _ = strconv.ParseFloat(in.Rating, 64)
		if d.rating < 0 || d.rating > 5 {
			return recordDraft{}, errors.New("rating must be between 0 and 5")
		}
	}
	if in.Reviews != "" {
		reviews, err := strconv.Atoi(in.Reviews)
		if err != nil || reviews < 0 {
			return recordDraft{}, errors.New("reviews must be a non-negative whole number")
		}
		d.reviews = reviews
	}

	if in.ID != "" {
		id, err := uuid.Parse(in.ID)
		if err != nil {
			return recordDraft{}, errors.New("id must be a UUID")
		}
		d.id = id
	} else {
		key := strings.ToLower(d.name) + "\x00" + strings.ToLower(d.category)
		d.id = uuid.NewSHA1(productNamespace, []byte(key))
	}
	if d.sku == "" {
		d.sku = "PP-" + strings.ToUpper(strings.ReplaceAll(d.id.String(), "-", "")[:8])
	}
	return d, nil
}

// describeValidation turns validator field errors into one readable message.
func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		column := fieldColumns[fe.Field()]
		if column == "" {
			column = fe.Field()
		}
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", column))
		case "numeric", "number":
			msgs = append(msgs, fmt.Sprintf("%s must be numeric", column))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf(`%s must be "true" or "false"`, column))
		case "uuid":
			msgs = append(msgs, fmt.Sprintf("%s must be a UUID", column))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", column))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

// buildProduct assembles the catalog entity from a draft and hosted image URLs.
func buildProduct(d recordDraft, imageURL string, gallery []string, now time.Time) models.Product {
	return models.Product{
		ID:            d.id,
		Name:          d.name,
		SKU:           d.sku,
		Description:   d.description,
		Price:         d.price,
		OriginalPrice: d.originalPrice,
		Category:      d.category,
		Finish:        d.finish,
		Coverage:      d.coverage,
		ImageURL:      imageURL,
		Gallery:       gallery,
		InStock:       d.inStock,
		IsEcoFriendly: d.ecoFriendly,
		IsNew:         d.isNew,
		IsPopular:     d.isPopular,
		Rating:        d.rating,
		Reviews:       d.reviews,
		Features:      d.features,
		Specs:         d.specs,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// parseSpecs reads "key: value; key2: value2" (or key=value) pairs.
func parseSpecs(v string) map[string]string {
	parts := splitList(v)
	if len(parts) == 0 {
		return nil
	}
	specs := make(map[string]string, len(parts))
	for _, p := range parts {
		sep := strings.IndexAny(p, ":=")
		if sep <= 0 {
			continue
		}
		key := strings.TrimSpace(p[:sep])
		val := strings.TrimSpace(p[sep+1:])
		if key != "" && val != "" {
			specs[key] = val
		}
	}
	if len(specs) == 0 {
		return nil
	}
	return specs
}
