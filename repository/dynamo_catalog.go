package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Baruah123/Pinnacle-Paints-Client-sub000/models"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/google/uuid"
)

// DynamoAPI is the subset of the DynamoDB client used by DynamoCatalog.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// DynamoCatalog mirrors imported products into a DynamoDB table keyed by
// `product_id` (string).
type DynamoCatalog struct {
	client DynamoAPI
	table  string
}

func NewDynamoCatalog(client DynamoAPI, table string) *DynamoCatalog {
	return &DynamoCatalog{client: client, table: table}
}

type ddbProduct struct {
	ProductID     string            `dynamodbav:"product_id"`
	Name          string            `dynamodbav:"name"`
	SKU           string            `dynamodbav:"sku"`
	Description   string            `dynamodbav:"description"`
	Price         float64           `dynamodbav:"price"`
	OriginalPrice float64           `dynamodbav:"original_price,omitempty"`
	Category      *string           `dynamodbav:"category,omitempty"`
	Finish        *string           `dynamodbav:"finish,omitempty"`
	Coverage      *string           `dynamodbav:"coverage,omitempty"`
	ImageURL      *string           `dynamodbav:"image_url,omitempty"`
	Gallery       []string          `dynamodbav:"gallery,omitempty"`
	InStock       bool              `dynamodbav:"in_stock"`
	IsEcoFriendly bool              `dynamodbav:"is_eco_friendly"`
	IsNew         bool              `dynamodbav:"is_new"`
	IsPopular     bool              `dynamodbav:"is_popular"`
	Rating        float64           `dynamodbav:"rating"`
	Reviews       int               `dynamodbav:"reviews"`
	Features      []string          `dynamodbav:"features,omitempty"`
	Specs         map[string]string `dynamodbav:"specs,omitempty"`
	CreatedAt     string            `dynamodbav:"created_at"`
	UpdatedAt     string            `dynamodbav:"updated_at"`
}

// Put writes the product, replacing any item with the same ID.
func (d *DynamoCatalog) Put(ctx context.Context, p models.Product) error {
	item, err := attributevalue.MarshalMap(toDDB(p))
	if err != nil {
		return fmt.Errorf("marshal product: %w", err)
	}
	if _, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{TableName: &d.table, Item: item}); err != nil {
		return fmt.Errorf("dynamodb PutItem failed: %w", err)
	}
	return nil
}

func (d *DynamoCatalog) Get(ctx context.Context, id uuid.UUID) (models.Product, error) {
	key, err := attributevalue.MarshalMap(map[string]string{"product_id": id.String()})
	if err != nil {
		return models.Product{}, fmt.Errorf("marshal key: %w", err)
	}
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{TableName: &d.table, Key: key})
	if err != nil {
		return models.Product{}, fmt.Errorf("dynamodb GetItem failed: %w", err)
	}
	if len(out.Item) == 0 {
		return models.Product{}, ErrNotFound
	}
	var dp ddbProduct
	if err := attributevalue.UnmarshalMap(out.Item, &dp); err != nil {
		return models.Product{}, fmt.Errorf("unmarshal item: %w", err)
	}
	return fromDDB(dp), nil
}

func toDDB(p models.Product) ddbProduct {
	return ddbProduct{
		ProductID:     p.ID.String(),
		Name:          p.Name,
		SKU:           p.SKU,
		Description:   p.Description,
		Price:         p.Price,
		OriginalPrice: p.OriginalPrice,
		Category:      optional(p.Category),
		Finish:        optional(p.Finish),
		Coverage:      optional(p.Coverage),
		ImageURL:      optional(p.ImageURL),
		Gallery:       p.Gallery,
		InStock:       p.InStock,
		IsEcoFriendly: p.IsEcoFriendly,
		IsNew:         p.IsNew,
		IsPopular:     p.IsPopular,
		Rating:        p.Rating,
		Reviews:       p.Reviews,
		Features:      p.Features,
		Specs:         p.Specs,
		CreatedAt:     p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     p.UpdatedAt.Format(time.RFC3339),
	}
}

func fromDDB(dp ddbProduct) models.Product {
	p := models.Product{
		Name:          dp.Name,
		SKU:           dp.SKU,
		Description:   dp.Description,
		Price:         dp.Price,
		OriginalPrice: dp.OriginalPrice,
		Category:      deref(dp.Category),
		Finish:        deref(dp.Finish),
		Coverage:      deref(dp.Coverage),
		ImageURL:      deref(dp.ImageURL),
		Gallery:       dp.Gallery,
		InStock:       dp.InStock,
		IsEcoFriendly: dp.IsEcoFriendly,
		IsNew:         dp.IsNew,
		IsPopular:     dp.IsPopular,
		Rating:        dp.Rating,
		Reviews:       dp.Reviews,
		Features:      dp.Features,
		Specs:         dp.Specs,
	}
	p.ID, _ = uuid.Parse(dp.ProductID)
	if t, err := time.Parse(time.RFC3339, dp.CreatedAt); err == nil {
		p.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, dp.UpdatedAt); err == nil {
		p.UpdatedAt = t
	}
	return p
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
