package controllers

import (
	"context"
	"time"

	"github.com/Baruah123/Pinnacle-Paints-Client-sub000/models"
	"github.com/Baruah123/Pinnacle-Paints-Client-sub000/services"
)

// Default configuration values
const (
	DefaultCacheTTL       = 10 * time.Minute
	DefaultContextTimeout = 30 * time.Second
)

// ImportManager is the import job API the HTTP layer drives.
type ImportManager interface {
	Start(raw string) (*services.Job, error)
	Enqueue(ctx context.Context, raw string) (*services.Job, error)
	Get(id string) (*services.Job, bool)
	Status(ctx context.Context, id string) (models.JobStatusRecord, error)
	List() []models.JobStatusRecord
	Pause(id string) error
	Resume(id string) error
	Cancel(id string) error
	Template() string
}
