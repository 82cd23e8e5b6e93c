package services

import (
	"context"
	"errors"
	"time"

	"github.com/Baruah123/Pinnacle-Paints-Client-sub000/media"
	"github.com/Baruah123/Pinnacle-Paints-Client-sub000/models"
)

// Default orchestration values.
const (
	DefaultBatchSize   = 10
	DefaultRecordDelay = 100 * time.Millisecond
	hookTimeout        = 5 * time.Second
)

var (
	// ErrInvalidTransition is returned when a control call does not apply to the
	// job's current status.
	ErrInvalidTransition = errors.New("invalid job state transition")
	// ErrPipelineFault marks a job that could not process any row meaningfully.
	ErrPipelineFault = errors.New("import pipeline fault")
	// ErrJobNotFound is returned for unknown job IDs.
	ErrJobNotFound = errors.New("import job not found")
)

// MediaUploader resolves image references to hosted URLs.
type MediaUploader interface {
	Ready(ctx context.Context) error
	UploadSingle(ctx context.Context, reference string) (string, error)
	UploadMany(ctx context.Context, items []media.Item) media.BulkResult
}

// CatalogWriter commits a product to every downstream catalog.
type CatalogWriter interface {
	Commit(ctx context.Context, p models.Product) error
}

// MetricsRecorder receives a snapshot at every batch boundary.
type MetricsRecorder interface {
	RecordBatch(ctx context.Context, jobID string, snap models.PerformanceSnapshot) error
}

// Update is the immutable view published to subscribers.
type Update struct {
	State       models.JobState            `json:"state"`
	Performance models.PerformanceSnapshot `json:"performance"`
	Report      models.ProgressReport      `json:"report"`
	// Final is set on the last update, after the job has settled. A cancelled
	// status alone does not mean the row in flight has finished.
	Final bool `json:"final"`
}

// Options tunes the importer.
type Options struct {
	// BatchSize is the number of rows between progress checkpoints.
	BatchSize int
	// RecordDelay throttles consecutive rows; 0 disables throttling.
	RecordDelay time.Duration
	// MaxRetainedErrors caps the retained row errors; 0 keeps every error.
	MaxRetainedErrors int
	// Now overrides the clock in tests.
	Now func() time.Time
	// MemoryProbe reports heap usage as a fraction of the runtime memory limit.
	MemoryProbe func() (float64, bool)
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.RecordDelay < 0 {
		o.RecordDelay = 0
	}
	if o.MaxRetainedErrors < 0 {
		o.MaxRetainedErrors = 0
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.MemoryProbe == nil {
		o.MemoryProbe = runtimeMemoryPressure
	}
	return o
}

// Hooks are invoked by the job at checkpoints. Every field is optional.
type Hooks struct {
	Metrics MetricsRecorder
	// CatalogChanged runs at batch boundaries where at least one row committed.
	CatalogChanged func(ctx context.Context)
	// Checkpoint receives the job status at batch boundaries and on termination.
	Checkpoint func(ctx context.Context, rec models.JobStatusRecord)
}
