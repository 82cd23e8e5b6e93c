package events

import (
	"context"
	"time"

	"github.com/Baruah123/Pinnacle-Paints-Client-sub000/models"
)

// Import lifecycle event types.
const (
	ImportStarted   = "catalog.import.started"
	ImportCompleted = "catalog.import.completed"
	ImportCancelled = "catalog.import.cancelled"
	ImportFailed    = "catalog.import.failed"
)

// ImportEvent announces a job lifecycle change to other services.
type ImportEvent struct {
	Type         string    `json:"event_type"`
	JobID        string    `json:"job_id"`
	Status       string    `json:"status"`
	Total        int       `json:"total"`
	Succeeded    int       `json:"succeeded"`
	Failed       int       `json:"failed"`
	NotAttempted int       `json:"not_attempted"`
	Fault        string    `json:"fault,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Publisher delivers import events.
type Publisher interface {
	Publish(ctx context.Context, evt ImportEvent) error
	Close() error
}

// FromStatus builds the event for a job status record. The event type follows
// the job status; an active job yields ImportStarted.
func FromStatus(rec models.JobStatusRecord, now time.Time) ImportEvent {
	evt := ImportEvent{
		JobID:      rec.State.ID,
		Status:     string(rec.State.Status),
		Total:      rec.State.TotalRecords,
		Succeeded:  rec.State.Succeeded,
		Failed:     rec.State.Failed,
		OccurredAt: now.UTC(),
	}
	switch rec.State.Status {
	case models.JobStatusCompleted:
		evt.Type = ImportCompleted
	case models.JobStatusCancelled:
		evt.Type = ImportCancelled
	case models.JobStatusFailed:
		evt.Type = ImportFailed
	default:
		evt.Type = ImportStarted
	}
	if rec.Result != nil {
		evt.Total = rec.Result.Total
		evt.Succeeded = rec.Result.Succeeded
		evt.Failed = rec.Result.Failed
		evt.NotAttempted = rec.Result.NotAttempted
	}
	if rec.State.Fault != nil {
		evt.Fault = rec.State.Fault.Message
	}
	return evt
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, evt ImportEvent) error { return nil }

func (NoopPublisher) Close() error { return nil }
