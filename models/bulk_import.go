package models

import "time"

// CandidateRecord is one untyped input row keyed by canonical column name.
type CandidateRecord struct {
	Row    int               `json:"row"`
	Fields map[string]string `json:"fields"`
	// ParseErr is set when the row could not be read as CSV.
	ParseErr string `json:"parse_error,omitempty"`
}

// Get returns the trimmed value of a column and whether the column was present.
func (r CandidateRecord) Get(column string) (string, bool) {
	v, ok := r.Fields[column]
	return v, ok
}

// Value returns the column value or "" when absent.
func (r CandidateRecord) Value(column string) string {
	return r.Fields[column]
}

// Clone copies the field map.
func (r CandidateRecord) Clone() CandidateRecord {
	out := CandidateRecord{Row: r.Row, ParseErr: r.ParseErr}
	if r.Fields != nil {
		out.Fields = make(map[string]string, len(r.Fields))
		for k, v := range r.Fields {
			out.Fields[k] = v
		}
	}
	return out
}

// ErrorKind classifies a ValidationError.
type ErrorKind string

const (
	ErrorKindValidation ErrorKind = "validation"
	ErrorKindMedia      ErrorKind = "media_upload"
	ErrorKindCancelled  ErrorKind = "cancelled"
	ErrorKindPipeline   ErrorKind = "pipeline"
)

// ValidationError describes why a single row was not committed. Row 0 is
// reserved for pipeline-level faults.
type ValidationError struct {
	Row     int              `json:"row"`
	Message string           `json:"message"`
	Kind    ErrorKind        `json:"kind"`
	Product string           `json:"product,omitempty"`
	Partial *CandidateRecord `json:"partial,omitempty"`
}

func (e ValidationError) Error() string {
	return e.Message
}

// JobStatus is the orchestration state of an import job.
type JobStatus string

const (
	JobStatusIdle      JobStatus = "idle"
	JobStatusRunning   JobStatus = "running"
	JobStatusPaused    JobStatus = "paused"
	JobStatusCompleted JobStatus = "completed"
	JobStatusCancelled JobStatus = "cancelled"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusCancelled || s == JobStatusFailed
}

// Active reports whether the job is running or paused.
func (s JobStatus) Active() bool {
	return s == JobStatusRunning || s == JobStatusPaused
}

// JobState is the orchestrator-owned counters of one import job.
type JobState struct {
	ID             string           `json:"id"`
	Status         JobStatus        `json:"status"`
	CurrentIndex   int              `json:"current_index"`
	CurrentProduct string           `json:"current_product,omitempty"`
	TotalRecords   int              `json:"total_records"`
	Succeeded      int              `json:"succeeded"`
	Failed         int              `json:"failed"`
	TotalImages    int              `json:"total_images"`
	UploadedImages int              `json:"uploaded_images"`
	StartedAt      time.Time        `json:"started_at,omitempty"`
	FinishedAt     *time.Time       `json:"finished_at,omitempty"`
	Fault          *ValidationError `json:"fault,omitempty"`
}

// Processed is the number of rows that reached a final outcome.
func (s JobState) Processed() int {
	return s.Succeeded + s.Failed
}

// PerformanceSnapshot is derived from JobState after every processed row.
type PerformanceSnapshot struct {
	TotalRecords            int       `json:"total_records"`
	ProcessedRecords        int       `json:"processed_records"`
	TotalImages             int       `json:"total_images"`
	UploadedImages          int       `json:"uploaded_images"`
	StartTimestamp          time.Time `json:"start_timestamp"`
	AverageProcessingTimeMs float64   `json:"average_processing_time_ms"`
	ErrorRate               float64   `json:"error_rate"`
	ThroughputPerMinute     float64   `json:"throughput_per_minute"`
}

// Health is the qualitative classification of a running job.
type Health string

const (
	HealthIdle           Health = "idle"
	HealthIssuesDetected Health = "issues_detected"
	HealthExcellent      Health = "excellent"
	HealthGood           Health = "good"
	HealthSlow           Health = "slow"
)

// ProgressReport is what the monitor derives from a snapshot.
type ProgressReport struct {
	ProgressPercent      float64   `json:"progress_percent"`
	ImageProgressPercent float64   `json:"image_progress_percent"`
	ElapsedSeconds       float64   `json:"elapsed_seconds"`
	ETASeconds           float64   `json:"eta_seconds"`
	Health               Health    `json:"health"`
	ThroughputHistory    []float64 `json:"throughput_history"`
	Advisories           []string  `json:"advisories,omitempty"`
}

// JobResult is the terminal summary of a job that processed rows.
type JobResult struct {
	Status          JobStatus         `json:"status"`
	Succeeded       int               `json:"succeeded"`
	Failed          int               `json:"failed"`
	Total           int               `json:"total"`
	NotAttempted    int               `json:"not_attempted"`
	Errors          []ValidationError `json:"errors"`
	ErrorsTruncated int               `json:"errors_truncated,omitempty"`
}

// JobStatusRecord is the persisted view of a job served after it leaves memory.
type JobStatusRecord struct {
	State       JobState            `json:"state"`
	Performance PerformanceSnapshot `json:"performance"`
	Report      ProgressReport      `json:"report"`
	Result      *JobResult          `json:"result,omitempty"`
	UpdatedAt   time.Time           `json:"updated_at"`
}
