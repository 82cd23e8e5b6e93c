package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Baruah123/Pinnacle-Paints-Client-sub000/media"
	"github.com/Baruah123/Pinnacle-Paints-Client-sub000/models"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const subscriberBuffer = 16

// Importer builds import jobs that share one media uploader and catalog set.
type Importer struct {
	uploader MediaUploader
	catalogs CatalogWriter
	opts     Options
	hooks    Hooks
	validate *validator.Validate
	log      *zap.Logger
}

func NewImporter(uploader MediaUploader, catalogs CatalogWriter, opts Options, hooks Hooks, log *zap.Logger) *Importer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Importer{
		uploader: uploader,
		catalogs: catalogs,
		opts:     opts.withDefaults(),
		hooks:    hooks,
		validate: newRowValidator(),
		log:      log,
	}
}

// NewJob returns an idle job with the given ID.
func (imp *Importer) NewJob(id string) *Job {
	return &Job{
		id:      id,
		imp:     imp,
		monitor: NewMonitor(imp.opts.Now, imp.opts.MemoryProbe),
		state:   models.JobState{ID: id, Status: models.JobStatusIdle},
		subs:    make(map[int]chan Update),
		done:    make(chan struct{}),
		log:     imp.log.With(zap.String("job_id", id)),
	}
}

// Job is a single run of the import pipeline. Rows are processed one at a time
// in source order on the job's own goroutine; control calls and readers only
// ever touch copies of its state.
type Job struct {
	id      string
	imp     *Importer
	monitor *Monitor
	log     *zap.Logger

	mu        sync.Mutex
	state     models.JobState
	perf      models.PerformanceSnapshot
	report    models.ProgressReport
	errs      []models.ValidationError
	truncated int
	result    *models.JobResult
	busy      time.Duration
	gate      chan struct{} // non-nil while paused, closed on resume or cancel
	stop      context.CancelFunc
	subs      map[int]chan Update
	nextSub   int
	done      chan struct{}
	settled   bool

	// owned by the run goroutine
	dirty bool
}

func (j *Job) ID() string {
	return j.id
}

// Start moves an idle job to running and processes raw in the background.
func (j *Job) Start(ctx context.Context, raw string) error {
	runCtx, err := j.begin(ctx)
	if err != nil {
		return err
	}
	go j.run(runCtx, raw)
	return nil
}

// Run is the blocking form of Start. It returns ErrPipelineFault when the job
// ends Failed; row-level problems never produce an error.
func (j *Job) Run(ctx context.Context, raw string) error {
	runCtx, err := j.begin(ctx)
	if err != nil {
		return err
	}
	j.run(runCtx, raw)
	return j.Err()
}

// Pause withholds advancement to the next row. The row in flight finishes.
func (j *Job) Pause() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state.Status != models.JobStatusRunning {
		return fmt.Errorf("%w: cannot pause a %s job", ErrInvalidTransition, j.state.Status)
	}
	j.state.Status = models.JobStatusPaused
	j.gate = make(chan struct{})
	j.publishLocked()
	j.log.Info("Import paused", zap.Int("processed", j.state.Processed()))
	return nil
}

// Resume continues a paused job at the row where it stopped.
func (j *Job) Resume() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state.Status != models.JobStatusPaused {
		return fmt.Errorf("%w: cannot resume a %s job", ErrInvalidTransition, j.state.Status)
	}
	j.state.Status = models.JobStatusRunning
	j.openGateLocked()
	j.publishLocked()
	j.log.Info("Import resumed", zap.Int("processed", j.state.Processed()))
	return nil
}

// Cancel stops the job at the next row boundary. Gallery uploads that have
// not started yet are abandoned; rows never reached stay unattempted.
func (j *Job) Cancel() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.state.Status.Active() {
		return fmt.Errorf("%w: cannot cancel a %s job", ErrInvalidTransition, j.state.Status)
	}
	j.state.Status = models.JobStatusCancelled
	j.openGateLocked()
	if j.stop != nil {
		j.stop()
	}
	j.publishLocked()
	j.log.Info("Import cancellation requested", zap.Int("processed", j.state.Processed()))
	return nil
}

// State returns a copy of the job state.
func (j *Job) State() models.JobState {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.stateLocked()
}

// Performance returns the latest performance snapshot.
func (j *Job) Performance() models.PerformanceSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.perf
}

// Report returns the latest monitor report.
func (j *Job) Report() models.ProgressReport {
	j.mu.Lock()
	defer j.mu.Unlock()
	return cloneReport(j.report)
}

// Result returns the terminal summary once the job completed or was cancelled.
func (j *Job) Result() (models.JobResult, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.result == nil {
		return models.JobResult{}, false
	}
	return cloneResult(*j.result), true
}

// Err reports the pipeline fault of a failed job.
func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state.Status != models.JobStatusFailed {
		return nil
	}
	msg := "unknown"
	if j.state.Fault != nil {
		msg = j.state.Fault.Message
	}
	return fmt.Errorf("%w: %s", ErrPipelineFault, msg)
}

// Done is closed when the job reaches a terminal status.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Settled reports whether the job has finished all work. A cancelled job
// settles once its row in flight has been recorded.
func (j *Job) Settled() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.settled
}

// Wait blocks until the job ends or ctx is done.
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StatusRecord returns the persisted view of the job.
func (j *Job) StatusRecord() models.JobStatusRecord {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.statusRecordLocked()
}

// Subscribe streams updates, starting with the current one. Slow consumers
// miss intermediate updates rather than block the job. The channel is closed
// after the final update or when the returned func is called.
func (j *Job) Subscribe() (<-chan Update, func()) {
	ch := make(chan Update, subscriberBuffer)

	j.mu.Lock()
	defer j.mu.Unlock()
	ch <- j.updateLocked()
	if j.settled {
		close(ch)
		return ch, func() {}
	}

	id := j.nextSub
	j.nextSub++
	j.subs[id] = ch
	return ch, func() {
		j.mu.Lock()
		defer j.mu.Unlock()
		if c, ok := j.subs[id]; ok {
			delete(j.subs, id)
			close(c)
		}
	}
}

func (j *Job) begin(ctx context.Context) (context.Context, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state.Status != models.JobStatusIdle {
		return nil, fmt.Errorf("%w: cannot start a %s job", ErrInvalidTransition, j.state.Status)
	}
	runCtx, stop := context.WithCancel(ctx)
	j.stop = stop
	j.state.Status = models.JobStatusRunning
	j.state.StartedAt = j.imp.opts.Now()
	j.perf.StartTimestamp = j.state.StartedAt
	j.report = j.monitor.Observe(j.perf, j.state.Status)
	j.publishLocked()
	return runCtx, nil
}

func (j *Job) run(ctx context.Context, raw string) {
	defer close(j.done)
	defer j.stop()

	set, err := ParseRecords(raw)
	if err != nil {
		j.fail(ctx, err.Error())
		return
	}
	if err := j.imp.uploader.Ready(ctx); err != nil {
		j.fail(ctx, fmt.Sprintf("media host unavailable: %v", err))
		return
	}

	totalImages := 0
	for _, rec := range set.All() {
		totalImages += countImages(rec)
	}

	j.mu.Lock()
	j.state.TotalRecords = set.Len()
	j.state.TotalImages = totalImages
	j.refreshLocked()
	j.mu.Unlock()

	j.log.Info("Import started", zap.Int("records", set.Len()), zap.Int("images", totalImages))

	var throttle *rate.Limiter
	if d := j.imp.opts.RecordDelay; d > 0 {
		throttle = rate.NewLimiter(rate.Every(d), 1)
	}
	batch := j.imp.opts.BatchSize

	for i, rec := range set.All() {
		if throttle != nil {
			_ = throttle.Wait(ctx)
		}
		if !j.awaitTurn(ctx) {
			break
		}

		j.mu.Lock()
		j.state.CurrentIndex = i + 1
		j.state.CurrentProduct = productLabel(rec)
		j.publishLocked()
		j.mu.Unlock()

		started := j.imp.opts.Now()
		out := j.process(ctx, rec)
		if out.fault != nil {
			j.fail(ctx, out.fault.Error())
			return
		}
		j.record(out, j.imp.opts.Now().Sub(started))

		if (i+1)%batch == 0 || i+1 == set.Len() {
			j.checkpoint(ctx)
		}
	}

	j.finish(ctx)
}

// awaitTurn blocks while the job is paused. It returns false once the job has
// been cancelled.
func (j *Job) awaitTurn(ctx context.Context) bool {
	for {
		j.mu.Lock()
		status, gate := j.state.Status, j.gate
		j.mu.Unlock()

		if ctx.Err() != nil || status == models.JobStatusCancelled {
			return false
		}
		if status != models.JobStatusPaused {
			return true
		}
		select {
		case <-gate:
		case <-ctx.Done():
		}
	}
}

type rowOutcome struct {
	committed bool
	rowErr    *models.ValidationError
	uploaded  int
	fault     error
}

func (j *Job) process(ctx context.Context, rec models.CandidateRecord) rowOutcome {
	name := rec.Value(ColumnName)
	rowErr := func(kind models.ErrorKind, msg string) *models.ValidationError {
		partial := rec.Clone()
		return &models.ValidationError{Row: rec.Row, Message: msg, Kind: kind, Product: name, Partial: &partial}
	}

	draft, err := validateRecord(j.imp.validate, rec)
	if err != nil {
		return rowOutcome{rowErr: rowErr(models.ErrorKindValidation, err.Error())}
	}

	var out rowOutcome
	imageURL := ""
	if draft.image != "" {
		hosted, err := j.imp.uploader.UploadSingle(ctx, draft.image)
		if err != nil {
			out.rowErr = rowErr(uploadErrorKind(err), fmt.Sprintf("image upload failed: %v", err))
			return out
		}
		imageURL = hosted
		out.uploaded++
	}

	var gallery []string
	if len(draft.gallery) > 0 {
		items := make([]media.Item, len(draft.gallery))
		for i, ref := range draft.gallery {
			items[i] = media.Item{Reference: ref, Tag: draft.sku}
		}
		res := j.imp.uploader.UploadMany(ctx, items)
		out.uploaded += len(res.Succeeded)
		if len(res.Failed) > 0 {
			msgs := make([]string, 0, len(res.Failed))
			kind := models.ErrorKindCancelled
			for _, f := range res.Failed {
				msgs = append(msgs, f.Err.Error())
				if uploadErrorKind(f.Err) != models.ErrorKindCancelled {
					kind = models.ErrorKindMedia
				}
			}
			out.rowErr = rowErr(kind, fmt.Sprintf("%d of %d gallery images failed: %s",
				len(res.Failed), len(items), strings.Join(msgs, "; ")))
			return out
		}
		gallery = res.URLs()
	}

	product := buildProduct(draft, imageURL, gallery, j.imp.opts.Now().UTC())
	if err := j.imp.validate.Struct(product); err != nil {
		out.rowErr = rowErr(models.ErrorKindValidation, fmt.Sprintf("invalid product: %v", err))
		return out
	}

	// Both catalogs receive the row even if cancellation lands mid-commit.
	if err := j.imp.catalogs.Commit(context.WithoutCancel(ctx), product); err != nil {
		out.fault = fmt.Errorf("commit of row %d failed: %w", rec.Row, err)
		return out
	}
	out.committed = true
	return out
}

func (j *Job) record(out rowOutcome, took time.Duration) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.busy += took
	j.state.UploadedImages += out.uploaded
	if out.committed {
		j.state.Succeeded++
		j.dirty = true
	} else if out.rowErr != nil {
		j.state.Failed++
		if limit := j.imp.opts.MaxRetainedErrors; limit > 0 && len(j.errs) >= limit {
			j.truncated++
		} else {
			j.errs = append(j.errs, *out.rowErr)
		}
		j.log.Warn("Import row failed",
			zap.Int("row", out.rowErr.Row),
			zap.String("kind", string(out.rowErr.Kind)),
			zap.String("error", out.rowErr.Message))
	}
	j.refreshLocked()
}

func (j *Job) checkpoint(ctx context.Context) {
	hookCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), hookTimeout)
	defer cancel()

	j.mu.Lock()
	rec := j.statusRecordLocked()
	j.mu.Unlock()

	j.log.Info("Import batch processed",
		zap.Int("processed", rec.State.Processed()),
		zap.Int("total", rec.State.TotalRecords),
		zap.Float64("progress_percent", rec.Report.ProgressPercent))

	if m := j.imp.hooks.Metrics; m != nil {
		if err := m.RecordBatch(hookCtx, j.id, rec.Performance); err != nil {
			j.log.Warn("Failed to record import metrics", zap.Error(err))
		}
	}
	if j.dirty && j.imp.hooks.CatalogChanged != nil {
		j.imp.hooks.CatalogChanged(hookCtx)
	}
	j.dirty = false
	if cp := j.imp.hooks.Checkpoint; cp != nil {
		cp(hookCtx, rec)
	}
}

func (j *Job) finish(ctx context.Context) {
	j.mu.Lock()
	if j.state.Status != models.JobStatusCancelled {
		if ctx.Err() != nil && j.state.Processed() < j.state.TotalRecords {
			j.state.Status = models.JobStatusCancelled
		} else {
			j.state.Status = models.JobStatusCompleted
		}
	}
	finished := j.imp.opts.Now()
	j.state.FinishedAt = &finished
	j.openGateLocked()
	res := Finalize(j.state, j.errs, j.truncated)
	j.result = &res
	j.refreshLocked()
	j.closeSubsLocked()
	j.mu.Unlock()

	j.log.Info("Import finished",
		zap.String("status", string(res.Status)),
		zap.Int("succeeded", res.Succeeded),
		zap.Int("failed", res.Failed),
		zap.Int("not_attempted", res.NotAttempted),
		zap.Int("total", res.Total))
	j.checkpoint(ctx)
}

func (j *Job) fail(ctx context.Context, msg string) {
	j.mu.Lock()
	if j.state.Status == models.JobStatusCancelled {
		j.mu.Unlock()
		j.finish(ctx)
		return
	}
	j.state.Status = models.JobStatusFailed
	j.state.Fault = &models.ValidationError{Row: 0, Message: msg, Kind: models.ErrorKindPipeline}
	finished := j.imp.opts.Now()
	j.state.FinishedAt = &finished
	j.openGateLocked()
	j.refreshLocked()
	j.closeSubsLocked()
	j.mu.Unlock()

	j.log.Error("Import failed", zap.String("fault", msg))
	j.checkpoint(ctx)
}

// refreshLocked recomputes the snapshot, feeds the monitor and publishes.
func (j *Job) refreshLocked() {
	now := j.imp.opts.Now()
	processed := j.state.Processed()

	j.perf.TotalRecords = j.state.TotalRecords
	j.perf.ProcessedRecords = processed
	j.perf.TotalImages = j.state.TotalImages
	j.perf.UploadedImages = j.state.UploadedImages
	j.perf.StartTimestamp = j.state.StartedAt
	j.perf.AverageProcessingTimeMs = 0
	j.perf.ErrorRate = 0
	j.perf.ThroughputPerMinute = 0
	if processed > 0 {
		j.perf.AverageProcessingTimeMs = float64(j.busy.Milliseconds()) / float64(processed)
		j.perf.ErrorRate = float64(j.state.Failed) / float64(processed)
		if elapsed := now.Sub(j.state.StartedAt); elapsed > 0 {
			j.perf.ThroughputPerMinute = float64(processed) / elapsed.Minutes()
		}
	}

	j.report = j.monitor.Observe(j.perf, j.state.Status)
	j.publishLocked()
}

func (j *Job) openGateLocked() {
	if j.gate != nil {
		close(j.gate)
		j.gate = nil
	}
}

func (j *Job) publishLocked() {
	if len(j.subs) == 0 {
		return
	}
	u := j.updateLocked()
	for _, ch := range j.subs {
		select {
		case ch <- u:
		default:
			// drop the oldest pending update so the newest always lands
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- u:
			default:
			}
		}
	}
}

func (j *Job) closeSubsLocked() {
	j.settled = true
	j.publishLocked()
	for id, ch := range j.subs {
		close(ch)
		delete(j.subs, id)
	}
}

func (j *Job) updateLocked() Update {
	return Update{State: j.stateLocked(), Performance: j.perf, Report: cloneReport(j.report), Final: j.settled}
}

func (j *Job) statusRecordLocked() models.JobStatusRecord {
	rec := models.JobStatusRecord{
		State:       j.stateLocked(),
		Performance: j.perf,
		Report:      cloneReport(j.report),
		UpdatedAt:   j.imp.opts.Now().UTC(),
	}
	if j.result != nil {
		res := cloneResult(*j.result)
		rec.Result = &res
	}
	return rec
}

func (j *Job) stateLocked() models.JobState {
	s := j.state
	if s.FinishedAt != nil {
		t := *s.FinishedAt
		s.FinishedAt = &t
	}
	if s.Fault != nil {
		f := *s.Fault
		s.Fault = &f
	}
	return s
}

func cloneReport(r models.ProgressReport) models.ProgressReport {
	r.ThroughputHistory = append([]float64(nil), r.ThroughputHistory...)
	r.Advisories = append([]string(nil), r.Advisories...)
	return r
}

func cloneResult(r models.JobResult) models.JobResult {
	errs := make([]models.ValidationError, len(r.Errors))
	for i, e := range r.Errors {
		if e.Partial != nil {
			p := e.Partial.Clone()
			e.Partial = &p
		}
		errs[i] = e
	}
	r.Errors = errs
	return r
}

func uploadErrorKind(err error) models.ErrorKind {
	if errors.Is(err, media.ErrOperationCancelled) {
		return models.ErrorKindCancelled
	}
	return models.ErrorKindMedia
}

func countImages(rec models.CandidateRecord) int {
	n := len(splitList(rec.Value(ColumnGalleryURLs)))
	if rec.Value(ColumnImageURL) != "" {
		n++
	}
	return n
}

func productLabel(rec models.CandidateRecord) string {
	if name := rec.Value(ColumnName); name != "" {
		return name
	}
	return fmt.Sprintf("row %d", rec.Row)
}
