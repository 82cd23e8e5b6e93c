package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Baruah123/Pinnacle-Paints-Client-sub000/events"
	"github.com/Baruah123/Pinnacle-Paints-Client-sub000/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxRetainedJobs = 100

// ErrQueueUnavailable is returned by Enqueue when no queue is configured.
var ErrQueueUnavailable = errors.New("import queue not configured")

// EventPublisher announces job lifecycle changes.
type EventPublisher interface {
	Publish(ctx context.Context, evt events.ImportEvent) error
}

// ManagerDeps are the optional collaborators of a Manager.
type ManagerDeps struct {
	Store          StatusStore
	Events         EventPublisher
	Metrics        MetricsRecorder
	CatalogChanged func(ctx context.Context)
	Queue          *ImportQueue
}

// Manager owns the import jobs of this process: it starts them, routes control
// calls by ID and persists their status at every checkpoint.
type Manager struct {
	ctx      context.Context
	importer *Importer
	deps     ManagerDeps
	log      *zap.Logger

	mu    sync.RWMutex
	jobs  map[string]*Job
	order []string
}

// NewManager builds the importer for uploader and catalogs. Jobs run under ctx,
// not under the request that started them.
func NewManager(ctx context.Context, uploader MediaUploader, catalogs CatalogWriter, opts Options, deps ManagerDeps, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Manager{
		ctx:  ctx,
		deps: deps,
		log:  log,
		jobs: make(map[string]*Job),
	}
	m.importer = NewImporter(uploader, catalogs, opts, Hooks{
		Metrics:        deps.Metrics,
		CatalogChanged: deps.CatalogChanged,
		Checkpoint:     m.checkpoint,
	}, log)
	return m
}

// Start registers a new job and begins processing raw in the background.
func (m *Manager) Start(raw string) (*Job, error) {
	job := m.register(uuid.New().String())
	m.announceStart(job.ID())
	if err := job.Start(m.ctx, raw); err != nil {
		return nil, err
	}
	return job, nil
}

// Enqueue registers an idle job and hands its payload to the queue worker.
func (m *Manager) Enqueue(ctx context.Context, raw string) (*Job, error) {
	if m.deps.Queue == nil {
		return nil, ErrQueueUnavailable
	}
	job := m.register(uuid.New().String())
	m.persist(ctx, job.StatusRecord())
	if err := m.deps.Queue.Push(ctx, job.ID(), raw); err != nil {
		m.forget(job.ID())
		return nil, err
	}
	m.log.Info("Import job queued", zap.String("job_id", job.ID()))
	return job, nil
}

// RunQueued runs a job popped from the queue and blocks until it ends. Jobs
// queued by another process are registered on the fly.
func (m *Manager) RunQueued(ctx context.Context, id, raw string) error {
	job, ok := m.Get(id)
	if !ok {
		job = m.register(id)
	}
	m.announceStart(id)
	if err := job.Start(m.ctx, raw); err != nil {
		return err
	}
	return job.Wait(ctx)
}

// Get returns a job still held in memory.
func (m *Manager) Get(id string) (*Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	return job, ok
}

// Status returns the live status of a job, falling back to the status store
// for jobs no longer held in memory.
func (m *Manager) Status(ctx context.Context, id string) (models.JobStatusRecord, error) {
	if job, ok := m.Get(id); ok {
		return job.StatusRecord(), nil
	}
	if m.deps.Store == nil {
		return models.JobStatusRecord{}, ErrJobNotFound
	}
	return m.deps.Store.Load(ctx, id)
}

// List returns the status of every in-memory job, newest first.
func (m *Manager) List() []models.JobStatusRecord {
	m.mu.RLock()
	jobs := make([]*Job, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		jobs = append(jobs, m.jobs[m.order[i]])
	}
	m.mu.RUnlock()

	out := make([]models.JobStatusRecord, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.StatusRecord())
	}
	return out
}

func (m *Manager) Pause(id string) error {
	return m.control(id, (*Job).Pause)
}

func (m *Manager) Resume(id string) error {
	return m.control(id, (*Job).Resume)
}

func (m *Manager) Cancel(id string) error {
	return m.control(id, (*Job).Cancel)
}

// Template returns the CSV header users fill in.
func (m *Manager) Template() string {
	return TemplateCSV()
}

func (m *Manager) control(id string, op func(*Job) error) error {
	job, ok := m.Get(id)
	if !ok {
		return ErrJobNotFound
	}
	if err := op(job); err != nil {
		return err
	}
	m.persist(m.ctx, job.StatusRecord())
	return nil
}

func (m *Manager) register(id string) *Job {
	job := m.importer.NewJob(id)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[id] = job
	m.order = append(m.order, id)
	m.evictLocked()
	return job
}

func (m *Manager) forget(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, id)
	for i, o := range m.order {
		if o == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// evictLocked drops the oldest finished jobs beyond maxRetainedJobs. Their
// status stays available through the store.
func (m *Manager) evictLocked() {
	for len(m.order) > maxRetainedJobs {
		evicted := false
		for i, id := range m.order {
			if m.jobs[id].Settled() {
				delete(m.jobs, id)
				m.order = append(m.order[:i], m.order[i+1:]...)
				evicted = true
				break
			}
		}
		if !evicted {
			return
		}
	}
}

func (m *Manager) checkpoint(ctx context.Context, rec models.JobStatusRecord) {
	m.persist(ctx, rec)
	// a cancelled job may still be recording its row in flight; only the
	// settled record carries a result
	if rec.Result != nil || rec.State.Status == models.JobStatusFailed {
		m.announce(rec)
	}
}

func (m *Manager) persist(ctx context.Context, rec models.JobStatusRecord) {
	if m.deps.Store == nil {
		return
	}
	if err := m.deps.Store.Save(ctx, rec); err != nil {
		m.log.Warn("Failed to persist import status", zap.String("job_id", rec.State.ID), zap.Error(err))
	}
}

// announceStart publishes before the job goroutine exists so the started
// event always precedes the terminal one.
func (m *Manager) announceStart(id string) {
	m.publish(events.ImportEvent{
		Type:       events.ImportStarted,
		JobID:      id,
		Status:     string(models.JobStatusRunning),
		OccurredAt: time.Now().UTC(),
	})
}

func (m *Manager) announce(rec models.JobStatusRecord) {
	m.publish(events.FromStatus(rec, time.Now()))
}

func (m *Manager) publish(evt events.ImportEvent) {
	if m.deps.Events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(m.ctx), hookTimeout)
	defer cancel()
	if err := m.deps.Events.Publish(ctx, evt); err != nil {
		m.log.Warn("Failed to publish import event",
			zap.String("job_id", evt.JobID),
			zap.String("event_type", evt.Type),
			zap.Error(err))
	}
}
