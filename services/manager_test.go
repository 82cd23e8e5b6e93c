package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Baruah123/Pinnacle-Paints-Client-sub000/events"
	"github.com/Baruah123/Pinnacle-Paints-Client-sub000/models"
	"github.com/Baruah123/Pinnacle-Paints-Client-sub000/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStatusStore struct {
	mu      sync.Mutex
	records map[string]models.JobStatusRecord
	saves   int
}

func newFakeStatusStore() *fakeStatusStore {
	return &fakeStatusStore{records: make(map[string]models.JobStatusRecord)}
}

func (s *fakeStatusStore) Save(ctx context.Context, rec models.JobStatusRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.State.ID] = rec
	s.saves++
	return nil
}

func (s *fakeStatusStore) Load(ctx context.Context, id string) (models.JobStatusRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return models.JobStatusRecord{}, ErrJobNotFound
	}
	return rec, nil
}

type fakeEvents struct {
	mu     sync.Mutex
	events []events.ImportEvent
}

func (f *fakeEvents) Publish(ctx context.Context, evt events.ImportEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, evt)
	return nil
}

func (f *fakeEvents) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	for i, e := range f.events {
		out[i] = e.Type
	}
	return out
}

func newTestManager(t *testing.T, deps ManagerDeps) (*Manager, *repository.CatalogSet) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	catalogs := repository.NewCatalogSet(repository.NewMemoryCatalog("admin"), repository.NewMemoryCatalog("shop"), nil)
	return NewManager(ctx, &fakeUploader{}, catalogs, Options{BatchSize: 2}, deps, nil), catalogs
}

func waitJob(t *testing.T, job *Job) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, job.Wait(ctx))
}

func TestManager_StartPersistsAndAnnounces(t *testing.T) {
	store := newFakeStatusStore()
	pub := &fakeEvents{}
	m, catalogs := newTestManager(t, ManagerDeps{Store: store, Events: pub})

	job, err := m.Start(csvOf(validRows(3)...))
	require.NoError(t, err)
	waitJob(t, job)

	rec, err := m.Status(context.Background(), job.ID())
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, rec.State.Status)
	require.NotNil(t, rec.Result)
	assert.Equal(t, 3, rec.Result.Succeeded)

	stored, err := store.Load(context.Background(), job.ID())
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, stored.State.Status)

	assert.Equal(t, []string{events.ImportStarted, events.ImportCompleted}, pub.types())

	n, err := catalogs.Shop.Len(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestManager_StatusFallsBackToStore(t *testing.T) {
	store := newFakeStatusStore()
	require.NoError(t, store.Save(context.Background(), models.JobStatusRecord{
		State: models.JobState{ID: "evicted", Status: models.JobStatusCancelled},
	}))
	m, _ := newTestManager(t, ManagerDeps{Store: store})

	rec, err := m.Status(context.Background(), "evicted")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCancelled, rec.State.Status)

	_, err = m.Status(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestManager_StatusWithoutStore(t *testing.T) {
	m, _ := newTestManager(t, ManagerDeps{})
	_, err := m.Status(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestManager_ListNewestFirst(t *testing.T) {
	m, _ := newTestManager(t, ManagerDeps{})

	first, err := m.Start(csvOf(validRows(1)...))
	require.NoError(t, err)
	waitJob(t, first)
	second, err := m.Start(csvOf(validRows(1)...))
	require.NoError(t, err)
	waitJob(t, second)

	list := m.List()
	require.Len(t, list, 2)
	assert.Equal(t, second.ID(), list[0].State.ID)
	assert.Equal(t, first.ID(), list[1].State.ID)
}

func TestManager_ControlRouting(t *testing.T) {
	store := newFakeStatusStore()
	m, _ := newTestManager(t, ManagerDeps{Store: store})

	assert.ErrorIs(t, m.Pause("missing"), ErrJobNotFound)
	assert.ErrorIs(t, m.Resume("missing"), ErrJobNotFound)
	assert.ErrorIs(t, m.Cancel("missing"), ErrJobNotFound)

	job, err := m.Start(csvOf(validRows(1)...))
	require.NoError(t, err)
	waitJob(t, job)

	assert.ErrorIs(t, m.Pause(job.ID()), ErrInvalidTransition)
	assert.ErrorIs(t, m.Cancel(job.ID()), ErrInvalidTransition)
}

func TestManager_CancelPersistsImmediately(t *testing.T) {
	store := newFakeStatusStore()
	pub := &fakeEvents{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var m *Manager
	var jobID string
	release := make(chan struct{})
	admin := &recordingCatalog{}
	admin.onCommit = func(n int) {
		if n == 1 {
			assert.NoError(t, m.Pause(jobID))
			close(release)
		}
	}
	m = NewManager(ctx, &fakeUploader{}, admin, Options{BatchSize: 2}, ManagerDeps{Store: store, Events: pub}, nil)

	job := m.register("job-cancel")
	jobID = job.ID()
	require.NoError(t, job.Start(ctx, csvOf(validRows(4)...)))

	<-release
	require.NoError(t, m.Cancel(jobID))
	stored, err := store.Load(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCancelled, stored.State.Status)

	waitJob(t, job)
	res, ok := job.Result()
	require.True(t, ok)
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, 3, res.NotAttempted)

	types := pub.types()
	require.NotEmpty(t, types)
	assert.Equal(t, events.ImportCancelled, types[len(types)-1])
	cancelled := 0
	for _, typ := range types {
		if typ == events.ImportCancelled {
			cancelled++
		}
	}
	assert.Equal(t, 1, cancelled)
}

func TestManager_FailedJobAnnouncesFault(t *testing.T) {
	pub := &fakeEvents{}
	m, _ := newTestManager(t, ManagerDeps{Events: pub})

	job, err := m.Start(testHeader + "\n")
	require.NoError(t, err)
	waitJob(t, job)

	assert.Equal(t, models.JobStatusFailed, job.State().Status)
	require.Len(t, pub.events, 2)
	assert.Equal(t, events.ImportFailed, pub.events[1].Type)
	assert.NotEmpty(t, pub.events[1].Fault)
}

func TestManager_EnqueueWithoutQueue(t *testing.T) {
	m, _ := newTestManager(t, ManagerDeps{})
	_, err := m.Enqueue(context.Background(), csvOf(validRows(1)...))
	assert.ErrorIs(t, err, ErrQueueUnavailable)
	assert.Empty(t, m.List())
}

func TestManager_EnqueuePushFailureForgetsJob(t *testing.T) {
	dir := t.TempDir()
	m, _ := newTestManager(t, ManagerDeps{Queue: NewImportQueue(newTestRedisClient(), dir)})

	_, err := m.Enqueue(context.Background(), csvOf(validRows(1)...))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to enqueue job")
	assert.Empty(t, m.List())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestManager_RunQueuedRegistersUnknownJob(t *testing.T) {
	m, _ := newTestManager(t, ManagerDeps{})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, m.RunQueued(ctx, "queued-1", csvOf(validRows(2)...)))

	job, ok := m.Get("queued-1")
	require.True(t, ok)
	assert.Equal(t, models.JobStatusCompleted, job.State().Status)
}

func TestImportQueue_ProcessRemovesPayload(t *testing.T) {
	dir := t.TempDir()
	q := NewImportQueue(newTestRedisClient(), dir)
	path := q.payloadPath("queued-2")
	require.NoError(t, os.WriteFile(path, []byte(csvOf(validRows(1)...)), 0o644))

	m, _ := newTestManager(t, ManagerDeps{})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	q.process(ctx, m, "queued-2")

	job, ok := m.Get("queued-2")
	require.True(t, ok)
	assert.Equal(t, models.JobStatusCompleted, job.State().Status)
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestImportQueue_PayloadPathStaysInDir(t *testing.T) {
	q := NewImportQueue(nil, "/var/imports")
	assert.Equal(t, filepath.Join("/var/imports", "passwd.csv"), q.payloadPath("../../etc/passwd"))
}

func TestManager_EvictsOldestFinishedJobs(t *testing.T) {
	m, _ := newTestManager(t, ManagerDeps{})
	for i := 0; i < maxRetainedJobs; i++ {
		job := m.register(fmt.Sprintf("job-%03d", i))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		_ = job.Run(ctx, testHeader+"\n")
		cancel()
	}
	_ = m.register("newest")

	_, ok := m.Get("job-000")
	assert.False(t, ok)
	_, ok = m.Get("job-001")
	assert.True(t, ok)
	assert.Len(t, m.List(), maxRetainedJobs)
}
