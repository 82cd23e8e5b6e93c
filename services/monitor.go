package services

import (
	"math"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/Baruah123/Pinnacle-Paints-Client-sub000/models"
)

const throughputHistorySize = 20

// Health thresholds.
const (
	issuesErrorRate     = 0.2
	excellentThroughput = 20.0
	goodThroughput      = 10.0
	advisoryErrorRate   = 0.10
	advisoryThroughput  = 10.0
	advisoryMemoryLoad  = 0.80
)

// Advisory messages. Each fires at most once per job.
const (
	AdvisoryHighErrorRate = "High error rate detected. Consider reducing batch size or checking connectivity."
	AdvisorySlowUploads   = "Slow upload speed. Consider optimizing image sizes or connection."
	AdvisoryHighMemory    = "High memory usage. Consider processing smaller batches."
)

// Monitor derives progress, ETA, health and advisories from performance
// snapshots. It never influences the job it observes.
type Monitor struct {
	mu         sync.Mutex
	now        func() time.Time
	memory     func() (float64, bool)
	history    []float64
	fired      map[string]bool
	advisories []string
}

func NewMonitor(now func() time.Time, memory func() (float64, bool)) *Monitor {
	if now == nil {
		now = time.Now
	}
	if memory == nil {
		memory = func() (float64, bool) { return 0, false }
	}
	return &Monitor{
		now:    now,
		memory: memory,
		fired:  make(map[string]bool),
	}
}

// Observe records a snapshot and returns the derived report.
func (m *Monitor) Observe(snap models.PerformanceSnapshot, status models.JobStatus) models.ProgressReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.history = append(m.history, snap.ThroughputPerMinute)
	if len(m.history) > throughputHistorySize {
		m.history = m.history[len(m.history)-throughputHistorySize:]
	}

	if snap.ProcessedRecords > 0 {
		if snap.ErrorRate > advisoryErrorRate {
			m.advise(AdvisoryHighErrorRate)
		}
		if snap.ThroughputPerMinute < advisoryThroughput {
			m.advise(AdvisorySlowUploads)
		}
	}
	if load, ok := m.memory(); ok && load > advisoryMemoryLoad {
		m.advise(AdvisoryHighMemory)
	}

	report := models.ProgressReport{
		ProgressPercent:      percent(snap.ProcessedRecords, snap.TotalRecords),
		ImageProgressPercent: percent(snap.UploadedImages, snap.TotalImages),
		Health:               ClassifyHealth(snap, status),
		ThroughputHistory:    append([]float64(nil), m.history...),
		Advisories:           append([]string(nil), m.advisories...),
	}
	if !snap.StartTimestamp.IsZero() {
		report.ElapsedSeconds = math.Max(0, m.now().Sub(snap.StartTimestamp).Seconds())
	}
	if remaining := snap.TotalRecords - snap.ProcessedRecords; remaining > 0 && snap.ThroughputPerMinute > 0 {
		report.ETASeconds = float64(remaining) / snap.ThroughputPerMinute * 60
	}
	return report
}

// Advisories returns every advisory fired so far, in firing order.
func (m *Monitor) Advisories() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.advisories...)
}

func (m *Monitor) advise(msg string) {
	if m.fired[msg] {
		return
	}
	m.fired[msg] = true
	m.advisories = append(m.advisories, msg)
}

// ClassifyHealth is a pure function of the current snapshot and status.
func ClassifyHealth(snap models.PerformanceSnapshot, status models.JobStatus) models.Health {
	switch {
	case !status.Active():
		return models.HealthIdle
	case snap.ErrorRate > issuesErrorRate:
		return models.HealthIssuesDetected
	case snap.ThroughputPerMinute > excellentThroughput:
		return models.HealthExcellent
	case snap.ThroughputPerMinute > goodThroughput:
		return models.HealthGood
	default:
		return models.HealthSlow
	}
}

func percent(done, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Min(100, float64(done)/float64(total)*100)
}

// runtimeMemoryPressure reports heap usage against the soft memory limit set
// via GOMEMLIMIT. Without a limit there is no signal.
func runtimeMemoryPressure() (float64, bool) {
	limit := debug.SetMemoryLimit(-1)
	if limit <= 0 || limit == math.MaxInt64 {
		return 0, false
	}
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return float64(ms.HeapAlloc) / float64(limit), true
}
