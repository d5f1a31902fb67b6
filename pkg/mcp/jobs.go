package mcp

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Sriram-PR/contact-scraper/pkg/models"
)

// JobStatus represents the current state of a scrape job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending" // Waiting for a concurrency slot
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// IsActive reports whether a job in this state still owns its domain
func (s JobStatus) IsActive() bool {
	return s == JobStatusPending || s == JobStatusRunning
}

// Job represents a background scrape of one target domain
type Job struct {
	ID             string         `json:"id"`
	Domain         string         `json:"domain"`
	SeedURL        string         `json:"seed_url"`
	Status         JobStatus      `json:"status"`
	Mode           models.RunMode `json:"mode,omitempty"`
	StartedAt      time.Time      `json:"started_at"`
	CompletedAt    time.Time      `json:"completed_at,omitempty"`
	PagesFetched   int            `json:"pages_fetched"`
	RecordsWritten int            `json:"records_written"`
	PagesQueued    int            `json:"pages_queued"`
	ErrorMessage   string         `json:"error_message,omitempty"`

	// Internal fields
	ctx    context.Context
	cancel context.CancelFunc
}

// JobManager tracks background scrape jobs, allowing one job per domain at a time
type JobManager struct {
	jobs     map[string]*Job
	mu       sync.RWMutex
	byDomain map[string]string // domain -> jobID until the job's run returns
}

// NewJobManager creates a new job manager
func NewJobManager() *JobManager {
	return &JobManager{
		jobs:     make(map[string]*Job),
		byDomain: make(map[string]string),
	}
}

// CreateJob registers a pending job for domain. If a job still owns the domain,
// a snapshot of it is returned with created=false.
func (m *JobManager) CreateJob(domain, seedURL string) (job Job, created bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existingID, ok := m.byDomain[domain]; ok {
		if existing := m.jobs[existingID]; existing != nil {
			return *existing, false
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	j := &Job{
		ID:        uuid.New().String(),
		Domain:    domain,
		SeedURL:   seedURL,
		Status:    JobStatusPending,
		StartedAt: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
	}
	m.jobs[j.ID] = j
	m.byDomain[domain] = j.ID
	return *j, true
}

// GetJob returns a snapshot of the job with jobID
func (m *JobManager) GetJob(jobID string) (Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if job, ok := m.jobs[jobID]; ok {
		return *job, true
	}
	return Job{}, false
}

// IsRunning checks if a job owns domain. A cancelled job keeps ownership until Finish.
func (m *JobManager) IsRunning(domain string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.byDomain[domain]
	return ok
}

// UpdateStatus moves a job to status. A cancelled job stays cancelled.
func (m *JobManager) UpdateStatus(jobID string, status JobStatus, errorMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok || job.Status == JobStatusCancelled {
		return
	}
	job.Status = status
	if !status.IsActive() {
		job.CompletedAt = time.Now()
		job.cancel()
	}
	if errorMsg != "" {
		job.ErrorMessage = errorMsg
	}
}

// UpdateProgress updates the progress counters of a job
func (m *JobManager) UpdateProgress(jobID string, mode models.RunMode, fetched, records, queued int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if job, ok := m.jobs[jobID]; ok {
		job.Mode = mode
		job.PagesFetched = fetched
		job.RecordsWritten = records
		job.PagesQueued = queued
	}
}

// CancelJob cancels an active job. The domain stays owned until the job's run returns and calls Finish.
func (m *JobManager) CancelJob(jobID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok || !job.Status.IsActive() {
		return false
	}
	job.cancel()
	job.Status = JobStatusCancelled
	job.CompletedAt = time.Now()
	return true
}

// Finish releases the job's domain; called once its run goroutine has returned
func (m *JobManager) Finish(jobID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if job, ok := m.jobs[jobID]; ok {
		m.release(job)
	}
}

// CancelAll cancels all active jobs
func (m *JobManager) CancelAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, job := range m.jobs {
		if job.Status.IsActive() {
			job.cancel()
			job.Status = JobStatusCancelled
			job.CompletedAt = time.Now()
		}
	}
}

// ListJobs returns snapshots of all jobs, oldest first
func (m *JobManager) ListJobs() []Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := make([]Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, *job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].StartedAt.Before(jobs[j].StartedAt)
	})
	return jobs
}

// GetContext returns the context for a job (for running the orchestrator)
func (m *JobManager) GetContext(jobID string) context.Context {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if job, ok := m.jobs[jobID]; ok {
		return job.ctx
	}
	return context.Background()
}

// release must be called with mu held
func (m *JobManager) release(job *Job) {
	if m.byDomain[job.Domain] == job.ID {
		delete(m.byDomain, job.Domain)
	}
}
