package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aristath/vesting-sim/internal/simerrors"
)

type cacheEntry struct {
	result    interface{}
	expiresAt time.Time
}

// Job is one simulation or Monte-Carlo request tracked by the Manager.
type Job struct {
	ID          string
	Kind        Kind
	Fingerprint string
	Status      Status
	SubmittedAt time.Time
	StartedAt   time.Time
	EndedAt     time.Time
	Error       string
	Result      interface{}
	Cached      bool

	fn              JobFunc
	cancelFunc      context.CancelFunc
	cancelRequested bool
	hub             *progressHub
}

// Manager is the bounded-concurrency job queue: a FIFO of pending jobs
// drained by a fixed worker pool, a fingerprint cache, and per-job progress
// pub/sub.
type Manager struct {
	workers  int
	jobTTL   time.Duration
	cacheTTL time.Duration

	mu    sync.RWMutex
	jobs  map[string]*Job
	cache map[string]cacheEntry

	queueMu sync.Mutex
	pending []*Job
	trigger chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs a Manager. workers <= 0 defaults to DefaultWorkerBudget.
func New(workers int, jobTTL, cacheTTL time.Duration) *Manager {
	if workers <= 0 {
		workers = DefaultWorkerBudget
	}
	if jobTTL <= 0 {
		jobTTL = DefaultJobTTL
	}
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		workers:  workers,
		jobTTL:   jobTTL,
		cacheTTL: cacheTTL,
		jobs:     make(map[string]*Job),
		cache:    make(map[string]cacheEntry),
		trigger:  make(chan struct{}, 1),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start spawns the worker pool. Call once.
func (m *Manager) Start() {
	for i := 0; i < m.workers; i++ {
		m.wg.Add(1)
		go m.workerLoop()
	}
}

// Stop cancels all in-flight jobs and waits for workers to exit.
func (m *Manager) Stop() {
	m.cancel()
	m.wg.Wait()
}

// Submit creates a job for fn. If bypassCache is false and fingerprint hits a
// live cache entry, the job is created already completed with the cached
// result and no worker ever runs it.
func (m *Manager) Submit(kind Kind, fingerprint string, bypassCache bool, fn JobFunc) *Job {
	now := time.Now()

	job := &Job{
		ID:          uuid.NewString(),
		Kind:        kind,
		Fingerprint: fingerprint,
		SubmittedAt: now,
		fn:          fn,
		hub:         newProgressHub(),
	}

	m.mu.Lock()
	if !bypassCache && fingerprint != "" {
		if entry, ok := m.cache[fingerprint]; ok {
			if entry.expiresAt.After(now) {
				job.Status = StatusCompleted
				job.Result = entry.result
				job.Cached = true
				job.StartedAt = now
				job.EndedAt = now
				m.jobs[job.ID] = job
				m.mu.Unlock()
				job.hub.publish(Progress{Percent: 100, Done: true})
				return job
			}
			delete(m.cache, fingerprint) // lazy eviction on lookup
		}
	}
	job.Status = StatusPending
	m.jobs[job.ID] = job
	m.mu.Unlock()

	m.enqueue(job)
	return job
}

func (m *Manager) enqueue(job *Job) {
	m.queueMu.Lock()
	m.pending = append(m.pending, job)
	m.queueMu.Unlock()
	select {
	case m.trigger <- struct{}{}:
	default:
	}
}

func (m *Manager) dequeue() *Job {
	m.queueMu.Lock()
	defer m.queueMu.Unlock()
	if len(m.pending) == 0 {
		return nil
	}
	job := m.pending[0]
	m.pending = m.pending[1:]
	return job
}

func (m *Manager) workerLoop() {
	defer m.wg.Done()
	for {
		job := m.dequeue()
		if job == nil {
			select {
			case <-m.trigger:
				continue
			case <-m.ctx.Done():
				return
			}
		}
		m.runJob(job)

		select {
		case <-m.ctx.Done():
			return
		default:
		}
	}
}

func (m *Manager) runJob(job *Job) {
	m.mu.Lock()
	if job.Status == StatusCancelled {
		m.mu.Unlock()
		return
	}
	jobCtx, cancel := context.WithCancel(m.ctx)
	job.cancelFunc = cancel
	job.Status = StatusRunning
	job.StartedAt = time.Now()
	m.mu.Unlock()
	defer cancel()

	var last Progress
	report := func(percent float64, month, totalMonths int) {
		last = Progress{Percent: percent, Month: month, TotalMonths: totalMonths}
		job.hub.publish(last)
	}

	result, err := job.fn(jobCtx, report)

	m.mu.Lock()
	switch {
	case err != nil && errors.Is(err, context.Canceled) && job.cancelRequested:
		job.Status = StatusCancelled
	case err != nil:
		job.Status = StatusFailed
		job.Error = err.Error()
	default:
		job.Status = StatusCompleted
		job.Result = result
		if job.Fingerprint != "" {
			m.cache[job.Fingerprint] = cacheEntry{result: result, expiresAt: time.Now().Add(m.cacheTTL)}
		}
	}
	job.EndedAt = time.Now()
	status := job.Status
	m.mu.Unlock()

	last.Done = true
	if status == StatusCompleted {
		last.Percent = 100
	}
	job.hub.publish(last)
}

// Get returns the job by id, or a simerrors.NotFoundError.
func (m *Manager) Get(jobID string) (*Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, &simerrors.NotFoundError{JobID: jobID}
	}
	return job, nil
}

// Result returns the completed job's result, or a not-ready/not-found error.
func (m *Manager) Result(jobID string) (interface{}, error) {
	job, err := m.Get(jobID)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if job.Status != StatusCompleted {
		return nil, &simerrors.NotReadyError{JobID: jobID, Status: string(job.Status)}
	}
	return job.Result, nil
}

// Cancel requests cancellation of a job. A pending job cancels immediately;
// a running job is signaled and stops at its next monthly check.
func (m *Manager) Cancel(jobID string) error {
	m.mu.Lock()
	job, ok := m.jobs[jobID]
	if !ok {
		m.mu.Unlock()
		return &simerrors.NotFoundError{JobID: jobID}
	}

	switch job.Status {
	case StatusPending:
		job.Status = StatusCancelled
		job.cancelRequested = true
		job.EndedAt = time.Now()
		m.mu.Unlock()
		job.hub.publish(Progress{Done: true})
		return nil

	case StatusRunning:
		job.cancelRequested = true
		cancelFn := job.cancelFunc
		m.mu.Unlock()
		if cancelFn != nil {
			cancelFn()
		}
		return nil

	default:
		status := job.Status
		m.mu.Unlock()
		return &simerrors.AlreadyTerminalError{JobID: jobID, Status: string(status)}
	}
}

// Subscribe attaches to a job's progress stream. See progressHub for delivery semantics.
func (m *Manager) Subscribe(jobID string) (<-chan Progress, func(), error) {
	job, err := m.Get(jobID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := job.hub.subscribe()
	return ch, cancel, nil
}

// Sweep evicts terminal jobs past their TTL and expired cache entries.
// Intended to be invoked periodically (see Sweeper).
func (m *Manager) Sweep(now time.Time) (jobsEvicted, cacheEvicted int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, job := range m.jobs {
		if !isTerminal(job.Status) {
			continue
		}
		if now.Sub(job.EndedAt) > m.jobTTL {
			delete(m.jobs, id)
			jobsEvicted++
		}
	}

	for fp, entry := range m.cache {
		if now.After(entry.expiresAt) {
			delete(m.cache, fp)
			cacheEvicted++
		}
	}
	return jobsEvicted, cacheEvicted
}

func isTerminal(s Status) bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}
