// Package queue implements the bounded-concurrency job queue, fingerprint
// cache, and progress pub/sub (§4.10, §4.11).
//
// The FIFO-pending-queue-plus-worker-pool concurrency shape is grounded on
// internal/work/processor.go's single-in-flight dependency processor,
// generalized here from one in-flight item to an M-wide bounded worker pool;
// the job/status vocabulary is grounded on internal/queue/types.go's
// JobType/Priority/Job enums.
package queue

import (
	"context"
	"time"
)

// Status is a job's lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Kind identifies what sort of work a job runs.
type Kind string

const (
	KindSingle     Kind = "single"
	KindMonteCarlo Kind = "montecarlo"
)

// DefaultWorkerBudget is the default number of jobs allowed to run concurrently.
const DefaultWorkerBudget = 5

// DefaultJobTTL is how long a terminal job is retained before the sweeper evicts it.
const DefaultJobTTL = 24 * time.Hour

// DefaultCacheTTL is how long a cache entry is retained.
const DefaultCacheTTL = 2 * time.Hour

// Progress is a point-in-time progress snapshot for a job.
type Progress struct {
	Percent     float64
	Month       int
	TotalMonths int
	Done        bool // true only on the final terminal message
}

// JobFunc is the work a job executes. report must be safe to call repeatedly
// and must never block the caller (the manager wraps it with a non-blocking
// publish). The returned result is whatever the caller's job kind produces:
// *simulation.Result for single jobs, *montecarlo.Result for Monte-Carlo jobs.
type JobFunc func(ctx context.Context, report func(percent float64, month, totalMonths int)) (interface{}, error)
