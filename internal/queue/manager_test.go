package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForStatus(t *testing.T, m *Manager, jobID string, want Status, timeout time.Duration) *Job {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		job, err := m.Get(jobID)
		require.NoError(t, err)
		if job.Status == want {
			return job
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("job %s never reached status %s", jobID, want)
	return nil
}

func TestSubmit_RunsJobToCompletionAndCachesResult(t *testing.T) {
	m := New(2, time.Hour, time.Hour)
	m.Start()
	defer m.Stop()

	job := m.Submit(KindSingle, "fp-1", false, func(ctx context.Context, report func(float64, int, int)) (interface{}, error) {
		report(50, 1, 2)
		return "ok", nil
	})

	waitForStatus(t, m, job.ID, StatusCompleted, time.Second)
	result, err := m.Result(job.ID)
	require.NoError(t, err)
	assert.Equal(t, "ok", result)

	job2 := m.Submit(KindSingle, "fp-1", false, func(ctx context.Context, report func(float64, int, int)) (interface{}, error) {
		t.Fatal("should not run: cache hit should skip the worker")
		return nil, nil
	})
	assert.True(t, job2.Cached)
	assert.Equal(t, StatusCompleted, job2.Status)
	result2, err := m.Result(job2.ID)
	require.NoError(t, err)
	assert.Equal(t, "ok", result2)
}

func TestSubmit_BypassCacheSkipsCacheHit(t *testing.T) {
	m := New(1, time.Hour, time.Hour)
	m.Start()
	defer m.Stop()

	job := m.Submit(KindSingle, "fp-2", false, func(ctx context.Context, report func(float64, int, int)) (interface{}, error) {
		return "first", nil
	})
	waitForStatus(t, m, job.ID, StatusCompleted, time.Second)

	ran := false
	job2 := m.Submit(KindSingle, "fp-2", true, func(ctx context.Context, report func(float64, int, int)) (interface{}, error) {
		ran = true
		return "second", nil
	})
	waitForStatus(t, m, job2.ID, StatusCompleted, time.Second)
	assert.True(t, ran)
	assert.False(t, job2.Cached)
}

func TestSubmit_FailedJobRecordsErrorAndIsNotCached(t *testing.T) {
	m := New(1, time.Hour, time.Hour)
	m.Start()
	defer m.Stop()

	job := m.Submit(KindSingle, "fp-3", false, func(ctx context.Context, report func(float64, int, int)) (interface{}, error) {
		return nil, errors.New("boom")
	})
	waitForStatus(t, m, job.ID, StatusFailed, time.Second)

	_, err := m.Result(job.ID)
	assert.Error(t, err)

	got, err := m.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, "boom", got.Error)
}

func TestCancel_PendingJobCancelsImmediately(t *testing.T) {
	m := New(0, time.Hour, time.Hour) // no workers started: job stays pending
	job := m.Submit(KindSingle, "", false, func(ctx context.Context, report func(float64, int, int)) (interface{}, error) {
		return "unreachable", nil
	})

	require.NoError(t, m.Cancel(job.ID))
	got, err := m.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
}

func TestCancel_RunningJobSignalsContextCancellation(t *testing.T) {
	m := New(1, time.Hour, time.Hour)
	m.Start()
	defer m.Stop()

	started := make(chan struct{})
	job := m.Submit(KindSingle, "", false, func(ctx context.Context, report func(float64, int, int)) (interface{}, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})

	<-started
	require.NoError(t, m.Cancel(job.ID))
	waitForStatus(t, m, job.ID, StatusCancelled, time.Second)
}

func TestCancel_AlreadyTerminalJobErrors(t *testing.T) {
	m := New(1, time.Hour, time.Hour)
	m.Start()
	defer m.Stop()

	job := m.Submit(KindSingle, "", false, func(ctx context.Context, report func(float64, int, int)) (interface{}, error) {
		return "done", nil
	})
	waitForStatus(t, m, job.ID, StatusCompleted, time.Second)

	err := m.Cancel(job.ID)
	assert.Error(t, err)
}

func TestSweep_EvictsExpiredTerminalJobsAndCacheEntries(t *testing.T) {
	m := New(1, time.Millisecond, time.Millisecond)
	m.Start()
	defer m.Stop()

	job := m.Submit(KindSingle, "fp-sweep", false, func(ctx context.Context, report func(float64, int, int)) (interface{}, error) {
		return "x", nil
	})
	waitForStatus(t, m, job.ID, StatusCompleted, time.Second)

	time.Sleep(5 * time.Millisecond)
	jobsEvicted, cacheEvicted := m.Sweep(time.Now())
	assert.Equal(t, 1, jobsEvicted)
	assert.Equal(t, 1, cacheEvicted)

	_, err := m.Get(job.ID)
	assert.Error(t, err)
}

func TestResult_NotReadyForPendingOrRunningJobs(t *testing.T) {
	m := New(0, time.Hour, time.Hour)
	job := m.Submit(KindSingle, "", false, func(ctx context.Context, report func(float64, int, int)) (interface{}, error) {
		return "x", nil
	})

	_, err := m.Result(job.ID)
	assert.Error(t, err)
}
