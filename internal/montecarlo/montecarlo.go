// Package montecarlo replicates a base simulation across many seeded trials
// and aggregates percentile trajectories (§4.9).
//
// Percentile and mean aggregation is grounded on
// trader-go/internal/modules/evaluation/advanced.go's EvaluateMonteCarlo,
// which already computes stat.Mean, floats.Min/Max, and
// stat.Quantile(p, stat.Empirical, pathScores, nil) over parallel path
// results; this package generalizes that exact pattern from a single
// terminal score to a full per-month metric series.
package montecarlo

import (
	"context"
	"fmt"
	"hash/fnv"
	"runtime"
	"sort"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/vesting-sim/internal/simerrors"
	"github.com/aristath/vesting-sim/internal/simulation"
)

// Config describes a Monte-Carlo replication of a base simulation.
type Config struct {
	Base         simulation.Config
	Trials       int
	Percentiles  []float64 // e.g. {10, 50, 90}
	MasterSeed   uint64
	WorkerBudget int
}

// PercentileStat summarizes one metric at one month across all trials.
type PercentileStat struct {
	Mean        float64
	Min         float64
	Max         float64
	Percentiles map[float64]float64 // keyed by the requested percentile rank
}

// MonthAggregate is the cross-trial rollup for one simulated month.
type MonthAggregate struct {
	Month       int
	Price       PercentileStat
	Circulating PercentileStat
	Staked      PercentileStat
	Burned      PercentileStat
	Volume      PercentileStat
}

// Result is the full Monte-Carlo output.
type Result struct {
	Months []MonthAggregate
}

// ProgressFunc is invoked as each trial completes.
type ProgressFunc func(trialsDone, totalTrials int)

// deriveTrialSeed produces a deterministic per-trial seed via an FNV-1a fold
// of the master seed and a trial counter, the same counter-based-split idiom
// used for per-agent-per-month seeds in agent.DeriveSeed, applied here at the
// trial granularity instead.
func deriveTrialSeed(masterSeed uint64, trial int) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	putUint64(buf[:], masterSeed)
	_, _ = h.Write(buf[:])
	putUint64(buf[:], uint64(trial))
	_, _ = h.Write(buf[:])
	return h.Sum64()
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

type trialJob struct {
	index int
	seed  uint64
}

type trialOutcome struct {
	index  int
	result *simulation.Result
	err    error
}

// Run executes Trials independent simulation runs, each under its own
// deterministic seed, and aggregates per-month percentile trajectories. A
// single trial failure aborts the whole run and discards partial results
// (§4.9, and the open question resolved in DESIGN.md).
func Run(ctx context.Context, cfg Config, progress ProgressFunc) (*Result, error) {
	if cfg.Trials < 1 {
		return nil, &simerrors.ValidationError{Field: "trials", Message: "must be >= 1"}
	}
	if len(cfg.Percentiles) == 0 {
		return nil, &simerrors.ValidationError{Field: "percentiles", Message: "must be non-empty"}
	}

	workers := cfg.WorkerBudget
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > cfg.Trials {
		workers = cfg.Trials
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan trialJob, cfg.Trials)
	outcomes := make(chan trialOutcome, cfg.Trials)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				trialCfg := cfg.Base
				trialCfg.Seed = job.seed
				res, err := simulation.Run(ctx, trialCfg, nil)
				outcomes <- trialOutcome{index: job.index, result: res, err: err}
			}
		}()
	}

	for i := 0; i < cfg.Trials; i++ {
		jobs <- trialJob{index: i, seed: deriveTrialSeed(cfg.MasterSeed, i)}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	trialResults := make([]*simulation.Result, cfg.Trials)
	var firstErr error
	done := 0
	for out := range outcomes {
		done++
		if out.err != nil {
			if firstErr == nil {
				firstErr = out.err
				cancel() // stop remaining in-flight trials early
			}
			continue
		}
		trialResults[out.index] = out.result
		if progress != nil {
			progress(done, cfg.Trials)
		}
	}

	if firstErr != nil {
		return nil, fmt.Errorf("monte carlo trial failed: %w", firstErr)
	}

	horizon := cfg.Base.Horizon
	for _, tr := range trialResults {
		if len(tr.Months) < horizon {
			horizon = len(tr.Months)
		}
	}

	months := make([]MonthAggregate, horizon)
	for m := 0; m < horizon; m++ {
		prices := make([]float64, cfg.Trials)
		circulating := make([]float64, cfg.Trials)
		staked := make([]float64, cfg.Trials)
		burned := make([]float64, cfg.Trials)
		volume := make([]float64, cfg.Trials)

		for t, tr := range trialResults {
			mm := tr.Months[m]
			prices[t] = mm.Price
			circulating[t] = mm.Circulating
			staked[t] = mm.Staked
			burned[t] = mm.Burned
			volume[t] = mm.Volume
		}

		months[m] = MonthAggregate{
			Month:       m,
			Price:       summarize(prices, cfg.Percentiles),
			Circulating: summarize(circulating, cfg.Percentiles),
			Staked:      summarize(staked, cfg.Percentiles),
			Burned:      summarize(burned, cfg.Percentiles),
			Volume:      summarize(volume, cfg.Percentiles),
		}
	}

	return &Result{Months: months}, nil
}

// summarize computes mean/min/max/percentiles over one metric's values
// across all trials at a fixed month. values is sorted in place, matching
// the teacher's EvaluateMonteCarlo's sort-then-stat.Quantile sequencing.
func summarize(values []float64, percentiles []float64) PercentileStat {
	sort.Float64s(values)

	out := PercentileStat{
		Mean:        stat.Mean(values, nil),
		Min:         floats.Min(values),
		Max:         floats.Max(values),
		Percentiles: make(map[float64]float64, len(percentiles)),
	}
	for _, p := range percentiles {
		out.Percentiles[p] = stat.Quantile(p/100.0, stat.Empirical, values, nil)
	}
	return out
}
