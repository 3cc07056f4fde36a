package simulation

import (
	"sync"

	"github.com/aristath/vesting-sim/internal/agent"
	"github.com/aristath/vesting-sim/internal/economy"
)

// agentPool evaluates a batch of agent decisions in parallel across a fixed
// number of worker goroutines.
//
// Grounded on services/evaluator/internal/workers/pool.go's WorkerPool:
// a jobs channel plus a results channel plus a sync.WaitGroup, generalized
// here from sequence evaluation to per-agent monthly decisions.
type agentPool struct {
	numWorkers int
}

func newAgentPool(numWorkers int) *agentPool {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	return &agentPool{numWorkers: numWorkers}
}

type decideJob struct {
	index int
	a     *agent.Agent
}

type decideResult struct {
	index  int
	action agent.Action
}

// decideBatch runs Decide for every agent against the given snapshot and
// staking context, returning actions in the same order as agents.
func (p *agentPool) decideBatch(agents []*agent.Agent, snap economy.Snapshot, month int, staking agent.StakingContext) []agent.Action {
	n := len(agents)
	if n == 0 {
		return nil
	}

	jobs := make(chan decideJob, n)
	results := make(chan decideResult, n)

	workers := p.numWorkers
	if n < workers {
		workers = n
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				results <- decideResult{
					index:  job.index,
					action: job.a.Decide(snap, month, staking),
				}
			}
		}()
	}

	for idx, a := range agents {
		jobs <- decideJob{index: idx, a: a}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	actions := make([]agent.Action, n)
	for r := range results {
		actions[r.index] = r.action
	}
	return actions
}
