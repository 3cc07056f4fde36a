// Package scaler implements the adaptive agent-scaling strategy (§4.5).
package scaler

import "math"

// Strategy names the scaling regime selected for a cohort.
type Strategy string

const (
	StrategyFullIndividual  Strategy = "full_individual"
	StrategyRepresentative  Strategy = "representative_sampling"
	StrategyMetaAgents      Strategy = "meta_agents"
)

const (
	smallThreshold       = 1000
	largeThreshold       = 10000
	representativeCap    = 1000
	defaultMetaAgentCount = 50
)

// Plan is the result of scaling one cohort: how many agents to create, the
// per-agent weight, and which regime produced it.
type Plan struct {
	Strategy      Strategy
	AgentsCreated int
	WeightPerAgent float64
}

// Select chooses (strategy, agents_to_create, per_agent_weight) for a cohort
// given the total holder count and the cohort's fractional share.
//
// agentsPerCohortOverride, when > 0, wins across all regimes: it is an
// explicit configuration override (§4.5's "If the configuration explicitly
// sets agents per cohort").
func Select(totalHolders int, fraction float64, agentsPerCohortOverride int) Plan {
	cohortHolders := roundHalfAwayFromZero(float64(totalHolders) * fraction)
	if cohortHolders < 1 {
		cohortHolders = 1
	}

	if agentsPerCohortOverride > 0 {
		agents := agentsPerCohortOverride
		weight := enforceMinWeight(float64(cohortHolders) / float64(agents))
		return Plan{Strategy: overrideStrategyFor(totalHolders), AgentsCreated: agents, WeightPerAgent: weight}
	}

	switch {
	case totalHolders < smallThreshold:
		return Plan{Strategy: StrategyFullIndividual, AgentsCreated: maxInt(cohortHolders, 1), WeightPerAgent: 1}

	case totalHolders <= largeThreshold:
		repCap := roundHalfAwayFromZero(representativeCap * fraction)
		agents := minInt(repCap, cohortHolders)
		if agents < 1 {
			agents = 1
		}
		weight := enforceMinWeight(float64(cohortHolders) / float64(agents))
		return Plan{Strategy: StrategyRepresentative, AgentsCreated: agents, WeightPerAgent: weight}

	default:
		agents := defaultMetaAgentCount
		weight := enforceMinWeight(float64(cohortHolders) / float64(agents))
		return Plan{Strategy: StrategyMetaAgents, AgentsCreated: agents, WeightPerAgent: weight}
	}
}

// overrideStrategyFor reports which regime label would have applied absent
// the override, purely for observability in output (the weight/agent-count
// math is identical regardless of label).
func overrideStrategyFor(totalHolders int) Strategy {
	switch {
	case totalHolders < smallThreshold:
		return StrategyFullIndividual
	case totalHolders <= largeThreshold:
		return StrategyRepresentative
	default:
		return StrategyMetaAgents
	}
}

// enforceMinWeight rounds a weight below 1 up to exactly 1, per §4.5's
// "Weight >= 1 is enforced by rounding up... if needed."
func enforceMinWeight(w float64) float64 {
	if w < 1 {
		return 1
	}
	return w
}

func roundHalfAwayFromZero(v float64) int {
	return int(math.Floor(v + 0.5))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
