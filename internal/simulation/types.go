package simulation

import (
	"github.com/aristath/vesting-sim/internal/cohort"
	"github.com/aristath/vesting-sim/internal/economy"
	"github.com/aristath/vesting-sim/internal/pricing"
	"github.com/aristath/vesting-sim/internal/staking"
	"github.com/aristath/vesting-sim/internal/treasury"
)

// Config describes one simulation run: a base economy, a pricing model, a
// set of cohorts scaled against a total holder count, and optional staking
// and treasury controllers.
type Config struct {
	Seed         uint64
	Horizon      int // number of months to simulate
	TotalHolders int

	// AgentsPerCohortOverride, when > 0, forces the scaler's override path
	// for every cohort.
	AgentsPerCohortOverride int

	Cohorts []cohort.Profile

	Economy economy.Config
	Pricing pricing.Config

	Staking  *staking.Config
	Treasury *treasury.Config

	// WorkerBudget bounds the agent-decision worker pool. Defaults to
	// runtime.NumCPU() when 0.
	WorkerBudget int
}

// CohortMetrics aggregates one cohort's actions for one month.
type CohortMetrics struct {
	Label    string
	Sold     float64
	Staked   float64
	Held     float64
	Unlocked float64
}

// MonthMetrics is the global and per-cohort aggregate for one simulated month.
type MonthMetrics struct {
	Month       int
	Price       float64
	Circulating float64
	Staked      float64
	Burned      float64
	Volume      float64
	TotalSold   float64

	StakingAPY        float64
	StakingRewardPaid float64
	TreasuryBalance   float64
	TreasuryFees      float64

	PerCohort map[string]CohortMetrics
}

// Summary is the final, whole-run rollup produced at horizon.
type Summary struct {
	FinalPrice          float64
	FinalCirculating    float64
	CumulativeSold      float64
	AveragePrice        float64
	PerCohortCumulative map[string]float64
	CumulativeRewards   float64
	CumulativeFees      float64
	CumulativeBurned    float64
}

// Result is the full output of a simulation run.
type Result struct {
	Months  []MonthMetrics
	Summary Summary
}

// ProgressFunc is invoked after each month commits with the number of months
// done so far and the horizon, so the caller can compute a percentage; it
// must not block the simulation loop.
type ProgressFunc func(month, totalMonths int)
