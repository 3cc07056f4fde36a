package server

import (
	"github.com/aristath/vesting-sim/internal/cohort"
	"github.com/aristath/vesting-sim/internal/economy"
	"github.com/aristath/vesting-sim/internal/pricing"
	"github.com/aristath/vesting-sim/internal/simerrors"
	"github.com/aristath/vesting-sim/internal/staking"
	"github.com/aristath/vesting-sim/internal/treasury"
)

// SubmissionRequest is the demonstration surface's request payload, covering
// the core-relevant essential fields from §6: token/horizon, cohorts
// (vesting buckets mapped to behavioral profiles), ABM config, and an
// optional Monte-Carlo block.
type SubmissionRequest struct {
	TotalSupply   float64 `json:"total_supply"`
	HorizonMonths int     `json:"horizon_months"`
	TotalHolders  int     `json:"total_holders"`
	InitialPrice  float64 `json:"initial_price"`
	Seed          uint64  `json:"seed"`

	AgentsPerCohort int `json:"agents_per_cohort"` // 0 means "adaptive"

	Cohorts []cohort.Profile `json:"cohorts"`

	Pricing  pricing.Config   `json:"pricing"`
	Staking  *staking.Config  `json:"staking,omitempty"`
	Treasury *treasury.Config `json:"treasury,omitempty"`

	MonteCarlo *MonteCarloBlock `json:"monte_carlo,omitempty"`

	BypassCache bool `json:"bypass_cache,omitempty"`
}

// MonteCarloBlock requests replication of the base simulation across trials.
type MonteCarloBlock struct {
	NumTrials        int       `json:"num_trials"`
	ConfidenceLevels []float64 `json:"confidence_levels,omitempty"`
	MasterSeed       uint64    `json:"master_seed,omitempty"`
}

// Validate checks the request-payload essential fields per §7's validation
// error kind (missing fields, horizon out of range, bucket count, allocation
// sums, percentages).
func (r SubmissionRequest) Validate() error {
	if r.TotalSupply < 1 {
		return &simerrors.ValidationError{Field: "total_supply", Message: "must be >= 1"}
	}
	if r.HorizonMonths < 1 || r.HorizonMonths > 240 {
		return &simerrors.ValidationError{Field: "horizon_months", Message: "must be in [1,240]"}
	}
	if r.TotalHolders < 1 {
		return &simerrors.ValidationError{Field: "total_holders", Message: "must be >= 1"}
	}
	if len(r.Cohorts) == 0 || len(r.Cohorts) > 1000 {
		return &simerrors.ValidationError{Field: "cohorts", Message: "must contain between 1 and 1000 entries"}
	}

	var allocationSum, tokenAllocation float64
	for _, c := range r.Cohorts {
		if err := c.Validate(); err != nil {
			return &simerrors.ValidationError{Field: "cohorts", Message: err.Error()}
		}
		allocationSum += c.Fraction
		tokenAllocation += c.Allocation
	}
	if allocationSum > 1.0001 {
		return &simerrors.ValidationError{Field: "cohorts", Message: "fractions sum to more than 100%"}
	}
	if tokenAllocation > r.TotalSupply*1.0001 {
		return &simerrors.ValidationError{Field: "cohorts", Message: "allocations sum to more than 100% of total supply"}
	}

	if r.MonteCarlo != nil {
		if r.MonteCarlo.NumTrials < 1 {
			return &simerrors.ValidationError{Field: "monte_carlo.num_trials", Message: "must be >= 1"}
		}
		for _, p := range r.MonteCarlo.ConfidenceLevels {
			if p <= 0 || p >= 100 {
				return &simerrors.ValidationError{Field: "monte_carlo.confidence_levels", Message: "must be in (0,100)"}
			}
		}
	}

	return nil
}

func (r SubmissionRequest) economyConfig() economy.Config {
	return economy.Config{
		InitialPrice: r.InitialPrice,
		TotalSupply:  r.TotalSupply,
	}
}
