// Package simulation implements the monthly agent-based market simulation
// loop (§4.8): agents decide against a vesting schedule, their aggregated
// actions feed supply updates, staking, treasury, and pricing, in strict
// order, once per month.
package simulation

import (
	"context"
	"fmt"
	"runtime"

	"github.com/aristath/vesting-sim/internal/agent"
	"github.com/aristath/vesting-sim/internal/economy"
	"github.com/aristath/vesting-sim/internal/pricing"
	"github.com/aristath/vesting-sim/internal/scaler"
	"github.com/aristath/vesting-sim/internal/simerrors"
	"github.com/aristath/vesting-sim/internal/staking"
	"github.com/aristath/vesting-sim/internal/treasury"
)

// cohortAgents groups the materialized agents belonging to one cohort.
type cohortAgents struct {
	label  string
	agents []*agent.Agent
}

// Run executes a full simulation from month 0 through cfg.Horizon-1,
// reporting progress after every month commits. A panic during any month's
// step is recovered here and turned into a simerrors.SimulationError; no
// partial result is returned in that case (§4.8's failure model).
func Run(ctx context.Context, cfg Config, progress ProgressFunc) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &simerrors.SimulationError{Message: fmt.Sprintf("panic during simulation: %v", r)}
		}
	}()

	if cfg.Horizon < 1 {
		return nil, &simerrors.ValidationError{Field: "horizon", Message: "must be >= 1"}
	}
	if cfg.TotalHolders < 1 {
		return nil, &simerrors.ValidationError{Field: "total_holders", Message: "must be >= 1"}
	}
	if len(cfg.Cohorts) == 0 {
		return nil, &simerrors.ValidationError{Field: "cohorts", Message: "must be non-empty"}
	}

	econ, err := economy.New(cfg.Economy)
	if err != nil {
		return nil, fmt.Errorf("economy config: %w", err)
	}

	pricingModel, err := pricing.New(cfg.Pricing)
	if err != nil {
		return nil, fmt.Errorf("pricing config: %w", err)
	}

	var stakeCtrl *staking.Controller
	if cfg.Staking != nil {
		stakeCtrl, err = staking.New(*cfg.Staking)
		if err != nil {
			return nil, fmt.Errorf("staking config: %w", err)
		}
	}

	var treasuryCtrl *treasury.Controller
	if cfg.Treasury != nil {
		treasuryCtrl, err = treasury.New(*cfg.Treasury)
		if err != nil {
			return nil, fmt.Errorf("treasury config: %w", err)
		}
	}

	cohorts := make([]cohortAgents, 0, len(cfg.Cohorts))
	for _, profile := range cfg.Cohorts {
		if err := profile.Validate(); err != nil {
			return nil, fmt.Errorf("cohort config: %w", err)
		}
		plan := scaler.Select(cfg.TotalHolders, profile.Fraction, cfg.AgentsPerCohortOverride)
		agents, err := profile.Materialize(plan.AgentsCreated, plan.WeightPerAgent, cfg.Seed)
		if err != nil {
			return nil, fmt.Errorf("materializing cohort %q: %w", profile.Label, err)
		}
		cohorts = append(cohorts, cohortAgents{label: profile.Label, agents: agents})
	}

	workers := cfg.WorkerBudget
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	pool := newAgentPool(workers)

	months := make([]MonthMetrics, 0, cfg.Horizon)
	perCohortCumulative := make(map[string]float64, len(cohorts))
	cumulativeSold := 0.0
	priceSum := 0.0

	for month := 0; month < cfg.Horizon; month++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		snap := econ.Snapshot()

		stakingCtx := agent.StakingContext{}
		if stakeCtrl != nil {
			stakingCtx.Enabled = true
			stakingCtx.CurrentAPY = stakeCtrl.CurrentAPY(snap.TotalSupply)
			stakingCtx.PoolFull = stakeCtrl.IsFull(snap.TotalSupply)
		}

		perCohortMetrics := make(map[string]CohortMetrics, len(cohorts))
		var totalUnlocked, totalSold float64

		for _, ca := range cohorts {
			actions := pool.decideBatch(ca.agents, snap, month, stakingCtx)

			m := CohortMetrics{Label: ca.label}
			for i, a := range ca.agents {
				act := actions[i]
				w := a.Weight
				m.Sold += act.Sold * w
				m.Staked += act.Staked * w
				m.Held += act.Held * w
				m.Unlocked += act.Unlocked * w
				a.ApplyAction(act)
			}
			perCohortMetrics[ca.label] = m

			totalUnlocked += m.Unlocked
			totalSold += m.Sold
			perCohortCumulative[ca.label] += m.Sold
		}

		// Unlocked tokens move from the implicit not-yet-unlocked bucket into
		// circulating; sold/held tokens remain circulating.
		if err := econ.UpdateSupply(totalUnlocked, 0, 0); err != nil {
			return nil, fmt.Errorf("month %d: %w", month, err)
		}

		var stakingAPY, rewardPaid float64
		if stakeCtrl != nil {
			for _, ca := range cohorts {
				m := perCohortMetrics[ca.label]
				if m.Staked <= 0 {
					continue
				}
				stakeCtrl.AcceptStakeAmount(ca.label, m.Staked, int(snap.TotalSupply), month)
			}
			stakeCtrl.ReleaseLockups(month)
			// TotalStaked already nets out this month's releases (ReleaseLockups
			// subtracts released amounts before we read it), so the delta against
			// last month's snapshot is accepted-minus-released; applying it once
			// here keeps economy.staked in lockstep with the controller without
			// double-counting the release.
			netStaked := stakeCtrl.TotalStaked() - snap.Staked
			if err := econ.UpdateSupply(-netStaked, netStaked, 0); err != nil {
				return nil, fmt.Errorf("month %d: staking supply update: %w", month, err)
			}

			stakingAPY = stakeCtrl.CurrentAPY(snap.TotalSupply)
			var fromEmission bool
			if treasuryCtrl != nil {
				rewardPaid, fromEmission = stakeCtrl.PayRewards(snap.TotalSupply, treasuryCtrl)
			} else {
				rewardPaid, fromEmission = stakeCtrl.PayRewards(snap.TotalSupply, nil)
			}
			if rewardPaid > 0 {
				if err := econ.UpdateSupply(0, rewardPaid, 0); err != nil {
					return nil, fmt.Errorf("month %d: reward supply update: %w", month, err)
				}
				if fromEmission {
					econ.AddTotalSupply(rewardPaid)
				}
			}
		}

		var treasuryFees float64
		if treasuryCtrl != nil {
			treasuryFees = treasuryCtrl.CollectFees(totalSold, snap.Price)
			if err := treasuryCtrl.ExecuteBuybacks(econ); err != nil {
				return nil, fmt.Errorf("month %d: %w", month, err)
			}
		}

		econ.RecordTransaction(totalSold, snap.Price)
		nextPrice := pricingModel.Next(snap, pricing.MonthActions{Sold: totalSold})
		econ.CommitMonth(nextPrice)

		cumulativeSold += totalSold
		priceSum += nextPrice

		finalSnap := econ.Snapshot()
		mm := MonthMetrics{
			Month:             month,
			Price:             nextPrice,
			Circulating:       finalSnap.Circulating,
			Staked:            finalSnap.Staked,
			Burned:            finalSnap.Burned,
			Volume:            totalSold,
			TotalSold:         cumulativeSold,
			StakingAPY:        stakingAPY,
			StakingRewardPaid: rewardPaid,
			TreasuryFees:      treasuryFees,
			PerCohort:         perCohortMetrics,
		}
		if treasuryCtrl != nil {
			mm.TreasuryBalance = treasuryCtrl.Balance()
		}
		months = append(months, mm)

		if progress != nil {
			progress(month+1, cfg.Horizon)
		}
	}

	summary := Summary{
		CumulativeSold:      cumulativeSold,
		AveragePrice:        priceSum / float64(cfg.Horizon),
		PerCohortCumulative: perCohortCumulative,
	}
	if len(months) > 0 {
		last := months[len(months)-1]
		summary.FinalPrice = last.Price
		summary.FinalCirculating = last.Circulating
	}
	if stakeCtrl != nil {
		summary.CumulativeRewards = stakeCtrl.CumulativeRewards()
	}
	if treasuryCtrl != nil {
		summary.CumulativeFees = treasuryCtrl.CumulativeFees()
		summary.CumulativeBurned = treasuryCtrl.CumulativeBurned()
	}

	return &Result{Months: months, Summary: summary}, nil
}
