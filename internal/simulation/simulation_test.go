package simulation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/vesting-sim/internal/cohort"
	"github.com/aristath/vesting-sim/internal/economy"
	"github.com/aristath/vesting-sim/internal/pricing"
	"github.com/aristath/vesting-sim/internal/staking"
	"github.com/aristath/vesting-sim/internal/treasury"
)

func flatProfile(label string, fraction float64) cohort.Profile {
	return cohort.Profile{
		Label:                label,
		Fraction:             fraction,
		RiskTolerance:        cohort.AttributeDist{Family: cohort.Beta, Alpha: 2, Beta: 2, Min: 0, Max: 1},
		HoldTimeMonths:       cohort.AttributeDist{Family: cohort.Gamma, Alpha: 2, Beta: 1, Min: 1, Max: 36},
		BaselineSellPressure: cohort.AttributeDist{Family: cohort.Normal, Mu: 0.2, Sigma: 0.05, Min: 0, Max: 1},
		StakingPropensity:    cohort.AttributeDist{Family: cohort.Normal, Mu: 0.1, Sigma: 0.05, Min: 0, Max: 1},
		PriceSensitivity:     cohort.AttributeDist{Family: cohort.Normal, Mu: 0.2, Sigma: 0.05, Min: 0, Max: 1},
		CliffShockFactor:     cohort.AttributeDist{Family: cohort.Normal, Mu: 1.2, Sigma: 0.1, Min: 1, Max: 3},
		Allocation:           1_000_000_000,
		TGEPercent:           0,
		CliffMonths:          0,
		VestingMonths:        12,
	}
}

func baseConfig() Config {
	return Config{
		Seed:         42,
		Horizon:      12,
		TotalHolders: 30,
		Cohorts:      []cohort.Profile{flatProfile("retail", 1.0)},
		Economy: economy.Config{
			InitialPrice: 1.0,
			TotalSupply:  1_000_000_000,
		},
		Pricing: pricing.Config{
			Kind:          pricing.KindConstant,
			ConstantPrice: 1.0,
		},
		WorkerBudget: 2,
	}
}

func TestRun_BasicVestingUnlocksEntireSupplyByHorizon(t *testing.T) {
	cfg := baseConfig()
	res, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	require.Len(t, res.Months, 12)

	last := res.Months[len(res.Months)-1]
	assert.GreaterOrEqual(t, last.Circulating+last.Staked+last.Burned, 0.99*1_000_000_000.0)
	assert.InDelta(t, 1.0, res.Summary.FinalPrice, 1e-9)
}

func TestRun_IsDeterministicAcrossRepeatedRunsWithSameSeed(t *testing.T) {
	cfg := baseConfig()
	r1, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	r2, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)

	require.Equal(t, len(r1.Months), len(r2.Months))
	for i := range r1.Months {
		assert.Equal(t, r1.Months[i].Circulating, r2.Months[i].Circulating)
		assert.Equal(t, r1.Months[i].Price, r2.Months[i].Price)
	}
}

func TestRun_RejectsInvalidConfig(t *testing.T) {
	cfg := baseConfig()
	cfg.Horizon = 0
	_, err := Run(context.Background(), cfg, nil)
	assert.Error(t, err)

	cfg = baseConfig()
	cfg.Cohorts = nil
	_, err = Run(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestRun_SupplyNeverExceedsTotalSupply(t *testing.T) {
	cfg := baseConfig()
	cfg.Staking = &staking.Config{
		BaseAPY:             0.1,
		MaxCapacityFraction: 0.4,
		LockupMonths:        1,
		EmptyMultiplier:     0.8,
		FullMultiplier:      1.2,
		RewardSource:        staking.RewardSourceEmission,
	}

	res, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)

	for _, m := range res.Months {
		total := m.Circulating + m.Staked + m.Burned
		assert.LessOrEqual(t, total, 1_000_000_000.0*1.2, "accounting for emitted staking rewards")
	}
}

func TestRun_TreasuryCollectsFeesWithoutGoingNegative(t *testing.T) {
	cfg := baseConfig()
	cfg.Treasury = &treasury.Config{
		FeeRate:           0.01,
		HoldFraction:      0.5,
		LiquidityFraction: 0.3,
		BuybackFraction:   0.2,
		BurnBuybacks:      true,
	}

	res, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)

	for _, m := range res.Months {
		assert.GreaterOrEqual(t, m.TreasuryBalance, 0.0)
	}
	assert.GreaterOrEqual(t, res.Summary.CumulativeFees, 0.0)
}

func TestRun_CancellationStopsBeforeHorizonCompletes(t *testing.T) {
	cfg := baseConfig()
	cfg.Horizon = 1000

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, cfg, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_ProgressCallbackReceivesEveryMonth(t *testing.T) {
	cfg := baseConfig()
	var calls []int
	_, err := Run(context.Background(), cfg, func(month, total int) {
		calls = append(calls, month)
		assert.Equal(t, 12, total)
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, calls)
}

func TestRun_MultipleCohortsEachReportPerCohortMetrics(t *testing.T) {
	cfg := baseConfig()
	cfg.Cohorts = []cohort.Profile{flatProfile("retail", 0.6), flatProfile("whale", 0.4)}

	res, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)

	last := res.Months[len(res.Months)-1]
	assert.Contains(t, last.PerCohort, "retail")
	assert.Contains(t, last.PerCohort, "whale")
	assert.Contains(t, res.Summary.PerCohortCumulative, "retail")
	assert.Contains(t, res.Summary.PerCohortCumulative, "whale")
}
