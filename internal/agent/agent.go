// Package agent implements the individual token-holder decision model.
package agent

import (
	"hash/fnv"
	"math"
	"math/rand"

	"github.com/aristath/vesting-sim/internal/economy"
	"github.com/aristath/vesting-sim/internal/vesting"
)

// Params holds the behavioral parameters sampled once at agent construction.
type Params struct {
	RiskTolerance       float64 // (0,1)
	HoldTimeMonths      float64 // > 0
	BaselineSellPressure float64 // [0,1]
	StakingPropensity   float64 // [0,1]
	PriceSensitivity    float64 // [0,1]
	CliffShockFactor    float64 // >= 1
}

// Action is one agent's per-month decision output.
type Action struct {
	Sold     float64
	Staked   float64
	Held     float64
	Unlocked float64
}

// StakingContext is the subset of staking-controller state an agent needs to
// decide its stake allocation.
type StakingContext struct {
	Enabled       bool
	CurrentAPY    float64 // annualized, e.g. 0.12
	PoolFull      bool
}

// Agent is one simulated token holder.
type Agent struct {
	ID          string
	CohortLabel string
	Schedule    *vesting.Schedule
	Weight      float64 // >= 1

	Params Params

	// holdings is liquid: unlocked but not yet sold or staked. Only the
	// agent mutates its own holdings, and only between months (Decide
	// returns the action; the caller applies it via ApplyAction).
	holdings float64

	globalSeed uint64
}

// New constructs an agent. Weight must be >= 1.
func New(id, cohortLabel string, schedule *vesting.Schedule, weight float64, params Params, globalSeed uint64) *Agent {
	if weight < 1 {
		weight = 1
	}
	return &Agent{
		ID:          id,
		CohortLabel: cohortLabel,
		Schedule:    schedule,
		Weight:      weight,
		Params:      params,
		globalSeed:  globalSeed,
	}
}

// Holdings returns the agent's current liquid, unsold/unstaked balance.
func (a *Agent) Holdings() float64 {
	return a.holdings
}

// DeriveSeed produces a deterministic per-agent-per-month seed from the
// global simulation seed, the month index, and the agent id, via an FNV-1a
// fold. Using a dedicated source per (seed, month, id) rather than a shared
// rand.Rand means agent evaluation order (and therefore goroutine scheduling)
// never affects the outcome.
func DeriveSeed(globalSeed uint64, month int, agentID string) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	putUint64(buf[:], globalSeed)
	_, _ = h.Write(buf[:])
	putUint64(buf[:], uint64(month))
	_, _ = h.Write(buf[:])
	_, _ = h.Write([]byte(agentID))
	return h.Sum64()
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

// Decide computes this month's action against the given economy snapshot.
//
// Decide never mutates shared state: it reads the snapshot, draws from a
// PRNG seeded purely from (globalSeed, month, a.ID), and returns an Action.
// The caller is responsible for calling ApplyAction to update holdings.
func (a *Agent) Decide(snap economy.Snapshot, month int, staking StakingContext) Action {
	rng := rand.New(rand.NewSource(int64(DeriveSeed(a.globalSeed, month, a.ID))))

	unlocked := a.Schedule.UnlockAmount(month)
	available := a.holdings + unlocked

	sellFraction := a.computeSellFraction(snap, month, rng)
	if math.IsNaN(sellFraction) || math.IsInf(sellFraction, 0) {
		sellFraction = a.Params.BaselineSellPressure
	}
	sellFraction = clamp01(sellFraction)

	sold := available * sellFraction
	remainder := available - sold

	stakeFraction := a.computeStakeFraction(staking)
	staked := remainder * stakeFraction
	held := remainder - staked

	if sold > available {
		sold = available
		staked = 0
		held = 0
	}

	return Action{
		Sold:     sold,
		Staked:   staked,
		Held:     held,
		Unlocked: unlocked,
	}
}

// ApplyAction updates the agent's liquid holdings after a decision: only the
// held remainder persists into next month.
func (a *Agent) ApplyAction(action Action) {
	a.holdings = action.Held
}

func (a *Agent) computeSellFraction(snap economy.Snapshot, month int, rng *rand.Rand) float64 {
	fraction := a.Params.BaselineSellPressure

	// Cliff shock: an amplified urge to sell the month unlocks resume after a cliff.
	if a.Schedule.IsFirstPostCliffMonth(month) {
		fraction *= a.Params.CliffShockFactor
	}

	meanPrice := snap.MeanPriceHistory()
	holdTimeAnchor := meanPrice

	// Take-profit amplification.
	if snap.Price > holdTimeAnchor*(1+a.Params.RiskTolerance) {
		fraction += a.Params.PriceSensitivity * (1 - a.Params.RiskTolerance)
	}

	// Stop-loss amplification: price dropped by more than (1 - risk tolerance)
	// from the last-K mean.
	if meanPrice > 0 && snap.Price < meanPrice*a.Params.RiskTolerance {
		fraction += a.Params.PriceSensitivity * (1 - a.Params.RiskTolerance)
	}

	// A small idiosyncratic jitter keeps per-agent outcomes from being
	// perfectly identical within a cohort sharing the same parameters.
	fraction += (rng.Float64() - 0.5) * 0.01

	return fraction
}

func (a *Agent) computeStakeFraction(staking StakingContext) float64 {
	if !staking.Enabled || staking.PoolFull {
		return 0
	}
	propensity := a.Params.StakingPropensity
	if staking.CurrentAPY > 0 {
		// Higher APY scales up the propensity to stake, capped at 1.
		propensity *= 1 + staking.CurrentAPY
	}
	return clamp01(propensity)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
