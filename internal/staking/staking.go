// Package staking implements the optional staking controller (§4.6).
package staking

import "fmt"

// RewardSource identifies where monthly staking rewards are funded from.
type RewardSource string

const (
	RewardSourceEmission RewardSource = "emission"
	RewardSourceTreasury RewardSource = "treasury"
)

// Config configures a Controller.
type Config struct {
	BaseAPY             float64 // e.g. 0.12
	MaxCapacityFraction float64 // fraction of total supply, (0,1]
	LockupMonths        int
	EmptyMultiplier     float64 // APY multiplier at 0% utilization
	FullMultiplier      float64 // APY multiplier at 100% utilization
	RewardSource        RewardSource
}

// Validate checks the staking configuration.
func (c Config) Validate() error {
	if c.MaxCapacityFraction <= 0 || c.MaxCapacityFraction > 1 {
		return fmt.Errorf("max capacity fraction must be in (0,1], got %v", c.MaxCapacityFraction)
	}
	if c.LockupMonths < 0 {
		return fmt.Errorf("lockup months must be >= 0, got %d", c.LockupMonths)
	}
	if c.RewardSource != RewardSourceEmission && c.RewardSource != RewardSourceTreasury {
		return fmt.Errorf("unknown reward source %q", c.RewardSource)
	}
	return nil
}

type lockup struct {
	amount      float64
	cohort      string
	releaseMonth int
}

// TreasuryFunder lets the staking controller pull rewards from the treasury
// when RewardSource is treasury. Implemented by treasury.Controller.
type TreasuryFunder interface {
	WithdrawForRewards(amount float64) (paid float64)
}

// Controller tracks staked balances, lockups, rewards, and dynamic APY.
type Controller struct {
	cfg Config

	totalStaked       float64
	cohortBalances    map[string]float64
	lockups           []lockup
	cumulativeRewards float64
}

// New constructs a staking Controller.
func New(cfg Config) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Controller{
		cfg:            cfg,
		cohortBalances: make(map[string]float64),
	}, nil
}

// TotalStaked returns total tokens currently staked.
func (c *Controller) TotalStaked() float64 {
	return c.totalStaked
}

// RemainingCapacity returns how many more tokens can be staked before the cap
// is hit, given the current total supply.
func (c *Controller) RemainingCapacity(totalSupply float64) float64 {
	cap := c.cfg.MaxCapacityFraction * totalSupply
	remaining := cap - c.totalStaked
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IsFull reports whether the staking pool has no remaining capacity.
func (c *Controller) IsFull(totalSupply float64) bool {
	return c.RemainingCapacity(totalSupply) <= 0
}

// CurrentAPY computes the annualized APY via linear interpolation between the
// empty- and full-pool multipliers over current utilization.
func (c *Controller) CurrentAPY(totalSupply float64) float64 {
	utilization := c.Utilization(totalSupply)
	if utilization > 1 {
		utilization = 1
	}
	return (c.cfg.EmptyMultiplier + (c.cfg.FullMultiplier-c.cfg.EmptyMultiplier)*utilization) * c.cfg.BaseAPY
}

// Utilization returns total_staked / (max_capacity * total_supply).
func (c *Controller) Utilization(totalSupply float64) float64 {
	cap := c.cfg.MaxCapacityFraction * totalSupply
	if cap <= 0 {
		return 0
	}
	return c.totalStaked / cap
}

// StakeResult reports the outcome of a monthly stake-in request.
type StakeResult struct {
	Accepted  float64 // amount actually staked
	Overflow  float64 // amount that could not be staked, converted back to held
}

// AcceptStake processes an aggregated stake-in request for the given cohort,
// capped by remaining capacity. Overflow is returned for the caller to add
// back to the aggregated held total.
func (c *Controller) AcceptStake(cohort string, requested, totalSupply int, month int) StakeResult {
	return c.AcceptStakeAmount(cohort, float64(requested), totalSupply, month)
}

// AcceptStakeAmount is the float64 form of AcceptStake (kept separate since
// token amounts are fractional in this simulation, not integer counts).
func (c *Controller) AcceptStakeAmount(cohort string, requested float64, totalSupply int, month int) StakeResult {
	remaining := c.RemainingCapacity(float64(totalSupply))
	accepted := requested
	overflow := 0.0
	if accepted > remaining {
		accepted = remaining
		overflow = requested - remaining
	}
	if accepted < 0 {
		accepted = 0
		overflow = requested
	}

	if accepted > 0 {
		c.totalStaked += accepted
		c.cohortBalances[cohort] += accepted
		c.lockups = append(c.lockups, lockup{
			amount:       accepted,
			cohort:       cohort,
			releaseMonth: month + c.cfg.LockupMonths + 1, // strictly greater than stake month
		})
	}

	return StakeResult{Accepted: accepted, Overflow: overflow}
}

// ReleaseLockups releases all lockups whose release month has arrived,
// returning the total released amount per cohort.
func (c *Controller) ReleaseLockups(month int) map[string]float64 {
	released := make(map[string]float64)
	kept := c.lockups[:0]
	for _, l := range c.lockups {
		if l.releaseMonth <= month {
			released[l.cohort] += l.amount
			c.totalStaked -= l.amount
			c.cohortBalances[l.cohort] -= l.amount
		} else {
			kept = append(kept, l)
		}
	}
	c.lockups = kept
	return released
}

// PayRewards computes and pays this month's staking rewards. When funded
// from the treasury, the reward paid is whatever the funder returns: if the
// treasury cannot cover the full amount, a smaller reward (down to zero) is
// paid without an error, and the shortfall is not carried over.
func (c *Controller) PayRewards(totalSupply float64, funder TreasuryFunder) (rewardPaid float64, fromEmission bool) {
	monthlyReward := c.CurrentAPY(totalSupply) / 12 * c.totalStaked
	if monthlyReward <= 0 {
		return 0, c.cfg.RewardSource == RewardSourceEmission
	}

	switch c.cfg.RewardSource {
	case RewardSourceEmission:
		c.totalStaked += monthlyReward
		c.cumulativeRewards += monthlyReward
		return monthlyReward, true

	case RewardSourceTreasury:
		if funder == nil {
			return 0, false
		}
		paid := funder.WithdrawForRewards(monthlyReward)
		c.totalStaked += paid
		c.cumulativeRewards += paid
		return paid, false

	default:
		return 0, false
	}
}

// CumulativeRewards returns total rewards paid across the simulation so far.
func (c *Controller) CumulativeRewards() float64 {
	return c.cumulativeRewards
}

// CohortBalance returns the staked balance attributed to a cohort.
func (c *Controller) CohortBalance(cohort string) float64 {
	return c.cohortBalances[cohort]
}
