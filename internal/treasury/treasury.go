// Package treasury implements the treasury controller (§4.7): fee
// collection, allocation across hold/liquidity/buyback, and optional burn.
package treasury

import "fmt"

// Config configures a Controller. HoldFraction, LiquidityFraction, and
// BuybackFraction must sum to 1.
type Config struct {
	FeeRate           float64 // fraction of each month's sold value (volume * price) collected as fee, [0,1]
	HoldFraction      float64
	LiquidityFraction float64
	BuybackFraction   float64
	BurnBuybacks      bool // if true, bought-back tokens are burned rather than held
}

// Validate checks that the allocation fractions sum to 1 and FeeRate is in range.
func (c Config) Validate() error {
	if c.FeeRate < 0 || c.FeeRate > 1 {
		return fmt.Errorf("fee rate must be in [0,1], got %v", c.FeeRate)
	}
	sum := c.HoldFraction + c.LiquidityFraction + c.BuybackFraction
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("hold+liquidity+buyback fractions must sum to 1, got %v", sum)
	}
	if c.HoldFraction < 0 || c.LiquidityFraction < 0 || c.BuybackFraction < 0 {
		return fmt.Errorf("allocation fractions must be non-negative")
	}
	return nil
}

// SupplyMutator lets the treasury burn bought-back tokens by reducing
// circulating supply. Implemented by economy.Economy.
type SupplyMutator interface {
	UpdateSupply(deltaCirculating, deltaStaked, deltaBurned float64) error
}

// Controller holds the treasury's running balance split by bucket.
type Controller struct {
	cfg Config

	holdBalance      float64
	liquidityBalance float64
	buybackBalance   float64
	cumulativeFees   float64
	cumulativeBurned float64
}

// New constructs a treasury Controller.
func New(cfg Config) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Controller{cfg: cfg}, nil
}

// Balance returns the total treasury balance across all buckets. liquidity is
// fiat; buyback is token count awaiting ExecuteBuybacks; hold is fiat from
// fees plus, when BurnBuybacks is false, the bought-back token count that
// ExecuteBuybacks adds to it. The buckets are summed as plain numbers.
func (c *Controller) Balance() float64 {
	return c.holdBalance + c.liquidityBalance + c.buybackBalance
}

// CollectFees takes FeeRate of the month's sold volume priced at the given
// price (soldVolume * price * FeeRate, in fiat) and allocates it across the
// hold/liquidity/buyback buckets. hold and liquidity accrue in fiat; buyback
// accrues in token count, since the price factor used to convert its fiat
// share back into tokens cancels against the price factor that produced it
// (soldVolume * price * FeeRate * BuybackFraction / price ==
// soldVolume * FeeRate * BuybackFraction). Returns the fee collected, in fiat.
func (c *Controller) CollectFees(soldVolume, price float64) float64 {
	if soldVolume <= 0 || price <= 0 {
		return 0
	}
	feeFiat := soldVolume * price * c.cfg.FeeRate

	c.holdBalance += feeFiat * c.cfg.HoldFraction
	c.liquidityBalance += feeFiat * c.cfg.LiquidityFraction
	c.buybackBalance += soldVolume * c.cfg.FeeRate * c.cfg.BuybackFraction
	c.cumulativeFees += feeFiat
	return feeFiat
}

// ExecuteBuybacks spends the buyback bucket, either burning the tokens
// (reducing circulating supply) or moving them to the hold bucket, per
// BurnBuybacks.
func (c *Controller) ExecuteBuybacks(supply SupplyMutator) error {
	if c.buybackBalance <= 0 {
		return nil
	}
	amount := c.buybackBalance
	c.buybackBalance = 0

	if c.cfg.BurnBuybacks {
		if err := supply.UpdateSupply(-amount, 0, amount); err != nil {
			return fmt.Errorf("treasury buyback burn: %w", err)
		}
		c.cumulativeBurned += amount
		return nil
	}

	c.holdBalance += amount
	return nil
}

// WithdrawForRewards pays out up to amount from the hold balance to fund
// staking rewards, returning however much could actually be covered; the
// caller treats a partial or zero return as the paid amount.
func (c *Controller) WithdrawForRewards(amount float64) float64 {
	if amount <= 0 {
		return 0
	}
	if amount > c.holdBalance {
		amount = c.holdBalance
	}
	c.holdBalance -= amount
	return amount
}

// CumulativeFees returns total fees collected across the simulation so far.
func (c *Controller) CumulativeFees() float64 {
	return c.cumulativeFees
}

// CumulativeBurned returns total tokens burned via buybacks so far.
func (c *Controller) CumulativeBurned() float64 {
	return c.cumulativeBurned
}
