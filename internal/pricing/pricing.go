// Package pricing implements the pricing-model variant set.
//
// Pricing is a tagged union dispatched once per month per simulation (teacher
// precedent: internal/modules/scoring/scorers dispatches interchangeable
// scorer strategies selected by a string kind, rather than a subclass
// hierarchy). Exactly one variant is active per simulation.
package pricing

import (
	"fmt"
	"math"

	"github.com/aristath/vesting-sim/internal/economy"
)

// Kind identifies a pricing model variant.
type Kind string

const (
	KindConstant      Kind = "constant"
	KindEOE           Kind = "eoe"
	KindBondingCurve  Kind = "bonding_curve"
	KindIssuanceCurve Kind = "issuance_curve"
)

// MonthActions is the subset of aggregated monthly actions pricing models need.
type MonthActions struct {
	Sold float64
}

// Model computes the next month's price from economy state and aggregated actions.
type Model struct {
	kind Kind

	// Constant
	constantPrice float64

	// EOE
	alpha            float64 // smoothing factor in [0,1]
	holdingTimeMonths float64
	priorEOEPrice    float64
	eoeInitialized   bool

	// BondingCurve
	bcK float64
	bcN float64

	// IssuanceCurve
	icP0    float64
	icSMax  float64
	icAlpha float64

	minPrice float64
}

// Config configures a pricing Model. Only the fields relevant to Kind are read.
type Config struct {
	Kind Kind

	ConstantPrice float64

	Alpha             float64 // EOE smoothing factor
	HoldingTimeMonths float64 // EOE holding time, months

	BondingCurveK float64
	BondingCurveN float64

	IssuanceP0    float64
	IssuanceSMax  float64
	IssuanceAlpha float64

	MinPrice float64
}

// New constructs a pricing Model, validating parameters for the selected Kind.
func New(cfg Config) (*Model, error) {
	if cfg.MinPrice <= 0 {
		cfg.MinPrice = economy.DefaultMinPrice
	}

	m := &Model{kind: cfg.Kind, minPrice: cfg.MinPrice}

	switch cfg.Kind {
	case KindConstant:
		if cfg.ConstantPrice < cfg.MinPrice {
			return nil, fmt.Errorf("constant price %v below min price %v", cfg.ConstantPrice, cfg.MinPrice)
		}
		m.constantPrice = cfg.ConstantPrice

	case KindEOE:
		if cfg.Alpha < 0 || cfg.Alpha > 1 {
			return nil, fmt.Errorf("eoe alpha must be in [0,1], got %v", cfg.Alpha)
		}
		if cfg.HoldingTimeMonths <= 0 {
			return nil, fmt.Errorf("eoe holding time months must be > 0, got %v", cfg.HoldingTimeMonths)
		}
		m.alpha = cfg.Alpha
		m.holdingTimeMonths = cfg.HoldingTimeMonths

	case KindBondingCurve:
		if cfg.BondingCurveK <= 0 {
			return nil, fmt.Errorf("bonding curve k must be > 0, got %v", cfg.BondingCurveK)
		}
		m.bcK = cfg.BondingCurveK
		m.bcN = cfg.BondingCurveN

	case KindIssuanceCurve:
		if cfg.IssuanceP0 <= 0 {
			return nil, fmt.Errorf("issuance curve p0 must be > 0, got %v", cfg.IssuanceP0)
		}
		if cfg.IssuanceSMax <= 0 {
			return nil, fmt.Errorf("issuance curve s_max must be > 0, got %v", cfg.IssuanceSMax)
		}
		m.icP0 = cfg.IssuanceP0
		m.icSMax = cfg.IssuanceSMax
		m.icAlpha = cfg.IssuanceAlpha

	default:
		return nil, fmt.Errorf("unknown pricing kind %q", cfg.Kind)
	}

	return m, nil
}

// Next computes the next price from the current economy snapshot and this
// month's aggregated sold tokens.
func (m *Model) Next(snap economy.Snapshot, actions MonthActions) float64 {
	switch m.kind {
	case KindConstant:
		return m.constantPrice

	case KindEOE:
		return m.nextEOE(snap, actions)

	case KindBondingCurve:
		supply := math.Max(snap.Circulating, 0)
		price := m.bcK * math.Pow(supply, m.bcN)
		return clamp(price, m.minPrice)

	case KindIssuanceCurve:
		ratio := snap.Circulating / m.icSMax
		price := m.icP0 * math.Pow(1+ratio, m.icAlpha)
		return clamp(price, m.minPrice)

	default:
		return clamp(snap.Price, m.minPrice)
	}
}

func (m *Model) nextEOE(snap economy.Snapshot, actions MonthActions) float64 {
	velocity := 12.0 / m.holdingTimeMonths

	// Demand is inferred from this month's transaction volume weighted by the
	// current price: tokens changing hands at a given price level.
	demand := actions.Sold * snap.Price

	supply := math.Max(snap.Circulating, 1)
	raw := demand / (supply * velocity)

	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		raw = snap.Price
	}

	prior := snap.Price
	if m.eoeInitialized {
		prior = m.priorEOEPrice
	}

	next := (1-m.alpha)*prior + m.alpha*raw
	next = clamp(next, m.minPrice)

	m.priorEOEPrice = next
	m.eoeInitialized = true
	return next
}

func clamp(price, floor float64) float64 {
	if math.IsNaN(price) || math.IsInf(price, 0) || price < floor {
		return floor
	}
	return price
}
