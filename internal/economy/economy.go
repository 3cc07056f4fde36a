// Package economy provides the mutable token-economy state container.
package economy

import (
	"fmt"
	"sync"
)

// DefaultHistoryLength is the default ring-buffer length K for price/supply history.
const DefaultHistoryLength = 12

// DefaultMinPrice is the default price floor.
const DefaultMinPrice = 1e-6

// Snapshot is an immutable view of economy state handed to agents and the
// pricing model. It never aliases the Economy's internal slices.
type Snapshot struct {
	Price             float64
	TotalSupply       float64
	Circulating       float64
	Staked            float64
	Burned            float64
	MonthVolume       float64
	PriceHistory      []float64 // oldest first, most recent last
	CirculatingHistory []float64
}

// MeanPriceHistory returns the arithmetic mean of the retained price history,
// or the current price if no history has accumulated yet.
func (s Snapshot) MeanPriceHistory() float64 {
	if len(s.PriceHistory) == 0 {
		return s.Price
	}
	sum := 0.0
	for _, p := range s.PriceHistory {
		sum += p
	}
	return sum / float64(len(s.PriceHistory))
}

// Economy is the mutable per-simulation token economy. It is exclusively
// owned by the simulation worker that runs the month; the mutex exists so the
// Snapshot-while-running contract is safe even if a caller (e.g. the
// demonstration HTTP surface) queries state concurrently, mirroring the
// teacher's defensive *database.DB wrapper.
type Economy struct {
	mu sync.Mutex

	price       float64
	minPrice    float64
	totalSupply float64
	circulating float64
	staked      float64
	burned      float64
	monthVolume float64

	historyLen         int
	priceHistory       []float64
	circulatingHistory []float64
}

// Config configures a new Economy.
type Config struct {
	InitialPrice   float64
	MinPrice       float64 // defaults to DefaultMinPrice if 0
	TotalSupply    float64
	HistoryLength  int // defaults to DefaultHistoryLength if 0
}

// New constructs a new Economy with zero circulating/staked/burned supply.
func New(cfg Config) (*Economy, error) {
	if cfg.TotalSupply < 1 {
		return nil, fmt.Errorf("total supply must be >= 1, got %v", cfg.TotalSupply)
	}
	minPrice := cfg.MinPrice
	if minPrice <= 0 {
		minPrice = DefaultMinPrice
	}
	if cfg.InitialPrice < minPrice {
		return nil, fmt.Errorf("initial price %v is below minimum price %v", cfg.InitialPrice, minPrice)
	}
	historyLen := cfg.HistoryLength
	if historyLen <= 0 {
		historyLen = DefaultHistoryLength
	}

	return &Economy{
		price:              cfg.InitialPrice,
		minPrice:           minPrice,
		totalSupply:        cfg.TotalSupply,
		historyLen:         historyLen,
		priceHistory:       make([]float64, 0, historyLen),
		circulatingHistory: make([]float64, 0, historyLen),
	}, nil
}

// RecordTransaction adds to the running month's sold-token volume.
func (e *Economy) RecordTransaction(tokensSold, price float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.monthVolume += tokensSold
	_ = price // reserved for volume-weighted-by-price pricing models (see EOE demand term)
}

// UpdateSupply atomically adjusts circulating/staked/burned balances.
// Returns an error (and applies no change) if any resulting balance would go negative.
func (e *Economy) UpdateSupply(deltaCirculating, deltaStaked, deltaBurned float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	newCirculating := e.circulating + deltaCirculating
	newStaked := e.staked + deltaStaked
	newBurned := e.burned + deltaBurned

	if newCirculating < -1e-6 {
		return fmt.Errorf("update would drive circulating supply negative: %v", newCirculating)
	}
	if newStaked < -1e-6 {
		return fmt.Errorf("update would drive staked supply negative: %v", newStaked)
	}
	if newBurned < -1e-6 {
		return fmt.Errorf("update would drive burned supply negative: %v", newBurned)
	}

	e.circulating = clampNonNegative(newCirculating)
	e.staked = clampNonNegative(newStaked)
	e.burned = clampNonNegative(newBurned)
	return nil
}

// AddTotalSupply adjusts total supply. The simulation calls it only for
// emission rewards; burns are recorded through UpdateSupply's burned balance
// and leave total supply unchanged.
func (e *Economy) AddTotalSupply(delta float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.totalSupply = clampNonNegative(e.totalSupply + delta)
}

func clampNonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// CommitMonth pushes the prior price and circulating supply into the ring
// histories, sets the new current price (clamped at the floor), and resets
// the per-month transaction volume.
func (e *Economy) CommitMonth(newPrice float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.priceHistory = pushRing(e.priceHistory, e.price, e.historyLen)
	e.circulatingHistory = pushRing(e.circulatingHistory, e.circulating, e.historyLen)

	if newPrice < e.minPrice {
		newPrice = e.minPrice
	}
	e.price = newPrice
	e.monthVolume = 0
}

func pushRing(ring []float64, v float64, limit int) []float64 {
	ring = append(ring, v)
	if len(ring) > limit {
		ring = ring[len(ring)-limit:]
	}
	return ring
}

// Snapshot returns an immutable copy of current state.
func (e *Economy) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	priceHistory := make([]float64, len(e.priceHistory))
	copy(priceHistory, e.priceHistory)
	circulatingHistory := make([]float64, len(e.circulatingHistory))
	copy(circulatingHistory, e.circulatingHistory)

	return Snapshot{
		Price:              e.price,
		TotalSupply:        e.totalSupply,
		Circulating:        e.circulating,
		Staked:             e.staked,
		Burned:             e.burned,
		MonthVolume:        e.monthVolume,
		PriceHistory:       priceHistory,
		CirculatingHistory: circulatingHistory,
	}
}

// NotYetUnlocked returns total_supply - circulating - staked - burned, the
// quantity still locked under vesting schedules. Used by conservation checks.
func (e *Economy) NotYetUnlocked() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalSupply - e.circulating - e.staked - e.burned
}

// MinPrice returns the configured price floor.
func (e *Economy) MinPrice() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.minPrice
}
