// Package vesting provides the pure per-agent unlock schedule.
package vesting

import (
	"fmt"
	"math"
)

// UnlockType identifies the unlock curve shape. Only "linear" is defined so far.
type UnlockType string

// Linear is the only currently supported unlock type.
const Linear UnlockType = "linear"

// Schedule is an immutable per-agent vesting schedule.
//
// Schedule precomputes its unlock table at construction time so that
// UnlockAmount is a simple slice lookup; cohort.Profile.Materialize builds
// one Schedule per cohort and shares it across every agent it samples.
type Schedule struct {
	allocation   float64
	tgePercent   float64
	cliffMonths  int
	vestingMonths int
	unlockType   UnlockType

	table []float64 // table[m] = amount unlocked at month m, len = cliff+1+vesting if cliff > 0, vesting if cliff == 0 (1 if vesting == 0)
}

// NewSchedule constructs a vesting schedule, validating parameters.
//
// allocation is the total token amount. tgePercent is in [0,100]. cliffMonths
// and vestingMonths must be >= 0. vestingMonths == 0 is only valid when
// tgePercent == 100 (the entire allocation unlocks at TGE).
func NewSchedule(allocation, tgePercent float64, cliffMonths, vestingMonths int, unlockType UnlockType) (*Schedule, error) {
	if allocation < 0 {
		return nil, fmt.Errorf("allocation must be >= 0, got %v", allocation)
	}
	if tgePercent < 0 || tgePercent > 100 {
		return nil, fmt.Errorf("tge percent must be in [0,100], got %v", tgePercent)
	}
	if cliffMonths < 0 {
		return nil, fmt.Errorf("cliff months must be >= 0, got %d", cliffMonths)
	}
	if vestingMonths < 0 {
		return nil, fmt.Errorf("vesting months must be >= 0, got %d", vestingMonths)
	}
	if vestingMonths == 0 && tgePercent < 100 {
		return nil, fmt.Errorf("vesting months == 0 requires tge percent == 100, got %v", tgePercent)
	}
	if unlockType == "" {
		unlockType = Linear
	}
	if unlockType != Linear {
		return nil, fmt.Errorf("unsupported unlock type %q", unlockType)
	}

	s := &Schedule{
		allocation:    allocation,
		tgePercent:    tgePercent,
		cliffMonths:   cliffMonths,
		vestingMonths: vestingMonths,
		unlockType:    unlockType,
	}
	s.table = s.buildTable()
	return s, nil
}

// buildTable materializes unlock(month) for every month up to the final
// vesting tick, adding any floating-point residual onto that final tick.
func (s *Schedule) buildTable() []float64 {
	tgeFraction := s.tgePercent / 100.0
	tgeAmount := s.allocation * tgeFraction

	if s.vestingMonths == 0 {
		// TGE == 100%: everything unlocks at month 0.
		return []float64{s.allocation}
	}

	remaining := s.allocation - tgeAmount
	perTick := remaining / float64(s.vestingMonths)

	start := 0
	if s.cliffMonths > 0 {
		start = s.cliffMonths + 1
	}

	horizon := start + s.vestingMonths
	table := make([]float64, horizon)
	table[0] += tgeAmount

	cumulative := tgeAmount
	for m := start; m < start+s.vestingMonths; m++ {
		table[m] += perTick
		cumulative += perTick
	}

	// Close the residual from floating-point division on the final unlock tick.
	lastTick := start + s.vestingMonths - 1
	residual := s.allocation - cumulative
	table[lastTick] = roundToEven(table[lastTick]+residual, 1e-9)

	return table
}

// roundToEven returns v unchanged, except that a value whose magnitude is
// below epsilon becomes exactly 0. The caller adds the residual itself.
func roundToEven(v, epsilon float64) float64 {
	if math.Abs(v) < epsilon {
		return 0
	}
	return v
}

// UnlockAmount returns the amount unlocked at the given month. Months beyond
// the schedule's horizon unlock 0.
func (s *Schedule) UnlockAmount(month int) float64 {
	if month < 0 || month >= len(s.table) {
		return 0
	}
	return s.table[month]
}

// Allocation returns the total allocation this schedule vests.
func (s *Schedule) Allocation() float64 {
	return s.allocation
}

// CliffMonths returns the configured cliff length.
func (s *Schedule) CliffMonths() int {
	return s.cliffMonths
}

// VestingMonths returns the configured vesting length.
func (s *Schedule) VestingMonths() int {
	return s.vestingMonths
}

// IsFirstPostCliffMonth reports whether month is the first month unlocks
// resume after a (non-zero) cliff — used by the agent's cliff-shock logic.
func (s *Schedule) IsFirstPostCliffMonth(month int) bool {
	if s.cliffMonths == 0 {
		return false
	}
	return month == s.cliffMonths+1
}
