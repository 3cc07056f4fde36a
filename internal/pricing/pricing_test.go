package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/vesting-sim/internal/economy"
)

func TestNew_ValidatesPerKind(t *testing.T) {
	_, err := New(Config{Kind: KindConstant, ConstantPrice: -1, MinPrice: 0.1})
	assert.Error(t, err)

	_, err = New(Config{Kind: KindEOE, Alpha: 1.5, HoldingTimeMonths: 6})
	assert.Error(t, err)

	_, err = New(Config{Kind: KindEOE, Alpha: 0.5, HoldingTimeMonths: 0})
	assert.Error(t, err)

	_, err = New(Config{Kind: KindBondingCurve, BondingCurveK: 0})
	assert.Error(t, err)

	_, err = New(Config{Kind: KindIssuanceCurve, IssuanceP0: 0})
	assert.Error(t, err)

	_, err = New(Config{Kind: "bogus"})
	assert.Error(t, err)
}

func TestConstant_AlwaysReturnsConfiguredPrice(t *testing.T) {
	m, err := New(Config{Kind: KindConstant, ConstantPrice: 2.5, MinPrice: 0.1})
	require.NoError(t, err)

	snap := economy.Snapshot{Price: 999}
	for i := 0; i < 3; i++ {
		assert.Equal(t, 2.5, m.Next(snap, MonthActions{}))
	}
}

func TestBondingCurve_IncreasesWithCirculatingSupply(t *testing.T) {
	m, err := New(Config{Kind: KindBondingCurve, BondingCurveK: 0.01, BondingCurveN: 1, MinPrice: 1e-6})
	require.NoError(t, err)

	low := m.Next(economy.Snapshot{Circulating: 100}, MonthActions{})
	high := m.Next(economy.Snapshot{Circulating: 1000}, MonthActions{})
	assert.Greater(t, high, low)
}

func TestIssuanceCurve_IncreasesWithCirculatingRatio(t *testing.T) {
	m, err := New(Config{Kind: KindIssuanceCurve, IssuanceP0: 1, IssuanceSMax: 1000, IssuanceAlpha: 1, MinPrice: 1e-6})
	require.NoError(t, err)

	low := m.Next(economy.Snapshot{Circulating: 0}, MonthActions{})
	high := m.Next(economy.Snapshot{Circulating: 1000}, MonthActions{})
	assert.Equal(t, 1.0, low)
	assert.Equal(t, 2.0, high)
}

func TestEOE_SmoothsTowardRawDemandAndStaysAboveFloor(t *testing.T) {
	m, err := New(Config{Kind: KindEOE, Alpha: 0.5, HoldingTimeMonths: 12, MinPrice: 0.01})
	require.NoError(t, err)

	snap := economy.Snapshot{Price: 1.0, Circulating: 1000}
	next := m.Next(snap, MonthActions{Sold: 100})
	// raw = 100*1.0 / (1000 * 12/12) = 0.1; next = 0.5*1.0 + 0.5*0.1
	assert.InDelta(t, 0.55, next, 1e-9)
	assert.GreaterOrEqual(t, next, 0.01)
	assert.False(t, math.IsNaN(next))
}

func TestEOE_DegenerateInputsNeverNaNOrInf(t *testing.T) {
	m, err := New(Config{Kind: KindEOE, Alpha: 0.5, HoldingTimeMonths: 12, MinPrice: 0.01})
	require.NoError(t, err)

	snap := economy.Snapshot{Price: 1.0, Circulating: 0}
	next := m.Next(snap, MonthActions{Sold: 0})
	assert.False(t, math.IsNaN(next))
	assert.False(t, math.IsInf(next, 0))
}
