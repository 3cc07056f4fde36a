package cohort

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseProfile() Profile {
	return Profile{
		Label:                "retail",
		Fraction:             0.5,
		RiskTolerance:        AttributeDist{Family: Beta, Alpha: 2, Beta: 2, Min: 0, Max: 1},
		HoldTimeMonths:       AttributeDist{Family: Gamma, Alpha: 2, Beta: 1, Min: 1, Max: 36},
		BaselineSellPressure: AttributeDist{Family: Normal, Mu: 0.3, Sigma: 0.1, Min: 0, Max: 1},
		StakingPropensity:    AttributeDist{Family: Normal, Mu: 0.2, Sigma: 0.1, Min: 0, Max: 1},
		PriceSensitivity:     AttributeDist{Family: Normal, Mu: 0.2, Sigma: 0.1, Min: 0, Max: 1},
		CliffShockFactor:     AttributeDist{Family: Normal, Mu: 1.5, Sigma: 0.2, Min: 1, Max: 3},
		Allocation:           1_000_000,
		TGEPercent:           10,
		CliffMonths:          3,
		VestingMonths:        12,
	}
}

func TestValidate_RejectsOutOfRangeFraction(t *testing.T) {
	p := baseProfile()
	p.Fraction = 0
	assert.Error(t, p.Validate())

	p.Fraction = 1.5
	assert.Error(t, p.Validate())
}

func TestMaterialize_ProducesRequestedAgentCountWithClampedParams(t *testing.T) {
	p := baseProfile()
	agents, err := p.Materialize(25, 4, 7)
	require.NoError(t, err)
	require.Len(t, agents, 25)

	for _, a := range agents {
		assert.Equal(t, "retail", a.CohortLabel)
		assert.Equal(t, 4.0, a.Weight)
		assert.GreaterOrEqual(t, a.Params.RiskTolerance, 0.0)
		assert.LessOrEqual(t, a.Params.RiskTolerance, 1.0)
		assert.GreaterOrEqual(t, a.Params.CliffShockFactor, 1.0)
		assert.LessOrEqual(t, a.Params.CliffShockFactor, 3.0)
	}
}

func TestMaterialize_IsDeterministicForTheSameSeed(t *testing.T) {
	p := baseProfile()

	a1, err := p.Materialize(10, 1, 99)
	require.NoError(t, err)
	a2, err := p.Materialize(10, 1, 99)
	require.NoError(t, err)

	for i := range a1 {
		assert.Equal(t, a1[i].Params, a2[i].Params)
	}
}

func TestMaterialize_RejectsNonPositiveCount(t *testing.T) {
	p := baseProfile()
	_, err := p.Materialize(0, 1, 1)
	assert.Error(t, err)
}
