package scaler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelect_SmallRegimeIsFullIndividualWithWeightOne(t *testing.T) {
	plan := Select(500, 0.5, 0)
	assert.Equal(t, StrategyFullIndividual, plan.Strategy)
	assert.Equal(t, 250, plan.AgentsCreated)
	assert.Equal(t, 1.0, plan.WeightPerAgent)
}

func TestSelect_MediumRegimeCapsAgentsAndScalesWeight(t *testing.T) {
	plan := Select(5000, 0.5, 0)
	assert.Equal(t, StrategyRepresentative, plan.Strategy)
	assert.LessOrEqual(t, plan.AgentsCreated, 1000)
	assert.GreaterOrEqual(t, plan.WeightPerAgent, 1.0)
}

func TestSelect_LargeRegimeUsesDefaultMetaAgentCount(t *testing.T) {
	plan := Select(1_000_000, 0.1, 0)
	assert.Equal(t, StrategyMetaAgents, plan.Strategy)
	assert.Equal(t, defaultMetaAgentCount, plan.AgentsCreated)
	assert.GreaterOrEqual(t, plan.WeightPerAgent, 1.0)
}

func TestSelect_ExplicitOverrideWinsAcrossRegimes(t *testing.T) {
	plan := Select(1_000_000, 0.1, 20)
	assert.Equal(t, 20, plan.AgentsCreated)
	assert.GreaterOrEqual(t, plan.WeightPerAgent, 1.0)
}

func TestSelect_MinimumOneAgentForNonEmptyCohort(t *testing.T) {
	plan := Select(10, 0.01, 0)
	assert.GreaterOrEqual(t, plan.AgentsCreated, 1)
}

func TestSelect_WeightNeverBelowOne(t *testing.T) {
	plan := Select(100, 1.0, 200) // override with agents >> cohort holders
	assert.GreaterOrEqual(t, plan.WeightPerAgent, 1.0)
}
