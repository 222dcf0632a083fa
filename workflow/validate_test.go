package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefinition_Validate_DuplicatePhaseName(t *testing.T) {
	def := &Definition{Phases: []*StepDefinition{
		{Name: "plan", Type: "code", Handler: "noop"},
		{Name: "plan", Type: "code", Handler: "noop"},
	}}
	err := def.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate phase name")
}

func TestDefinition_Validate_DuplicateNestedStepName(t *testing.T) {
	def := &Definition{Phases: []*StepDefinition{
		{Name: "parallel-phase", Type: "parallel", Steps: []*StepDefinition{
			{Name: "a", Type: "code", Handler: "noop"},
			{Name: "a", Type: "code", Handler: "noop"},
		}},
	}}
	err := def.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate nested step name")
}

func TestDefinition_Validate_RejectsMalformedFailWhen(t *testing.T) {
	def := &Definition{Phases: []*StepDefinition{
		{Name: "verify", Type: "code", Handler: "noop", FailWhen: "x &&"},
	}}
	err := def.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failWhen")
}

func TestDefinition_Validate_LoopRequiresPositiveMaxRetries(t *testing.T) {
	def := &Definition{Phases: []*StepDefinition{
		{Name: "fix", Type: "loop", Condition: "true", MaxRetries: 0, Steps: []*StepDefinition{
			{Name: "review", Type: "code", Handler: "noop"},
		}},
	}}
	err := def.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maxRetries")
}

func TestDefinition_Validate_AcceptsWellFormedDefinition(t *testing.T) {
	def := &Definition{Phases: []*StepDefinition{
		{Name: "plan", Type: "code", Handler: "noop"},
		{Name: "fix", Type: "loop", Condition: "review.hasActionableIssues", MaxRetries: 2, Steps: []*StepDefinition{
			{Name: "review", Type: "code", Handler: "noop"},
		}},
	}}
	assert.NoError(t, def.Validate())
}

func TestDefinition_SetDefaults(t *testing.T) {
	def := &Definition{}
	def.SetDefaults()
	assert.NotNil(t, def.Defaults)
}
