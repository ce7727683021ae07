package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicetree/voicetree/pkg/models"
	"github.com/voicetree/voicetree/pkg/registry"
)

func TestRegistryCoversAllNodeTypes(t *testing.T) {
	t.Parallel()

	reg := registry.NewRegistry()

	specs := reg.All()
	require.Len(t, specs, len(models.NodeTypes()))

	for i, nodeType := range models.NodeTypes() {
		assert.Equal(t, nodeType, specs[i].Type, "catalog order must match the type list")
		assert.NotEmpty(t, specs[i].Name)
		assert.NotNil(t, specs[i].ConfigSchema, "every type needs a config schema")
	}
}

func TestRegistrySpec(t *testing.T) {
	t.Parallel()

	reg := registry.NewRegistry()

	spec, ok := reg.Spec(models.NodeTypeListen)
	require.True(t, ok)
	assert.Equal(t, []string{"success"}, spec.RequiredSlots)
	assert.ElementsMatch(t, []string{"timeout", "noInput", "error"}, spec.OptionalSlots)
	assert.Equal(t, "success", spec.PrimarySlot)

	end, ok := reg.Spec(models.NodeTypeEnd)
	require.True(t, ok)
	assert.Empty(t, end.RequiredSlots)
	assert.Empty(t, end.PrimarySlot, "end nodes have no outgoing slots")

	_, ok = reg.Spec(models.NodeType("teleport"))
	assert.False(t, ok)
}

func TestSlotsForDecisionConditions(t *testing.T) {
	t.Parallel()

	reg := registry.NewRegistry()

	node := &models.FlowNode{
		ID:    "decision-1",
		Type:  models.NodeTypeDecision,
		Label: "Route",
		Config: models.DecisionConfig{
			Conditions: []models.DecisionCondition{
				{ID: "billing", Name: "Billing", Value: "intent == 'billing'"},
				{ID: "support", Name: "Support", Value: "intent == 'support'"},
				{ID: "", Name: "Broken", Value: "x"},
			},
		},
	}

	required, optional, ok := reg.SlotsFor(node)
	require.True(t, ok)
	assert.Equal(t, []string{"default"}, required)
	assert.ElementsMatch(t, []string{"billing", "support"}, optional,
		"each declared condition contributes a slot; empty identifiers are skipped")
}

func TestSlotsForStaticTypes(t *testing.T) {
	t.Parallel()

	reg := registry.NewRegistry()

	node := &models.FlowNode{ID: "say-1", Type: models.NodeTypeSay, Label: "Say"}

	required, optional, ok := reg.SlotsFor(node)
	require.True(t, ok)
	assert.Equal(t, []string{"next"}, required)
	assert.Equal(t, []string{"timeout"}, optional)

	unknown := &models.FlowNode{ID: "x-1", Type: models.NodeType("teleport"), Label: "X"}

	_, _, ok = reg.SlotsFor(unknown)
	assert.False(t, ok)
}

func TestRegistryHealthCheck(t *testing.T) {
	t.Parallel()

	reg := registry.NewRegistry()

	message, healthy := reg.HealthCheck()
	assert.True(t, healthy)
	assert.Contains(t, message, "healthy")
}
