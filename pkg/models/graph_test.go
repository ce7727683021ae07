package models_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicetree/voicetree/pkg/models"
)

func TestFlowNodeJSONRoundTrip(t *testing.T) {
	t.Parallel()

	node := &models.FlowNode{
		ID:       "decision-1",
		Type:     models.NodeTypeDecision,
		Label:    "Route Intent",
		Position: models.Position{X: 320, Y: 80},
		Config: models.DecisionConfig{
			Conditions: []models.DecisionCondition{
				{ID: "billing", Name: "Billing", Value: "intent == 'billing'"},
			},
		},
		Connections: []*models.Connection{
			{Slot: "billing", Target: "transfer-1"},
			{Slot: "default", Target: "say-1"},
		},
	}

	data, err := json.Marshal(node)
	require.NoError(t, err)

	var decoded models.FlowNode
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, node.ID, decoded.ID)
	assert.Equal(t, node.Type, decoded.Type)
	assert.Equal(t, node.Label, decoded.Label)
	assert.Equal(t, node.Position, decoded.Position)
	require.Len(t, decoded.Connections, 2)
	assert.Equal(t, "transfer-1", decoded.Connections[0].Target)

	config, ok := decoded.Config.(models.DecisionConfig)
	require.True(t, ok, "decoded config should be a DecisionConfig, got %T", decoded.Config)
	require.Len(t, config.Conditions, 1)
	assert.Equal(t, "billing", config.Conditions[0].ID)
}

func TestFlowNodeMarshalNilConfig(t *testing.T) {
	t.Parallel()

	node := &models.FlowNode{
		ID:    "end-1",
		Type:  models.NodeTypeEnd,
		Label: "End",
	}

	data, err := json.Marshal(node)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))

	config, present := raw["config"]
	require.True(t, present, "config field must always be emitted")
	assert.JSONEq(t, `{}`, string(config))
}

func TestFlowNodeUnmarshalUnknownType(t *testing.T) {
	t.Parallel()

	payload := `{"id":"x-1","type":"teleport","label":"X","config":{}}`

	// An unrecognized type tag must not fail decoding; the node survives with
	// a nil config so validation can report it.
	var node models.FlowNode
	require.NoError(t, json.Unmarshal([]byte(payload), &node))

	assert.Equal(t, "x-1", node.ID)
	assert.Equal(t, models.NodeType("teleport"), node.Type)
	assert.Nil(t, node.Config)
}

func TestGraphLookups(t *testing.T) {
	t.Parallel()

	graph := &models.FlowGraph{
		SchemaVersion: models.GraphSchemaVersion,
		Nodes: []*models.FlowNode{
			{ID: "start-1", Type: models.NodeTypeStart, Label: "Start",
				Config:      models.StartConfig{Greeting: "hi"},
				Connections: []*models.Connection{{Slot: "next", Target: "say-1"}}},
			{ID: "say-1", Type: models.NodeTypeSay, Label: "Say",
				Config:      models.SayConfig{Message: "hello"},
				Connections: []*models.Connection{{Target: "end-1"}}},
			{ID: "end-1", Type: models.NodeTypeEnd, Label: "End",
				Config: models.EndConfig{}},
		},
	}

	assert.NotNil(t, graph.Node("say-1"))
	assert.Nil(t, graph.Node("missing"))

	assert.Len(t, graph.NodesOfType(models.NodeTypeStart), 1)
	assert.Empty(t, graph.NodesOfType(models.NodeTypeWebhook))

	targets := graph.ConnectedTargets()
	assert.True(t, targets["say-1"])
	assert.True(t, targets["end-1"])
	assert.False(t, targets["start-1"])
}

func TestGraphCloneIsIndependent(t *testing.T) {
	t.Parallel()

	graph := &models.FlowGraph{
		SchemaVersion: models.GraphSchemaVersion,
		Metadata:      models.GraphMetadata{Name: "Original"},
		Nodes: []*models.FlowNode{
			{ID: "start-1", Type: models.NodeTypeStart, Label: "Start",
				Config:      models.StartConfig{Greeting: "hi"},
				Connections: []*models.Connection{{Slot: "next", Target: "end-1"}}},
			{ID: "end-1", Type: models.NodeTypeEnd, Label: "End", Config: models.EndConfig{}},
		},
	}

	clone, err := graph.Clone()
	require.NoError(t, err)
	require.Len(t, clone.Nodes, 2)

	clone.Metadata.Name = "Copy"
	clone.Nodes[0].Label = "Changed"
	clone.Nodes[0].Connections[0].Target = "elsewhere"

	assert.Equal(t, "Original", graph.Metadata.Name)
	assert.Equal(t, "Start", graph.Nodes[0].Label)
	assert.Equal(t, "end-1", graph.Nodes[0].Connections[0].Target)
}

func TestDecodeNodeConfig(t *testing.T) {
	t.Parallel()

	t.Run("decodes each known type", func(t *testing.T) {
		t.Parallel()

		for _, nodeType := range models.NodeTypes() {
			config, err := models.DecodeNodeConfig(nodeType, json.RawMessage(`{}`))
			require.NoError(t, err, "type %s", nodeType)
			assert.Equal(t, nodeType, config.NodeType())
		}
	})

	t.Run("nil payload yields zero config", func(t *testing.T) {
		t.Parallel()

		config, err := models.DecodeNodeConfig(models.NodeTypeSay, nil)
		require.NoError(t, err)

		say, ok := config.(models.SayConfig)
		require.True(t, ok)
		assert.Empty(t, say.Message)
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		t.Parallel()

		_, err := models.DecodeNodeConfig(models.NodeType("teleport"), json.RawMessage(`{}`))
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrUnknownNodeType)
	})

	t.Run("rejects malformed payload", func(t *testing.T) {
		t.Parallel()

		_, err := models.DecodeNodeConfig(models.NodeTypeListen, json.RawMessage(`{"timeout_seconds":"ten"}`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid listen config")
	})
}
