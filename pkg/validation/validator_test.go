package validation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicetree/voicetree/pkg/models"
	"github.com/voicetree/voicetree/pkg/registry"
	"github.com/voicetree/voicetree/pkg/testutil"
	"github.com/voicetree/voicetree/pkg/validation"
)

func newValidator() *validation.Validator {
	return validation.NewValidator(registry.NewRegistry())
}

func codes(issues []validation.Issue) []string {
	result := make([]string, 0, len(issues))
	for _, issue := range issues {
		result = append(result, issue.Code)
	}

	return result
}

func TestValidateValidGraph(t *testing.T) {
	t.Parallel()

	result := newValidator().Validate(testutil.CreateValidGraph())

	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings)
}

func TestValidateEmptyGraph(t *testing.T) {
	t.Parallel()

	validator := newValidator()

	tests := []struct {
		name  string
		graph *models.FlowGraph
	}{
		{"nil graph", nil},
		{"no nodes", testutil.CreateTestGraph()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := validator.Validate(tt.graph)

			assert.False(t, result.Valid)
			require.Len(t, result.Errors, 1)
			assert.Equal(t, validation.CodeEmptyGraph, result.Errors[0].Code)
		})
	}
}

func TestValidateStartNodeCount(t *testing.T) {
	t.Parallel()

	validator := newValidator()

	t.Run("no start node", func(t *testing.T) {
		t.Parallel()

		graph := testutil.CreateTestGraph(
			testutil.CreateTestNode(testutil.WithID("say-1"), testutil.WithConnections(testutil.Conn("", "end-1"))),
			testutil.CreateTestNode(testutil.WithID("end-1"), testutil.WithType(models.NodeTypeEnd, models.EndConfig{})),
		)

		result := validator.Validate(graph)

		assert.False(t, result.Valid)
		assert.Contains(t, codes(result.Errors), validation.CodeStartNodeCount)
	})

	t.Run("two start nodes", func(t *testing.T) {
		t.Parallel()

		graph := testutil.CreateValidGraph()
		graph.Nodes = append(graph.Nodes, testutil.CreateTestNode(
			testutil.WithID("start-2"),
			testutil.WithType(models.NodeTypeStart, models.StartConfig{Greeting: "Hi again"}),
			testutil.WithConnections(testutil.Conn("next", "say-1")),
		))

		result := validator.Validate(graph)

		assert.False(t, result.Valid)
		assert.Contains(t, codes(result.Errors), validation.CodeStartNodeCount)
	})
}

func TestValidateMissingEndNodeIsWarning(t *testing.T) {
	t.Parallel()

	graph := testutil.CreateTestGraph(
		testutil.CreateTestNode(
			testutil.WithID("start-1"),
			testutil.WithType(models.NodeTypeStart, models.StartConfig{Greeting: "Hello"}),
			testutil.WithConnections(testutil.Conn("next", "say-1")),
		),
		testutil.CreateTestNode(
			testutil.WithID("say-1"),
			testutil.WithConnections(testutil.Conn("", "say-1")),
		),
	)

	result := newValidator().Validate(graph)

	assert.True(t, result.Valid, "a missing end node must not block promotion")
	assert.Contains(t, codes(result.Warnings), validation.CodeMissingEndNode)
}

func TestValidateNodeIdentifiers(t *testing.T) {
	t.Parallel()

	validator := newValidator()

	t.Run("duplicate identifiers", func(t *testing.T) {
		t.Parallel()

		graph := testutil.CreateValidGraph()
		graph.Nodes = append(graph.Nodes, testutil.CreateTestNode(
			testutil.WithID("say-1"),
			testutil.WithConnections(testutil.Conn("", "end-1")),
		))

		result := validator.Validate(graph)

		assert.False(t, result.Valid)
		assert.Contains(t, codes(result.Errors), validation.CodeDuplicateNodeID)
	})

	t.Run("empty identifier", func(t *testing.T) {
		t.Parallel()

		graph := testutil.CreateValidGraph()
		graph.Nodes = append(graph.Nodes, testutil.CreateTestNode(
			testutil.WithID(""),
			testutil.WithConnections(testutil.Conn("", "end-1")),
		))

		result := validator.Validate(graph)

		assert.False(t, result.Valid)
		assert.Contains(t, codes(result.Errors), validation.CodeInvalidConfig)
	})
}

func TestValidateUnknownNodeType(t *testing.T) {
	t.Parallel()

	graph := testutil.CreateValidGraph()
	graph.Nodes = append(graph.Nodes, &models.FlowNode{
		ID:    "teleport-1",
		Type:  models.NodeType("teleport"),
		Label: "Teleport",
	})

	result := newValidator().Validate(graph)

	assert.False(t, result.Valid)
	assert.Contains(t, codes(result.Errors), validation.CodeUnknownNodeType)
}

func TestValidateNodeConfigs(t *testing.T) {
	t.Parallel()

	validator := newValidator()

	tests := []struct {
		name    string
		node    *models.FlowNode
		message string
	}{
		{
			name: "start without greeting",
			node: testutil.CreateTestNode(
				testutil.WithType(models.NodeTypeStart, models.StartConfig{}),
				testutil.WithConnections(testutil.Conn("next", "end-1")),
			),
			message: "greeting",
		},
		{
			name: "say without message",
			node: testutil.CreateTestNode(
				testutil.WithType(models.NodeTypeSay, models.SayConfig{}),
				testutil.WithConnections(testutil.Conn("", "end-1")),
			),
			message: "message",
		},
		{
			name: "listen timeout too short",
			node: testutil.CreateTestNode(
				testutil.WithType(models.NodeTypeListen, models.ListenConfig{TimeoutSeconds: 2}),
				testutil.WithConnections(testutil.Conn("success", "end-1")),
			),
			message: "timeout must be between 5 and 60",
		},
		{
			name: "listen timeout too long",
			node: testutil.CreateTestNode(
				testutil.WithType(models.NodeTypeListen, models.ListenConfig{TimeoutSeconds: 120}),
				testutil.WithConnections(testutil.Conn("success", "end-1")),
			),
			message: "timeout must be between 5 and 60",
		},
		{
			name: "decision without conditions",
			node: testutil.CreateTestNode(
				testutil.WithType(models.NodeTypeDecision, models.DecisionConfig{}),
				testutil.WithConnections(testutil.Conn("default", "end-1")),
			),
			message: "at least one condition",
		},
		{
			name: "decision condition missing value",
			node: testutil.CreateTestNode(
				testutil.WithType(models.NodeTypeDecision, models.DecisionConfig{
					Conditions: []models.DecisionCondition{{ID: "yes", Name: "Yes"}},
				}),
				testutil.WithConnections(testutil.Conn("default", "end-1"), testutil.Conn("yes", "end-1")),
			),
			message: "non-empty name and value",
		},
		{
			name: "action without type",
			node: testutil.CreateTestNode(
				testutil.WithType(models.NodeTypeAction, models.ActionConfig{}),
				testutil.WithConnections(testutil.Conn("success", "end-1")),
			),
			message: "action type",
		},
		{
			name: "api_call action with relative URL",
			node: testutil.CreateTestNode(
				testutil.WithType(models.NodeTypeAction, models.ActionConfig{
					ActionType: models.ActionTypeAPICall,
					URL:        "/orders",
				}),
				testutil.WithConnections(testutil.Conn("success", "end-1")),
			),
			message: "absolute URL",
		},
		{
			name: "transfer without destination",
			node: testutil.CreateTestNode(
				testutil.WithType(models.NodeTypeTransfer, models.TransferConfig{TransferType: "warm"}),
				testutil.WithConnections(testutil.Conn("completed", "end-1")),
			),
			message: "destination",
		},
		{
			name: "collect_info without fields",
			node: testutil.CreateTestNode(
				testutil.WithType(models.NodeTypeCollectInfo, models.CollectInfoConfig{}),
				testutil.WithConnections(testutil.Conn("success", "end-1")),
			),
			message: "at least one field",
		},
		{
			name: "webhook with invalid URL",
			node: testutil.CreateTestNode(
				testutil.WithType(models.NodeTypeWebhook, models.WebhookConfig{URL: "not a url"}),
				testutil.WithConnections(testutil.Conn("success", "end-1")),
			),
			message: "absolute URL",
		},
		{
			name: "config shape mismatch",
			node: testutil.CreateTestNode(
				testutil.WithType(models.NodeTypeListen, models.SayConfig{Message: "hi"}),
				testutil.WithConnections(testutil.Conn("success", "end-1")),
			),
			message: "config shape is for say nodes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			graph := testutil.CreateValidGraph()
			graph.Nodes = append(graph.Nodes, tt.node)

			result := validator.Validate(graph)

			assert.False(t, result.Valid)
			require.Contains(t, codes(result.Errors), validation.CodeInvalidConfig)

			found := false

			for _, issue := range result.Errors {
				if issue.Code == validation.CodeInvalidConfig && issue.NodeID == tt.node.ID {
					assert.Contains(t, issue.Message, tt.message)

					found = true
				}
			}

			assert.True(t, found, "expected an invalid_config issue for node %s", tt.node.ID)
		})
	}
}

func TestValidateMissingRequiredSlot(t *testing.T) {
	t.Parallel()

	graph := testutil.CreateValidGraph()
	graph.Nodes = append(graph.Nodes, testutil.CreateTestNode(
		testutil.WithID("say-2"),
		testutil.WithLabel("Dangling"),
	))

	result := newValidator().Validate(graph)

	assert.False(t, result.Valid)

	found := false

	for _, issue := range result.Errors {
		if issue.Code == validation.CodeMissingRequiredSlot && issue.NodeID == "say-2" {
			assert.Equal(t, "next", issue.Slot)

			found = true
		}
	}

	assert.True(t, found)
}

func TestValidateUnknownTarget(t *testing.T) {
	t.Parallel()

	graph := testutil.CreateValidGraph()
	graph.Node("say-1").Connections = []*models.Connection{testutil.Conn("", "nowhere")}

	result := newValidator().Validate(graph)

	assert.False(t, result.Valid)
	assert.Contains(t, codes(result.Errors), validation.CodeUnknownTarget)
}

func TestValidateEndNodeRejectsConnections(t *testing.T) {
	t.Parallel()

	graph := testutil.CreateValidGraph()
	graph.Node("end-1").Connections = []*models.Connection{testutil.Conn("", "say-1")}

	result := newValidator().Validate(graph)

	assert.False(t, result.Valid)

	found := false

	for _, issue := range result.Errors {
		if issue.Code == validation.CodeUnknownSlot && issue.NodeID == "end-1" {
			found = true
		}
	}

	assert.True(t, found, "end nodes must not have outgoing connections")
}

func TestValidateUnreachableNodeIsWarning(t *testing.T) {
	t.Parallel()

	graph := testutil.CreateValidGraph()
	graph.Nodes = append(graph.Nodes, testutil.CreateTestNode(
		testutil.WithID("orphan-1"),
		testutil.WithLabel("Orphan"),
		testutil.WithConnections(testutil.Conn("", "end-1")),
	))

	result := newValidator().Validate(graph)

	assert.True(t, result.Valid, "unreachable nodes do not block promotion")

	found := false

	for _, issue := range result.Warnings {
		if issue.Code == validation.CodeUnreachableNode && issue.NodeID == "orphan-1" {
			found = true
		}
	}

	assert.True(t, found)
}

func TestValidateConditionCoverageWarning(t *testing.T) {
	t.Parallel()

	graph := testutil.CreateValidGraph()
	graph.Node("say-1").Connections = []*models.Connection{testutil.Conn("", "decision-1")}
	graph.Nodes = append(graph.Nodes, testutil.CreateTestNode(
		testutil.WithID("decision-1"),
		testutil.WithLabel("Route"),
		testutil.WithType(models.NodeTypeDecision, models.DecisionConfig{
			Conditions: []models.DecisionCondition{
				{ID: "billing", Name: "Billing", Value: "intent == 'billing'"},
				{ID: "support", Name: "Support", Value: "intent == 'support'"},
			},
		}),
		testutil.WithConnections(
			testutil.Conn("default", "end-1"),
			testutil.Conn("billing", "end-1"),
		),
	))

	result := newValidator().Validate(graph)

	assert.True(t, result.Valid)

	found := false

	for _, issue := range result.Warnings {
		if issue.Code == validation.CodeUnreachableCondition && issue.Slot == "support" {
			found = true
		}
	}

	assert.True(t, found, "conditions without a dedicated edge should be flagged")
}

func TestValidateSchemaVersion(t *testing.T) {
	t.Parallel()

	graph := testutil.CreateValidGraph()
	graph.SchemaVersion = "2.0"

	result := newValidator().Validate(graph)

	assert.False(t, result.Valid)
	assert.Contains(t, codes(result.Errors), validation.CodeSchemaViolation)
}

func TestValidateVariables(t *testing.T) {
	t.Parallel()

	t.Run("untyped variable is allowed", func(t *testing.T) {
		t.Parallel()

		graph := testutil.CreateValidGraph()
		graph.Variables = []models.Variable{{Name: "caller_name"}}

		result := newValidator().Validate(graph)

		assert.True(t, result.Valid, "a declared variable may omit its type: %v", result.Errors)
	})

	t.Run("unknown variable type is a schema violation", func(t *testing.T) {
		t.Parallel()

		graph := testutil.CreateValidGraph()
		graph.Variables = []models.Variable{{Name: "caller_name", Type: "datetime"}}

		result := newValidator().Validate(graph)

		assert.False(t, result.Valid)
		assert.Contains(t, codes(result.Errors), validation.CodeSchemaViolation)
	})
}
