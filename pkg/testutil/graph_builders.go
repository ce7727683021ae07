// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/voicetree/voicetree/pkg/models"
)

// CreateTestNode creates a test FlowNode with default values that can be overridden.
func CreateTestNode(overrides ...func(*models.FlowNode)) *models.FlowNode {
	node := &models.FlowNode{
		ID:       uuid.New().String(),
		Type:     models.NodeTypeSay,
		Label:    "Test Node",
		Position: models.Position{X: 100, Y: 200},
		Config:   models.SayConfig{Message: "hello"},
	}

	for _, override := range overrides {
		override(node)
	}

	return node
}

// WithID sets the node ID.
func WithID(id string) func(*models.FlowNode) {
	return func(n *models.FlowNode) {
		n.ID = id
	}
}

// WithLabel sets the node label.
func WithLabel(label string) func(*models.FlowNode) {
	return func(n *models.FlowNode) {
		n.Label = label
	}
}

// WithType sets the node type and a matching default config.
func WithType(nodeType models.NodeType, config models.NodeConfig) func(*models.FlowNode) {
	return func(n *models.FlowNode) {
		n.Type = nodeType
		n.Config = config
	}
}

// WithConnections sets the node's outgoing connections.
func WithConnections(connections ...*models.Connection) func(*models.FlowNode) {
	return func(n *models.FlowNode) {
		n.Connections = connections
	}
}

// Conn builds a slot-labeled connection.
func Conn(slot, target string) *models.Connection {
	return &models.Connection{Slot: slot, Target: target}
}

// CreateTestGraph creates an empty graph document with valid metadata.
func CreateTestGraph(nodes ...*models.FlowNode) *models.FlowGraph {
	if nodes == nil {
		nodes = make([]*models.FlowNode, 0)
	}

	return &models.FlowGraph{
		SchemaVersion: models.GraphSchemaVersion,
		Metadata: models.GraphMetadata{
			Name:         "Test Flow",
			LastModified: time.Now().UTC(),
		},
		Nodes: nodes,
	}
}

// CreateValidGraph creates the smallest graph that passes validation:
// start -> say -> end.
func CreateValidGraph() *models.FlowGraph {
	return CreateTestGraph(
		CreateTestNode(
			WithID("start-1"),
			WithLabel("Start"),
			WithType(models.NodeTypeStart, models.StartConfig{Greeting: "Welcome!"}),
			WithConnections(Conn("next", "say-1")),
		),
		CreateTestNode(
			WithID("say-1"),
			WithLabel("Greeting"),
			WithConnections(Conn("", "end-1")),
		),
		CreateTestNode(
			WithID("end-1"),
			WithLabel("End"),
			WithType(models.NodeTypeEnd, models.EndConfig{Farewell: "Goodbye"}),
		),
	)
}

// CreateTestFlow creates a test flow container.
func CreateTestFlow(tenantID string) *models.Flow {
	return &models.Flow{
		ID:          uuid.New().String(),
		TenantID:    tenantID,
		Name:        "Test Flow",
		Description: "A flow for testing",
	}
}
