package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// GraphSchemaVersion is the current canonical exchange schema version.
const GraphSchemaVersion = "1.0"

// FlowGraph is the canonical exchange document embedded in a FlowVersion and
// handed to the flow-execution runtime. Nodes carry their own outgoing
// connections, so the document round-trips without a separate edge table.
type FlowGraph struct {
	SchemaVersion string        `json:"schema_version"`
	Metadata      GraphMetadata `json:"metadata"`
	Config        FlowConfig    `json:"config"`
	Variables     []Variable    `json:"variables,omitempty"`
	Nodes         []*FlowNode   `json:"nodes"`
}

// GraphMetadata describes the document itself, not the flow's behavior.
type GraphMetadata struct {
	Name         string    `json:"name"`
	VersionLabel string    `json:"version_label,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// FlowConfig is the flow-level configuration block: conversation defaults
// that apply to the whole script rather than to a single node.
type FlowConfig struct {
	SystemPrompt       string      `json:"system_prompt,omitempty"`
	Locale             string      `json:"locale,omitempty"`
	Voice              VoiceConfig `json:"voice,omitempty"`
	MaxTurns           int         `json:"max_turns,omitempty"`
	MaxDurationSeconds int         `json:"max_duration_seconds,omitempty"`
	ErrorPolicy        string      `json:"error_policy,omitempty"`
}

// VoiceConfig selects the speech provider and voice used for synthesis.
type VoiceConfig struct {
	Provider string  `json:"provider,omitempty"`
	VoiceID  string  `json:"voice_id,omitempty"`
	Speed    float64 `json:"speed,omitempty"`
}

// Variable declares a value available to node configs at call time.
type Variable struct {
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"`
	Default     any    `json:"default,omitempty"`
	Description string `json:"description,omitempty"`
}

// Position is the node's canvas location. It is round-tripped for the editor
// and carries no validation semantics.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Connection is a directed, slot-labeled edge from the owning node to Target.
// An empty Slot resolves to the source type's primary slot.
type Connection struct {
	Slot   string `json:"slot,omitempty"`
	Target string `json:"target" validate:"required"`
}

// FlowNode is a node instance in a flow graph. Config is a tagged union keyed
// by Type; see nodeconfig.go.
type FlowNode struct {
	ID          string        `json:"id"    validate:"required"`
	Type        NodeType      `json:"type"  validate:"required"`
	Label       string        `json:"label" validate:"required,min=1"`
	Description string        `json:"description,omitempty"`
	Position    Position      `json:"position"`
	Config      NodeConfig    `json:"config"`
	Connections []*Connection `json:"connections,omitempty"`
}

// flowNodeAlias avoids recursing into FlowNode's own (un)marshalers.
type flowNodeAlias struct {
	ID          string          `json:"id"`
	Type        NodeType        `json:"type"`
	Label       string          `json:"label"`
	Description string          `json:"description,omitempty"`
	Position    Position        `json:"position"`
	Config      json.RawMessage `json:"config"`
	Connections []*Connection   `json:"connections,omitempty"`
}

// UnmarshalJSON decodes the node and dispatches the config payload to the
// concrete struct for the node's type. A node with an unknown type keeps a
// nil config; the validator reports the type, not the decoder.
func (n *FlowNode) UnmarshalJSON(data []byte) error {
	var alias flowNodeAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	config, err := DecodeNodeConfig(alias.Type, alias.Config)
	if err != nil && !errors.Is(err, ErrUnknownNodeType) {
		return fmt.Errorf("node %s: %w", alias.ID, err)
	}

	n.ID = alias.ID
	n.Type = alias.Type
	n.Label = alias.Label
	n.Description = alias.Description
	n.Position = alias.Position
	n.Config = config
	n.Connections = alias.Connections

	return nil
}

// MarshalJSON emits the canonical node shape. A nil config is serialized as
// an empty object so the schema's required "config" field is always present.
func (n *FlowNode) MarshalJSON() ([]byte, error) {
	configJSON := json.RawMessage("{}")

	if n.Config != nil {
		encoded, err := json.Marshal(n.Config)
		if err != nil {
			return nil, fmt.Errorf("node %s: failed to marshal config: %w", n.ID, err)
		}

		configJSON = encoded
	}

	return json.Marshal(flowNodeAlias{
		ID:          n.ID,
		Type:        n.Type,
		Label:       n.Label,
		Description: n.Description,
		Position:    n.Position,
		Config:      configJSON,
		Connections: n.Connections,
	})
}

// Node returns the node with the given identifier, or nil.
func (g *FlowGraph) Node(id string) *FlowNode {
	for _, node := range g.Nodes {
		if node.ID == id {
			return node
		}
	}

	return nil
}

// NodesOfType returns all nodes tagged with the given type.
func (g *FlowGraph) NodesOfType(t NodeType) []*FlowNode {
	var nodes []*FlowNode

	for _, node := range g.Nodes {
		if node.Type == t {
			nodes = append(nodes, node)
		}
	}

	return nodes
}

// ConnectedTargets returns the set of node identifiers that are the target of
// at least one connection anywhere in the graph.
func (g *FlowGraph) ConnectedTargets() map[string]bool {
	targets := make(map[string]bool)

	for _, node := range g.Nodes {
		for _, conn := range node.Connections {
			targets[conn.Target] = true
		}
	}

	return targets
}

// Clone returns a deep copy of the graph via the canonical JSON document.
// Promotion snapshots must not share node or connection pointers with the
// draft that produced them.
func (g *FlowGraph) Clone() (*FlowGraph, error) {
	data, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize graph: %w", err)
	}

	var clone FlowGraph
	if err := json.Unmarshal(data, &clone); err != nil {
		return nil, fmt.Errorf("failed to deserialize graph: %w", err)
	}

	return &clone, nil
}
