// Package registry provides the static catalog of node types: their
// configuration schemas and the outgoing connection slots each type supports.
package registry

import (
	"github.com/voicetree/voicetree/pkg/models"
)

// NodeTypeSpec declares the contract of one node type. RequiredSlots must be
// bound for a graph to promote; OptionalSlots may be left open. PrimarySlot
// is the slot an unlabeled connection resolves to, empty for end nodes.
type NodeTypeSpec struct {
	Type          models.NodeType    `json:"type"`
	Name          string             `json:"name"`
	Description   string             `json:"description"`
	RequiredSlots []string           `json:"required_slots"`
	OptionalSlots []string           `json:"optional_slots"`
	PrimarySlot   string             `json:"primary_slot,omitempty"`
	ConfigSchema  *models.JSONSchema `json:"config_schema"`
}

// Registry is a pure lookup table over the nine node types. It has no mutable
// state; a single instance can be shared across all request handlers.
type Registry struct {
	specs map[models.NodeType]NodeTypeSpec
	order []models.NodeType
}

// NewRegistry builds the node type catalog.
func NewRegistry() *Registry {
	specs := map[models.NodeType]NodeTypeSpec{
		models.NodeTypeStart: {
			Type:          models.NodeTypeStart,
			Name:          "Start",
			Description:   "Entry point of the flow; greets the caller",
			RequiredSlots: []string{"next"},
			OptionalSlots: []string{},
			PrimarySlot:   "next",
			ConfigSchema:  startConfigSchema(),
		},
		models.NodeTypeSay: {
			Type:          models.NodeTypeSay,
			Name:          "Say",
			Description:   "Speaks a message to the caller",
			RequiredSlots: []string{"next"},
			OptionalSlots: []string{"timeout"},
			PrimarySlot:   "next",
			ConfigSchema:  sayConfigSchema(),
		},
		models.NodeTypeListen: {
			Type:          models.NodeTypeListen,
			Name:          "Listen",
			Description:   "Waits for caller speech",
			RequiredSlots: []string{"success"},
			OptionalSlots: []string{"timeout", "noInput", "error"},
			PrimarySlot:   "success",
			ConfigSchema:  listenConfigSchema(),
		},
		models.NodeTypeDecision: {
			Type:          models.NodeTypeDecision,
			Name:          "Decision",
			Description:   "Branches on declared conditions",
			RequiredSlots: []string{"default"},
			OptionalSlots: []string{}, // one slot per declared condition, resolved per node
			PrimarySlot:   "default",
			ConfigSchema:  decisionConfigSchema(),
		},
		models.NodeTypeAction: {
			Type:          models.NodeTypeAction,
			Name:          "Action",
			Description:   "Performs a side effect such as an API call",
			RequiredSlots: []string{"success"},
			OptionalSlots: []string{"error", "timeout"},
			PrimarySlot:   "success",
			ConfigSchema:  actionConfigSchema(),
		},
		models.NodeTypeTransfer: {
			Type:          models.NodeTypeTransfer,
			Name:          "Transfer",
			Description:   "Hands the call to a human or external destination",
			RequiredSlots: []string{"completed"},
			OptionalSlots: []string{"failed", "timeout"},
			PrimarySlot:   "completed",
			ConfigSchema:  transferConfigSchema(),
		},
		models.NodeTypeCollectInfo: {
			Type:          models.NodeTypeCollectInfo,
			Name:          "Collect Information",
			Description:   "Gathers a set of fields from the caller",
			RequiredSlots: []string{"success"},
			OptionalSlots: []string{"incomplete", "error"},
			PrimarySlot:   "success",
			ConfigSchema:  collectInfoConfigSchema(),
		},
		models.NodeTypeWebhook: {
			Type:          models.NodeTypeWebhook,
			Name:          "Webhook",
			Description:   "Notifies an external endpoint mid-call",
			RequiredSlots: []string{"success"},
			OptionalSlots: []string{"error"},
			PrimarySlot:   "success",
			ConfigSchema:  webhookConfigSchema(),
		},
		models.NodeTypeEnd: {
			Type:          models.NodeTypeEnd,
			Name:          "End",
			Description:   "Terminates the call",
			RequiredSlots: []string{},
			OptionalSlots: []string{},
			ConfigSchema:  endConfigSchema(),
		},
	}

	return &Registry{
		specs: specs,
		order: models.NodeTypes(),
	}
}

// Spec returns the contract for the given node type.
func (r *Registry) Spec(t models.NodeType) (NodeTypeSpec, bool) {
	spec, ok := r.specs[t]

	return spec, ok
}

// All returns every node type spec in catalog order.
func (r *Registry) All() []NodeTypeSpec {
	specs := make([]NodeTypeSpec, 0, len(r.order))
	for _, t := range r.order {
		specs = append(specs, r.specs[t])
	}

	return specs
}

// SlotsFor returns the required and optional slot names for a node instance.
// For decision nodes each declared condition contributes an optional slot
// named by the condition's identifier; every other type uses the static spec.
func (r *Registry) SlotsFor(node *models.FlowNode) (required, optional []string, ok bool) {
	spec, found := r.specs[node.Type]
	if !found {
		return nil, nil, false
	}

	required = append(required, spec.RequiredSlots...)
	optional = append(optional, spec.OptionalSlots...)

	if config, isDecision := node.Config.(models.DecisionConfig); isDecision {
		for _, condition := range config.Conditions {
			if condition.ID != "" {
				optional = append(optional, condition.ID)
			}
		}
	}

	return required, optional, true
}

// HealthCheck reports whether the catalog is complete.
func (r *Registry) HealthCheck() (string, bool) {
	for _, t := range models.NodeTypes() {
		if _, ok := r.specs[t]; !ok {
			return "Node type catalog is incomplete: missing " + string(t), false
		}
	}

	return "Node type catalog is healthy", true
}
