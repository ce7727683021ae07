// Package validation implements the flow graph validator: structural and
// per-type configuration checks that gate promotion, plus advisory warnings
// that never block it.
package validation

import "github.com/voicetree/voicetree/pkg/models"

// Issue codes. Errors block promotion; warnings are surfaced to the editor.
const (
	CodeEmptyGraph           = "empty_graph"
	CodeStartNodeCount       = "start_node_count"
	CodeMissingEndNode       = "missing_end_node"
	CodeDuplicateNodeID      = "duplicate_node_id"
	CodeUnknownNodeType      = "unknown_node_type"
	CodeInvalidConfig        = "invalid_config"
	CodeMissingRequiredSlot  = "missing_required_slot"
	CodeDuplicateSlot        = "duplicate_slot"
	CodeUnknownSlot          = "unknown_slot"
	CodeUnknownTarget        = "unknown_target"
	CodeUnreachableNode      = "unreachable_node"
	CodeUnreachableCondition = "unreachable_condition"
	CodeSchemaViolation      = "schema_violation"
)

// Issue is a single validation finding, scoped to a node when one applies.
type Issue struct {
	Code      string          `json:"code"`
	Message   string          `json:"message"`
	NodeID    string          `json:"node_id,omitempty"`
	NodeLabel string          `json:"node_label,omitempty"`
	NodeType  models.NodeType `json:"node_type,omitempty"`
	Slot      string          `json:"slot,omitempty"`
	Field     string          `json:"field,omitempty"`
}

// Result is the outcome of validating one graph. Valid is true iff Errors is
// empty; warnings never affect validity.
type Result struct {
	Valid    bool    `json:"is_valid"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

func nodeIssue(code string, node *models.FlowNode, message string) Issue {
	return Issue{
		Code:      code,
		Message:   message,
		NodeID:    node.ID,
		NodeLabel: node.Label,
		NodeType:  node.Type,
	}
}
