package validation

import (
	"fmt"
	"net/url"

	"github.com/voicetree/voicetree/pkg/models"
	"github.com/voicetree/voicetree/pkg/registry"
)

// Validator checks flow graphs against the node type catalog. Validation is a
// pure computation: it never mutates the graph and holds no state across
// calls, so one instance may serve all requests concurrently.
type Validator struct {
	registry *registry.Registry
}

// NewValidator creates a validator backed by the given node type catalog.
func NewValidator(reg *registry.Registry) *Validator {
	return &Validator{registry: reg}
}

// Validate runs every structural and semantic check against the graph and
// returns the combined findings. Errors block promotion, warnings do not.
func (v *Validator) Validate(graph *models.FlowGraph) Result {
	errors := make([]Issue, 0)
	warnings := make([]Issue, 0)

	if graph == nil || len(graph.Nodes) == 0 {
		errors = append(errors, Issue{
			Code:    CodeEmptyGraph,
			Message: "flow graph has no nodes",
		})

		return Result{Valid: false, Errors: errors, Warnings: warnings}
	}

	errors = append(errors, v.checkNodeIdentifiers(graph)...)

	startCount := len(graph.NodesOfType(models.NodeTypeStart))
	if startCount != 1 {
		errors = append(errors, Issue{
			Code:     CodeStartNodeCount,
			NodeType: models.NodeTypeStart,
			Message:  fmt.Sprintf("flow must have exactly one start node, found %d", startCount),
		})
	}

	if len(graph.NodesOfType(models.NodeTypeEnd)) == 0 {
		warnings = append(warnings, Issue{
			Code:     CodeMissingEndNode,
			NodeType: models.NodeTypeEnd,
			Message:  "flow has no end node; calls will only terminate when the caller hangs up",
		})
	}

	for _, node := range graph.Nodes {
		spec, known := v.registry.Spec(node.Type)
		if !known {
			errors = append(errors, nodeIssue(CodeUnknownNodeType, node,
				fmt.Sprintf("unknown node type %q", node.Type)))

			continue
		}

		errors = append(errors, v.validateConfig(node)...)

		resolved, issues := ResolveSlots(node, v.registry)
		errors = append(errors, issues...)

		for _, slot := range spec.RequiredSlots {
			if _, bound := resolved[slot]; !bound {
				issue := nodeIssue(CodeMissingRequiredSlot, node,
					fmt.Sprintf("required slot %q has no connection", slot))
				issue.Slot = slot
				errors = append(errors, issue)
			}
		}

		for slot, target := range resolved {
			if graph.Node(target) == nil {
				issue := nodeIssue(CodeUnknownTarget, node,
					fmt.Sprintf("slot %q targets unknown node %q", slot, target))
				issue.Slot = slot
				errors = append(errors, issue)
			}
		}

		warnings = append(warnings, v.checkConditionCoverage(node, resolved)...)
	}

	warnings = append(warnings, v.checkReachability(graph)...)

	errors = append(errors, validateDocument(graph)...)

	return Result{
		Valid:    len(errors) == 0,
		Errors:   errors,
		Warnings: warnings,
	}
}

func (v *Validator) checkNodeIdentifiers(graph *models.FlowGraph) []Issue {
	var issues []Issue

	seen := make(map[string]bool, len(graph.Nodes))

	for _, node := range graph.Nodes {
		if node.ID == "" {
			issues = append(issues, nodeIssue(CodeInvalidConfig, node, "node has an empty identifier"))

			continue
		}

		if seen[node.ID] {
			issues = append(issues, nodeIssue(CodeDuplicateNodeID, node,
				fmt.Sprintf("node identifier %q is used more than once", node.ID)))
		}

		seen[node.ID] = true
	}

	return issues
}

// validateConfig applies the per-type configuration constraints. The switch
// is exhaustive over the NodeConfig union; a config struct that does not
// match the node's type tag is itself an error.
func (v *Validator) validateConfig(node *models.FlowNode) []Issue {
	var issues []Issue

	config := node.Config
	if config == nil {
		decoded, err := models.DecodeNodeConfig(node.Type, nil)
		if err != nil {
			return []Issue{nodeIssue(CodeInvalidConfig, node, err.Error())}
		}

		config = decoded
	}

	if config.NodeType() != node.Type {
		return []Issue{nodeIssue(CodeInvalidConfig, node,
			fmt.Sprintf("config shape is for %s nodes, not %s", config.NodeType(), node.Type))}
	}

	fail := func(message string) {
		issues = append(issues, nodeIssue(CodeInvalidConfig, node, message))
	}

	switch cfg := config.(type) {
	case models.StartConfig:
		if cfg.Greeting == "" {
			fail("greeting message must not be empty")
		}
	case models.SayConfig:
		if cfg.Message == "" {
			fail("message must not be empty")
		}
	case models.ListenConfig:
		if cfg.TimeoutSeconds < 5 || cfg.TimeoutSeconds > 60 {
			fail(fmt.Sprintf("timeout must be between 5 and 60 seconds, got %d", cfg.TimeoutSeconds))
		}
	case models.DecisionConfig:
		if len(cfg.Conditions) == 0 {
			fail("decision must declare at least one condition")
		}

		for i, condition := range cfg.Conditions {
			if condition.ID == "" {
				fail(fmt.Sprintf("condition %d has an empty identifier", i))
			}

			if condition.Name == "" || condition.Value == "" {
				fail(fmt.Sprintf("condition %q must have a non-empty name and value", condition.ID))
			}
		}
	case models.ActionConfig:
		if cfg.ActionType == "" {
			fail("action type must be set")
		}

		if cfg.ActionType == models.ActionTypeAPICall && !isAbsoluteURL(cfg.URL) {
			fail(fmt.Sprintf("api_call actions require a valid absolute URL, got %q", cfg.URL))
		}
	case models.TransferConfig:
		if cfg.Destination == "" {
			fail("transfer destination must not be empty")
		}

		if cfg.TransferType == "" {
			fail("transfer type must be set")
		}
	case models.CollectInfoConfig:
		if len(cfg.Fields) == 0 {
			fail("collect_info must declare at least one field")
		}

		for i, field := range cfg.Fields {
			if field.Name == "" || field.Prompt == "" {
				fail(fmt.Sprintf("field %d must have a non-empty name and prompt", i))
			}
		}
	case models.WebhookConfig:
		if !isAbsoluteURL(cfg.URL) {
			fail(fmt.Sprintf("webhook requires a valid absolute URL, got %q", cfg.URL))
		}
	case models.EndConfig:
		// No config constraints; end nodes only forbid outgoing slots,
		// which connection resolution reports.
	}

	return issues
}

// checkConditionCoverage warns about decision conditions that no edge
// resolves to. The default branch still covers them at call time, so this is
// advisory only.
func (v *Validator) checkConditionCoverage(node *models.FlowNode, resolved map[string]string) []Issue {
	config, ok := node.Config.(models.DecisionConfig)
	if !ok {
		return nil
	}

	var warnings []Issue

	for _, condition := range config.Conditions {
		if condition.ID == "" {
			continue
		}

		if _, bound := resolved[condition.ID]; !bound {
			issue := nodeIssue(CodeUnreachableCondition, node,
				fmt.Sprintf("condition %q has no dedicated connection and will fall through to default", condition.ID))
			issue.Slot = condition.ID
			warnings = append(warnings, issue)
		}
	}

	return warnings
}

// checkReachability warns about non-start nodes that are the target of no
// connection. A disconnected node does not block promotion but is surfaced
// to the editor.
func (v *Validator) checkReachability(graph *models.FlowGraph) []Issue {
	targets := graph.ConnectedTargets()

	var warnings []Issue

	for _, node := range graph.Nodes {
		if node.Type == models.NodeTypeStart {
			continue
		}

		if !targets[node.ID] {
			warnings = append(warnings, nodeIssue(CodeUnreachableNode, node,
				fmt.Sprintf("node %q has no incoming connections", node.Label)))
		}
	}

	return warnings
}

func isAbsoluteURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}

	return parsed.IsAbs() && parsed.Host != ""
}
