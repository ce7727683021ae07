package validation

import (
	"fmt"

	"github.com/voicetree/voicetree/pkg/models"
	"github.com/voicetree/voicetree/pkg/registry"
)

// ResolveSlots computes a node's resolved slot→target mapping from its raw
// edge list. An edge with an explicit slot label resolves to that slot when
// legal for the node's type; an unlabeled edge resolves to the type's primary
// slot. Decision edges labeled with a declared condition identifier resolve
// to that condition's slot and any other label falls through to default. At
// most one target may bind per slot.
func ResolveSlots(node *models.FlowNode, reg *registry.Registry) (map[string]string, []Issue) {
	spec, ok := reg.Spec(node.Type)
	if !ok {
		return map[string]string{}, nil
	}

	_, optional, _ := reg.SlotsFor(node)

	legal := make(map[string]bool, len(spec.RequiredSlots)+len(optional))
	for _, slot := range spec.RequiredSlots {
		legal[slot] = true
	}

	for _, slot := range optional {
		legal[slot] = true
	}

	resolved := make(map[string]string)

	var issues []Issue

	for _, conn := range node.Connections {
		slot := conn.Slot

		switch {
		case slot == "":
			if spec.PrimarySlot == "" {
				issues = append(issues, nodeIssue(CodeUnknownSlot, node,
					fmt.Sprintf("%s nodes have no outgoing slots", node.Type)))

				continue
			}

			slot = spec.PrimarySlot
		case !legal[slot]:
			if node.Type == models.NodeTypeDecision {
				// Labels that match no declared condition fall through
				// to the default branch.
				slot = "default"
			} else {
				issue := nodeIssue(CodeUnknownSlot, node,
					fmt.Sprintf("slot %q is not legal for %s nodes", slot, node.Type))
				issue.Slot = conn.Slot
				issues = append(issues, issue)

				continue
			}
		}

		if _, bound := resolved[slot]; bound {
			issue := nodeIssue(CodeDuplicateSlot, node,
				fmt.Sprintf("duplicate connection for slot %q", slot))
			issue.Slot = slot
			issues = append(issues, issue)

			continue
		}

		resolved[slot] = conn.Target
	}

	return resolved, issues
}
