package validation

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/voicetree/voicetree/pkg/models"
)

// documentSchema is the canonical flow document schema. It guards the wire
// shape of persisted graphs independently of the per-type checks so that a
// structurally broken document is rejected before any semantic pass.
const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "Flow Document",
  "type": "object",
  "required": ["schema_version", "nodes"],
  "properties": {
    "schema_version": {
      "type": "string",
      "enum": ["1.0"]
    },
    "metadata": {
      "type": "object",
      "properties": {
        "name": {"type": "string"},
        "version_label": {"type": "string"},
        "last_modified": {"type": "string"}
      }
    },
    "config": {
      "type": "object",
      "properties": {
        "system_prompt": {"type": "string"},
        "locale": {"type": "string"},
        "voice": {
          "type": "object",
          "properties": {
            "provider": {"type": "string"},
            "voice_id": {"type": "string"},
            "speed": {"type": "number"}
          }
        },
        "max_turns": {"type": "integer", "minimum": 0},
        "max_duration_seconds": {"type": "integer", "minimum": 0},
        "error_policy": {"type": "string"}
      }
    },
    "variables": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "type": {"type": "string", "enum": ["string", "number", "boolean"]},
          "description": {"type": "string"},
          "default": {}
        }
      }
    },
    "nodes": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "type"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "type": {"type": "string", "minLength": 1},
          "label": {"type": "string"},
          "description": {"type": "string"},
          "position": {
            "type": "object",
            "properties": {
              "x": {"type": "number"},
              "y": {"type": "number"}
            }
          },
          "config": {"type": "object"},
          "connections": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["target"],
              "properties": {
                "slot": {"type": "string"},
                "target": {"type": "string", "minLength": 1}
              }
            }
          }
        }
      }
    }
  }
}`

var documentSchemaLoader = gojsonschema.NewStringLoader(documentSchema)

// validateDocument checks the graph's serialized form against the canonical
// document schema. The graph is marshaled rather than trusted as received so
// that the same check covers both API input and stored documents.
func validateDocument(graph *models.FlowGraph) []Issue {
	encoded, err := json.Marshal(graph)
	if err != nil {
		return []Issue{{
			Code:    CodeSchemaViolation,
			Message: fmt.Sprintf("flow document could not be serialized: %s", err),
		}}
	}

	result, err := gojsonschema.Validate(documentSchemaLoader, gojsonschema.NewBytesLoader(encoded))
	if err != nil {
		return []Issue{{
			Code:    CodeSchemaViolation,
			Message: fmt.Sprintf("flow document schema check failed: %s", err),
		}}
	}

	if result.Valid() {
		return nil
	}

	issues := make([]Issue, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		issues = append(issues, Issue{
			Code:    CodeSchemaViolation,
			Field:   desc.Field(),
			Message: desc.Description(),
		})
	}

	return issues
}
