package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownNodeType marks a config payload whose node type tag is not one of
// the nine known types. Decoding keeps the node so the validator can report
// the unknown type as a finding instead of the transport rejecting the whole
// document.
var ErrUnknownNodeType = errors.New("unknown node type")

// NodeType is one of the nine fixed node type tags.
type NodeType string

const (
	NodeTypeStart       NodeType = "start"
	NodeTypeSay         NodeType = "say"
	NodeTypeListen      NodeType = "listen"
	NodeTypeDecision    NodeType = "decision"
	NodeTypeAction      NodeType = "action"
	NodeTypeTransfer    NodeType = "transfer"
	NodeTypeCollectInfo NodeType = "collect_info"
	NodeTypeWebhook     NodeType = "webhook"
	NodeTypeEnd         NodeType = "end"
)

// NodeTypes lists every known node type in catalog order.
func NodeTypes() []NodeType {
	return []NodeType{
		NodeTypeStart,
		NodeTypeSay,
		NodeTypeListen,
		NodeTypeDecision,
		NodeTypeAction,
		NodeTypeTransfer,
		NodeTypeCollectInfo,
		NodeTypeWebhook,
		NodeTypeEnd,
	}
}

// ActionTypeAPICall marks action nodes that call out over HTTP; their config
// must carry an absolute URL.
const ActionTypeAPICall = "api_call"

// NodeConfig is the tagged union of per-type configuration shapes. Each
// variant reports its tag so holders can switch exhaustively without string
// comparison against the node's type field.
type NodeConfig interface {
	NodeType() NodeType
}

// StartConfig configures the single entry node of a flow.
type StartConfig struct {
	Greeting string `json:"greeting"`
}

func (StartConfig) NodeType() NodeType { return NodeTypeStart }

// SayConfig speaks a message to the caller.
type SayConfig struct {
	Message       string `json:"message"`
	Interruptible bool   `json:"interruptible,omitempty"`
}

func (SayConfig) NodeType() NodeType { return NodeTypeSay }

// ListenConfig waits for caller speech.
type ListenConfig struct {
	TimeoutSeconds int    `json:"timeout_seconds"`
	Hints          string `json:"hints,omitempty"`
}

func (ListenConfig) NodeType() NodeType { return NodeTypeListen }

// DecisionCondition is one branch of a decision node. Its ID doubles as the
// name of the node's outgoing slot for that branch.
type DecisionCondition struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

// DecisionConfig branches on declared conditions, falling through to the
// default slot when none matches.
type DecisionConfig struct {
	Conditions []DecisionCondition `json:"conditions"`
}

func (DecisionConfig) NodeType() NodeType { return NodeTypeDecision }

// ActionConfig performs a side effect such as an API call.
type ActionConfig struct {
	ActionType string         `json:"action_type"`
	URL        string         `json:"url,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
}

func (ActionConfig) NodeType() NodeType { return NodeTypeAction }

// TransferConfig hands the call to a human or an external destination.
type TransferConfig struct {
	Destination  string `json:"destination"`
	TransferType string `json:"transfer_type"`
	Announcement string `json:"announcement,omitempty"`
}

func (TransferConfig) NodeType() NodeType { return NodeTypeTransfer }

// CollectField is one piece of information a collect_info node gathers.
type CollectField struct {
	Name     string `json:"name"`
	Prompt   string `json:"prompt"`
	Required bool   `json:"required,omitempty"`
}

// CollectInfoConfig gathers a set of fields from the caller.
type CollectInfoConfig struct {
	Fields []CollectField `json:"fields"`
}

func (CollectInfoConfig) NodeType() NodeType { return NodeTypeCollectInfo }

// WebhookConfig notifies an external endpoint mid-call.
type WebhookConfig struct {
	URL     string            `json:"url"`
	Method  string            `json:"method,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

func (WebhookConfig) NodeType() NodeType { return NodeTypeWebhook }

// EndConfig terminates the call.
type EndConfig struct {
	Farewell string `json:"farewell,omitempty"`
}

func (EndConfig) NodeType() NodeType { return NodeTypeEnd }

// DecodeNodeConfig decodes a raw config payload into the concrete struct for
// the given node type. A nil or empty payload yields the type's zero config,
// leaving constraint reporting to the validator instead of the decoder.
func DecodeNodeConfig(t NodeType, raw json.RawMessage) (NodeConfig, error) {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}

	decode := func(target NodeConfig) (NodeConfig, error) {
		if err := json.Unmarshal(raw, target); err != nil {
			return nil, fmt.Errorf("invalid %s config: %w", t, err)
		}

		return target, nil
	}

	switch t {
	case NodeTypeStart:
		cfg, err := decode(&StartConfig{})
		if err != nil {
			return nil, err
		}

		return *cfg.(*StartConfig), nil
	case NodeTypeSay:
		cfg, err := decode(&SayConfig{})
		if err != nil {
			return nil, err
		}

		return *cfg.(*SayConfig), nil
	case NodeTypeListen:
		cfg, err := decode(&ListenConfig{})
		if err != nil {
			return nil, err
		}

		return *cfg.(*ListenConfig), nil
	case NodeTypeDecision:
		cfg, err := decode(&DecisionConfig{})
		if err != nil {
			return nil, err
		}

		return *cfg.(*DecisionConfig), nil
	case NodeTypeAction:
		cfg, err := decode(&ActionConfig{})
		if err != nil {
			return nil, err
		}

		return *cfg.(*ActionConfig), nil
	case NodeTypeTransfer:
		cfg, err := decode(&TransferConfig{})
		if err != nil {
			return nil, err
		}

		return *cfg.(*TransferConfig), nil
	case NodeTypeCollectInfo:
		cfg, err := decode(&CollectInfoConfig{})
		if err != nil {
			return nil, err
		}

		return *cfg.(*CollectInfoConfig), nil
	case NodeTypeWebhook:
		cfg, err := decode(&WebhookConfig{})
		if err != nil {
			return nil, err
		}

		return *cfg.(*WebhookConfig), nil
	case NodeTypeEnd:
		cfg, err := decode(&EndConfig{})
		if err != nil {
			return nil, err
		}

		return *cfg.(*EndConfig), nil
	}

	return nil, fmt.Errorf("%w %q", ErrUnknownNodeType, t)
}
