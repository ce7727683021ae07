package registry

import "github.com/voicetree/voicetree/pkg/models"

func intPtr(v int) *int { return &v }

func startConfigSchema() *models.JSONSchema {
	return &models.JSONSchema{
		Type:  "object",
		Title: "Start Configuration",
		Properties: map[string]*models.Property{
			"greeting": {
				Type:        "string",
				Description: "Message spoken when the call is answered",
				MinLength:   intPtr(1),
			},
		},
		Required: []string{"greeting"},
	}
}

func sayConfigSchema() *models.JSONSchema {
	return &models.JSONSchema{
		Type:  "object",
		Title: "Say Configuration",
		Properties: map[string]*models.Property{
			"message": {
				Type:        "string",
				Description: "Message spoken to the caller",
				MinLength:   intPtr(1),
			},
			"interruptible": {
				Type:        "boolean",
				Description: "Whether the caller may barge in",
				Default:     false,
			},
		},
		Required: []string{"message"},
	}
}

func listenConfigSchema() *models.JSONSchema {
	return &models.JSONSchema{
		Type:  "object",
		Title: "Listen Configuration",
		Properties: map[string]*models.Property{
			"timeout_seconds": {
				Type:        "integer",
				Description: "Seconds to wait for caller speech",
				Minimum:     intPtr(5),
				Maximum:     intPtr(60),
			},
			"hints": {
				Type:        "string",
				Description: "Speech recognition hints",
			},
		},
		Required: []string{"timeout_seconds"},
	}
}

func decisionConfigSchema() *models.JSONSchema {
	return &models.JSONSchema{
		Type:  "object",
		Title: "Decision Configuration",
		Properties: map[string]*models.Property{
			"conditions": {
				Type:        "array",
				Description: "Branch conditions; each defines an outgoing slot named by its id",
				MinItems:    intPtr(1),
				Items: &models.Property{
					Type: "object",
					Properties: map[string]*models.Property{
						"id":    {Type: "string", MinLength: intPtr(1)},
						"name":  {Type: "string", MinLength: intPtr(1)},
						"value": {Type: "string", MinLength: intPtr(1)},
					},
					Required: []string{"id", "name", "value"},
				},
			},
		},
		Required: []string{"conditions"},
	}
}

func actionConfigSchema() *models.JSONSchema {
	return &models.JSONSchema{
		Type:  "object",
		Title: "Action Configuration",
		Properties: map[string]*models.Property{
			"action_type": {
				Type:        "string",
				Description: "Kind of side effect to perform",
				Enum:        []any{"api_call", "set_variable", "tag_call", "send_sms"},
			},
			"url": {
				Type:        "string",
				Description: "Absolute URL, required for api_call actions",
				Format:      "uri",
			},
			"payload": {
				Type:        "object",
				Description: "Request payload for api_call actions",
			},
		},
		Required: []string{"action_type"},
	}
}

func transferConfigSchema() *models.JSONSchema {
	return &models.JSONSchema{
		Type:  "object",
		Title: "Transfer Configuration",
		Properties: map[string]*models.Property{
			"destination": {
				Type:        "string",
				Description: "Phone number or SIP address to transfer to",
				MinLength:   intPtr(1),
			},
			"transfer_type": {
				Type:        "string",
				Description: "How the transfer is performed",
				Enum:        []any{"warm", "cold", "conference"},
			},
			"announcement": {
				Type:        "string",
				Description: "Message spoken before transferring",
			},
		},
		Required: []string{"destination", "transfer_type"},
	}
}

func collectInfoConfigSchema() *models.JSONSchema {
	return &models.JSONSchema{
		Type:  "object",
		Title: "Collect Information Configuration",
		Properties: map[string]*models.Property{
			"fields": {
				Type:        "array",
				Description: "Fields to gather from the caller",
				MinItems:    intPtr(1),
				Items: &models.Property{
					Type: "object",
					Properties: map[string]*models.Property{
						"name":     {Type: "string", MinLength: intPtr(1)},
						"prompt":   {Type: "string", MinLength: intPtr(1)},
						"required": {Type: "boolean", Default: false},
					},
					Required: []string{"name", "prompt"},
				},
			},
		},
		Required: []string{"fields"},
	}
}

func webhookConfigSchema() *models.JSONSchema {
	return &models.JSONSchema{
		Type:  "object",
		Title: "Webhook Configuration",
		Properties: map[string]*models.Property{
			"url": {
				Type:        "string",
				Description: "Absolute URL to notify",
				Format:      "uri",
			},
			"method": {
				Type:        "string",
				Description: "HTTP method",
				Enum:        []any{"GET", "POST", "PUT", "PATCH"},
				Default:     "POST",
			},
			"headers": {
				Type:        "object",
				Description: "Additional request headers",
			},
		},
		Required: []string{"url"},
	}
}

func endConfigSchema() *models.JSONSchema {
	return &models.JSONSchema{
		Type:  "object",
		Title: "End Configuration",
		Properties: map[string]*models.Property{
			"farewell": {
				Type:        "string",
				Description: "Message spoken before hanging up",
			},
		},
	}
}
