package bedrock

import (
	"fmt"
	"strings"

	"playlist-digest/internal/llm"
)

// Family selects how requests are shaped for a model.
type Family int

const (
	// FamilyChat models take an Anthropic messages body.
	FamilyChat Family = iota
	// FamilyCompletion models take a flat prompt body and are reached
	// through an application inference profile.
	FamilyCompletion
)

func (f Family) String() string {
	if f == FamilyCompletion {
		return "completion"
	}
	return "chat"
}

const (
	ClaudeSonnet = "anthropic.claude-3-5-sonnet-20241022-v2:0"
	ClaudeHaiku  = "anthropic.claude-3-5-haiku-20241022-v1:0"
	NovaLite     = "amazon.nova-lite-v1:0"
)

var modelMap = map[string]string{
	"claude":       ClaudeSonnet,
	"claude-haiku": ClaudeHaiku,
	"nova":         NovaLite,
}

// DefaultPrices is the per-1000-token price table in USD.
var DefaultPrices = map[string]llm.Price{
	ClaudeSonnet: {InputPer1K: 0.003, OutputPer1K: 0.015},
	ClaudeHaiku:  {InputPer1K: 0.0008, OutputPer1K: 0.004},
	NovaLite:     {InputPer1K: 0.00006, OutputPer1K: 0.00024},
}

// Models lists the friendly names served by Bedrock.
func Models() []string {
	return []string{"claude", "claude-haiku", "nova"}
}

// ModelID maps a friendly name to its Bedrock model id. Unknown non-empty
// names are treated as model ids already.
func ModelID(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", llm.ConfigurationError("resolve bedrock model", "model name is empty and has no mapping")
	}
	if id, ok := modelMap[name]; ok {
		return id, nil
	}
	return name, nil
}

// FamilyOf reports the request family of a Bedrock model id.
func FamilyOf(modelID string) Family {
	if strings.Contains(modelID, "amazon.nova") {
		return FamilyCompletion
	}
	return FamilyChat
}

// FoundationModelARN builds the ARN an inference profile copies from.
func FoundationModelARN(region, modelID string) string {
	return fmt.Sprintf("arn:aws:bedrock:%s::foundation-model/%s", region, modelID)
}
