package llm

import (
	"strings"

	"github.com/aetherblog/ai-service/internal/store/model"
)

// ApplyPrefix rewrites a model identifier with the protocol prefix the
// dispatch layer routes on. OpenAI-compatible and custom providers get
// "openai/", azure gets "azure/", anthropic and google stay bare. The
// rewrite is idempotent.
func ApplyPrefix(modelID, apiType string) string {
	switch apiType {
	case model.APITypeOpenAICompat, model.APITypeCustom:
		if strings.HasPrefix(modelID, "openai/") {
			return modelID
		}
		return "openai/" + modelID
	case model.APITypeAzure:
		if strings.HasPrefix(modelID, "azure/") {
			return modelID
		}
		return "azure/" + modelID
	default:
		return modelID
	}
}

// StripPrefix undoes ApplyPrefix before the identifier goes on the wire.
func StripPrefix(modelID string) string {
	for _, prefix := range []string{"openai/", "azure/"} {
		if strings.HasPrefix(modelID, prefix) {
			return modelID[len(prefix):]
		}
	}
	return modelID
}
