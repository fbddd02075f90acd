package modeldata

import "strings"

// Info is static metadata for a well-known model: display name, context
// window and per-1k token pricing. Remote listings carry none of this, so
// synced rows are enriched from here when the id matches.
type Info struct {
	Name            string
	ContextWindow   int
	InputCostPer1k  float64
	OutputCostPer1k float64
}

var known = map[string]Info{
	// OpenAI
	"gpt-4o":                 {Name: "GPT-4o", ContextWindow: 128000, InputCostPer1k: 0.0025, OutputCostPer1k: 0.01},
	"gpt-4o-mini":            {Name: "GPT-4o mini", ContextWindow: 128000, InputCostPer1k: 0.00015, OutputCostPer1k: 0.0006},
	"gpt-4-turbo":            {Name: "GPT-4 Turbo", ContextWindow: 128000, InputCostPer1k: 0.01, OutputCostPer1k: 0.03},
	"gpt-3.5-turbo":          {Name: "GPT-3.5 Turbo", ContextWindow: 16385, InputCostPer1k: 0.0005, OutputCostPer1k: 0.0015},
	"o3-mini":                {Name: "o3 mini", ContextWindow: 200000, InputCostPer1k: 0.0011, OutputCostPer1k: 0.0044},
	"text-embedding-3-small": {Name: "Embedding v3 small", ContextWindow: 8191, InputCostPer1k: 0.00002},
	"text-embedding-3-large": {Name: "Embedding v3 large", ContextWindow: 8191, InputCostPer1k: 0.00013},

	// Anthropic
	"claude-sonnet-4-5":  {Name: "Claude Sonnet 4.5", ContextWindow: 200000, InputCostPer1k: 0.003, OutputCostPer1k: 0.015},
	"claude-opus-4-1":    {Name: "Claude Opus 4.1", ContextWindow: 200000, InputCostPer1k: 0.015, OutputCostPer1k: 0.075},
	"claude-3-5-sonnet":  {Name: "Claude 3.5 Sonnet", ContextWindow: 200000, InputCostPer1k: 0.003, OutputCostPer1k: 0.015},
	"claude-3-5-haiku":   {Name: "Claude 3.5 Haiku", ContextWindow: 200000, InputCostPer1k: 0.0008, OutputCostPer1k: 0.004},
	"claude-3-opus":      {Name: "Claude 3 Opus", ContextWindow: 200000, InputCostPer1k: 0.015, OutputCostPer1k: 0.075},

	// Google
	"gemini-2.0-flash": {Name: "Gemini 2.0 Flash", ContextWindow: 1048576, InputCostPer1k: 0.0001, OutputCostPer1k: 0.0004},
	"gemini-1.5-pro":   {Name: "Gemini 1.5 Pro", ContextWindow: 2097152, InputCostPer1k: 0.00125, OutputCostPer1k: 0.005},
}

// Lookup finds metadata for a model id. Dated variants resolve to their
// base entry, so "claude-3-5-sonnet-20241022" matches "claude-3-5-sonnet".
func Lookup(modelID string) (Info, bool) {
	if info, ok := known[modelID]; ok {
		return info, true
	}

	id := modelID
	for {
		idx := strings.LastIndex(id, "-")
		if idx <= 0 {
			return Info{}, false
		}
		id = id[:idx]
		if info, ok := known[id]; ok {
			return info, true
		}
	}
}
