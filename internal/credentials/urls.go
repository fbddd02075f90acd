package credentials

import (
	"strings"

	"github.com/aetherblog/ai-service/internal/store/model"
)

// NormalizeAPIBase rewrites a provider base URL into the form the upstream
// client expects. OpenAI-style endpoints want a /v1 path suffix, Anthropic
// wants the bare host. An explicit api_path_mode in the provider config
// overrides the per-api_type default. Empty input stays empty.
//
// The function is idempotent for any (apiType, config) pair.
func NormalizeAPIBase(baseURL, apiType string, config model.JSONMap) string {
	if baseURL == "" {
		return ""
	}

	url := strings.TrimRight(baseURL, "/")

	mode, _ := config.String("api_path_mode")
	if mode == "" {
		switch apiType {
		case model.APITypeOpenAICompat:
			mode = "append_v1"
		case model.APITypeAnthropic:
			mode = "strip_v1"
		default:
			return url
		}
	}

	switch mode {
	case "append_v1":
		switch {
		case strings.HasSuffix(url, "/v1"):
			// already normalized
		case strings.HasSuffix(url, "/v"):
			url += "1"
		default:
			url += "/v1"
		}
	case "strip_v1":
		url = strings.TrimSuffix(url, "/v1")
	}

	return url
}
