package llm

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/aetherblog/ai-service/internal/platform/logger"
)

var placeholderRe = regexp.MustCompile(`\{[a-zA-Z_][a-zA-Z0-9_]*\}`)

// RenderPrompt substitutes {name} placeholders from vars. When a
// placeholder stays unresolved the request must still go out, so the
// render degrades to the raw template plus a dump of the variables. That
// path is logged, not swallowed.
func RenderPrompt(template string, vars map[string]interface{}) string {
	if template == "" {
		return fmt.Sprintf("%v", flatten(vars))
	}

	rendered := template
	for name, value := range vars {
		rendered = strings.ReplaceAll(rendered, "{"+name+"}", fmt.Sprintf("%v", value))
	}

	if leftover := placeholderRe.FindString(rendered); leftover != "" {
		logger.Warn("prompt render left unresolved placeholders, degrading",
			zap.String("placeholder", leftover))
		return fmt.Sprintf("%s\n\nContext: %v", template, flatten(vars))
	}

	return rendered
}

// flatten gives the degraded render a stable, readable variable dump.
func flatten(vars map[string]interface{}) string {
	if len(vars) == 0 {
		return ""
	}
	parts := make([]string, 0, len(vars))
	for k, v := range vars {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	// map order is random; sort for determinism
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}
