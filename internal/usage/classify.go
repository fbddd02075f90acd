package usage

import (
	"fmt"
	"strings"
)

// Category buckets a usage-log write failure for telemetry.
type Category string

const (
	CategoryTimeout Category = "timeout"
	CategoryNetwork Category = "network"
	CategoryDBWrite Category = "db_write"
	CategoryUnknown Category = "unknown"
)

var categoryKeywords = []struct {
	category Category
	keywords []string
}{
	{CategoryTimeout, []string{"timeout", "deadline"}},
	{CategoryNetwork, []string{"network", "connection", "refused", "reset", "broken pipe", "no such host"}},
	{CategoryDBWrite, []string{"sqlite", "database", "constraint", "locked", "sql"}},
}

// Classify matches the error's type name and message against a fixed
// keyword taxonomy, in priority order. Pure function, no side effects.
func Classify(err error) Category {
	if err == nil {
		return CategoryUnknown
	}

	text := strings.ToLower(fmt.Sprintf("%T %v", err, err))
	for _, entry := range categoryKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(text, kw) {
				return entry.category
			}
		}
	}
	return CategoryUnknown
}
