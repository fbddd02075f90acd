package cli

import (
	"fmt"
	"os"
)

const (
	Reset  = "\033[0m"
	Bold   = "\033[1m"
	Dim    = "\033[2m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Blue   = "\033[34m"
	Purple = "\033[35m"
	Cyan   = "\033[36m"
)

// disableColor honors the NO_COLOR convention (https://no-color.org/).
var disableColor = checkNoColor()

func checkNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// Enabled reports whether output should be colorized.
func Enabled() bool {
	return !disableColor
}

// Style wraps text in a color code.
func Style(text string, colorCode string) string {
	if disableColor {
		return text
	}
	return fmt.Sprintf("%s%s%s", colorCode, text, Reset)
}

// Ok, Warn and Fail are the three seed/benchmark status prefixes.
func Ok(text string) string   { return Style(text, Green) }
func Warn(text string) string { return Style(text, Yellow) }
func Fail(text string) string { return Style(text, Red) }
