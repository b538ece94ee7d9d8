package config

import (
	"fmt"
	"slices"
	"strings"
)

var validOutputFormats = []string{"json", "yaml", "table"}

func ValidateOutputFormat(format string) error {
	if slices.Contains(validOutputFormats, format) {
		return nil
	}
	return fmt.Errorf("invalid output format: %s (must be one of: %s)", format, strings.Join(validOutputFormats, ", "))
}
