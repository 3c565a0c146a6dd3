// Package config loads msival.yaml, the optional defaults file for
// msival validate.
package config

import (
	"os"
	"regexp"
	"strings"
)

// envVarPattern matches $${...}, ${VAR} and ${VAR:-default}.
var envVarPattern = regexp.MustCompile(`\$?\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// ExpandEnv replaces ${VAR} with the variable's value and ${VAR:-default}
// with the value, or default when the variable is unset or empty. An unset
// variable without a default expands to the empty string. $${VAR} is an
// escape and yields the literal ${VAR}.
func ExpandEnv(input string) string {
	if !strings.Contains(input, "${") {
		return input
	}
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		if strings.HasPrefix(match, "$$") {
			return match[1:]
		}
		groups := envVarPattern.FindStringSubmatch(match)
		if value, ok := os.LookupEnv(groups[1]); ok && value != "" {
			return value
		}
		return groups[2]
	})
}
