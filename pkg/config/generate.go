package config

import (
	"strings"

	gotoml "github.com/pelletier/go-toml/v2"
)

// GenerateConfigContent renders a starter user config with every value
// commented out, so dropping it into the config directory changes nothing
// until the user uncomments a line.
func GenerateConfigContent() string {
	return commentOutConfigValues(string(defaultConfig))
}

// MarshalConfig renders a Config back to TOML, used when materializing an
// explicit (uncommented) config file.
func MarshalConfig(cfg *Config) ([]byte, error) {
	return gotoml.Marshal(cfg)
}

// commentOutConfigValues comments out all assignment lines, keeping
// comments, blank lines and section headers untouched.
func commentOutConfigValues(content string) string {
	lines := strings.Split(content, "\n")
	var result []string

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			result = append(result, line)
			continue
		}
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			result = append(result, line)
			continue
		}
		result = append(result, "# "+line)
	}

	return strings.Join(result, "\n")
}
