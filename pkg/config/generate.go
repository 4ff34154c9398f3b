package config

import (
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/usecellar/cellar/pkg/errors"
)

// GenerateConfigContent generates a starter configuration file with all
// values commented out, so the defaults stay authoritative until the
// user opts in.
func GenerateConfigContent() string {
	return commentOutConfigValues(string(defaultConfig))
}

// Dump renders the fully resolved configuration as TOML, for
// `cellar genconfig --current` inspection.
func Dump(cfg *Config) (string, error) {
	out, err := toml.Marshal(cfg)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrInternal, "failed to marshal configuration")
	}
	return string(out), nil
}

// commentOutConfigValues comments out all non-comment, non-blank lines
// that contain configuration values (assignments)
func commentOutConfigValues(content string) string {
	lines := strings.Split(content, "\n")
	var result []string

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		// Keep blank lines as-is
		if trimmed == "" {
			result = append(result, line)
			continue
		}

		// Keep lines that are already comments
		if strings.HasPrefix(trimmed, "#") {
			result = append(result, line)
			continue
		}

		// Keep section headers (e.g., [install], [desktop]) as-is
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			result = append(result, line)
			continue
		}

		// Comment out configuration value lines
		result = append(result, "# "+line)
	}

	return strings.Join(result, "\n")
}
