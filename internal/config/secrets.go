package config

import (
	"fmt"
	"os"
	"strings"
)

// ResolveSecret reads a secret using the *_FILE convention: envName+"_FILE"
// names a file holding the value and takes precedence over envName itself.
// It returns "" when neither is set.
func ResolveSecret(envName string) (string, error) {
	fileEnv := envName + "_FILE"
	if filePath := os.Getenv(fileEnv); filePath != "" {
		content, err := os.ReadFile(filePath)
		if err != nil {
			return "", fmt.Errorf("failed to read secret from %s=%s: %w", fileEnv, filePath, err)
		}
		return strings.TrimSpace(string(content)), nil
	}

	return os.Getenv(envName), nil
}
