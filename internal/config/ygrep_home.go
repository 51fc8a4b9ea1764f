package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetHome returns the ygrep home directory
// Priority order:
//  1. YGREP_HOME environment variable (if set)
//  2. ~/.ygrep
//
// The directory is not created; callers that write to it create it on demand.
func GetHome() (string, error) {
	if home := os.Getenv("YGREP_HOME"); home != "" {
		return home, nil
	}

	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}

	return filepath.Join(userHome, ".ygrep"), nil
}
