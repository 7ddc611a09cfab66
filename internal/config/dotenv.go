package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads a .env file into the environment without overriding
// variables that are already set (env takes precedence).
// An empty path searches for .env from the working directory upwards.
func LoadDotEnv(path string) error {
	if path != "" {
		return godotenv.Load(path)
	}

	dir, err := os.Getwd()
	if err != nil {
		return err
	}
	for {
		candidate := filepath.Join(dir, ".env")
		if _, err := os.Stat(candidate); err == nil {
			return godotenv.Load(candidate)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return os.ErrNotExist
		}
		dir = parent
	}
}
