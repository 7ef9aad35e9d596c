package config

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"
)

var envOnce sync.Once

// LoadEnv loads a .env file from the working directory or its parent, once
// per process. It returns the file that was loaded, or "" when none exists.
// Variables already present in the environment are not overridden.
func LoadEnv() (string, error) {
	var (
		loaded  string
		loadErr error
	)
	envOnce.Do(func() {
		for _, candidate := range []string{".env", filepath.Join("..", ".env")} {
			if _, err := os.Stat(candidate); err != nil {
				continue
			}
			if err := godotenv.Load(candidate); err != nil {
				loadErr = err
				return
			}
			loaded = candidate
			return
		}
	})
	return loaded, loadErr
}

// GetEnv retrieves an environment variable with a fallback value if not set
func GetEnv(key, fallback string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	return value
}
