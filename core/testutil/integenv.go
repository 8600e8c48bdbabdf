// Package testutil provides shared helpers for integration tests.
package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

var (
	integEnvOnce sync.Once
	integEnv     *viper.Viper
)

// EnvFile returns ~/.config/youtrack/.env.integ-test.
func EnvFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "youtrack", ".env.integ-test")
}

func loadIntegEnvFile() *viper.Viper {
	integEnvOnce.Do(func() {
		integEnv = viper.New()
		p := EnvFile()
		if p == "" {
			return
		}
		integEnv.SetConfigFile(p)
		integEnv.SetConfigType("env")
		// A missing or unreadable file leaves only the process environment.
		_ = integEnv.ReadInConfig()
	})
	return integEnv
}

// IntegEnv returns the value of key from the environment, falling back to
// ~/.config/youtrack/.env.integ-test if the env var is not set.
func IntegEnv(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return strings.TrimSpace(loadIntegEnvFile().GetString(key))
}
