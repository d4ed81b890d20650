package config

import (
	"os"

	"github.com/joho/godotenv"
)

// LoadDotEnv reads .env.local and .env, in that order, and reports
// which files were found. godotenv never overwrites a variable that is
// already set, so real environment values beat both files and
// .env.local shadows .env.
func LoadDotEnv() []string {
	var loaded []string
	for _, name := range []string{".env.local", ".env"} {
		if _, err := os.Stat(name); err == nil {
			loaded = append(loaded, name)
		}
	}
	if len(loaded) > 0 {
		_ = godotenv.Load(loaded...)
	}
	return loaded
}
