package tools

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

func GetenvDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// LoadEnv loads variables from an env file without overriding ones already
// set. A missing file is not an error.
func LoadEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
