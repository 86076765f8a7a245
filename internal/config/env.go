package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

var ErrEnvNotSet = errors.New("environment variable not set")

// LookupEnv returns the value of key or ErrEnvNotSet when it is missing or blank.
func LookupEnv(key string) (string, error) {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("%s: %w", key, ErrEnvNotSet)
	}
	return value, nil
}

func EnvString(key, fallback string) string {
	value, err := LookupEnv(key)
	if err != nil {
		return fallback
	}
	return value
}

// EnvList splits a comma separated variable, dropping blank items.
func EnvList(key string) []string {
	value, err := LookupEnv(key)
	if err != nil {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func EnvBool(key string, fallback bool) bool {
	value, err := LookupEnv(key)
	if err != nil {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "yes", "y", "on":
		return true
	case "no", "n", "off":
		return false
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
