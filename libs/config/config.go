// Package config reads service settings from the environment. The booking,
// notification and gateway services take all configuration this way; the
// compose files under deploy/ supply the values.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// String returns the value of key, or fallback when the variable is unset or
// empty.
func String(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

// RequiredString returns the value of key and errors when it is missing, for
// settings that have no sensible default such as DATABASE_URL or JWT_SECRET.
func RequiredString(key string) (string, error) {
	v := os.Getenv(key)
	if v == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}

// Port reads a TCP port from key, validating the range.
func Port(key, fallback string) (string, error) {
	v := String(key, fallback)
	p, err := strconv.Atoi(v)
	if err != nil || p < 1 || p > 65535 {
		return "", fmt.Errorf("%s must be a valid TCP port (got %q)", key, v)
	}
	return v, nil
}
