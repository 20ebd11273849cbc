package runtime

import "os"

// Getenv reads key with a fallback. It exists alongside config.String so this
// package stays free of a config dependency for bootstrap concerns like the
// log level.
func Getenv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}
