package env

import "os"

// Lookup reads an environment variable, falling back to def when it is
// unset or blank. This sits underneath envconfig for the few knobs that
// must be readable before configuration is loaded.
func Lookup(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}
