// Package envutil reads process environment variables with explicit defaults.
package envutil

import (
	"fmt"
	"os"
)

// SafeReadEnv returns the variable's value, or nil when it is unset.
func SafeReadEnv(name string) *string {
	v, ok := os.LookupEnv(name)
	if !ok {
		return nil
	}
	return &v
}

// ReadEnv returns the variable's value, falling back to def.
// A nil def makes an unset variable an error.
func ReadEnv(name string, def *string) (string, error) {
	if v := SafeReadEnv(name); v != nil {
		return *v, nil
	}
	if def == nil {
		return "", fmt.Errorf("unknown environment variable: %q", name)
	}
	return *def, nil
}

// ReadEnvOr is ReadEnv with a mandatory default.
func ReadEnvOr(name, def string) string {
	v, _ := ReadEnv(name, &def)
	return v
}
