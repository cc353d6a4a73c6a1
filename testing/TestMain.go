// Package testing prepares the environment shared by every package test.
// Import it for side effects.
package testing

import (
	"os"
	stdtesting "testing"
)

// defaults are applied only when the variable is unset.
var defaults = map[string]string{
	"TASKDESK_TEST_MODE": "1",
	"AUTH_SECRET":        "test-secret-0123456789",
	"LOG_FORMAT":         "text",
}

func applyDefaults() {
	for key, value := range defaults {
		if _, ok := os.LookupEnv(key); !ok {
			_ = os.Setenv(key, value)
		}
	}
}

func init() {
	applyDefaults()
}

func TestMain(m *stdtesting.M) {
	applyDefaults()
	os.Exit(m.Run())
}
