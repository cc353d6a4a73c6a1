package app

import (
	"testing"

	_ "github.com/taskdesk/taskdesk/testing"
)

func TestInTestMode(t *testing.T) {
	RefreshTestMode()
	if !InTestMode() {
		t.Fatalf("expected test mode to be detected")
	}

	t.Cleanup(RefreshTestMode)
	t.Setenv(testModeEnv, "0")
	RefreshTestMode()
	if InTestMode() {
		t.Fatalf("expected test mode off")
	}
}
