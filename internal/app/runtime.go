package app

import (
	"os"
	"strconv"
	"sync/atomic"
)

const testModeEnv = "TASKDESK_TEST_MODE"

const (
	testModeUnknown int32 = iota
	testModeOff
	testModeOn
)

var testMode atomic.Int32

// InTestMode reports whether binaries should exit before touching Postgres,
// Redis or the network. Any value strconv.ParseBool accepts as true enables it.
func InTestMode() bool {
	if testMode.Load() == testModeUnknown {
		RefreshTestMode()
	}
	return testMode.Load() == testModeOn
}

// RefreshTestMode re-reads TASKDESK_TEST_MODE.
func RefreshTestMode() {
	on, _ := strconv.ParseBool(os.Getenv(testModeEnv))
	if on {
		testMode.Store(testModeOn)
		return
	}
	testMode.Store(testModeOff)
}
