package app

import (
	"os"
	"sync"
)

// TestModeEnv, when set to "1", makes the binaries exit before touching
// PostgreSQL or Redis.
const TestModeEnv = "JOKES_TEST_MODE"

var inTestMode = sync.OnceValue(func() bool {
	return os.Getenv(TestModeEnv) == "1"
})

// InTestMode reports whether runtime side effects should be skipped.
func InTestMode() bool {
	return inTestMode()
}
