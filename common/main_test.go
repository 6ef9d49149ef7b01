package common

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain verifies that every receiveLoop goroutine spawned by Attach is
// gone by the time a test finishes, catching a Connection.Close that fails
// to actually tear down its reader.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
