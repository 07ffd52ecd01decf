package scan

import (
	"testing"

	"go.uber.org/goleak"
)

// Every enumeration, cancelled or complete, must leave no worker behind.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
