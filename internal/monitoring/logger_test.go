package monitoring

import (
	"fmt"
	"testing"
)

func TestSetLoggerCapture(t *testing.T) {
	defer SetLogger(nil)

	var got string
	SetLogger(func(format string, v ...interface{}) {
		got = fmt.Sprintf(format, v...)
	})
	Logf("solved %d load cases", 6)
	if got != "solved 6 load cases" {
		t.Errorf("captured %q", got)
	}
}

func TestSetLoggerNilMutes(t *testing.T) {
	SetLogger(nil)
	// Must not panic.
	Logf("ignored %v", 1)
}
