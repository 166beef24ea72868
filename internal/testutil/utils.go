package testutil

import (
	"log"
	"os"
	"testing"
)

// TestLogger returns the logger handed to chat components under test, tagged
// with the test name so interleaved output stays attributable.
func TestLogger(t *testing.T) *log.Logger {
	logger := log.New(os.Stdout, "[school-chat/"+t.Name()+"] ", log.LstdFlags)
	t.Cleanup(func() {
		logger.SetOutput(os.Stderr)
	})
	return logger
}
