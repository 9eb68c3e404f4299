package config_test

import (
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/louisbranch/combatsim/internal/platform/config"
)

// TestExitCodef_ExitsWithStatus verifies that ExitCodef writes to stderr and
// exits with the requested status. It uses the subprocess test pattern because
// os.Exit cannot be intercepted in-process.
func TestExitCodef_ExitsWithStatus(t *testing.T) {
	if os.Getenv("TEST_EXITCODEF_SUBPROCESS") == "1" {
		config.ExitCodef(2, "usage: %s", "bad flag")
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=^TestExitCodef_ExitsWithStatus$")
	cmd.Env = append(os.Environ(), "TEST_EXITCODEF_SUBPROCESS=1")

	out, err := cmd.CombinedOutput()

	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		t.Fatalf("expected *exec.ExitError, got %T: %v", err, err)
	}
	if exitErr.ExitCode() != 2 {
		t.Fatalf("expected exit code 2, got %d", exitErr.ExitCode())
	}
	if !strings.Contains(string(out), "usage: bad flag") {
		t.Fatalf("expected stderr to contain %q, got %q", "usage: bad flag", string(out))
	}
}
