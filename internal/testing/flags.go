package testing

import (
	"flag"
	"os"
	"runtime"
	"testing"
)

var (
	Integration = flag.Bool("integration", false, "run integration tests")
	VaultImage  = flag.String("vault-image", "hashicorp/vault:1.20", "vault image used by the integration tests")
)

// SkipIfIntegration skips the test if -integration flag is set (for unit tests)
func SkipIfIntegration(t *testing.T) {
	if *Integration {
		t.Skip("Skipping unit test when running integration tests")
	}
}

// SkipIfNotIntegration skips the test if -integration flag is not set (for integration tests)
func SkipIfNotIntegration(t *testing.T) {
	if !*Integration {
		t.Skip("Skipping integration test")
	}
}

// SkipOnNonLinuxInGitHubActions skips container backed tests where GitHub runners have no docker daemon
func SkipOnNonLinuxInGitHubActions(t *testing.T) {
	if runtime.GOOS != "linux" && os.Getenv("GITHUB_ACTIONS") == "true" {
		t.Skip("Skipping test on non-linux runner in GitHub Actions")
	}
}
