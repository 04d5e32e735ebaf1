package testing

import (
	"os"
	"strings"
	"testing"
)

const settingsEnvPrefix = "SIGNTOOL_"

// IsolateSettings moves the test into an empty working directory and blanks every
// SIGNTOOL_ variable, so neither a local config file nor the shell leaks into
// loaded settings.
func IsolateSettings(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	for _, entry := range os.Environ() {
		key, _, _ := strings.Cut(entry, "=")
		if strings.HasPrefix(key, settingsEnvPrefix) {
			t.Setenv(key, "")
		}
	}
}
