// Package testutil provides testing utilities: skip helpers for optional
// dependencies and credentials, and temporary directory management.
package testutil

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/asteroid-belt/testkit/internal/config"
)

// DummyUser is the hub user name used by tests that push to the hub.
const DummyUser = "__DUMMY_OPTIMUM_USER__"

// RequireHFToken skips the test unless HF_AUTH_TOKEN is set, and returns the token.
func RequireHFToken(t testing.TB) string {
	t.Helper()
	token := loadConfig().Credentials.HFToken
	if token == "" {
		t.Skip("test requires hf token as `HF_AUTH_TOKEN` environment variable")
		return ""
	}
	return token
}

// RequireSigoptTokenAndProject skips the test unless both SIGOPT_API_TOKEN and
// SIGOPT_PROJECT are set.
func RequireSigoptTokenAndProject(t testing.TB) {
	t.Helper()
	creds := loadConfig().Credentials
	if creds.SigoptToken == "" || creds.SigoptProject == "" {
		t.Skip("test requires an environment variable `SIGOPT_API_TOKEN` and `SIGOPT_PROJECT`")
	}
}

// RequireEnv skips the test unless every key is set to a non-empty value.
func RequireEnv(t testing.TB, keys ...string) {
	t.Helper()
	var missing []string
	for _, key := range keys {
		if os.Getenv(key) == "" {
			missing = append(missing, "`"+key+"`")
		}
	}
	if len(missing) > 0 {
		t.Skip(fmt.Sprintf("test requires environment variable %s", strings.Join(missing, ", ")))
	}
}

// SkipUnlessEnabled skips the test unless key holds a true boolean ("1", "true", ...).
// Use this for slow suites or tests that need paid API access.
//
// Run them with: KEY=1 go test ./...
func SkipUnlessEnabled(t testing.TB, key string) {
	t.Helper()
	if enabled, _ := strconv.ParseBool(os.Getenv(key)); !enabled {
		t.Skip(fmt.Sprintf("Skipping test (set %s=1 to run)", key))
	}
}

// SkipIfShort skips the test when go test runs with -short.
func SkipIfShort(t testing.TB) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping test in short mode")
	}
}

func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		return config.DefaultConfig()
	}
	return cfg
}
