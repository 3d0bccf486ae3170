// Package testutil provides shared environment helpers for E2E tests that
// run the tdstream binary against a live broker account. It depends only
// on stdlib so that E2E tests (which cannot import internal/) can use it.
package testutil

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadDotEnv reads KEY=VALUE pairs from a .env file at the given path.
// Missing file is not an error (CI sets env vars directly).
// Existing env vars take precedence over .env values.
func LoadDotEnv(envPath string) {
	f, err := os.Open(envPath)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), "\"'")

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}

// ValidateAllowlist crashes the process unless the app name in appEnvVar
// is listed in TDSTREAM_ALLOWED_TEST_APPS. Live tests hit a real brokerage
// account, so they refuse to run against one nobody opted in.
func ValidateAllowlist(appEnvVar string) string {
	allowlist := os.Getenv("TDSTREAM_ALLOWED_TEST_APPS")
	if allowlist == "" {
		fmt.Fprintln(os.Stderr, "FATAL: TDSTREAM_ALLOWED_TEST_APPS not set")
		fmt.Fprintln(os.Stderr, "Example: TDSTREAM_ALLOWED_TEST_APPS=tdstream-e2e")
		os.Exit(1)
	}

	app := os.Getenv(appEnvVar)
	if app == "" {
		fmt.Fprintf(os.Stderr, "FATAL: %s not set\n", appEnvVar)
		os.Exit(1)
	}

	for _, a := range strings.Split(allowlist, ",") {
		if strings.TrimSpace(a) == app {
			return app
		}
	}

	fmt.Fprintf(os.Stderr, "FATAL: %s=%q is not in TDSTREAM_ALLOWED_TEST_APPS=%q\n",
		appEnvVar, app, allowlist)
	os.Exit(1)

	return ""
}

// FindModuleRoot walks up from the current directory to find go.mod.
// Returns the fallback if the root is not found.
func FindModuleRoot(fallback string) string {
	dir, err := os.Getwd()
	if err != nil {
		return fallback
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return fallback
		}

		dir = parent
	}
}

// TestTokenPath returns .testdata/td_credentials.json under the module
// root. Crashes if it does not exist: run "tdstream login --token-path"
// against that path once to create it.
func TestTokenPath(moduleRoot string) string {
	path := filepath.Join(moduleRoot, ".testdata", "td_credentials.json")

	if _, err := os.Stat(path); err != nil {
		fmt.Fprintln(os.Stderr, "FATAL: test token not found at "+path)
		fmt.Fprintln(os.Stderr, "Run: tdstream login --token-path "+path)
		os.Exit(1)
	}

	return path
}

// CopyFile copies a file from src to dst with the given permissions.
// Crashes on failure because tests cannot proceed without the file.
func CopyFile(src, dst string, perm os.FileMode) {
	data, err := os.ReadFile(src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: cannot read %s: %v\n", src, err)
		os.Exit(1)
	}

	if writeErr := os.WriteFile(dst, data, perm); writeErr != nil {
		fmt.Fprintf(os.Stderr, "FATAL: writing %s: %v\n", dst, writeErr)
		os.Exit(1)
	}
}
