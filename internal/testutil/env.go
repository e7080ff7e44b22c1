// Package testutil provides utilities for testing zedsetup in isolation.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// Env describes the isolated directories created by SetupTestEnv.
type Env struct {
	Home      string
	ConfigDir string
	WorkDir   string
}

// overrides lists every ZEDSETUP_* variable config.Load reads.
var overrides = []string{
	"ZEDSETUP_PATH",
	"ZEDSETUP_FORCE",
	"ZEDSETUP_PYTHON",
	"ZEDSETUP_BASE_URL",
	"ZEDSETUP_DEPS_URL",
	"ZEDSETUP_SDK_ROOT",
	"ZEDSETUP_VERBOSE",
	"ZEDSETUP_TIMEOUT",
}

// SetupTestEnv points the home and user config directories at a fresh temp
// tree and clears ZEDSETUP_* overrides, so a run under test never reads the
// developer's configuration or falls back to their home directory.
//
// Cleanup is handled by t.TempDir and t.Setenv.
func SetupTestEnv(t *testing.T) *Env {
	t.Helper()

	tmpDir := t.TempDir()
	env := &Env{
		Home:      filepath.Join(tmpDir, "home"),
		ConfigDir: filepath.Join(tmpDir, "config"),
		WorkDir:   filepath.Join(tmpDir, "work"),
	}

	t.Setenv("HOME", env.Home)
	t.Setenv("USERPROFILE", env.Home)
	t.Setenv("XDG_CONFIG_HOME", env.ConfigDir)
	t.Setenv("APPDATA", env.ConfigDir)
	t.Setenv("ZED_SDK_ROOT_DIR", "")
	for _, key := range overrides {
		t.Setenv(key, "")
	}

	for _, dir := range []string{env.Home, env.ConfigDir, env.WorkDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatalf("failed to create test directory %s: %v", dir, err)
		}
	}
	return env
}
