// Package config loads zedsetup settings and provides the logging interface
// shared by the other packages.
//
// Settings are layered with viper: command-line flags override ZEDSETUP_*
// environment variables, which override an optional Lua configuration file,
// which overrides built-in defaults. The Lua file runs in a sandboxed VM
// with a read-only "platform" table describing the host:
//
//	zedsetup = {
//	    python   = platform.is_windows and "py" or "python3",
//	    sdk_root = platform.when(platform.is_windows, "D:/ZED SDK"),
//	    timeout  = "10m",
//	}
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/ZebulonRouseFrantzich/zedsetup/internal/platform"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Setting keys.
const (
	KeyPath    = "path"
	KeyForce   = "force"
	KeyPython  = "python"
	KeyBaseURL = "base_url"
	KeyDepsURL = "deps_url"
	KeySDKRoot = "sdk_root"
	KeyVerbose = "verbose"
	KeyTimeout = "timeout"
)

const (
	// EnvPrefix prefixes every environment override, e.g. ZEDSETUP_PYTHON.
	EnvPrefix = "ZEDSETUP"
	// DefaultBaseURL hosts the pyzed wheels.
	DefaultBaseURL = "https://download.stereolabs.com/zedsdk/"
	// DefaultDepsURL hosts the prebuilt Windows OpenGL wheels.
	DefaultDepsURL = "https://download.stereolabs.com/py/"
	// DefaultTimeout bounds the whole run.
	DefaultTimeout = 30 * time.Minute
	// FileName is the configuration file looked up in the user config dir.
	FileName = "zedsetup.lua"
)

// flagKeys maps flag names to setting keys where they differ.
var flagKeys = map[string]string{
	"path":     KeyPath,
	"force":    KeyForce,
	"python":   KeyPython,
	"base-url": KeyBaseURL,
	"deps-url": KeyDepsURL,
	"sdk-root": KeySDKRoot,
	"verbose":  KeyVerbose,
	"timeout":  KeyTimeout,
}

// Config holds the resolved settings for one run.
type Config struct {
	// Path is the wheel destination directory; empty means the working dir.
	Path string
	// Force reinstalls and passes --break-system-packages to pip.
	Force   bool
	Python  string
	BaseURL string
	DepsURL string
	// SDKRoot overrides SDK discovery when non-empty.
	SDKRoot string
	Verbose bool
	Timeout time.Duration
	// File is the Lua configuration file that was applied, if any.
	File string
}

// LoadOptions configures Load.
type LoadOptions struct {
	// Flags, when set, are bound over every other source. Only flags the
	// user changed take effect.
	Flags *pflag.FlagSet
	// ConfigFile is an explicit Lua configuration file. It must exist.
	ConfigFile string
	// ConfigDir overrides the directory searched for FileName.
	ConfigDir string
	// Detector feeds the platform table of the Lua file.
	Detector platform.Detector
}

// DefaultPython returns the interpreter command used when none is set.
func DefaultPython() string {
	if runtime.GOOS == platform.OSWindows {
		return "python"
	}
	return "python3"
}

// Load resolves the configuration.
func Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("load config cancelled: %w", err)
	}

	v := viper.New()
	v.SetDefault(KeyPath, "")
	v.SetDefault(KeyForce, false)
	v.SetDefault(KeyPython, DefaultPython())
	v.SetDefault(KeyBaseURL, DefaultBaseURL)
	v.SetDefault(KeyDepsURL, DefaultDepsURL)
	v.SetDefault(KeySDKRoot, "")
	v.SetDefault(KeyVerbose, false)
	v.SetDefault(KeyTimeout, DefaultTimeout)

	file, err := resolveFile(opts)
	if err != nil {
		return nil, err
	}
	if file != "" {
		settings, err := NewParser(opts.Detector).ParseFile(ctx, file)
		if err != nil {
			return nil, fmt.Errorf("config file %s: %w", file, err)
		}
		if err := v.MergeConfigMap(settings); err != nil {
			return nil, fmt.Errorf("merge config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if opts.Flags != nil {
		for name, key := range flagKeys {
			if f := opts.Flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{
		Path:    v.GetString(KeyPath),
		Force:   v.GetBool(KeyForce),
		Python:  v.GetString(KeyPython),
		BaseURL: v.GetString(KeyBaseURL),
		DepsURL: v.GetString(KeyDepsURL),
		SDKRoot: v.GetString(KeySDKRoot),
		Verbose: v.GetBool(KeyVerbose),
		Timeout: v.GetDuration(KeyTimeout),
		File:    file,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the resolved settings and normalizes URL suffixes.
func (c *Config) Validate() error {
	var errs []error
	if c.Python == "" {
		errs = append(errs, errors.New("python interpreter must not be empty"))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	for key, u := range map[string]*string{KeyBaseURL: &c.BaseURL, KeyDepsURL: &c.DepsURL} {
		if !strings.HasPrefix(*u, "https://") && !strings.HasPrefix(*u, "http://") {
			errs = append(errs, fmt.Errorf("%s must be an http(s) URL, got %q", key, *u))
			continue
		}
		if !strings.HasSuffix(*u, "/") {
			*u += "/"
		}
	}
	return errors.Join(errs...)
}

// resolveFile returns the configuration file to apply, or "" for none.
func resolveFile(opts LoadOptions) (string, error) {
	if opts.ConfigFile != "" {
		if _, err := os.Stat(opts.ConfigFile); err != nil {
			return "", fmt.Errorf("config file not found: %w", err)
		}
		return opts.ConfigFile, nil
	}

	dir := opts.ConfigDir
	if dir == "" {
		userDir, err := os.UserConfigDir()
		if err != nil {
			return "", nil
		}
		dir = filepath.Join(userDir, "zedsetup")
	}

	candidate := filepath.Join(dir, FileName)
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		return candidate, nil
	}
	return "", nil
}
