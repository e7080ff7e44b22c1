// Package sdk locates the local ZED SDK installation and reads its version
// from the installed C++ headers.
package sdk

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ZebulonRouseFrantzich/zedsetup/internal/platform"
)

const (
	// RootEnvVar names the SDK installation root on Windows.
	RootEnvVar = "ZED_SDK_ROOT_DIR"
	// LinuxRoot is the fixed SDK installation root on Linux.
	LinuxRoot = "/usr/local/zed"

	majorMarker = "ZED_SDK_MAJOR_VERSION"
	minorMarker = "ZED_SDK_MINOR_VERSION"
)

// Header files searched for version markers, in order.
var versionHeaders = []string{
	filepath.Join("sl", "Camera.hpp"),
	filepath.Join("sl_zed", "defines.hpp"),
}

var (
	majorPattern = regexp.MustCompile(majorMarker + " (.*)")
	minorPattern = regexp.MustCompile(minorMarker + " (.*)")
)

var (
	// ErrSDKNotFound means no SDK installation could be located.
	ErrSDKNotFound = errors.New("you must install the ZED SDK")
	// ErrVersionMarkerNotFound means no header carried the version markers.
	ErrVersionMarkerNotFound = errors.New("version marker not found")
)

// MarkerError reports which header and marker failed to match. Err holds
// the read error when the header could not be opened at all.
type MarkerError struct {
	Path   string
	Marker string
	Err    error
}

func (e *MarkerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s not found in %s: %v", e.Marker, e.Path, e.Err)
	}
	return fmt.Sprintf("%s not found in %s", e.Marker, e.Path)
}

// Unwrap lets errors.Is match ErrVersionMarkerNotFound and the read error.
func (e *MarkerError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrVersionMarkerNotFound, e.Err}
	}
	return []error{ErrVersionMarkerNotFound}
}

// Version is the two-part SDK version.
type Version struct {
	Major string
	Minor string
}

// String returns "<major>.<minor>".
func (v Version) String() string {
	return v.Major + "." + v.Minor
}

// Install describes a located SDK.
type Install struct {
	Root    string
	Version Version
}

// IncludeDir returns the header directory of the installation.
func (i *Install) IncludeDir() string {
	return filepath.Join(i.Root, "include")
}

// BinDir returns the directory holding the native libraries.
func (i *Install) BinDir() string {
	return filepath.Join(i.Root, "bin")
}

// Root resolves the SDK root for the given OS. On Windows the root comes
// from ZED_SDK_ROOT_DIR and is required; on Linux the fixed install path
// must exist as a directory. An override, when non-empty, replaces both.
func Root(goos, override string, getenv func(string) string) (string, error) {
	if override != "" {
		if !isDir(override) {
			return "", fmt.Errorf("%w: %s is not a directory", ErrSDKNotFound, override)
		}
		return override, nil
	}

	switch goos {
	case platform.OSWindows:
		root := getenv(RootEnvVar)
		if root == "" {
			return "", fmt.Errorf("%w: %s is not set", ErrSDKNotFound, RootEnvVar)
		}
		return root, nil
	case platform.OSLinux:
		if !isDir(LinuxRoot) {
			return "", fmt.Errorf("%w: %s does not exist", ErrSDKNotFound, LinuxRoot)
		}
		return LinuxRoot, nil
	default:
		return "", fmt.Errorf("%w: %s", platform.ErrUnsupportedOS, goos)
	}
}

// Locate resolves the SDK root and reads its version.
func Locate(goos, override string, getenv func(string) string) (*Install, error) {
	root, err := Root(goos, override, getenv)
	if err != nil {
		return nil, err
	}

	install := &Install{Root: root}
	version, err := ReadVersion(install.IncludeDir())
	if err != nil {
		return nil, err
	}
	install.Version = version

	return install, nil
}

// ReadVersion reads the SDK version from the headers under includeDir.
// sl/Camera.hpp is tried first and sl_zed/defines.hpp second. The last
// failure is returned when neither header yields both markers.
func ReadVersion(includeDir string) (Version, error) {
	var lastErr error
	for _, header := range versionHeaders {
		version, err := readVersionFile(filepath.Join(includeDir, header))
		if err == nil {
			return version, nil
		}
		lastErr = err
	}
	return Version{}, lastErr
}

// readVersionFile extracts the major and minor version from a single file.
// A file that cannot be read reports a missing marker so the next header
// is tried.
func readVersionFile(path string) (Version, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Version{}, &MarkerError{Path: path, Marker: majorMarker, Err: err}
	}

	major, ok := findMarker(majorPattern, data)
	if !ok {
		return Version{}, &MarkerError{Path: path, Marker: majorMarker}
	}
	minor, ok := findMarker(minorPattern, data)
	if !ok {
		return Version{}, &MarkerError{Path: path, Marker: minorMarker}
	}

	return Version{Major: major, Minor: minor}, nil
}

// findMarker returns the text following the marker on its line.
func findMarker(pattern *regexp.Regexp, data []byte) (string, bool) {
	m := pattern.FindSubmatch(data)
	if m == nil {
		return "", false
	}
	value := strings.TrimRight(string(m[1]), "\r")
	if value == "" {
		return "", false
	}
	return value, true
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
