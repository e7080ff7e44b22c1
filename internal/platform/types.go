// Package platform detects the host operating system, CPU architecture, and
// Linux distribution for zedsetup.
//
// Only Windows and Linux hosts are supported. Distribution details come from
// gopsutil and are informational; detection degrades gracefully when they
// cannot be read. The detected values are also exposed to the optional Lua
// configuration file as a read-only "platform" table.
package platform

import (
	"context"
	"errors"
	"fmt"
)

// Operating systems zedsetup knows how to provision.
const (
	OSWindows = "windows"
	OSLinux   = "linux"
)

// Linux distribution family constants.
const (
	FamilyDebian  = "debian" // Debian, Ubuntu, Jetson L4T
	FamilyRHEL    = "rhel"   // RHEL, CentOS, Rocky Linux
	FamilyFedora  = "fedora"
	FamilySUSE    = "suse"
	FamilyArch    = "arch"
	FamilyUnknown = "unknown"
)

// ErrUnsupportedOS is returned when the host is neither Windows nor Linux.
var ErrUnsupportedOS = errors.New("unsupported operating system")

// Info contains platform detection information.
type Info struct {
	OS       string // "linux", "windows", ...
	Arch     string // "amd64", "arm64" (normalized, empty if unrecognized)
	Machine  string // kernel machine name (e.g., "x86_64", "aarch64")
	Platform string // distro ID (Linux only, e.g., "ubuntu")
	Family   string // canonical distro family (Linux only)
	Version  string // distro version (Linux only, e.g., "22.04")
}

// Distro contains Linux distribution information.
type Distro struct {
	ID      string
	Family  string
	Version string
}

// GetDistro returns distro information, or nil off Linux or when distro
// detection failed.
func (i *Info) GetDistro() *Distro {
	if i.OS != OSLinux || i.Platform == "" {
		return nil
	}
	return &Distro{
		ID:      i.Platform,
		Family:  i.Family,
		Version: i.Version,
	}
}

// IsLinux returns true if the platform is Linux.
func (i *Info) IsLinux() bool {
	return i.OS == OSLinux
}

// IsWindows returns true if the platform is Windows.
func (i *Info) IsWindows() bool {
	return i.OS == OSWindows
}

// IsAMD64 returns true if the architecture is amd64.
func (i *Info) IsAMD64() bool {
	return i.Arch == "amd64"
}

// IsARM64 returns true if the architecture is arm64.
func (i *Info) IsARM64() bool {
	return i.Arch == "arm64"
}

// CheckSupported returns ErrUnsupportedOS unless the host is Windows or Linux.
func (i *Info) CheckSupported() error {
	switch i.OS {
	case OSWindows, OSLinux:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedOS, i.OS)
	}
}

// Detector is the interface for platform detection.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}
