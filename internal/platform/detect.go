package platform

import (
	"context"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v4/host"
)

// RealDetector implements Detector using actual platform detection.
type RealDetector struct{}

// NewDetector creates a new platform detector.
func NewDetector() Detector {
	return &RealDetector{}
}

// Detect performs platform detection and returns platform information.
//
// OS comes from runtime.GOOS. The kernel machine name comes from gopsutil
// and falls back to GOARCH when it cannot be read. Distribution details are
// only looked up on Linux; failures there leave the distro fields empty.
// Only context cancellation is reported as an error.
func (d *RealDetector) Detect(ctx context.Context) (*Info, error) {
	info := &Info{
		OS:      runtime.GOOS,
		Machine: runtime.GOARCH,
	}

	if machine, err := host.KernelArchWithContext(ctx); err == nil && machine != "" {
		info.Machine = machine
	} else if ctx.Err() != nil {
		return nil, fmt.Errorf("platform detection cancelled: %w", ctx.Err())
	}

	// Unrecognized architectures are left empty; the interpreter probe decides
	// whether the host is usable.
	if arch, err := normalizeArch(info.Machine); err == nil {
		info.Arch = arch
	} else if arch, err := normalizeArch(runtime.GOARCH); err == nil {
		info.Arch = arch
	}

	if info.OS == OSLinux {
		platform, family, version, err := host.PlatformInformationWithContext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("platform detection cancelled: %w", ctx.Err())
			}
			return info, nil
		}

		platform = normalizePlatform(platform)
		if platform != "" {
			info.Platform = platform
			info.Family = mapFamily(family)
			info.Version = normalizePlatform(version)
		}
	}

	return info, nil
}

// StaticDetector returns a fixed Info without probing the host.
type StaticDetector struct {
	Info *Info
	Err  error
}

// Detect returns the configured info and error.
func (s *StaticDetector) Detect(ctx context.Context) (*Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Info, s.Err
}
