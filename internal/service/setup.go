// Package service orchestrates a zedsetup run: it wires the interpreter
// probe, SDK discovery, wheel download, pip installs, and Windows fixups
// into one linear flow.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZebulonRouseFrantzich/zedsetup/internal/config"
	"github.com/ZebulonRouseFrantzich/zedsetup/internal/fixup"
	"github.com/ZebulonRouseFrantzich/zedsetup/internal/lock"
	"github.com/ZebulonRouseFrantzich/zedsetup/internal/platform"
	"github.com/ZebulonRouseFrantzich/zedsetup/internal/python"
	"github.com/ZebulonRouseFrantzich/zedsetup/internal/sdk"
	"github.com/ZebulonRouseFrantzich/zedsetup/internal/wheel"
)

// ManualInstallURL is where users can build pyzed from source.
const ManualInstallURL = "https://github.com/stereolabs/zed-python-api"

var (
	// ErrPermission means the wheel could not be written to the destination.
	ErrPermission = errors.New("permission denied: unable to write the packages, run as admin or choose a different path and retry")
	// ErrNoArtifact means no valid wheel was obtained for this configuration.
	ErrNoArtifact = errors.New("unsupported platforms, no pyzed file available for this configuration")
	// ErrDependencies means pip failed to install the wheel's dependencies.
	ErrDependencies = errors.New("an error occurred, 'pip' failed to setup python dependencies packages (pyzed was NOT correctly setup)")
	// ErrInstall means pip failed to install the pyzed wheel.
	ErrInstall = errors.New("an error occurred, 'pip' failed to setup pyzed package (pyzed was NOT correctly setup)")
)

// Downloader fetches a URL into a local file.
type Downloader interface {
	Fetch(ctx context.Context, url, destPath string, repair wheel.RepairFunc) error
}

// SetupRequest contains the parameters of one run.
type SetupRequest struct {
	// Path is the preferred download directory; empty means the working dir.
	Path string
	// Force passes --break-system-packages to every pip install.
	Force   bool
	BaseURL string
	DepsURL string
	// SDKRoot replaces SDK discovery when non-empty.
	SDKRoot string
}

// SetupResult describes a successful run.
type SetupResult struct {
	Interpreter *python.Interpreter
	Platform    *platform.Info
	SDK         *sdk.Install
	Artifact    *wheel.Artifact
	// WheelPath is where the pyzed wheel was written.
	WheelPath string
	// PackageDir is the installed pyzed directory (Windows only).
	PackageDir string
	// FixupErrors collects best-effort Windows steps that failed.
	FixupErrors []error
	Elapsed     time.Duration
}

// SetupService orchestrates the setup operation.
type SetupService struct {
	runner     python.Runner
	installer  *python.Installer
	detector   platform.Detector
	downloader Downloader
	clock      Clock
	logger     config.Logger
	out        io.Writer
	getenv     func(string) string
}

// NewSetupService creates a setup service with dependency injection. A nil
// logger discards log output and a nil getenv reads the process environment.
func NewSetupService(
	runner python.Runner,
	detector platform.Detector,
	downloader Downloader,
	clock Clock,
	logger config.Logger,
	out io.Writer,
	getenv func(string) string,
) *SetupService {
	if logger == nil {
		logger = config.NopLogger()
	}
	if getenv == nil {
		getenv = os.Getenv
	}
	if out == nil {
		out = io.Discard
	}
	return &SetupService{
		runner:     runner,
		installer:  python.NewInstaller(runner, logger),
		detector:   detector,
		downloader: downloader,
		clock:      clock,
		logger:     logger,
		out:        out,
		getenv:     getenv,
	}
}

// Execute performs the setup. Every returned error is fatal for the run;
// best-effort failures are reported on the output writer and collected in
// the result instead.
func (s *SetupService) Execute(ctx context.Context, req SetupRequest) (*SetupResult, error) {
	start := s.clock.Now()
	result := &SetupResult{}

	// 1. Interpreter word size gates everything else
	interp, err := python.Probe(ctx, s.runner)
	if err != nil {
		return nil, err
	}
	if err := python.CheckArchitecture(interp.Bits); err != nil {
		return nil, err
	}
	result.Interpreter = interp
	s.logger.Debug("probed interpreter", "version", interp.Version, "machine", interp.Machine)

	// 2. Download directory
	dir, err := wheel.ResolveDestination(req.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve download directory: %w", err)
	}
	fmt.Fprintf(s.out, "-> Downloading to '%s'\n", dir)

	// 3. Host platform and SDK
	info, err := s.detector.Detect(ctx)
	if err != nil {
		return nil, fmt.Errorf("detect platform: %w", err)
	}
	if err := info.CheckSupported(); err != nil {
		return nil, fmt.Errorf("installation failed: %w", err)
	}
	result.Platform = info

	install, err := sdk.Locate(info.OS, req.SDKRoot, s.getenv)
	if err != nil {
		return nil, err
	}
	result.SDK = install

	// 4. Artifact
	machine := interp.Machine
	if machine == "" {
		machine = info.Machine
	}
	artifact, err := wheel.Locate(req.BaseURL, wheel.Target{
		OS:          info.OS,
		Machine:     machine,
		SDKMajor:    install.Version.Major,
		SDKMinor:    install.Version.Minor,
		PythonMajor: interp.Major,
		PythonMinor: interp.Minor,
	})
	if err != nil {
		return nil, fmt.Errorf("locate wheel: %w", err)
	}
	result.Artifact = artifact

	fmt.Fprintf(s.out, "Detected platform: \n\t %s\n\t Python %s\n\t ZED SDK %s\n",
		artifact.OSDir, interp.ShortVersion(), install.Version)

	// 5. Download under the directory lock
	dirLock, err := lock.Acquire(ctx, dir)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %w", ErrPermission, err)
		}
		return nil, err
	}
	defer func() { _ = dirLock.Release() }()

	wheelPath := filepath.Join(dir, artifact.FileName)
	result.WheelPath = wheelPath

	fmt.Fprintf(s.out, "-> Checking if %s exists and is available\n", artifact.URL)
	if err := s.downloader.Fetch(ctx, artifact.URL, wheelPath, s.repairTrust(req.Force)); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %w", ErrPermission, err)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		fmt.Fprintf(s.out, "Error downloading whl file (%v)\n", err)
		s.logger.Warn("download failed", "url", artifact.URL, "err", err)
	}

	// 6. Validate
	if !wheel.CheckValidFile(wheelPath) {
		return nil, fmt.Errorf("%w\n It can be manually installed from source %s", ErrNoArtifact, ManualInstallURL)
	}
	fmt.Fprintf(s.out, "-> Found ! Downloading python package into %s\n", wheelPath)

	// 7. Dependencies
	opts := python.InstallOptions{BreakSystemPackages: req.Force}

	fmt.Fprintln(s.out, "-> Installing necessary dependencies")
	failures := 0
	if strings.Contains(machine, "aarch64") {
		// numpy is built from source on Jetson
		failures += s.installer.Install(ctx, "wheel", opts)
		failures += s.installer.Install(ctx, "cython", opts)
	}
	failures += s.installer.Install(ctx, "numpy", opts)
	if failures != 0 {
		return nil, ErrDependencies
	}

	// 8. pyzed
	if s.installer.Install(ctx, wheelPath, python.InstallOptions{ForceReinstall: true, BreakSystemPackages: req.Force}) != 0 {
		return nil, ErrInstall
	}
	fmt.Fprintln(s.out, "Done")

	// 9. Platform specific follow-up
	if info.IsWindows() {
		s.installWindowsDependencies(ctx, req, dir, interp, result)
		s.copyNativeLibraries(ctx, install, result)
	} else {
		fmt.Fprintf(s.out, "  To install it later or on a different environment run : \n python -m pip install --ignore-installed %s\n", wheelPath)
	}

	result.Elapsed = s.clock.Now().Sub(start)
	s.logger.Info("pyzed installed", "wheel", artifact.FileName, "elapsed", result.Elapsed)
	return result, nil
}

// repairTrust reinstalls certifi and returns its CA bundle so the
// downloader can trust it for the retry.
func (s *SetupService) repairTrust(force bool) wheel.RepairFunc {
	return func(ctx context.Context) ([]byte, error) {
		fmt.Fprintln(s.out, "Invalid SSL certificate, trying to fix the issue by reinstalling 'certifi' package")

		opts := python.InstallOptions{ForceReinstall: true, Upgrade: true, BreakSystemPackages: force}
		if s.installer.Install(ctx, "certifi", opts) != 0 {
			return nil, errors.New("reinstall certifi failed")
		}

		bundle, err := s.installer.CertifiBundle(ctx)
		if err != nil {
			return nil, err
		}
		pem, err := os.ReadFile(bundle)
		if err != nil {
			return nil, fmt.Errorf("read certifi bundle: %w", err)
		}
		return pem, nil
	}
}

// installWindowsDependencies installs the OpenGL wheels used by the
// samples. Failures are reported and do not stop the run.
func (s *SetupService) installWindowsDependencies(ctx context.Context, req SetupRequest, dir string, interp *python.Interpreter, result *SetupResult) {
	fmt.Fprintln(s.out, "Installing OpenGL dependencies required to run the samples")

	opts := python.InstallOptions{BreakSystemPackages: req.Force}
	for _, name := range wheel.WindowsDependencies {
		dep := wheel.LocateWindowsDependency(req.DepsURL, name, interp.Number())
		fmt.Fprintf(s.out, "-> Downloading %s\n", dep.FileName)

		dest := filepath.Join(dir, dep.FileName)
		if err := s.downloader.Fetch(ctx, dep.URL, dest, nil); err != nil {
			fmt.Fprintf(s.out, "Error downloading whl file (%v)\n", err)
			result.FixupErrors = append(result.FixupErrors, fmt.Errorf("download %s: %w", name, err))
			continue
		}
		if s.installer.Install(ctx, dest, opts) != 0 {
			result.FixupErrors = append(result.FixupErrors, fmt.Errorf("install %s failed", name))
		}
	}
}

// copyNativeLibraries copies the SDK DLLs into the installed pyzed
// directory.
func (s *SetupService) copyNativeLibraries(ctx context.Context, install *sdk.Install, result *SetupResult) {
	pkgDir, err := s.installer.PackageLocation(ctx, wheel.PackageName)
	if err != nil {
		fmt.Fprintf(s.out, "ERROR : %v\n", err)
		result.FixupErrors = append(result.FixupErrors, err)
		return
	}
	result.PackageDir = pkgDir
	fmt.Fprintf(s.out, "Pyzed directory is %s\n", pkgDir)

	errs := fixup.CopyNativeLibraries(install.BinDir(), pkgDir, fixup.NativeLibraries, s.out)
	result.FixupErrors = append(result.FixupErrors, errs...)
}
