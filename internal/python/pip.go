package python

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZebulonRouseFrantzich/zedsetup/internal/config"
)

// ErrLocationNotFound is returned when pip does not report a usable install
// location for a package.
var ErrLocationNotFound = errors.New("unable to find package installation folder")

// InstallOptions configures a pip install call.
type InstallOptions struct {
	IgnoreInstalled bool
	ForceReinstall  bool
	Upgrade         bool
	// BreakSystemPackages overrides pip's externally-managed-environment
	// guard (pip >= 23.0).
	BreakSystemPackages bool
}

// Installer runs pip through the target interpreter.
type Installer struct {
	runner Runner
	logger config.Logger
}

// NewInstaller creates an installer. A nil logger discards log output.
func NewInstaller(runner Runner, logger config.Logger) *Installer {
	if logger == nil {
		logger = config.NopLogger()
	}
	return &Installer{runner: runner, logger: logger}
}

// InstallArgs builds the pip argument list for a package.
func InstallArgs(pkg string, opts InstallOptions) []string {
	args := []string{"-m", "pip", "install"}
	if opts.IgnoreInstalled {
		args = append(args, "--ignore-installed")
	}
	if opts.ForceReinstall {
		args = append(args, "--force-reinstall")
	}
	if opts.Upgrade {
		args = append(args, "--upgrade")
	}
	if opts.BreakSystemPackages {
		args = append(args, "--break-system-packages")
	}
	return append(args, pkg)
}

// Install installs pkg and returns 0 on success or 1 on any failure. The
// cause is logged, not returned.
func (i *Installer) Install(ctx context.Context, pkg string, opts InstallOptions) int {
	cmd := Command{Args: InstallArgs(pkg, opts)}
	if opts.BreakSystemPackages {
		cmd.Env = []string{"PIP_BREAK_SYSTEM_PACKAGES=1"}
	}

	i.logger.Debug("running pip", "args", strings.Join(cmd.Args, " "))
	if err := i.runner.Run(ctx, cmd); err != nil {
		i.logger.Error("pip install failed", "package", pkg, "err", err)
		return 1
	}
	return 0
}

// PackageLocation returns the directory of an installed package, using the
// "Location:" line of `pip show`.
func (i *Installer) PackageLocation(ctx context.Context, name string) (string, error) {
	out, err := i.runner.Output(ctx, Command{Args: []string{"-m", "pip", "show", name}})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrLocationNotFound, err)
	}

	location, err := parseLocation(out)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(location)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: '%s' is not a directory", ErrLocationNotFound, location)
	}
	i.logger.Debug("package location", "package", name, "dir", location)

	return filepath.Join(location, name), nil
}

// parseLocation extracts the value of the first "Location:" line.
func parseLocation(out []byte) (string, error) {
	const keyword = "Location:"

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, keyword) {
			location := strings.TrimSpace(line[len(keyword):])
			if location != "" {
				return location, nil
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("scan pip show output: %w", err)
	}

	return "", ErrLocationNotFound
}

// CertifiBundle returns the path of the CA bundle shipped by the certifi
// package in the target interpreter.
func (i *Installer) CertifiBundle(ctx context.Context) (string, error) {
	out, err := i.runner.Output(ctx, Command{Args: []string{"-c", "import certifi; print(certifi.where())"}})
	if err != nil {
		return "", fmt.Errorf("locate certifi bundle: %w", err)
	}
	path := strings.TrimSpace(string(out))
	if path == "" {
		return "", errors.New("locate certifi bundle: empty output")
	}
	return path, nil
}
