package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/ZebulonRouseFrantzich/zedsetup/internal/config"
	"github.com/ZebulonRouseFrantzich/zedsetup/internal/platform"
	"github.com/ZebulonRouseFrantzich/zedsetup/internal/python"
	"github.com/ZebulonRouseFrantzich/zedsetup/internal/service"
	"github.com/ZebulonRouseFrantzich/zedsetup/internal/wheel"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Version will be set at build time via -ldflags
var Version = "v0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], newApp(os.Stdout, os.Stderr))
	stop()
	os.Exit(code)
}

// app holds the collaborators of a run so tests can replace the
// interpreter and host probes.
type app struct {
	stdout    io.Writer
	stderr    io.Writer
	newRunner func(python string) python.Runner
	detector  platform.Detector
	getenv    func(string) string
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout: stdout,
		stderr: stderr,
		newRunner: func(py string) python.Runner {
			return python.NewExecRunner(py)
		},
		detector: platform.NewDetector(),
		getenv:   os.Getenv,
	}
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, a *app) int {
	cmd := newRootCommand(a)
	cmd.SetArgs(args)
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(a.stderr, "ERROR : %v\n", err)
		return 1
	}
	return 0
}

func newRootCommand(a *app) *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "zedsetup",
		Short: "Install the ZED SDK Python API (pyzed)",
		Long: `Install the ZED SDK Python API (pyzed) into a Python interpreter.

zedsetup reads the version of the locally installed ZED SDK, downloads the
matching pyzed wheel for the interpreter and platform, and installs it with
pip. On Windows it also installs the OpenGL sample dependencies and copies
the SDK native libraries next to the installed package.

Settings can also come from ZEDSETUP_* environment variables and from a Lua
configuration file (--config, or zedsetup/zedsetup.lua in the user config
directory).`,
		Example: `  # Install for the default interpreter, downloading to the working dir
  zedsetup

  # Install into a virtualenv interpreter, keeping the wheel in /tmp
  zedsetup --python ~/venvs/zed/bin/python --path /tmp

  # Bypass the externally-managed-environment guard
  zedsetup --force`,
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSetup(cmd.Context(), cmd.Flags(), configFile)
		},
	}
	cmd.SetVersionTemplate("zedsetup {{.Version}}\n")

	flags := cmd.Flags()
	flags.StringP("path", "p", "", "download directory (default: working directory, or home if not writable)")
	flags.BoolP("force", "f", false, "force install, bypassing pip's externally-managed-environment guard")
	flags.String("python", config.DefaultPython(), "Python interpreter to install pyzed into")
	flags.String("base-url", config.DefaultBaseURL, "base URL of the pyzed wheels")
	flags.String("deps-url", config.DefaultDepsURL, "base URL of the Windows OpenGL wheels")
	flags.String("sdk-root", "", "ZED SDK installation root (default: detected)")
	flags.Duration("timeout", config.DefaultTimeout, "maximum duration of the whole run")
	flags.BoolP("verbose", "v", false, "enable debug logging")
	flags.StringVarP(&configFile, "config", "c", "", "Lua configuration file")

	return cmd
}

func (a *app) runSetup(ctx context.Context, flags *pflag.FlagSet, configFile string) error {
	cfg, err := config.Load(ctx, config.LoadOptions{
		Flags:      flags,
		ConfigFile: configFile,
		Detector:   a.detector,
	})
	if err != nil {
		return err
	}

	logger := config.NewLogger(a.stderr, cfg.Verbose)
	if cfg.File != "" {
		logger.Debug("applied config file", "path", cfg.File)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	downloader := wheel.NewDownloader(wheel.DownloaderConfig{
		Progress:  a.stdout,
		Logger:    logger,
		UserAgent: "zedsetup/" + Version,
		Timeout:   cfg.Timeout,
	})

	svc := service.NewSetupService(
		a.newRunner(cfg.Python),
		a.detector,
		downloader,
		service.RealClock{},
		logger,
		a.stdout,
		a.getenv,
	)

	_, err = svc.Execute(ctx, service.SetupRequest{
		Path:    cfg.Path,
		Force:   cfg.Force,
		BaseURL: cfg.BaseURL,
		DepsURL: cfg.DepsURL,
		SDKRoot: cfg.SDKRoot,
	})
	return err
}
