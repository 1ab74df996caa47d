package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/scienceol/screenwake/internal/config"
	"github.com/scienceol/screenwake/internal/logging"
	"github.com/scienceol/screenwake/pkg/wakelock"
)

// exitUnsupported is returned when no wake lock mechanism is available.
const exitUnsupported = 2

var (
	flagConfig    string
	flagLogLevel  string
	flagLogFormat string
)

// heldLock is the part of *wakelock.Guard the commands use.
type heldLock interface {
	Release() error
	Backend() string
}

type locker interface {
	Platform() string
	IsSupported() bool
	Acquire(reason string, linux wakelock.LinuxOptions) (heldLock, error)
}

type managerLocker struct {
	m *wakelock.Manager
}

func (l managerLocker) Platform() string  { return l.m.Platform() }
func (l managerLocker) IsSupported() bool { return l.m.IsSupported() }

func (l managerLocker) Acquire(reason string, linux wakelock.LinuxOptions) (heldLock, error) {
	g, err := l.m.AcquireWithLinuxOptions(reason, linux)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// newLocker is swapped out in tests.
var newLocker = func(opts wakelock.Options) locker {
	return managerLocker{m: wakelock.New(opts)}
}

// exitError carries a process exit code out of a command. A nil err exits
// quietly.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "screenwake",
		Short: "screenwake keeps the display awake while you need it",
		Long: `screenwake prevents the display from dimming, blanking or locking for as
long as a wake lock is held. It uses power requests on Windows, IOKit
assertions on macOS and the desktop's D-Bus inhibitors on Linux.

Configuration is read from ~/.screenwake/config.yaml (or config.toml),
then SCREENWAKE_* environment variables, then flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "Config file (default ~/.screenwake/config.yaml)")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&flagLogFormat, "log-format", "", "Log format: text or json")

	root.AddCommand(newHoldCmd(), newRunCmd(), newCheckCmd(), newVersionCmd())
	return root
}

// setup resolves configuration and builds the logger and locker shared by
// all commands.
func setup(o config.Overrides) (*config.Config, *slog.Logger, locker, error) {
	o.ConfigPath = flagConfig
	o.LogLevel = flagLogLevel
	o.LogFormat = flagLogFormat

	cfg, err := config.Load(o)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("configuration error: %w", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("configuration error: %w", err)
	}
	if cfg.Path != "" {
		logger.Debug("loaded config", "path", cfg.Path)
	}
	l := newLocker(wakelock.Options{
		Logger:     logger,
		BusTimeout: cfg.BusTimeout(),
	})
	return cfg, logger, l, nil
}

// Execute runs the CLI and exits the process.
func Execute() {
	os.Exit(run(newRootCmd(), os.Args[1:]))
}

func run(root *cobra.Command, args []string) int {
	root.SetArgs(args)
	err := root.Execute()
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintln(os.Stderr, ee.err)
		}
		return ee.code
	}
	fmt.Fprintln(os.Stderr, err)
	return 1
}
