package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/scienceol/screenwake/internal/config"
	"github.com/scienceol/screenwake/internal/executor"
	"github.com/scienceol/screenwake/internal/ui"
)

func newRunCmd() *cobra.Command {
	var (
		reason string
		strict bool
	)
	c := &cobra.Command{
		Use:   "run [--reason R] -- command [args...]",
		Short: "Keep the display awake while a command runs",
		Long: `Runs a command with a wake lock held and exits with the command's exit
code. Without --strict the command still runs when no wake lock can be
taken; with --strict screenwake exits 2 instead.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, l, err := setup(config.Overrides{Reason: reason})
			if err != nil {
				return err
			}

			lock, err := l.Acquire(cfg.Reason, cfg.LinuxOptions())
			if err != nil {
				if strict {
					ui.Error("Could not keep the display awake: %v", err)
					return &exitError{code: exitUnsupported}
				}
				ui.Warn("Running without a wake lock: %v", err)
			} else {
				logger.Debug("wake lock acquired", "backend", lock.Backend(), "command", args[0])
				defer func() {
					if err := lock.Release(); err != nil {
						logger.Warn("wake lock release failed", "error", err)
					}
				}()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			code, err := executor.Run(ctx, executor.Command{
				Name:   args[0],
				Args:   args[1:],
				Stdin:  os.Stdin,
				Stdout: cmd.OutOrStdout(),
				Stderr: cmd.ErrOrStderr(),
			})
			if code == -1 && err != nil {
				return &exitError{code: 1, err: fmt.Errorf("%s: %w", args[0], err)}
			}
			if code != 0 {
				return &exitError{code: code}
			}
			return nil
		},
	}
	c.Flags().SetInterspersed(false)
	c.Flags().StringVar(&reason, "reason", "", "Reason reported to the operating system")
	c.Flags().BoolVar(&strict, "strict", false, "Fail instead of running without a wake lock")
	return c
}
