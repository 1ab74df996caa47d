package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/scienceol/screenwake/internal/config"
	"github.com/scienceol/screenwake/internal/ui"
	"github.com/scienceol/screenwake/pkg/wakelock"
)

func newHoldCmd() *cobra.Command {
	var (
		seconds int
		appID   string
		suspend bool
	)
	c := &cobra.Command{
		Use:   "hold [reason]",
		Short: "Keep the display awake for a while",
		Long: `Acquires a wake lock, keeps it for --seconds (0 holds until interrupted)
and releases it again. Exits 2 when no wake lock mechanism is available.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			o := config.Overrides{
				Reason:        strings.Join(args, " "),
				ApplicationID: appID,
			}
			if cmd.Flags().Changed("seconds") {
				o.Seconds = &seconds
			}
			if cmd.Flags().Changed("suspend") {
				o.InhibitSuspend = &suspend
			}
			cfg, logger, l, err := setup(o)
			if err != nil {
				return err
			}

			ui.Banner(version)
			ui.KeyValue("Platform", l.Platform())
			ui.KeyValue("Reason", cfg.Reason)
			ui.KeyValue("Duration", ui.Duration(cfg.Duration()))
			ui.Separator()

			if !l.IsSupported() {
				ui.Error("Screen wake lock is not supported on this system")
				return &exitError{code: exitUnsupported}
			}

			lock, err := l.Acquire(cfg.Reason, cfg.LinuxOptions())
			if err != nil {
				if errors.Is(err, wakelock.ErrUnsupported) {
					ui.Error("Screen wake lock is not supported: %v", err)
					return &exitError{code: exitUnsupported}
				}
				return err
			}
			logger.Debug("wake lock acquired", "backend", lock.Backend())
			ui.Success("Display will stay awake (%s)", lock.Backend())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if wait(ctx, cfg.Duration()) {
				ui.Warn("Interrupted")
			}

			if err := lock.Release(); err != nil {
				return err
			}
			ui.Success("Wake lock released")
			return nil
		},
	}
	f := c.Flags()
	f.IntVar(&seconds, "seconds", config.DefaultSeconds, "How long to hold the lock; 0 holds until interrupted")
	f.StringVar(&appID, "app-id", "", "Application ID reported to Linux inhibitors")
	f.BoolVar(&suspend, "suspend", false, "Also block system suspend on Linux")
	return c
}

// wait blocks for d, or until ctx is done when d is zero. It reports
// whether ctx ended the wait.
func wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		<-ctx.Done()
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return false
	case <-ctx.Done():
		return true
	}
}
