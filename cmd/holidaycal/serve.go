package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"holidaycal/internal/generate"
	"holidaycal/internal/ics"
	appLog "holidaycal/internal/log"
	"holidaycal/internal/model"
	"holidaycal/internal/statutory"
	"holidaycal/internal/web"
)

// signalContext is cancelled on SIGINT/SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Regenerate on a schedule and serve the latest calendar over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			var mu sync.Mutex
			refresh := func(ctx context.Context) (*generate.Result, error) {
				mu.Lock()
				defer mu.Unlock()
				return runOnce(ctx, conf, conf.Output)
			}
			srv := web.NewServer(conf, refresh)

			// Serve whatever the last run left on disk until the first refresh lands.
			if prev := loadPrevious(conf.Output); prev != nil {
				srv.Publish(prev)
			}

			if res, err := refresh(ctx); err == nil {
				srv.Publish(res)
			}

			c := cron.New()
			if _, err := c.AddFunc(conf.RefreshCron, func() {
				appLog.Info("scheduled refresh")
				res, err := refresh(ctx)
				if err != nil {
					// generate.Run has logged it; keep serving the previous document.
					return
				}
				srv.Publish(res)
			}); err != nil {
				return fmt.Errorf("refresh schedule %q: %w", conf.RefreshCron, err)
			}
			c.Start()
			defer func() {
				<-c.Stop().Done()
			}()

			err := srv.Serve(ctx)
			appLog.Info("holidaycal exiting")
			return err
		},
	}
	return cmd
}

// loadPrevious reads a calendar written by an earlier run.
func loadPrevious(path string) *generate.Result {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	entries, err := ics.Parse(body)
	if err != nil {
		appLog.Warn("previous calendar unparsable", "path", path, "err", err)
		return nil
	}
	events := make([]model.CalendarEvent, 0, len(entries))
	for _, e := range entries {
		events = append(events, e.Event)
	}
	status, err := statutory.StatusFromEvents(events)
	if err != nil {
		appLog.Warn("previous calendar inconsistent", "path", path, "err", err)
		return nil
	}
	appLog.Info("serving previous calendar", "path", path, "events", len(events))
	return &generate.Result{Events: events, Status: status, Body: body}
}
