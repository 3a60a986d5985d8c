package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"holidaycal/internal/config"
	"holidaycal/internal/generate"
	"holidaycal/internal/ics"
	"holidaycal/internal/source"
	"holidaycal/internal/statutory"
)

// pipelineInput assembles one run's input from cfg. Rule tables are re-read
// every run so edits take effect on the next scheduled refresh.
func pipelineInput(cfg *config.Config, now time.Time) (generate.Input, error) {
	years, err := cfg.Years(now)
	if err != nil {
		return generate.Input{}, err
	}
	fixedRules, err := source.LoadFixed(cfg.FixedCSV)
	if err != nil {
		return generate.Input{}, err
	}
	lunarRules, err := source.LoadLunar(cfg.LunarCSV)
	if err != nil {
		return generate.Input{}, err
	}
	floatingRules, err := cfg.FloatingRules()
	if err != nil {
		return generate.Input{}, err
	}
	timeout, err := cfg.StatutoryTimeout()
	if err != nil {
		return generate.Input{}, err
	}

	return generate.Input{
		Years:     years,
		Statutory: source.NewFetcher(cfg.Statutory.URLTemplate, cfg.Statutory.CacheDir, timeout),
		Rules: generate.Rules{
			Fixed:    fixedRules,
			Lunar:    lunarRules,
			Floating: floatingRules,
		},
		Reconcile: statutory.Options{RestDayLabel: cfg.RestDayLabel},
		Calendar: ics.Options{
			ProductID: cfg.ProductID,
			Name:      cfg.CalendarName,
			Timezone:  cfg.Timezone,
			UIDDomain: cfg.UIDDomain,
		},
	}, nil
}

func runOnce(ctx context.Context, cfg *config.Config, output string) (*generate.Result, error) {
	in, err := pipelineInput(cfg, time.Now())
	if err != nil {
		return nil, err
	}
	return generate.Run(ctx, in, output)
}

func generateCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the calendar file once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = conf.Output
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			res, err := runOnce(ctx, conf, output)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d events to %s\n", len(res.Events), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output .ics path (overrides config)")
	return cmd
}
