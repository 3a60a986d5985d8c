package generate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"holidaycal/internal/fixed"
	"holidaycal/internal/floating"
	"holidaycal/internal/ics"
	appLog "holidaycal/internal/log"
	"holidaycal/internal/lunar"
	"holidaycal/internal/merge"
	"holidaycal/internal/model"
	"holidaycal/internal/statutory"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "holidaycal_generate_runs_total",
		Help: "Generation runs by result.",
	}, []string{"result"})
	eventsGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "holidaycal_events",
		Help: "Entries in the last generated calendar by category.",
	}, []string{"category"})
	lastSuccess = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "holidaycal_last_success_timestamp_seconds",
		Help: "Unix time of the last successful generation.",
	})
)

// StatutorySource supplies the authoritative day-status records of years.
type StatutorySource interface {
	Records(ctx context.Context, years []int) ([]model.StatutoryDayRecord, error)
}

// Rules are the locally configured recurring holidays.
type Rules struct {
	Fixed    []model.FixedRule
	Lunar    []model.LunarRule
	Floating []model.FloatingRule
}

// Input is everything one run needs.
type Input struct {
	Years     []int
	Statutory StatutorySource
	Rules     Rules
	// Table overrides the built-in lunar table.
	Table     lunar.Table
	Reconcile statutory.Options
	Calendar  ics.Options
}

// Result is a generated calendar and the state behind it.
type Result struct {
	Events []model.CalendarEvent
	Status statutory.Status
	Body   []byte
}

// Build runs the whole pipeline in memory. Any failure aborts the run; no
// partial calendar is ever returned.
func Build(ctx context.Context, in Input) (*Result, error) {
	if len(in.Years) == 0 {
		return nil, errors.New("no years to generate")
	}

	var records []model.StatutoryDayRecord
	if in.Statutory != nil {
		recs, err := in.Statutory.Records(ctx, in.Years)
		if err != nil {
			return nil, fmt.Errorf("statutory feed: %w", err)
		}
		records = recs
	}
	statEvents, status, err := statutory.Reconcile(records, in.Reconcile)
	if err != nil {
		return nil, fmt.Errorf("statutory: %w", err)
	}

	fixedEvents, err := fixed.Events(in.Rules.Fixed, in.Years)
	if err != nil {
		return nil, fmt.Errorf("fixed holidays: %w", err)
	}
	lunarEvents, err := lunar.NewConverter(in.Table).Events(in.Rules.Lunar, in.Years)
	if err != nil {
		return nil, fmt.Errorf("lunar holidays: %w", err)
	}
	floatingEvents, err := floating.Events(in.Rules.Floating, in.Years)
	if err != nil {
		return nil, fmt.Errorf("floating holidays: %w", err)
	}

	events := merge.Merge(statEvents, fixedEvents, lunarEvents, floatingEvents)
	body, err := ics.Serialize(events, in.Calendar)
	if err != nil {
		return nil, err
	}

	appLog.Info("calendar built",
		"years", fmt.Sprintf("%d-%d", in.Years[0], in.Years[len(in.Years)-1]),
		"statutory_records", len(records),
		"statutory", len(statEvents),
		"fixed", len(fixedEvents),
		"lunar", len(lunarEvents),
		"floating", len(floatingEvents),
		"merged", len(events),
	)
	return &Result{Events: events, Status: status, Body: body}, nil
}

// Run builds the calendar and atomically replaces the file at output. When
// the build fails the previous file is left untouched.
func Run(ctx context.Context, in Input, output string) (*Result, error) {
	start := time.Now()
	res, err := Build(ctx, in)
	if err == nil {
		err = writeOutput(output, res)
	}
	if err != nil {
		runsTotal.WithLabelValues("failure").Inc()
		appLog.Error("generation failed", err, "output", output)
		return nil, err
	}

	runsTotal.WithLabelValues("success").Inc()
	lastSuccess.SetToCurrentTime()
	counts := make(map[model.Category]int)
	for _, e := range res.Events {
		counts[e.Category]++
	}
	for c := model.CategoryStatutory; c <= model.CategoryFloating; c++ {
		eventsGauge.WithLabelValues(c.String()).Set(float64(counts[c]))
	}
	appLog.Info("generation finished", "output", output, "events", len(res.Events), "took", time.Since(start).String())
	return res, nil
}

func writeOutput(path string, res *Result) error {
	if path == "" {
		return errors.New("output path is empty")
	}
	logDiff(path, res.Body)

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, res.Body, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// logDiff compares the new document with the one it replaces.
func logDiff(path string, next []byte) {
	prevBody, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			appLog.Warn("previous calendar unreadable", "path", path, "err", err)
		}
		return
	}
	prev, err := ics.Parse(prevBody)
	if err != nil {
		appLog.Warn("previous calendar unparsable", "path", path, "err", err)
		return
	}
	cur, err := ics.Parse(next)
	if err != nil {
		appLog.Warn("new calendar unparsable", "err", err)
		return
	}
	added, removed := ics.Diff(prev, cur)
	appLog.Info("calendar diff", "previous", len(prev), "current", len(cur), "added", added, "removed", removed)
}
