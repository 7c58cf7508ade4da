package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"markcal/internal/app"
	"markcal/internal/datekey"
	"markcal/internal/model"
)

// markSpec is one --mark flag: DATE=KIND[:REASON].
type markSpec struct {
	Key    model.DateKey
	Mark   model.Mark
	Reason string
}

func parseMarkSpec(s string) (markSpec, error) {
	date, rest, ok := strings.Cut(s, "=")
	if !ok {
		return markSpec{}, fmt.Errorf("mark %q: want DATE=KIND[:REASON]", s)
	}
	key, err := datekey.Parse(date)
	if err != nil {
		return markSpec{}, fmt.Errorf("mark %q: %w", s, err)
	}
	kind, reason, _ := strings.Cut(rest, ":")
	m, err := model.ParseMark(kind)
	if err != nil {
		return markSpec{}, fmt.Errorf("mark %q: %w", s, err)
	}
	if reason != "" && !m.Annotatable() {
		return markSpec{}, fmt.Errorf("mark %q: only cross and triangle take a reason", s)
	}
	return markSpec{Key: key, Mark: m, Reason: reason}, nil
}

// parseMonth accepts YYYY-MM; empty means the current month.
func parseMonth(s string, now time.Time) (int, time.Month, error) {
	if s == "" {
		return now.Year(), now.Month(), nil
	}
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return 0, 0, fmt.Errorf("month %q: want YYYY-MM", s)
	}
	return t.Year(), t.Month(), nil
}

// applyMarks drives each day through the toggle cycle to its target mark.
func applyMarks(ctrl *app.Controller, specs []markSpec) error {
	for _, sp := range specs {
		for i := 0; i < 4 && ctrl.Mark(sp.Key) != sp.Mark; i++ {
			ctrl.ToggleMark(sp.Key)
		}
		if sp.Reason != "" {
			if err := ctrl.SetReason(sp.Key, sp.Mark, sp.Reason); err != nil {
				return err
			}
		}
	}
	return nil
}

// prepare builds a controller showing month with the given marks applied and
// holidays loaded.
func prepare(month string, marks []string) (*app.Controller, error) {
	specs := make([]markSpec, 0, len(marks))
	for _, s := range marks {
		sp, err := parseMarkSpec(s)
		if err != nil {
			return nil, err
		}
		specs = append(specs, sp)
	}

	ctrl, err := newController(cfg)
	if err != nil {
		return nil, err
	}

	year, mon, err := parseMonth(month, time.Now().In(ctrl.Location()))
	if err != nil {
		ctrl.Close()
		return nil, err
	}
	if _, err := ctrl.SetMonth(year, mon); err != nil {
		ctrl.Close()
		return nil, err
	}
	ctrl.Wait()

	if err := applyMarks(ctrl, specs); err != nil {
		ctrl.Close()
		return nil, err
	}
	return ctrl, nil
}

func exportCmd() *cobra.Command {
	var (
		month string
		marks []string
		out   string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write calendar-YYYY-MM.png for a month",
		Example: `  markcal export --month 2025-01 --mark 2025-01-01=circle \
    --mark 2025-01-06=cross:定休日 --out ./exports`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := prepare(month, marks)
			if err != nil {
				return err
			}
			defer ctrl.Close()

			ctx, cancel := signalContext()
			defer cancel()

			dir := out
			if dir == "" {
				dir = cfg.Export.Dir
			}
			path, err := ctrl.ExportFile(ctx, dir)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "Month to export as YYYY-MM (default: current month)")
	cmd.Flags().StringArrayVar(&marks, "mark", nil, "Mark a day: DATE=circle|cross|triangle[:REASON] (repeatable)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output directory (default: export.dir from config)")
	return cmd
}

func svgCmd() *cobra.Command {
	var (
		month string
		marks []string
		out   string
	)

	cmd := &cobra.Command{
		Use:   "svg",
		Short: "Write the month drawing as SVG",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := prepare(month, marks)
			if err != nil {
				return err
			}
			defer ctrl.Close()

			data := ctrl.Document().SVG()
			if out == "" || out == "-" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			return os.WriteFile(out, data, 0o644)
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "Month as YYYY-MM (default: current month)")
	cmd.Flags().StringArrayVar(&marks, "mark", nil, "Mark a day: DATE=circle|cross|triangle[:REASON] (repeatable)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default: stdout)")
	return cmd
}
