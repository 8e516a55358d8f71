package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/panbanda/scry/internal/output"
	"github.com/panbanda/scry/internal/progress"
	"github.com/panbanda/scry/pkg/analyzer"
	"github.com/panbanda/scry/pkg/analyzer/deadcode"
	"github.com/panbanda/scry/pkg/findings"
	"github.com/urfave/cli/v2"
)

func deadcodeCmd() *cli.Command {
	return &cli.Command{
		Name:      "deadcode",
		Aliases:   []string{"dc"},
		Usage:     "Detect declarations with no observed references",
		ArgsUsage: "[path...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "min-confidence",
				Value: "low",
				Usage: "Minimum confidence tier to report: low, medium, high",
			},
		},
		Action: runDeadcode,
	}
}

// confidenceRank orders tiers for the --min-confidence filter.
func confidenceRank(c findings.Confidence) int {
	switch c {
	case findings.ConfidenceHigh:
		return 2
	case findings.ConfidenceMedium:
		return 1
	default:
		return 0
	}
}

func runDeadcode(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	files, err := collectFiles(c, cfg)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		color.Yellow("No Python files found")
		return nil
	}

	dc := deadcode.NewWithPolicy(cfg.Policy())
	defer dc.Close()

	ctx := context.Background()
	var bar *progress.Indicator
	if !c.Bool("quiet") {
		bar = progress.NewBar("Detecting dead code...", len(files))
		tracker := analyzer.NewTracker(func(current, total int, path string) {
			bar.Tick()
		})
		tracker.SetTotal(len(files))
		ctx = analyzer.WithTracker(ctx, tracker)
	}

	analysis, err := dc.Analyze(ctx, files)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	minRank := confidenceRank(findings.Confidence(c.String("min-confidence")))
	var kept []findings.Finding
	for _, f := range analysis.Findings {
		if confidenceRank(f.Confidence) >= minRank {
			kept = append(kept, f)
		}
	}
	analysis.Findings = kept

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	if formatter.Format() == output.FormatJSON || formatter.Format() == output.FormatTOON {
		return formatter.Output(analysis)
	}

	if len(analysis.Findings) > 0 {
		var rows [][]string
		for _, f := range analysis.Findings {
			conf := string(f.Confidence)
			if formatter.Colored() {
				switch f.Confidence {
				case findings.ConfidenceHigh:
					conf = color.RedString(conf)
				case findings.ConfidenceMedium:
					conf = color.YellowString(conf)
				}
			}
			rows = append(rows, []string{
				fmt.Sprintf("%s:%d", f.File, f.Line),
				f.Name,
				conf,
				f.Detail,
			})
		}

		table := output.NewTable("Suspected Dead Code",
			[]string{"Location", "Name", "Confidence", "Detail"},
			rows, nil, analysis)
		if err := formatter.Output(table); err != nil {
			return err
		}
	}

	s := analysis.Summary
	fmt.Fprintf(formatter.Writer(),
		"\nSummary: %d of %d declarations unreferenced across %d files (high %d, medium %d, low %d)\n",
		s.DeadDeclarations, s.TotalDeclarations, s.TotalFiles,
		s.ByConfidence[findings.ConfidenceHigh],
		s.ByConfidence[findings.ConfidenceMedium],
		s.ByConfidence[findings.ConfidenceLow])
	fmt.Fprintf(formatter.Writer(), "\n%s\n", deadcode.Disclaimer)

	return nil
}
