package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/panbanda/scry/internal/output"
	"github.com/panbanda/scry/internal/progress"
	"github.com/panbanda/scry/pkg/analyzer"
	"github.com/panbanda/scry/pkg/analyzer/complexity"
	"github.com/urfave/cli/v2"
)

func complexityCmd() *cli.Command {
	return &cli.Command{
		Name:      "complexity",
		Aliases:   []string{"cx"},
		Usage:     "Analyze cyclomatic and cognitive complexity",
		ArgsUsage: "[path...]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "cyclomatic-threshold",
				Value: 10,
				Usage: "Cyclomatic complexity warning threshold",
			},
			&cli.IntFlag{
				Name:  "cognitive-threshold",
				Value: 15,
				Usage: "Cognitive complexity warning threshold",
			},
			&cli.BoolFlag{
				Name:  "functions-only",
				Usage: "Show only function-level metrics",
			},
		},
		Action: runComplexity,
	}
}

func runComplexity(c *cli.Context) error {
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

	cx := complexity.New()
	defer cx.Close()

	ctx := context.Background()
	var bar *progress.Indicator
	if !c.Bool("quiet") {
		bar = progress.NewBar("Measuring complexity...", len(files))
		tracker := analyzer.NewTracker(func(current, total int, path string) {
			bar.Tick()
		})
		tracker.SetTotal(len(files))
		ctx = analyzer.WithTracker(ctx, tracker)
	}

	analysis, err := cx.Analyze(ctx, files)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	if formatter.Format() == output.FormatJSON || formatter.Format() == output.FormatTOON {
		return formatter.Output(analysis)
	}

	cycThreshold := uint32(c.Int("cyclomatic-threshold"))
	cogThreshold := uint32(c.Int("cognitive-threshold"))

	var rows [][]string
	if c.Bool("functions-only") {
		for _, file := range analysis.Files {
			for _, fn := range file.Functions {
				cyc := fmt.Sprintf("%d", fn.Metrics.Cyclomatic)
				cog := fmt.Sprintf("%d", fn.Metrics.Cognitive)
				if formatter.Colored() {
					if fn.Metrics.Cyclomatic > cycThreshold {
						cyc = color.RedString(cyc)
					}
					if fn.Metrics.Cognitive > cogThreshold {
						cog = color.RedString(cog)
					}
				}
				rows = append(rows, []string{
					fmt.Sprintf("%s:%d", fn.File, fn.StartLine),
					fn.Name,
					cyc,
					cog,
				})
			}
		}
		table := output.NewTable("Function Complexity",
			[]string{"Location", "Function", "Cyclomatic", "Cognitive"},
			rows, nil, analysis)
		if err := formatter.Output(table); err != nil {
			return err
		}
	} else {
		for _, file := range analysis.Files {
			rows = append(rows, []string{
				file.Path,
				fmt.Sprintf("%d", len(file.Functions)),
				fmt.Sprintf("%.1f", file.AvgCyclomatic),
				fmt.Sprintf("%.1f", file.AvgCognitive),
			})
		}
		table := output.NewTable("File Complexity",
			[]string{"File", "Functions", "Avg Cyclomatic", "Avg Cognitive"},
			rows, nil, analysis)
		if err := formatter.Output(table); err != nil {
			return err
		}
	}

	s := analysis.Summary
	fmt.Fprintf(formatter.Writer(),
		"\nSummary: %d functions across %d files, avg cyclomatic %.1f (max %d, p95 %d), avg cognitive %.1f (max %d)\n",
		s.TotalFunctions, s.TotalFiles,
		s.AvgCyclomatic, s.MaxCyclomatic, s.P95Cyclomatic,
		s.AvgCognitive, s.MaxCognitive)

	return nil
}
