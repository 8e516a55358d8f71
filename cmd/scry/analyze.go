package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/panbanda/scry/internal/progress"
	"github.com/panbanda/scry/pkg/analyzer"
	"github.com/panbanda/scry/pkg/quality"
	"github.com/urfave/cli/v2"
)

func analyzeCmd() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Aliases:   []string{"a"},
		Usage:     "Run the full quality analysis and produce a scored report",
		ArgsUsage: "[path...]",
		Action:    runAnalyze,
	}
}

func runAnalyze(c *cli.Context) error {
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

	engine, err := quality.New(cfg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	var bar *progress.Indicator
	if !c.Bool("quiet") {
		bar = progress.NewBar("Analyzing files...", len(files))
		tracker := analyzer.NewTracker(func(current, total int, path string) {
			bar.Tick()
		})
		tracker.SetTotal(len(files))
		ctx = analyzer.WithTracker(ctx, tracker)
	}

	report, err := engine.AnalyzeFiles(ctx, files)
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

	return formatter.Output(report)
}
