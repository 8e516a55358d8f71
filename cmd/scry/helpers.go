package main

import (
	"fmt"

	"github.com/panbanda/scry/internal/output"
	"github.com/panbanda/scry/internal/scanner"
	"github.com/panbanda/scry/pkg/config"
	"github.com/urfave/cli/v2"
)

// getPaths returns positional args, defaulting to the current directory.
func getPaths(c *cli.Context) []string {
	if c.Args().Len() > 0 {
		return c.Args().Slice()
	}
	return []string{"."}
}

// loadConfig resolves the configuration from --config or the standard
// locations and applies the --profile override.
func loadConfig(c *cli.Context) (*config.Config, error) {
	var cfg *config.Config
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.LoadOrDefault()
	}

	if profile := c.String("profile"); profile != "" {
		if err := cfg.ApplyProfile(profile); err != nil {
			return nil, err
		}
	}
	if format := c.String("format"); format != "" {
		cfg.Output.Format = format
	}
	if c.Bool("no-color") {
		cfg.Output.Color = false
	}

	return cfg, cfg.Validate()
}

// newFormatter builds the output formatter from the resolved config and
// the --output flag.
func newFormatter(c *cli.Context, cfg *config.Config) (*output.Formatter, error) {
	return output.NewFormatter(output.ParseFormat(cfg.Output.Format), c.String("output"), cfg.Output.Color)
}

// collectFiles resolves the CLI path arguments into analyzable files.
func collectFiles(c *cli.Context, cfg *config.Config) ([]string, error) {
	files, err := scanner.New(cfg).Scan(getPaths(c))
	if err != nil {
		return nil, fmt.Errorf("scanning paths: %w", err)
	}
	return files, nil
}
