package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/panbanda/scry/pkg/config"
	"github.com/urfave/cli/v2"
)

func initCmd() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Write a default scry.toml configuration file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "path",
				Value: "scry.toml",
				Usage: "Config file path to create",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite an existing config file",
			},
		},
		Action: runInit,
	}
}

func runInit(c *cli.Context) error {
	path := c.String("path")

	if _, err := os.Stat(path); err == nil && !c.Bool("force") {
		return fmt.Errorf("config file %q already exists (use --force to overwrite)", path)
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory %q: %w", dir, err)
		}
	}

	if err := config.WriteDefault(path); err != nil {
		return err
	}

	color.Green("Created %s", path)
	fmt.Println("Edit this file to customize analysis settings.")
	return nil
}
