package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/urfave/cli/v2"
)

func TestGetPaths(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "no args defaults to current dir",
			args:     []string{},
			expected: []string{"."},
		},
		{
			name:     "single path",
			args:     []string{"/foo/bar"},
			expected: []string{"/foo/bar"},
		},
		{
			name:     "multiple paths",
			args:     []string{"/foo", "/bar"},
			expected: []string{"/foo", "/bar"},
		},
		{
			name:     "filters out format flag",
			args:     []string{"--format", "json", "/foo"},
			expected: []string{"/foo"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := &cli.App{
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}},
				},
				Action: func(c *cli.Context) error {
					result := getPaths(c)
					if len(result) != len(tt.expected) {
						t.Errorf("getPaths() = %v, want %v", result, tt.expected)
						return nil
					}
					for i := range result {
						if result[i] != tt.expected[i] {
							t.Errorf("getPaths()[%d] = %q, want %q", i, result[i], tt.expected[i])
						}
					}
					return nil
				},
			}
			if err := app.Run(append([]string{"scry"}, tt.args...)); err != nil {
				t.Fatalf("app.Run: %v", err)
			}
		})
	}
}

func TestInitCommand(t *testing.T) {
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "scry.toml")

	app := &cli.App{Commands: []*cli.Command{initCmd()}}
	if err := app.Run([]string{"scry", "init", "--path", cfgPath}); err != nil {
		t.Fatalf("init: %v", err)
	}

	if _, err := os.Stat(cfgPath); err != nil {
		t.Fatalf("config file not created: %v", err)
	}

	// Second run without --force must refuse to overwrite.
	if err := app.Run([]string{"scry", "init", "--path", cfgPath}); err == nil {
		t.Error("init should fail when the config file exists")
	}

	if err := app.Run([]string{"scry", "init", "--path", cfgPath, "--force"}); err != nil {
		t.Errorf("init --force: %v", err)
	}
}

func TestConfidenceRank(t *testing.T) {
	if confidenceRank("high") <= confidenceRank("medium") {
		t.Error("high should rank above medium")
	}
	if confidenceRank("medium") <= confidenceRank("low") {
		t.Error("medium should rank above low")
	}
	if confidenceRank("unknown") != 0 {
		t.Error("unknown tiers should rank lowest")
	}
}
