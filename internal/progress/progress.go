// Package progress renders terminal progress indicators on stderr so
// report output on stdout stays clean for piping.
package progress

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
)

// Indicator wraps a progress bar for long-running analysis phases.
type Indicator struct {
	bar   *progressbar.ProgressBar
	label string
}

// NewSpinner creates a spinner for phases with an unknown item count,
// such as the initial directory walk.
func NewSpinner(label string) *Indicator {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(20),
		progressbar.OptionSetDescription(label),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	return &Indicator{bar: bar, label: label}
}

// NewBar creates a counting bar sized to the number of files to analyze.
func NewBar(label string, total int) *Indicator {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription(label),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	return &Indicator{bar: bar, label: label}
}

// Tick advances the indicator by one item. Safe for concurrent use.
func (in *Indicator) Tick() {
	in.bar.Add(1)
}

// Finish clears the indicator without printing anything.
func (in *Indicator) Finish() {
	in.bar.Finish()
	in.bar.Clear()
}

// FinishError clears the indicator and reports the failure on stderr.
func (in *Indicator) FinishError(err error) {
	in.bar.Finish()
	in.bar.Clear()
	fmt.Fprintf(os.Stderr, "  %s failed: %v\n", in.label, err)
}
