// Package analyzer defines the common contract shared by the analysis
// passes and the progress plumbing they report through.
package analyzer

import "context"

// FileAnalyzer is implemented by every analyzer that operates on a set
// of source files.
type FileAnalyzer[T any] interface {
	// Analyze processes the files and returns the result. The context
	// carries cancellation and, optionally, a progress Tracker.
	Analyze(ctx context.Context, files []string) (T, error)

	// Close releases parser resources held by the analyzer.
	Close()
}
