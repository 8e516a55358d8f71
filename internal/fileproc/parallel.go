// Package fileproc provides concurrent file processing utilities.
package fileproc

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/panbanda/scry/pkg/parser"
	"github.com/sourcegraph/conc/pool"
)

// ProcessingError represents an error that occurred while processing a file.
type ProcessingError struct {
	Path string
	Err  error
}

func (e ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// ProcessingErrors collects multiple file processing errors.
// Individual file failures never abort a batch; callers inspect the
// collection after the pool drains.
type ProcessingErrors struct {
	Errors []ProcessingError
	mu     sync.Mutex
}

// Add appends an error to the collection (thread-safe).
func (e *ProcessingErrors) Add(path string, err error) {
	e.mu.Lock()
	e.Errors = append(e.Errors, ProcessingError{Path: path, Err: err})
	e.mu.Unlock()
}

// HasErrors returns true if any errors were collected.
func (e *ProcessingErrors) HasErrors() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Errors) > 0
}

// Error implements the error interface.
func (e *ProcessingErrors) Error() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d files failed to process (first: %v)", len(e.Errors), e.Errors[0])
}

// DefaultWorkerMultiplier is the multiplier applied to NumCPU for the
// worker count.
const DefaultWorkerMultiplier = 2

// ProgressFunc is called after each file is processed.
type ProgressFunc func()

// MaxWorkers returns the default worker count for per-file passes.
func MaxWorkers() int {
	return runtime.NumCPU() * DefaultWorkerMultiplier
}

// MapFiles processes files in parallel, calling fn for each file with a
// dedicated parser. Results are collected in arbitrary order; pool.Wait
// is the barrier after which all results are visible.
func MapFiles[T any](ctx context.Context, files []string, fn func(*parser.Parser, string) (T, error)) ([]T, *ProcessingErrors) {
	return MapFilesWithProgress(ctx, files, fn, nil)
}

// MapFilesWithProgress processes files in parallel with an optional
// progress callback invoked once per file.
func MapFilesWithProgress[T any](ctx context.Context, files []string, fn func(*parser.Parser, string) (T, error), onProgress ProgressFunc) ([]T, *ProcessingErrors) {
	return MapFilesN(ctx, files, 0, fn, onProgress)
}

// MapFilesN processes files with a configurable worker count.
// If maxWorkers is <= 0, defaults to 2x NumCPU.
func MapFilesN[T any](ctx context.Context, files []string, maxWorkers int, fn func(*parser.Parser, string) (T, error), onProgress ProgressFunc) ([]T, *ProcessingErrors) {
	if len(files) == 0 {
		return nil, nil
	}

	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU() * DefaultWorkerMultiplier
	}

	results := make([]T, 0, len(files))
	errs := &ProcessingErrors{}
	var mu sync.Mutex

	p := pool.New().WithMaxGoroutines(maxWorkers).WithContext(ctx)
	for _, path := range files {
		p.Go(func(ctx context.Context) error {
			select {
			case <-ctx.Done():
				errs.Add(path, ctx.Err())
				return ctx.Err()
			default:
			}

			psr := parser.New()
			defer psr.Close()

			result, err := fn(psr, path)

			if onProgress != nil {
				onProgress()
			}

			if err != nil {
				errs.Add(path, err)
				return nil // Individual file errors don't stop the pool
			}

			mu.Lock()
			results = append(results, result)
			mu.Unlock()
			return nil
		})
	}
	_ = p.Wait() // Context errors are already captured in errs

	if !errs.HasErrors() {
		return results, nil
	}
	return results, errs
}
