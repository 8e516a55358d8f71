// Package scanner walks directories and collects the Python source
// files that analysis should see, honoring configured exclusions and
// .gitignore files.
package scanner

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/panbanda/scry/pkg/config"
	"github.com/panbanda/scry/pkg/parser"
)

// Scanner finds Python source files under a root directory.
type Scanner struct {
	config  *config.Config
	matcher gitignore.Matcher
}

// New creates a scanner using the given configuration.
func New(cfg *config.Config) *Scanner {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Scanner{config: cfg}
}

// findGitRoot walks upward from start looking for a .git directory.
// Returns empty string when start is not inside a repository.
func findGitRoot(start string) string {
	dir := start
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadPatterns builds the gitignore matcher from configured patterns
// plus any .gitignore files found in the enclosing repository.
func (s *Scanner) loadPatterns(root string) {
	var patterns []gitignore.Pattern

	for _, dir := range s.config.Exclude.Dirs {
		patterns = append(patterns, gitignore.ParsePattern(dir+"/", nil))
	}
	for _, pattern := range s.config.Exclude.Patterns {
		patterns = append(patterns, gitignore.ParsePattern(pattern, nil))
	}

	if s.config.Exclude.Gitignore {
		if gitRoot := findGitRoot(root); gitRoot != "" {
			repoFS := osfs.New(gitRoot)
			if gitPatterns, err := gitignore.ReadPatterns(repoFS, nil); err == nil {
				patterns = append(patterns, gitPatterns...)
			}
		}
	}

	if len(patterns) > 0 {
		s.matcher = gitignore.NewMatcher(patterns)
	}
}

func (s *Scanner) isExcluded(relPath string, isDir bool) bool {
	if s.matcher == nil {
		return false
	}
	return s.matcher.Match(strings.Split(relPath, string(filepath.Separator)), isDir)
}

// ScanDir recursively collects analyzable files under root. Symlinks
// that resolve outside the root are skipped.
func (s *Scanner) ScanDir(root string) ([]string, error) {
	files := make([]string, 0, 256)

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	absRoot, err = filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, err
	}

	s.loadPatterns(root)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		relPath, _ := filepath.Rel(root, path)

		if d.Type()&fs.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(path)
			if err != nil || !isWithinRoot(resolved, absRoot) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}

		if d.IsDir() {
			if path != root && s.isExcluded(relPath, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if s.isExcluded(relPath, false) {
			return nil
		}
		if parser.DetectLanguage(path) != parser.LangUnknown {
			files = append(files, path)
		}

		return nil
	})

	return files, walkErr
}

// isWithinRoot reports whether path is contained in root after
// normalization. The separator suffix prevents "/root2" matching
// "/root".
func isWithinRoot(path, root string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}

	absPath = filepath.Clean(absPath)
	root = filepath.Clean(root)

	return absPath == root || strings.HasPrefix(absPath, root+string(filepath.Separator))
}

// ScanFile reports whether a single file should be analyzed.
func (s *Scanner) ScanFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}

	if s.matcher == nil {
		s.loadPatterns(filepath.Dir(path))
	}
	if s.isExcluded(filepath.Base(path), false) {
		return false, nil
	}

	return parser.DetectLanguage(path) != parser.LangUnknown, nil
}

// Scan resolves a mixed list of file and directory arguments into the
// full set of analyzable files, deduplicated and sorted by walk order.
func (s *Scanner) Scan(paths []string) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string

	add := func(path string) {
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		files = append(files, path)
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			found, err := s.ScanDir(path)
			if err != nil {
				return nil, err
			}
			for _, f := range found {
				add(f)
			}
			continue
		}
		ok, err := s.ScanFile(path)
		if err != nil {
			return nil, err
		}
		if ok {
			add(path)
		}
	}

	return files, nil
}
