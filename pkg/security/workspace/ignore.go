package workspace

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// defaultIgnorePatterns are always active regardless of ignore files.
var defaultIgnorePatterns = []string{
	".git/",
	".hg/",
	".svn/",
	"node_modules/",
	".DS_Store",
}

// ignoreFileNames are loaded from the workspace root when present,
// in precedence order (later files override earlier ones).
var ignoreFileNames = []string{".gitignore", ".anvilignore"}

// ignoreRule is a single compiled ignore pattern.
type ignoreRule struct {
	matcher  glob.Glob
	negated  bool // pattern started with '!'
	dirOnly  bool // pattern ended with '/'
	anchored bool // pattern contains '/' and matches against the full relative path
}

// IgnoreMatcher decides whether workspace-relative paths should be hidden
// from listings and searches. Patterns use gitignore-style syntax: glob
// patterns, trailing '/' for directory-only rules, and a leading '!' to
// re-include a previously ignored path. The last matching rule wins.
type IgnoreMatcher struct {
	rules []ignoreRule
}

// NewIgnoreMatcher builds a matcher from the default patterns plus any
// ignore files found in the workspace root. Missing ignore files are fine;
// unreadable ones are an error.
func NewIgnoreMatcher(workspaceDir string) (*IgnoreMatcher, error) {
	m := &IgnoreMatcher{}
	m.AddPatterns(defaultIgnorePatterns)

	for _, name := range ignoreFileNames {
		if err := m.loadFile(filepath.Join(workspaceDir, name)); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// AddPatterns appends extra patterns, e.g. from user configuration. They
// take precedence over previously loaded patterns. Patterns that fail to
// compile are skipped.
func (m *IgnoreMatcher) AddPatterns(patterns []string) {
	for _, pattern := range patterns {
		m.addPattern(pattern)
	}
}

// ShouldIgnore reports whether the workspace-relative path matches the
// ignore rules. isDir lets directory-only patterns apply correctly.
func (m *IgnoreMatcher) ShouldIgnore(relPath string, isDir bool) bool {
	relPath = filepath.ToSlash(relPath)
	ignored := false

	for _, rule := range m.rules {
		if rule.dirOnly && !isDir && !m.parentMatches(rule, relPath) {
			continue
		}
		if !m.ruleMatches(rule, relPath) {
			continue
		}
		ignored = !rule.negated
	}
	return ignored
}

// ruleMatches checks a single rule against the path. Anchored rules match
// the full relative path; unanchored ones match the base name or any path
// segment, mirroring gitignore behavior.
func (m *IgnoreMatcher) ruleMatches(rule ignoreRule, relPath string) bool {
	if rule.anchored {
		return rule.matcher.Match(relPath)
	}
	if rule.matcher.Match(filepath.Base(relPath)) {
		return true
	}
	for _, segment := range strings.Split(relPath, "/") {
		if rule.matcher.Match(segment) {
			return true
		}
	}
	return false
}

// parentMatches reports whether any ancestor directory of relPath matches a
// directory-only rule, so files inside ignored directories are ignored too.
func (m *IgnoreMatcher) parentMatches(rule ignoreRule, relPath string) bool {
	segments := strings.Split(relPath, "/")
	for i := 0; i < len(segments)-1; i++ {
		if rule.anchored {
			if rule.matcher.Match(strings.Join(segments[:i+1], "/")) {
				return true
			}
		} else if rule.matcher.Match(segments[i]) {
			return true
		}
	}
	return false
}

// loadFile reads one ignore file, skipping blank lines and comments.
func (m *IgnoreMatcher) loadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m.addPattern(line)
	}
	return scanner.Err()
}

func (m *IgnoreMatcher) addPattern(pattern string) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return
	}

	rule := ignoreRule{}
	if strings.HasPrefix(pattern, "!") {
		rule.negated = true
		pattern = pattern[1:]
	}
	if strings.HasSuffix(pattern, "/") {
		rule.dirOnly = true
		pattern = strings.TrimSuffix(pattern, "/")
	}
	// A leading slash anchors to the workspace root.
	pattern = strings.TrimPrefix(pattern, "/")
	rule.anchored = strings.Contains(pattern, "/")

	matcher, err := glob.Compile(pattern, '/')
	if err != nil {
		return
	}
	rule.matcher = matcher

	m.rules = append(m.rules, rule)
}
