// Package notes persists per-path annotations in a JSON file at the
// project root, shared by every tool session working in that tree.
package notes

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// FileName is the notes file looked up from the workspace root upward.
const FileName = ".anvil-notes.json"

// Notes maps workspace-relative paths to their key/value annotations.
type Notes map[string]map[string]string

// Store reads and writes the notes file for a workspace. The file lives in
// the nearest ancestor directory that already has one, so nested checkouts
// share their parent's notes; otherwise it is created in the workspace
// root. All operations are thread-safe within a process.
type Store struct {
	workspaceDir string
	mu           sync.Mutex
}

// NewStore creates a notes store rooted at the given workspace directory.
func NewStore(workspaceDir string) (*Store, error) {
	if workspaceDir == "" {
		return nil, fmt.Errorf("workspace directory cannot be empty")
	}
	absDir, err := filepath.Abs(workspaceDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace directory: %w", err)
	}
	return &Store{workspaceDir: absDir}, nil
}

// FilePath returns the notes file location: the nearest existing
// .anvil-notes.json walking up from the workspace root, or the workspace
// root itself when none exists yet.
func (s *Store) FilePath() string {
	current := s.workspaceDir
	for {
		candidate := filepath.Join(current, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(current)
		if parent == current {
			return filepath.Join(s.workspaceDir, FileName)
		}
		current = parent
	}
}

// Root returns the directory the notes file belongs to. Note keys are
// stored relative to this directory.
func (s *Store) Root() string {
	return filepath.Dir(s.FilePath())
}

// RelativePath converts a path to the notes-root-relative form used as a
// map key. Paths outside the notes root are an error.
func (s *Store) RelativePath(path string) (string, error) {
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(s.workspaceDir, path)
	}
	abs = filepath.Clean(abs)

	rel, err := filepath.Rel(s.Root(), abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s is not under notes root %s", path, s.Root())
	}
	return filepath.ToSlash(rel), nil
}

// Add creates or updates a note for a path under the given key.
func (s *Store) Add(path, key, note string) error {
	if key == "" {
		return fmt.Errorf("note key cannot be empty")
	}

	relPath, err := s.RelativePath(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load()
	if err != nil {
		return err
	}
	if all[relPath] == nil {
		all[relPath] = make(map[string]string)
	}
	all[relPath][key] = note

	return s.save(all)
}

// Remove deletes a note by path and key. Removing the last note for a path
// drops the path entry entirely. Missing notes are a no-op.
func (s *Store) Remove(path, key string) error {
	relPath, err := s.RelativePath(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load()
	if err != nil {
		return err
	}

	pathNotes, exists := all[relPath]
	if !exists {
		return nil
	}
	if _, exists := pathNotes[key]; !exists {
		return nil
	}

	delete(pathNotes, key)
	if len(pathNotes) == 0 {
		delete(all, relPath)
	}
	return s.save(all)
}

// All returns every note keyed by relative path.
func (s *Store) All() (Notes, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Paths returns the annotated paths in sorted order.
func (s *Store) Paths() ([]string, error) {
	all, err := s.All()
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(all))
	for path := range all {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths, nil
}

// load reads the notes file, returning an empty map when it doesn't exist.
func (s *Store) load() (Notes, error) {
	data, err := os.ReadFile(s.FilePath())
	if err != nil {
		if os.IsNotExist(err) {
			return Notes{}, nil
		}
		return nil, fmt.Errorf("failed to read notes file: %w", err)
	}

	var all Notes
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("failed to parse notes file: %w", err)
	}
	if all == nil {
		all = Notes{}
	}
	return all, nil
}

// save writes the notes file with stable formatting.
func (s *Store) save(all Notes) error {
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal notes: %w", err)
	}
	if err := os.WriteFile(s.FilePath(), data, 0600); err != nil {
		return fmt.Errorf("failed to write notes file: %w", err)
	}
	return nil
}
