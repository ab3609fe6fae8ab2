package coding

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// LineChanges represents the number of lines added and removed in a modification.
type LineChanges struct {
	LinesAdded   int
	LinesRemoved int
}

// CalculateLineChanges computes the number of lines added and removed
// when transforming oldContent into newContent.
func CalculateLineChanges(oldContent, newContent string) LineChanges {
	oldLines := splitLines(oldContent)
	newLines := splitLines(newContent)

	return LineChanges{
		LinesAdded:   len(newLines),
		LinesRemoved: len(oldLines),
	}
}

// lineDelta reports the net line count change from oldContent to
// newContent. Exactly one of the two values is nonzero.
func lineDelta(oldContent, newContent string) (added, removed int) {
	oldCount := len(splitLines(oldContent))
	newCount := len(splitLines(newContent))
	if newCount > oldCount {
		return newCount - oldCount, 0
	}
	return 0, oldCount - newCount
}

// GenerateUnifiedDiff renders a line-oriented diff between two contents in
// unified style (`--- a/path` / `+++ b/path` headers with -/+/context
// lines). Used for previews; the diff is not fed back through the patch
// pipeline.
func GenerateUnifiedDiff(oldContent, newContent, path string) string {
	dmp := diffmatchpatch.New()
	oldChars, newChars, lineIndex := dmp.DiffLinesToChars(oldContent, newContent)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(oldChars, newChars, false), lineIndex)

	var sb strings.Builder
	fmt.Fprintf(&sb, "--- a/%s\n+++ b/%s\n", path, path)

	for _, diff := range diffs {
		var prefix string
		switch diff.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		default:
			prefix = " "
		}
		for _, line := range splitLines(diff.Text) {
			sb.WriteString(prefix)
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
	}

	return sb.String()
}

// splitLines splits content into lines, handling different line ending styles.
// Empty content returns an empty slice (not a slice with one empty string).
func splitLines(content string) []string {
	if content == "" {
		return []string{}
	}

	// Normalize line endings to \n
	normalized := strings.ReplaceAll(content, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	lines := strings.Split(normalized, "\n")

	// If the content ends with a newline, Split will create an empty string
	// at the end. Remove it to get accurate line count.
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	return lines
}

// detectLanguage returns a language identifier based on file extension
func detectLanguage(filename string) string {
	langMap := map[string]string{
		".go":   "go",
		".py":   "python",
		".js":   "javascript",
		".ts":   "javascript",
		".java": "java",
		".rs":   "rust",
		".c":    "c",
		".h":    "c",
		".cpp":  "cpp",
		".hpp":  "cpp",
		".rb":   "ruby",
		".php":  "php",
		".html": "html",
		".css":  "css",
		".json": "json",
		".yaml": "yaml",
		".yml":  "yaml",
		".md":   "markdown",
	}

	ext := strings.ToLower(filename)
	for suffix, lang := range langMap {
		if strings.HasSuffix(ext, suffix) {
			return lang
		}
	}
	return "text"
}
