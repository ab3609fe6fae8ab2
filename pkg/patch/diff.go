package patch

import "strings"

// newFileHeader marks the target-file line of a unified diff file section.
const newFileHeader = "+++ "

// ExtractTargetPaths scans a unified diff for `+++ ` headers and returns the
// target file paths in first-appearance order. A leading `b/` prefix is
// stripped, matching the -p1 strip level the executor applies. Repeated
// paths are kept as-is, and a document with no headers yields an empty
// slice; callers treat that as a malformed diff.
func ExtractTargetPaths(diff string) []string {
	paths := []string{}
	for _, line := range strings.Split(diff, "\n") {
		if !strings.HasPrefix(line, newFileHeader) {
			continue
		}
		path := line[len(newFileHeader):]
		// Drop the tab-separated timestamp some diff generators append.
		if i := strings.IndexByte(path, '\t'); i >= 0 {
			path = path[:i]
		}
		path = strings.TrimSpace(path)
		path = strings.TrimPrefix(path, "b/")
		paths = append(paths, path)
	}
	return paths
}
