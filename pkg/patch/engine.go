// Package patch implements the text patching core: ordered literal
// search/replace application and unified-diff application through an
// external patch utility.
package patch

import (
	"fmt"
	"strings"
)

// Edit is a single literal search/replace operation. Search text is matched
// by exact substring equality, never as a pattern.
type Edit struct {
	Search  string
	Replace string
}

// NotFoundError reports a search string that was absent from the content at
// the moment its edit was applied. It aborts a strict batch; callers must
// not persist any output once it is returned.
type NotFoundError struct {
	Search string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("search text not found in content:\n%s", e.Search)
}

// Apply runs the edits over content in order. Every occurrence of an edit's
// search text is replaced, and each edit operates on the output of the edits
// before it, so a later search may match text introduced by an earlier
// replacement.
//
// In strict mode the first unmatched search text aborts the batch with a
// *NotFoundError and the partially edited content is discarded. In lenient
// mode an unmatched search is a silent no-op and the (possibly unchanged)
// content is always returned.
func Apply(content string, edits []Edit, strict bool) (string, error) {
	for _, edit := range edits {
		if !strings.Contains(content, edit.Search) {
			if strict {
				return "", &NotFoundError{Search: edit.Search}
			}
			continue
		}
		content = strings.ReplaceAll(content, edit.Search, edit.Replace)
	}
	return content, nil
}
