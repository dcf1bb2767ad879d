package domain

import "strings"

// CollapseContent implements the Cohere/Gemini normalization rule: an
// ordered sequence of content parts collapses to a single concatenated
// string when it contains no non-text items, and is otherwise emitted as
// the ordered list.
func CollapseContent(parts []ContentPart, hasNonText bool) (content string, ordered []ContentPart) {
	if hasNonText {
		return "", parts
	}
	var b strings.Builder
	for _, p := range parts {
		if p.Type == "text" {
			b.WriteString(p.Text)
		}
	}
	return b.String(), nil
}
