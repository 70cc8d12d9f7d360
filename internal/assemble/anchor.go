// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package assemble

import (
	"fmt"
	"strings"

	"github.com/pdiddy/fieldbook/internal/docx"
	"github.com/pdiddy/fieldbook/internal/label"
	"github.com/pdiddy/fieldbook/pkg/types"
)

// AnchorMatcher finds candidate self-check anchors in a report. It returns
// block indexes and leaves the ambiguity policy to Locate.
type AnchorMatcher interface {
	Match(pkg *docx.Package) []int
}

// PhraseMatcher matches paragraphs whose field label equals one of its
// phrases once full-width forms, spacing and list markers are folded away.
type PhraseMatcher struct {
	phrases []string
}

// NewPhraseMatcher returns a matcher for the given anchor phrases.
func NewPhraseMatcher(phrases []string) (*PhraseMatcher, error) {
	var kept []string
	for _, p := range phrases {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("%w: no self-check anchor phrases", types.ErrConfiguration)
	}
	return &PhraseMatcher{phrases: kept}, nil
}

// Match implements AnchorMatcher.
func (m *PhraseMatcher) Match(pkg *docx.Package) []int {
	var out []int
	for i, b := range pkg.Blocks() {
		if !docx.IsParagraph(b) {
			continue
		}
		f := label.Split(label.StripEnumeration(docx.Text(b)))
		for _, p := range m.phrases {
			if label.Equal(f.Label, p) {
				out = append(out, i)
				break
			}
		}
	}
	return out
}

// Locate returns the single anchor block of pkg.
func Locate(pkg *docx.Package, m AnchorMatcher) (int, error) {
	found := m.Match(pkg)
	switch len(found) {
	case 0:
		return -1, types.ErrMissingAnchor
	case 1:
		return found[0], nil
	default:
		return -1, fmt.Errorf("%w: %d candidates at blocks %v", types.ErrAmbiguousAnchor, len(found), found)
	}
}

// Extent returns the index just past the anchor's content: the body blocks
// that follow it up to the next level 1 or 2 heading, or through the first
// section break.
func Extent(pkg *docx.Package, anchor int) int {
	blocks := pkg.Blocks()
	if docx.IsSectionBreak(blocks[anchor]) {
		return anchor + 1
	}
	i := anchor + 1
	for ; i < len(blocks); i++ {
		if lvl := pkg.HeadingLevel(blocks[i]); lvl == 1 || lvl == 2 {
			break
		}
		if docx.IsSectionBreak(blocks[i]) {
			return i + 1
		}
	}
	return i
}
