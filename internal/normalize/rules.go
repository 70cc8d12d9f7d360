// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pdiddy/fieldbook/pkg/types"
)

type headingRule struct {
	re    *regexp.Regexp
	level int
}

// Rules is the compiled form of types.Patterns.
type Rules struct {
	patterns  types.Patterns
	routeCode *regexp.Regexp
	pointCode *regexp.Regexp
	headings  []headingRule
	spacers   map[string]types.SpacerRule
}

// Compile validates and compiles the pattern tables.
func Compile(p types.Patterns) (*Rules, error) {
	r := &Rules{patterns: p, spacers: make(map[string]types.SpacerRule)}
	var err error
	if r.routeCode, err = compileOne("route_code", p.RouteCode); err != nil {
		return nil, err
	}
	if r.pointCode, err = compileOne("point_code", p.PointCode); err != nil {
		return nil, err
	}
	for _, h := range p.Headings {
		if h.Level != 1 && h.Level != 2 {
			return nil, fmt.Errorf("%w: heading %q: level must be 1 or 2, got %d", types.ErrConfiguration, h.Pattern, h.Level)
		}
		re, err := compileOne("heading", h.Pattern)
		if err != nil {
			return nil, err
		}
		r.headings = append(r.headings, headingRule{re: re, level: h.Level})
	}
	for _, s := range p.Spacers {
		r.spacers[s.Chunk] = s
	}
	if len(p.Chunks) == 0 {
		return nil, fmt.Errorf("%w: empty chunk vocabulary", types.ErrConfiguration)
	}
	return r, nil
}

func compileOne(what, pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %s pattern %q: %w", types.ErrConfiguration, what, pattern, err)
	}
	return re, nil
}

// headingLevel returns the level of the first heading rule matching text,
// or 0.
func (r *Rules) headingLevel(text string) int {
	text = strings.TrimSpace(text)
	for _, h := range r.headings {
		if h.re.MatchString(text) {
			return h.level
		}
	}
	return 0
}

// title renders the synthesized route title.
func (r *Rules) title(routeID string, points []string) string {
	if len(points) == 0 {
		return strings.ReplaceAll(r.patterns.TitleNoPoints, "{route}", routeID)
	}
	return strings.NewReplacer(
		"{route}", routeID,
		"{first}", points[0],
		"{last}", points[len(points)-1],
	).Replace(r.patterns.Title)
}
