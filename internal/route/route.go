// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package route discovers route files and folders and orders them by route
// number, so that L9 sorts before L10.
package route

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/fieldbook/pkg/types"
)

// lockPrefix marks the owner files Word leaves next to open documents.
const lockPrefix = "~$"

// Parser extracts route codes from file and folder names.
type Parser struct {
	pattern *regexp.Regexp
}

// NewParser compiles a route-name pattern. The pattern's first group must
// capture the route number.
func NewParser(pattern string) (*Parser, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: route pattern %q: %w", types.ErrConfiguration, pattern, err)
	}
	if re.NumSubexp() < 1 {
		return nil, fmt.Errorf("%w: route pattern %q has no number group", types.ErrConfiguration, pattern)
	}
	return &Parser{pattern: re}, nil
}

// Parse returns the route named by name (a base name, extension included
// or not).
func (p *Parser) Parse(name string) (types.Route, bool) {
	m := p.pattern.FindStringSubmatch(name)
	if m == nil {
		return types.Route{}, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return types.Route{}, false
	}
	return types.Route{ID: strings.ToUpper(m[0]), Number: n}, true
}

// Entry is a discovered route input.
type Entry struct {
	Route types.Route
	Path  string
}

// Discovery is the result of scanning a directory.
type Discovery struct {
	Entries []Entry

	// Duplicates holds inputs whose route was already claimed by an earlier
	// entry in name order.
	Duplicates []Entry
}

// DiscoverFiles lists files in dir whose extension is ext (case-insensitive)
// and whose name carries a route code. A missing directory yields no entries.
func DiscoverFiles(dir, ext string, p *Parser) (Discovery, error) {
	return discover(dir, p, func(d fs.DirEntry) bool {
		return !d.IsDir() && strings.EqualFold(filepath.Ext(d.Name()), ext)
	})
}

// DiscoverFolders lists route project folders under root.
func DiscoverFolders(root string, p *Parser) (Discovery, error) {
	return discover(root, p, func(d fs.DirEntry) bool { return d.IsDir() })
}

func discover(dir string, p *Parser, keep func(fs.DirEntry) bool) (Discovery, error) {
	var out Discovery
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return out, nil
	}
	if err != nil {
		return out, fmt.Errorf("reading %s: %w", dir, err)
	}

	seen := make(map[string]bool)
	for _, d := range entries {
		name := d.Name()
		if strings.HasPrefix(name, lockPrefix) || strings.HasPrefix(name, ".") || !keep(d) {
			continue
		}
		r, ok := p.Parse(name)
		if !ok {
			continue
		}
		e := Entry{Route: r, Path: filepath.Join(dir, name)}
		if seen[r.ID] {
			out.Duplicates = append(out.Duplicates, e)
			continue
		}
		seen[r.ID] = true
		out.Entries = append(out.Entries, e)
	}
	Sort(out.Entries)
	return out, nil
}

// Sort orders entries by route number, then by id.
func Sort(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].Route, entries[j].Route
		if a.Number != b.Number {
			return a.Number < b.Number
		}
		return a.ID < b.ID
	})
}

// Index maps route ids to entries.
func Index(entries []Entry) map[string]Entry {
	m := make(map[string]Entry, len(entries))
	for _, e := range entries {
		m[e.Route.ID] = e
	}
	return m
}

// OutputPath returns dir/{route}.docx.
func OutputPath(dir string, r types.Route) string {
	return filepath.Join(dir, r.ID+".docx")
}
