// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package docx

import (
	"path"
	"slices"
	"strings"

	"github.com/beevik/etree"
)

// Import deep-copies blocks from src into p and returns the copies, ready
// to insert. Relationships the copies reference are re-created in p under
// fresh ids: parts are copied under new names, external targets are
// re-registered. Header and footer references are dropped, as are
// references that do not resolve in src. Styles used by the blocks are
// imported when p lacks them.
func (p *Package) Import(src *Package, blocks []*etree.Element) ([]*etree.Element, error) {
	p.mergeNamespaces(src)

	ids := make(map[string]string)   // src rel id -> p rel id
	parts := make(map[string]string) // src part name -> p rel id
	var out []*etree.Element
	for _, b := range blocks {
		c := b.Copy()
		p.remapRelationships(src, c, ids, parts)
		out = append(out, c)
	}
	if err := p.ImportStyles(src, usedStyles(out)); err != nil {
		return nil, err
	}
	p.levels = nil
	return out, nil
}

func (p *Package) remapRelationships(src *Package, e *etree.Element, ids, parts map[string]string) {
	for _, ref := range []string{"w:headerReference", "w:footerReference"} {
		if is(e, ref) {
			if parent := e.Parent(); parent != nil {
				parent.RemoveChild(e)
			}
			return
		}
	}
	for i := 0; i < len(e.Attr); i++ {
		a := &e.Attr[i]
		if a.Space != "r" {
			continue
		}
		newID, ok := ids[a.Value]
		if !ok {
			newID = p.copyRelationship(src, a.Value, parts)
			ids[a.Value] = newID
		}
		if newID == "" {
			e.RemoveAttr(a.Space + ":" + a.Key)
			i--
			continue
		}
		a.Value = newID
	}
	for _, c := range e.ChildElements() {
		p.remapRelationships(src, c, ids, parts)
	}
}

// copyRelationship re-creates one src relationship in p and returns the new
// id, or "" when it cannot be resolved.
func (p *Package) copyRelationship(src *Package, id string, parts map[string]string) string {
	rel, ok := src.Relationship(id)
	if !ok {
		return ""
	}
	if rel.External {
		return p.AddRelationship(rel.Type, rel.Target, true)
	}
	name := partName(rel.Target)
	if newID, ok := parts[name]; ok {
		return newID
	}
	data, ok := src.Part(name)
	if !ok {
		return ""
	}
	var newID string
	ext := strings.TrimPrefix(path.Ext(name), ".")
	if rel.Type == RelImage {
		newID = p.AddImage(data, ext)
	} else {
		dir, base := path.Split(name)
		base = strings.TrimRight(strings.TrimSuffix(base, path.Ext(base)), "0123456789")
		newName := p.uniquePartName(strings.TrimSuffix(dir, "/"), base, ext)
		p.addPart(newName, data)
		if ct := src.overrideFor(name); ct != "" {
			p.ensureOverride(newName, ct)
		}
		newID = p.AddRelationship(rel.Type, strings.TrimPrefix(newName, "word/"), false)
	}
	parts[name] = newID
	return newID
}

// mergeNamespaces declares on p's root every prefix src declares, so that
// copied markup stays well-formed, and unions mc:Ignorable.
func (p *Package) mergeNamespaces(src *Package) {
	dst, from := p.doc.Root(), src.doc.Root()
	for _, a := range from.Attr {
		if a.Space != "xmlns" {
			continue
		}
		if dst.SelectAttr("xmlns:"+a.Key) == nil {
			dst.CreateAttr("xmlns:"+a.Key, a.Value)
		}
	}
	ign := from.SelectAttrValue("mc:Ignorable", "")
	if ign == "" {
		return
	}
	have := strings.Fields(dst.SelectAttrValue("mc:Ignorable", ""))
	for _, prefix := range strings.Fields(ign) {
		if !slices.Contains(have, prefix) {
			have = append(have, prefix)
		}
	}
	if dst.SelectAttr("xmlns:mc") == nil {
		dst.CreateAttr("xmlns:mc", "http://schemas.openxmlformats.org/markup-compatibility/2006")
	}
	dst.CreateAttr("mc:Ignorable", strings.Join(have, " "))
}
