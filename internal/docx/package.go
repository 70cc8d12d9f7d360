// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package docx reads, edits and writes WordprocessingML packages. It keeps
// every zip part it does not understand byte-for-byte and exposes the body
// of word/document.xml as an element tree.
package docx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/pdiddy/fieldbook/pkg/types"
)

const (
	partContentTypes = "[Content_Types].xml"
	partDocument     = "word/document.xml"
	partDocumentRels = "word/_rels/document.xml.rels"
	partStyles       = "word/styles.xml"
	partSettings     = "word/settings.xml"
	partFooterBase   = "footer"
)

// Relationship types.
const (
	RelImage     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
	RelHyperlink = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink"
	RelFooter    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/footer"
	RelHeader    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/header"
	RelStyles    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles"
	RelSettings  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/settings"
)

// Content types of the parts this package creates.
const (
	ctStyles   = "application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"
	ctSettings = "application/vnd.openxmlformats-officedocument.wordprocessingml.settings+xml"
	ctFooter   = "application/vnd.openxmlformats-officedocument.wordprocessingml.footer+xml"
)

type part struct {
	name string
	data []byte
}

// Package is an opened .docx file.
type Package struct {
	parts []*part
	index map[string]*part

	doc      *etree.Document
	rels     *etree.Document
	types    *etree.Document
	styles   *etree.Document
	settings *etree.Document

	// trees holds the parsed parts written back by Bytes.
	trees map[string]*etree.Document

	levels map[string]int
}

// Relationship is one entry of word/_rels/document.xml.rels.
type Relationship struct {
	ID       string
	Type     string
	Target   string
	External bool
}

// Open reads the package at path.
func Open(path string) (*Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.Malformed(filepath.Base(path), err)
	}
	return Read(data)
}

// Read parses a package from memory.
func Read(data []byte) (*Package, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, types.Malformed("not a zip archive", err)
	}
	p := &Package{index: make(map[string]*part), trees: make(map[string]*etree.Document)}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, types.Malformed(f.Name, err)
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, types.Malformed(f.Name, err)
		}
		p.addPart(f.Name, b)
	}

	if p.doc, err = p.parse(partDocument); err != nil {
		return nil, err
	}
	if p.types, err = p.parse(partContentTypes); err != nil {
		return nil, err
	}
	if p.Body() == nil {
		return nil, types.Malformed(partDocument+": no w:body", nil)
	}
	if _, ok := p.index[partDocumentRels]; ok {
		if p.rels, err = p.parse(partDocumentRels); err != nil {
			return nil, err
		}
	} else {
		p.rels = etree.NewDocument()
		if err := p.rels.ReadFromString(emptyRelsXML); err != nil {
			return nil, err
		}
		p.addPart(partDocumentRels, nil)
	}
	p.trees[partDocument] = p.doc
	p.trees[partContentTypes] = p.types
	p.trees[partDocumentRels] = p.rels
	return p, nil
}

// New returns a blank document carrying the styles the pipeline writes.
func New() *Package {
	p, err := Read(blankPackage())
	if err != nil {
		panic(fmt.Sprintf("docx: blank template: %v", err))
	}
	return p
}

func (p *Package) parse(name string) (*etree.Document, error) {
	pt, ok := p.index[name]
	if !ok {
		return nil, types.Malformed("missing part "+name, nil)
	}
	d := etree.NewDocument()
	if err := d.ReadFromBytes(pt.data); err != nil {
		return nil, types.Malformed(name, err)
	}
	return d, nil
}

func (p *Package) addPart(name string, data []byte) {
	if pt, ok := p.index[name]; ok {
		pt.data = data
		return
	}
	pt := &part{name: name, data: data}
	p.parts = append(p.parts, pt)
	p.index[name] = pt
}

// Part returns the raw bytes of a part.
func (p *Package) Part(name string) ([]byte, bool) {
	pt, ok := p.index[name]
	if !ok {
		return nil, false
	}
	return pt.data, true
}

// Bytes serializes the package.
func (p *Package) Bytes() ([]byte, error) {
	for name, d := range p.trees {
		b, err := d.WriteToBytes()
		if err != nil {
			return nil, fmt.Errorf("serializing %s: %w", name, err)
		}
		p.addPart(name, b)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, pt := range p.parts {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: pt.name, Method: zip.Deflate})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(pt.data); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes the package to path through a temporary file in the same
// directory, so a failed write never leaves a truncated document behind.
func (p *Package) Save(path string) error {
	data, err := p.Bytes()
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	return WriteFile(path, data)
}

// WriteFile writes data to path through a temporary file and rename.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return types.IOError("creating "+dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".fieldbook-*.tmp")
	if err != nil {
		return types.IOError("creating temp file", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return types.IOError("writing "+filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return types.IOError("closing "+filepath.Base(path), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return types.IOError("renaming to "+filepath.Base(path), err)
	}
	return nil
}

// Relationships lists the document relationships.
func (p *Package) Relationships() []Relationship {
	var out []Relationship
	for _, r := range p.rels.Root().ChildElements() {
		out = append(out, Relationship{
			ID:       r.SelectAttrValue("Id", ""),
			Type:     r.SelectAttrValue("Type", ""),
			Target:   r.SelectAttrValue("Target", ""),
			External: r.SelectAttrValue("TargetMode", "") == "External",
		})
	}
	return out
}

// Relationship looks up a document relationship by id.
func (p *Package) Relationship(id string) (Relationship, bool) {
	for _, r := range p.Relationships() {
		if r.ID == id {
			return r, true
		}
	}
	return Relationship{}, false
}

// AddRelationship registers a relationship and returns its new id.
func (p *Package) AddRelationship(typ, target string, external bool) string {
	id := p.nextRelID()
	r := p.rels.Root().CreateElement("Relationship")
	r.CreateAttr("Id", id)
	r.CreateAttr("Type", typ)
	r.CreateAttr("Target", target)
	if external {
		r.CreateAttr("TargetMode", "External")
	}
	return id
}

func (p *Package) nextRelID() string {
	taken := make(map[string]bool)
	n := 0
	for _, r := range p.Relationships() {
		taken[r.ID] = true
		if v, err := strconv.Atoi(strings.TrimPrefix(r.ID, "rId")); err == nil && v > n {
			n = v
		}
	}
	for {
		n++
		id := "rId" + strconv.Itoa(n)
		if !taken[id] {
			return id
		}
	}
}

// partName resolves a relationship target against word/document.xml.
func partName(target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Join("word", target)
}

// uniquePartName returns dir/base{N}.ext for the first N not in use.
func (p *Package) uniquePartName(dir, base, ext string) string {
	for n := 1; ; n++ {
		name := fmt.Sprintf("%s/%s%d.%s", dir, base, n, ext)
		if _, ok := p.index[name]; !ok {
			return name
		}
	}
}

// ensureDefault registers a content type for a file extension.
func (p *Package) ensureDefault(ext, contentType string) {
	root := p.types.Root()
	for _, d := range root.SelectElements("Default") {
		if strings.EqualFold(d.SelectAttrValue("Extension", ""), ext) {
			return
		}
	}
	d := etree.NewElement("Default")
	d.CreateAttr("Extension", ext)
	d.CreateAttr("ContentType", contentType)
	// Defaults precede Overrides.
	pos := len(root.Child)
	if first := root.SelectElement("Override"); first != nil {
		pos = first.Index()
	}
	root.InsertChildAt(pos, d)
}

// ensureOverride registers a content type for one part.
func (p *Package) ensureOverride(name, contentType string) {
	root := p.types.Root()
	pn := "/" + name
	for _, o := range root.SelectElements("Override") {
		if o.SelectAttrValue("PartName", "") == pn {
			o.CreateAttr("ContentType", contentType)
			return
		}
	}
	o := root.CreateElement("Override")
	o.CreateAttr("PartName", pn)
	o.CreateAttr("ContentType", contentType)
}

// overrideFor returns the override content type registered for a part.
func (p *Package) overrideFor(name string) string {
	pn := "/" + name
	for _, o := range p.types.Root().SelectElements("Override") {
		if o.SelectAttrValue("PartName", "") == pn {
			return o.SelectAttrValue("ContentType", "")
		}
	}
	return ""
}

// relatedPart returns the part named by the first relationship of the given
// type, adding it from template when the document has none.
func (p *Package) relatedPart(relType, name, contentType, template string) (*etree.Document, error) {
	for _, r := range p.Relationships() {
		if r.Type != relType || r.External {
			continue
		}
		name = partName(r.Target)
		if d, ok := p.trees[name]; ok {
			return d, nil
		}
		d, err := p.parse(name)
		if err != nil {
			return nil, err
		}
		p.trees[name] = d
		return d, nil
	}
	d := etree.NewDocument()
	if err := d.ReadFromString(template); err != nil {
		return nil, err
	}
	p.addPart(name, nil)
	p.trees[name] = d
	p.ensureOverride(name, contentType)
	p.AddRelationship(relType, strings.TrimPrefix(name, "word/"), false)
	return d, nil
}
