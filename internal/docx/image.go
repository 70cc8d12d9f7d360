// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package docx

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"image/png"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/pdiddy/fieldbook/pkg/types"
)

var imageContentTypes = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"tif":  "image/tiff",
	"tiff": "image/tiff",
	"emf":  "image/x-emf",
	"wmf":  "image/x-wmf",
}

// Image is a picture referenced from the body.
type Image struct {
	RelID  string
	Target string
	Data   []byte
}

// Fingerprint returns the hex sha256 of image bytes.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Images resolves every a:blip in the body to its image part. Blips whose
// relationship or part is missing are left out.
func (p *Package) Images() []Image {
	return p.ImagesIn(p.Body())
}

// ImagesIn is Images restricted to one element.
func (p *Package) ImagesIn(e *etree.Element) []Image {
	var out []Image
	for _, blip := range e.FindElements(".//a:blip") {
		id := blip.SelectAttrValue("r:embed", "")
		rel, ok := p.Relationship(id)
		if !ok || rel.External {
			continue
		}
		data, ok := p.Part(partName(rel.Target))
		if !ok {
			continue
		}
		out = append(out, Image{RelID: id, Target: rel.Target, Data: data})
	}
	return out
}

// AddImage stores image bytes as a new media part and returns the
// relationship id that references it.
func (p *Package) AddImage(data []byte, ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	ct, ok := imageContentTypes[ext]
	if !ok {
		ct = "image/" + ext
	}
	name := p.uniquePartName("word/media", "image", ext)
	p.addPart(name, data)
	p.ensureDefault(ext, ct)
	return p.AddRelationship(RelImage, strings.TrimPrefix(name, "word/"), false)
}

// PNGExtent returns the EMU extent of a PNG rendered at width, keeping its
// aspect ratio.
func PNGExtent(data []byte, width int64) (cx, cy int64, err error) {
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, types.Malformed("png", err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return 0, 0, types.Malformed(fmt.Sprintf("png has zero size %dx%d", cfg.Width, cfg.Height), nil)
	}
	return width, width * int64(cfg.Height) / int64(cfg.Width), nil
}

// nextDrawingID returns a wp:docPr id not yet used in the body.
func (p *Package) nextDrawingID() int {
	n := 0
	for _, d := range p.Body().FindElements(".//wp:docPr") {
		if v, err := strconv.Atoi(d.SelectAttrValue("id", "")); err == nil && v > n {
			n = v
		}
	}
	return n + 1
}

const pictureXML = `<w:p><w:r><w:drawing>` +
	`<wp:inline distT="0" distB="0" distL="0" distR="0">` +
	`<wp:extent cx="%[1]d" cy="%[2]d"/><wp:effectExtent l="0" t="0" r="0" b="0"/>` +
	`<wp:docPr id="%[3]d" name="%[4]s"/>` +
	`<wp:cNvGraphicFramePr><a:graphicFrameLocks noChangeAspect="1"/></wp:cNvGraphicFramePr>` +
	`<a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/picture">` +
	`<pic:pic><pic:nvPicPr><pic:cNvPr id="0" name="%[4]s"/><pic:cNvPicPr/></pic:nvPicPr>` +
	`<pic:blipFill><a:blip r:embed="%[5]s"/><a:stretch><a:fillRect/></a:stretch></pic:blipFill>` +
	`<pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%[1]d" cy="%[2]d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr>` +
	`</pic:pic></a:graphicData></a:graphic></wp:inline></w:drawing></w:r></w:p>`

// NewPictureParagraph builds a paragraph with one inline picture. The
// package must be the one that owns relID.
func (p *Package) NewPictureParagraph(relID, name string, cx, cy int64) *etree.Element {
	var esc strings.Builder
	xml.EscapeText(&esc, []byte(name))
	frag := fmt.Sprintf(pictureXML, cx, cy, p.nextDrawingID(), esc.String(), relID)
	d := etree.NewDocument()
	if err := d.ReadFromString(frag); err != nil {
		panic(fmt.Sprintf("docx: picture template: %v", err))
	}
	el := d.Root()
	d.RemoveChild(el)
	return el
}

// ResizeImages scales down every inline or anchored picture wider than
// maxCX, keeping its aspect ratio. It returns how many were resized.
func (p *Package) ResizeImages(maxCX int64) int {
	n := 0
	for _, d := range p.Body().FindElements(".//w:drawing") {
		for _, ext := range d.FindElements(".//wp:extent") {
			cx, _ := strconv.ParseInt(ext.SelectAttrValue("cx", "0"), 10, 64)
			cy, _ := strconv.ParseInt(ext.SelectAttrValue("cy", "0"), 10, 64)
			if cx <= maxCX || cx == 0 {
				continue
			}
			ncy := cy * maxCX / cx
			ext.CreateAttr("cx", strconv.FormatInt(maxCX, 10))
			ext.CreateAttr("cy", strconv.FormatInt(ncy, 10))
			for _, x := range d.FindElements(".//a:xfrm/a:ext") {
				x.CreateAttr("cx", strconv.FormatInt(maxCX, 10))
				x.CreateAttr("cy", strconv.FormatInt(ncy, 10))
			}
			n++
		}
	}
	return n
}

// Extent returns the total rendered height in EMU of the pictures in e.
func Extent(e *etree.Element) int64 {
	var h int64
	for _, ext := range e.FindElements(".//wp:extent") {
		cy, _ := strconv.ParseInt(ext.SelectAttrValue("cy", "0"), 10, 64)
		h += cy
	}
	return h
}
