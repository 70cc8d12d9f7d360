// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package docx

import (
	"slices"

	"github.com/beevik/etree"
)

// Word rejects property elements that are out of schema order, so every
// get-or-create goes through ensureChild with the sequence of its parent.

var pPrOrder = []string{
	"w:pStyle", "w:keepNext", "w:keepLines", "w:pageBreakBefore", "w:framePr",
	"w:widowControl", "w:numPr", "w:suppressLineNumbers", "w:pBdr", "w:shd",
	"w:tabs", "w:suppressAutoHyphens", "w:kinsoku", "w:wordWrap",
	"w:overflowPunct", "w:topLinePunct", "w:autoSpaceDE", "w:autoSpaceDN",
	"w:bidi", "w:adjustRightInd", "w:snapToGrid", "w:spacing", "w:ind",
	"w:contextualSpacing", "w:mirrorIndents", "w:suppressOverlap", "w:jc",
	"w:textDirection", "w:textAlignment", "w:textboxTightWrap", "w:outlineLvl",
	"w:divId", "w:cnfStyle", "w:rPr", "w:sectPr", "w:pPrChange",
}

var rPrOrder = []string{
	"w:rStyle", "w:rFonts", "w:b", "w:bCs", "w:i", "w:iCs", "w:caps",
	"w:smallCaps", "w:strike", "w:dstrike", "w:outline", "w:shadow",
	"w:emboss", "w:imprint", "w:noProof", "w:snapToGrid", "w:vanish",
	"w:webHidden", "w:color", "w:spacing", "w:w", "w:kern", "w:position",
	"w:sz", "w:szCs", "w:highlight", "w:u", "w:effect", "w:bdr", "w:shd",
	"w:fitText", "w:vertAlign", "w:rtl", "w:cs", "w:em", "w:lang",
	"w:eastAsianLayout", "w:specVanish", "w:oMath",
}

var sectPrOrder = []string{
	"w:headerReference", "w:footerReference", "w:footnotePr", "w:endnotePr",
	"w:type", "w:pgSz", "w:pgMar", "w:paperSrc", "w:pgBorders", "w:lnNumType",
	"w:pgNumType", "w:cols", "w:formProt", "w:vAlign", "w:noEndnote",
	"w:titlePg", "w:textDirection", "w:bidi", "w:rtlGutter", "w:docGrid",
	"w:printerSettings", "w:sectPrChange",
}

var styleOrder = []string{
	"w:name", "w:aliases", "w:basedOn", "w:next", "w:link", "w:autoRedefine",
	"w:hidden", "w:uiPriority", "w:semiHidden", "w:unhideWhenUsed",
	"w:qFormat", "w:locked", "w:personal", "w:personalCompose",
	"w:personalReply", "w:rsid", "w:pPr", "w:rPr", "w:tblPr", "w:trPr",
	"w:tcPr", "w:tblStylePr",
}

var settingsOrder = []string{
	"w:writeProtection", "w:view", "w:zoom", "w:removePersonalInformation",
	"w:removeDateAndTime", "w:doNotDisplayPageBoundaries",
	"w:displayBackgroundShape", "w:printPostScriptOverText",
	"w:printFractionalCharacterWidth", "w:printFormsData",
	"w:embedTrueTypeFonts", "w:embedSystemFonts", "w:saveSubsetFonts",
	"w:saveFormsData", "w:mirrorMargins", "w:alignBordersAndEdges",
	"w:bordersDoNotSurroundHeader", "w:bordersDoNotSurroundFooter",
	"w:gutterAtTop", "w:hideSpellingErrors", "w:hideGrammaticalErrors",
	"w:activeWritingStyle", "w:proofState", "w:formsDesign",
	"w:attachedTemplate", "w:linkStyles", "w:stylePaneFormatFilter",
	"w:stylePaneSortMethod", "w:documentType", "w:mailMerge",
	"w:revisionView", "w:trackRevisions", "w:doNotTrackMoves",
	"w:doNotTrackFormatting", "w:documentProtection", "w:autoFormatOverride",
	"w:styleLockTheme", "w:styleLockQFSet", "w:defaultTabStop",
	"w:autoHyphenation", "w:consecutiveHyphenLimit", "w:hyphenationZone",
	"w:doNotHyphenateCaps", "w:showEnvelope", "w:summaryLength",
	"w:clickAndTypeStyle", "w:defaultTableStyle", "w:evenAndOddHeaders",
	"w:bookFoldRevPrinting", "w:bookFoldPrinting", "w:bookFoldPrintingSheets",
	"w:drawingGridHorizontalSpacing", "w:drawingGridVerticalSpacing",
	"w:displayHorizontalDrawingGridEvery", "w:displayVerticalDrawingGridEvery",
	"w:doNotUseMarginsForDrawingGridOrigin", "w:drawingGridHorizontalOrigin",
	"w:drawingGridVerticalOrigin", "w:doNotShadeFormData",
	"w:noPunctuationKerning", "w:characterSpacingControl", "w:printTwoOnOne",
	"w:strictFirstAndLastChars", "w:noLineBreaksAfter", "w:noLineBreaksBefore",
	"w:savePreviewPicture", "w:doNotValidateAgainstSchema", "w:saveInvalidXml",
	"w:ignoreMixedContent", "w:alwaysShowPlaceholderText",
	"w:doNotDemarcateInvalidXml", "w:saveXmlDataOnly", "w:useXSLTWhenSaving",
	"w:saveThroughXslt", "w:showXMLTags", "w:alwaysMergeEmptyNamespace",
	"w:updateFields", "w:hdrShapeDefaults", "w:footnotePr", "w:endnotePr",
	"w:compat", "w:docVars", "w:rsids",
}

// ensureChild returns the first child with the given tag, creating it at
// its schema position when absent.
func ensureChild(parent *etree.Element, tag string, order []string) *etree.Element {
	if c := parent.SelectElement(tag); c != nil {
		return c
	}
	c := etree.NewElement(tag)
	insertOrdered(parent, c, order)
	return c
}

// insertOrdered places c before the first sibling that ranks after it.
func insertOrdered(parent, c *etree.Element, order []string) {
	rank := slices.Index(order, c.FullTag())
	pos := len(parent.Child)
	if rank >= 0 {
		for i, tok := range parent.Child {
			ce, ok := tok.(*etree.Element)
			if !ok {
				continue
			}
			if r := slices.Index(order, ce.FullTag()); r > rank {
				pos = i
				break
			}
		}
	}
	parent.InsertChildAt(pos, c)
}

// removeChildren drops every direct child with the given tag.
func removeChildren(parent *etree.Element, tag string) {
	for _, c := range parent.SelectElements(tag) {
		parent.RemoveChild(c)
	}
}

// setVal sets w:val on the child with the given tag, creating it as needed.
func setVal(parent *etree.Element, tag, val string, order []string) *etree.Element {
	c := ensureChild(parent, tag, order)
	c.CreateAttr("w:val", val)
	return c
}

// is reports whether e is the WordprocessingML element with the given full tag.
func is(e *etree.Element, tag string) bool {
	return e != nil && e.FullTag() == tag
}
