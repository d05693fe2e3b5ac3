package decoder

// DOCX files are ZIP archives of OOXML parts. The body lives in
// word/document.xml; hyperlink targets are in word/_rels/document.xml.rels
// and list numbering formats in word/numbering.xml.

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/rgonek/docpivot/textconv"
)

const (
	docxDocumentPart  = "word/document.xml"
	docxRelsPart      = "word/_rels/document.xml.rels"
	docxNumberingPart = "word/numbering.xml"
)

var headingStylePattern = regexp.MustCompile(`(?i)^heading\s*([1-6])$`)

// maxListLevel is the deepest list level OOXML allows (w:ilvl 0..8).
const maxListLevel = 8

// DecodeArchive converts DOCX bytes to HTML.
func (d *Decoder) DecodeArchive(ctx context.Context, data []byte) (markup string, err error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	defer func() {
		if r := recover(); r != nil {
			markup, err = "", fmt.Errorf("read docx: %v", r)
		}
	}()

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}

	parts := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		parts[f.Name] = f
	}

	docFile, ok := parts[docxDocumentPart]
	if !ok {
		return "", fmt.Errorf("%s not found in docx archive", docxDocumentPart)
	}

	rels, err := readRelationships(parts[docxRelsPart])
	if err != nil {
		return "", err
	}
	numbering, err := readNumbering(parts[docxNumberingPart])
	if err != nil {
		return "", err
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", docxDocumentPart, err)
	}
	defer rc.Close()

	p := &docxParser{rels: rels, numbering: numbering}
	if err := p.parse(rc); err != nil {
		return "", err
	}
	return p.out.String(), nil
}

type relationshipsXML struct {
	Relationships []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

func readRelationships(f *zip.File) (map[string]string, error) {
	rels := map[string]string{}
	if f == nil {
		return rels, nil
	}

	var parsed relationshipsXML
	if err := unmarshalPart(f, &parsed); err != nil {
		return nil, err
	}
	for _, rel := range parsed.Relationships {
		rels[rel.ID] = rel.Target
	}
	return rels, nil
}

type numberingXML struct {
	AbstractNums []struct {
		ID     string `xml:"abstractNumId,attr"`
		Levels []struct {
			Level  string `xml:"ilvl,attr"`
			NumFmt struct {
				Val string `xml:"val,attr"`
			} `xml:"numFmt"`
		} `xml:"lvl"`
	} `xml:"abstractNum"`
	Nums []struct {
		ID            string `xml:"numId,attr"`
		AbstractNumID struct {
			Val string `xml:"val,attr"`
		} `xml:"abstractNumId"`
	} `xml:"num"`
}

// numbering records, per numId and level, whether the list is ordered.
type numbering map[string]map[int]bool

func (n numbering) ordered(numID string, level int) bool {
	return n[numID][level]
}

func readNumbering(f *zip.File) (numbering, error) {
	result := numbering{}
	if f == nil {
		return result, nil
	}

	var parsed numberingXML
	if err := unmarshalPart(f, &parsed); err != nil {
		return nil, err
	}

	abstract := make(map[string]map[int]bool, len(parsed.AbstractNums))
	for _, an := range parsed.AbstractNums {
		levels := map[int]bool{}
		for _, lvl := range an.Levels {
			idx, err := strconv.Atoi(lvl.Level)
			if err != nil {
				continue
			}
			switch lvl.NumFmt.Val {
			case "", "bullet", "none":
				levels[idx] = false
			default:
				levels[idx] = true
			}
		}
		abstract[an.ID] = levels
	}
	for _, num := range parsed.Nums {
		result[num.ID] = abstract[num.AbstractNumID.Val]
	}
	return result, nil
}

func unmarshalPart(f *zip.File, v any) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()

	if err := xml.NewDecoder(rc).Decode(v); err != nil {
		return fmt.Errorf("parse %s: %w", f.Name, err)
	}
	return nil
}

// segment is a piece of paragraph content with uniform formatting. html is
// already escaped.
type segment struct {
	html   string
	bold   bool
	italic bool
	href   string
}

// paragraphState is what a paragraph nested in a text box (w:txbxContent)
// must not clobber in its enclosing paragraph.
type paragraphState struct {
	style    string
	numID    string
	level    int
	segments []segment

	inRun  bool
	bold   bool
	italic bool
	href   string
}

type docxParser struct {
	rels      map[string]string
	numbering numbering
	out       strings.Builder
	lists     listWriter

	// paragraph state
	inPara   bool
	style    string
	numID    string
	level    int
	segments []segment
	outer    []paragraphState

	// run state
	inRun      bool
	inRunProps bool
	inText     bool
	bold       bool
	italic     bool
	href       string

	// table state
	tableDepth int
	rows       [][]string
	row        []string
	cell       strings.Builder
}

func (p *docxParser) parse(r io.Reader) error {
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("parse %s: %w", docxDocumentPart, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			p.handleStart(t)
		case xml.EndElement:
			p.handleEnd(t.Name.Local)
		case xml.CharData:
			if p.inText {
				p.appendText(textconv.EscapeHTML(string(t)))
			}
		}
	}

	p.lists.closeAll(&p.out)
	return nil
}

func (p *docxParser) handleStart(t xml.StartElement) {
	switch t.Name.Local {
	case "tbl":
		p.tableDepth++
		if p.tableDepth == 1 {
			p.lists.closeAll(&p.out)
			p.rows = nil
		}
	case "tr":
		if p.tableDepth == 1 {
			p.row = nil
		}
	case "tc":
		if p.tableDepth == 1 {
			p.cell.Reset()
		}

	case "p":
		if p.inPara {
			p.outer = append(p.outer, p.saveParagraph())
			p.inRun, p.bold, p.italic, p.href = false, false, false, ""
		}
		p.inPara = true
		p.style = ""
		p.numID = ""
		p.level = 0
		p.segments = nil
	case "pStyle":
		if p.inPara {
			p.style = attrValue(t, "val")
		}
	case "ilvl":
		if p.inPara {
			if lvl, err := strconv.Atoi(attrValue(t, "val")); err == nil {
				p.level = min(max(lvl, 0), maxListLevel)
			}
		}
	case "numId":
		if p.inPara {
			p.numID = attrValue(t, "val")
		}

	case "hyperlink":
		if id := attrValue(t, "id"); id != "" {
			p.href = p.rels[id]
		} else if anchor := attrValue(t, "anchor"); anchor != "" {
			p.href = "#" + anchor
		}
	case "r":
		p.inRun = true
		p.bold = false
		p.italic = false
	case "rPr":
		p.inRunProps = p.inRun
	case "b":
		if p.inRunProps {
			p.bold = toggleOn(t)
		}
	case "i":
		if p.inRunProps {
			p.italic = toggleOn(t)
		}
	case "t":
		p.inText = p.inRun
	case "tab":
		if p.inRun {
			p.appendText("\t")
		}
	case "br", "cr":
		if p.inRun {
			p.appendText("<br />")
		}
	}
}

func (p *docxParser) handleEnd(name string) {
	switch name {
	case "t":
		p.inText = false
	case "rPr":
		p.inRunProps = false
	case "r":
		p.inRun = false
	case "hyperlink":
		p.href = ""
	case "p":
		p.finishParagraph()
		if n := len(p.outer); n > 0 {
			p.restoreParagraph(p.outer[n-1])
			p.outer = p.outer[:n-1]
		} else {
			p.inPara = false
		}

	case "tc":
		if p.tableDepth == 1 {
			p.row = append(p.row, p.cell.String())
		}
	case "tr":
		if p.tableDepth == 1 {
			p.rows = append(p.rows, p.row)
		}
	case "tbl":
		if p.tableDepth == 1 {
			p.writeTable()
		}
		p.tableDepth--
	}
}

func (p *docxParser) saveParagraph() paragraphState {
	return paragraphState{
		style:    p.style,
		numID:    p.numID,
		level:    p.level,
		segments: p.segments,
		inRun:    p.inRun,
		bold:     p.bold,
		italic:   p.italic,
		href:     p.href,
	}
}

func (p *docxParser) restoreParagraph(st paragraphState) {
	p.inPara = true
	p.style = st.style
	p.numID = st.numID
	p.level = st.level
	p.segments = st.segments
	p.inRun = st.inRun
	p.bold = st.bold
	p.italic = st.italic
	p.href = st.href
}

func (p *docxParser) appendText(html string) {
	p.segments = append(p.segments, segment{
		html:   html,
		bold:   p.bold,
		italic: p.italic,
		href:   p.href,
	})
}

func (p *docxParser) finishParagraph() {
	content := renderInline(p.segments)
	if content == "" {
		return
	}

	tag := "p"
	if m := headingStylePattern.FindStringSubmatch(p.style); m != nil {
		tag = "h" + m[1]
	} else if strings.EqualFold(p.style, "Title") {
		tag = "h1"
	}

	if p.tableDepth > 0 {
		p.cell.WriteString("<" + tag + ">" + content + "</" + tag + ">")
		return
	}

	if tag == "p" && p.numID != "" && p.numID != "0" {
		p.lists.item(&p.out, p.level, p.numbering.ordered(p.numID, p.level), content)
		return
	}

	p.lists.closeAll(&p.out)
	p.out.WriteString("<" + tag + ">" + content + "</" + tag + ">")
}

func (p *docxParser) writeTable() {
	p.out.WriteString("<table>")
	for _, row := range p.rows {
		p.out.WriteString("<tr>")
		for _, cell := range row {
			p.out.WriteString("<td>" + cell + "</td>")
		}
		p.out.WriteString("</tr>")
	}
	p.out.WriteString("</table>")
	p.rows = nil
}

// renderInline wraps runs of segments sharing a link target in an anchor and
// merges adjacent segments with identical formatting.
func renderInline(segments []segment) string {
	var sb strings.Builder
	for i := 0; i < len(segments); {
		j := i
		for j < len(segments) && segments[j].href == segments[i].href {
			j++
		}
		if href := segments[i].href; href != "" {
			sb.WriteString(`<a href="` + textconv.EscapeHTML(href) + `">`)
			writeRuns(&sb, segments[i:j])
			sb.WriteString("</a>")
		} else {
			writeRuns(&sb, segments[i:j])
		}
		i = j
	}
	return sb.String()
}

func writeRuns(sb *strings.Builder, segments []segment) {
	for i := 0; i < len(segments); {
		var text strings.Builder
		j := i
		for j < len(segments) && segments[j].bold == segments[i].bold && segments[j].italic == segments[i].italic {
			text.WriteString(segments[j].html)
			j++
		}

		open, closing := "", ""
		if segments[i].bold {
			open += "<strong>"
			closing = "</strong>" + closing
		}
		if segments[i].italic {
			open += "<em>"
			closing = "</em>" + closing
		}
		sb.WriteString(open + text.String() + closing)
		i = j
	}
}

// listWriter emits nested <ul>/<ol> markup for consecutive list paragraphs.
// The innermost <li> stays open until a sibling, a shallower item or a
// non-list block arrives.
type listWriter struct {
	stack []bool // ordered flag per open list
}

func (l *listWriter) item(out *strings.Builder, level int, ordered bool, content string) {
	depth := min(max(level, 0), maxListLevel) + 1
	for len(l.stack) > depth {
		l.closeOne(out)
	}
	if len(l.stack) == depth && l.stack[depth-1] != ordered {
		l.closeOne(out)
	}
	if len(l.stack) == depth {
		out.WriteString("</li>")
	}
	for len(l.stack) < depth {
		if ordered {
			out.WriteString("<ol>")
		} else {
			out.WriteString("<ul>")
		}
		l.stack = append(l.stack, ordered)
	}
	out.WriteString("<li>" + content)
}

func (l *listWriter) closeOne(out *strings.Builder) {
	last := len(l.stack) - 1
	if last < 0 {
		return
	}
	if l.stack[last] {
		out.WriteString("</li></ol>")
	} else {
		out.WriteString("</li></ul>")
	}
	l.stack = l.stack[:last]
}

func (l *listWriter) closeAll(out *strings.Builder) {
	for len(l.stack) > 0 {
		l.closeOne(out)
	}
}

func attrValue(t xml.StartElement, local string) string {
	for _, a := range t.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// toggleOn reads an OOXML on/off property such as <w:b/> or <w:b w:val="0"/>.
func toggleOn(t xml.StartElement) bool {
	switch strings.ToLower(attrValue(t, "val")) {
	case "0", "false", "off":
		return false
	default:
		return true
	}
}
