package decoder

import (
	"context"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ExtractText converts HTML to plain text without word wrapping. Block
// elements end lines, paragraphs and headings are separated by a blank line,
// list items get "* " or "N. " prefixes and link targets are dropped.
func (d *Decoder) ExtractText(ctx context.Context, markup string) (string, error) {
	root, err := d.ParseMarkup(ctx, markup)
	if err != nil {
		return "", err
	}

	start := findElement(root, atom.Body)
	if start == nil {
		start = root
	}

	e := &textExtractor{}
	e.walk(start)
	return e.String(), nil
}

type textExtractor struct {
	buf      strings.Builder
	pending  int // newlines requested before the next text
	trailing int // newlines at the end of buf
	pre      int // depth of enclosing <pre> elements
	lists    []listState
}

type listState struct {
	ordered bool
	next    int
}

func (e *textExtractor) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		e.text(n.Data)
		return
	case html.ElementNode:
	case html.DocumentNode:
		e.walkChildren(n)
		return
	default:
		return
	}

	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Head, atom.Template, atom.Noscript:
		return
	case atom.Br:
		e.flush()
		e.write("\n")
		return
	case atom.Hr:
		e.block(2)
		e.text("---")
		e.block(2)
		return
	case atom.Img:
		if alt := attrOf(n, "alt"); alt != "" {
			e.text(alt)
		}
		return
	case atom.P, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.Blockquote, atom.Table:
		e.block(2)
		e.walkChildren(n)
		e.block(2)
	case atom.Pre:
		e.block(2)
		e.pre++
		e.walkChildren(n)
		e.pre--
		e.block(2)
	case atom.Ul, atom.Ol:
		if len(e.lists) == 0 {
			e.block(2)
		} else {
			e.block(1)
		}
		e.lists = append(e.lists, listState{ordered: n.DataAtom == atom.Ol, next: 1})
		e.walkChildren(n)
		e.lists = e.lists[:len(e.lists)-1]
		if len(e.lists) == 0 {
			e.block(2)
		} else {
			e.block(1)
		}
	case atom.Li:
		e.block(1)
		e.flush()
		e.write(e.bullet())
		e.walkChildren(n)
		e.block(1)
	case atom.Div, atom.Section, atom.Article, atom.Header, atom.Footer, atom.Main, atom.Nav, atom.Aside, atom.Tr, atom.Dt, atom.Dd, atom.Figure, atom.Figcaption:
		e.block(1)
		e.walkChildren(n)
		e.block(1)
	case atom.Td, atom.Th:
		if n.PrevSibling != nil && !e.atLineStart() {
			e.write("\t")
		}
		e.walkChildren(n)
	default:
		e.walkChildren(n)
	}
}

func (e *textExtractor) walkChildren(n *html.Node) {
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		e.walk(child)
	}
}

func (e *textExtractor) bullet() string {
	if len(e.lists) == 0 {
		return "* "
	}
	top := &e.lists[len(e.lists)-1]
	indent := strings.Repeat("  ", len(e.lists)-1)
	if !top.ordered {
		return indent + "* "
	}
	prefix := indent + strconv.Itoa(top.next) + ". "
	top.next++
	return prefix
}

// block requests at least n newlines before the next text.
func (e *textExtractor) block(n int) {
	if n > e.pending {
		e.pending = n
	}
}

func (e *textExtractor) text(s string) {
	if e.pre == 0 {
		s = collapseSpace(s)
		if e.atLineStart() || e.endsWithSpace() {
			s = strings.TrimLeft(s, " ")
		}
		if s == "" {
			return
		}
	}
	e.flush()
	e.write(s)
}

func (e *textExtractor) flush() {
	if e.buf.Len() == 0 {
		e.pending = 0
		return
	}
	for e.trailing < e.pending {
		e.write("\n")
	}
	e.pending = 0
}

func (e *textExtractor) write(s string) {
	e.buf.WriteString(s)
	trimmed := strings.TrimRight(s, "\n")
	if trimmed == "" {
		e.trailing += len(s)
		return
	}
	e.trailing = len(s) - len(trimmed)
}

func (e *textExtractor) atLineStart() bool {
	return e.buf.Len() == 0 || e.trailing > 0 || e.pending > 0
}

func (e *textExtractor) endsWithSpace() bool {
	s := e.buf.String()
	return strings.HasSuffix(s, " ") || strings.HasSuffix(s, "\t")
}

func (e *textExtractor) String() string {
	lines := strings.Split(e.buf.String(), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func collapseSpace(s string) string {
	var sb strings.Builder
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !space {
				sb.WriteByte(' ')
				space = true
			}
			continue
		}
		sb.WriteRune(r)
		space = false
	}
	return sb.String()
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findElement(child, a); found != nil {
			return found
		}
	}
	return nil
}

func attrOf(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
