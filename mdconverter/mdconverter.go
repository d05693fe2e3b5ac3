// Package mdconverter renders a parsed HTML tree as Markdown.
//
// The builtin renderer is a single post-order walk: every element first
// renders its children, then wraps the result according to its tag kind.
// Text is copied verbatim; Markdown-significant characters are not escaped.
package mdconverter

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Renderer turns a parsed HTML document into Markdown.
type Renderer interface {
	Render(root *html.Node) (string, error)
}

// Builtin is the default Renderer. It holds no state and is safe for
// concurrent use.
type Builtin struct{}

// Render implements Renderer.
func (Builtin) Render(root *html.Node) (string, error) {
	return Render(root), nil
}

// Render converts the body of root to Markdown, trimmed of surrounding
// whitespace. If root has no body element, root itself is rendered.
func Render(root *html.Node) string {
	if root == nil {
		return ""
	}
	start := findBody(root)
	if start == nil {
		start = root
	}
	return strings.TrimSpace(renderNode(start))
}

// ConvertString parses markup and renders it with the builtin renderer.
func ConvertString(markup string) (string, error) {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	return Render(root), nil
}

func renderNode(n *html.Node) string {
	switch n.Type {
	case html.TextNode:
		return n.Data
	case html.ElementNode:
		return renderElement(n)
	case html.DocumentNode:
		return renderChildren(n)
	default:
		// comments, doctypes
		return ""
	}
}

func renderChildren(n *html.Node) string {
	var sb strings.Builder
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		sb.WriteString(renderNode(child))
	}
	return sb.String()
}

func renderElement(n *html.Node) string {
	kind, level := classify(elementAtom(n))
	children := renderChildren(n)

	switch kind {
	case tagHeading:
		return strings.Repeat("#", level) + " " + children + "\n\n"
	case tagParagraph:
		return children + "\n\n"
	case tagStrong:
		return "**" + children + "**"
	case tagEmphasis:
		return "*" + children + "*"
	case tagCode:
		return "`" + children + "`"
	case tagPre:
		return "```\n" + children + "\n```\n\n"
	case tagAnchor:
		if href := attr(n, "href"); href != "" {
			return "[" + children + "](" + href + ")"
		}
		return children
	case tagImage:
		if src := attr(n, "src"); src != "" {
			return "![" + attr(n, "alt") + "](" + src + ")"
		}
		return ""
	case tagList:
		return children + "\n"
	case tagListItem:
		return "- " + children + "\n"
	case tagBreak:
		return "\n"
	case tagOther:
		return children
	default:
		return children
	}
}

// elementAtom returns the node's atom, looking it up by name for trees that
// were built by hand without DataAtom set.
func elementAtom(n *html.Node) atom.Atom {
	if n.DataAtom != 0 {
		return n.DataAtom
	}
	return atom.Lookup([]byte(strings.ToLower(n.Data)))
}

// attr returns the attribute value, or "" when it is missing.
func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && elementAtom(n) == atom.Body {
		return n
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if body := findBody(child); body != nil {
			return body
		}
	}
	return nil
}
