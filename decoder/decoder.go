// Package decoder provides the default document collaborators: DOCX and PDF
// decoding, Markdown rendering, HTML parsing, text extraction and sanitizing.
package decoder

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	xhtml "golang.org/x/net/html"
)

// Decoder implements every collaborator the converter needs. It is safe for
// concurrent use.
type Decoder struct {
	markdown  goldmark.Markdown
	sanitizer *bluemonday.Policy
}

// New creates a Decoder. Markdown is rendered with GitHub Flavored Markdown
// extensions and raw HTML is passed through.
func New() *Decoder {
	policy := bluemonday.UGCPolicy()
	policy.AllowDataURIImages()

	return &Decoder{
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
		sanitizer: policy,
	}
}

// RenderMarkdown converts Markdown to HTML.
func (d *Decoder) RenderMarkdown(ctx context.Context, markdown string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := d.markdown.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

// ParseMarkup parses HTML into a document tree.
func (d *Decoder) ParseMarkup(ctx context.Context, markup string) (*xhtml.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	root, err := xhtml.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return root, nil
}

// Sanitize strips scripts, event handlers and unsafe URLs from HTML while
// keeping ordinary formatting.
func (d *Decoder) Sanitize(markup string) string {
	return d.sanitizer.Sanitize(markup)
}
