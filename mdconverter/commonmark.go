package mdconverter

import (
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"golang.org/x/net/html"
)

// CommonMark renders through html-to-markdown. Unlike Builtin it escapes
// Markdown-significant characters and renders tables.
type CommonMark struct {
	conv *converter.Converter
}

// NewCommonMark creates a CommonMark renderer with the base, commonmark and
// table plugins enabled.
func NewCommonMark() *CommonMark {
	return &CommonMark{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// Render implements Renderer.
func (c *CommonMark) Render(root *html.Node) (string, error) {
	if root == nil {
		return "", nil
	}
	out, err := c.conv.ConvertNode(root)
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML to markdown: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}
