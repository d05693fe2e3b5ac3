// Package textconv turns plain text into HTML or Markdown line by line.
package textconv

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// maxHeadingLength is the exclusive upper bound, in characters, for a line
// to be promoted to a section heading.
const maxHeadingLength = 100

var (
	numberedLinePattern = regexp.MustCompile(`^\d+\.`)

	htmlEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#039;",
	)
)

// EscapeHTML escapes the five HTML-significant characters.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// ToHTML wraps every non-blank line in a paragraph and turns every blank line
// into a line break. Lines are never merged.
func ToHTML(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			out = append(out, "<br>")
			continue
		}
		out = append(out, "<p>"+EscapeHTML(line)+"</p>")
	}
	return strings.Join(out, "\n")
}

// ToMarkdown structures plain text heuristically. Lines without lower-case
// letters become "##" headings, lines starting with "N." become "###"
// headings, and every other line is a paragraph.
func ToMarkdown(text string) string {
	upper := cases.Upper(language.Und)

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines)*2)
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			out = append(out, "")
			continue
		}

		switch {
		case line == upper.String(line) && utf8.RuneCountInString(line) < maxHeadingLength:
			out = append(out, "## "+line, "")
		case numberedLinePattern.MatchString(line):
			out = append(out, "### "+line, "")
		default:
			out = append(out, line, "")
		}
	}
	return strings.TrimRightFunc(strings.Join(out, "\n"), unicode.IsSpace)
}
