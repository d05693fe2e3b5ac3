// Package format defines the document formats the converter understands and
// the capability table that says which of them can be read and written.
package format

import (
	"fmt"
	"strings"
)

// Format identifies a document format by its canonical file extension.
type Format string

const (
	DOCX     Format = "docx"
	PDF      Format = "pdf"
	HTML     Format = "html"
	Text     Format = "txt"
	Markdown Format = "md"
)

// Extension returns the canonical file extension (without the dot).
func (f Format) Extension() string {
	return string(f)
}

// Binary reports whether the format is carried as base64-encoded bytes.
func (f Format) Binary() bool {
	return f == DOCX || f == PDF
}

func (f Format) String() string {
	return string(f)
}

// Parse normalizes a user-supplied format name. Common aliases such as
// "markdown", "htm" and "text" are accepted.
func Parse(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), ".")) {
	case "docx":
		return DOCX, nil
	case "pdf":
		return PDF, nil
	case "html", "htm":
		return HTML, nil
	case "txt", "text":
		return Text, nil
	case "md", "markdown":
		return Markdown, nil
	default:
		return "", fmt.Errorf("unknown format %q (allowed: docx, pdf, html, txt, md)", name)
	}
}

// Capabilities is the read-only table of accepted inputs and producible outputs.
// The zero value accepts nothing; use DefaultCapabilities.
type Capabilities struct {
	input  []Format
	output []Format
}

// DefaultCapabilities returns the standard table. Legacy binary formats are
// input-only.
func DefaultCapabilities() Capabilities {
	return Capabilities{
		input:  []Format{DOCX, PDF, HTML, Text, Markdown},
		output: []Format{HTML, Text, Markdown},
	}
}

// NewCapabilities builds a table from explicit sets. Output formats that are
// binary are rejected since nothing can encode them.
func NewCapabilities(input, output []Format) (Capabilities, error) {
	for _, f := range output {
		if f.Binary() {
			return Capabilities{}, fmt.Errorf("format %q cannot be an output format", f)
		}
	}
	return Capabilities{
		input:  append([]Format(nil), input...),
		output: append([]Format(nil), output...),
	}, nil
}

// Inputs returns a copy of the accepted input formats.
func (c Capabilities) Inputs() []Format {
	return append([]Format(nil), c.input...)
}

// Outputs returns a copy of the producible output formats.
func (c Capabilities) Outputs() []Format {
	return append([]Format(nil), c.output...)
}

// Accepts reports whether f is an accepted input format.
func (c Capabilities) Accepts(f Format) bool {
	return contains(c.input, f)
}

// Produces reports whether f is a producible output format.
func (c Capabilities) Produces(f Format) bool {
	return contains(c.output, f)
}

func contains(set []Format, f Format) bool {
	for _, candidate := range set {
		if candidate == f {
			return true
		}
	}
	return false
}
