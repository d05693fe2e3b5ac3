package format

import (
	"bytes"
	"encoding/base64"
	"path/filepath"
	"strings"
)

var (
	pdfMarker  = []byte("%PDF")
	zipMagic   = []byte{0x50, 0x4b}
	closingTag = "</"
)

// Detect infers the format of content using the default capability table.
func Detect(content, filename string) Format {
	return DefaultCapabilities().Detect(content, filename)
}

// Detect infers the format of content. A filename whose extension is an
// accepted input format wins outright; otherwise the content is sniffed.
// Detection never fails: anything it cannot classify is plain text.
func (c Capabilities) Detect(content, filename string) (detected Format) {
	defer func() {
		if recover() != nil {
			detected = Text
		}
	}()

	// A dotfile such as ".docx" has no extension, only a name.
	if base := filepath.Base(filename); filename != "" && filepath.Ext(base) != base {
		ext := Format(strings.ToLower(strings.TrimPrefix(filepath.Ext(base), ".")))
		if ext != "" && c.Accepts(ext) {
			return ext
		}
	}

	return sniff(content)
}

func sniff(content string) Format {
	if raw, ok := decodeStrictBase64(content); ok {
		if bytes.HasPrefix(raw, pdfMarker) {
			return PDF
		}
		if bytes.HasPrefix(raw, zipMagic) {
			return DOCX
		}
	}

	if strings.HasPrefix(strings.TrimSpace(content), "<") && strings.Contains(content, closingTag) {
		return HTML
	}

	if looksLikeMarkdown(content) {
		return Markdown
	}

	return Text
}

// decodeStrictBase64 accepts content only when decoding and re-encoding
// reproduces it byte for byte. Plain text made of base64 characters passes
// this test too; callers fall through to the other checks in that case.
func decodeStrictBase64(content string) ([]byte, bool) {
	raw, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		return nil, false
	}
	if base64.StdEncoding.EncodeToString(raw) != content {
		return nil, false
	}
	return raw, true
}

// looksLikeMarkdown has no negative lookahead: a stray '*' is enough.
func looksLikeMarkdown(content string) bool {
	if strings.Contains(content, "#") || strings.Contains(content, "**") || strings.Contains(content, "*") {
		return true
	}
	open := strings.Index(content, "[")
	return open >= 0 && strings.Contains(content[open+1:], "](")
}
