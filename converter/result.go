package converter

import "github.com/rgonek/docpivot/format"

// Request describes one conversion. Binary sources (docx, pdf) carry their
// payload base64-encoded in Content.
type Request struct {
	Content      string        `json:"content" yaml:"content"`
	SourceFormat format.Format `json:"sourceFormat" yaml:"sourceFormat"`
	TargetFormat format.Format `json:"targetFormat" yaml:"targetFormat"`
	Filename     string        `json:"filename,omitempty" yaml:"filename,omitempty"`
}

// Result holds the output of a conversion.
type Result struct {
	Content  string        `json:"content" yaml:"content"`
	Filename string        `json:"filename" yaml:"filename"`
	Format   format.Format `json:"format" yaml:"format"`
}

// Formats lists the formats a Converter accepts and produces.
type Formats struct {
	Input  []format.Format `json:"input" yaml:"input"`
	Output []format.Format `json:"output" yaml:"output"`
}

// BatchItem pairs a request from ConvertAll with its outcome. Exactly one of
// Result and Err is meaningful.
type BatchItem struct {
	Request Request `json:"-" yaml:"-"`
	Result  Result  `json:"result" yaml:"result"`
	Err     error   `json:"-" yaml:"-"`
}
