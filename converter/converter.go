// Package converter routes documents between formats through an HTML or
// plain-text intermediate.
package converter

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/rgonek/docpivot/format"
	"github.com/rgonek/docpivot/mdconverter"
	"github.com/rgonek/docpivot/textconv"
)

// Decoders are the external collaborators the router delegates to.
type Decoders interface {
	// DecodeArchive converts a DOCX payload to HTML.
	DecodeArchive(ctx context.Context, data []byte) (string, error)
	// DecodePaginated extracts plain text from a PDF payload.
	DecodePaginated(ctx context.Context, data []byte) (string, error)
	// RenderMarkdown converts Markdown to HTML.
	RenderMarkdown(ctx context.Context, markdown string) (string, error)
	// ExtractText converts HTML to plain text.
	ExtractText(ctx context.Context, markup string) (string, error)
	// ParseMarkup parses HTML into a document tree.
	ParseMarkup(ctx context.Context, markup string) (*html.Node, error)
}

// Sanitizer cleans HTML output when Config.SanitizeHTML is set.
type Sanitizer interface {
	Sanitize(markup string) string
}

// Converter routes a Request through decode and encode phases. It holds no
// mutable state and is safe for concurrent use.
type Converter struct {
	config   Config
	renderer mdconverter.Renderer
}

type intermediateKind int

const (
	intermediateMarkup intermediateKind = iota
	intermediateText
)

func (k intermediateKind) String() string {
	if k == intermediateText {
		return "text"
	}
	return "markup"
}

type intermediate struct {
	kind  intermediateKind
	value string
}

// New creates a Converter with the given config.
func New(config Config) (*Converter, error) {
	cfg := config.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Converter{
		config:   cfg,
		renderer: cfg.renderer(),
	}, nil
}

// Config returns the effective configuration, defaults applied.
func (c *Converter) Config() Config {
	return c.config
}

// ListFormats returns the accepted input and producible output formats.
func (c *Converter) ListFormats() Formats {
	return Formats{
		Input:  c.config.Capabilities.Inputs(),
		Output: c.config.Capabilities.Outputs(),
	}
}

// DetectFormat guesses the format of content. It never fails.
func (c *Converter) DetectFormat(content, filename string) format.Format {
	return c.config.Capabilities.Detect(content, filename)
}

// Convert converts req.Content from req.SourceFormat to req.TargetFormat.
// Unsupported formats yield *UnsupportedFormatError before any work is done;
// every later failure yields *ConversionFailedError.
func (c *Converter) Convert(ctx context.Context, req Request) (Result, error) {
	if err := c.checkFormats(req); err != nil {
		return Result{}, err
	}

	if req.SourceFormat == req.TargetFormat {
		return Result{
			Content:  req.Content,
			Filename: ChangeExtension(req.Filename, req.TargetFormat),
			Format:   req.TargetFormat,
		}, nil
	}

	// logger stays nil unless Debug is set; Config.debug checks Debug first.
	var logger *slog.Logger
	if c.config.Debug {
		logger = c.config.Logger.With(
			slog.String("conversion_id", uuid.NewString()),
			slog.String("source", string(req.SourceFormat)),
			slog.String("target", string(req.TargetFormat)),
		)
	}

	if err := ctx.Err(); err != nil {
		return Result{}, &ConversionFailedError{Err: err}
	}
	mid, err := c.decode(ctx, req)
	if err != nil {
		return Result{}, &ConversionFailedError{Err: err}
	}
	c.config.debug(ctx, logger, "decoded", slog.String("intermediate", mid.kind.String()), slog.Int("bytes", len(mid.value)))

	if err := ctx.Err(); err != nil {
		return Result{}, &ConversionFailedError{Err: err}
	}
	out, err := c.encode(ctx, req.TargetFormat, mid)
	if err != nil {
		return Result{}, &ConversionFailedError{Err: err}
	}
	c.config.debug(ctx, logger, "encoded", slog.Int("bytes", len(out)))

	return Result{
		Content:  out,
		Filename: ChangeExtension(req.Filename, req.TargetFormat),
		Format:   req.TargetFormat,
	}, nil
}

func (c *Converter) checkFormats(req Request) error {
	if err := validation.Validate(req.SourceFormat, validation.Required, validation.In(formatValues(c.config.Capabilities.Inputs())...)); err != nil {
		return &UnsupportedFormatError{Role: RoleSource, Format: req.SourceFormat}
	}
	if err := validation.Validate(req.TargetFormat, validation.Required, validation.In(formatValues(c.config.Capabilities.Outputs())...)); err != nil {
		return &UnsupportedFormatError{Role: RoleTarget, Format: req.TargetFormat}
	}
	return nil
}

func (c *Converter) decode(ctx context.Context, req Request) (intermediate, error) {
	switch req.SourceFormat {
	case format.DOCX:
		data, err := decodePayload(req.Content)
		if err != nil {
			return intermediate{}, err
		}
		markup, err := c.config.Decoders.DecodeArchive(ctx, data)
		if err != nil {
			return intermediate{}, fmt.Errorf("decode docx: %w", err)
		}
		return intermediate{kind: intermediateMarkup, value: markup}, nil

	case format.PDF:
		data, err := decodePayload(req.Content)
		if err != nil {
			return intermediate{}, err
		}
		text, err := c.config.Decoders.DecodePaginated(ctx, data)
		if err != nil {
			return intermediate{}, fmt.Errorf("decode pdf: %w", err)
		}
		return intermediate{kind: intermediateText, value: text}, nil

	case format.HTML:
		return intermediate{kind: intermediateMarkup, value: req.Content}, nil

	case format.Text:
		return intermediate{kind: intermediateText, value: req.Content}, nil

	case format.Markdown:
		markup, err := c.config.Decoders.RenderMarkdown(ctx, req.Content)
		if err != nil {
			return intermediate{}, fmt.Errorf("render markdown: %w", err)
		}
		return intermediate{kind: intermediateMarkup, value: markup}, nil

	default:
		return intermediate{}, fmt.Errorf("no decoder for source format %q", string(req.SourceFormat))
	}
}

func (c *Converter) encode(ctx context.Context, target format.Format, mid intermediate) (string, error) {
	switch target {
	case format.HTML:
		markup := mid.value
		if mid.kind == intermediateText {
			markup = textconv.ToHTML(mid.value)
		}
		if c.config.SanitizeHTML {
			markup = c.config.Sanitizer.Sanitize(markup)
		}
		return markup, nil

	case format.Text:
		if mid.kind == intermediateText {
			return mid.value, nil
		}
		text, err := c.config.Decoders.ExtractText(ctx, mid.value)
		if err != nil {
			return "", fmt.Errorf("extract text: %w", err)
		}
		return text, nil

	case format.Markdown:
		if mid.kind == intermediateText {
			return textconv.ToMarkdown(mid.value), nil
		}
		root, err := c.config.Decoders.ParseMarkup(ctx, mid.value)
		if err != nil {
			return "", fmt.Errorf("parse html: %w", err)
		}
		md, err := c.renderer.Render(root)
		if err != nil {
			return "", fmt.Errorf("render markdown: %w", err)
		}
		return md, nil

	default:
		return "", fmt.Errorf("no encoder for target format %q", string(target))
	}
}

// ChangeExtension replaces the extension of the base name of filename with
// the canonical extension of f. Directories are dropped. A leading dot does
// not start an extension, so ".env" becomes ".env.md".
func ChangeExtension(filename string, f format.Format) string {
	base := path.Base(filename)
	if filename == "" || base == "." || base == "/" {
		base = ""
	}
	if ext := path.Ext(base); ext != "" && ext != base {
		base = strings.TrimSuffix(base, ext)
	}
	return base + "." + f.Extension()
}

// decodePayload decodes base64 content, ignoring whitespace and tolerating
// missing padding.
func decodePayload(content string) ([]byte, error) {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, content)

	data, err := base64.StdEncoding.DecodeString(cleaned)
	if err == nil {
		return data, nil
	}
	data, rawErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(cleaned, "="))
	if rawErr != nil {
		return nil, fmt.Errorf("decode base64 payload: %w", err)
	}
	return data, nil
}

func formatValues(set []format.Format) []any {
	out := make([]any, len(set))
	for i, f := range set {
		out[i] = f
	}
	return out
}
