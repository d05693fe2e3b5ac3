package converter

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/rgonek/docpivot/decoder"
	"github.com/rgonek/docpivot/format"
	"github.com/rgonek/docpivot/mdconverter"
)

// DefaultMaxFileSize is the default content size limit (10 MiB).
const DefaultMaxFileSize int64 = 10 * 1024 * 1024

// DefaultConcurrency is the default number of conversions ConvertAll runs at once.
const DefaultConcurrency = 4

// MarkdownEngine selects how HTML is rendered to Markdown.
type MarkdownEngine string

const (
	// EngineBuiltin is the tree renderer in mdconverter. Text is copied verbatim.
	EngineBuiltin MarkdownEngine = "builtin"
	// EngineCommonMark uses html-to-markdown, which escapes text and renders tables.
	EngineCommonMark MarkdownEngine = "commonmark"
)

// Config holds converter configuration.
type Config struct {
	Debug          bool           `json:"debug,omitempty"`
	MaxFileSize    int64          `json:"maxFileSize,omitempty"`
	MarkdownEngine MarkdownEngine `json:"markdownEngine,omitempty"`
	SanitizeHTML   bool           `json:"sanitizeHTML,omitempty"`
	Concurrency    int            `json:"concurrency,omitempty"`

	Capabilities format.Capabilities `json:"-"`
	Decoders     Decoders            `json:"-"`
	Sanitizer    Sanitizer           `json:"-"`
	Logger       *slog.Logger        `json:"-"`
}

func (c Config) applyDefaults() Config {
	if c.MaxFileSize == 0 {
		c.MaxFileSize = DefaultMaxFileSize
	}
	if c.MarkdownEngine == "" {
		c.MarkdownEngine = EngineBuiltin
	}
	if c.Concurrency == 0 {
		c.Concurrency = DefaultConcurrency
	}
	if len(c.Capabilities.Inputs()) == 0 && len(c.Capabilities.Outputs()) == 0 {
		c.Capabilities = format.DefaultCapabilities()
	}

	var defaults *decoder.Decoder
	if c.Decoders == nil {
		defaults = decoder.New()
		c.Decoders = defaults
	}
	if c.Sanitizer == nil {
		if s, ok := c.Decoders.(Sanitizer); ok {
			c.Sanitizer = s
		} else {
			if defaults == nil {
				defaults = decoder.New()
			}
			c.Sanitizer = defaults
		}
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}

	return c
}

// Validate checks that config values are valid.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.MaxFileSize, validation.Min(int64(1))),
		validation.Field(&c.MarkdownEngine, validation.Required, validation.In(EngineBuiltin, EngineCommonMark)),
		validation.Field(&c.Concurrency, validation.Min(1)),
	)
}

// CheckSize reports an error wrapping ErrContentTooLarge when the decoded
// payload exceeds MaxFileSize. Convert never calls it; callers that accept
// content from outside should.
func (c Config) CheckSize(content string, f format.Format) error {
	limit := c.MaxFileSize
	if limit <= 0 {
		limit = DefaultMaxFileSize
	}

	size := int64(len(content))
	if f.Binary() {
		size = int64(base64.StdEncoding.DecodedLen(len(strings.TrimSpace(content))))
	}
	if size > limit {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrContentTooLarge, size, limit)
	}
	return nil
}

func (c Config) renderer() mdconverter.Renderer {
	if c.MarkdownEngine == EngineCommonMark {
		return mdconverter.NewCommonMark()
	}
	return mdconverter.Builtin{}
}

func (c Config) debug(ctx context.Context, logger *slog.Logger, msg string, args ...any) {
	if c.Debug {
		logger.DebugContext(ctx, msg, args...)
	}
}
