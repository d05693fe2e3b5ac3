package converter

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/rgonek/docpivot/format"
)

type stubDecoders struct {
	archive   string
	paginated string
	rendered  string
	extracted string
	err       error

	mu       sync.Mutex
	calls    []string
	lastData []byte
}

func (s *stubDecoders) record(call string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
	if data != nil {
		s.lastData = data
	}
}

func (s *stubDecoders) recorded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *stubDecoders) DecodeArchive(_ context.Context, data []byte) (string, error) {
	s.record("DecodeArchive", data)
	return s.archive, s.err
}

func (s *stubDecoders) DecodePaginated(_ context.Context, data []byte) (string, error) {
	s.record("DecodePaginated", data)
	return s.paginated, s.err
}

func (s *stubDecoders) RenderMarkdown(_ context.Context, _ string) (string, error) {
	s.record("RenderMarkdown", nil)
	return s.rendered, s.err
}

func (s *stubDecoders) ExtractText(_ context.Context, _ string) (string, error) {
	s.record("ExtractText", nil)
	return s.extracted, s.err
}

func (s *stubDecoders) ParseMarkup(_ context.Context, markup string) (*html.Node, error) {
	s.record("ParseMarkup", nil)
	if s.err != nil {
		return nil, s.err
	}
	return html.Parse(strings.NewReader(markup))
}

func newStub() *stubDecoders {
	return &stubDecoders{
		archive:   "<p>from docx</p>",
		paginated: "FROM PDF\nbody",
		rendered:  "<p>from md</p>",
		extracted: "extracted",
	}
}

func newTestConverter(t testing.TB, cfg Config) *Converter {
	t.Helper()
	conv, err := New(cfg)
	require.NoError(t, err)
	return conv
}

func encoded(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func TestConvertDispatch(t *testing.T) {
	tests := []struct {
		source  format.Format
		target  format.Format
		content string
		want    string
		calls   []string
	}{
		{source: format.DOCX, target: format.HTML, content: encoded("x"), want: "<p>from docx</p>", calls: []string{"DecodeArchive"}},
		{source: format.DOCX, target: format.Text, content: encoded("x"), want: "extracted", calls: []string{"DecodeArchive", "ExtractText"}},
		{source: format.DOCX, target: format.Markdown, content: encoded("x"), want: "from docx", calls: []string{"DecodeArchive", "ParseMarkup"}},
		{source: format.PDF, target: format.HTML, content: encoded("x"), want: "<p>FROM PDF</p>\n<p>body</p>", calls: []string{"DecodePaginated"}},
		{source: format.PDF, target: format.Text, content: encoded("x"), want: "FROM PDF\nbody", calls: []string{"DecodePaginated"}},
		{source: format.PDF, target: format.Markdown, content: encoded("x"), want: "## FROM PDF\n\nbody", calls: []string{"DecodePaginated"}},
		{source: format.HTML, target: format.Text, content: "<p>x</p>", want: "extracted", calls: []string{"ExtractText"}},
		{source: format.HTML, target: format.Markdown, content: "<p>x</p>", want: "x", calls: []string{"ParseMarkup"}},
		{source: format.Text, target: format.HTML, content: "a & b", want: "<p>a &amp; b</p>"},
		{source: format.Text, target: format.Markdown, content: "a & b", want: "a & b"},
		{source: format.Markdown, target: format.HTML, content: "x", want: "<p>from md</p>", calls: []string{"RenderMarkdown"}},
		{source: format.Markdown, target: format.Text, content: "x", want: "extracted", calls: []string{"RenderMarkdown", "ExtractText"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.source)+"_to_"+string(tt.target), func(t *testing.T) {
			stub := newStub()
			conv := newTestConverter(t, Config{Decoders: stub})

			res, err := conv.Convert(context.Background(), Request{
				Content:      tt.content,
				SourceFormat: tt.source,
				TargetFormat: tt.target,
				Filename:     "input." + tt.source.Extension(),
			})
			require.NoError(t, err)

			assert.Equal(t, tt.want, res.Content)
			assert.Equal(t, tt.target, res.Format)
			assert.Equal(t, "input."+tt.target.Extension(), res.Filename)
			assert.Equal(t, tt.calls, stub.recorded())
		})
	}
}

func TestConvertIdentity(t *testing.T) {
	stub := newStub()
	conv := newTestConverter(t, Config{Decoders: stub})

	for _, f := range []format.Format{format.HTML, format.Text, format.Markdown} {
		res, err := conv.Convert(context.Background(), Request{
			Content:      "  <b>*unchanged*</b>\n",
			SourceFormat: f,
			TargetFormat: f,
			Filename:     "docs/notes.final.bak",
		})
		require.NoError(t, err)

		assert.Equal(t, "  <b>*unchanged*</b>\n", res.Content)
		assert.Equal(t, "notes.final."+f.Extension(), res.Filename)
		assert.Equal(t, f, res.Format)
	}
	assert.Empty(t, stub.recorded())
}

func TestConvertUnsupportedFormats(t *testing.T) {
	tests := []struct {
		name   string
		source format.Format
		target format.Format
		role   FormatRole
		format format.Format
	}{
		{name: "unknown source", source: "rtf", target: format.HTML, role: RoleSource, format: "rtf"},
		{name: "source checked first", source: "rtf", target: format.DOCX, role: RoleSource, format: "rtf"},
		{name: "empty source", source: "", target: format.HTML, role: RoleSource, format: ""},
		{name: "docx target", source: format.Text, target: format.DOCX, role: RoleTarget, format: format.DOCX},
		{name: "pdf target", source: format.HTML, target: format.PDF, role: RoleTarget, format: format.PDF},
		{name: "identity on docx", source: format.DOCX, target: format.DOCX, role: RoleTarget, format: format.DOCX},
		{name: "empty target", source: format.Text, target: "", role: RoleTarget, format: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := newStub()
			conv := newTestConverter(t, Config{Decoders: stub})

			_, err := conv.Convert(context.Background(), Request{
				Content:      "x",
				SourceFormat: tt.source,
				TargetFormat: tt.target,
			})
			require.Error(t, err)

			var unsupported *UnsupportedFormatError
			require.ErrorAs(t, err, &unsupported)
			assert.Equal(t, tt.role, unsupported.Role)
			assert.Equal(t, tt.format, unsupported.Format)
			assert.ErrorIs(t, err, ErrUnsupportedFormat)
			assert.NotErrorIs(t, err, ErrConversionFailed)
			assert.Empty(t, stub.recorded())
		})
	}
}

func TestConvertUnsupportedMessage(t *testing.T) {
	conv := newTestConverter(t, Config{Decoders: newStub()})

	_, err := conv.Convert(context.Background(), Request{SourceFormat: "rtf", TargetFormat: format.HTML})
	require.Error(t, err)
	assert.Equal(t, `unsupported source format "rtf"`, err.Error())

	_, err = conv.Convert(context.Background(), Request{SourceFormat: format.HTML, TargetFormat: format.DOCX})
	require.Error(t, err)
	assert.Equal(t, `unsupported target format "docx"`, err.Error())
}

func TestConvertRespectsCapabilities(t *testing.T) {
	caps, err := format.NewCapabilities([]format.Format{format.Text}, []format.Format{format.HTML})
	require.NoError(t, err)
	conv := newTestConverter(t, Config{Decoders: newStub(), Capabilities: caps})

	_, err = conv.Convert(context.Background(), Request{SourceFormat: format.Markdown, TargetFormat: format.HTML})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = conv.Convert(context.Background(), Request{SourceFormat: format.Text, TargetFormat: format.Markdown})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	res, err := conv.Convert(context.Background(), Request{Content: "hi", SourceFormat: format.Text, TargetFormat: format.HTML})
	require.NoError(t, err)
	assert.Equal(t, "<p>hi</p>", res.Content)

	assert.Equal(t, Formats{Input: []format.Format{format.Text}, Output: []format.Format{format.HTML}}, conv.ListFormats())
}

func TestConvertCollaboratorFailure(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		source  format.Format
		target  format.Format
		content string
		message string
	}{
		{source: format.Markdown, target: format.HTML, content: "x", message: "conversion failed: render markdown: boom"},
		{source: format.DOCX, target: format.HTML, content: encoded("x"), message: "conversion failed: decode docx: boom"},
		{source: format.PDF, target: format.Text, content: encoded("x"), message: "conversion failed: decode pdf: boom"},
		{source: format.HTML, target: format.Text, content: "<p>x</p>", message: "conversion failed: extract text: boom"},
		{source: format.HTML, target: format.Markdown, content: "<p>x</p>", message: "conversion failed: parse html: boom"},
	}

	for _, tt := range tests {
		t.Run(string(tt.source)+"_to_"+string(tt.target), func(t *testing.T) {
			stub := newStub()
			stub.err = boom
			conv := newTestConverter(t, Config{Decoders: stub})

			res, err := conv.Convert(context.Background(), Request{Content: tt.content, SourceFormat: tt.source, TargetFormat: tt.target})
			require.Error(t, err)

			var failed *ConversionFailedError
			require.ErrorAs(t, err, &failed)
			assert.ErrorIs(t, err, ErrConversionFailed)
			assert.ErrorIs(t, err, boom)
			assert.NotErrorIs(t, err, ErrUnsupportedFormat)
			assert.Equal(t, tt.message, err.Error())
			assert.Equal(t, Result{}, res)
		})
	}
}

func TestConvertInvalidPayload(t *testing.T) {
	stub := newStub()
	conv := newTestConverter(t, Config{Decoders: stub})

	_, err := conv.Convert(context.Background(), Request{Content: "!!not base64!!", SourceFormat: format.DOCX, TargetFormat: format.HTML})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConversionFailed)
	assert.Contains(t, err.Error(), "decode base64 payload")
	assert.Empty(t, stub.recorded())
}

func TestConvertPayloadTolerance(t *testing.T) {
	payload := "%PDF-1.4 payload"
	std := base64.StdEncoding.EncodeToString([]byte(payload))
	raw := base64.RawStdEncoding.EncodeToString([]byte(payload))
	require.NotEqual(t, std, raw)

	for name, content := range map[string]string{
		"padded":     std,
		"unpadded":   raw,
		"wrapped":    "\n" + std[:8] + "\r\n" + std[8:] + "\n",
		"whitespace": "  " + raw + "\t",
	} {
		t.Run(name, func(t *testing.T) {
			stub := newStub()
			conv := newTestConverter(t, Config{Decoders: stub})

			_, err := conv.Convert(context.Background(), Request{Content: content, SourceFormat: format.PDF, TargetFormat: format.Text})
			require.NoError(t, err)
			assert.Equal(t, []byte(payload), stub.lastData)
		})
	}
}

func TestConvertCancelledContext(t *testing.T) {
	stub := newStub()
	conv := newTestConverter(t, Config{Decoders: stub})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := conv.Convert(ctx, Request{Content: "x", SourceFormat: format.Markdown, TargetFormat: format.HTML})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConversionFailed)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, stub.recorded())

	res, err := conv.Convert(ctx, Request{Content: "x", SourceFormat: format.Text, TargetFormat: format.Text})
	require.NoError(t, err)
	assert.Equal(t, "x", res.Content)
}

func TestConvertSanitizesHTML(t *testing.T) {
	stub := newStub()
	stub.rendered = `<p onclick="steal()">hi</p><script>steal()</script>`

	raw := newTestConverter(t, Config{Decoders: stub})
	res, err := raw.Convert(context.Background(), Request{Content: "x", SourceFormat: format.Markdown, TargetFormat: format.HTML})
	require.NoError(t, err)
	assert.Equal(t, stub.rendered, res.Content)

	clean := newTestConverter(t, Config{Decoders: stub, SanitizeHTML: true})
	res, err = clean.Convert(context.Background(), Request{Content: "x", SourceFormat: format.Markdown, TargetFormat: format.HTML})
	require.NoError(t, err)
	assert.Equal(t, "<p>hi</p>", res.Content)
}

func TestConvertDebugLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	quiet := newTestConverter(t, Config{Decoders: newStub(), Logger: logger})
	_, err := quiet.Convert(context.Background(), Request{Content: "x", SourceFormat: format.Text, TargetFormat: format.Markdown})
	require.NoError(t, err)
	assert.Empty(t, buf.String())

	verbose := newTestConverter(t, Config{Decoders: newStub(), Logger: logger, Debug: true})
	_, err = verbose.Convert(context.Background(), Request{Content: "x", SourceFormat: format.Text, TargetFormat: format.Markdown})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "msg=decoded")
	assert.Contains(t, out, "msg=encoded")
	assert.Contains(t, out, "conversion_id=")
	assert.Contains(t, out, "source=txt")
	assert.Contains(t, out, "target=md")
	assert.Contains(t, out, "intermediate=text")
}

// withAttrsCounter counts how often a logger is derived with attributes.
type withAttrsCounter struct {
	slog.Handler
	calls *atomic.Int32
}

func (h withAttrsCounter) WithAttrs(attrs []slog.Attr) slog.Handler {
	h.calls.Add(1)
	return withAttrsCounter{Handler: h.Handler.WithAttrs(attrs), calls: h.calls}
}

func TestConvertBuildsLoggerOnlyWhenDebugging(t *testing.T) {
	req := Request{Content: "x", SourceFormat: format.Text, TargetFormat: format.Markdown}

	var calls atomic.Int32
	logger := slog.New(withAttrsCounter{Handler: slog.NewTextHandler(&bytes.Buffer{}, nil), calls: &calls})

	quiet := newTestConverter(t, Config{Decoders: newStub(), Logger: logger})
	for range 3 {
		_, err := quiet.Convert(context.Background(), req)
		require.NoError(t, err)
	}
	assert.Zero(t, calls.Load())

	verbose := newTestConverter(t, Config{Decoders: newStub(), Logger: logger, Debug: true})
	_, err := verbose.Convert(context.Background(), req)
	require.NoError(t, err)
	assert.Positive(t, calls.Load())
}

func TestConvertPDFToMarkdown(t *testing.T) {
	data, err := os.ReadFile("../decoder/testdata/hello.pdf")
	require.NoError(t, err)

	conv, err := New(Config{})
	require.NoError(t, err)

	res, err := conv.Convert(context.Background(), Request{
		Content:      base64.StdEncoding.EncodeToString(data),
		Filename:     "hello.pdf",
		SourceFormat: format.PDF,
		TargetFormat: format.Markdown,
	})
	require.NoError(t, err)
	assert.Contains(t, res.Content, "Hello PDF")
	assert.Equal(t, "hello.md", res.Filename)
	assert.Equal(t, format.Markdown, res.Format)
}

func TestDetectFormatAndListFormats(t *testing.T) {
	conv := newTestConverter(t, Config{Decoders: newStub()})

	assert.Equal(t, format.DOCX, conv.DetectFormat("anything", "Report.DOCX"))
	assert.Equal(t, format.HTML, conv.DetectFormat("<p>x</p>", ""))
	assert.Equal(t, format.Text, conv.DetectFormat("plain words", ""))

	formats := conv.ListFormats()
	assert.Equal(t, []format.Format{format.DOCX, format.PDF, format.HTML, format.Text, format.Markdown}, formats.Input)
	assert.Equal(t, []format.Format{format.HTML, format.Text, format.Markdown}, formats.Output)
}

func TestChangeExtension(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{filename: "report.docx", want: "report.md"},
		{filename: "dir/sub/report.final.docx", want: "report.final.md"},
		{filename: "noext", want: "noext.md"},
		{filename: ".env", want: ".env.md"},
		{filename: "trailing.", want: "trailing.md"},
		{filename: "", want: ".md"},
		{filename: "/", want: ".md"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.want, ChangeExtension(tt.filename, format.Markdown))
		})
	}
}

func TestConvertWithDefaultDecoders(t *testing.T) {
	conv := newTestConverter(t, Config{})
	ctx := context.Background()

	res, err := conv.Convert(ctx, Request{Content: "<h1>Hi</h1><p>a <strong>b</strong></p>", SourceFormat: format.HTML, TargetFormat: format.Markdown})
	require.NoError(t, err)
	assert.Equal(t, "# Hi\n\na **b**", res.Content)

	res, err = conv.Convert(ctx, Request{Content: "# Title\n\nSome **bold**.", SourceFormat: format.Markdown, TargetFormat: format.Text})
	require.NoError(t, err)
	assert.Equal(t, "Title\n\nSome bold.", res.Content)

	res, err = conv.Convert(ctx, Request{Content: "# Title\n\nSome **bold**.", SourceFormat: format.Markdown, TargetFormat: format.HTML})
	require.NoError(t, err)
	assert.Contains(t, res.Content, "<h1>Title</h1>")
	assert.Contains(t, res.Content, "<strong>bold</strong>")
}

func TestPlainTextRoundTripPreservesWords(t *testing.T) {
	conv := newTestConverter(t, Config{})
	ctx := context.Background()

	for _, text := range []string{
		"line one\n\nline two",
		"Dear team,\nthe build is green & the release <ships> on \"Friday\".\n\nRegards",
		"   indented words\n\n\n  spaced out  ",
	} {
		markup, err := conv.Convert(ctx, Request{Content: text, SourceFormat: format.Text, TargetFormat: format.HTML})
		require.NoError(t, err)

		back, err := conv.Convert(ctx, Request{Content: markup.Content, SourceFormat: format.HTML, TargetFormat: format.Text})
		require.NoError(t, err)

		assert.Equal(t, strings.Fields(text), strings.Fields(back.Content))
	}
}

func TestConvertCommonMarkEngine(t *testing.T) {
	conv := newTestConverter(t, Config{MarkdownEngine: EngineCommonMark})

	res, err := conv.Convert(context.Background(), Request{Content: "<h1>Hi</h1><p>plain text</p>", SourceFormat: format.HTML, TargetFormat: format.Markdown})
	require.NoError(t, err)
	assert.Equal(t, "# Hi\n\nplain text", res.Content)
}
