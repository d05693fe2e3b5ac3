package main

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/rgonek/docpivot/converter"
	"github.com/rgonek/docpivot/format"
)

type convertRecord struct {
	Input    string        `json:"input" yaml:"input"`
	Source   format.Format `json:"source,omitempty" yaml:"source,omitempty"`
	Target   format.Format `json:"target" yaml:"target"`
	Filename string        `json:"filename,omitempty" yaml:"filename,omitempty"`
	Path     string        `json:"path,omitempty" yaml:"path,omitempty"`
	Content  string        `json:"content,omitempty" yaml:"content,omitempty"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
}

func (a *app) newConvertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert <file>...",
		Short: "Convert files to another format",
		Long: `Convert reads each file, detects its format unless --from is given, and
converts it to the --to format. Results go to stdout, or to <base>.<ext> files
in --out-dir.`,
		Args: cobra.MinimumNArgs(1),
		RunE: a.runConvert,
	}

	cmd.Flags().String("to", "", "target format: html|txt|md")
	cmd.Flags().String("from", "", "source format (detected when empty)")
	cmd.Flags().String("out-dir", "", "write results into this directory")
	cmd.Flags().StringP("output", "o", string(outputText), "output: text|json|yaml")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func (a *app) runConvert(cmd *cobra.Command, args []string) error {
	toFlag, _ := cmd.Flags().GetString("to")
	fromFlag, _ := cmd.Flags().GetString("from")
	outDir, _ := cmd.Flags().GetString("out-dir")
	outputFlag, _ := cmd.Flags().GetString("output")

	mode, err := parseOutputMode(outputFlag)
	if err != nil {
		return err
	}
	target, err := format.Parse(toFlag)
	if err != nil {
		return err
	}
	var source format.Format
	if fromFlag != "" {
		if source, err = format.Parse(fromFlag); err != nil {
			return err
		}
	}

	conv, err := a.newConverter()
	if err != nil {
		return err
	}

	records := make([]convertRecord, len(args))
	reqs := make([]converter.Request, 0, len(args))
	pending := make([]int, 0, len(args))
	for i, path := range args {
		records[i] = convertRecord{Input: path, Target: target}

		req, err := a.loadRequest(conv, path, source, target)
		records[i].Source = req.SourceFormat
		if err != nil {
			records[i].Error = err.Error()
			continue
		}
		reqs = append(reqs, req)
		pending = append(pending, i)
	}

	for j, item := range conv.ConvertAll(cmd.Context(), reqs) {
		rec := &records[pending[j]]
		if item.Err != nil {
			rec.Error = item.Err.Error()
			continue
		}
		rec.Filename = item.Result.Filename
		if outDir == "" {
			rec.Content = item.Result.Content
			continue
		}
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			rec.Error = err.Error()
			continue
		}
		out := filepath.Join(outDir, item.Result.Filename)
		if err := os.WriteFile(out, []byte(item.Result.Content), 0o644); err != nil {
			rec.Error = err.Error()
			continue
		}
		rec.Path = out
	}

	if mode != outputText {
		if err := writeStructured(a.stdout, mode, records); err != nil {
			return err
		}
	} else {
		a.printRecords(records)
	}

	failed := 0
	for _, rec := range records {
		if rec.Error != "" {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d conversions failed", failed, len(records))
	}
	return nil
}

// loadRequest reads a file into a request. Binary sources are base64-encoded;
// detection sees the encoded form when the file is not valid UTF-8.
func (a *app) loadRequest(conv *converter.Converter, path string, source, target format.Format) (converter.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return converter.Request{SourceFormat: source}, err
	}

	if source == "" {
		sample := string(data)
		if !utf8.Valid(data) {
			sample = base64.StdEncoding.EncodeToString(data)
		}
		source = conv.DetectFormat(sample, path)
	}

	content := string(data)
	if source.Binary() {
		content = base64.StdEncoding.EncodeToString(data)
	}

	req := converter.Request{
		Content:      content,
		SourceFormat: source,
		TargetFormat: target,
		Filename:     filepath.Base(path),
	}
	if err := conv.Config().CheckSize(content, source); err != nil {
		return req, err
	}
	return req, nil
}

func (a *app) printRecords(records []convertRecord) {
	for _, rec := range records {
		switch {
		case rec.Error != "":
			fmt.Fprintf(a.stderr, "%s: %s\n", rec.Input, rec.Error)
		case rec.Path != "":
			fmt.Fprintf(a.stdout, "%s -> %s\n", rec.Input, rec.Path)
		default:
			fmt.Fprintln(a.stdout, rec.Content)
		}
	}
}
