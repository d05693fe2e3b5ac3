package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

type outputMode string

const (
	outputText outputMode = "text"
	outputJSON outputMode = "json"
	outputYAML outputMode = "yaml"
)

func parseOutputMode(s string) (outputMode, error) {
	switch mode := outputMode(strings.ToLower(strings.TrimSpace(s))); mode {
	case "", outputText:
		return outputText, nil
	case outputJSON, outputYAML:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown output %q (allowed: text, json, yaml)", s)
	}
}

// writeStructured encodes v as JSON or YAML. Text output is written by each
// command.
func writeStructured(w io.Writer, mode outputMode, v any) error {
	switch mode {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		return nil
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("output %q is not structured", mode)
	}
}
