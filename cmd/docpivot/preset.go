package main

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/rgonek/docpivot/converter"
)

const (
	presetBalanced   = "balanced"
	presetSafe       = "safe"
	presetCommonMark = "commonmark"
)

func presetConfig(preset string) (converter.Config, error) {
	switch strings.ToLower(strings.TrimSpace(preset)) {
	case "", presetBalanced:
		return converter.Config{}, nil
	case presetSafe:
		return converter.Config{
			SanitizeHTML: true,
		}, nil
	case presetCommonMark:
		return converter.Config{
			MarkdownEngine: converter.EngineCommonMark,
			SanitizeHTML:   true,
		}, nil
	default:
		return converter.Config{}, fmt.Errorf("unknown preset %q (allowed: balanced, safe, commonmark)", preset)
	}
}

// resolveConfig starts from the preset and applies every setting the user
// gave explicitly.
func resolveConfig(v *viper.Viper) (converter.Config, error) {
	cfg, err := presetConfig(v.GetString(keyPreset))
	if err != nil {
		return converter.Config{}, err
	}

	if v.IsSet(keyMarkdownEngine) {
		cfg.MarkdownEngine = converter.MarkdownEngine(strings.ToLower(v.GetString(keyMarkdownEngine)))
	}
	if v.IsSet(keySanitizeHTML) {
		cfg.SanitizeHTML = v.GetBool(keySanitizeHTML)
	}
	cfg.Debug = v.GetBool(keyDebug)
	cfg.MaxFileSize = v.GetInt64(keyMaxFileSize)
	cfg.Concurrency = v.GetInt(keyConcurrency)

	return cfg, nil
}
