package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rgonek/docpivot/converter"
)

const (
	keyPreset         = "preset"
	keyDebug          = "debug"
	keyMaxFileSize    = "max_file_size"
	keyMarkdownEngine = "markdown_engine"
	keySanitizeHTML   = "sanitize_html"
	keyConcurrency    = "concurrency"
)

type app struct {
	v      *viper.Viper
	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(v *viper.Viper, stdout, stderr io.Writer) *cobra.Command {
	a := &app{v: v, stdout: stdout, stderr: stderr}

	rootCmd := &cobra.Command{
		Use:   "docpivot",
		Short: "Convert documents between docx, pdf, html, txt and md",
		Long: `docpivot converts documents through an HTML or plain-text intermediate.
docx and pdf are read-only; html, txt and md can be both read and written.

Settings come from flags, DOCPIVOT_* environment variables, a .env file and
docpivot.yaml (current directory or ~/.config/docpivot/).`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfgFile, _ := cmd.Flags().GetString("config")
			return a.initConfig(cfgFile)
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default: ./docpivot.yaml or ~/.config/docpivot/docpivot.yaml)")
	flags.String("preset", presetBalanced, "preset: balanced|safe|commonmark")
	flags.Bool("debug", false, "log conversion phases")
	flags.Int64("max-file-size", converter.DefaultMaxFileSize, "maximum decoded input size in bytes")
	flags.String("markdown-engine", string(converter.EngineBuiltin), "markdown engine: builtin|commonmark")
	flags.Bool("sanitize-html", false, "sanitize html output")
	flags.Int("concurrency", converter.DefaultConcurrency, "number of files converted at once")

	cobra.CheckErr(v.BindPFlag(keyPreset, flags.Lookup("preset")))
	cobra.CheckErr(v.BindPFlag(keyDebug, flags.Lookup("debug")))
	cobra.CheckErr(v.BindPFlag(keyMaxFileSize, flags.Lookup("max-file-size")))
	cobra.CheckErr(v.BindPFlag(keyMarkdownEngine, flags.Lookup("markdown-engine")))
	cobra.CheckErr(v.BindPFlag(keySanitizeHTML, flags.Lookup("sanitize-html")))
	cobra.CheckErr(v.BindPFlag(keyConcurrency, flags.Lookup("concurrency")))

	rootCmd.AddCommand(
		a.newConvertCmd(),
		a.newDetectCmd(),
		a.newFormatsCmd(),
	)
	return rootCmd
}

func (a *app) initConfig(cfgFile string) error {
	if cfgFile != "" {
		a.v.SetConfigFile(cfgFile)
	} else {
		a.v.SetConfigName("docpivot")
		a.v.SetConfigType("yaml")
		a.v.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			a.v.AddConfigPath(filepath.Join(home, ".config", "docpivot"))
		}
	}

	a.v.SetEnvPrefix("DOCPIVOT")
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

func (a *app) logger() *slog.Logger {
	level := slog.LevelInfo
	if a.v.GetBool(keyDebug) {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))
}

func (a *app) newConverter() (*converter.Converter, error) {
	cfg, err := resolveConfig(a.v)
	if err != nil {
		return nil, err
	}
	cfg.Logger = a.logger()

	conv, err := converter.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return conv, nil
}
