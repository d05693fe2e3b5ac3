package main

import (
	"encoding/base64"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/rgonek/docpivot/format"
)

type detectRecord struct {
	File   string        `json:"file" yaml:"file"`
	Format format.Format `json:"format" yaml:"format"`
}

func (a *app) newDetectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect <file>",
		Short: "Print the detected format of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFlag, _ := cmd.Flags().GetString("output")
			mode, err := parseOutputMode(outputFlag)
			if err != nil {
				return err
			}

			conv, err := a.newConverter()
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			content := string(data)
			if !utf8.Valid(data) {
				content = base64.StdEncoding.EncodeToString(data)
			}

			rec := detectRecord{File: args[0], Format: conv.DetectFormat(content, args[0])}
			if mode != outputText {
				return writeStructured(a.stdout, mode, rec)
			}
			fmt.Fprintln(a.stdout, rec.Format)
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", string(outputText), "output: text|json|yaml")
	return cmd
}
