package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rgonek/docpivot/format"
)

func (a *app) newFormatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "formats",
		Short: "List the formats that can be read and written",
		Args:  cobra.NoArgs,
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

			formats := conv.ListFormats()
			if mode != outputText {
				return writeStructured(a.stdout, mode, formats)
			}
			fmt.Fprintf(a.stdout, "input:  %s\n", joinFormats(formats.Input))
			fmt.Fprintf(a.stdout, "output: %s\n", joinFormats(formats.Output))
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", string(outputText), "output: text|json|yaml")
	return cmd
}

func joinFormats(set []format.Format) string {
	names := make([]string, len(set))
	for i, f := range set {
		names[i] = f.String()
	}
	return strings.Join(names, ", ")
}
