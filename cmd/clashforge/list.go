package main

import (
	"fmt"
	"io"

	"github.com/John-Robertt/clashforge/internal/convert"
	"github.com/John-Robertt/clashforge/internal/render"
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	var (
		inputs        []string
		inputFormat   string
		profilePath   string
		profileFormat string
		format        string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the normalized, deduplicated proxy list",
		Example: `  clashforge list -i nodes.json
  clashforge list -i sub.txt --format yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lf, ok := render.ParseListFormat(format)
			if !ok {
				return fmt.Errorf("invalid --format %q (want csv or yaml)", format)
			}
			descs, err := loadDescriptors(cmd, inputs, inputFormat)
			if err != nil {
				return err
			}
			spec, err := loadProfile(cmd, profilePath, profileFormat)
			if err != nil {
				return err
			}
			text, diags, err := convert.List(descs, spec, lf)
			if err != nil {
				return err
			}
			if _, err := io.WriteString(cmd.OutOrStdout(), text); err != nil {
				return err
			}
			printDiagnostics(cmd.ErrOrStderr(), diags)
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringArrayVarP(&inputs, "input", "i", nil, "descriptor input (repeatable, - for stdin)")
	fl.StringVar(&inputFormat, "input-format", "auto", "input format (auto, json, yaml, ss)")
	fl.StringVarP(&profilePath, "profile", "p", "", "profile supplying unknown_kinds and identity policies")
	fl.StringVar(&profileFormat, "profile-format", "auto", "profile format (auto, yaml, ini)")
	fl.StringVar(&format, "format", "csv", "output format (csv, yaml)")
	return cmd
}
