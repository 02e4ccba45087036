package cmd

import (
	"wasdeploy/internal/formatting"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// outputFlags are shared by the commands that print results.
type outputFlags struct {
	format  string
	quiet   bool
	noColor bool
}

func (o *outputFlags) register(cmd *cobra.Command, defaultFormat formatting.OutputFormat) {
	cmd.Flags().StringVarP(&o.format, "output", "o", string(defaultFormat), "Output format (console, table, json, yaml)")
	cmd.Flags().BoolVarP(&o.quiet, "quiet", "q", false, "Suppress non-essential output")
	cmd.Flags().BoolVar(&o.noColor, "no-color", false, "Disable colored output")
}

func (o *outputFlags) formatter() (formatting.Formatter, error) {
	format, err := formatting.ParseFormat(o.format)
	if err != nil {
		return nil, err
	}
	return formatting.NewFactory().CreateFormatter(formatting.Options{
		Format: format,
		Quiet:  o.quiet,
		// color.NoColor is set when stdout is not a terminal or NO_COLOR is present.
		Color: !o.noColor && !color.NoColor,
	}), nil
}
