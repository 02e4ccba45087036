package formatting

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// ConsoleFormatter prints short human-readable lines.
type ConsoleFormatter struct {
	options Options
	ok      *color.Color
	bad     *color.Color
	key     *color.Color
}

// NewConsoleFormatter creates a new console formatter
func NewConsoleFormatter(options Options) Formatter {
	f := &ConsoleFormatter{}
	f.SetOptions(options)
	return f
}

func (f *ConsoleFormatter) FormatStatus(w io.Writer, status Status) error {
	if !status.Reachable {
		_, err := fmt.Fprintf(w, "%s %s server is not reachable\n", f.bad.Sprint("✗"), status.Kind)
		return err
	}
	if f.options.Quiet {
		_, err := fmt.Fprintln(w, status.Handle.ManagementAddress)
		return err
	}
	_, err := fmt.Fprintf(w, "%s %s server reachable at %s\n", f.ok.Sprint("✓"), status.Kind, f.key.Sprint(status.Handle.String()))
	return err
}

func (f *ConsoleFormatter) FormatDeployment(w io.Writer, deployment Deployment) error {
	if f.options.Quiet {
		for _, root := range deployment.Endpoint.ContextRoots() {
			if _, err := fmt.Fprintln(w, deployment.Endpoint.BaseURL(root)); err != nil {
				return err
			}
		}
		return nil
	}

	if _, err := fmt.Fprintf(w, "%s Deployed %s as %s on %s\n",
		f.ok.Sprint("✓"), deployment.Archive, f.key.Sprint(deployment.Name), deployment.Handle.String()); err != nil {
		return err
	}
	for _, s := range deployment.Endpoint.Servlets {
		if _, err := fmt.Fprintf(w, "  %s %s\n", f.key.Sprint(s.Name), deployment.Endpoint.BaseURL(s.ContextRoot)); err != nil {
			return err
		}
	}
	return nil
}

func (f *ConsoleFormatter) SetOptions(options Options) {
	f.options = options
	f.ok = color.New(color.FgGreen)
	f.bad = color.New(color.FgRed)
	f.key = color.New(color.FgHiCyan)
	if !options.Color {
		f.ok.DisableColor()
		f.bad.DisableColor()
		f.key.DisableColor()
	}
}

func (f *ConsoleFormatter) GetOptions() Options {
	return f.options
}
