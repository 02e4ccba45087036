package formatting

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// TableFormatter provides rich table formatting
type TableFormatter struct {
	options Options
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(options Options) Formatter {
	return &TableFormatter{
		options: options,
	}
}

func (f *TableFormatter) FormatStatus(w io.Writer, status Status) error {
	t := f.createTable(w)
	t.AppendHeader(table.Row{f.header("KIND"), f.header("TRANSPORT"), f.header("ADDRESS"), f.header("PID"), f.header("REACHABLE")})

	reachable := f.paint(text.FgRed, "no")
	if status.Reachable {
		reachable = f.paint(text.FgGreen, "yes")
	}
	pid := status.Handle.ProcessID
	if pid == "" {
		pid = "-"
	}
	t.AppendRow(table.Row{status.Kind, string(status.Handle.TransportKind), status.Handle.ManagementAddress, pid, reachable})
	t.Render()
	return nil
}

func (f *TableFormatter) FormatDeployment(w io.Writer, deployment Deployment) error {
	if len(deployment.Endpoint.Servlets) == 0 {
		_, err := fmt.Fprintf(w, "%s %s\n", f.paint(text.FgYellow, "📋"), f.paint(text.FgYellow, "No servlets found for "+deployment.Name))
		return err
	}

	t := f.createTable(w)
	t.SetTitle(fmt.Sprintf("%s (%s)", deployment.Name, deployment.Archive))
	t.AppendHeader(table.Row{f.header("SERVLET"), f.header("CONTEXT ROOT"), f.header("URL")})
	for _, s := range deployment.Endpoint.Servlets {
		t.AppendRow(table.Row{
			f.paint(text.FgHiCyan, s.Name),
			s.ContextRoot,
			deployment.Endpoint.BaseURL(s.ContextRoot),
		})
	}
	t.Render()

	if !f.options.Quiet {
		_, err := fmt.Fprintf(w, "\n%s %s %s\n",
			f.paint(text.FgHiBlue, "Total:"),
			f.paint(text.FgHiWhite, fmt.Sprint(len(deployment.Endpoint.Servlets))),
			f.paint(text.FgHiBlue, "servlets"))
		return err
	}
	return nil
}

// SetOptions updates the formatter options
func (f *TableFormatter) SetOptions(options Options) {
	f.options = options
}

// GetOptions returns the current formatter options
func (f *TableFormatter) GetOptions() Options {
	return f.options
}

// createTable creates a new table with standard styling
func (f *TableFormatter) createTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

func (f *TableFormatter) header(s string) string {
	return f.paint(text.FgHiCyan, s)
}

func (f *TableFormatter) paint(c text.Color, s string) string {
	if !f.options.Color {
		return s
	}
	return c.Sprint(s)
}
