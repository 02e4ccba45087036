// Package formatting renders deployment results for the command line.
//
// The same data (a server handle, an endpoint contract) can be printed as
// plain console lines, a rich table, JSON or YAML. Callers pick a format
// with Options and obtain a Formatter from a Factory.
package formatting

import (
	"fmt"
	"io"
	"strings"

	"wasdeploy/internal/api"
)

// OutputFormat represents the desired output format
type OutputFormat string

const (
	FormatConsole OutputFormat = "console" // Simple console output
	FormatJSON    OutputFormat = "json"    // JSON output
	FormatYAML    OutputFormat = "yaml"    // YAML output
	FormatTable   OutputFormat = "table"   // Rich table output
)

// SupportedFormats lists the formats accepted by ParseFormat.
var SupportedFormats = []OutputFormat{FormatConsole, FormatTable, FormatJSON, FormatYAML}

// ParseFormat maps a flag value to an OutputFormat.
func ParseFormat(s string) (OutputFormat, error) {
	f := OutputFormat(strings.ToLower(strings.TrimSpace(s)))
	if f == "" {
		return FormatConsole, nil
	}
	for _, supported := range SupportedFormats {
		if f == supported {
			return f, nil
		}
	}
	names := make([]string, len(SupportedFormats))
	for i, supported := range SupportedFormats {
		names[i] = string(supported)
	}
	return "", fmt.Errorf("unsupported output format: %s (supported: %s)", s, strings.Join(names, ", "))
}

// Options configures the formatter behavior
type Options struct {
	Format OutputFormat
	Quiet  bool // Suppress decorative elements
	Color  bool // Enable colored output
}

// Status is the outcome of a reachability check.
type Status struct {
	Kind      string           `json:"kind" yaml:"kind"`
	Reachable bool             `json:"reachable" yaml:"reachable"`
	Handle    api.ServerHandle `json:"handle" yaml:"handle"`
}

// Deployment is the outcome of a deploy command.
type Deployment struct {
	Archive  string               `json:"archive" yaml:"archive"`
	Name     string               `json:"name" yaml:"name"`
	Handle   api.ServerHandle     `json:"handle" yaml:"handle"`
	Endpoint api.EndpointContract `json:"endpoint" yaml:"endpoint"`
}

// Formatter writes command results to w.
type Formatter interface {
	FormatStatus(w io.Writer, status Status) error
	FormatDeployment(w io.Writer, deployment Deployment) error

	// Configuration
	SetOptions(options Options)
	GetOptions() Options
}

// Factory creates formatters for different output formats
type Factory interface {
	CreateFormatter(options Options) Formatter
}

// NewFactory creates a new formatter factory
func NewFactory() Factory {
	return &factory{}
}

type factory struct{}

// CreateFormatter creates the appropriate formatter based on options
func (f *factory) CreateFormatter(options Options) Formatter {
	switch options.Format {
	case FormatJSON:
		return NewJSONFormatter(options)
	case FormatYAML:
		return NewYAMLFormatter(options)
	case FormatTable:
		return NewTableFormatter(options)
	case FormatConsole:
		fallthrough
	default:
		return NewConsoleFormatter(options)
	}
}
