package formatting

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// JSONFormatter writes results as indented JSON.
type JSONFormatter struct {
	options Options
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(options Options) Formatter {
	return &JSONFormatter{options: options}
}

func (f *JSONFormatter) FormatStatus(w io.Writer, status Status) error {
	_, err := fmt.Fprintln(w, PrettyJSON(status))
	return err
}

func (f *JSONFormatter) FormatDeployment(w io.Writer, deployment Deployment) error {
	_, err := fmt.Fprintln(w, PrettyJSON(deployment))
	return err
}

func (f *JSONFormatter) SetOptions(options Options) {
	f.options = options
}

func (f *JSONFormatter) GetOptions() Options {
	return f.options
}

// YAMLFormatter writes results as YAML documents.
type YAMLFormatter struct {
	options Options
}

// NewYAMLFormatter creates a new YAML formatter
func NewYAMLFormatter(options Options) Formatter {
	return &YAMLFormatter{options: options}
}

func (f *YAMLFormatter) FormatStatus(w io.Writer, status Status) error {
	return f.encode(w, status)
}

func (f *YAMLFormatter) FormatDeployment(w io.Writer, deployment Deployment) error {
	return f.encode(w, deployment)
}

func (f *YAMLFormatter) encode(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return enc.Close()
}

func (f *YAMLFormatter) SetOptions(options Options) {
	f.options = options
}

func (f *YAMLFormatter) GetOptions() Options {
	return f.options
}
