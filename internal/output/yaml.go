package output

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/hevsound/internal/deps"
	"github.com/jmylchreest/hevsound/internal/model"
)

// YAMLFormatter formats output as YAML.
type YAMLFormatter struct {
	opts FormatterOptions
}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter(opts FormatterOptions) *YAMLFormatter {
	return &YAMLFormatter{opts: opts}
}

// Records writes records as a YAML sequence.
func (f *YAMLFormatter) Records(w io.Writer, records []model.PlayRecord) error {
	if records == nil {
		records = []model.PlayRecord{}
	}
	return f.encode(w, records)
}

// Events writes event rows as a YAML sequence.
func (f *YAMLFormatter) Events(w io.Writer, events []EventRow) error {
	if events == nil {
		events = []EventRow{}
	}
	return f.encode(w, events)
}

// Status writes the status as a YAML mapping.
func (f *YAMLFormatter) Status(w io.Writer, status Status) error {
	return f.encode(w, status)
}

// Check writes the check result as a YAML mapping.
func (f *YAMLFormatter) Check(w io.Writer, result deps.Result) error {
	return f.encode(w, result)
}

func (f *YAMLFormatter) encode(w io.Writer, v any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(v); err != nil {
		return err
	}
	return encoder.Close()
}
