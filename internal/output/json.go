package output

import (
	"encoding/json"
	"io"

	"github.com/jmylchreest/hevsound/internal/deps"
	"github.com/jmylchreest/hevsound/internal/model"
)

// JSONFormatter formats output as JSON.
type JSONFormatter struct {
	opts FormatterOptions
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter(opts FormatterOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// Records writes records as a JSON array.
func (f *JSONFormatter) Records(w io.Writer, records []model.PlayRecord) error {
	if records == nil {
		records = []model.PlayRecord{}
	}
	return f.encode(w, records)
}

// Events writes event rows as a JSON array.
func (f *JSONFormatter) Events(w io.Writer, events []EventRow) error {
	if events == nil {
		events = []EventRow{}
	}
	return f.encode(w, events)
}

// Status writes the status as a JSON object.
func (f *JSONFormatter) Status(w io.Writer, status Status) error {
	return f.encode(w, status)
}

// Check writes the check result as a JSON object.
func (f *JSONFormatter) Check(w io.Writer, result deps.Result) error {
	return f.encode(w, result)
}

func (f *JSONFormatter) encode(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	if !f.opts.Compact {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(v)
}
