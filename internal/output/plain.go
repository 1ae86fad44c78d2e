package output

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/hevsound/internal/deps"
	"github.com/jmylchreest/hevsound/internal/model"
	"github.com/jmylchreest/hevsound/internal/notify"
)

// PlainFormatter formats output as plain text.
type PlainFormatter struct {
	opts     FormatterOptions
	template *template.Template
}

// templateData is passed to custom history templates.
type templateData struct {
	Index        int
	Record       *model.PlayRecord
	RelativeTime string
}

// NewPlainFormatter creates a new plain text formatter.
func NewPlainFormatter(opts FormatterOptions) *PlainFormatter {
	f := &PlainFormatter{opts: opts}

	if opts.Template != "" {
		tmpl, err := template.New("plain").Funcs(f.templateFuncs()).Parse(opts.Template)
		if err == nil {
			f.template = tmpl
		}
	}

	return f
}

// Records writes one line per record.
func (f *PlainFormatter) Records(w io.Writer, records []model.PlayRecord) error {
	for i := range records {
		if err := f.formatRecord(w, i+1, &records[i]); err != nil {
			return err
		}
	}
	return nil
}

func (f *PlainFormatter) formatRecord(w io.Writer, index int, r *model.PlayRecord) error {
	if f.template != nil {
		data := templateData{
			Index:        index,
			Record:       r,
			RelativeTime: f.relativeTime(r.PlayedAt),
		}
		if err := f.template.Execute(w, data); err != nil {
			return err
		}
		_, err := io.WriteString(w, "\n")
		return err
	}

	var sb strings.Builder

	if f.opts.ShowIndex {
		sb.WriteString(fmt.Sprintf("[%d] ", index))
	}

	sb.WriteString(fmt.Sprintf("%-14s", r.Event))

	if r.Source != "" {
		sb.WriteString(fmt.Sprintf(" <%s>", r.Source))
	}

	sb.WriteString(fmt.Sprintf(" p%d", r.Priority))

	if f.opts.ShowFile && r.File != "" {
		sb.WriteString(" " + filepath.Base(r.File))
	}

	if f.opts.ShowTime {
		sb.WriteString(fmt.Sprintf(" (%s)", f.relativeTime(r.PlayedAt)))
	}

	sb.WriteString("\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

// Events writes one line per event: a marker, the name, and its sound.
func (f *PlainFormatter) Events(w io.Writer, events []EventRow) error {
	for _, e := range events {
		mark := "off"
		if e.Enabled {
			mark = "on"
		}
		line := fmt.Sprintf("%-3s %-14s %-28s vol %.2f  p%d\n",
			mark, e.Event, filepath.Base(e.File), e.Volume, e.Priority)
		if _, err := io.WriteString(w, line); err != nil {
			return err
		}
	}
	return nil
}

// Status writes the activation message followed by details.
func (f *PlainFormatter) Status(w io.Writer, s Status) error {
	var sb strings.Builder

	sb.WriteString(notify.SoundsMessage(s.Enabled) + "\n")

	if s.Daemon {
		sb.WriteString("  Daemon: running\n")
	} else {
		sb.WriteString("  Daemon: not running\n")
	}

	if s.ChangedAt > 0 {
		changed := f.relativeTime(time.Unix(s.ChangedAt, 0).UnixMilli())
		if s.Reason != "" {
			sb.WriteString(fmt.Sprintf("  Changed: %s (%s)\n", changed, s.Reason))
		} else {
			sb.WriteString(fmt.Sprintf("  Changed: %s\n", changed))
		}
	}

	if s.LastEvent != "" {
		sb.WriteString(fmt.Sprintf("  Last sound: %s (%s)\n", s.LastEvent, f.relativeTime(s.LastPlayedAt)))
	}

	if s.LastPriority != nil {
		line := fmt.Sprintf("  Arbiter: last priority p%d", *s.LastPriority)
		if s.Pending {
			line += ", sound pending"
		}
		sb.WriteString(line + "\n")
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// Check writes the check message.
func (f *PlainFormatter) Check(w io.Writer, result deps.Result) error {
	_, err := fmt.Fprintln(w, result.Message())
	return err
}

func (f *PlainFormatter) relativeTime(ms int64) string {
	if ms <= 0 {
		return "unknown"
	}
	return humanize.RelTime(time.UnixMilli(ms), f.opts.now(), "ago", "from now")
}

func (f *PlainFormatter) templateFuncs() template.FuncMap {
	return template.FuncMap{
		"truncate": func(s string, maxLen int) string {
			if maxLen <= 0 || len(s) <= maxLen {
				return s
			}
			if maxLen <= 3 {
				return s[:maxLen]
			}
			return s[:maxLen-3] + "..."
		},
		"reltime": f.relativeTime,
		"base":    filepath.Base,
		"label": func(k model.EventKind) string {
			return k.Label()
		},
	}
}
