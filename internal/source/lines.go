package source

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jmylchreest/hevsound/internal/model"
)

// Lines reads newline-delimited events. Each line is either an event name
// ("file_save", "saveFile") or a JSON object {"event": "...", "source": "..."}.
// Blank lines and lines starting with '#' are ignored.
type Lines struct {
	name       string
	reader     io.Reader
	dispatcher Dispatcher
	logger     *slog.Logger
}

// NewStdin creates a Lines source reading from os.Stdin.
func NewStdin(d Dispatcher, logger *slog.Logger) *Lines {
	return NewLines("stdin", os.Stdin, d, logger)
}

// NewLines creates a Lines source reading from r.
func NewLines(name string, r io.Reader, d Dispatcher, logger *slog.Logger) *Lines {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lines{name: name, reader: r, dispatcher: d, logger: logger}
}

// Name returns the source identifier.
func (l *Lines) Name() string {
	return l.name
}

// lineEvent is the JSON form of a line.
type lineEvent struct {
	Event  string `json:"event"`
	Source string `json:"source,omitempty"`
}

// Run reads until EOF or until ctx is done. Malformed lines are logged
// and skipped.
func (l *Lines) Run(ctx context.Context) error {
	lines := make(chan string)
	errCh := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	// Reads block, so they run on their own goroutine.
	go func() {
		scanner := bufio.NewScanner(l.reader)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		errCh <- scanner.Err()
	}()

	lineNum := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			if err != nil {
				return &SourceError{Source: l.name, Message: "failed to read input", Err: err}
			}
			l.logger.Debug("event input closed", "source", l.name)
			return nil
		case line := <-lines:
			lineNum++
			kind, source, err := l.parse(line)
			if err != nil {
				l.logger.Warn("skipping event line", "error", &SourceError{
					Source: l.name, Message: "invalid event", Line: lineNum, Err: err,
				})
				continue
			}
			if kind == "" {
				continue
			}
			if _, err := l.dispatcher.Dispatch(kind, source); err != nil {
				l.logger.Warn("failed to dispatch event", "event", kind, "error", err)
			}
		}
	}
}

// parse returns an empty kind for lines that carry no event.
func (l *Lines) parse(line string) (model.EventKind, string, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", nil
	}

	source := l.name
	name := line
	if strings.HasPrefix(line, "{") {
		var ev lineEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			return "", "", fmt.Errorf("failed to parse JSON event: %w", err)
		}
		if ev.Event == "" {
			return "", "", errors.New("missing event field")
		}
		name = ev.Event
		if ev.Source != "" {
			source = ev.Source
		}
	}

	kind, err := model.ParseEventKind(name)
	if err != nil {
		return "", "", err
	}
	return kind, source, nil
}
