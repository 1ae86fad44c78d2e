package store

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmylchreest/hevsound/internal/model"
)

// SchemaVersion is the current journal schema version.
const SchemaVersion = 1

const maxLineSize = 1024 * 1024

// ErrJournalClosed is returned when operations are attempted on a closed journal.
var ErrJournalClosed = errors.New("journal is closed")

// journalHeader is the first line of the JSONL file.
type journalHeader struct {
	HevsoundSchemaVersion int   `json:"hevsound_schema_version"`
	CreatedAt             int64 `json:"created_at"`
}

// Journal is an append-only JSONL log of played sounds.
type Journal struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	closed bool
}

// OpenJournal opens the journal at path, creating it if it doesn't exist.
func OpenJournal(path string) (*Journal, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal %s: %w", path, err)
	}

	j := &Journal{path: path, file: file}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.Size() == 0 {
		if err := writeHeader(file); err != nil {
			file.Close()
			return nil, err
		}
	}

	return j, nil
}

// Path returns the journal file path.
func (j *Journal) Path() string {
	return j.path
}

func writeHeader(w io.Writer) error {
	data, err := json.Marshal(journalHeader{
		HevsoundSchemaVersion: SchemaVersion,
		CreatedAt:             time.Now().Unix(),
	})
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

// Append adds a record to the journal.
func (j *Journal) Append(r model.PlayRecord) error {
	if err := r.Validate(); err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return ErrJournalClosed
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal play record: %w", err)
	}

	if _, err := j.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append to journal: %w", err)
	}
	return j.file.Sync()
}

// Load reads every record in the journal, oldest first.
func (j *Journal) Load() ([]model.PlayRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil, ErrJournalClosed
	}

	if _, err := j.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek %s: %w", j.path, err)
	}
	records, err := readRecords(j.file)
	if _, serr := j.file.Seek(0, io.SeekEnd); serr != nil && err == nil {
		err = serr
	}
	return records, err
}

// Trim keeps only the newest keep records. keep <= 0 keeps everything.
func (j *Journal) Trim(keep int) error {
	if keep <= 0 {
		return nil
	}

	records, err := j.Load()
	if err != nil {
		return err
	}
	if len(records) <= keep {
		return nil
	}

	return j.rewrite(records[len(records)-keep:])
}

// rewrite replaces the journal with records via a temp file.
func (j *Journal) rewrite(records []model.PlayRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return ErrJournalClosed
	}

	tmpPath := j.path + ".tmp"
	tmp, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create temp journal: %w", err)
	}

	w := bufio.NewWriter(tmp)
	err = writeHeader(w)
	for i := 0; err == nil && i < len(records); i++ {
		var data []byte
		data, err = json.Marshal(records[i])
		if err == nil {
			_, err = w.Write(append(data, '\n'))
		}
	}
	if err == nil {
		err = w.Flush()
	}
	if err == nil {
		err = tmp.Sync()
	}
	tmp.Close()
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp journal: %w", err)
	}

	if err := os.Rename(tmpPath, j.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace journal: %w", err)
	}

	j.file.Close()
	file, err := os.OpenFile(j.path, os.O_RDWR|os.O_APPEND, 0600)
	if err != nil {
		j.closed = true
		return fmt.Errorf("failed to reopen journal: %w", err)
	}
	j.file = file
	return nil
}

// Close releases the file handle.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	j.closed = true
	return j.file.Close()
}

// ReadJournal reads the journal at path without opening it for writing.
// A missing journal has no records.
func ReadJournal(path string) ([]model.PlayRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	defer f.Close()

	return readRecords(f)
}

func readRecords(r io.Reader) ([]model.PlayRecord, error) {
	var records []model.PlayRecord

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	first := true
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		if first {
			first = false
			var header journalHeader
			if json.Unmarshal(line, &header) == nil && header.HevsoundSchemaVersion > 0 {
				if header.HevsoundSchemaVersion > SchemaVersion {
					return nil, fmt.Errorf("unsupported journal schema version %d (max: %d)",
						header.HevsoundSchemaVersion, SchemaVersion)
				}
				continue
			}
		}

		var rec model.PlayRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		if rec.ID != "" {
			records = append(records, rec)
		}
	}

	if err := scanner.Err(); err != nil {
		return records, fmt.Errorf("error reading journal: %w", err)
	}
	return records, nil
}
