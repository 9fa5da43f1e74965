package docstore

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.mongodb.org/mongo-driver/bson"
)

const (
	deletedField = "_deleted"

	// share of unreadable lines tolerated when loading a file
	corruptThreshold = 0.1

	maxLineSize = 16 << 20
)

var ErrCorrupt = errors.New("docstore: too many corrupt lines")

type logFile struct {
	path string
	f    *os.File
}

func tombstone(id string) Document {
	return Document{IDField: id, deletedField: true}
}

func isTombstone(d Document) bool {
	del, _ := d[deletedField].(bool)
	return del
}

// openLogFile opens (creating if needed) the file at path and returns every
// readable line in order.
func openLogFile(path string) (*logFile, []Document, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("docstore: create data dir: %w", err)
	}
	docs, err := readLines(path)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("docstore: open %s: %w", path, err)
	}
	return &logFile{path: path, f: f}, docs, nil
}

func readLines(path string) ([]Document, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("docstore: open %s: %w", path, err)
	}
	defer f.Close()

	var (
		docs    []Document
		total   int
		corrupt int
	)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		total++
		var d Document
		if err := bson.UnmarshalExtJSON(line, true, &d); err != nil {
			corrupt++
			continue
		}
		if id, ok := d[IDField].(string); !ok || id == "" {
			corrupt++
			continue
		}
		docs = append(docs, d)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("docstore: read %s: %w", path, err)
	}
	if total > 0 && float64(corrupt)/float64(total) > corruptThreshold {
		return nil, fmt.Errorf("%w: %d of %d in %s", ErrCorrupt, corrupt, total, path)
	}
	return docs, nil
}

func encodeLines(docs []Document) ([]byte, error) {
	var buf bytes.Buffer
	for _, d := range docs {
		line, err := bson.MarshalExtJSON(d, true, false)
		if err != nil {
			return nil, fmt.Errorf("docstore: encode line: %w", err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

func (l *logFile) append(docs ...Document) error {
	if len(docs) == 0 {
		return nil
	}
	data, err := encodeLines(docs)
	if err != nil {
		return err
	}
	if _, err := l.f.Write(data); err != nil {
		return fmt.Errorf("docstore: append %s: %w", l.path, err)
	}
	return nil
}

// rename is swapped in tests.
var rename = os.Rename

// rewrite replaces the file content with docs via a temp file and rename,
// then reopens the append handle. On failure the current handle stays open.
func (l *logFile) rewrite(docs []Document) error {
	data, err := encodeLines(docs)
	if err != nil {
		return err
	}
	tmp := l.path + "~"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("docstore: write %s: %w", tmp, err)
	}
	if err := rename(tmp, l.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("docstore: rename %s: %w", tmp, err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("docstore: reopen %s: %w", l.path, err)
	}
	old := l.f
	l.f = f
	if err := old.Close(); err != nil {
		return fmt.Errorf("docstore: close %s: %w", l.path, err)
	}
	return nil
}

func (l *logFile) close() error {
	return l.f.Close()
}
