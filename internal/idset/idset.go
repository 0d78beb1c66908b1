// internal/idset/idset.go
package idset

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	apperr "github.com/rasbt/screenlamp/pkg/errors"
)

// CommentPrefix marks lines skipped by Read.
const CommentPrefix = "#"

// Set is an identifier set that remembers first-seen order.
type Set struct {
	m     map[string]struct{}
	order []string
}

func New(ids ...string) *Set {
	s := &Set{m: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id and reports whether it was new.
func (s *Set) Add(id string) bool {
	if _, ok := s.m[id]; ok {
		return false
	}
	s.m[id] = struct{}{}
	s.order = append(s.order, id)
	return true
}

func (s *Set) Has(id string) bool {
	_, ok := s.m[id]
	return ok
}

func (s *Set) Len() int { return len(s.order) }

// IDs returns the ids in first-seen order. The slice must not be modified.
func (s *Set) IDs() []string { return s.order }

// Read parses one id per line; blank and comment lines are skipped and
// surrounding whitespace is trimmed.
func Read(r io.Reader) (*Set, error) {
	s := New()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, CommentPrefix) {
			continue
		}
		s.Add(line)
	}
	if err := sc.Err(); err != nil {
		return nil, apperr.IO(err, "read id list")
	}
	return s, nil
}

// Load reads an id file.
func Load(path string) (*Set, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, apperr.IO(err, "open id file %s", path)
	}
	defer fh.Close()
	s, err := Read(fh)
	if err != nil {
		return nil, apperr.Wrap(err, "", "id file %s", path)
	}
	return s, nil
}

// Write writes one id per line.
func Write(w io.Writer, ids []string) error {
	bw := bufio.NewWriter(w)
	for _, id := range ids {
		if _, err := bw.WriteString(id); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile writes ids to path ("-" is stdout). The file appears only once
// every id is written.
func WriteFile(path string, ids []string) error {
	w, err := Create(path)
	if err != nil {
		return err
	}
	defer w.Close()
	if err := Write(w.bw, ids); err != nil {
		return apperr.IO(err, "write id file %s", path)
	}
	return w.Commit()
}

// Merge is the union of sets in first-seen order.
func Merge(sets ...*Set) *Set {
	out := New()
	for _, s := range sets {
		for _, id := range s.order {
			out.Add(id)
		}
	}
	return out
}

// FileWriter streams ids, one per line, into a temporary file next to path.
// Commit renames it into place; Close without Commit removes it, so a failed
// run never leaves a partial id file behind.
type FileWriter struct {
	path   string
	tmp    *os.File
	bw     *bufio.Writer
	closed bool
}

// Create starts an id file at path ("-" is stdout).
func Create(path string) (*FileWriter, error) {
	if path == "-" {
		return &FileWriter{path: path, bw: bufio.NewWriter(os.Stdout)}, nil
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return nil, apperr.IO(err, "create id file %s", path)
	}
	_ = tmp.Chmod(0o644)
	return &FileWriter{path: path, tmp: tmp, bw: bufio.NewWriter(tmp)}, nil
}

func (w *FileWriter) Add(id string) error {
	if _, err := w.bw.WriteString(id); err != nil {
		return apperr.IO(err, "write id file %s", w.path)
	}
	if err := w.bw.WriteByte('\n'); err != nil {
		return apperr.IO(err, "write id file %s", w.path)
	}
	return nil
}

// Commit flushes the ids and moves the file to its final path.
func (w *FileWriter) Commit() error {
	if w.closed {
		return apperr.IO(os.ErrClosed, "commit id file %s", w.path)
	}
	w.closed = true
	if err := w.bw.Flush(); err != nil {
		w.discard()
		return apperr.IO(err, "write id file %s", w.path)
	}
	if w.tmp == nil {
		return nil
	}
	if err := w.tmp.Close(); err != nil {
		_ = os.Remove(w.tmp.Name())
		return apperr.IO(err, "close id file %s", w.path)
	}
	if err := os.Rename(w.tmp.Name(), w.path); err != nil {
		_ = os.Remove(w.tmp.Name())
		return apperr.IO(err, "rename id file %s", w.path)
	}
	return nil
}

// Close drops everything written unless Commit succeeded. It is idempotent.
func (w *FileWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.discard()
	return nil
}

func (w *FileWriter) discard() {
	if w.tmp == nil {
		return
	}
	_ = w.tmp.Close()
	_ = os.Remove(w.tmp.Name())
}
