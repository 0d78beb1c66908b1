package idset

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	apperr "github.com/rasbt/screenlamp/pkg/errors"
)

func TestRead_SkipsCommentsAndBlanks(t *testing.T) {
	s, err := Read(strings.NewReader("# header\nm1\n\n  m2  \n#m3\nm1\r\n"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := strings.Join(s.IDs(), ","); got != "m1,m2" {
		t.Fatalf("ids = %q", got)
	}
	if !s.Has("m2") || s.Has("m3") {
		t.Fatalf("membership wrong: %v", s.IDs())
	}
}

func TestLoad_MissingFileIsIOError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.txt"))
	if !apperr.IsCode(err, apperr.CodeIO) {
		t.Fatalf("want IO error, got %v", err)
	}
}

func TestWriteFileAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ids.txt")
	if err := WriteFile(path, []string{"a", "b"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "a\nb\n" {
		t.Fatalf("file = %q", data)
	}
	s, err := Load(path)
	if err != nil || s.Len() != 2 {
		t.Fatalf("load: %v %v", s, err)
	}
}

func TestFileWriter_CloseWithoutCommitLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ids.txt")
	w, err := Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, id := range []string{"a", "b"} {
		if err := w.Add(id); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("directory not empty after abort: %v", entries)
	}
}

func TestFileWriter_CommitReplacesOldFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ids.txt")
	if err := os.WriteFile(path, []byte("old\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	w, err := Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer w.Close()
	_ = w.Add("new")
	if data, _ := os.ReadFile(path); string(data) != "old\n" {
		t.Fatalf("file changed before commit: %q", data)
	}
	if err := w.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if data, _ := os.ReadFile(path); string(data) != "new\n" {
		t.Fatalf("file = %q", data)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("leftover files: %v", entries)
	}
	if err := w.Commit(); !apperr.IsCode(err, apperr.CodeIO) {
		t.Fatalf("second commit: %v", err)
	}
}

func TestMerge_FirstSeenOrder(t *testing.T) {
	m := Merge(New("b", "a"), New("a", "c"))
	var buf bytes.Buffer
	if err := Write(&buf, m.IDs()); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "b\na\nc\n" {
		t.Fatalf("merged = %q", buf.String())
	}
}
