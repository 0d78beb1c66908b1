package cliutil

import (
	"os"
	"path/filepath"
	"testing"

	apperr "github.com/rasbt/screenlamp/pkg/errors"
)

func TestExpandPositionals(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	_ = os.WriteFile(a, []byte("Z1\n"), 0o644)
	_ = os.WriteFile(b, []byte("Z2\n"), 0o644)
	got, err := ExpandPositionals([]string{filepath.Join(dir, "*.txt"), "-"})
	if err != nil || len(got) != 3 || got[0] != a || got[1] != b || got[2] != "-" {
		t.Fatalf("expand: err=%v got=%v", err, got)
	}
}

func TestExpandPositionalsKeepsRemoteAndLiteral(t *testing.T) {
	in := []string{"s3://bucket/ids[1].txt", "plain.txt"}
	got, err := ExpandPositionals(in)
	if err != nil || len(got) != 2 || got[0] != in[0] || got[1] != in[1] {
		t.Fatalf("expand: err=%v got=%v", err, got)
	}
}

func TestExpandPositionalsNoMatch(t *testing.T) {
	_, err := ExpandPositionals([]string{filepath.Join(t.TempDir(), "*.none")})
	if !apperr.IsCode(err, apperr.CodeConfig) {
		t.Fatalf("want config error, got %v", err)
	}
}
