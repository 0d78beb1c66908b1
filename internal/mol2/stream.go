// internal/mol2/stream.go
package mol2

import (
	"bufio"
	"bytes"
	"context"
	"io"

	apperr "github.com/rasbt/screenlamp/pkg/errors"
)

// MoleculeMarker starts every record.
const MoleculeMarker = "@<TRIPOS>MOLECULE"

// RawRecord is one record exactly as it appears in the file.
type RawRecord struct {
	ID   string
	Text []byte
}

var markerBytes = []byte(MoleculeMarker)

func isMarker(line []byte) bool { return bytes.HasPrefix(line, markerBytes) }

// StreamReader splits r into records and calls emit for each. Text keeps the
// input bytes unchanged, including line endings; lines before the first
// marker belong to no record. emit owns the RawRecord it receives.
// Cancellation is checked between lines.
func StreamReader(ctx context.Context, r io.Reader, emit func(RawRecord) error) error {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReaderSize(r, 64*1024)
	}

	var (
		cur    []byte
		id     string
		inRec  bool
		needID bool
	)

	flush := func() error {
		if !inRec {
			return nil
		}
		rec := RawRecord{ID: id, Text: cur}
		cur = nil
		id = ""
		return emit(rec)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			if isMarker(line) {
				if ferr := flush(); ferr != nil {
					return ferr
				}
				inRec = true
				needID = true
				cur = append(make([]byte, 0, 4096), line...)
			} else if inRec {
				if needID {
					id = string(bytes.TrimSpace(line))
					needID = false
				}
				cur = append(cur, line...)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return apperr.IO(err, "read structure stream")
		}
	}
	return flush()
}

// Stream opens path through src and streams its records.
func Stream(ctx context.Context, src Source, path string, emit func(RawRecord) error) error {
	rc, err := Open(ctx, src, path)
	if err != nil {
		return err
	}
	defer rc.Close()
	if err := StreamReader(ctx, rc, emit); err != nil {
		if apperr.IsCode(err, apperr.CodeIO) {
			return apperr.Wrap(err, apperr.CodeIO, "stream %s", path)
		}
		return err
	}
	return nil
}

// StreamFiles streams every file in order; a file or directory path is
// expanded with ListFiles.
func StreamFiles(ctx context.Context, src Source, paths []string, emit func(file string, rec RawRecord) error) error {
	for _, p := range paths {
		files, err := ListFiles(ctx, src, p)
		if err != nil {
			return err
		}
		for _, f := range files {
			file := f
			if err := Stream(ctx, src, file, func(r RawRecord) error { return emit(file, r) }); err != nil {
				return err
			}
		}
	}
	return nil
}
