package overlay

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/edsrzf/mmap-go"

	"github.com/rasbt/screenlamp/internal/mol2"
	apperr "github.com/rasbt/screenlamp/pkg/errors"
)

// Index gives random access to the records of one structure file by id.
// The first record with a given id wins. Close releases the index; it must
// be called on every path.
type Index interface {
	Get(id string) ([]byte, bool)
	Len() int
	Close() error
}

type span struct {
	off, end int
}

// OffsetIndex maps a plain local file read-only and keeps id-hash to byte
// span entries. Hash collisions are resolved by comparing the stored id.
type OffsetIndex struct {
	fh    *os.File
	data  mmap.MMap
	spans map[uint64][]span
	n     int
}

var markerPrefix = []byte(mol2.MoleculeMarker)

// BuildOffsetIndex scans path once and records where each record starts and
// ends.
func BuildOffsetIndex(ctx context.Context, path string) (*OffsetIndex, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, apperr.IO(err, "open %s", path)
	}
	idx := &OffsetIndex{fh: fh, spans: make(map[uint64][]span)}
	fi, err := fh.Stat()
	if err != nil {
		_ = fh.Close()
		return nil, apperr.IO(err, "stat %s", path)
	}
	if fi.Size() == 0 {
		return idx, nil
	}
	idx.data, err = mmap.Map(fh, mmap.RDONLY, 0)
	if err != nil {
		_ = fh.Close()
		return nil, apperr.IO(err, "mmap %s", path)
	}
	if err := idx.scan(ctx); err != nil {
		_ = idx.Close()
		return nil, err
	}
	return idx, nil
}

func (x *OffsetIndex) scan(ctx context.Context) error {
	data := []byte(x.data)
	start := -1
	for pos, lines := 0, 0; pos < len(data); lines++ {
		if lines&0xffff == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		nl := bytes.IndexByte(data[pos:], '\n')
		end := len(data)
		if nl >= 0 {
			end = pos + nl + 1
		}
		if bytes.HasPrefix(data[pos:end], markerPrefix) {
			if start >= 0 {
				x.add(start, pos)
			}
			start = pos
		}
		pos = end
	}
	if start >= 0 {
		x.add(start, len(data))
	}
	return nil
}

func recordID(text []byte) string {
	nl := bytes.IndexByte(text, '\n')
	if nl < 0 {
		return ""
	}
	rest := text[nl+1:]
	if e := bytes.IndexByte(rest, '\n'); e >= 0 {
		rest = rest[:e]
	}
	return string(bytes.TrimSpace(rest))
}

func (x *OffsetIndex) add(off, end int) {
	id := recordID(x.data[off:end])
	h := xxhash.Sum64String(id)
	for _, s := range x.spans[h] {
		if recordID(x.data[s.off:s.end]) == id {
			return
		}
	}
	x.spans[h] = append(x.spans[h], span{off: off, end: end})
	x.n++
}

// Get returns a copy of the record text, valid after Close.
func (x *OffsetIndex) Get(id string) ([]byte, bool) {
	for _, s := range x.spans[xxhash.Sum64String(id)] {
		text := x.data[s.off:s.end]
		if recordID(text) == id {
			return bytes.Clone(text), true
		}
	}
	return nil, false
}

func (x *OffsetIndex) Len() int { return x.n }

func (x *OffsetIndex) Close() error {
	var err error
	if x.data != nil {
		err = x.data.Unmap()
		x.data = nil
	}
	if x.fh != nil {
		if cerr := x.fh.Close(); cerr != nil && err == nil {
			err = cerr
		}
		x.fh = nil
	}
	x.spans = nil
	return err
}

// MemoryIndex holds only the wanted records of a stream. It serves
// compressed and remote inputs, which cannot be mapped.
type MemoryIndex struct {
	m map[string][]byte
}

// BuildMemoryIndex streams path and keeps records for which want is true.
// A nil want keeps everything.
func BuildMemoryIndex(ctx context.Context, src mol2.Source, path string, want func(id string) bool) (*MemoryIndex, error) {
	idx := &MemoryIndex{m: make(map[string][]byte)}
	err := mol2.Stream(ctx, src, path, func(r mol2.RawRecord) error {
		if want != nil && !want(r.ID) {
			return nil
		}
		if _, dup := idx.m[r.ID]; !dup {
			idx.m[r.ID] = r.Text
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return idx, nil
}

func (x *MemoryIndex) Get(id string) ([]byte, bool) {
	b, ok := x.m[id]
	return b, ok
}

func (x *MemoryIndex) Len() int { return len(x.m) }

func (x *MemoryIndex) Close() error {
	x.m = nil
	return nil
}

// mappable reports whether path is a plain, uncompressed local file.
func mappable(src mol2.Source, path string) bool {
	switch s := src.(type) {
	case nil, mol2.LocalSource:
	case mol2.Mux:
		if !isLocalPath(s, path) {
			return false
		}
	default:
		return false
	}
	if path == "-" || mol2.CompressionFromPath(path) != mol2.None {
		return false
	}
	fh, err := os.Open(path)
	if err != nil {
		return false
	}
	defer fh.Close()
	fi, err := fh.Stat()
	if err != nil || !fi.Mode().IsRegular() {
		return false
	}
	var sig [4]byte
	n, _ := io.ReadFull(fh, sig[:])
	return !mol2.IsCompressed(sig[:n])
}

func isLocalPath(m mol2.Mux, path string) bool {
	for scheme := range m.Schemes {
		if strings.HasPrefix(path, scheme) {
			return false
		}
	}
	switch m.Default.(type) {
	case nil, mol2.LocalSource:
		return true
	}
	return false
}

// OpenIndex picks an OffsetIndex for plain local files and a MemoryIndex
// of the wanted ids otherwise.
func OpenIndex(ctx context.Context, src mol2.Source, path string, want func(id string) bool) (Index, error) {
	if mappable(src, path) {
		idx, err := BuildOffsetIndex(ctx, path)
		if err != nil {
			return nil, err
		}
		return idx, nil
	}
	idx, err := BuildMemoryIndex(ctx, src, path, want)
	if err != nil {
		return nil, err
	}
	return idx, nil
}
