// internal/mol2/open.go
package mol2

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	apperr "github.com/rasbt/screenlamp/pkg/errors"
)

// Compression is a whole-file compression variant.
type Compression int

const (
	None Compression = iota
	Gzip
	Zstd
	LZ4
)

func (c Compression) String() string {
	switch c {
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	case LZ4:
		return "lz4"
	default:
		return "none"
	}
}

var (
	magicGzip = []byte{0x1f, 0x8b}
	magicZstd = []byte{0x28, 0xb5, 0x2f, 0xfd}
	magicLZ4  = []byte{0x04, 0x22, 0x4d, 0x18}
)

// IsCompressed reports whether sig starts with a known compression magic.
func IsCompressed(sig []byte) bool {
	return bytes.HasPrefix(sig, magicGzip) || bytes.HasPrefix(sig, magicZstd) || bytes.HasPrefix(sig, magicLZ4)
}

// Suffixes accepted when listing a directory.
var Suffixes = []string{".mol2", ".mol2.gz", ".mol2.zst", ".mol2.lz4"}

// CompressionFromPath infers the variant from the file name.
func CompressionFromPath(path string) Compression {
	switch {
	case strings.HasSuffix(path, ".gz"):
		return Gzip
	case strings.HasSuffix(path, ".zst"):
		return Zstd
	case strings.HasSuffix(path, ".lz4"):
		return LZ4
	default:
		return None
	}
}

// TrimSuffix strips the structure-file suffix (".mol2" plus any compression suffix).
func TrimSuffix(name string) string {
	for i := len(Suffixes) - 1; i >= 0; i-- {
		if strings.HasSuffix(name, Suffixes[i]) {
			return strings.TrimSuffix(name, Suffixes[i])
		}
	}
	return name
}

// HasSuffix reports whether name looks like a structure file.
func HasSuffix(name string) bool {
	for _, s := range Suffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

// Source opens and lists structure files. LocalSource is the default; the
// object-store source lives in internal/objstore.
type Source interface {
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	// List returns path itself when it names a file, or the entries of a
	// directory (prefix) otherwise.
	List(ctx context.Context, path string) ([]string, error)
}

// LocalSource reads the local filesystem; "-" is stdin.
type LocalSource struct{}

func (LocalSource) Open(_ context.Context, path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

func (LocalSource) List(_ context.Context, path string) ([]string, error) {
	if path == "-" {
		return []string{"-"}, nil
	}
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return []string{path}, nil
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		out = append(out, filepath.Join(path, e.Name()))
	}
	return out, nil
}

// Mux routes paths with a registered scheme ("s3://") to their source and
// everything else to Default.
type Mux struct {
	Default Source
	Schemes map[string]Source
}

func (m Mux) pick(path string) Source {
	for scheme, s := range m.Schemes {
		if strings.HasPrefix(path, scheme) {
			return s
		}
	}
	if m.Default == nil {
		return LocalSource{}
	}
	return m.Default
}

func (m Mux) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	return m.pick(path).Open(ctx, path)
}

func (m Mux) List(ctx context.Context, path string) ([]string, error) {
	return m.pick(path).List(ctx, path)
}

// multiReadCloser closes multiple io.Closers when Close() is called.
type multiReadCloser struct {
	io.Reader
	closers []io.Closer
}

func (m *multiReadCloser) Close() error {
	var err error
	for _, c := range m.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// Open returns a decompressed reader for path. The variant is detected by
// magic number, falling back to the suffix.
func Open(ctx context.Context, src Source, path string) (io.ReadCloser, error) {
	if src == nil {
		src = LocalSource{}
	}
	raw, err := src.Open(ctx, path)
	if err != nil {
		return nil, apperr.IO(err, "open %s", path)
	}
	rc, err := decompress(raw, path)
	if err != nil {
		_ = raw.Close()
		return nil, apperr.IO(err, "open %s", path)
	}
	return rc, nil
}

func decompress(raw io.ReadCloser, path string) (io.ReadCloser, error) {
	br := bufio.NewReaderSize(raw, 64*1024)
	sig, _ := br.Peek(4)
	comp := None
	switch {
	case bytes.HasPrefix(sig, magicGzip):
		comp = Gzip
	case bytes.HasPrefix(sig, magicZstd):
		comp = Zstd
	case bytes.HasPrefix(sig, magicLZ4):
		comp = LZ4
	case len(sig) > 0:
		comp = CompressionFromPath(path)
	}
	switch comp {
	case Gzip:
		gr, err := gzip.NewReader(br)
		if err != nil {
			return nil, err
		}
		return &multiReadCloser{Reader: gr, closers: []io.Closer{gr, raw}}, nil
	case Zstd:
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, err
		}
		return &multiReadCloser{Reader: zr, closers: []io.Closer{closerFunc(func() error { zr.Close(); return nil }), raw}}, nil
	case LZ4:
		return &multiReadCloser{Reader: lz4.NewReader(br), closers: []io.Closer{raw}}, nil
	default:
		return &multiReadCloser{Reader: br, closers: []io.Closer{raw}}, nil
	}
}

// Create opens path for writing, compressing according to its suffix. "-"
// writes to stdout. Closing the writer flushes the compressor and the file.
func Create(path string) (io.WriteCloser, error) {
	if path == "-" {
		return nopWriteCloser{os.Stdout}, nil
	}
	fh, err := os.Create(path)
	if err != nil {
		return nil, apperr.IO(err, "create %s", path)
	}
	wc, err := NewCompressedWriter(fh, CompressionFromPath(path))
	if err != nil {
		_ = fh.Close()
		return nil, apperr.IO(err, "create %s", path)
	}
	return wc, nil
}

// NewCompressedWriter wraps w; closing the result also closes w.
func NewCompressedWriter(w io.WriteCloser, c Compression) (io.WriteCloser, error) {
	bw := bufio.NewWriterSize(w, 64*1024)
	flushClose := func() error {
		if err := bw.Flush(); err != nil {
			_ = w.Close()
			return err
		}
		return w.Close()
	}
	switch c {
	case Gzip:
		gw := gzip.NewWriter(bw)
		return &stackWriter{Writer: gw, closers: []func() error{gw.Close, flushClose}}, nil
	case Zstd:
		zw, err := zstd.NewWriter(bw)
		if err != nil {
			return nil, err
		}
		return &stackWriter{Writer: zw, closers: []func() error{zw.Close, flushClose}}, nil
	case LZ4:
		lw := lz4.NewWriter(bw)
		return &stackWriter{Writer: lw, closers: []func() error{lw.Close, flushClose}}, nil
	default:
		return &stackWriter{Writer: bw, closers: []func() error{flushClose}}, nil
	}
}

type stackWriter struct {
	io.Writer
	closers []func() error
	closed  bool
}

// Close is idempotent.
func (s *stackWriter) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	var err error
	for _, c := range s.closers {
		if cerr := c(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// ListFiles expands path into structure files sorted by name. A file path is
// returned as is; a directory yields its entries with a structure suffix.
func ListFiles(ctx context.Context, src Source, path string) ([]string, error) {
	if src == nil {
		src = LocalSource{}
	}
	entries, err := src.List(ctx, path)
	if err != nil {
		return nil, apperr.IO(err, "list %s", path)
	}
	if len(entries) == 1 && entries[0] == path {
		return entries, nil
	}
	out := entries[:0]
	for _, e := range entries {
		if HasSuffix(e) {
			out = append(out, e)
		}
	}
	sort.Strings(out)
	return out, nil
}
