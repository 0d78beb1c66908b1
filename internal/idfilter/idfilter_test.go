package idfilter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rasbt/screenlamp/internal/idset"
	"github.com/rasbt/screenlamp/internal/mol2"
	apperr "github.com/rasbt/screenlamp/pkg/errors"
)

func record(id string) string {
	return fmt.Sprintf("@<TRIPOS>MOLECULE\n%s\n 1 0 0 0 0\nSMALL\nNO_CHARGES\n\n@<TRIPOS>ATOM\n      1 C1   1.0000   2.0000  -0.5000 C.3  1 LIG1  0.0000\n", id)
}

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
}

func readAll(t *testing.T, path string) string {
	t.Helper()
	var sb strings.Builder
	require.NoError(t, mol2.Stream(context.Background(), nil, path, func(r mol2.RawRecord) error {
		sb.Write(r.Text)
		return nil
	}))
	return sb.String()
}

func TestRun_IncludeKeepsOnlyListedRecord(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in")
	require.NoError(t, os.Mkdir(in, 0o755))
	writeFile(t, filepath.Join(in, "part1.mol2"), record("m1")+record("m2")+record("m3"))

	res, err := Run(context.Background(), Options{
		Input:  in,
		Output: filepath.Join(dir, "out"),
		Filter: Filter{IDs: idset.New("m2"), Include: true},
	})
	require.NoError(t, err)
	got, err := os.ReadFile(filepath.Join(dir, "out", "part1.mol2"))
	require.NoError(t, err)
	assert.Equal(t, record("m2"), string(got))
	assert.EqualValues(t, 3, res.Total.Scanned)
	assert.EqualValues(t, 1, res.Total.Emitted)
	require.Len(t, res.Files, 1)
}

func TestRun_ExcludeMode(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "a.mol2")
	writeFile(t, in, record("m1")+record("m2")+record("m3"))
	out := filepath.Join(dir, "b.mol2")
	_, err := Run(context.Background(), Options{Input: in, Output: out, Filter: Filter{IDs: idset.New("m2"), Include: false}})
	require.NoError(t, err)
	data, _ := os.ReadFile(out)
	assert.Equal(t, record("m1")+record("m3"), string(data))
}

func TestRun_IncludeAllIsByteIdentical(t *testing.T) {
	dir := t.TempDir()
	src := "@<TRIPOS>MOLECULE\r\nx1\r\nbody\r\n" + record("x2") + "@<TRIPOS>MOLECULE\nx3\nno newline at end"
	in := filepath.Join(dir, "s.mol2")
	writeFile(t, in, src)

	ids := idset.New()
	require.NoError(t, mol2.Stream(context.Background(), nil, in, func(r mol2.RawRecord) error {
		ids.Add(r.ID)
		return nil
	}))
	out := filepath.Join(dir, "copy.mol2")
	_, err := Run(context.Background(), Options{Input: in, Output: out, Filter: Filter{IDs: ids, Include: true}})
	require.NoError(t, err)
	data, _ := os.ReadFile(out)
	assert.Equal(t, src, string(data))
}

func TestRun_Idempotent(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "s.mol2")
	writeFile(t, in, record("a")+record("b")+record("c")+record("d"))
	f := Filter{IDs: idset.New("b", "d", "zz"), Include: true}

	once := filepath.Join(dir, "once.mol2")
	twice := filepath.Join(dir, "twice.mol2")
	_, err := Run(context.Background(), Options{Input: in, Output: once, Filter: f})
	require.NoError(t, err)
	_, err = Run(context.Background(), Options{Input: once, Output: twice, Filter: f})
	require.NoError(t, err)
	a, _ := os.ReadFile(once)
	b, _ := os.ReadFile(twice)
	assert.Equal(t, string(a), string(b))
}

func TestRun_KeepsCompression(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in")
	require.NoError(t, os.Mkdir(in, 0o755))
	gz := filepath.Join(in, "p.mol2.gz")
	w, err := mol2.Create(gz)
	require.NoError(t, err)
	_, _ = w.Write([]byte(record("m1") + record("m2")))
	require.NoError(t, w.Close())

	outDir := filepath.Join(dir, "out")
	_, err = Run(context.Background(), Options{Input: in, Output: outDir, Filter: Filter{IDs: idset.New("m1"), Include: true}})
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(outDir, "p.mol2.gz"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x1f, 0x8b}, raw[:2])
	assert.Equal(t, record("m1"), readAll(t, filepath.Join(outDir, "p.mol2.gz")))
}

func TestRun_ZeroMatchesIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "s.mol2")
	writeFile(t, in, record("a"))
	res, err := Run(context.Background(), Options{Input: in, Output: filepath.Join(dir, "o.mol2"), Filter: Filter{IDs: idset.New(), Include: true}})
	require.NoError(t, err)
	assert.EqualValues(t, 0, res.Total.Emitted)
}

func TestRun_MissingInput(t *testing.T) {
	dir := t.TempDir()
	_, err := Run(context.Background(), Options{Input: filepath.Join(dir, "nope"), Output: filepath.Join(dir, "o"), Filter: Filter{IDs: idset.New()}})
	assert.True(t, apperr.IsCode(err, apperr.CodeIO))
}
