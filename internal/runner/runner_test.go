package runner

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rasbt/screenlamp/internal/appcore"
	"github.com/rasbt/screenlamp/internal/config"
	"github.com/rasbt/screenlamp/internal/idset"
	apperr "github.com/rasbt/screenlamp/pkg/errors"
)

func molecule(id string, atoms ...string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "@<TRIPOS>MOLECULE\n%s\n %d 0 0 0 0\nSMALL\nUSER_CHARGES\n\n@<TRIPOS>ATOM\n", id, len(atoms))
	for i, a := range atoms {
		fmt.Fprintf(&sb, "%7d %s 1 LIG1 0.0000\n", i+1, a)
	}
	return sb.String()
}

func sulfonyl(id string) string {
	return molecule(id, "S1 0.0 0.0 0.0 S.3", "O2 3.0 4.0 0.0 O.2")
}

func carbons(id string) string {
	return molecule(id, "C1 0.0 0.0 0.0 C.3", "C2 1.5 0.0 0.0 C.3")
}

func project(t *testing.T) (*config.Config, *bytes.Buffer, *appcore.Env) {
	t.Helper()
	dir := t.TempDir()
	in := filepath.Join(dir, "mol2")
	require.NoError(t, os.Mkdir(in, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(in, "part1.mol2"), []byte(sulfonyl("Z1")+carbons("Z2")+sulfonyl("Z3")), 0o644))
	table := filepath.Join(dir, "props.tsv")
	require.NoError(t, os.WriteFile(table, []byte("ZINC_ID\tMWT\nZ1\t300\nZ2\t310\nZ3\t700\n"), 0o644))

	cfg := &config.Config{
		General:   config.GeneralConfig{ProjectDir: filepath.Join(dir, "project"), InputDir: in, Processes: 2},
		Datatable: config.DatatableConfig{Path: table, Selection: "(MWT <= 500)"},
		Presence:  config.PresenceConfig{Selection: "(atom_type == 'S.3') --> (atom_type == 'O.2')"},
		Distance:  config.DistanceConfig{Selection: "(atom_type == 'S.3') --> (atom_type == 'O.2')", Distance: "4-6"},
	}
	config.ApplyDefaults(cfg)
	require.NoError(t, cfg.Validate())

	var out bytes.Buffer
	env := &appcore.Env{
		RunID:     "test",
		Workers:   cfg.General.Processes,
		BatchSize: cfg.General.BatchSize,
		Stdout:    &out,
		Summary:   appcore.NewSummaryWriterFactory("text", false, false),
	}
	return cfg, &out, env
}

func ids(t *testing.T, path string) []string {
	t.Helper()
	s, err := idset.Load(path)
	require.NoError(t, err)
	return s.IDs()
}

func TestRun_AllPrefilters(t *testing.T) {
	cfg, out, env := project(t)
	r := &Runner{Cfg: cfg, Env: env}
	ran, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"count", "datatable-to-id", "funcgroup-presence", "funcgroup-distance"}, ran)

	p := cfg.General.ProjectDir
	assert.Equal(t, []string{"Z1", "Z2"}, ids(t, filepath.Join(p, DatatableIDs)))
	assert.Equal(t, []string{"Z1"}, ids(t, filepath.Join(p, PresenceIDs)))
	assert.Equal(t, []string{"Z1"}, ids(t, filepath.Join(p, DistanceIDs)))

	final, err := os.ReadFile(filepath.Join(p, DistanceMol2s, "part1.mol2"))
	require.NoError(t, err)
	assert.Equal(t, sulfonyl("Z1"), string(final))
	assert.Contains(t, out.String(), "count\ttotal\t3\t3\t0")
}

func TestRun_StartAtReusesEarlierOutput(t *testing.T) {
	cfg, _, env := project(t)
	_, err := (&Runner{Cfg: cfg, Env: env}).Run(context.Background())
	require.NoError(t, err)

	cfg.Distance.Distance = "10-20"
	ran, err := (&Runner{Cfg: cfg, Env: env, StartAt: StepDistance}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"funcgroup-distance"}, ran)
	assert.Empty(t, ids(t, filepath.Join(cfg.General.ProjectDir, DistanceIDs)))
}

func TestRun_SkipsUnconfiguredSteps(t *testing.T) {
	cfg, _, env := project(t)
	cfg.Datatable.Path = ""
	cfg.Distance.Selection = ""
	ran, err := (&Runner{Cfg: cfg, Env: env}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"count", "funcgroup-presence"}, ran)
	assert.Equal(t, []string{"Z1", "Z3"}, ids(t, filepath.Join(cfg.General.ProjectDir, PresenceIDs)))
}

func TestRun_StartAtOutOfRange(t *testing.T) {
	cfg, _, env := project(t)
	_, err := (&Runner{Cfg: cfg, Env: env, StartAt: 9}).Run(context.Background())
	if apperr.ExitCode(err) != 2 {
		t.Fatalf("want config error, got %v", err)
	}
}

func TestRun_Cancelled(t *testing.T) {
	cfg, _, env := project(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&Runner{Cfg: cfg, Env: env}).Run(ctx)
	if !apperr.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}
