package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	ET "github.com/IBM/fp-go/v2/either"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/Qubut/IP-Claim/packages/cvm_extrato/internal/config"
	"github.com/Qubut/IP-Claim/packages/cvm_extrato/internal/errs"
)

func newTestStore(t *testing.T, fs afero.Fs, dir string) *Store {
	t.Helper()
	cfg := config.Default()
	cfg.Store.Directory = dir
	s, err := NewStore(
		cfg,
		fs,
		tracenoop.NewTracerProvider().Tracer("test"),
		zap.NewNop().Sugar(),
		metricnoop.NewMeterProvider().Meter("test"),
	)
	require.NoError(t, err)
	return s
}

func csvFiles(t *testing.T, fs afero.Fs, dir string) []string {
	t.Helper()
	matches, err := afero.Glob(fs, filepath.Join(dir, "*.csv"))
	require.NoError(t, err)
	var files []string
	for _, m := range matches {
		if info, err := fs.Stat(m); err == nil && !info.IsDir() {
			files = append(files, filepath.Base(m))
		}
	}
	return files
}

func TestCleanRemovesOnlyCSVFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	dir := "/data"
	require.NoError(t, afero.WriteFile(fs, "/data/extrato_fi.csv", []byte("old"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/data/cad_fi.csv", []byte("old"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/data/notes.txt", []byte("keep"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/data/backup.CSV.bak", []byte("keep"), 0o644))
	require.NoError(t, fs.MkdirAll("/data/archive.csv", 0o755))

	removed, err := ET.UnwrapError(newTestStore(t, fs, dir).Clean(context.Background())())
	require.NoError(t, err)
	assert.Equal(t, []string{"/data/cad_fi.csv", "/data/extrato_fi.csv"}, removed)

	for _, kept := range []string{"/data/notes.txt", "/data/backup.CSV.bak", "/data/archive.csv"} {
		ok, err := afero.Exists(fs, kept)
		require.NoError(t, err)
		assert.True(t, ok, kept)
	}
}

func TestCleanCreatesMissingDirectory(t *testing.T) {
	fs := afero.NewMemMapFs()
	removed, err := ET.UnwrapError(newTestStore(t, fs, "/fresh").Clean(context.Background())())
	require.NoError(t, err)
	assert.Empty(t, removed)
	ok, err := afero.DirExists(fs, "/fresh")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCleanFailureIsCleanupError(t *testing.T) {
	base := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(base, "/data/extrato_fi.csv", []byte("old"), 0o644))

	_, err := ET.UnwrapError(newTestStore(t, afero.NewReadOnlyFs(base), "/data").Clean(context.Background())())
	var cleanupErr *errs.CleanupError
	require.True(t, errors.As(err, &cleanupErr))
	assert.Equal(t, "/data/extrato_fi.csv", cleanupErr.Path)
	assert.Equal(t, errs.ExitCleanup, errs.ExitCode(err))
}

func TestSaveTwiceLeavesOneArtifact(t *testing.T) {
	dir := t.TempDir()
	fs := afero.NewOsFs()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stale.csv"), []byte("x"), 0o644))
	s := newTestStore(t, fs, dir)

	for i, payload := range []string{"a;b\n1;2\n", "a;b\n3;4\n"} {
		artifact, err := ET.UnwrapError(s.Save(context.Background(), []byte(payload))())
		require.NoError(t, err, "run %d", i)
		assert.Equal(t, filepath.Join(dir, "extrato_fi.csv"), artifact.Path)
		assert.Equal(t, int64(len(payload)), artifact.Size)
		assert.Equal(t, []string{"extrato_fi.csv"}, csvFiles(t, fs, dir))
	}

	data, err := os.ReadFile(filepath.Join(dir, "extrato_fi.csv"))
	require.NoError(t, err)
	assert.Equal(t, "a;b\n3;4\n", string(data))
}

func TestSaveDoesNotWriteAfterCleanupFailure(t *testing.T) {
	base := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(base, "/data/old.csv", []byte("old"), 0o644))
	s := newTestStore(t, afero.NewReadOnlyFs(base), "/data")

	_, err := ET.UnwrapError(s.Save(context.Background(), []byte("new"))())
	require.Error(t, err)
	ok, err := afero.Exists(base, "/data/extrato_fi.csv")
	require.NoError(t, err)
	assert.False(t, ok)
}
