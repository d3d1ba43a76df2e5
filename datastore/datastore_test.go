package datastore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		FilePath:    filepath.Join(t.TempDir(), "nested", "store.json"),
		BackupCount: 2,
		Logger:      zerolog.Nop(),
	}
}

func TestOpenCreatesFile(t *testing.T) {
	cfg := testConfig(t)
	ds, err := Open(cfg)
	require.NoError(t, err)
	defer ds.Close()

	data, err := os.ReadFile(cfg.FilePath)
	require.NoError(t, err)
	assert.JSONEq(t, "{}", string(data))
}

func TestPutGetPersist(t *testing.T) {
	cfg := testConfig(t)
	ds, err := Open(cfg)
	require.NoError(t, err)

	require.NoError(t, ds.Put("g1", item{Name: "a", Count: 2}))
	var got item
	ok, err := ds.Get("g1", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, item{Name: "a", Count: 2}, got)

	ok, err = ds.Get("missing", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, ds.Close())
	assert.ErrorIs(t, ds.Put("g2", item{}), ErrClosed)

	reopened, err := Open(cfg)
	require.NoError(t, err)
	defer reopened.Close()

	var again item
	ok, err = reopened.Get("g1", &again)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, got, again)
	assert.Equal(t, []string{"g1"}, reopened.Keys())
	assert.Equal(t, Stats{Keys: 1, FilePath: cfg.FilePath}, reopened.Stats())
}

func TestSaveSkipsUnchangedData(t *testing.T) {
	cfg := testConfig(t)
	ds, err := Open(cfg)
	require.NoError(t, err)
	defer ds.Close()

	require.NoError(t, ds.Put("k", item{Name: "x"}))
	require.NoError(t, ds.SaveToFile())
	before, err := os.Stat(cfg.FilePath)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, ds.SaveToFile())
	after, err := os.Stat(cfg.FilePath)
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())
}

func TestBackupsAreCapped(t *testing.T) {
	cfg := testConfig(t)
	ds, err := Open(cfg)
	require.NoError(t, err)
	defer ds.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, ds.Put("k", item{Count: i}))
		require.NoError(t, ds.SaveToFile())
	}
	backups, err := filepath.Glob(cfg.FilePath + ".backup.*")
	require.NoError(t, err)
	assert.Len(t, backups, cfg.BackupCount)
}

func TestAutoSave(t *testing.T) {
	cfg := testConfig(t)
	cfg.AutoSaveInterval = 5 * time.Millisecond
	ds, err := Open(cfg)
	require.NoError(t, err)
	defer ds.Close()

	require.NoError(t, ds.Put("k", item{Name: "auto"}))
	assert.Eventually(t, func() bool {
		data, err := os.ReadFile(cfg.FilePath)
		return err == nil && len(data) > 2
	}, time.Second, 5*time.Millisecond)
}

func TestOpenRejectsCorruptFile(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755))
	require.NoError(t, os.WriteFile(cfg.FilePath, []byte("{not json"), 0o644))
	_, err := Open(cfg)
	assert.Error(t, err)
}
