// Package datastore is a small JSON file backed key-value store. Values are
// kept encoded in memory and the whole map is written atomically, either on
// demand or by a periodic auto-save. Unchanged data is never rewritten.
package datastore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("datastore closed")

// Config holds configuration options for the DataStore.
type Config struct {
	FilePath string
	// AutoSaveInterval flushes pending changes periodically; 0 disables it.
	AutoSaveInterval time.Duration
	// BackupCount is the number of timestamped backups kept next to the file.
	BackupCount int
	Logger      zerolog.Logger
}

// DefaultConfig returns a default configuration.
func DefaultConfig(filePath string) Config {
	return Config{
		FilePath:         filePath,
		AutoSaveInterval: 10 * time.Second,
		BackupCount:      3,
		Logger:           log.With().Str("component", "datastore").Logger(),
	}
}

type DataStore struct {
	mu           sync.RWMutex
	data         map[string]json.RawMessage
	lastChecksum uint64
	closed       bool

	saveMu sync.Mutex
	cfg    Config

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New opens filePath with DefaultConfig.
func New(filePath string) (*DataStore, error) {
	return Open(DefaultConfig(filePath))
}

// Open loads the file, creating it when missing, and starts auto-save.
func Open(cfg Config) (*DataStore, error) {
	if cfg.FilePath == "" {
		return nil, errors.New("file path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	ds := &DataStore{data: make(map[string]json.RawMessage), cfg: cfg}

	switch _, err := os.Stat(cfg.FilePath); {
	case errors.Is(err, os.ErrNotExist):
		if err := ds.writeFileAtomic([]byte("{}")); err != nil {
			return nil, fmt.Errorf("failed to create empty JSON file: %w", err)
		}
		ds.lastChecksum = checksum([]byte("{}"))
	case err == nil:
		if err := ds.load(); err != nil {
			return nil, fmt.Errorf("failed to load data from file: %w", err)
		}
	default:
		return nil, fmt.Errorf("failed to check file existence: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	ds.cancel = cancel
	if cfg.AutoSaveInterval > 0 {
		ds.wg.Add(1)
		go ds.autoSave(ctx)
	}
	return ds, nil
}

// Put encodes value and stores it under key.
func (ds *DataStore) Put(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %q: %w", key, err)
	}

	ds.mu.Lock()
	defer ds.mu.Unlock()
	if ds.closed {
		return ErrClosed
	}
	ds.data[key] = raw
	return nil
}

// Get decodes the value under key into out. It reports false when the key is
// absent, leaving out untouched.
func (ds *DataStore) Get(key string, out any) (bool, error) {
	ds.mu.RLock()
	raw, ok := ds.data[key]
	closed := ds.closed
	ds.mu.RUnlock()

	if closed {
		return false, ErrClosed
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return true, fmt.Errorf("failed to unmarshal %q: %w", key, err)
	}
	return true, nil
}

// Keys returns all keys in sorted order.
func (ds *DataStore) Keys() []string {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	keys := make([]string, 0, len(ds.data))
	for k := range ds.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SaveToFile forces an immediate save to disk.
func (ds *DataStore) SaveToFile() error {
	ds.mu.RLock()
	closed := ds.closed
	ds.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	return ds.save()
}

// Close stops auto-save and flushes pending changes.
func (ds *DataStore) Close() error {
	ds.mu.Lock()
	if ds.closed {
		ds.mu.Unlock()
		return nil
	}
	ds.closed = true
	ds.mu.Unlock()

	ds.cancel()
	ds.wg.Wait()
	return ds.save()
}

// save writes the map when its encoding changed since the last write.
func (ds *DataStore) save() error {
	ds.saveMu.Lock()
	defer ds.saveMu.Unlock()

	ds.mu.RLock()
	data, err := json.MarshalIndent(ds.data, "", "  ")
	ds.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	sum := checksum(data)
	if sum == ds.lastChecksum {
		return nil
	}

	if ds.cfg.BackupCount > 0 {
		if err := ds.createBackup(); err != nil {
			ds.cfg.Logger.Warn().Err(err).Msg("failed to create backup")
		}
	}
	if err := ds.writeFileAtomic(data); err != nil {
		return err
	}
	if err := ds.verifyFile(sum); err != nil {
		return fmt.Errorf("file verification failed: %w", err)
	}

	ds.lastChecksum = sum
	ds.cfg.Logger.Debug().Int("bytes", len(data)).Msg("saved")
	return nil
}

func (ds *DataStore) load() error {
	data, err := os.ReadFile(ds.cfg.FilePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var parsed map[string]json.RawMessage
	if err := json.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("invalid JSON format: %w", err)
	}
	if parsed == nil {
		parsed = make(map[string]json.RawMessage)
	}

	ds.mu.Lock()
	ds.data = parsed
	ds.mu.Unlock()

	// re-encode so the first save compares against our own formatting
	if canonical, err := json.MarshalIndent(parsed, "", "  "); err == nil {
		ds.lastChecksum = checksum(canonical)
	}
	return nil
}

// writeFileAtomic writes to a synced temporary file and renames it over the
// target.
func (ds *DataStore) writeFileAtomic(data []byte) error {
	tmp := ds.cfg.FilePath + ".tmp"

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp, ds.cfg.FilePath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func (ds *DataStore) verifyFile(want uint64) error {
	actual, err := os.ReadFile(ds.cfg.FilePath)
	if err != nil {
		return fmt.Errorf("failed to read file for verification: %w", err)
	}
	if checksum(actual) != want {
		return errors.New("file checksum mismatch")
	}
	return nil
}

func (ds *DataStore) createBackup() error {
	src, err := os.Open(ds.cfg.FilePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer src.Close()

	name := fmt.Sprintf("%s.backup.%s", ds.cfg.FilePath, time.Now().Format("20060102_150405.000000000"))
	dst, err := os.Create(name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	if err := dst.Close(); err != nil {
		return err
	}

	ds.cleanupOldBackups()
	return nil
}

// cleanupOldBackups keeps the newest BackupCount backups.
func (ds *DataStore) cleanupOldBackups() {
	matches, err := filepath.Glob(ds.cfg.FilePath + ".backup.*")
	if err != nil || len(matches) <= ds.cfg.BackupCount {
		return
	}
	// timestamps sort lexically
	slices.Sort(matches)
	for _, old := range matches[:len(matches)-ds.cfg.BackupCount] {
		if err := os.Remove(old); err != nil {
			ds.cfg.Logger.Warn().Err(err).Str("file", old).Msg("failed to remove old backup")
		}
	}
}

func (ds *DataStore) autoSave(ctx context.Context) {
	defer ds.wg.Done()

	ticker := time.NewTicker(ds.cfg.AutoSaveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := ds.save(); err != nil {
				ds.cfg.Logger.Error().Err(err).Msg("auto-save failed")
			}
		}
	}
}

func checksum(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// Stats describes the store for diagnostics.
type Stats struct {
	Keys     int
	FilePath string
}

func (ds *DataStore) Stats() Stats {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return Stats{Keys: len(ds.data), FilePath: ds.cfg.FilePath}
}
