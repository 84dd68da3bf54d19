package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const fileExtension = ".json"

// Cache errors.
var (
	ErrNotFound   = errors.New("cache entry not found")
	ErrInvalidKey = errors.New("cache key cannot be empty")
	ErrDisabled   = errors.New("cache is disabled")
)

// FileStore keeps one JSON file per key. It is safe for concurrent use.
type FileStore struct {
	directory  string
	enabled    bool
	ttlSeconds int
	now        func() time.Time

	mu sync.RWMutex
}

// NewFileStore creates the cache directory when enabled. A disabled store
// answers every call with ErrDisabled.
func NewFileStore(settings Settings) (*FileStore, error) {
	if !settings.Enabled {
		return &FileStore{enabled: false, now: time.Now}, nil
	}
	if settings.Directory == "" {
		return nil, errors.New("cache directory cannot be empty")
	}
	if err := os.MkdirAll(settings.Directory, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	ttl := settings.TTLSeconds
	if ttl <= 0 {
		ttl = DefaultTTLSeconds
	}
	return &FileStore{
		directory:  settings.Directory,
		enabled:    true,
		ttlSeconds: ttl,
		now:        time.Now,
	}, nil
}

// WithClock replaces the store's time source. Used by tests.
func (s *FileStore) WithClock(now func() time.Time) *FileStore {
	s.now = now
	return s
}

// Get returns the entry for key whether fresh or stale; check FreshAt.
// Returns ErrNotFound when nothing was stored.
func (s *FileStore) Get(key string) (*Entry, error) {
	if !s.enabled {
		return nil, ErrDisabled
	}
	if key == "" {
		return nil, ErrInvalidKey
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache entry: %w", err)
	}
	return &entry, nil
}

// Fresh returns the entry only if it is within its TTL.
func (s *FileStore) Fresh(key string) (*Entry, bool) {
	entry, err := s.Get(key)
	if err != nil || !entry.FreshAt(s.now()) {
		return nil, false
	}
	return entry, true
}

// Put marshals v and stores it under key, replacing any previous entry.
func (s *FileStore) Put(key string, v any) error {
	if !s.enabled {
		return ErrDisabled
	}
	if key == "" {
		return ErrInvalidKey
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal cache payload: %w", err)
	}
	entryData, err := json.MarshalIndent(newEntry(key, payload, s.ttlSeconds, s.now()), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	filePath := s.path(key)
	tempPath := filePath + ".tmp"
	if err := os.WriteFile(tempPath, entryData, 0o600); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tempPath, filePath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename cache file: %w", err)
	}
	return nil
}

// Clear removes every cache file.
func (s *FileStore) Clear() error {
	if !s.enabled {
		return ErrDisabled
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.directory)
	if err != nil {
		return fmt.Errorf("failed to read cache directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != fileExtension {
			continue
		}
		if err := os.Remove(filepath.Join(s.directory, e.Name())); err != nil {
			return fmt.Errorf("failed to remove cache file %s: %w", e.Name(), err)
		}
	}
	return nil
}

// IsEnabled reports whether the store persists anything.
func (s *FileStore) IsEnabled() bool {
	return s.enabled
}

// Directory returns the cache directory.
func (s *FileStore) Directory() string {
	return s.directory
}

// TTL returns the freshness window.
func (s *FileStore) TTL() time.Duration {
	return time.Duration(s.ttlSeconds) * time.Second
}

func (s *FileStore) path(key string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_")
	return filepath.Join(s.directory, r.Replace(key)+fileExtension)
}

// Key derives a stable cache key from an upstream URL and a name, so that
// pointing a source at a different endpoint does not reuse stale data.
func Key(name, url string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(url))))
	return name + "-" + hex.EncodeToString(sum[:])[:16]
}
