package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/galleria/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketPrefs   = []byte("prefs")
	bucketSession = []byte("session")
)

const sessionKey = "pb_auth"

// LocalStore implements domain.Preferences and domain.SessionStore using BoltDB.
type LocalStore struct {
	db *bolt.DB
	mu sync.RWMutex // Protects memory cache

	// In-memory cache for hot-path reads (promoted on access)
	cache map[string][]byte
}

var (
	_ domain.Preferences  = (*LocalStore)(nil)
	_ domain.SessionStore = (*LocalStore)(nil)
)

// NewLocalStore opens the store under baseDir, keyed by the server URL so
// switching servers does not mix filter state or sessions.
func NewLocalStore(baseDir, serverURL string) (*LocalStore, error) {
	if baseDir == "" {
		// Memory-only mode (no persistence)
		return &LocalStore{cache: make(map[string][]byte)}, nil
	}

	dir := baseDir
	if serverURL != "" {
		dir = filepath.Join(baseDir, hashServerURL(serverURL))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, "galleria.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketPrefs, bucketSession} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &LocalStore{db: db, cache: make(map[string][]byte)}, nil
}

func hashServerURL(serverURL string) string {
	normalized := strings.TrimRight(strings.ToLower(serverURL), "/")
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:6])
}

func (s *LocalStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// === Generic helpers ===

func (s *LocalStore) get(bucket []byte, key string) ([]byte, bool) {
	cacheKey := string(bucket) + ":" + key

	s.mu.RLock()
	if data, ok := s.cache[cacheKey]; ok {
		s.mu.RUnlock()
		return data, true
	}
	s.mu.RUnlock()

	if s.db == nil {
		return nil, false
	}

	var data []byte
	s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})

	if data == nil {
		return nil, false
	}

	// Promote to memory cache
	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	return data, true
}

func (s *LocalStore) set(bucket []byte, key string, data []byte) error {
	cacheKey := string(bucket) + ":" + key

	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	if s.db == nil {
		return nil // Memory-only mode
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), data)
	})
}

func (s *LocalStore) delete(bucket []byte, key string) error {
	cacheKey := string(bucket) + ":" + key

	s.mu.Lock()
	delete(s.cache, cacheKey)
	s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
}

// === Preferences ===

func (s *LocalStore) GetPref(key string) (string, bool) {
	data, ok := s.get(bucketPrefs, key)
	if !ok {
		return "", false
	}
	return string(data), true
}

func (s *LocalStore) SetPref(key, value string) error {
	return s.set(bucketPrefs, key, []byte(value))
}

func (s *LocalStore) DeletePref(key string) error {
	return s.delete(bucketPrefs, key)
}

// Prefs returns every stored preference, for display
func (s *LocalStore) Prefs() map[string]string {
	out := make(map[string]string)

	if s.db == nil {
		s.mu.RLock()
		prefix := string(bucketPrefs) + ":"
		for k, v := range s.cache {
			if strings.HasPrefix(k, prefix) {
				out[strings.TrimPrefix(k, prefix)] = string(v)
			}
		}
		s.mu.RUnlock()
		return out
	}

	s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPrefs)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			out[string(k)] = string(v)
			return nil
		})
	})
	return out
}

// === Session ===

func (s *LocalStore) LoadSession() ([]byte, bool) {
	return s.get(bucketSession, sessionKey)
}

func (s *LocalStore) SaveSession(data []byte) error {
	return s.set(bucketSession, sessionKey, data)
}

func (s *LocalStore) ClearSession() error {
	return s.delete(bucketSession, sessionKey)
}
