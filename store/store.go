// Package store caches compiled images in SQLite, keyed by the content
// hash of the source program and whether it was optimized.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/chazu/quill/compiler/hash"
	"github.com/chazu/quill/vm/image"
)

var log = commonlog.GetLogger("quill.store")

// ErrNotFound is returned when no image is cached under a key.
var ErrNotFound = errors.New("image not found")

// Key identifies one cached image.
type Key struct {
	Hash      [32]byte
	Optimized bool
}

func (k Key) String() string {
	if k.Optimized {
		return hash.String(k.Hash)[:16] + "+opt"
	}
	return hash.String(k.Hash)[:16]
}

// KeyOf returns the key an image is stored under.
func KeyOf(img *image.Image) Key {
	return Key{Hash: img.SourceHash, Optimized: img.Optimized}
}

// Entry describes a cached image without decoding it.
type Entry struct {
	Key
	BuildID string
	Created time.Time
	Size    int
}

// Store is a persistent image cache with an in-memory index in front of
// it. It is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	db    *sql.DB
	path  string
	index map[Key]*image.Image
}

// Open opens or creates the cache database at path. The path ":memory:"
// gives a private in-memory cache.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection keeps an in-memory database alive and serializes
	// writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS images (
		hash      BLOB    NOT NULL,
		optimized INTEGER NOT NULL,
		build_id  TEXT    NOT NULL,
		created   INTEGER NOT NULL,
		data      BLOB    NOT NULL,
		PRIMARY KEY (hash, optimized)
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	log.Debugf("opened image cache %s", path)
	return &Store{
		db:    db,
		path:  path,
		index: make(map[Key]*image.Image),
	}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Put stores img, replacing any image under the same key. An image without
// a build ID is given a fresh one, which Put returns.
func (s *Store) Put(img *image.Image) (string, error) {
	if err := img.Verify(); err != nil {
		return "", err
	}
	if img.BuildID == "" {
		img.BuildID = uuid.NewString()
	}
	data, err := image.Marshal(img)
	if err != nil {
		return "", err
	}

	key := KeyOf(img)
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(
		"INSERT OR REPLACE INTO images (hash, optimized, build_id, created, data) VALUES (?, ?, ?, ?, ?)",
		key.Hash[:], flag(key.Optimized), img.BuildID, time.Now().Unix(), data,
	)
	if err != nil {
		return "", fmt.Errorf("saving image %s: %w", key, err)
	}
	s.index[key] = img
	log.Debugf("cached image %s (build %s, %d bytes)", key, img.BuildID, len(data))
	return img.BuildID, nil
}

// Get returns the image stored under key.
func (s *Store) Get(key Key) (*image.Image, error) {
	s.mu.RLock()
	img, ok := s.index[key]
	s.mu.RUnlock()
	if ok {
		return img, nil
	}

	var data []byte
	err := s.db.QueryRow(
		"SELECT data FROM images WHERE hash = ? AND optimized = ?",
		key.Hash[:], flag(key.Optimized),
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("querying image %s: %w", key, err)
	}

	img, err = image.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("cached image %s: %w", key, err)
	}
	if KeyOf(img) != key {
		return nil, fmt.Errorf("cached image %s: %w: stored under the wrong key", key, image.ErrBadImage)
	}

	s.mu.Lock()
	s.index[key] = img
	s.mu.Unlock()
	return img, nil
}

// Has reports whether an image is cached under key.
func (s *Store) Has(key Key) (bool, error) {
	s.mu.RLock()
	_, ok := s.index[key]
	s.mu.RUnlock()
	if ok {
		return true, nil
	}
	var n int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM images WHERE hash = ? AND optimized = ?",
		key.Hash[:], flag(key.Optimized),
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("querying image %s: %w", key, err)
	}
	return n > 0, nil
}

// Delete removes the image under key. Deleting a missing key is not an
// error.
func (s *Store) Delete(key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.index, key)
	if _, err := s.db.Exec(
		"DELETE FROM images WHERE hash = ? AND optimized = ?",
		key.Hash[:], flag(key.Optimized),
	); err != nil {
		return fmt.Errorf("deleting image %s: %w", key, err)
	}
	return nil
}

// Entries lists every cached image, newest first.
func (s *Store) Entries() ([]Entry, error) {
	rows, err := s.db.Query("SELECT hash, optimized, build_id, created, length(data) FROM images")
	if err != nil {
		return nil, fmt.Errorf("listing images: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			h         []byte
			e         Entry
			optimized int
			created   int64
		)
		if err := rows.Scan(&h, &optimized, &e.BuildID, &created, &e.Size); err != nil {
			return nil, fmt.Errorf("listing images: %w", err)
		}
		if len(h) != len(e.Hash) {
			return nil, fmt.Errorf("listing images: hash of %d bytes", len(h))
		}
		copy(e.Hash[:], h)
		e.Optimized = optimized != 0
		e.Created = time.Unix(created, 0)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing images: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Created.Equal(entries[j].Created) {
			return entries[i].Created.After(entries[j].Created)
		}
		return entries[i].BuildID < entries[j].BuildID
	})
	return entries, nil
}

// Count returns the number of cached images.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM images").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting images: %w", err)
	}
	return n, nil
}

func flag(b bool) int {
	if b {
		return 1
	}
	return 0
}
