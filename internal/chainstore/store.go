// Package chainstore persists discovery cursors in a bbolt database so a
// scan can resume where the previous one stopped.
package chainstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	bolt "go.etcd.io/bbolt"

	scanerr "github.com/mrz1836/hdscan/pkg/errors"
)

const (
	// FileName is the database file name under the hdscan home directory.
	FileName = "chains.db"

	// currentVersion is the current cursor record version.
	currentVersion = 1

	filePermissions = 0o600
	dirPermissions  = 0o750
	openTimeout     = time.Second
)

var cursorsBucket = []byte("cursors")

// Cursor records how far a chain has been scanned.
type Cursor struct {
	Version   int       `json:"version"`
	Key       string    `json:"key"`
	Scheme    string    `json:"scheme,omitempty"`
	Network   string    `json:"network"`
	Format    string    `json:"format"`
	Parent    string    `json:"parent,omitempty"` // extended public key of the chain parent
	Account   uint32    `json:"account"`
	Change    uint32    `json:"change"`
	BaseIndex uint32    `json:"base_index"`
	NextIndex uint32    `json:"next_index"` // first index not yet known used
	Used      int       `json:"used"`
	Checked   int       `json:"checked"`
	GapLimit  int       `json:"gap_limit"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AccountKey builds the conventional key for one chain of a scheme account.
func AccountKey(scheme string, account, change uint32) string {
	return scheme + "/" + strconv.FormatUint(uint64(account), 10) + "/" + strconv.FormatUint(uint64(change), 10)
}

// Store is a bbolt-backed cursor store. It is safe for concurrent use.
type Store struct {
	db    *bolt.DB
	path  string
	clock clock.Clock
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used to stamp UpdatedAt.
func WithClock(clk clock.Clock) Option {
	return func(s *Store) { s.clock = clk }
}

// Open opens or creates the database at path.
func Open(path string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	db, err := bolt.Open(path, filePermissions, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, scanerr.WithCause(scanerr.ErrStoreCorrupted, fmt.Errorf("opening %s: %w", path, err))
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(cursorsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing store: %w", err)
	}

	s := &Store{db: db, path: path, clock: clock.NewDefaultClock()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Put stores c under c.Key, replacing any previous cursor.
func (s *Store) Put(c Cursor) error {
	if c.Key == "" {
		return scanerr.WithDetails(scanerr.ErrInvalidInput, map[string]string{"field": "key"})
	}
	c.Version = currentVersion
	c.UpdatedAt = s.clock.Now().UTC()

	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding cursor: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(cursorsBucket).Put([]byte(c.Key), data)
	})
}

// Get returns the cursor stored under key.
func (s *Store) Get(key string) (*Cursor, error) {
	var c *Cursor
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(cursorsBucket).Get([]byte(key))
		if data == nil {
			return scanerr.WithDetails(scanerr.ErrCursorNotFound, map[string]string{"key": key})
		}
		decoded, err := decode(key, data)
		if err != nil {
			return err
		}
		c = decoded
		return nil
	})
	return c, err
}

// List returns every cursor ordered by key.
func (s *Store) List() ([]Cursor, error) {
	cursors := []Cursor{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(cursorsBucket).ForEach(func(k, v []byte) error {
			c, err := decode(string(k), v)
			if err != nil {
				return err
			}
			cursors = append(cursors, *c)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return cursors, nil
}

// Delete removes the cursor stored under key.
func (s *Store) Delete(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(cursorsBucket)
		if b.Get([]byte(key)) == nil {
			return scanerr.WithDetails(scanerr.ErrCursorNotFound, map[string]string{"key": key})
		}
		return b.Delete([]byte(key))
	})
}

var errUnsupportedVersion = errors.New("unsupported cursor version")

func decode(key string, data []byte) (*Cursor, error) {
	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, scanerr.WithCause(scanerr.ErrStoreCorrupted, fmt.Errorf("cursor %q: %w", key, err))
	}
	if c.Version > currentVersion {
		return nil, scanerr.WithCause(scanerr.ErrStoreCorrupted, fmt.Errorf("cursor %q: %w %d", key, errUnsupportedVersion, c.Version))
	}
	return &c, nil
}
