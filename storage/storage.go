// Package storage keeps every artifact of the node in a prefixed key-value
// database and doubles as the queue of ballots waiting for verification.
// The following prefixes are used:
//   - 'p/' for polls
//   - 'k/' for poll encryption keys (secret)
//   - 'b/' for pending ballots (queued)
//   - 'br/' for pending ballot reservations
//   - 'a/' for accepted ballots
//   - 'x/' for rejected ballots
//   - 's/' for ballot status by nullifier
//   - 'g/' for running aggregates
//   - 'n/' for consumed nullifiers, scoped by poll
//   - 'r/' for tally results
//   - 'c/' for relation artifact hashes
package storage

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"

	"github.com/vocdoni/zktally/config"
	"github.com/vocdoni/zktally/log"
)

var (
	pollPrefix              = []byte("p/")
	encryptionKeyPrefix     = []byte("k/")
	ballotPrefix            = []byte("b/")
	ballotReservationPrefix = []byte("br/")
	acceptedBallotPrefix    = []byte("a/")
	rejectedBallotPrefix    = []byte("x/")
	ballotStatusPrefix      = []byte("s/")
	aggregatePrefix         = []byte("g/")
	nullifierPrefix         = []byte("n/")
	resultPrefix            = []byte("r/")
	artifactIndexPrefix     = []byte("c/")
)

var (
	// ErrNotFound is returned when an artifact does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNoMoreElements is returned when a queue is empty.
	ErrNoMoreElements = errors.New("no more elements")
	// ErrKeyAlreadyExists is returned when a write-once key is set twice.
	ErrKeyAlreadyExists = errors.New("key already exists")
)

// Storage wraps the database with typed accessors for each artifact.
type Storage struct {
	db db.Database
	// globalLock serializes the read-modify-write operations: queue
	// reservations, nullifier consumption and aggregate updates.
	globalLock sync.Mutex
	// ReservationTimeout is how long a taken ballot stays reserved.
	ReservationTimeout time.Duration
}

// New creates a new Storage instance.
func New(db db.Database) *Storage {
	return &Storage{db: db, ReservationTimeout: config.BallotReservationTimeout}
}

// Close closes the storage.
func (s *Storage) Close() {
	if err := s.db.Close(); err != nil {
		log.Warnw("error closing storage", "err", err)
	}
}

// DB returns the underlying database, shared with the census trees.
func (s *Storage) DB() db.Database {
	return s.db
}

// getArtifact decodes the artifact stored at key into out. It returns
// ErrNotFound if there is none.
func (s *Storage) getArtifact(prefix, key []byte, out any) error {
	data, err := prefixeddb.NewPrefixedReader(s.db, prefix).Get(key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("get artifact: %w", err)
	}
	if err := decodeArtifact(data, out); err != nil {
		return fmt.Errorf("decode artifact: %w", err)
	}
	return nil
}

// setArtifact encodes and stores an artifact at key.
func (s *Storage) setArtifact(prefix, key []byte, artifact any) error {
	data, err := encodeArtifact(artifact)
	if err != nil {
		return err
	}
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), prefix)
	if err := wTx.Set(key, data); err != nil {
		wTx.Discard()
		return err
	}
	return wTx.Commit()
}

// deleteArtifact removes the artifact stored at key.
func (s *Storage) deleteArtifact(prefix, key []byte) error {
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), prefix)
	if err := wTx.Delete(key); err != nil {
		wTx.Discard()
		if errors.Is(err, db.ErrKeyNotFound) {
			return ErrNotFound
		}
		return err
	}
	return wTx.Commit()
}

// listArtifacts returns the keys stored under prefix.
func (s *Storage) listArtifacts(prefix []byte) ([][]byte, error) {
	var keys [][]byte
	if err := prefixeddb.NewPrefixedReader(s.db, prefix).Iterate(nil, func(k, _ []byte) bool {
		keys = append(keys, append([]byte(nil), k...))
		return true
	}); err != nil {
		return nil, err
	}
	return keys, nil
}

// countArtifacts returns the number of keys stored under prefix and sub.
func (s *Storage) countArtifacts(prefix, sub []byte) int {
	count := 0
	if err := prefixeddb.NewPrefixedReader(s.db, prefix).Iterate(sub, func(_, _ []byte) bool {
		count++
		return true
	}); err != nil {
		return 0
	}
	return count
}
