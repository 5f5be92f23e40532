// Package census keeps the membership sets of eligible voters. Each census is
// an arbo sparse Merkle tree over BN254 MiMC whose leaves map a member index
// to an identity commitment, persisted on a key-value database.
package census

import (
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/vocdoni/arbo"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"

	"github.com/vocdoni/zktally/log"
	"github.com/vocdoni/zktally/types"
)

const (
	censusDBprefix          = "cs_"
	censusDBreferencePrefix = "cr_"
)

var (
	// ErrCensusNotFound is returned when a census is not found in the database.
	ErrCensusNotFound = errors.New("census not found in the local database")
	// ErrCensusAlreadyExists is returned by New() if the census already exists.
	ErrCensusAlreadyExists = errors.New("census already exists in the local database")
	// ErrMemberNotFound is returned when no leaf exists for a member index.
	ErrMemberNotFound = errors.New("member not found")
	// ErrInvalidCommitment is returned for commitments outside the field.
	ErrInvalidCommitment = errors.New("invalid identity commitment")

	// HashFunction is the tree hash. The eligibility relation verifies
	// inclusion with the same MiMC construction.
	HashFunction arbo.HashFunction = arbo.HashMiMC_BN254{}
)

// updateRootRequest is used to update the root of a census tree.
type updateRootRequest struct {
	censusID uuid.UUID
	newRoot  []byte
	done     chan struct{}
}

// rootKey converts a root to its canonical hexadecimal string.
func rootKey(root []byte) string {
	return hex.EncodeToString(root)
}

// CensusDB is a safe and persistent database of census trees. It keeps an
// in-memory index from tree roots to census IDs, so a poll that only knows
// its census root can still find the tree.
type CensusDB struct {
	mu           sync.RWMutex
	db           db.Database
	loadedCensus map[uuid.UUID]*CensusRef
	rootIndex    map[string]uuid.UUID

	updateRootChan chan *updateRootRequest
}

// NewCensusDB creates a new CensusDB object over the given database.
func NewCensusDB(db db.Database) *CensusDB {
	c := &CensusDB{
		db:             db,
		loadedCensus:   make(map[uuid.UUID]*CensusRef),
		rootIndex:      make(map[string]uuid.UUID),
		updateRootChan: make(chan *updateRootRequest, 100),
	}
	go func() {
		for req := range c.updateRootChan {
			if err := c.updateRoot(req.censusID, req.newRoot); err != nil {
				log.Warnw("error updating census root",
					"id", req.censusID.String(),
					"err", err)
			}
			if req.done != nil {
				close(req.done)
			}
		}
	}()
	return c
}

func referenceKey(censusID uuid.UUID) []byte {
	return append([]byte(censusDBreferencePrefix), censusID[:]...)
}

func (c *CensusDB) openTree(censusID uuid.UUID, maxLevels int) (*arbo.Tree, error) {
	return arbo.NewTree(arbo.Config{
		Database:     prefixeddb.NewPrefixedDatabase(c.db, censusPrefix(censusID)),
		MaxLevels:    maxLevels,
		HashFunction: HashFunction,
	})
}

// New creates a new empty census. It returns ErrCensusAlreadyExists if a
// census with the given ID is already present.
func (c *CensusDB) New(censusID uuid.UUID) (*CensusRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.loadedCensus[censusID]; exists {
		return nil, ErrCensusAlreadyExists
	}
	if _, err := c.db.Get(referenceKey(censusID)); err == nil {
		return nil, ErrCensusAlreadyExists
	} else if !errors.Is(err, db.ErrKeyNotFound) {
		return nil, err
	}

	ref := &CensusRef{
		ID:        censusID,
		MaxLevels: types.CensusTreeMaxLevels,
		HashType:  string(HashFunction.Type()),
		LastUsed:  time.Now(),
	}
	tree, err := c.openTree(censusID, ref.MaxLevels)
	if err != nil {
		return nil, err
	}
	ref.tree = tree
	root, err := tree.Root()
	if err != nil {
		return nil, err
	}
	ref.currentRoot = root
	ref.updateRootRequest = c.updateRootChan

	if err := c.writeReference(ref); err != nil {
		return nil, err
	}
	c.loadedCensus[censusID] = ref
	if _, exists := c.rootIndex[rootKey(root)]; !exists {
		c.rootIndex[rootKey(root)] = censusID
	}
	log.Debugw("census created", "id", censusID.String())
	return ref, nil
}

// writeReference writes a census reference to the database.
func (c *CensusDB) writeReference(ref *CensusRef) error {
	data, err := cbor.Marshal(ref)
	if err != nil {
		return fmt.Errorf("cannot encode census reference: %w", err)
	}
	wtx := c.db.WriteTx()
	defer wtx.Discard()
	if err := wtx.Set(referenceKey(ref.ID), data); err != nil {
		return err
	}
	return wtx.Commit()
}

// Exists returns true if the censusID exists in the local database.
func (c *CensusDB) Exists(censusID uuid.UUID) bool {
	c.mu.RLock()
	_, exists := c.loadedCensus[censusID]
	c.mu.RUnlock()
	if exists {
		return true
	}
	_, err := c.db.Get(referenceKey(censusID))
	return err == nil
}

// Load returns a census from memory or from the persistent database.
func (c *CensusDB) Load(censusID uuid.UUID) (*CensusRef, error) {
	c.mu.RLock()
	if ref, exists := c.loadedCensus[censusID]; exists {
		c.mu.RUnlock()
		return ref, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	// another goroutine may have loaded it meanwhile
	if ref, exists := c.loadedCensus[censusID]; exists {
		return ref, nil
	}

	b, err := c.db.Get(referenceKey(censusID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCensusNotFound, censusID)
		}
		return nil, err
	}
	ref := &CensusRef{}
	if err := cbor.Unmarshal(b, ref); err != nil {
		return nil, fmt.Errorf("cannot decode census reference: %w", err)
	}
	tree, err := c.openTree(censusID, ref.MaxLevels)
	if err != nil {
		return nil, err
	}
	ref.tree = tree
	root, err := tree.Root()
	if err != nil {
		return nil, err
	}
	ref.currentRoot = root
	ref.updateRootRequest = c.updateRootChan

	ref.LastUsed = time.Now()
	if err := c.writeReference(ref); err != nil {
		return nil, err
	}
	c.loadedCensus[censusID] = ref
	if _, exists := c.rootIndex[rootKey(root)]; !exists {
		c.rootIndex[rootKey(root)] = censusID
	}
	return ref, nil
}

// Del removes a census from the database and memory. The tree nodes are
// removed in the background.
func (c *CensusDB) Del(censusID uuid.UUID) error {
	wtx := c.db.WriteTx()
	if err := wtx.Delete(referenceKey(censusID)); err != nil {
		wtx.Discard()
		return err
	}
	if err := wtx.Commit(); err != nil {
		return err
	}

	c.mu.Lock()
	if ref, exists := c.loadedCensus[censusID]; exists {
		delete(c.rootIndex, rootKey(ref.currentRoot))
		delete(c.loadedCensus, censusID)
	}
	c.mu.Unlock()

	go func(id uuid.UUID) {
		if _, err := deleteCensusTreeFromDatabase(c.db, censusPrefix(id)); err != nil {
			log.Warnw("error deleting census tree", "id", id.String(), "err", err)
		}
	}(censusID)
	return nil
}

// deleteCensusTreeFromDatabase removes all keys belonging to a census tree.
func deleteCensusTreeFromDatabase(kv db.Database, prefix []byte) (int, error) {
	database := prefixeddb.NewPrefixedDatabase(kv, prefix)
	wtx := database.WriteTx()
	count := 0
	err := database.Iterate(nil, func(k, _ []byte) bool {
		if err := wtx.Delete(k); err != nil {
			log.Warnw("could not remove key from database", "key", hex.EncodeToString(k))
		} else {
			count++
		}
		return true
	})
	if err != nil {
		return 0, err
	}
	return count, wtx.Commit()
}

// ByRoot returns the census whose current root is root.
func (c *CensusDB) ByRoot(root []byte) (*CensusRef, error) {
	c.mu.RLock()
	censusID, exists := c.rootIndex[rootKey(root)]
	c.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("%w: no census with root %x", ErrCensusNotFound, root)
	}
	return c.Load(censusID)
}

// ProofByRoot finds a census by its root and generates the membership proof
// of the member at index.
func (c *CensusDB) ProofByRoot(root []byte, index uint64) (*Proof, error) {
	ref, err := c.ByRoot(root)
	if err != nil {
		return nil, err
	}
	return ref.GenProof(index)
}

// SizeByRoot returns the number of members of the census with the given root.
func (c *CensusDB) SizeByRoot(root []byte) (int, error) {
	ref, err := c.ByRoot(root)
	if err != nil {
		return 0, err
	}
	return ref.Size(), nil
}

// updateRoot moves the root index entry of a census to its new root.
func (c *CensusDB) updateRoot(censusID uuid.UUID, newRoot []byte) error {
	newKey := rootKey(newRoot)
	c.mu.Lock()
	defer c.mu.Unlock()

	ref, exists := c.loadedCensus[censusID]
	if !exists {
		return ErrCensusNotFound
	}
	ref.treeMu.Lock()
	oldKey := rootKey(ref.currentRoot)
	if oldKey == newKey {
		ref.treeMu.Unlock()
		return nil
	}
	ref.currentRoot = append([]byte(nil), newRoot...)
	ref.treeMu.Unlock()

	delete(c.rootIndex, oldKey)
	c.rootIndex[newKey] = censusID
	return nil
}

// censusPrefix returns the prefix used for the census tree in the database.
func censusPrefix(censusID uuid.UUID) []byte {
	return append([]byte(censusDBprefix), censusID[:]...)
}
