package census

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vocdoni/arbo"

	"github.com/vocdoni/zktally/types"
	"github.com/vocdoni/zktally/util"
)

// CensusRef is a reference to a census. It holds the Merkle tree; all
// accesses to the tree and its currentRoot are protected by treeMu.
type CensusRef struct {
	ID        uuid.UUID `cbor:"0,keyasint"`
	MaxLevels int       `cbor:"1,keyasint"`
	HashType  string    `cbor:"2,keyasint"`
	LastUsed  time.Time `cbor:"3,keyasint"`

	currentRoot []byte
	tree        *arbo.Tree
	treeMu      sync.Mutex
	// updateRootRequest is the channel to send asynchronous root updates.
	updateRootRequest chan *updateRootRequest
}

// IndexKey returns the leaf key of the member at index.
func IndexKey(index uint64) []byte {
	return arbo.BigIntToBytes(types.CensusKeyLen, new(big.Int).SetUint64(index))
}

// CommitmentValue returns the leaf value holding an identity commitment.
func CommitmentValue(commitment *big.Int) []byte {
	return arbo.BigIntToBytes(HashFunction.Len(), commitment)
}

func checkCommitment(commitment *big.Int) error {
	if commitment == nil || commitment.Sign() < 0 || commitment.Cmp(util.BN254ScalarField) >= 0 {
		return ErrInvalidCommitment
	}
	return nil
}

// sendUpdateRoot sends an update request and waits until it is processed.
func (cr *CensusRef) sendUpdateRoot(newRoot []byte) {
	done := make(chan struct{})
	cr.updateRootRequest <- &updateRootRequest{
		censusID: cr.ID,
		newRoot:  newRoot,
		done:     done,
	}
	<-done
}

// Add appends an identity commitment to the census and returns the index
// assigned to the member.
func (cr *CensusRef) Add(commitment *big.Int) (uint64, error) {
	if err := checkCommitment(commitment); err != nil {
		return 0, err
	}
	cr.treeMu.Lock()
	size, err := cr.tree.GetNLeafs()
	if err != nil {
		cr.treeMu.Unlock()
		return 0, err
	}
	index := uint64(size)
	if err := cr.tree.Add(IndexKey(index), CommitmentValue(commitment)); err != nil {
		cr.treeMu.Unlock()
		return 0, fmt.Errorf("cannot add member %d: %w", index, err)
	}
	newRoot, err := cr.tree.Root()
	cr.treeMu.Unlock()
	if err != nil {
		return 0, err
	}
	cr.sendUpdateRoot(newRoot)
	return index, nil
}

// AddBatch appends a list of identity commitments and returns the index of
// the first one. Indexes are consecutive.
func (cr *CensusRef) AddBatch(commitments []*big.Int) (uint64, error) {
	for i, c := range commitments {
		if err := checkCommitment(c); err != nil {
			return 0, fmt.Errorf("commitment %d: %w", i, err)
		}
	}
	cr.treeMu.Lock()
	size, err := cr.tree.GetNLeafs()
	if err != nil {
		cr.treeMu.Unlock()
		return 0, err
	}
	first := uint64(size)
	keys := make([][]byte, len(commitments))
	values := make([][]byte, len(commitments))
	for i, c := range commitments {
		keys[i] = IndexKey(first + uint64(i))
		values[i] = CommitmentValue(c)
	}
	invalid, err := cr.tree.AddBatch(keys, values)
	if err == nil && len(invalid) > 0 {
		err = fmt.Errorf("%d members could not be added", len(invalid))
	}
	if err != nil {
		cr.treeMu.Unlock()
		return 0, err
	}
	newRoot, err := cr.tree.Root()
	cr.treeMu.Unlock()
	if err != nil {
		return 0, err
	}
	cr.sendUpdateRoot(newRoot)
	return first, nil
}

// Root safely returns the current Merkle tree root.
func (cr *CensusRef) Root() []byte {
	cr.treeMu.Lock()
	defer cr.treeMu.Unlock()
	root, err := cr.tree.Root()
	if err != nil {
		return nil
	}
	return root
}

// Size safely returns the number of members.
func (cr *CensusRef) Size() int {
	cr.treeMu.Lock()
	defer cr.treeMu.Unlock()
	size, err := cr.tree.GetNLeafs()
	if err != nil {
		return 0
	}
	return size
}

// Commitment returns the identity commitment of the member at index.
func (cr *CensusRef) Commitment(index uint64) (*big.Int, error) {
	cr.treeMu.Lock()
	defer cr.treeMu.Unlock()
	_, value, err := cr.tree.Get(IndexKey(index))
	if err != nil {
		return nil, fmt.Errorf("%w: %d", ErrMemberNotFound, index)
	}
	return arbo.BytesToBigInt(value), nil
}

// GenProof generates the membership proof of the member at index.
func (cr *CensusRef) GenProof(index uint64) (*Proof, error) {
	cr.treeMu.Lock()
	defer cr.treeMu.Unlock()
	root, err := cr.tree.Root()
	if err != nil {
		return nil, err
	}
	key, value, siblings, inclusion, err := cr.tree.GenProof(IndexKey(index))
	if err != nil {
		return nil, err
	}
	if !inclusion {
		return nil, fmt.Errorf("%w: %d", ErrMemberNotFound, index)
	}
	return &Proof{
		Root:     root,
		Key:      key,
		Value:    value,
		Siblings: siblings,
		Index:    index,
	}, nil
}
