package nullifier

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/vocdoni/zktally/circuits"
	"github.com/vocdoni/zktally/circuits/eligibility"
	"github.com/vocdoni/zktally/log"
	"github.com/vocdoni/zktally/prover"
	"github.com/vocdoni/zktally/storage"
)

// Relation is the id of the eligibility relation.
var Relation = circuits.RelationID{Kind: circuits.KindEligibility}

// Set is the set of nullifiers consumed in one poll.
type Set struct {
	stg    *storage.Storage
	pollID []byte
}

// NewSet returns the consumed set of a poll.
func NewSet(stg *storage.Storage, pollID []byte) *Set {
	return &Set{stg: stg, pollID: pollID}
}

// Consume marks n as used. A second call with the same n fails with
// ErrDoubleVote. The extra writes are committed only if n was fresh.
func (s *Set) Consume(n *big.Int, extra ...storage.TxWrite) error {
	err := s.stg.ConsumeNullifier(s.pollID, n, extra...)
	if errors.Is(err, storage.ErrKeyAlreadyExists) {
		return fmt.Errorf("%w: nullifier %s", ErrDoubleVote, n.String())
	}
	return err
}

// Contains reports whether n was consumed.
func (s *Set) Contains(n *big.Int) (bool, error) {
	return s.stg.NullifierConsumed(s.pollID, n)
}

// Size returns the number of consumed nullifiers.
func (s *Set) Size() int {
	return s.stg.CountNullifiers(s.pollID)
}

// Gate admits ballots of a poll: it verifies the eligibility proof and only
// then consumes the nullifier.
type Gate struct {
	registry    *prover.Registry
	set         *Set
	censusRoot  *big.Int
	pollContext *big.Int
}

// NewGate returns the gate of a poll with the given census root and context.
func NewGate(registry *prover.Registry, set *Set, censusRoot, pollContext *big.Int) *Gate {
	return &Gate{registry: registry, set: set, censusRoot: censusRoot, pollContext: pollContext}
}

// Verify checks an eligibility proof for the nullifier and ballot hash.
func (g *Gate) Verify(nullifier, ballotHash *big.Int, proof *prover.Proof) error {
	inputs := eligibility.PublicInputs(g.censusRoot, g.pollContext, nullifier, ballotHash)
	if err := g.registry.Verify(Relation, inputs, proof); err != nil {
		return fmt.Errorf("eligibility: %w", err)
	}
	return nil
}

// Admit verifies the proof and consumes the nullifier, committing the extra
// writes with it. A proof that does not verify never consumes.
func (g *Gate) Admit(nullifier, ballotHash *big.Int, proof *prover.Proof, extra ...storage.TxWrite) error {
	if err := g.Verify(nullifier, ballotHash, proof); err != nil {
		return err
	}
	if err := g.set.Consume(nullifier, extra...); err != nil {
		return err
	}
	log.Debugw("nullifier consumed", "nullifier", nullifier.String())
	return nil
}
