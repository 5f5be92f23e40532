// Package nullifier derives voter identities and nullifiers, builds the
// eligibility witness of a ballot and keeps the per poll set of consumed
// nullifiers.
package nullifier

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/vocdoni/zktally/census"
	"github.com/vocdoni/zktally/circuits/eligibility"
	"github.com/vocdoni/zktally/crypto/elgamal"
	"github.com/vocdoni/zktally/crypto/hash/mimc"
	"github.com/vocdoni/zktally/types"
	"github.com/vocdoni/zktally/util"
)

var (
	// ErrDoubleVote is returned when a nullifier was already consumed in
	// the poll. It is not retryable.
	ErrDoubleVote = errors.New("double vote")
	// ErrNotMember is returned when the membership proof does not belong to
	// the identity.
	ErrNotMember = errors.New("identity is not a census member")
)

// Identity is the secret of a voter. Only its commitment is published.
type Identity struct {
	Secret *big.Int
}

// NewIdentity returns an identity with a random secret.
func NewIdentity() *Identity {
	return &Identity{Secret: util.RandomFieldElement()}
}

// Commitment returns MiMC(secret), the leaf value registered in a census.
func (id *Identity) Commitment() *big.Int {
	return mimc.MustHash(id.Secret)
}

// Nullifier returns MiMC(secret, pollContext). It is the same for every
// ballot of the identity in one poll and unlinkable across polls.
func (id *Identity) Nullifier(pollContext *big.Int) *big.Int {
	return mimc.MustHash(id.Secret, pollContext)
}

// BallotHash binds a ballot to an eligibility proof.
func BallotHash(ballot *elgamal.Ballot) (*big.Int, error) {
	if ballot == nil || len(ballot.Ciphertexts) == 0 {
		return nil, fmt.Errorf("%w: empty ballot", elgamal.ErrInvalidCiphertext)
	}
	return mimc.Hash(ballot.BigInts()...)
}

// Membership is the eligibility witness of one ballot.
type Membership struct {
	witness eligibility.Witness
}

// Assignment returns the full assignment of the eligibility relation.
func (m *Membership) Assignment() *eligibility.Circuit {
	return m.witness.Assignment()
}

// PublicInputs returns the public inputs a verifier checks the proof with.
func (m *Membership) PublicInputs() []*big.Int {
	return eligibility.PublicInputs(m.witness.CensusRoot, m.witness.PollContext, m.witness.Nullifier, m.witness.BallotHash)
}

// CensusRoot returns the root the membership was proven against.
func (m *Membership) CensusRoot() *big.Int {
	return m.witness.CensusRoot
}

// ProveMembership builds the eligibility witness of an identity for a poll
// and a ballot, from the census proof of the identity. It returns the
// witness and the nullifier the ballot is published with.
func ProveMembership(id *Identity, pollContext *big.Int, proof *census.Proof, ballotHash *big.Int) (*Membership, *big.Int, error) {
	if id == nil || id.Secret == nil {
		return nil, nil, fmt.Errorf("missing identity secret")
	}
	if proof == nil {
		return nil, nil, fmt.Errorf("%w: missing census proof", ErrNotMember)
	}
	if proof.Commitment().Cmp(id.Commitment()) != 0 {
		return nil, nil, fmt.Errorf("%w: commitment mismatch at index %d", ErrNotMember, proof.Index)
	}
	if !proof.Verify() {
		return nil, nil, fmt.Errorf("%w: invalid census proof", ErrNotMember)
	}
	siblings, err := proof.CircuitSiblings()
	if err != nil {
		return nil, nil, err
	}
	nullifier := id.Nullifier(pollContext)
	return &Membership{witness: eligibility.Witness{
		CensusRoot:     proof.RootBigInt(),
		PollContext:    pollContext,
		Nullifier:      nullifier,
		BallotHash:     ballotHash,
		IdentitySecret: id.Secret,
		Index:          proof.Index,
		Siblings:       siblings,
	}}, nullifier, nil
}

// PollContext returns the context nullifiers of the poll are derived with.
func PollContext(pollID types.HexBytes) *big.Int {
	return types.PollContext(pollID)
}
