// Package voter builds ballots on the voter side: it encrypts the choice
// under the poll key and proves both the ballot well formed and the voter
// eligible.
package voter

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark/frontend"

	"github.com/vocdoni/zktally/census"
	"github.com/vocdoni/zktally/circuits/voteproof"
	"github.com/vocdoni/zktally/crypto/ecc"
	"github.com/vocdoni/zktally/crypto/ecc/curves"
	"github.com/vocdoni/zktally/crypto/elgamal"
	"github.com/vocdoni/zktally/nullifier"
	"github.com/vocdoni/zktally/poll"
	"github.com/vocdoni/zktally/prover"
	"github.com/vocdoni/zktally/storage"
	"github.com/vocdoni/zktally/types"
)

// Voter holds an identity and the registry it proves with.
type Voter struct {
	Identity *nullifier.Identity
	registry *prover.Registry
	curve    ecc.Curve
}

// New returns a voter for the identity. A nil curve means the default one.
func New(id *nullifier.Identity, registry *prover.Registry, curve ecc.Curve) *Voter {
	if curve == nil {
		curve = curves.Default()
	}
	return &Voter{Identity: id, registry: registry, curve: curve}
}

// Encrypt encrypts a choice under the poll key following the poll variant.
// It returns the ballot with the assignment of its vote proof.
func Encrypt(curve ecc.Curve, p *types.Poll, choice int) (*elgamal.Ballot, frontend.Circuit, error) {
	pk, err := poll.EncryptionKey(curve, p)
	if err != nil {
		return nil, nil, err
	}
	if p.Variant == types.VariantScalar {
		ct, k, err := elgamal.EncryptChoice(curve, pk, choice, p.NumOptions, nil)
		if err != nil {
			return nil, nil, err
		}
		assignment := voteproof.ScalarAssignment(p.NumOptions, pk, ct, choice, k)
		return elgamal.NewBallot(curve, []*elgamal.Ciphertext{ct}), assignment, nil
	}
	if choice < 0 || choice >= p.NumOptions {
		return nil, nil, fmt.Errorf("%w: %d not in [0, %d)", elgamal.ErrInvalidChoice, choice, p.NumOptions)
	}
	selection := elgamal.OneHot(choice, p.NumOptions)
	cts, ks, err := elgamal.EncryptOneHot(curve, pk, selection, nil)
	if err != nil {
		return nil, nil, err
	}
	assignment, err := voteproof.VectorAssignment(pk, cts, selection, ks)
	if err != nil {
		return nil, nil, err
	}
	return elgamal.NewBallot(curve, cts), assignment, nil
}

// Vote encrypts the choice and proves the ballot and the membership of the
// voter in the poll census. The census proof must be the voter's.
func (v *Voter) Vote(p *types.Poll, censusProof *census.Proof, choice int) (*storage.Ballot, error) {
	ballot, assignment, err := Encrypt(v.curve, p, choice)
	if err != nil {
		return nil, err
	}
	voteProof, err := v.registry.Prove(poll.VoteRelation(p), assignment)
	if err != nil {
		return nil, fmt.Errorf("cannot prove ballot: %w", err)
	}
	ballotHash, err := nullifier.BallotHash(ballot)
	if err != nil {
		return nil, err
	}
	membership, n, err := nullifier.ProveMembership(v.Identity, types.PollContext(p.ID), censusProof, ballotHash)
	if err != nil {
		return nil, err
	}
	eligibilityProof, err := v.registry.Prove(nullifier.Relation, membership.Assignment())
	if err != nil {
		return nil, fmt.Errorf("cannot prove eligibility: %w", err)
	}
	return &storage.Ballot{
		PollID:           p.ID,
		Ballot:           ballot,
		VoteProof:        voteProof,
		EligibilityProof: eligibilityProof,
		Nullifier:        types.NewBigInt(n),
		CensusRoot:       censusProof.Root,
	}, nil
}

// Nullifier returns the nullifier the voter publishes in a poll.
func (v *Voter) Nullifier(pollID []byte) *big.Int {
	return v.Identity.Nullifier(types.PollContext(pollID))
}
