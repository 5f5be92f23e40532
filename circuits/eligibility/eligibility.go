// Package eligibility defines the relation proving that the prover owns an
// identity registered in a census and that the published nullifier was
// derived from that identity and the poll, without revealing which member
// voted.
package eligibility

import (
	"math/big"

	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"
	garbo "github.com/vocdoni/gnark-crypto-primitives/tree/arbo"
	"github.com/vocdoni/gnark-crypto-primitives/utils"

	"github.com/vocdoni/zktally/types"
)

// HashFn is the hash of the census tree nodes.
var HashFn garbo.Hash = utils.MiMCHasher

// Circuit proves that MiMC(IdentitySecret) is the leaf at Index of the tree
// with root CensusRoot, and that Nullifier == MiMC(IdentitySecret,
// PollContext). BallotHash is bound to the proof so it can not be replayed
// with another ballot.
type Circuit struct {
	CensusRoot  frontend.Variable `gnark:",public"`
	PollContext frontend.Variable `gnark:",public"`
	Nullifier   frontend.Variable `gnark:",public"`
	BallotHash  frontend.Variable `gnark:",public"`

	IdentitySecret frontend.Variable                            `gnark:",secret"`
	Index          frontend.Variable                            `gnark:",secret"`
	Siblings       [types.CensusTreeMaxLevels]frontend.Variable `gnark:",secret"`
}

func (c *Circuit) Define(api frontend.API) error {
	commitment, err := hash(api, c.IdentitySecret)
	if err != nil {
		return err
	}
	if err := garbo.CheckInclusionProof(api, HashFn, c.Index, commitment, c.CensusRoot, c.Siblings[:]); err != nil {
		return err
	}
	nullifier, err := hash(api, c.IdentitySecret, c.PollContext)
	if err != nil {
		return err
	}
	api.AssertIsEqual(nullifier, c.Nullifier)
	// BallotHash is otherwise unconstrained; this gives it a non-zero
	// verifying key term so the proof is bound to the ballot.
	api.Mul(c.BallotHash, c.BallotHash)
	return nil
}

func hash(api frontend.API, inputs ...frontend.Variable) (frontend.Variable, error) {
	h, err := mimc.NewMiMC(api)
	if err != nil {
		return nil, err
	}
	h.Write(inputs...)
	return h.Sum(), nil
}

// Placeholder returns the circuit to compile the relation.
func Placeholder() *Circuit {
	return &Circuit{}
}

// Witness groups the native values of a full assignment.
type Witness struct {
	CensusRoot     *big.Int
	PollContext    *big.Int
	Nullifier      *big.Int
	BallotHash     *big.Int
	IdentitySecret *big.Int
	Index          uint64
	Siblings       [types.CensusTreeMaxLevels]*big.Int
}

// Assignment returns the full witness of the relation.
func (w *Witness) Assignment() *Circuit {
	c := &Circuit{
		CensusRoot:     w.CensusRoot,
		PollContext:    w.PollContext,
		Nullifier:      w.Nullifier,
		BallotHash:     w.BallotHash,
		IdentitySecret: w.IdentitySecret,
		Index:          w.Index,
	}
	for i, s := range w.Siblings {
		if s == nil {
			s = big.NewInt(0)
		}
		c.Siblings[i] = s
	}
	return c
}

// PublicInputs returns the public input vector of the relation: census root,
// poll context, nullifier, ballot hash.
func PublicInputs(censusRoot, pollContext, nullifier, ballotHash *big.Int) []*big.Int {
	return []*big.Int{censusRoot, pollContext, nullifier, ballotHash}
}
