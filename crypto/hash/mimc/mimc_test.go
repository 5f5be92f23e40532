package mimc

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/frontend"
	gmimc "github.com/consensys/gnark/std/hash/mimc"
	"github.com/consensys/gnark/test"
	qt "github.com/frankban/quicktest"

	"github.com/vocdoni/zktally/util"
)

type hashCircuit struct {
	Inputs [3]frontend.Variable
	Hash   frontend.Variable `gnark:",public"`
}

func (c *hashCircuit) Define(api frontend.API) error {
	h, err := gmimc.NewMiMC(api)
	if err != nil {
		return err
	}
	h.Write(c.Inputs[:]...)
	api.AssertIsEqual(h.Sum(), c.Hash)
	return nil
}

func TestHashMatchesCircuit(t *testing.T) {
	c := qt.New(t)
	inputs := []*big.Int{big.NewInt(1), util.RandomFieldElement(), big.NewInt(0)}
	h, err := Hash(inputs...)
	c.Assert(err, qt.IsNil)

	assignment := &hashCircuit{Hash: h}
	for i := range inputs {
		assignment.Inputs[i] = inputs[i]
	}
	c.Assert(test.IsSolved(&hashCircuit{}, assignment, ecc.BN254.ScalarField()), qt.IsNil)
}

func TestHashReducesInputs(t *testing.T) {
	c := qt.New(t)
	a := MustHash(big.NewInt(5))
	b := MustHash(new(big.Int).Add(util.BN254ScalarField, big.NewInt(5)))
	c.Assert(a.Cmp(b), qt.Equals, 0)
	c.Assert(MustHash(big.NewInt(5), big.NewInt(6)).Cmp(MustHash(big.NewInt(6), big.NewInt(5))), qt.Not(qt.Equals), 0)

	_, err := Hash()
	c.Assert(err, qt.IsNotNil)
}
