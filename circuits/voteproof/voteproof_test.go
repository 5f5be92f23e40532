package voteproof

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/test"
	qt "github.com/frankban/quicktest"

	"github.com/vocdoni/zktally/crypto/ecc/curves"
	"github.com/vocdoni/zktally/crypto/elgamal"
)

func testKey(c *qt.C) *elgamal.KeyPair {
	keys, err := elgamal.GenerateKey(curves.Default())
	c.Assert(err, qt.IsNil)
	return keys
}

// encryptRaw encrypts every entry of values without validating them, the
// way a dishonest voter would.
func encryptRaw(c *qt.C, keys *elgamal.KeyPair, values []int) ([]*elgamal.Ciphertext, []*big.Int) {
	cts := make([]*elgamal.Ciphertext, len(values))
	ks := make([]*big.Int, len(values))
	for i, v := range values {
		k, err := elgamal.RandK(keys.Curve)
		c.Assert(err, qt.IsNil)
		cts[i], err = elgamal.Encrypt(keys.Curve, keys.Public, big.NewInt(int64(v)), k)
		c.Assert(err, qt.IsNil)
		ks[i] = k
	}
	return cts, ks
}

func TestScalarSolved(t *testing.T) {
	c := qt.New(t)
	keys := testKey(c)
	const n = 4
	for choice := 0; choice < n; choice++ {
		ct, k, err := elgamal.EncryptChoice(keys.Curve, keys.Public, choice, n, nil)
		c.Assert(err, qt.IsNil)
		assignment := ScalarAssignment(n, keys.Public, ct, choice, k)
		c.Assert(test.IsSolved(ScalarPlaceholder(n), assignment, ecc.BN254.ScalarField()), qt.IsNil,
			qt.Commentf("choice %d", choice))
	}
}

func TestScalarRejectsOutOfRange(t *testing.T) {
	c := qt.New(t)
	keys := testKey(c)
	const n = 4
	cts, ks := encryptRaw(c, keys, []int{n})
	assignment := ScalarAssignment(n, keys.Public, cts[0], n, ks[0])
	c.Assert(test.IsSolved(ScalarPlaceholder(n), assignment, ecc.BN254.ScalarField()), qt.IsNotNil)
}

func TestScalarRejectsWrongWitness(t *testing.T) {
	c := qt.New(t)
	keys := testKey(c)
	const n = 4
	ct, k, err := elgamal.EncryptChoice(keys.Curve, keys.Public, 1, n, nil)
	c.Assert(err, qt.IsNil)

	// claims another choice than the encrypted one
	assignment := ScalarAssignment(n, keys.Public, ct, 2, k)
	c.Assert(test.IsSolved(ScalarPlaceholder(n), assignment, ecc.BN254.ScalarField()), qt.IsNotNil)

	// encrypted under another key
	other := testKey(c)
	assignment = ScalarAssignment(n, other.Public, ct, 1, k)
	c.Assert(test.IsSolved(ScalarPlaceholder(n), assignment, ecc.BN254.ScalarField()), qt.IsNotNil)
}

func TestScalarPublicInputs(t *testing.T) {
	c := qt.New(t)
	keys := testKey(c)
	ct, _, err := elgamal.EncryptChoice(keys.Curve, keys.Public, 0, 2, nil)
	c.Assert(err, qt.IsNil)
	inputs := ScalarPublicInputs(keys.Public, ct)
	c.Assert(inputs, qt.HasLen, 6)
	c1x, c1y := ct.C1.Point()
	pkx, pky := keys.Public.Point()
	c.Assert(inputs[0].Cmp(c1x), qt.Equals, 0)
	c.Assert(inputs[1].Cmp(c1y), qt.Equals, 0)
	c.Assert(inputs[4].Cmp(pkx), qt.Equals, 0)
	c.Assert(inputs[5].Cmp(pky), qt.Equals, 0)
}

func TestVectorPublicInputs(t *testing.T) {
	c := qt.New(t)
	keys := testKey(c)
	cts, _, err := elgamal.EncryptOneHot(keys.Curve, keys.Public, elgamal.OneHot(1, 3), nil)
	c.Assert(err, qt.IsNil)
	inputs := VectorPublicInputs(keys.Public, cts)
	c.Assert(inputs, qt.HasLen, 3*4+2)
	// ledger layout first, key binding last
	for i, ct := range cts {
		for j, v := range ct.BigInts() {
			c.Assert(inputs[i*4+j].Cmp(v), qt.Equals, 0)
		}
	}
	pkx, pky := keys.Public.Point()
	c.Assert(inputs[12].Cmp(pkx), qt.Equals, 0)
	c.Assert(inputs[13].Cmp(pky), qt.Equals, 0)
}

func TestVectorSolved(t *testing.T) {
	c := qt.New(t)
	keys := testKey(c)
	const n = 3
	for choice := 0; choice < n; choice++ {
		selection := elgamal.OneHot(choice, n)
		cts, ks, err := elgamal.EncryptOneHot(keys.Curve, keys.Public, selection, nil)
		c.Assert(err, qt.IsNil)
		assignment, err := VectorAssignment(keys.Public, cts, selection, ks)
		c.Assert(err, qt.IsNil)
		c.Assert(test.IsSolved(VectorPlaceholder(n), assignment, ecc.BN254.ScalarField()), qt.IsNil,
			qt.Commentf("choice %d", choice))
	}
}

// slotsCircuit runs the per option checks of the vector relation without
// the sum constraint.
type slotsCircuit struct {
	Vote VectorCircuit
}

func (c *slotsCircuit) Define(api frontend.API) error {
	_, err := c.Vote.assertSlots(api)
	return err
}

func TestVectorRejectsInvalidSelections(t *testing.T) {
	c := qt.New(t)
	keys := testKey(c)
	for name, tc := range map[string]struct {
		selection []int
		slotsOK   bool
	}{
		"none selected": {[]int{0, 0, 0}, true},
		"two selected":  {[]int{1, 1, 0}, true},
		"all selected":  {[]int{1, 1, 1}, true},
		"non binary":    {[]int{2, 0, 0}, false},
	} {
		n := len(tc.selection)
		cts, ks := encryptRaw(c, keys, tc.selection)
		assignment, err := VectorAssignment(keys.Public, cts, tc.selection, ks)
		c.Assert(err, qt.IsNil)
		c.Assert(test.IsSolved(VectorPlaceholder(n), assignment, ecc.BN254.ScalarField()),
			qt.IsNotNil, qt.Commentf("%s", name))

		// honest encryptions pass every per option check, so only the sum
		// constraint rejects them
		err = test.IsSolved(&slotsCircuit{Vote: *VectorPlaceholder(n)}, &slotsCircuit{Vote: *assignment},
			ecc.BN254.ScalarField())
		if tc.slotsOK {
			c.Assert(err, qt.IsNil, qt.Commentf("%s", name))
		} else {
			c.Assert(err, qt.IsNotNil, qt.Commentf("%s", name))
		}
	}
}

func TestVectorAssignmentSizeMismatch(t *testing.T) {
	c := qt.New(t)
	keys := testKey(c)
	cts, ks := encryptRaw(c, keys, []int{1, 0})
	_, err := VectorAssignment(keys.Public, cts, []int{1, 0, 0}, ks)
	c.Assert(err, qt.ErrorIs, elgamal.ErrOptionCountMismatch)
}

func TestVoteProofGroth16(t *testing.T) {
	c := qt.New(t)
	assert := test.NewAssert(t)
	keys := testKey(c)

	ct, k, err := elgamal.EncryptChoice(keys.Curve, keys.Public, 2, 3, nil)
	c.Assert(err, qt.IsNil)
	assert.ProverSucceeded(ScalarPlaceholder(3), ScalarAssignment(3, keys.Public, ct, 2, k),
		test.WithCurves(ecc.BN254), test.WithBackends(backend.GROTH16))

	selection := []int{0, 1}
	cts, ks, err := elgamal.EncryptOneHot(keys.Curve, keys.Public, selection, nil)
	c.Assert(err, qt.IsNil)
	valid, err := VectorAssignment(keys.Public, cts, selection, ks)
	c.Assert(err, qt.IsNil)
	assert.ProverSucceeded(VectorPlaceholder(2), valid,
		test.WithCurves(ecc.BN254), test.WithBackends(backend.GROTH16))

	bad := []int{1, 1}
	cts, ks = encryptRaw(c, keys, bad)
	invalid, err := VectorAssignment(keys.Public, cts, bad, ks)
	c.Assert(err, qt.IsNil)
	assert.ProverFailed(VectorPlaceholder(2), invalid,
		test.WithCurves(ecc.BN254), test.WithBackends(backend.GROTH16))
}
