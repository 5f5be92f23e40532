package tallyproof

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/test"
	qt "github.com/frankban/quicktest"

	"github.com/vocdoni/zktally/crypto/ecc/curves"
	"github.com/vocdoni/zktally/crypto/elgamal"
)

// castVotes encrypts one one-hot ballot per vote and aggregates them.
func castVotes(c *qt.C, keys *elgamal.KeyPair, n int, votes []int) []*elgamal.Ciphertext {
	ballots := make([][]*elgamal.Ciphertext, len(votes))
	for i, v := range votes {
		cts, _, err := elgamal.EncryptOneHot(keys.Curve, keys.Public, elgamal.OneHot(v, n), nil)
		c.Assert(err, qt.IsNil)
		ballots[i] = cts
	}
	agg, err := elgamal.AggregateBallots(keys.Curve, n, ballots...)
	c.Assert(err, qt.IsNil)
	return agg
}

func decryptAll(c *qt.C, keys *elgamal.KeyPair, agg []*elgamal.Ciphertext, bound uint64) []uint64 {
	tally := make([]uint64, len(agg))
	for i, ct := range agg {
		t, err := elgamal.Decrypt(keys.Curve, keys.Secret, ct, bound)
		c.Assert(err, qt.IsNil)
		tally[i] = t
	}
	return tally
}

func TestTallySolved(t *testing.T) {
	c := qt.New(t)
	keys, err := elgamal.GenerateKey(curves.Default())
	c.Assert(err, qt.IsNil)
	agg := castVotes(c, keys, 3, []int{0, 2, 2})
	tally := decryptAll(c, keys, agg, 3)
	c.Assert(tally, qt.DeepEquals, []uint64{1, 0, 2})

	assignment, err := Assignment(keys.Public, agg, tally, keys.Secret)
	c.Assert(err, qt.IsNil)
	c.Assert(test.IsSolved(Placeholder(3), assignment, ecc.BN254.ScalarField()), qt.IsNil)
}

func TestTallyNoBallots(t *testing.T) {
	c := qt.New(t)
	keys, err := elgamal.GenerateKey(curves.Default())
	c.Assert(err, qt.IsNil)
	agg, err := elgamal.AggregateBallots(keys.Curve, 2)
	c.Assert(err, qt.IsNil)

	assignment, err := Assignment(keys.Public, agg, []uint64{0, 0}, keys.Secret)
	c.Assert(err, qt.IsNil)
	c.Assert(test.IsSolved(Placeholder(2), assignment, ecc.BN254.ScalarField()), qt.IsNil)
}

func TestTallyRejectsWrongWitness(t *testing.T) {
	c := qt.New(t)
	keys, err := elgamal.GenerateKey(curves.Default())
	c.Assert(err, qt.IsNil)
	agg := castVotes(c, keys, 3, []int{1, 1, 0})

	// every case below changes one value of this solved assignment
	assignment, err := Assignment(keys.Public, agg, []uint64{1, 2, 0}, keys.Secret)
	c.Assert(err, qt.IsNil)
	c.Assert(test.IsSolved(Placeholder(3), assignment, ecc.BN254.ScalarField()), qt.IsNil)

	// wrong count
	assignment, err = Assignment(keys.Public, agg, []uint64{2, 1, 0}, keys.Secret)
	c.Assert(err, qt.IsNil)
	c.Assert(test.IsSolved(Placeholder(3), assignment, ecc.BN254.ScalarField()), qt.IsNotNil)

	// votes claimed for an option nobody chose
	assignment, err = Assignment(keys.Public, agg, []uint64{1, 2, 1}, keys.Secret)
	c.Assert(err, qt.IsNil)
	c.Assert(test.IsSolved(Placeholder(3), assignment, ecc.BN254.ScalarField()), qt.IsNotNil)

	// right counts, secret not matching the public key
	other, err := elgamal.GenerateKey(curves.Default())
	c.Assert(err, qt.IsNil)
	assignment, err = Assignment(keys.Public, agg, []uint64{1, 2, 0}, other.Secret)
	c.Assert(err, qt.IsNil)
	c.Assert(test.IsSolved(Placeholder(3), assignment, ecc.BN254.ScalarField()), qt.IsNotNil)

	// count shifted by the group order decrypts to the same point
	shifted := new(big.Int).Add(big.NewInt(1), keys.Curve.Order())
	assignment, err = Assignment(keys.Public, agg, []uint64{1, 2, 0}, keys.Secret)
	c.Assert(err, qt.IsNil)
	assignment.Tally[0] = shifted
	c.Assert(test.IsSolved(Placeholder(3), assignment, ecc.BN254.ScalarField()), qt.IsNotNil)
}

func TestTallyPublicInputs(t *testing.T) {
	c := qt.New(t)
	keys, err := elgamal.GenerateKey(curves.Default())
	c.Assert(err, qt.IsNil)
	agg := castVotes(c, keys, 2, []int{1})
	inputs := PublicInputs(keys.Public, agg, []uint64{0, 1})
	c.Assert(inputs, qt.HasLen, 2+2*4+2)

	c2x, c2y := agg[0].C2.Point()
	c.Assert(inputs[6].Cmp(c2x), qt.Equals, 0)
	c.Assert(inputs[7].Cmp(c2y), qt.Equals, 0)
	c.Assert(inputs[10].Int64(), qt.Equals, int64(0))
	c.Assert(inputs[11].Int64(), qt.Equals, int64(1))
}

func TestTallyEightOptionsGroth16(t *testing.T) {
	c := qt.New(t)
	keys, err := elgamal.GenerateKey(curves.Default())
	c.Assert(err, qt.IsNil)
	const n = 8
	votes := []int{0, 2, 2, 1, 2}
	agg := castVotes(c, keys, n, votes)
	tally := decryptAll(c, keys, agg, uint64(len(votes)))
	c.Assert(tally, qt.DeepEquals, []uint64{1, 1, 3, 0, 0, 0, 0, 0})

	assert := test.NewAssert(t)
	valid, err := Assignment(keys.Public, agg, tally, keys.Secret)
	c.Assert(err, qt.IsNil)
	assert.ProverSucceeded(Placeholder(n), valid,
		test.WithCurves(ecc.BN254), test.WithBackends(backend.GROTH16))

	invalid, err := Assignment(keys.Public, agg, []uint64{2, 1, 3, 0, 0, 0, 0, 0}, keys.Secret)
	c.Assert(err, qt.IsNil)
	assert.ProverFailed(Placeholder(n), invalid,
		test.WithCurves(ecc.BN254), test.WithBackends(backend.GROTH16))
}
