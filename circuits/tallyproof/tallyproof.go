// Package tallyproof defines the relation proving that a published tally is
// the decryption of the aggregated ballots under the poll key. The secret key
// is the only private witness.
package tallyproof

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/algebra/native/twistededwards"

	"github.com/vocdoni/zktally/circuits"
	"github.com/vocdoni/zktally/crypto/ecc"
	"github.com/vocdoni/zktally/crypto/elgamal"
)

// MaxTallyBits bounds every tally value in the relation, so a count can not
// be replaced by count plus the group order.
const MaxTallyBits = 32

// Circuit proves SecretKey·G == EncryptionKey and, for every option i,
// AggC2[i] - SecretKey·AggC1[i] == Tally[i]·G.
type Circuit struct {
	EncryptionKey twistededwards.Point   `gnark:",public"`
	AggC1         []twistededwards.Point `gnark:",public"`
	AggC2         []twistededwards.Point `gnark:",public"`
	Tally         []frontend.Variable    `gnark:",public"`

	SecretKey frontend.Variable `gnark:",secret"`
}

func (c *Circuit) Define(api frontend.API) error {
	n := len(c.Tally)
	if n == 0 || len(c.AggC1) != n || len(c.AggC2) != n {
		return fmt.Errorf("tally relation size mismatch: %d c1, %d c2, %d tally",
			len(c.AggC1), len(c.AggC2), n)
	}
	curve, err := circuits.NewCurve(api)
	if err != nil {
		return err
	}
	pk := curve.ScalarMul(circuits.Generator(curve), c.SecretKey)
	api.AssertIsEqual(pk.X, c.EncryptionKey.X)
	api.AssertIsEqual(pk.Y, c.EncryptionKey.Y)

	for i := range c.Tally {
		agg := circuits.Ciphertext{C1: c.AggC1[i], C2: c.AggC2[i]}
		agg.AssertDecrypt(api, curve, c.SecretKey, c.Tally[i], MaxTallyBits)
	}
	return nil
}

// Placeholder returns the circuit to compile the relation for n options.
func Placeholder(n int) *Circuit {
	c := &Circuit{
		EncryptionKey: circuits.Identity(),
		AggC1:         make([]twistededwards.Point, n),
		AggC2:         make([]twistededwards.Point, n),
		Tally:         make([]frontend.Variable, n),
	}
	for i := 0; i < n; i++ {
		c.AggC1[i] = circuits.Identity()
		c.AggC2[i] = circuits.Identity()
	}
	return c
}

// Assignment returns the full witness of the relation.
func Assignment(pk ecc.Point, aggregate []*elgamal.Ciphertext, tally []uint64, sk *big.Int) (*Circuit, error) {
	if len(aggregate) != len(tally) {
		return nil, fmt.Errorf("%w: %d ciphertexts, %d tally values",
			elgamal.ErrOptionCountMismatch, len(aggregate), len(tally))
	}
	c := Placeholder(len(tally))
	c.EncryptionKey = circuits.PointFromNative(pk)
	c.SecretKey = sk
	for i, ct := range aggregate {
		if ct == nil || ct.C1 == nil || ct.C2 == nil {
			return nil, fmt.Errorf("option %d: %w", i, elgamal.ErrInvalidCiphertext)
		}
		c.AggC1[i] = circuits.PointFromNative(ct.C1)
		c.AggC2[i] = circuits.PointFromNative(ct.C2)
		c.Tally[i] = tally[i]
	}
	return c, nil
}

// PublicInputs returns the public input vector of the relation: pk.x, pk.y,
// then the (x, y) pairs of every c1, then of every c2, then the tally values.
func PublicInputs(pk ecc.Point, aggregate []*elgamal.Ciphertext, tally []uint64) []*big.Int {
	inputs := make([]*big.Int, 0, 2+len(aggregate)*4+len(tally))
	pkx, pky := pk.Point()
	inputs = append(inputs, pkx, pky)
	for _, ct := range aggregate {
		x, y := ct.C1.Point()
		inputs = append(inputs, x, y)
	}
	for _, ct := range aggregate {
		x, y := ct.C2.Point()
		inputs = append(inputs, x, y)
	}
	for _, t := range tally {
		inputs = append(inputs, new(big.Int).SetUint64(t))
	}
	return inputs
}
