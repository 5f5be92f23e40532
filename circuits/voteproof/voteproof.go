// Package voteproof defines the relations proving that a ballot encrypts a
// valid choice under the poll key, without revealing the choice.
//
// The scalar relation encrypts the choice index in a single ciphertext and
// range checks it. The vector relation encrypts a one-hot selection, one
// ciphertext per option.
package voteproof

import (
	"fmt"
	"math/big"
	"math/bits"

	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/algebra/native/twistededwards"

	"github.com/vocdoni/zktally/circuits"
	"github.com/vocdoni/zktally/crypto/ecc"
	"github.com/vocdoni/zktally/crypto/elgamal"
)

// ScalarCircuit proves that Ciphertext encrypts Choice under EncryptionKey
// with randomness K, and that Choice is in [0, NumOptions).
type ScalarCircuit struct {
	NumOptions int `gnark:"-"`

	Ciphertext    circuits.Ciphertext  `gnark:",public"`
	EncryptionKey twistededwards.Point `gnark:",public"`

	Choice frontend.Variable `gnark:",secret"`
	K      frontend.Variable `gnark:",secret"`
}

func (c *ScalarCircuit) Define(api frontend.API) error {
	if c.NumOptions < 2 {
		return fmt.Errorf("scalar vote relation needs at least 2 options, got %d", c.NumOptions)
	}
	curve, err := circuits.NewCurve(api)
	if err != nil {
		return err
	}
	curve.AssertIsOnCurve(c.EncryptionKey)
	api.AssertIsLessOrEqual(c.Choice, c.NumOptions-1)

	expected := new(circuits.Ciphertext).Encrypt(api, curve, c.EncryptionKey, c.K, c.Choice,
		bits.Len(uint(c.NumOptions-1)))
	expected.AssertIsEqual(api, &c.Ciphertext)
	return nil
}

// VectorCircuit proves that Ciphertexts encrypt a one-hot selection under
// EncryptionKey: every choice is 0 or 1 and exactly one is set.
type VectorCircuit struct {
	Ciphertexts   []circuits.Ciphertext `gnark:",public"`
	EncryptionKey twistededwards.Point  `gnark:",public"`

	Choices []frontend.Variable `gnark:",secret"`
	Ks      []frontend.Variable `gnark:",secret"`
}

func (c *VectorCircuit) Define(api frontend.API) error {
	sum, err := c.assertSlots(api)
	if err != nil {
		return err
	}
	api.AssertIsEqual(sum, 1)
	return nil
}

// assertSlots checks that every choice is 0 or 1 and is encrypted in its
// ciphertext, and returns the sum of the choices.
func (c *VectorCircuit) assertSlots(api frontend.API) (frontend.Variable, error) {
	n := len(c.Ciphertexts)
	if n < 2 || len(c.Choices) != n || len(c.Ks) != n {
		return nil, fmt.Errorf("vector vote relation size mismatch: %d ciphertexts, %d choices, %d ks",
			n, len(c.Choices), len(c.Ks))
	}
	curve, err := circuits.NewCurve(api)
	if err != nil {
		return nil, err
	}
	curve.AssertIsOnCurve(c.EncryptionKey)

	sum := frontend.Variable(0)
	for i := range c.Choices {
		api.AssertIsBoolean(c.Choices[i])
		sum = api.Add(sum, c.Choices[i])

		expected := new(circuits.Ciphertext).Encrypt(api, curve, c.EncryptionKey, c.Ks[i], c.Choices[i], 1)
		expected.AssertIsEqual(api, &c.Ciphertexts[i])
	}
	return sum, nil
}

// ScalarPlaceholder returns the circuit to compile the scalar relation for n
// options.
func ScalarPlaceholder(n int) *ScalarCircuit {
	return &ScalarCircuit{
		NumOptions:    n,
		Ciphertext:    circuits.EmptyCiphertext(),
		EncryptionKey: circuits.Identity(),
	}
}

// ScalarAssignment returns the full witness of the scalar relation.
func ScalarAssignment(n int, pk ecc.Point, ct *elgamal.Ciphertext, choice int, k *big.Int) *ScalarCircuit {
	return &ScalarCircuit{
		NumOptions:    n,
		Ciphertext:    circuits.CiphertextFromNative(ct),
		EncryptionKey: circuits.PointFromNative(pk),
		Choice:        choice,
		K:             k,
	}
}

// ScalarPublicInputs returns the public input vector of the scalar relation.
// The first four entries are the ballot as stored in the ledger, c1.x, c1.y,
// c2.x, c2.y; pk.x, pk.y come last and bind the proof to the poll key.
func ScalarPublicInputs(pk ecc.Point, ct *elgamal.Ciphertext) []*big.Int {
	pkx, pky := pk.Point()
	return append(ct.BigInts(), pkx, pky)
}

// VectorPlaceholder returns the circuit to compile the vector relation for n
// options.
func VectorPlaceholder(n int) *VectorCircuit {
	c := &VectorCircuit{
		Ciphertexts:   make([]circuits.Ciphertext, n),
		EncryptionKey: circuits.Identity(),
		Choices:       make([]frontend.Variable, n),
		Ks:            make([]frontend.Variable, n),
	}
	for i := range c.Ciphertexts {
		c.Ciphertexts[i] = circuits.EmptyCiphertext()
	}
	return c
}

// VectorAssignment returns the full witness of the vector relation.
func VectorAssignment(pk ecc.Point, cts []*elgamal.Ciphertext, selection []int, ks []*big.Int) (*VectorCircuit, error) {
	if len(selection) != len(cts) || len(ks) != len(cts) {
		return nil, fmt.Errorf("%w: %d ciphertexts, %d choices, %d ks",
			elgamal.ErrOptionCountMismatch, len(cts), len(selection), len(ks))
	}
	c := VectorPlaceholder(len(cts))
	c.EncryptionKey = circuits.PointFromNative(pk)
	for i := range cts {
		c.Ciphertexts[i] = circuits.CiphertextFromNative(cts[i])
		c.Choices[i] = selection[i]
		c.Ks[i] = ks[i]
	}
	return c, nil
}

// VectorPublicInputs returns the public input vector of the vector relation.
// The first 4·N entries follow the ledger layout exactly, c1.x, c1.y, c2.x,
// c2.y per ciphertext in option order; pk.x, pk.y come last and bind the
// proof to the poll key.
func VectorPublicInputs(pk ecc.Point, cts []*elgamal.Ciphertext) []*big.Int {
	inputs := make([]*big.Int, 0, len(cts)*4+2)
	for _, ct := range cts {
		inputs = append(inputs, ct.BigInts()...)
	}
	pkx, pky := pk.Point()
	return append(inputs, pkx, pky)
}
