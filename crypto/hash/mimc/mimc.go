// Package mimc hashes BN254 field elements with the MiMC construction of
// gnark-crypto, which matches gnark's in-circuit std/hash/mimc output.
package mimc

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"

	"github.com/vocdoni/zktally/util"
)

// MaxInputs bounds the number of elements hashed at once.
const MaxInputs = 256

// Hash returns MiMC(inputs...). Inputs are reduced into the field first, the
// same reduction the circuit applies when assigning a witness.
func Hash(inputs ...*big.Int) (*big.Int, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no inputs provided")
	}
	if len(inputs) > MaxInputs {
		return nil, fmt.Errorf("too many inputs")
	}
	h := mimc.NewMiMC()
	for i, input := range inputs {
		var e fr.Element
		e.SetBigInt(util.BigToFF(input))
		b := e.Bytes()
		if _, err := h.Write(b[:]); err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
	}
	return new(big.Int).SetBytes(h.Sum(nil)), nil
}

// MustHash is Hash for inputs known to be valid.
func MustHash(inputs ...*big.Int) *big.Int {
	h, err := Hash(inputs...)
	if err != nil {
		panic(err)
	}
	return h
}
