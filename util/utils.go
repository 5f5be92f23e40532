package util

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// BN254ScalarField is the scalar field of BN254, which is also the base field
// of the BabyJubJub curve and the native field of every circuit.
var BN254ScalarField, _ = new(big.Int).SetString("21888242871839275222246405745257275088548364400416034343698204186575808495617", 10)

// RandomBytes generates a random byte slice of length n.
func RandomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// RandomHex generates a random hex string of n bytes.
func RandomHex(n int) string {
	return fmt.Sprintf("%x", RandomBytes(n))
}

// RandomInt generates a random integer in [min, max).
func RandomInt(min, max int) int {
	num, err := rand.Int(rand.Reader, big.NewInt(int64(max-min)))
	if err != nil {
		panic(err)
	}
	return int(num.Int64()) + min
}

// RandomBigInt returns a uniform integer in [1, max).
func RandomBigInt(max *big.Int) (*big.Int, error) {
	if max.Cmp(big.NewInt(2)) < 0 {
		return nil, fmt.Errorf("upper limit %s too small", max)
	}
	k, err := rand.Int(rand.Reader, new(big.Int).Sub(max, big.NewInt(1)))
	if err != nil {
		return nil, err
	}
	return k.Add(k, big.NewInt(1)), nil
}

// RandomFieldElement returns a uniform non zero element of the BN254 scalar
// field.
func RandomFieldElement() *big.Int {
	k, err := RandomBigInt(BN254ScalarField)
	if err != nil {
		panic(err)
	}
	return k
}

// TrimHex trims the '0x' prefix from a hex string.
func TrimHex(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// BigToFF returns the BN254 scalar field representation of iv, using the
// Euclidean modulus so negative values wrap around.
func BigToFF(iv *big.Int) *big.Int {
	z := big.NewInt(0)
	if c := iv.Cmp(BN254ScalarField); c == 0 {
		return z
	} else if c != 1 && iv.Cmp(z) != -1 {
		return new(big.Int).Set(iv)
	}
	return z.Mod(iv, BN254ScalarField)
}
