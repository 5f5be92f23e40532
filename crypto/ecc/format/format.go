// Package format converts BabyJubJub coordinates between the twisted Edwards
// form (a = 168700, used by iden3 and circom) and the reduced twisted Edwards
// form (a = -1, used by gnark), and holds the canonical byte layout of a point.
package format

import (
	"fmt"
	"math/big"
)

// CoordinateLen is the length in bytes of an encoded coordinate.
const CoordinateLen = 32

var (
	// baseField is the BN254 scalar field, the base field of BabyJubJub.
	baseField, _ = new(big.Int).SetString("21888242871839275222246405745257275088548364400416034343698204186575808495617", 10)
	// scalingFactor is f with f^2 = -168700 mod p, so x_rte = -f·x_te.
	scalingFactor, _ = new(big.Int).SetString("6360561867910373094066688120553762416144456282423235903351243436111059670888", 10)
	negScalingInv    = new(big.Int)
)

func init() {
	negScalingInv.ModInverse(scalingFactor, baseField)
	negScalingInv.Neg(negScalingInv)
	negScalingInv.Mod(negScalingInv, baseField)
}

// BaseField returns a copy of the field the coordinates live in.
func BaseField() *big.Int {
	return new(big.Int).Set(baseField)
}

// FromTEtoRTE maps (x, y) in twisted Edwards form to reduced twisted Edwards
// form. y is unchanged.
func FromTEtoRTE(x, y *big.Int) (*big.Int, *big.Int) {
	xRTE := new(big.Int).Mul(x, scalingFactor)
	xRTE.Neg(xRTE)
	xRTE.Mod(xRTE, baseField)
	return xRTE, new(big.Int).Set(y)
}

// FromRTEtoTE is the inverse of FromTEtoRTE.
func FromRTEtoTE(x, y *big.Int) (*big.Int, *big.Int) {
	xTE := new(big.Int).Mul(x, negScalingInv)
	xTE.Mod(xTE, baseField)
	return xTE, new(big.Int).Set(y)
}

// InField reports whether 0 <= v < p.
func InField(v *big.Int) bool {
	return v != nil && v.Sign() >= 0 && v.Cmp(baseField) < 0
}

// Marshal encodes (x, y) as two 32 byte big-endian coordinates.
func Marshal(x, y *big.Int) []byte {
	buf := make([]byte, 2*CoordinateLen)
	x.FillBytes(buf[:CoordinateLen])
	y.FillBytes(buf[CoordinateLen:])
	return buf
}

// Unmarshal decodes the output of Marshal. It does not check the curve
// equation.
func Unmarshal(buf []byte) (*big.Int, *big.Int, error) {
	if len(buf) != 2*CoordinateLen {
		return nil, nil, fmt.Errorf("invalid point length %d, expected %d", len(buf), 2*CoordinateLen)
	}
	x := new(big.Int).SetBytes(buf[:CoordinateLen])
	y := new(big.Int).SetBytes(buf[CoordinateLen:])
	if !InField(x) || !InField(y) {
		return nil, nil, fmt.Errorf("coordinate out of the base field")
	}
	return x, y, nil
}
