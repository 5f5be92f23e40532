// Package ecc defines the prime order group used by the voting protocol.
// Points are immutable values: every operation returns a new Point and never
// modifies its operands.
package ecc

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/vocdoni/zktally/types"
)

var (
	// ErrInvalidCoordinate is returned for coordinates outside the base field.
	ErrInvalidCoordinate = errors.New("coordinate out of the base field")
	// ErrNotOnCurve is returned when the coordinates do not satisfy the curve
	// equation.
	ErrNotOnCurve = errors.New("point is not on the curve")
	// ErrNotInSubgroup is returned for curve points outside the prime order
	// subgroup generated by the base point.
	ErrNotInSubgroup = errors.New("point is not in the prime order subgroup")
	// ErrScalarOutOfRange is returned for scalars outside [0, order). Callers
	// must reduce external scalars with ReduceScalar.
	ErrScalarOutOfRange = errors.New("scalar out of range")
	// ErrInvalidEncoding is returned by Unmarshal on malformed input.
	ErrInvalidEncoding = errors.New("invalid point encoding")
)

// Point is an element of the prime order subgroup.
type Point interface {
	// Add returns p + q.
	Add(q Point) Point
	// Neg returns -p, that is (-x, y).
	Neg() Point
	// ScalarMult returns k·p. k must be in [0, order).
	ScalarMult(k *big.Int) (Point, error)
	// Equal reports whether p and q are the same group element.
	Equal(q Point) bool
	// IsIdentity reports whether p is the neutral element (0, 1).
	IsIdentity() bool
	// Point returns copies of the affine coordinates.
	Point() (x, y *big.Int)
	// Marshal returns the 64 byte encoding x || y, big-endian.
	Marshal() []byte
	// String returns "x,y" in decimal.
	String() string
	// Type returns the backend identifier.
	Type() string
}

// Curve is the group itself. It is the only way to build a Point, so
// malformed coordinates never reach the arithmetic.
type Curve interface {
	Type() string
	Identity() Point
	Generator() Point
	// Order returns the order of the subgroup generated by Generator.
	Order() *big.Int
	// NewPoint validates the coordinates and returns the point.
	NewPoint(x, y *big.Int) (Point, error)
	// ScalarBaseMult returns k·G.
	ScalarBaseMult(k *big.Int) (Point, error)
	// Unmarshal decodes and validates the output of Point.Marshal.
	Unmarshal(buf []byte) (Point, error)
}

// CheckScalar returns ErrScalarOutOfRange unless 0 <= k < order.
func CheckScalar(order, k *big.Int) error {
	if k == nil || k.Sign() < 0 || k.Cmp(order) >= 0 {
		return fmt.Errorf("%w: %v", ErrScalarOutOfRange, k)
	}
	return nil
}

// ReduceScalar returns k mod order, always non negative.
func ReduceScalar(order, k *big.Int) *big.Int {
	return new(big.Int).Mod(k, order)
}

// PointEC is the JSON and CBOR form of a point.
type PointEC struct {
	X *types.BigInt `json:"x" cbor:"0,keyasint"`
	Y *types.BigInt `json:"y" cbor:"1,keyasint"`
}

// EncodePoint returns the JSON form of p.
func EncodePoint(p Point) *PointEC {
	x, y := p.Point()
	return &PointEC{X: (*types.BigInt)(x), Y: (*types.BigInt)(y)}
}

// DecodePoint validates the JSON form against the curve.
func DecodePoint(curve Curve, p *PointEC) (Point, error) {
	if p == nil || p.X == nil || p.Y == nil {
		return nil, fmt.Errorf("%w: missing coordinate", ErrInvalidEncoding)
	}
	return curve.NewPoint(p.X.MathBigInt(), p.Y.MathBigInt())
}
