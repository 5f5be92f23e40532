// Package bjj implements ecc.Curve for BabyJubJub on top of go-iden3-crypto.
// iden3 works in twisted Edwards form; coordinates crossing this package are
// converted so that both backends expose the same reduced form.
package bjj

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
	babyjubjub "github.com/iden3/go-iden3-crypto/babyjub"

	"github.com/vocdoni/zktally/crypto/ecc"
	"github.com/vocdoni/zktally/crypto/ecc/format"
)

const CurveType = "bjj_iden3"

// Curve is the BabyJubJub group backed by go-iden3-crypto.
type Curve struct{}

// New returns the curve.
func New() ecc.Curve {
	return Curve{}
}

func (Curve) Type() string {
	return CurveType
}

func (Curve) Identity() ecc.Point {
	return &BJJ{inner: babyjubjub.NewPoint()}
}

func (Curve) Generator() ecc.Point {
	return &BJJ{inner: copyPoint(babyjubjub.B8)}
}

func (Curve) Order() *big.Int {
	return new(big.Int).Set(babyjubjub.SubOrder)
}

// NewPoint builds a point from reduced twisted Edwards coordinates.
func (Curve) NewPoint(x, y *big.Int) (ecc.Point, error) {
	if !format.InField(x) || !format.InField(y) {
		return nil, ecc.ErrInvalidCoordinate
	}
	xTE, yTE := format.FromRTEtoTE(x, y)
	p := &BJJ{inner: &babyjubjub.Point{X: xTE, Y: yTE}}
	if !p.inner.InCurve() {
		return nil, fmt.Errorf("%w: (%s, %s)", ecc.ErrNotOnCurve, x, y)
	}
	if !p.inner.InSubGroup() {
		return nil, fmt.Errorf("%w: (%s, %s)", ecc.ErrNotInSubgroup, x, y)
	}
	return p, nil
}

func (c Curve) ScalarBaseMult(k *big.Int) (ecc.Point, error) {
	return c.Generator().ScalarMult(k)
}

func (c Curve) Unmarshal(buf []byte) (ecc.Point, error) {
	x, y, err := format.Unmarshal(buf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ecc.ErrInvalidEncoding, err)
	}
	return c.NewPoint(x, y)
}

// BJJ is a BabyJubJub point stored in twisted Edwards form.
type BJJ struct {
	inner *babyjubjub.Point
}

func copyPoint(p *babyjubjub.Point) *babyjubjub.Point {
	return &babyjubjub.Point{X: new(big.Int).Set(p.X), Y: new(big.Int).Set(p.Y)}
}

// teForm returns q in twisted Edwards form, converting points of other
// backends through their coordinates.
func teForm(q ecc.Point) *babyjubjub.Point {
	if b, ok := q.(*BJJ); ok {
		return b.inner
	}
	x, y := format.FromRTEtoTE(q.Point())
	return &babyjubjub.Point{X: x, Y: y}
}

func (p *BJJ) Add(q ecc.Point) ecc.Point {
	sum := babyjubjub.NewPoint().Projective().Add(p.inner.Projective(), teForm(q).Projective())
	return &BJJ{inner: sum.Affine()}
}

func (p *BJJ) Neg() ecc.Point {
	x := new(big.Int).Neg(p.inner.X)
	x.Mod(x, format.BaseField())
	return &BJJ{inner: &babyjubjub.Point{X: x, Y: new(big.Int).Set(p.inner.Y)}}
}

func (p *BJJ) ScalarMult(k *big.Int) (ecc.Point, error) {
	if err := ecc.CheckScalar(babyjubjub.SubOrder, k); err != nil {
		return nil, err
	}
	return &BJJ{inner: babyjubjub.NewPoint().Mul(k, p.inner)}, nil
}

func (p *BJJ) Equal(q ecc.Point) bool {
	o := teForm(q)
	return p.inner.X.Cmp(o.X) == 0 && p.inner.Y.Cmp(o.Y) == 0
}

func (p *BJJ) IsIdentity() bool {
	return p.inner.X.Sign() == 0 && p.inner.Y.Cmp(big.NewInt(1)) == 0
}

// Point returns the reduced twisted Edwards coordinates.
func (p *BJJ) Point() (*big.Int, *big.Int) {
	return format.FromTEtoRTE(p.inner.X, p.inner.Y)
}

// TEPoint returns the twisted Edwards coordinates, as used by iden3 tools.
func (p *BJJ) TEPoint() (*big.Int, *big.Int) {
	return new(big.Int).Set(p.inner.X), new(big.Int).Set(p.inner.Y)
}

func (p *BJJ) Marshal() []byte {
	return format.Marshal(p.Point())
}

func (p *BJJ) String() string {
	x, y := p.Point()
	return fmt.Sprintf("%s,%s", x, y)
}

func (*BJJ) Type() string {
	return CurveType
}

func (p *BJJ) MarshalJSON() ([]byte, error) {
	return json.Marshal(ecc.EncodePoint(p))
}

// UnmarshalJSON decodes and validates a point.
func (p *BJJ) UnmarshalJSON(buf []byte) error {
	var pe ecc.PointEC
	if err := json.Unmarshal(buf, &pe); err != nil {
		return err
	}
	q, err := ecc.DecodePoint(Curve{}, &pe)
	if err != nil {
		return err
	}
	p.inner = q.(*BJJ).inner
	return nil
}

func (p *BJJ) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(p.Marshal())
}

// UnmarshalCBOR decodes and validates a point.
func (p *BJJ) UnmarshalCBOR(buf []byte) error {
	var raw []byte
	if err := cbor.Unmarshal(buf, &raw); err != nil {
		return err
	}
	q, err := Curve{}.Unmarshal(raw)
	if err != nil {
		return err
	}
	p.inner = q.(*BJJ).inner
	return nil
}
