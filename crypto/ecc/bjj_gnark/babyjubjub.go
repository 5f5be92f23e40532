// Package bjj implements ecc.Curve for BabyJubJub on top of gnark-crypto, in
// reduced twisted Edwards form. This is the form the circuits work with, so
// it is the default backend.
package bjj

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	babyjubjub "github.com/consensys/gnark-crypto/ecc/bn254/twistededwards"
	"github.com/fxamacker/cbor/v2"

	"github.com/vocdoni/zktally/crypto/ecc"
	"github.com/vocdoni/zktally/crypto/ecc/format"
)

const CurveType = "bjj_gnark"

var params = babyjubjub.GetEdwardsCurve()

// Curve is the BabyJubJub group backed by gnark-crypto.
type Curve struct{}

// New returns the curve.
func New() ecc.Curve {
	return Curve{}
}

func (Curve) Type() string {
	return CurveType
}

func (Curve) Identity() ecc.Point {
	p := &BJJ{}
	p.inner.X.SetZero()
	p.inner.Y.SetOne()
	return p
}

func (Curve) Generator() ecc.Point {
	p := &BJJ{}
	p.inner.Set(&params.Base)
	return p
}

func (Curve) Order() *big.Int {
	return new(big.Int).Set(&params.Order)
}

// NewPoint builds a point from reduced twisted Edwards coordinates.
func (Curve) NewPoint(x, y *big.Int) (ecc.Point, error) {
	if !format.InField(x) || !format.InField(y) {
		return nil, ecc.ErrInvalidCoordinate
	}
	p := &BJJ{}
	p.inner.X.SetBigInt(x)
	p.inner.Y.SetBigInt(y)
	if !p.inner.IsOnCurve() {
		return nil, fmt.Errorf("%w: (%s, %s)", ecc.ErrNotOnCurve, x, y)
	}
	var check babyjubjub.PointAffine
	check.ScalarMultiplication(&p.inner, &params.Order)
	if !check.IsZero() {
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

// BJJ is an affine BabyJubJub point. The zero value is not a valid point;
// build points through Curve.
type BJJ struct {
	inner babyjubjub.PointAffine
}

// affine returns q as a gnark-crypto point. Points of other backends are
// converted through their coordinates, which share the same form.
func affine(q ecc.Point) *babyjubjub.PointAffine {
	if b, ok := q.(*BJJ); ok {
		return &b.inner
	}
	x, y := q.Point()
	var p babyjubjub.PointAffine
	p.X.SetBigInt(x)
	p.Y.SetBigInt(y)
	return &p
}

func (p *BJJ) Add(q ecc.Point) ecc.Point {
	r := &BJJ{}
	r.inner.Add(&p.inner, affine(q))
	return r
}

func (p *BJJ) Neg() ecc.Point {
	r := &BJJ{}
	r.inner.Neg(&p.inner)
	return r
}

func (p *BJJ) ScalarMult(k *big.Int) (ecc.Point, error) {
	if err := ecc.CheckScalar(&params.Order, k); err != nil {
		return nil, err
	}
	r := &BJJ{}
	r.inner.ScalarMultiplication(&p.inner, k)
	return r, nil
}

func (p *BJJ) Equal(q ecc.Point) bool {
	return p.inner.Equal(affine(q))
}

func (p *BJJ) IsIdentity() bool {
	return p.inner.IsZero()
}

func (p *BJJ) Point() (*big.Int, *big.Int) {
	x, y := new(big.Int), new(big.Int)
	p.inner.X.BigInt(x)
	p.inner.Y.BigInt(y)
	return x, y
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

// Elements returns the coordinates as field elements, the way circuit
// witnesses and native MiMC consume them.
func (p *BJJ) Elements() (fr.Element, fr.Element) {
	return p.inner.X, p.inner.Y
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
	p.inner.Set(&q.(*BJJ).inner)
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
	p.inner.Set(&q.(*BJJ).inner)
	return nil
}
