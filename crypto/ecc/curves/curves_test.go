package curves

import (
	"errors"
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/vocdoni/zktally/crypto/ecc"
)

func TestNew(t *testing.T) {
	c := qt.New(t)
	for _, ct := range Curves() {
		curve, err := New(ct)
		c.Assert(err, qt.IsNil)
		c.Assert(curve.Type(), qt.Equals, ct)
	}
	_, err := New("secp256k1")
	c.Assert(err, qt.ErrorMatches, "unsupported curve type: secp256k1")
}

// TestGroupLaws runs the same checks on every backend.
func TestGroupLaws(t *testing.T) {
	for _, ct := range Curves() {
		t.Run(ct, func(t *testing.T) {
			c := qt.New(t)
			curve, err := New(ct)
			c.Assert(err, qt.IsNil)
			g := curve.Generator()
			id := curve.Identity()

			c.Assert(id.IsIdentity(), qt.IsTrue)
			c.Assert(g.Add(id).Equal(g), qt.IsTrue)
			c.Assert(g.Add(g.Neg()).IsIdentity(), qt.IsTrue)

			x, y := g.Point()
			nx, ny := g.Neg().Point()
			c.Assert(new(big.Int).Add(x, nx).Cmp(fieldP), qt.Equals, 0)
			c.Assert(ny.Cmp(y), qt.Equals, 0)

			three, err := curve.ScalarBaseMult(big.NewInt(3))
			c.Assert(err, qt.IsNil)
			c.Assert(three.Equal(g.Add(g).Add(g)), qt.IsTrue)

			zero, err := curve.ScalarBaseMult(big.NewInt(0))
			c.Assert(err, qt.IsNil)
			c.Assert(zero.IsIdentity(), qt.IsTrue)

			_, err = curve.ScalarBaseMult(curve.Order())
			c.Assert(errors.Is(err, ecc.ErrScalarOutOfRange), qt.IsTrue)
			_, err = g.ScalarMult(big.NewInt(-1))
			c.Assert(errors.Is(err, ecc.ErrScalarOutOfRange), qt.IsTrue)

			orderMinusOne := new(big.Int).Sub(curve.Order(), big.NewInt(1))
			last, err := curve.ScalarBaseMult(orderMinusOne)
			c.Assert(err, qt.IsNil)
			c.Assert(last.Equal(g.Neg()), qt.IsTrue)
		})
	}
}

func TestNewPointValidation(t *testing.T) {
	for _, ct := range Curves() {
		t.Run(ct, func(t *testing.T) {
			c := qt.New(t)
			curve, err := New(ct)
			c.Assert(err, qt.IsNil)

			x, y := curve.Generator().Point()
			p, err := curve.NewPoint(x, y)
			c.Assert(err, qt.IsNil)
			c.Assert(p.Equal(curve.Generator()), qt.IsTrue)

			_, err = curve.NewPoint(x, new(big.Int).Add(y, big.NewInt(1)))
			c.Assert(errors.Is(err, ecc.ErrNotOnCurve), qt.IsTrue)

			_, err = curve.NewPoint(fieldP, y)
			c.Assert(errors.Is(err, ecc.ErrInvalidCoordinate), qt.IsTrue)

			// (0, -1) is on the curve with order 2, outside the subgroup
			minusOne := new(big.Int).Sub(fieldP, big.NewInt(1))
			_, err = curve.NewPoint(big.NewInt(0), minusOne)
			c.Assert(errors.Is(err, ecc.ErrNotInSubgroup), qt.IsTrue)

			q, err := curve.Unmarshal(p.Marshal())
			c.Assert(err, qt.IsNil)
			c.Assert(q.Equal(p), qt.IsTrue)
			_, err = curve.Unmarshal(p.Marshal()[:10])
			c.Assert(errors.Is(err, ecc.ErrInvalidEncoding), qt.IsTrue)
		})
	}
}

// TestBackendsAgree checks both implementations produce the same coordinates.
func TestBackendsAgree(t *testing.T) {
	c := qt.New(t)
	gnark, _ := New(CurveTypeBabyJubJubGnark)
	iden3, _ := New(CurveTypeBabyJubJubIden3)

	c.Assert(gnark.Order().Cmp(iden3.Order()), qt.Equals, 0)
	c.Assert(gnark.Generator().String(), qt.Equals, iden3.Generator().String())
	c.Assert(gnark.Identity().String(), qt.Equals, iden3.Identity().String())

	scalars := []*big.Int{big.NewInt(1), big.NewInt(42), big.NewInt(123456789)}
	for _, k := range scalars {
		a, err := gnark.ScalarBaseMult(k)
		c.Assert(err, qt.IsNil)
		b, err := iden3.ScalarBaseMult(k)
		c.Assert(err, qt.IsNil)
		c.Assert(a.String(), qt.Equals, b.String())
		c.Assert(a.Marshal(), qt.DeepEquals, b.Marshal())

		a2, err := a.ScalarMult(big.NewInt(88))
		c.Assert(err, qt.IsNil)
		b2, err := b.ScalarMult(big.NewInt(88))
		c.Assert(err, qt.IsNil)
		c.Assert(a2.String(), qt.Equals, b2.String())

		c.Assert(a.Add(a2).String(), qt.Equals, b.Add(b2).String())
		c.Assert(a.Neg().String(), qt.Equals, b.Neg().String())
		// mixed operands go through the coordinates
		c.Assert(a.Add(b2).Equal(b.Add(a2)), qt.IsTrue)
	}
}

func TestValueSemantics(t *testing.T) {
	c := qt.New(t)
	curve := Default()
	g := curve.Generator()
	before := g.String()
	_ = g.Add(g)
	_ = g.Neg()
	_, _ = g.ScalarMult(big.NewInt(5))
	c.Assert(g.String(), qt.Equals, before)
	c.Assert(curve.Generator().Equal(g), qt.IsTrue)
}

var fieldP, _ = new(big.Int).SetString("21888242871839275222246405745257275088548364400416034343698204186575808495617", 10)
