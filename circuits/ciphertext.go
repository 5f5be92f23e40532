package circuits

import (
	"fmt"
	"math/big"
	"sync"

	edbn254 "github.com/consensys/gnark-crypto/ecc/bn254/twistededwards"
	ecc_tweds "github.com/consensys/gnark-crypto/ecc/twistededwards"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/algebra/native/twistededwards"
	"github.com/consensys/gnark/std/math/bits"

	"github.com/vocdoni/zktally/crypto/ecc"
	"github.com/vocdoni/zktally/crypto/elgamal"
)

// NewCurve returns the BabyJubJub gadget over the BN254 native field.
func NewCurve(api frontend.API) (twistededwards.Curve, error) {
	return twistededwards.NewEdCurve(api, ecc_tweds.BN254)
}

// Generator returns the base point of the curve gadget.
func Generator(curve twistededwards.Curve) twistededwards.Point {
	base := curve.Params().Base
	return twistededwards.Point{X: base[0], Y: base[1]}
}

// Identity returns the neutral point (0, 1) as a witness value.
func Identity() twistededwards.Point {
	return twistededwards.Point{X: big.NewInt(0), Y: big.NewInt(1)}
}

// MaxMessageBits bounds the width of a plaintext encoded as m·G.
const MaxMessageBits = 64

var (
	baseTableOnce sync.Once
	// baseTable[i] holds 2^i·G.
	baseTable [MaxMessageBits][2]*big.Int
)

func initBaseTable() {
	p := edbn254.GetEdwardsCurve().Base
	for i := range baseTable {
		x, y := new(big.Int), new(big.Int)
		p.X.BigInt(x)
		p.Y.BigInt(y)
		baseTable[i] = [2]*big.Int{x, y}
		p.Double(&p)
	}
}

// BaseMul returns m·G, constraining m to nbBits bits. It folds the bits of m
// over a table of powers of G, so unlike ScalarMul it accepts m = 0.
func BaseMul(api frontend.API, curve twistededwards.Curve, m frontend.Variable, nbBits int) twistededwards.Point {
	if nbBits < 1 || nbBits > MaxMessageBits {
		panic(fmt.Sprintf("message width %d out of range [1, %d]", nbBits, MaxMessageBits))
	}
	baseTableOnce.Do(initBaseTable)
	mBits := bits.ToBinary(api, m, bits.WithNbDigits(nbBits))
	res := twistededwards.Point{X: 0, Y: 1}
	for i, b := range mBits {
		res = curve.Add(res, twistededwards.Point{
			X: api.Select(b, baseTable[i][0], 0),
			Y: api.Select(b, baseTable[i][1], 1),
		})
	}
	return res
}

// Ciphertext is the in-circuit ElGamal ciphertext.
type Ciphertext struct {
	C1, C2 twistededwards.Point
}

// Encrypt sets z to (k·G, k·pk + m·G) and returns z. m must fit in nbBits
// bits and k must be non-zero.
func (z *Ciphertext) Encrypt(api frontend.API, curve twistededwards.Curve, pk twistededwards.Point, k, m frontend.Variable, nbBits int) *Ciphertext {
	z.C1 = curve.ScalarMul(Generator(curve), k)
	s := curve.ScalarMul(pk, k)
	z.C2 = curve.Add(BaseMul(api, curve, m, nbBits), s)
	return z
}

// AssertIsEqual fails unless every coordinate of z and x matches.
func (z *Ciphertext) AssertIsEqual(api frontend.API, x *Ciphertext) {
	api.AssertIsEqual(z.C1.X, x.C1.X)
	api.AssertIsEqual(z.C1.Y, x.C1.Y)
	api.AssertIsEqual(z.C2.X, x.C2.X)
	api.AssertIsEqual(z.C2.Y, x.C2.Y)
}

// AssertDecrypt fails unless z.C2 - sk·z.C1 == m·G with m of nbBits bits.
func (z *Ciphertext) AssertDecrypt(api frontend.API, curve twistededwards.Curve, sk, m frontend.Variable, nbBits int) {
	s := curve.ScalarMul(z.C1, sk)
	decrypted := curve.Add(z.C2, curve.Neg(s))
	expected := BaseMul(api, curve, m, nbBits)
	api.AssertIsEqual(decrypted.X, expected.X)
	api.AssertIsEqual(decrypted.Y, expected.Y)
}

// Serialize returns c1.x, c1.y, c2.x, c2.y.
func (z *Ciphertext) Serialize() []frontend.Variable {
	return []frontend.Variable{z.C1.X, z.C1.Y, z.C2.X, z.C2.Y}
}

// PointFromNative returns p as a witness value.
func PointFromNative(p ecc.Point) twistededwards.Point {
	x, y := p.Point()
	return twistededwards.Point{X: x, Y: y}
}

// CiphertextFromNative returns ct as a witness value.
func CiphertextFromNative(ct *elgamal.Ciphertext) Ciphertext {
	return Ciphertext{C1: PointFromNative(ct.C1), C2: PointFromNative(ct.C2)}
}

// EmptyCiphertext is a placeholder with both points set to the identity.
func EmptyCiphertext() Ciphertext {
	return Ciphertext{C1: Identity(), C2: Identity()}
}
