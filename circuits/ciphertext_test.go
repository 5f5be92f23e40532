package circuits

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/algebra/native/twistededwards"
	"github.com/consensys/gnark/test"
	qt "github.com/frankban/quicktest"

	"github.com/vocdoni/zktally/crypto/ecc/curves"
	"github.com/vocdoni/zktally/crypto/elgamal"
)

type baseMulCircuit struct {
	M        frontend.Variable
	Expected twistededwards.Point `gnark:",public"`
}

func (c *baseMulCircuit) Define(api frontend.API) error {
	curve, err := NewCurve(api)
	if err != nil {
		return err
	}
	p := BaseMul(api, curve, c.M, 32)
	api.AssertIsEqual(p.X, c.Expected.X)
	api.AssertIsEqual(p.Y, c.Expected.Y)
	return nil
}

func TestBaseMul(t *testing.T) {
	c := qt.New(t)
	curve := curves.Default()
	for _, m := range []int64{0, 1, 2, 5, 1<<32 - 1} {
		expected, err := curve.ScalarBaseMult(big.NewInt(m))
		c.Assert(err, qt.IsNil)
		assignment := &baseMulCircuit{M: m, Expected: PointFromNative(expected)}
		c.Assert(test.IsSolved(&baseMulCircuit{}, assignment, ecc.BN254.ScalarField()), qt.IsNil,
			qt.Commentf("m = %d", m))
	}

	// wider than the declared width
	expected, err := curve.ScalarBaseMult(big.NewInt(1 << 32))
	c.Assert(err, qt.IsNil)
	assignment := &baseMulCircuit{M: int64(1 << 32), Expected: PointFromNative(expected)}
	c.Assert(test.IsSolved(&baseMulCircuit{}, assignment, ecc.BN254.ScalarField()), qt.IsNotNil)

	// wrong point
	assignment = &baseMulCircuit{M: 3, Expected: PointFromNative(curve.Generator())}
	c.Assert(test.IsSolved(&baseMulCircuit{}, assignment, ecc.BN254.ScalarField()), qt.IsNotNil)
}

type encryptCircuit struct {
	Ciphertext    Ciphertext           `gnark:",public"`
	EncryptionKey twistededwards.Point `gnark:",public"`
	M             frontend.Variable
	K             frontend.Variable
	SecretKey     frontend.Variable
}

func (c *encryptCircuit) Define(api frontend.API) error {
	curve, err := NewCurve(api)
	if err != nil {
		return err
	}
	expected := new(Ciphertext).Encrypt(api, curve, c.EncryptionKey, c.K, c.M, 4)
	expected.AssertIsEqual(api, &c.Ciphertext)
	c.Ciphertext.AssertDecrypt(api, curve, c.SecretKey, c.M, 4)
	return nil
}

func TestEncryptDecrypt(t *testing.T) {
	c := qt.New(t)
	keys, err := elgamal.GenerateKey(curves.Default())
	c.Assert(err, qt.IsNil)
	placeholder := &encryptCircuit{Ciphertext: EmptyCiphertext(), EncryptionKey: Identity()}
	for _, m := range []int64{0, 1, 15} {
		k, err := elgamal.RandK(keys.Curve)
		c.Assert(err, qt.IsNil)
		ct, err := elgamal.Encrypt(keys.Curve, keys.Public, big.NewInt(m), k)
		c.Assert(err, qt.IsNil)
		assignment := &encryptCircuit{
			Ciphertext:    CiphertextFromNative(ct),
			EncryptionKey: PointFromNative(keys.Public),
			M:             m,
			K:             k,
			SecretKey:     keys.Secret,
		}
		c.Assert(test.IsSolved(placeholder, assignment, ecc.BN254.ScalarField()), qt.IsNil,
			qt.Commentf("m = %d", m))

		assignment.M = m ^ 1
		c.Assert(test.IsSolved(placeholder, assignment, ecc.BN254.ScalarField()), qt.IsNotNil,
			qt.Commentf("m = %d", m))
	}
}
