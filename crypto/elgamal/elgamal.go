// Package elgamal implements additively homomorphic ElGamal over an ecc.Curve:
// messages are encoded as m·G, so adding ciphertexts adds the plaintexts and
// decryption ends with a bounded search over small counts.
package elgamal

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/vocdoni/zktally/crypto/ecc"
	"github.com/vocdoni/zktally/util"
)

var (
	// ErrInvalidChoice is returned for choices outside the option range and
	// for selections that are not one-hot.
	ErrInvalidChoice = errors.New("invalid choice")
	// ErrOptionCountMismatch is returned when the number of ciphertexts,
	// selections or randomness values does not match the option count.
	ErrOptionCountMismatch = errors.New("option count mismatch")
	// ErrInvalidCiphertext is returned for nil or malformed ciphertexts.
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	// ErrInvalidPublicKey is returned for a missing or identity public key.
	ErrInvalidPublicKey = errors.New("invalid public key")
	// ErrDecryptionOutOfRange is returned when no count in [0, upperBound]
	// matches the decrypted point. It means wrong key material, a corrupted
	// aggregate or a bound too small, never zero votes.
	ErrDecryptionOutOfRange = errors.New("decrypted value out of range")
)

// RandK draws encryption randomness uniformly in [1, order).
func RandK(curve ecc.Curve) (*big.Int, error) {
	k, err := util.RandomBigInt(curve.Order())
	if err != nil {
		return nil, fmt.Errorf("failed to generate random k: %w", err)
	}
	return k, nil
}

func checkPublicKey(pk ecc.Point) error {
	if pk == nil || pk.IsIdentity() {
		return ErrInvalidPublicKey
	}
	return nil
}

// Encrypt returns (k·G, k·pk + msg·G). Both msg and k must be already reduced
// modulo the group order, and k must not be zero.
func Encrypt(curve ecc.Curve, pk ecc.Point, msg, k *big.Int) (*Ciphertext, error) {
	if err := checkPublicKey(pk); err != nil {
		return nil, err
	}
	if err := ecc.CheckScalar(curve.Order(), msg); err != nil {
		return nil, fmt.Errorf("message: %w", err)
	}
	if err := ecc.CheckScalar(curve.Order(), k); err != nil || k.Sign() == 0 {
		return nil, fmt.Errorf("randomness: %w", ecc.ErrScalarOutOfRange)
	}
	c1, err := curve.ScalarBaseMult(k)
	if err != nil {
		return nil, err
	}
	s, err := pk.ScalarMult(k)
	if err != nil {
		return nil, err
	}
	m, err := curve.ScalarBaseMult(msg)
	if err != nil {
		return nil, err
	}
	return &Ciphertext{C1: c1, C2: m.Add(s)}, nil
}

// EncryptChoice encrypts the index of the chosen option as a single
// ciphertext. The choice must be in [0, numOptions). If k is nil a fresh one
// is drawn.
func EncryptChoice(curve ecc.Curve, pk ecc.Point, choice, numOptions int, k *big.Int) (*Ciphertext, *big.Int, error) {
	if numOptions < 1 {
		return nil, nil, fmt.Errorf("%w: %d options", ErrOptionCountMismatch, numOptions)
	}
	if choice < 0 || choice >= numOptions {
		return nil, nil, fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidChoice, choice, numOptions)
	}
	var err error
	if k == nil {
		if k, err = RandK(curve); err != nil {
			return nil, nil, err
		}
	}
	ct, err := Encrypt(curve, pk, big.NewInt(int64(choice)), k)
	if err != nil {
		return nil, nil, err
	}
	return ct, k, nil
}

// OneHot returns the selection vector of length n with a single 1 at choice.
func OneHot(choice, n int) []int {
	v := make([]int, n)
	if choice >= 0 && choice < n {
		v[choice] = 1
	}
	return v
}

// CheckOneHot returns ErrInvalidChoice unless every entry is 0 or 1 and
// exactly one is set.
func CheckOneHot(selection []int) error {
	sum := 0
	for i, v := range selection {
		if v != 0 && v != 1 {
			return fmt.Errorf("%w: entry %d is %d", ErrInvalidChoice, i, v)
		}
		sum += v
	}
	if sum != 1 {
		return fmt.Errorf("%w: %d options selected", ErrInvalidChoice, sum)
	}
	return nil
}

// EncryptOneHot encrypts every entry of a one-hot selection under its own
// randomness. If ks is nil fresh values are drawn.
func EncryptOneHot(curve ecc.Curve, pk ecc.Point, selection []int, ks []*big.Int) ([]*Ciphertext, []*big.Int, error) {
	if err := CheckOneHot(selection); err != nil {
		return nil, nil, err
	}
	if ks == nil {
		ks = make([]*big.Int, len(selection))
		for i := range ks {
			k, err := RandK(curve)
			if err != nil {
				return nil, nil, err
			}
			ks[i] = k
		}
	}
	if len(ks) != len(selection) {
		return nil, nil, fmt.Errorf("%w: %d randomness values for %d options", ErrOptionCountMismatch, len(ks), len(selection))
	}
	cts := make([]*Ciphertext, len(selection))
	for i, v := range selection {
		ct, err := Encrypt(curve, pk, big.NewInt(int64(v)), ks[i])
		if err != nil {
			return nil, nil, fmt.Errorf("option %d: %w", i, err)
		}
		cts[i] = ct
	}
	return cts, ks, nil
}

// DecryptPoint returns M = c2 + neg(sk·c1), the plaintext encoded as a point.
func DecryptPoint(sk *big.Int, ct *Ciphertext) (ecc.Point, error) {
	if ct == nil || ct.C1 == nil || ct.C2 == nil {
		return nil, ErrInvalidCiphertext
	}
	s, err := ct.C1.ScalarMult(sk)
	if err != nil {
		return nil, fmt.Errorf("secret key: %w", err)
	}
	return ct.C2.Add(s.Neg()), nil
}

// BoundedLog returns the first t in [0, upperBound], bound included, such
// that t·G == m. The search walks t·G by repeated addition of G and fails
// with ErrDecryptionOutOfRange when it runs past the bound.
func BoundedLog(curve ecc.Curve, m ecc.Point, upperBound uint64) (uint64, error) {
	g := curve.Generator()
	acc := curve.Identity()
	for t := uint64(0); ; t++ {
		if acc.Equal(m) {
			return t, nil
		}
		if t == upperBound {
			break
		}
		acc = acc.Add(g)
	}
	return 0, fmt.Errorf("%w: no value in [0, %d]", ErrDecryptionOutOfRange, upperBound)
}

// Decrypt recovers a small plaintext from a ciphertext.
func Decrypt(curve ecc.Curve, sk *big.Int, ct *Ciphertext, upperBound uint64) (uint64, error) {
	m, err := DecryptPoint(sk, ct)
	if err != nil {
		return 0, err
	}
	return BoundedLog(curve, m, upperBound)
}

// CheckK reports whether c1 == k·G, that is whether k produced the
// ciphertext, without decrypting it.
func CheckK(curve ecc.Curve, ct *Ciphertext, k *big.Int) bool {
	kG, err := curve.ScalarBaseMult(k)
	if err != nil {
		return false
	}
	return kG.Equal(ct.C1)
}
