package elgamal

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/vocdoni/arbo"

	"github.com/vocdoni/zktally/crypto/ecc"
)

// sizes in bytes needed to serialize a Ciphertext
const (
	sizeCoord      = 32
	sizePoint      = 2 * sizeCoord
	SizeCiphertext = 2 * sizePoint
)

// Ciphertext is an ElGamal encryption (c1, c2) = (k·G, k·PK + m·G). It never
// changes after creation; Add returns a new value.
type Ciphertext struct {
	C1 ecc.Point
	C2 ecc.Point
}

// NewCiphertext returns the encryption of zero with zero randomness, the
// neutral element of ciphertext addition.
func NewCiphertext(curve ecc.Curve) *Ciphertext {
	return &Ciphertext{C1: curve.Identity(), C2: curve.Identity()}
}

// Add returns z + x, component wise.
func (z *Ciphertext) Add(x *Ciphertext) *Ciphertext {
	return &Ciphertext{C1: z.C1.Add(x.C1), C2: z.C2.Add(x.C2)}
}

// Equal reports whether both components are equal.
func (z *Ciphertext) Equal(x *Ciphertext) bool {
	return z.C1.Equal(x.C1) && z.C2.Equal(x.C2)
}

// Validate checks both components are set and are points of the subgroup of
// curve.
func (z *Ciphertext) Validate(curve ecc.Curve) error {
	if z == nil || z.C1 == nil || z.C2 == nil {
		return fmt.Errorf("%w: missing point", ErrInvalidCiphertext)
	}
	for i, p := range []ecc.Point{z.C1, z.C2} {
		if _, err := curve.NewPoint(p.Point()); err != nil {
			return fmt.Errorf("%w: c%d: %w", ErrInvalidCiphertext, i+1, err)
		}
	}
	return nil
}

// BigInts returns [c1.x, c1.y, c2.x, c2.y].
func (z *Ciphertext) BigInts() []*big.Int {
	c1x, c1y := z.C1.Point()
	c2x, c2y := z.C2.Point()
	return []*big.Int{c1x, c1y, c2x, c2y}
}

// Serialize returns 4*32 bytes with c1.x, c1.y, c2.x, c2.y, each as
// little-endian.
func (z *Ciphertext) Serialize() []byte {
	var buf bytes.Buffer
	for _, bi := range z.BigInts() {
		buf.Write(arbo.BigIntToBytes(sizeCoord, bi))
	}
	return buf.Bytes()
}

// DeserializeCiphertext is the inverse of Serialize. Both points are
// validated against curve.
func DeserializeCiphertext(curve ecc.Curve, data []byte) (*Ciphertext, error) {
	if len(data) != SizeCiphertext {
		return nil, fmt.Errorf("%w: got %d bytes, expected %d", ErrInvalidCiphertext, len(data), SizeCiphertext)
	}
	coord := func(i int) *big.Int {
		return arbo.BytesToBigInt(data[i*sizeCoord : (i+1)*sizeCoord])
	}
	c1, err := curve.NewPoint(coord(0), coord(1))
	if err != nil {
		return nil, fmt.Errorf("%w: c1: %w", ErrInvalidCiphertext, err)
	}
	c2, err := curve.NewPoint(coord(2), coord(3))
	if err != nil {
		return nil, fmt.Errorf("%w: c2: %w", ErrInvalidCiphertext, err)
	}
	return &Ciphertext{C1: c1, C2: c2}, nil
}

// String returns a string representation of the Ciphertext.
func (z *Ciphertext) String() string {
	if z == nil || z.C1 == nil || z.C2 == nil {
		return "{C1: nil, C2: nil}"
	}
	return fmt.Sprintf("{C1: %s, C2: %s}", z.C1, z.C2)
}
