package elgamal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/vocdoni/zktally/crypto/ecc"
	"github.com/vocdoni/zktally/crypto/ecc/curves"
)

// Ballot is the encrypted content of a vote: a single ciphertext for the
// scalar variant or one ciphertext per option for the vector variant.
type Ballot struct {
	CurveType   string        `json:"curveType"`
	Ciphertexts []*Ciphertext `json:"ciphertexts"`
}

// NewBallot wraps the ciphertexts produced on curve.
func NewBallot(curve ecc.Curve, cts []*Ciphertext) *Ballot {
	return &Ballot{CurveType: curve.Type(), Ciphertexts: cts}
}

// Curve returns the curve the ballot was encrypted on.
func (z *Ballot) Curve() (ecc.Curve, error) {
	return curves.New(z.CurveType)
}

// Validate checks the curve type, the number of ciphertexts and every point.
func (z *Ballot) Validate(expected int) error {
	curve, err := z.Curve()
	if err != nil {
		return err
	}
	if len(z.Ciphertexts) != expected {
		return fmt.Errorf("%w: ballot has %d ciphertexts, expected %d", ErrOptionCountMismatch, len(z.Ciphertexts), expected)
	}
	for i, ct := range z.Ciphertexts {
		if err := ct.Validate(curve); err != nil {
			return fmt.Errorf("ciphertext %d: %w", i, err)
		}
	}
	return nil
}

// BigInts returns the coordinates of every ciphertext in option order,
// c1.x, c1.y, c2.x, c2.y for each.
func (z *Ballot) BigInts() []*big.Int {
	list := make([]*big.Int, 0, 4*len(z.Ciphertexts))
	for _, ct := range z.Ciphertexts {
		list = append(list, ct.BigInts()...)
	}
	return list
}

// Serialize returns the concatenation of the serialized ciphertexts.
func (z *Ballot) Serialize() []byte {
	var buf bytes.Buffer
	for _, ct := range z.Ciphertexts {
		buf.Write(ct.Serialize())
	}
	return buf.Bytes()
}

// DeserializeBallot is the inverse of Serialize.
func DeserializeBallot(curve ecc.Curve, data []byte) (*Ballot, error) {
	if len(data) == 0 || len(data)%SizeCiphertext != 0 {
		return nil, fmt.Errorf("%w: invalid ballot length %d", ErrInvalidCiphertext, len(data))
	}
	z := &Ballot{CurveType: curve.Type()}
	for i := 0; i < len(data); i += SizeCiphertext {
		ct, err := DeserializeCiphertext(curve, data[i:i+SizeCiphertext])
		if err != nil {
			return nil, fmt.Errorf("ciphertext %d: %w", i/SizeCiphertext, err)
		}
		z.Ciphertexts = append(z.Ciphertexts, ct)
	}
	return z, nil
}

// String returns the JSON form of the Ballot.
func (z *Ballot) String() string {
	b, err := json.Marshal(z)
	if err != nil {
		return ""
	}
	return string(b)
}
