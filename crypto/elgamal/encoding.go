package elgamal

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/vocdoni/zktally/crypto/ecc"
	"github.com/vocdoni/zktally/crypto/ecc/curves"
)

// ciphertextJSON is the wire form of a Ciphertext.
type ciphertextJSON struct {
	C1 *ecc.PointEC `json:"c1"`
	C2 *ecc.PointEC `json:"c2"`
}

func (cj *ciphertextJSON) decode(curve ecc.Curve) (*Ciphertext, error) {
	c1, err := ecc.DecodePoint(curve, cj.C1)
	if err != nil {
		return nil, fmt.Errorf("c1: %w", err)
	}
	c2, err := ecc.DecodePoint(curve, cj.C2)
	if err != nil {
		return nil, fmt.Errorf("c2: %w", err)
	}
	return &Ciphertext{C1: c1, C2: c2}, nil
}

// MarshalJSON encodes both points by their coordinates.
func (z *Ciphertext) MarshalJSON() ([]byte, error) {
	if z.C1 == nil || z.C2 == nil {
		return nil, ErrInvalidCiphertext
	}
	return json.Marshal(&ciphertextJSON{C1: ecc.EncodePoint(z.C1), C2: ecc.EncodePoint(z.C2)})
}

// UnmarshalJSON decodes and validates both points. Points are built on the
// curve of C1 when already set, otherwise on the default curve.
func (z *Ciphertext) UnmarshalJSON(data []byte) error {
	var cj ciphertextJSON
	if err := json.Unmarshal(data, &cj); err != nil {
		return fmt.Errorf("failed to unmarshal ciphertext: %w", err)
	}
	ct, err := cj.decode(z.curve())
	if err != nil {
		return err
	}
	*z = *ct
	return nil
}

func (z *Ciphertext) curve() ecc.Curve {
	if z.C1 != nil {
		if curve, err := curves.New(z.C1.Type()); err == nil {
			return curve
		}
	}
	return curves.Default()
}

// MarshalCBOR encodes the ciphertext as its serialized bytes.
func (z *Ciphertext) MarshalCBOR() ([]byte, error) {
	if z.C1 == nil || z.C2 == nil {
		return nil, ErrInvalidCiphertext
	}
	return cbor.Marshal(z.Serialize())
}

// UnmarshalCBOR decodes and validates both points.
func (z *Ciphertext) UnmarshalCBOR(data []byte) error {
	var raw []byte
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to unmarshal ciphertext: %w", err)
	}
	ct, err := DeserializeCiphertext(z.curve(), raw)
	if err != nil {
		return err
	}
	*z = *ct
	return nil
}

// UnmarshalJSON decodes the ballot on the curve it names.
func (z *Ballot) UnmarshalJSON(data []byte) error {
	var tmp struct {
		CurveType   string            `json:"curveType"`
		Ciphertexts []*ciphertextJSON `json:"ciphertexts"`
	}
	if err := json.Unmarshal(data, &tmp); err != nil {
		return fmt.Errorf("failed to unmarshal ballot: %w", err)
	}
	curve, err := curves.New(tmp.CurveType)
	if err != nil {
		return err
	}
	cts := make([]*Ciphertext, len(tmp.Ciphertexts))
	for i, cj := range tmp.Ciphertexts {
		if cj == nil {
			return fmt.Errorf("ciphertext %d: %w", i, ErrInvalidCiphertext)
		}
		if cts[i], err = cj.decode(curve); err != nil {
			return fmt.Errorf("ciphertext %d: %w", i, err)
		}
	}
	z.CurveType = tmp.CurveType
	z.Ciphertexts = cts
	return nil
}

// MarshalCBOR encodes the curve type and the serialized ciphertexts.
func (z *Ballot) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(struct {
		CurveType string `cbor:"0,keyasint"`
		Data      []byte `cbor:"1,keyasint"`
	}{z.CurveType, z.Serialize()})
}

// UnmarshalCBOR decodes and validates the ballot.
func (z *Ballot) UnmarshalCBOR(data []byte) error {
	var tmp struct {
		CurveType string `cbor:"0,keyasint"`
		Data      []byte `cbor:"1,keyasint"`
	}
	if err := cbor.Unmarshal(data, &tmp); err != nil {
		return err
	}
	curve, err := curves.New(tmp.CurveType)
	if err != nil {
		return err
	}
	b, err := DeserializeBallot(curve, tmp.Data)
	if err != nil {
		return err
	}
	*z = *b
	return nil
}
