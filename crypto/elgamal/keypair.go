package elgamal

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/vocdoni/zktally/crypto/ecc"
	"github.com/vocdoni/zktally/util"
)

// KeyPair is the poll encryption key. Secret stays with the authority; only
// Public is ever published or encoded.
type KeyPair struct {
	Curve  ecc.Curve
	Secret *big.Int
	Public ecc.Point
}

// GenerateKey creates a key pair with a secret uniform in [1, order).
func GenerateKey(curve ecc.Curve) (*KeyPair, error) {
	sk, err := util.RandomBigInt(curve.Order())
	if err != nil {
		return nil, fmt.Errorf("failed to generate secret key: %w", err)
	}
	return NewKeyPair(curve, sk)
}

// NewKeyPair rebuilds a key pair from a stored secret.
func NewKeyPair(curve ecc.Curve, secret *big.Int) (*KeyPair, error) {
	if err := ecc.CheckScalar(curve.Order(), secret); err != nil || secret.Sign() == 0 {
		return nil, fmt.Errorf("secret key: %w", ecc.ErrScalarOutOfRange)
	}
	pk, err := curve.ScalarBaseMult(secret)
	if err != nil {
		return nil, err
	}
	return &KeyPair{Curve: curve, Secret: new(big.Int).Set(secret), Public: pk}, nil
}

// MarshalJSON only encodes the public key.
func (kp *KeyPair) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		CurveType string       `json:"curveType"`
		PublicKey *ecc.PointEC `json:"publicKey"`
	}{
		CurveType: kp.Curve.Type(),
		PublicKey: ecc.EncodePoint(kp.Public),
	})
}

func (kp *KeyPair) String() string {
	return fmt.Sprintf("{curve: %s, public: %s}", kp.Curve.Type(), kp.Public)
}
