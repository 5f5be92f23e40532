package census

import (
	"fmt"
	"math/big"

	"github.com/vocdoni/arbo"

	"github.com/vocdoni/zktally/types"
)

// Proof is the membership proof of a census member. Siblings are packed the
// way arbo returns them.
type Proof struct {
	Root     types.HexBytes `json:"root"`
	Key      types.HexBytes `json:"key"`
	Value    types.HexBytes `json:"value"`
	Siblings types.HexBytes `json:"siblings"`
	Index    uint64         `json:"index"`
}

// Verify checks the proof against its root.
func (p *Proof) Verify() bool {
	valid, err := arbo.CheckProof(HashFunction, p.Key, p.Value, p.Root, p.Siblings)
	if err != nil {
		return false
	}
	return valid
}

// Commitment returns the identity commitment stored in the leaf.
func (p *Proof) Commitment() *big.Int {
	return arbo.BytesToBigInt(p.Value)
}

// RootBigInt returns the root as a field element.
func (p *Proof) RootBigInt() *big.Int {
	return arbo.BytesToBigInt(p.Root)
}

// CircuitSiblings unpacks the siblings and pads them with zeros up to
// CensusTreeMaxLevels, the layout the eligibility relation expects.
func (p *Proof) CircuitSiblings() ([types.CensusTreeMaxLevels]*big.Int, error) {
	var padded [types.CensusTreeMaxLevels]*big.Int
	unpacked, err := arbo.UnpackSiblings(HashFunction, p.Siblings)
	if err != nil {
		return padded, fmt.Errorf("cannot unpack siblings: %w", err)
	}
	if len(unpacked) > types.CensusTreeMaxLevels {
		return padded, fmt.Errorf("too many siblings: %d", len(unpacked))
	}
	for i := range padded {
		if i < len(unpacked) {
			padded[i] = arbo.BytesToBigInt(unpacked[i])
		} else {
			padded[i] = big.NewInt(0)
		}
	}
	return padded, nil
}

// VerifyProof verifies a packed Merkle proof for the given leaf.
func VerifyProof(key, value, root, siblings []byte) bool {
	return (&Proof{Root: root, Key: key, Value: value, Siblings: siblings}).Verify()
}

// RootToBigInt converts a root as stored by arbo into a field element.
func RootToBigInt(root []byte) *big.Int {
	return arbo.BytesToBigInt(root)
}
