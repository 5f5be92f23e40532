package types

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/zktally/util"
)

// PollIDLen is the length in bytes of a marshaled PollID.
const PollIDLen = 32

// PollID identifies a poll. It is composed of:
// - ChainID (4 bytes)
// - Organizer address (20 bytes)
// - Nonce (8 bytes)
type PollID struct {
	Organizer common.Address
	Nonce     uint64
	ChainID   uint32
}

// Marshal encodes the PollID into its 32 byte form.
func (p *PollID) Marshal() []byte {
	id := make([]byte, PollIDLen)
	binary.BigEndian.PutUint32(id[:4], p.ChainID)
	copy(id[4:24], p.Organizer.Bytes())
	binary.BigEndian.PutUint64(id[24:], p.Nonce)
	return id
}

// Unmarshal decodes the 32 byte form of a PollID.
func (p *PollID) Unmarshal(data []byte) error {
	if len(data) != PollIDLen {
		return fmt.Errorf("invalid poll ID length: %d", len(data))
	}
	p.ChainID = binary.BigEndian.Uint32(data[:4])
	p.Organizer = common.BytesToAddress(data[4:24])
	p.Nonce = binary.BigEndian.Uint64(data[24:])
	return nil
}

// MarshalBinary implements the BinaryMarshaler interface
func (p *PollID) MarshalBinary() ([]byte, error) {
	return p.Marshal(), nil
}

// UnmarshalBinary implements the BinaryUnmarshaler interface
func (p *PollID) UnmarshalBinary(data []byte) error {
	return p.Unmarshal(data)
}

// String returns the hex form of the marshaled poll ID.
func (p *PollID) String() string {
	return hex.EncodeToString(p.Marshal())
}

// Context returns the poll context used to derive nullifiers: the poll ID
// read as a big-endian integer and reduced into the BN254 scalar field.
func (p *PollID) Context() *big.Int {
	return PollContext(p.Marshal())
}

// PollContext reduces a marshaled poll ID into the BN254 scalar field.
func PollContext(pollID []byte) *big.Int {
	return util.BigToFF(new(big.Int).SetBytes(pollID))
}

// ParsePollID decodes a hex encoded poll ID.
func ParsePollID(s string) (*PollID, error) {
	b, err := hex.DecodeString(util.TrimHex(s))
	if err != nil {
		return nil, fmt.Errorf("invalid poll ID hex: %w", err)
	}
	p := &PollID{}
	if err := p.Unmarshal(b); err != nil {
		return nil, err
	}
	return p, nil
}
