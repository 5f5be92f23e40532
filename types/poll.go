package types

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// PollStatus is the lifecycle state of a poll.
type PollStatus uint8

const (
	PollStatusReady PollStatus = iota
	PollStatusClosed
	PollStatusTallied
)

func (s PollStatus) String() string {
	switch s {
	case PollStatusReady:
		return "ready"
	case PollStatusClosed:
		return "closed"
	case PollStatusTallied:
		return "tallied"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

func (s PollStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *PollStatus) UnmarshalText(data []byte) error {
	switch string(data) {
	case "ready":
		*s = PollStatusReady
	case "closed":
		*s = PollStatusClosed
	case "tallied":
		*s = PollStatusTallied
	default:
		return fmt.Errorf("unknown poll status %q", data)
	}
	return nil
}

// Variant selects how a choice is encoded into ciphertexts.
type Variant string

const (
	// VariantScalar encrypts the option index as a single ciphertext.
	VariantScalar Variant = "scalar"
	// VariantVector encrypts a one-hot vector, one ciphertext per option.
	VariantVector Variant = "vector"
)

// Valid reports whether v is a known variant.
func (v Variant) Valid() bool {
	return v == VariantScalar || v == VariantVector
}

// EncryptionKey is the published poll public key, in reduced twisted Edwards
// coordinates.
type EncryptionKey struct {
	X *BigInt `json:"x" cbor:"0,keyasint,omitempty"`
	Y *BigInt `json:"y" cbor:"1,keyasint,omitempty"`
}

// PollConfig holds the parameters to create a new poll.
type PollConfig struct {
	Organizer  common.Address `json:"organizer"`
	Nonce      uint64         `json:"nonce"`
	ChainID    uint32         `json:"chainId"`
	NumOptions int            `json:"numOptions"`
	Variant    Variant        `json:"variant"`
	CensusID   string         `json:"censusId"`
	CensusRoot HexBytes       `json:"censusRoot"`
	Title      string         `json:"title,omitempty"`
}

// PollID returns the identifier the config maps to.
func (c *PollConfig) PollID() *PollID {
	return &PollID{Organizer: c.Organizer, Nonce: c.Nonce, ChainID: c.ChainID}
}

// Validate checks the static parameters of the config.
func (c *PollConfig) Validate() error {
	if c.NumOptions < 2 || c.NumOptions > MaxOptions {
		return fmt.Errorf("number of options must be in [2, %d], got %d", MaxOptions, c.NumOptions)
	}
	if !c.Variant.Valid() {
		return fmt.Errorf("unknown variant %q", c.Variant)
	}
	if len(c.CensusRoot) == 0 {
		return fmt.Errorf("missing census root")
	}
	return nil
}

// Poll is the public record of a poll.
type Poll struct {
	ID            HexBytes       `json:"id"                      cbor:"0,keyasint,omitempty"`
	Organizer     common.Address `json:"organizer"               cbor:"1,keyasint,omitempty"`
	Status        PollStatus     `json:"status"                  cbor:"2,keyasint,omitempty"`
	NumOptions    int            `json:"numOptions"              cbor:"3,keyasint,omitempty"`
	Variant       Variant        `json:"variant"                 cbor:"4,keyasint,omitempty"`
	CensusID      string         `json:"censusId,omitempty"      cbor:"5,keyasint,omitempty"`
	CensusRoot    HexBytes       `json:"censusRoot"              cbor:"6,keyasint,omitempty"`
	EncryptionKey *EncryptionKey `json:"encryptionKey"           cbor:"7,keyasint,omitempty"`
	Title         string         `json:"title,omitempty"         cbor:"8,keyasint,omitempty"`
	MetadataHash  HexBytes       `json:"metadataHash,omitempty"  cbor:"9,keyasint,omitempty"`
	Accepted      uint64         `json:"accepted"                cbor:"10,keyasint,omitempty"`
	Rejected      uint64         `json:"rejected"                cbor:"11,keyasint,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"               cbor:"12,keyasint,omitempty"`
	ClosedAt      time.Time      `json:"closedAt,omitempty"      cbor:"13,keyasint,omitempty"`
}

// Accepting reports whether the poll takes new ballots.
func (p *Poll) Accepting() bool {
	return p.Status == PollStatusReady
}

// Slots returns the number of ciphertexts of a ballot, which is also the
// number of aggregated sums: one for the scalar variant, one per option for
// the vector variant.
func (p *Poll) Slots() int {
	if p.Variant == VariantScalar {
		return 1
	}
	return p.NumOptions
}

func (p *Poll) String() string {
	data, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return string(data)
}
