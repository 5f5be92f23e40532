package storage

import (
	"time"

	"github.com/vocdoni/zktally/crypto/elgamal"
	"github.com/vocdoni/zktally/prover"
	"github.com/vocdoni/zktally/types"
)

// Ballot is a submitted ballot waiting for verification.
type Ballot struct {
	PollID           types.HexBytes  `json:"pollId"           cbor:"0,keyasint"`
	Ballot           *elgamal.Ballot `json:"ballot"           cbor:"1,keyasint"`
	VoteProof        *prover.Proof   `json:"voteProof"        cbor:"2,keyasint"`
	EligibilityProof *prover.Proof   `json:"eligibilityProof" cbor:"3,keyasint"`
	Nullifier        *types.BigInt   `json:"nullifier"        cbor:"4,keyasint"`
	CensusRoot       types.HexBytes  `json:"censusRoot"       cbor:"5,keyasint"`
	SubmittedAt      time.Time       `json:"submittedAt"      cbor:"6,keyasint"`
}

// AcceptedBallot is a verified ballot already folded into the aggregate.
type AcceptedBallot struct {
	PollID     types.HexBytes  `json:"pollId"     cbor:"0,keyasint"`
	Nullifier  *types.BigInt   `json:"nullifier"  cbor:"1,keyasint"`
	Ballot     *elgamal.Ballot `json:"ballot"     cbor:"2,keyasint"`
	AcceptedAt time.Time       `json:"acceptedAt" cbor:"3,keyasint"`
}

// RejectedBallot records why a ballot was dropped.
type RejectedBallot struct {
	PollID     types.HexBytes `json:"pollId"     cbor:"0,keyasint"`
	Nullifier  *types.BigInt  `json:"nullifier"  cbor:"1,keyasint"`
	Reason     string         `json:"reason"     cbor:"2,keyasint"`
	RejectedAt time.Time      `json:"rejectedAt" cbor:"3,keyasint"`
}

// BallotStatus is the processing state of a ballot.
type BallotStatus string

const (
	BallotStatusPending  BallotStatus = "pending"
	BallotStatusAccepted BallotStatus = "accepted"
	BallotStatusRejected BallotStatus = "rejected"
)

// BallotStatusRecord is stored for every submitted nullifier.
type BallotStatusRecord struct {
	Status    BallotStatus `json:"status"           cbor:"0,keyasint"`
	Reason    string       `json:"reason,omitempty" cbor:"1,keyasint,omitempty"`
	UpdatedAt time.Time    `json:"updatedAt"        cbor:"2,keyasint"`
}

// Aggregate is the running homomorphic sum of the accepted ballots of a poll.
type Aggregate struct {
	Sums  []*elgamal.Ciphertext `json:"sums"  cbor:"0,keyasint"`
	Count uint64                `json:"count" cbor:"1,keyasint"`
}
