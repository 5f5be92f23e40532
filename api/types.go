package api

import (
	"github.com/google/uuid"

	"github.com/vocdoni/zktally/crypto/elgamal"
	"github.com/vocdoni/zktally/prover"
	"github.com/vocdoni/zktally/storage"
	"github.com/vocdoni/zktally/types"
)

// NewCensus is the response to a new census creation request.
type NewCensus struct {
	Census uuid.UUID `json:"census"`
}

// CensusParticipants is a list of identity commitments to register.
type CensusParticipants struct {
	Commitments []*types.BigInt `json:"commitments"`
}

// CensusAdded is the response to a participants request: the index of the
// first commitment added, the consecutive ones follow.
type CensusAdded struct {
	FirstIndex uint64         `json:"firstIndex"`
	Size       int            `json:"size"`
	Root       types.HexBytes `json:"root"`
}

// CensusRoot is the response to a census root request.
type CensusRoot struct {
	Root types.HexBytes `json:"root"`
	Size int            `json:"size"`
}

// Vote is the ballot a voter submits with its proofs.
type Vote struct {
	PollID           types.HexBytes  `json:"pollId"`
	Ballot           *elgamal.Ballot `json:"ballot"`
	VoteProof        *prover.Proof   `json:"voteProof"`
	EligibilityProof *prover.Proof   `json:"eligibilityProof"`
	Nullifier        *types.BigInt   `json:"nullifier"`
	CensusRoot       types.HexBytes  `json:"censusRoot"`
}

// VoteFromBallot returns the submission form of a ballot.
func VoteFromBallot(b *storage.Ballot) *Vote {
	return &Vote{
		PollID:           b.PollID,
		Ballot:           b.Ballot,
		VoteProof:        b.VoteProof,
		EligibilityProof: b.EligibilityProof,
		Nullifier:        b.Nullifier,
		CensusRoot:       b.CensusRoot,
	}
}

// VoteResponse acknowledges a queued ballot.
type VoteResponse struct {
	PollID    types.HexBytes       `json:"pollId"`
	Nullifier *types.BigInt        `json:"nullifier"`
	Status    storage.BallotStatus `json:"status"`
}
