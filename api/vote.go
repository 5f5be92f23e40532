package api

import (
	"encoding/json"
	"math/big"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vocdoni/zktally/storage"
)

// newVote queues a ballot for verification
// POST /votes
func (a *API) newVote(w http.ResponseWriter, r *http.Request) {
	vote := &Vote{}
	if err := json.NewDecoder(r.Body).Decode(vote); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	b := &storage.Ballot{
		PollID:           vote.PollID,
		Ballot:           vote.Ballot,
		VoteProof:        vote.VoteProof,
		EligibilityProof: vote.EligibilityProof,
		Nullifier:        vote.Nullifier,
		CensusRoot:       vote.CensusRoot,
	}
	if err := a.sequencer.Submit(b); err != nil {
		errorFrom(err).Write(w)
		return
	}
	httpWriteJSON(w, &VoteResponse{
		PollID:    vote.PollID,
		Nullifier: vote.Nullifier,
		Status:    storage.BallotStatusPending,
	})
}

// voteStatus returns the processing state of a ballot
// GET /votes/{pollId}/nullifier/{nullifier}
func (a *API) voteStatus(w http.ResponseWriter, r *http.Request) {
	pollID, err := pollIDParam(r)
	if err != nil {
		errorFrom(err).Write(w)
		return
	}
	n, ok := new(big.Int).SetString(chi.URLParam(r, NullifierURLParam), 10)
	if !ok || n.Sign() < 0 {
		ErrMalformedParam.With("nullifier must be a decimal integer").Write(w)
		return
	}
	status, err := a.storage.BallotStatus(pollID, n)
	if err != nil {
		errorFrom(err).Write(w)
		return
	}
	httpWriteJSON(w, status)
}
