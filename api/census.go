package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/vocdoni/zktally/types"
)

// newCensus creates an empty census
// POST /censuses
func (a *API) newCensus(w http.ResponseWriter, r *http.Request) {
	censusID := uuid.New()
	if _, err := a.censusDB.New(censusID); err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, &NewCensus{Census: censusID})
}

// addCensusParticipants registers identity commitments
// POST /censuses/{censusId}/participants
func (a *API) addCensusParticipants(w http.ResponseWriter, r *http.Request) {
	censusID, err := censusIDParam(r)
	if err != nil {
		errorFrom(err).Write(w)
		return
	}
	var participants CensusParticipants
	if err := json.NewDecoder(r.Body).Decode(&participants); err != nil {
		ErrMalformedBody.WithErr(err).Write(w)
		return
	}
	if len(participants.Commitments) == 0 {
		ErrMalformedBody.WithErr(fmt.Errorf("no commitments provided")).Write(w)
		return
	}
	for i, c := range participants.Commitments {
		if c == nil {
			ErrMalformedBody.Withf("commitment %d is empty", i).Write(w)
			return
		}
	}
	ref, err := a.censusDB.Load(censusID)
	if err != nil {
		errorFrom(err).Write(w)
		return
	}
	first, err := ref.AddBatch(types.MathBigIntSlice(participants.Commitments))
	if err != nil {
		errorFrom(err).Write(w)
		return
	}
	httpWriteJSON(w, &CensusAdded{FirstIndex: first, Size: ref.Size(), Root: ref.Root()})
}

// censusRoot returns the root and size of a census
// GET /censuses/{censusId}/root
func (a *API) censusRoot(w http.ResponseWriter, r *http.Request) {
	censusID, err := censusIDParam(r)
	if err != nil {
		errorFrom(err).Write(w)
		return
	}
	ref, err := a.censusDB.Load(censusID)
	if err != nil {
		errorFrom(err).Write(w)
		return
	}
	httpWriteJSON(w, &CensusRoot{Root: ref.Root(), Size: ref.Size()})
}

// censusProof returns the membership proof of a member
// GET /censuses/{censusId}/proof?index=
func (a *API) censusProof(w http.ResponseWriter, r *http.Request) {
	censusID, err := censusIDParam(r)
	if err != nil {
		errorFrom(err).Write(w)
		return
	}
	index, err := strconv.ParseUint(r.URL.Query().Get("index"), 10, 64)
	if err != nil {
		ErrMalformedParam.Withf("index: %v", err).Write(w)
		return
	}
	ref, err := a.censusDB.Load(censusID)
	if err != nil {
		errorFrom(err).Write(w)
		return
	}
	proof, err := ref.GenProof(index)
	if err != nil {
		errorFrom(err).Write(w)
		return
	}
	httpWriteJSON(w, proof)
}
