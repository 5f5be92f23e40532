package api

import (
	"encoding/json"
	"net/http"

	"github.com/vocdoni/zktally/log"
	"github.com/vocdoni/zktally/types"
)

// newPoll creates a poll and its encryption key
// POST /polls
func (a *API) newPoll(w http.ResponseWriter, r *http.Request) {
	cfg := &types.PollConfig{}
	if err := json.NewDecoder(r.Body).Decode(cfg); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	if err := cfg.Validate(); err != nil {
		ErrInvalidPollConfig.WithErr(err).Write(w)
		return
	}
	ref, err := a.censusDB.ByRoot(cfg.CensusRoot)
	if err != nil {
		ErrCensusNotFound.Withf("no census with root %s", cfg.CensusRoot).Write(w)
		return
	}
	if cfg.CensusID == "" {
		cfg.CensusID = ref.ID.String()
	} else if cfg.CensusID != ref.ID.String() {
		ErrInvalidPollConfig.Withf("census %s does not have root %s", cfg.CensusID, cfg.CensusRoot).Write(w)
		return
	}
	p, err := a.polls.Create(r.Context(), cfg)
	if err != nil {
		errorFrom(err).Write(w)
		return
	}
	log.Infow("new poll", "pollId", p.ID.String(), "organizer", p.Organizer.String())
	httpWriteJSON(w, p)
}

// poll returns the public poll record
// GET /polls/{pollId}
func (a *API) poll(w http.ResponseWriter, r *http.Request) {
	pollID, err := pollIDParam(r)
	if err != nil {
		errorFrom(err).Write(w)
		return
	}
	p, err := a.polls.Get(pollID)
	if err != nil {
		errorFrom(err).Write(w)
		return
	}
	httpWriteJSON(w, p)
}

// closePoll stops accepting ballots
// POST /polls/{pollId}/close
func (a *API) closePoll(w http.ResponseWriter, r *http.Request) {
	pollID, err := pollIDParam(r)
	if err != nil {
		errorFrom(err).Write(w)
		return
	}
	p, err := a.polls.Close(pollID)
	if err != nil {
		errorFrom(err).Write(w)
		return
	}
	httpWriteJSON(w, p)
}

// tallyPoll decrypts and proves the result of a closed poll
// POST /polls/{pollId}/tally
func (a *API) tallyPoll(w http.ResponseWriter, r *http.Request) {
	pollID, err := pollIDParam(r)
	if err != nil {
		errorFrom(err).Write(w)
		return
	}
	result, err := a.polls.Tally(r.Context(), pollID)
	if err != nil {
		apiErr := errorFrom(err)
		if apiErr.Code == ErrGenericInternalServerError.Code {
			apiErr = ErrTallyFailed.WithErr(err)
		}
		apiErr.Write(w)
		return
	}
	a.sequencer.Forget(pollID)
	httpWriteJSON(w, result)
}

// pollResults returns the published result
// GET /polls/{pollId}/results
func (a *API) pollResults(w http.ResponseWriter, r *http.Request) {
	pollID, err := pollIDParam(r)
	if err != nil {
		errorFrom(err).Write(w)
		return
	}
	p, err := a.polls.Get(pollID)
	if err != nil {
		errorFrom(err).Write(w)
		return
	}
	if p.Status != types.PollStatusTallied {
		ErrResultNotAvailable.Withf("poll is %s", p.Status).Write(w)
		return
	}
	result, err := a.polls.Result(pollID)
	if err != nil {
		errorFrom(err).Write(w)
		return
	}
	httpWriteJSON(w, result)
}
