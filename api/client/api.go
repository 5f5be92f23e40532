package client

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/vocdoni/zktally/api"
	"github.com/vocdoni/zktally/census"
	"github.com/vocdoni/zktally/storage"
	"github.com/vocdoni/zktally/tally"
	"github.com/vocdoni/zktally/types"
)

// Error is an error response of the API.
type Error struct {
	Message    string `json:"error"`
	Code       int    `json:"code"`
	HTTPStatus int    `json:"-"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (code %d, status %d)", e.Message, e.Code, e.HTTPStatus)
}

// call performs a request and decodes the JSON response into out, if not
// nil. Responses other than 200 are returned as *Error.
func (c *HTTPclient) call(method string, body, out any, params []string, urlPath ...string) error {
	data, status, err := c.Request(method, body, params, urlPath...)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		apiErr := &Error{HTTPStatus: status}
		if err := json.Unmarshal(data, apiErr); err != nil {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("cannot decode response: %w", err)
	}
	return nil
}

func censusPath(endpoint string, id uuid.UUID) string {
	return strings.Replace(endpoint, "{"+api.CensusURLParam+"}", id.String(), 1)
}

func pollPath(endpoint string, pollID []byte) string {
	return strings.Replace(endpoint, "{"+api.PollURLParam+"}", types.HexBytes(pollID).String(), 1)
}

// NewCensus creates an empty census.
func (c *HTTPclient) NewCensus() (uuid.UUID, error) {
	resp := &api.NewCensus{}
	if err := c.call(HTTPPOST, nil, resp, nil, api.CensusesEndpoint); err != nil {
		return uuid.Nil, err
	}
	return resp.Census, nil
}

// AddParticipants registers identity commitments in a census.
func (c *HTTPclient) AddParticipants(id uuid.UUID, commitments []*big.Int) (*api.CensusAdded, error) {
	resp := &api.CensusAdded{}
	body := &api.CensusParticipants{Commitments: types.BigIntSlice(commitments)}
	if err := c.call(HTTPPOST, body, resp, nil, censusPath(api.CensusParticipantsEndpoint, id)); err != nil {
		return nil, err
	}
	return resp, nil
}

// CensusRoot returns the root and size of a census.
func (c *HTTPclient) CensusRoot(id uuid.UUID) (*api.CensusRoot, error) {
	resp := &api.CensusRoot{}
	if err := c.call(HTTPGET, nil, resp, nil, censusPath(api.CensusRootEndpoint, id)); err != nil {
		return nil, err
	}
	return resp, nil
}

// CensusProof returns the membership proof of the member at index.
func (c *HTTPclient) CensusProof(id uuid.UUID, index uint64) (*census.Proof, error) {
	resp := &census.Proof{}
	params := []string{"index", strconv.FormatUint(index, 10)}
	if err := c.call(HTTPGET, nil, resp, params, censusPath(api.CensusProofEndpoint, id)); err != nil {
		return nil, err
	}
	return resp, nil
}

// NewPoll creates a poll.
func (c *HTTPclient) NewPoll(cfg *types.PollConfig) (*types.Poll, error) {
	resp := &types.Poll{}
	if err := c.call(HTTPPOST, cfg, resp, nil, api.PollsEndpoint); err != nil {
		return nil, err
	}
	return resp, nil
}

// Poll returns a poll.
func (c *HTTPclient) Poll(pollID []byte) (*types.Poll, error) {
	resp := &types.Poll{}
	if err := c.call(HTTPGET, nil, resp, nil, pollPath(api.PollEndpoint, pollID)); err != nil {
		return nil, err
	}
	return resp, nil
}

// ClosePoll stops a poll from accepting ballots.
func (c *HTTPclient) ClosePoll(pollID []byte) (*types.Poll, error) {
	resp := &types.Poll{}
	if err := c.call(HTTPPOST, nil, resp, nil, pollPath(api.PollCloseEndpoint, pollID)); err != nil {
		return nil, err
	}
	return resp, nil
}

// Tally asks the node to decrypt and prove the result of a closed poll.
func (c *HTTPclient) Tally(pollID []byte) (*tally.Result, error) {
	resp := &tally.Result{}
	if err := c.call(HTTPPOST, nil, resp, nil, pollPath(api.PollTallyEndpoint, pollID)); err != nil {
		return nil, err
	}
	return resp, nil
}

// Results returns the published result of a poll.
func (c *HTTPclient) Results(pollID []byte) (*tally.Result, error) {
	resp := &tally.Result{}
	if err := c.call(HTTPGET, nil, resp, nil, pollPath(api.PollResultsEndpoint, pollID)); err != nil {
		return nil, err
	}
	return resp, nil
}

// Vote submits a ballot.
func (c *HTTPclient) Vote(b *storage.Ballot) (*api.VoteResponse, error) {
	resp := &api.VoteResponse{}
	if err := c.call(HTTPPOST, api.VoteFromBallot(b), resp, nil, api.VotesEndpoint); err != nil {
		return nil, err
	}
	return resp, nil
}

// VoteStatus returns the processing state of a ballot by its nullifier.
func (c *HTTPclient) VoteStatus(pollID []byte, nullifier *big.Int) (*storage.BallotStatusRecord, error) {
	resp := &storage.BallotStatusRecord{}
	p := strings.Replace(pollPath(api.VoteStatusEndpoint, pollID), "{"+api.NullifierURLParam+"}", nullifier.String(), 1)
	if err := c.call(HTTPGET, nil, resp, nil, p); err != nil {
		return nil, err
	}
	return resp, nil
}
