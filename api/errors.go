package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/vocdoni/zktally/census"
	"github.com/vocdoni/zktally/log"
	"github.com/vocdoni/zktally/nullifier"
	"github.com/vocdoni/zktally/poll"
	"github.com/vocdoni/zktally/sequencer"
	"github.com/vocdoni/zktally/storage"
)

// Error is used by handler functions to wrap errors, assigning a unique error code
// and also specifying which HTTP Status should be used.
type Error struct {
	Err        error
	Code       int
	HTTPstatus int
}

// MarshalJSON returns a JSON containing Err.Error() and Code. Field HTTPstatus is ignored.
//
// Example output: {"error":"poll not found","code":40007}
func (e Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(
		struct {
			Err  string `json:"error"`
			Code int    `json:"code"`
		}{
			Err:  e.Err.Error(),
			Code: e.Code,
		})
}

// Error returns the Message contained inside the APIerror
func (e Error) Error() string {
	return e.Err.Error()
}

// Write serializes the error as JSON and writes it with its HTTP status.
func (e Error) Write(w http.ResponseWriter) {
	msg, err := json.Marshal(e)
	if err != nil {
		log.Warn(err)
		http.Error(w, "marshal failed", http.StatusInternalServerError)
		return
	}
	if log.Level() == log.LogLevelDebug {
		log.Debugw("API error response", "error", e.Error(), "code", e.Code, "httpStatus", e.HTTPstatus)
	}
	w.Header().Set("Content-Type", "application/json")
	http.Error(w, string(msg), e.HTTPstatus)
}

// Withf returns a copy of APIerror with the Sprintf formatted string appended at the end of e.Err
func (e Error) Withf(format string, args ...any) Error {
	return Error{
		Err:        fmt.Errorf("%w: %v", e.Err, fmt.Sprintf(format, args...)),
		Code:       e.Code,
		HTTPstatus: e.HTTPstatus,
	}
}

// With returns a copy of APIerror with the string appended at the end of e.Err
func (e Error) With(s string) Error {
	return Error{
		Err:        fmt.Errorf("%w: %v", e.Err, s),
		Code:       e.Code,
		HTTPstatus: e.HTTPstatus,
	}
}

// WithErr returns a copy of APIerror with err.Error() appended at the end of e.Err
func (e Error) WithErr(err error) Error {
	return Error{
		Err:        fmt.Errorf("%w: %v", e.Err, err.Error()),
		Code:       e.Code,
		HTTPstatus: e.HTTPstatus,
	}
}

// errorFrom maps the errors of the domain packages to their API error.
func errorFrom(err error) Error {
	var apiErr Error
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, poll.ErrPollNotFound):
		return ErrPollNotFound.WithErr(err)
	case errors.Is(err, poll.ErrPollExists):
		return ErrPollAlreadyExists.WithErr(err)
	case errors.Is(err, poll.ErrPollNotAccepting):
		return ErrPollNotAccepting.WithErr(err)
	case errors.Is(err, poll.ErrPollNotClosed):
		return ErrPollNotClosed.WithErr(err)
	case errors.Is(err, poll.ErrBallotsPending):
		return ErrBallotsPending.WithErr(err)
	case errors.Is(err, nullifier.ErrDoubleVote):
		return ErrDoubleVote.WithErr(err)
	case errors.Is(err, sequencer.ErrBallotPending):
		return ErrBallotPending.WithErr(err)
	case errors.Is(err, sequencer.ErrInvalidBallot):
		return ErrInvalidBallot.WithErr(err)
	case errors.Is(err, census.ErrCensusNotFound):
		return ErrCensusNotFound.WithErr(err)
	case errors.Is(err, census.ErrMemberNotFound), errors.Is(err, storage.ErrNotFound):
		return ErrResourceNotFound.WithErr(err)
	case errors.Is(err, census.ErrInvalidCommitment):
		return ErrMalformedBody.WithErr(err)
	}
	return ErrGenericInternalServerError.WithErr(err)
}
