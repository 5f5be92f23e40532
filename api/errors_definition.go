//nolint:lll
package api

import (
	"fmt"
	"net/http"
)

// The custom Error type satisfies the error interface.
// Error() returns a human-readable description of the error.
//
// Error codes in the 40001-49999 range are the user's fault,
// and they return HTTP Status 400, 404 or 409, whatever is most appropriate.
//
// Error codes 50001-59999 are the server's fault
// and they return HTTP Status 500 or 503, or something else if appropriate.
//
// NEVER change any of the current error codes, only append new errors after the current last 4XXX or 5XXX.
// If there's a gap, don't fill it: that code was used in the past and shouldn't be reused.
// There's no correlation between Code and HTTP Status.
var (
	ErrResourceNotFound   = Error{Code: 40001, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("resource not found")}
	ErrMalformedBody      = Error{Code: 40004, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed JSON body")}
	ErrMalformedPollID    = Error{Code: 40006, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed poll ID")}
	ErrPollNotFound       = Error{Code: 40007, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("poll not found")}
	ErrInvalidCensusID    = Error{Code: 40008, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid census ID")}
	ErrCensusNotFound     = Error{Code: 40009, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("census not found")}
	ErrMalformedParam     = Error{Code: 40010, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed parameter")}
	ErrInvalidPollConfig  = Error{Code: 40011, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid poll configuration")}
	ErrPollAlreadyExists  = Error{Code: 40012, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("poll already exists")}
	ErrPollNotAccepting   = Error{Code: 40013, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("poll is not accepting ballots")}
	ErrPollNotClosed      = Error{Code: 40014, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("poll is not closed")}
	ErrBallotsPending     = Error{Code: 40015, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("poll has pending ballots")}
	ErrInvalidBallot      = Error{Code: 40016, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid ballot")}
	ErrDoubleVote         = Error{Code: 40017, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("double vote")}
	ErrBallotPending      = Error{Code: 40018, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("ballot already pending")}
	ErrResultNotAvailable = Error{Code: 40019, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("result not available")}

	ErrMarshalingServerJSONFailed = Error{Code: 50001, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("marshaling (server-side) JSON failed")}
	ErrGenericInternalServerError = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("internal server error")}
	ErrTallyFailed                = Error{Code: 50003, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("tally failed")}
)
