package api

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vocdoni/zktally/log"
	"github.com/vocdoni/zktally/types"
	"github.com/vocdoni/zktally/util"
)

// httpWriteJSON helper function allows to write a JSON response.
func httpWriteJSON(w http.ResponseWriter, data any) {
	jdata, err := json.Marshal(data)
	if err != nil {
		ErrMarshalingServerJSONFailed.WithErr(err).Write(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	n, err := w.Write(jdata)
	if err != nil {
		log.Warnw("failed to write http response", "error", err)
	}
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
	log.Debugw("api response", "bytes", n, "data", strings.ReplaceAll(string(jdata), "\"", ""))
}

// httpWriteOK helper function allows to write an OK response.
func httpWriteOK(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
}

// pollIDParam decodes the poll ID of the request path.
func pollIDParam(r *http.Request) (types.HexBytes, error) {
	id, err := hex.DecodeString(util.TrimHex(chi.URLParam(r, PollURLParam)))
	if err != nil {
		return nil, ErrMalformedPollID.WithErr(err)
	}
	if len(id) != types.PollIDLen {
		return nil, ErrMalformedPollID.Withf("expected %d bytes, got %d", types.PollIDLen, len(id))
	}
	return id, nil
}

// censusIDParam decodes the census uuid of the request path.
func censusIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, CensusURLParam))
	if err != nil {
		return uuid.Nil, ErrInvalidCensusID.WithErr(err)
	}
	return id, nil
}
