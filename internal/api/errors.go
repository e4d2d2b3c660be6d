package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/getantonio/tokenhub/internal/engine"
	"github.com/getantonio/tokenhub/internal/issuance"
	"github.com/getantonio/tokenhub/internal/wallet"
)

// ErrorBody is the JSON shape of every non-2xx response.
type ErrorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	Code  string `json:"code,omitempty"`
}

// Non-engine error kinds.
const (
	KindRequest   = "RequestError"
	KindSignature = "SignatureError"
	KindNotFound  = "NotFound"
	KindInternal  = "InternalError"
)

var kindStatus = map[issuance.Kind]int{
	issuance.KindConfiguration: http.StatusBadRequest,
	issuance.KindCapacity:      http.StatusConflict,
	issuance.KindWindow:        http.StatusConflict,
	issuance.KindEligibility:   http.StatusUnprocessableEntity,
	issuance.KindState:         http.StatusConflict,
	issuance.KindAuthorization: http.StatusForbidden,
}

// classify maps err to an HTTP status and body.
func classify(err error) (int, ErrorBody) {
	body := ErrorBody{Error: err.Error()}

	if kind, ok := issuance.KindOf(err); ok {
		body.Kind = kind.String()
		body.Code = issuance.CodeOf(err)
		return kindStatus[kind], body
	}

	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr):
		body.Kind = KindRequest
		return http.StatusBadRequest, body
	case errors.Is(err, wallet.ErrSignatureMismatch), errors.Is(err, errSignature):
		body.Kind = KindSignature
		return http.StatusUnauthorized, body
	case errors.Is(err, engine.ErrNotFound):
		body.Kind = KindNotFound
		return http.StatusNotFound, body
	}
	body.Kind = KindInternal
	return http.StatusInternalServerError, body
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err)
	entry := s.log.WithField("path", r.URL.Path).WithField("status", status)
	if status >= 500 {
		entry.WithError(err).Error("request failed")
	} else {
		entry.WithField("kind", body.Kind).Debug(err.Error())
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
