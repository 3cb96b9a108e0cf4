package api

import (
	"encoding/json"
	"net/http"

	"github.com/anye1tovar/logic-escape-room-sub000/internal/apperrors"
)

type errorBody struct {
	Error *apperrors.AppError `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError classifies err and answers with its taxonomy status and
// machine code. Unknown errors become 500 without leaking internals.
func (s *HTTPServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperrors.AsAppError(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		s.logger.Error().Err(err).
			Str("path", r.URL.Path).
			Str("request_id", requestIDFrom(r.Context())).
			Msg("request failed")
	}
	writeJSON(w, appErr.HTTPStatus, errorBody{Error: appErr})
}
