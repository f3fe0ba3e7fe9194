package kit

import (
	"encoding/json"
	"iter"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
)

type ErrorResponse struct {
	Error     string `json:"error"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, msg string, details any) {
	WriteJSON(w, status, ErrorResponse{
		Error:     msg,
		Details:   details,
		RequestID: chimw.GetReqID(r.Context()),
	})
}

// WriteJSONSeq streams seq as a JSON array without buffering it. Nothing is
// written until the first element (or the end of an empty sequence) is reached,
// so when started is false the caller still owns the response. An error after
// that truncates the body.
func WriteJSONSeq[T any](w http.ResponseWriter, status int, seq iter.Seq2[T, error]) (started bool, err error) {
	enc := json.NewEncoder(w)

	for v, err := range seq {
		if err != nil {
			return started, err
		}
		if !started {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write([]byte("["))
			started = true
		} else {
			_, _ = w.Write([]byte(","))
		}
		if err := enc.Encode(v); err != nil {
			return started, err
		}
	}

	if !started {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte("[]\n"))
		return true, nil
	}
	_, _ = w.Write([]byte("]\n"))
	return true, nil
}
