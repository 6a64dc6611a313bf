package httpapi

import (
	"encoding/json"
	"net/http"
)

// errorBody is the only failure body the API ever returns
type errorBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int) {
	_ = writeJSON(w, status, errorBody{Message: "ERROR"})
}
