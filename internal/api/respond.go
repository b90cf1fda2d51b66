package api

import (
	"encoding/json"
	"net/http"

	scanerrors "github.com/token-scanner/internal/errors"
)

// errorBody is the JSON shape of every API error response.
type errorBody struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ErrorResponse wraps an error body.
type ErrorResponse struct {
	Error errorBody `json:"error"`
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		json.NewEncoder(w).Encode(data) // nolint:errcheck // response already committed
	}
}

// respondError sends an error response with an explicit status and code.
func respondError(w http.ResponseWriter, statusCode int, code, message string) {
	respondJSON(w, statusCode, ErrorResponse{
		Error: errorBody{Code: code, Message: message},
	})
}

// respondCategorized maps a categorized error onto its HTTP representation.
func respondCategorized(w http.ResponseWriter, err error) {
	catErr := scanerrors.Categorize(err)
	respondJSON(w, catErr.StatusCode, ErrorResponse{
		Error: errorBody{
			Code:    catErr.Code,
			Message: catErr.Message,
			Details: catErr.Details,
		},
	})
}
