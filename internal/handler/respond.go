package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"shepherd-api/pkg/errors"
)

// Pagination is the paging block of a list envelope.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// envelope is the uniform response shape: {success, data?, result?,
// pagination?, message?}.
type envelope struct {
	Success    bool        `json:"success"`
	Data       interface{} `json:"data,omitempty"`
	Result     interface{} `json:"result,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Message    string      `json:"message,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	writeEnvelope(w, status, &envelope{Success: true, Data: data})
}

// respondResult is used for mutation outcomes, which the envelope carries
// under "result" rather than "data".
func respondResult(w http.ResponseWriter, status int, result interface{}, message string) {
	writeEnvelope(w, status, &envelope{Success: true, Result: result, Message: message})
}

func respondPage(w http.ResponseWriter, status int, data interface{}, p *Pagination) {
	writeEnvelope(w, status, &envelope{Success: true, Data: data, Pagination: p})
}

func respondError(w http.ResponseWriter, err error) {
	appErr := errors.AsAppError(err)

	response := &errors.ErrorResponse{}
	response.Success = false
	response.Message = appErr.Message
	response.Error.Type = appErr.Type
	response.Error.Message = appErr.Message
	response.Error.Details = appErr.Details
	response.Error.Timestamp = time.Now().UTC().Format(time.RFC3339)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)
	_ = json.NewEncoder(w).Encode(response)
}

func writeEnvelope(w http.ResponseWriter, status int, env *envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func totalPages(total, limit int) int {
	if limit <= 0 {
		return 0
	}
	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	return pages
}
