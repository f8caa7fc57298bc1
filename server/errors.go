package server

import (
	"encoding/json"
	"net/http"
)

// Error codes returned in APIError.Code.
const (
	CodeInvalidBody     = "INVALID_BODY"
	CodeInvalidSettings = "INVALID_SETTINGS"
	CodeBetRejected     = "BET_REJECTED"
	CodeCashoutRejected = "CASHOUT_REJECTED"
)

// APIError is the error body of every failed API call.
type APIError struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeError(w http.ResponseWriter, code int, errMsg, codeStr string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(APIError{
		Error:   errMsg,
		Code:    codeStr,
		Message: errMsg,
	})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
