package response

import (
	"encoding/json"
	"net/http"
)

// Типы ошибок в ответах API
const (
	KindValidation   = "ValidationError"
	KindUnavailable  = "UnavailableError"
	KindUnauthorized = "UnauthorizedError"
	KindRateLimit    = "RateLimitError"
	KindInternal     = "<internal>"
)

type envelope struct {
	OK     bool        `json:"ok"`
	Result interface{} `json:"result"`
}

type errorResult struct {
	Error    string `json:"error"`
	ErrorMsg string `json:"error_msg"`
}

// WriteJSON отправляет результат в стандартной обертке {"ok": true, "result": ...}
func WriteJSON(w http.ResponseWriter, status int, result interface{}) {
	if result == nil {
		result = struct{}{}
	}
	write(w, status, envelope{OK: true, Result: result})
}

// WriteError отправляет ошибку {"ok": false, "result": {"error": kind, "error_msg": msg}}
func WriteError(w http.ResponseWriter, status int, kind, msg string) {
	write(w, status, envelope{OK: false, Result: errorResult{Error: kind, ErrorMsg: msg}})
}

func write(w http.ResponseWriter, status int, payload envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
