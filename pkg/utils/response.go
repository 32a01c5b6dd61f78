package utils

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// API 错误码
const (
	CodeValidationError    = "VALIDATION_ERROR"
	CodeSessionNotFound    = "SESSION_NOT_FOUND"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeInternalError      = "INTERNAL_ERROR"
)

// Meta 附带在每个响应上的元信息
type Meta struct {
	Timestamp string `json:"timestamp"`
}

// ErrorBody 描述失败原因
type ErrorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

// Envelope 是所有 REST 响应的统一外壳
type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
	Meta    Meta       `json:"meta"`
}

func newMeta() Meta {
	return Meta{Timestamp: time.Now().UTC().Format(time.RFC3339Nano)}
}

// RespondJSON 发送JSON响应
func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("response.encode_failed", "error", err)
	}
}

// WriteSuccess 发送成功响应
func WriteSuccess(w http.ResponseWriter, status int, data any) {
	RespondJSON(w, status, Envelope{Success: true, Data: data, Meta: newMeta()})
}

// WriteError 发送错误响应
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteErrorDetails(w, status, code, message, nil)
}

// WriteErrorDetails is WriteError with field-level details.
func WriteErrorDetails(w http.ResponseWriter, status int, code, message string, details map[string]any) {
	if details == nil {
		details = map[string]any{}
	}
	RespondJSON(w, status, Envelope{
		Success: false,
		Error:   &ErrorBody{Code: code, Message: message, Details: details},
		Meta:    newMeta(),
	})
}
