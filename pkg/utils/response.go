package utils

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Detail string `json:"detail"`
}

// MessageBody is the JSON shape of plain acknowledgements.
type MessageBody struct {
	Message string `json:"message"`
}

// RespondJSON 发送JSON响应
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

// RespondError 发送错误响应
func RespondError(w http.ResponseWriter, status int, detail string) {
	RespondJSON(w, status, ErrorBody{Detail: detail})
}

// RespondMessage 发送确认消息
func RespondMessage(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, MessageBody{Message: message})
}
