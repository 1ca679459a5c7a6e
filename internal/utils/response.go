package utils

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"crisp/internal/models"
)

// JSON writes a JSON response with status code
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			GetLogger().Error("failed to encode response", zap.Int("status", status), zap.Error(err))
		}
	}
}

// JSONError writes a models.ErrorResponse
func JSONError(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, &models.ErrorResponse{Code: code, Message: message})
}
