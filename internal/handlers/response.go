package handlers

import (
	"encoding/json"
	"net/http"

	"taskManager/internal/logger"
)

type Payload struct {
	Key     string
	Payload any
}

func toPayload(key string, pl any) Payload {
	return Payload{Key: key, Payload: pl}
}

func toJSON(storage map[string]any, payload Payload) {
	storage[payload.Key] = payload.Payload
}

func responseWithJSON(w http.ResponseWriter, code int, payload ...Payload) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	storage := make(map[string]any)
	for _, pl := range payload {
		toJSON(storage, pl)
	}
	if err := json.NewEncoder(w).Encode(storage); err != nil {
		logger.Error("HTTP: failed to encode response", err)
	}
}

func responseWithError(w http.ResponseWriter, code int, errCode, message string) {
	responseWithJSON(w, code,
		toPayload("error", errCode),
		toPayload("message", message),
		toPayload("details", map[string]any{}),
	)
}
