package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"taskManager/internal/auth"
	"taskManager/internal/models/user"
	"taskManager/internal/policy"
	"taskManager/internal/service"
)

const maxBodyBytes = 1 << 20

func checkContentType(r *http.Request, target string) bool {
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		return false
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}

	return mediaType == target
}

// admit rejects unauthenticated and non-admin callers before the body is read.
func admit(w http.ResponseWriter, r *http.Request, op policy.Operation) (*user.Caller, bool) {
	caller := auth.CallerFrom(r.Context())
	if err := service.Admit(caller, op); err != nil {
		handleServiceError(w, r, err, op.String())
		return nil, false
	}
	return caller, true
}

// readBody enforces a JSON content type and a size cap.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, int, error) {
	if !checkContentType(r, "application/json") {
		return nil, http.StatusBadRequest, fmt.Errorf("Content-Type must be application/json")
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, http.StatusBadRequest, fmt.Errorf("failed to read request body: %w", err)
	}
	return body, 0, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) (int, error) {
	body, code, err := readBody(w, r)
	if err != nil {
		return code, err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err)
	}
	return 0, nil
}

// queryLimit reads an optional positive limit; absent means 0 (store default).
func queryLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, fmt.Errorf("limit must be a positive integer")
	}
	return limit, nil
}
