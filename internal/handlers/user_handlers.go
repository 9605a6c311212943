package handlers

import (
	"net/http"

	"taskManager/internal/logger"
	"taskManager/internal/policy"
	"taskManager/internal/service"

	"go.uber.org/zap"
)

type UserHandler struct {
	UserService UserService
}

func NewUserHandler(userService UserService) *UserHandler {
	return &UserHandler{UserService: userService}
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	caller, ok := admit(w, r, policy.OpListUsers)
	if !ok {
		return
	}

	limit, err := queryLimit(r)
	if err != nil {
		responseWithError(w, http.StatusBadRequest, service.CodeValidation, err.Error())
		return
	}

	group := r.URL.Query().Get("group")
	users, err := h.UserService.ListUsers(r.Context(), caller, group, limit)
	if err != nil {
		handleServiceError(w, r, err, "list_users")
		return
	}

	logger.Info("HTTP_OUT: users listed", zap.String("group", group), zap.Int("count", len(users)))
	responseWithJSON(w, http.StatusOK,
		toPayload("users", users),
		toPayload("count", len(users)),
	)
}
