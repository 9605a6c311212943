package handlers

import (
	"net/http"
	"time"

	"taskManager/internal/auth"
	"taskManager/internal/handlers/dto"
	"taskManager/internal/logger"
	"taskManager/internal/models/task"
	"taskManager/internal/policy"
	"taskManager/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const serviceName = "task-manager"

type TaskHandler struct {
	TaskService TaskService
}

func NewTaskHandler(taskService TaskService) *TaskHandler {
	return &TaskHandler{
		TaskService: taskService,
	}
}

func (h *TaskHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP: health check")

	if err := h.TaskService.HealthCheck(r.Context()); err != nil {
		logger.Warn("HTTP: health check failed", zap.Error(err))
		responseWithJSON(w, http.StatusServiceUnavailable,
			toPayload("status", "unhealthy"),
			toPayload("service", serviceName),
		)
		return
	}
	responseWithJSON(w, http.StatusOK,
		toPayload("status", "healthy"),
		toPayload("service", serviceName),
		toPayload("time", time.Now().UTC()),
	)
}

func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	caller, ok := admit(w, r, policy.OpCreate)
	if !ok {
		return
	}

	var request dto.CreateTaskRequest
	if code, err := decodeJSON(w, r, &request); err != nil {
		logger.Warn("HTTP: failed to read request", zap.Error(err), zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, code, service.CodeValidation, err.Error())
		return
	}

	dueDate, err := dto.ParseDate(derefString(request.DueDate))
	if err != nil {
		responseWithError(w, http.StatusBadRequest, service.CodeValidation, err.Error())
		return
	}

	created, err := h.TaskService.CreateTask(r.Context(), caller, service.CreateTaskInput{
		Title:       request.Title,
		Description: request.Description,
		Priority:    task.Priority(request.Priority),
		DueDate:     dueDate,
		Tags:        request.Tags,
	})
	if err != nil {
		handleServiceError(w, r, err, "create_task")
		return
	}

	logger.Info("HTTP_OUT: task created",
		zap.String("task_id", created.ID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	responseWithJSON(w, http.StatusCreated,
		toPayload("message", "Task created successfully"),
		toPayload("task", created),
	)
}

func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	caller, ok := admit(w, r, policy.OpList)
	if !ok {
		return
	}

	limit, err := queryLimit(r)
	if err != nil {
		logger.Warn("HTTP: invalid query parameter", zap.String("query", "limit"), zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusBadRequest, service.CodeValidation, err.Error())
		return
	}

	list, err := h.TaskService.ListTasks(r.Context(), caller, service.ListTasksInput{
		Status: r.URL.Query().Get("status"),
		Limit:  limit,
	})
	if err != nil {
		handleServiceError(w, r, err, "list_tasks")
		return
	}

	logger.Info("HTTP_OUT: tasks listed",
		zap.Int("count", len(list.Tasks)),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK,
		toPayload("tasks", list.Tasks),
		toPayload("count", len(list.Tasks)),
		toPayload("isAdmin", list.IsAdmin),
	)
}

func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	found, err := h.TaskService.GetTask(r.Context(), auth.CallerFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err, "get_task")
		return
	}

	responseWithJSON(w, http.StatusOK, toPayload("task", found))
}

func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	caller, ok := admit(w, r, policy.OpUpdate)
	if !ok {
		return
	}

	body, code, err := readBody(w, r)
	if err != nil {
		responseWithError(w, code, service.CodeValidation, err.Error())
		return
	}
	patch, err := dto.DecodePatch(body)
	if err != nil {
		logger.Warn("HTTP: failed to decode update", zap.Error(err), zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusBadRequest, service.CodeValidation, err.Error())
		return
	}

	updated, err := h.TaskService.UpdateTask(r.Context(), caller, chi.URLParam(r, "id"), patch)
	if err != nil {
		handleServiceError(w, r, err, "update_task")
		return
	}

	logger.Info("HTTP_OUT: task updated",
		zap.String("task_id", updated.ID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK,
		toPayload("message", "Task updated successfully"),
		toPayload("task", updated),
	)
}

func (h *TaskHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	caller, ok := admit(w, r, policy.OpChangeStatus)
	if !ok {
		return
	}

	var request dto.ChangeStatusRequest
	if code, err := decodeJSON(w, r, &request); err != nil {
		responseWithError(w, code, service.CodeValidation, err.Error())
		return
	}

	res, err := h.TaskService.ChangeStatus(r.Context(), caller, chi.URLParam(r, "id"), request.Status)
	if err != nil {
		handleServiceError(w, r, err, "change_status")
		return
	}

	logger.Info("HTTP_OUT: task status changed",
		zap.String("task_id", res.Task.ID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK,
		toPayload("message", "Task status updated successfully"),
		toPayload("task", res.Task),
		toPayload("previousStatus", res.PreviousStatus),
		toPayload("notifications", res.Notifications),
	)
}

func (h *TaskHandler) AssignMembers(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	caller, ok := admit(w, r, policy.OpAssign)
	if !ok {
		return
	}

	var request dto.AssignRequest
	if code, err := decodeJSON(w, r, &request); err != nil {
		responseWithError(w, code, service.CodeValidation, err.Error())
		return
	}

	res, err := h.TaskService.AssignMembers(r.Context(), caller, chi.URLParam(r, "id"), request.MemberIDs)
	if err != nil {
		handleServiceError(w, r, err, "assign_members")
		return
	}

	logger.Info("HTTP_OUT: members assigned",
		zap.String("task_id", res.Task.ID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK,
		toPayload("message", "Task assigned successfully"),
		toPayload("task", res.Task),
		toPayload("newlyAssigned", res.NewlyAssigned),
		toPayload("notifications", res.Notifications),
	)
}

func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id := chi.URLParam(r, "id")
	if err := h.TaskService.DeleteTask(r.Context(), auth.CallerFrom(r.Context()), id); err != nil {
		handleServiceError(w, r, err, "delete_task")
		return
	}

	logger.Info("HTTP_OUT: task deleted",
		zap.String("task_id", id),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK,
		toPayload("message", "Task deleted successfully"),
		toPayload("taskId", id),
	)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
