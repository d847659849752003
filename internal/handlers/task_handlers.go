package handlers

import (
	"net/http"
	"time"

	"taskManager/internal/handlers/dto"
	"taskManager/internal/logger"
	"taskManager/internal/models/task"

	"go.uber.org/zap"
)

const serviceName = "task-manager"

type TaskHandler struct {
	TaskService Service
}

func NewTaskHandler(taskService Service) TaskHandler {
	return TaskHandler{
		TaskService: taskService,
	}
}

func (s *TaskHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP: Health check")

	if err := s.TaskService.HealthCheck(r.Context()); err != nil {
		logger.Error("HTTP: Сервис нездоров", err)
		responseWithJSON(w, http.StatusServiceUnavailable,
			toPayload("status", "unavailable"),
			toPayload("service", serviceName),
			toPayload("error", err.Error()),
		)
		return
	}

	responseWithJSON(w, http.StatusOK,
		toPayload("status", "ok"),
		toPayload("service", serviceName),
		toPayload("time", time.Now().UTC().Format(time.RFC3339)),
	)
}

// requireJSON отклоняет запрос с телом не в JSON.
func requireJSON(w http.ResponseWriter, r *http.Request) bool {
	if checkContentType(r, "application/json") {
		return true
	}

	logger.Warn("HTTP: Неверный тип контента",
		zap.String("expected", "application/json"),
		zap.String("received", r.Header.Get("Content-Type")),
		zap.String("client_ip", r.RemoteAddr))

	responseWithError(w, http.StatusUnsupportedMediaType, "Content-Type должен быть application/json")
	return false
}

// pathID читает id из пути и сам отвечает 400 при ошибке.
func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := parseID(r, "id")
	if err != nil {
		logger.Warn("HTTP: Не удалось получить id",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, err.Error())
		return 0, false
	}
	return id, true
}

// decodeBody читает JSON и, если запрос умеет себя проверять, вызывает Validate.
func decodeBody(w http.ResponseWriter, r *http.Request, target any) bool {
	err := decodeJSON(r, target)
	if v, ok := target.(interface{ Validate() error }); ok && err == nil {
		err = v.Validate()
	}
	if err != nil {
		logger.Warn("HTTP: ошибка чтения JSON",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (s *TaskHandler) GetTasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	tasks := s.TaskService.GetAllTasks(r.Context())

	logger.Info("HTTP_OUT: Задачи получены",
		zap.Int("count", len(tasks)),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithBody(w, http.StatusOK, dto.FromTypedList(tasks, task.TypeTask))
}

func (s *TaskHandler) GetTaskByID(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	t, err := s.TaskService.GetTaskByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err, "get_task")
		return
	}

	logger.Info("HTTP_OUT: Задача получена",
		zap.Int("task_id", id),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithBody(w, http.StatusOK, dto.FromTyped(t, task.TypeTask))
}

// PostTask создаёт задачу, если id не передан, иначе обновляет существующую.
func (s *TaskHandler) PostTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	if !requireJSON(w, r) {
		return
	}

	var request dto.TaskRequest
	if !decodeBody(w, r, &request) {
		return
	}

	if request.ID == 0 {
		created, err := s.TaskService.CreateTask(r.Context(), request.ToTask())
		if err != nil {
			handleServiceError(w, r, err, "create_task")
			return
		}

		logger.Info("HTTP_OUT: Задача создана",
			zap.Int("task_id", created.ID),
			zap.Duration("ms", time.Since(start)),
			zap.Int("http_status", http.StatusCreated))

		responseWithBody(w, http.StatusCreated, dto.CreatedResponse{ID: created.ID})
		return
	}

	if err := s.TaskService.UpdateTask(r.Context(), request.ToTask()); err != nil {
		handleServiceError(w, r, err, "update_task")
		return
	}

	logger.Info("HTTP_OUT: Задача обновлена",
		zap.Int("task_id", request.ID),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	responseWithBody(w, http.StatusCreated, dto.CreatedResponse{ID: request.ID})
}

func (s *TaskHandler) DeleteTaskByID(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	removed, err := s.TaskService.DeleteTaskByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err, "delete_task")
		return
	}

	logger.Info("HTTP_OUT: Задача удалена",
		zap.Int("task_id", id),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithBody(w, http.StatusOK, dto.FromTyped(removed, task.TypeTask))
}

func (s *TaskHandler) DeleteAllTasks(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	s.TaskService.DeleteAllTasks(r.Context())

	logger.Info("HTTP_OUT: Все задачи удалены", zap.Int("http_status", http.StatusNoContent))
	w.WriteHeader(http.StatusNoContent)
}
