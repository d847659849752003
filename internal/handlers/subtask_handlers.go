package handlers

import (
	"net/http"
	"time"

	"taskManager/internal/handlers/dto"
	"taskManager/internal/logger"

	"go.uber.org/zap"
)

func (s *TaskHandler) GetSubtasks(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	subtasks := s.TaskService.GetAllSubtasks(r.Context())
	responseWithBody(w, http.StatusOK, dto.FromSubtaskList(subtasks))
}

func (s *TaskHandler) GetSubtaskByID(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	st, err := s.TaskService.GetSubtaskByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err, "get_subtask")
		return
	}

	logger.Info("HTTP_OUT: Подзадача получена",
		zap.Int("task_id", id),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithBody(w, http.StatusOK, dto.FromSubtask(st))
}

// PostSubtask создаёт подзадачу, если id не передан, иначе обновляет существующую.
func (s *TaskHandler) PostSubtask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	if !requireJSON(w, r) {
		return
	}

	var request dto.SubtaskRequest
	if !decodeBody(w, r, &request) {
		return
	}

	if request.EpicID <= 0 {
		logger.Warn("HTTP: Ошибка валидации",
			zap.String("field", "epic_id"),
			zap.String("error", "empty_field"),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "epic_id должен быть задан")
		return
	}

	if request.ID == 0 {
		created, err := s.TaskService.CreateSubtask(r.Context(), request.ToSubtask())
		if err != nil {
			handleServiceError(w, r, err, "create_subtask")
			return
		}

		logger.Info("HTTP_OUT: Подзадача создана",
			zap.Int("task_id", created.ID),
			zap.Int("epic_id", created.EpicID),
			zap.Duration("ms", time.Since(start)),
			zap.Int("http_status", http.StatusCreated))

		responseWithBody(w, http.StatusCreated, dto.CreatedResponse{ID: created.ID})
		return
	}

	if err := s.TaskService.UpdateSubtask(r.Context(), request.ToSubtask()); err != nil {
		handleServiceError(w, r, err, "update_subtask")
		return
	}

	logger.Info("HTTP_OUT: Подзадача обновлена",
		zap.Int("task_id", request.ID),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	responseWithBody(w, http.StatusCreated, dto.CreatedResponse{ID: request.ID})
}

func (s *TaskHandler) DeleteSubtaskByID(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	removed, err := s.TaskService.DeleteSubtaskByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err, "delete_subtask")
		return
	}

	logger.Info("HTTP_OUT: Подзадача удалена", zap.Int("task_id", id), zap.Int("http_status", http.StatusOK))
	responseWithBody(w, http.StatusOK, dto.FromSubtask(removed))
}

func (s *TaskHandler) DeleteAllSubtasks(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	s.TaskService.DeleteAllSubtasks(r.Context())

	logger.Info("HTTP_OUT: Все подзадачи удалены", zap.Int("http_status", http.StatusNoContent))
	w.WriteHeader(http.StatusNoContent)
}

func (s *TaskHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	responseWithBody(w, http.StatusOK, dto.FromHistory(s.TaskService.GetHistory(r.Context())))
}

func (s *TaskHandler) GetPrioritized(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	responseWithBody(w, http.StatusOK, dto.FromTaskList(s.TaskService.GetPrioritizedTasks(r.Context())))
}
