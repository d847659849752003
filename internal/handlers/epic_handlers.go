package handlers

import (
	"net/http"
	"time"

	"taskManager/internal/handlers/dto"
	"taskManager/internal/logger"

	"go.uber.org/zap"
)

func (s *TaskHandler) GetEpics(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	epics := s.TaskService.GetAllEpics(r.Context())
	responseWithBody(w, http.StatusOK, dto.FromEpicList(epics))
}

func (s *TaskHandler) GetEpicByID(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	epic, err := s.TaskService.GetEpicByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err, "get_epic")
		return
	}

	logger.Info("HTTP_OUT: Эпик получен",
		zap.Int("epic_id", id),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithBody(w, http.StatusOK, dto.FromEpic(epic))
}

func (s *TaskHandler) GetEpicSubtasks(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	subtasks, err := s.TaskService.GetEpicSubtasks(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err, "get_epic_subtasks")
		return
	}

	responseWithBody(w, http.StatusOK, dto.FromSubtaskList(subtasks))
}

// PostEpic создаёт эпик, если id не передан, иначе меняет название и описание.
func (s *TaskHandler) PostEpic(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	if !requireJSON(w, r) {
		return
	}

	var request dto.EpicRequest
	if !decodeBody(w, r, &request) {
		return
	}

	if request.ID == 0 {
		created, err := s.TaskService.CreateEpic(r.Context(), request.ToEpic())
		if err != nil {
			handleServiceError(w, r, err, "create_epic")
			return
		}

		logger.Info("HTTP_OUT: Эпик создан",
			zap.Int("epic_id", created.ID),
			zap.Duration("ms", time.Since(start)),
			zap.Int("http_status", http.StatusCreated))

		responseWithBody(w, http.StatusCreated, dto.CreatedResponse{ID: created.ID})
		return
	}

	if err := s.TaskService.UpdateEpic(r.Context(), request.ToEpic()); err != nil {
		handleServiceError(w, r, err, "update_epic")
		return
	}

	logger.Info("HTTP_OUT: Эпик обновлён",
		zap.Int("epic_id", request.ID),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	responseWithBody(w, http.StatusCreated, dto.CreatedResponse{ID: request.ID})
}

func (s *TaskHandler) DeleteEpicByID(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	removed, err := s.TaskService.DeleteEpicByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err, "delete_epic")
		return
	}

	logger.Info("HTTP_OUT: Эпик удалён",
		zap.Int("epic_id", id),
		zap.Int("subtasks", len(removed.SubtaskIDs)),
		zap.Int("http_status", http.StatusOK))

	responseWithBody(w, http.StatusOK, dto.FromEpic(removed))
}

func (s *TaskHandler) DeleteAllEpics(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	s.TaskService.DeleteAllEpics(r.Context())

	logger.Info("HTTP_OUT: Все эпики удалены", zap.Int("http_status", http.StatusNoContent))
	w.WriteHeader(http.StatusNoContent)
}
