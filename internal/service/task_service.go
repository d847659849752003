package service

import (
	"context"
	"fmt"
	"slices"

	"taskManager/internal/history"
	"taskManager/internal/logger"
	"taskManager/internal/models/task"
	"taskManager/internal/schedule"

	"go.uber.org/zap"
)

// здесь хранилище отвечает "да/нет", а сервис объясняет причину отказа

type TaskService struct {
	store Store
}

func NewTaskService(store Store) *TaskService {
	return &TaskService{
		store: store,
	}
}

func (s *TaskService) HealthCheck(ctx context.Context) error {
	if err := s.store.HealthCheck(ctx); err != nil {
		logger.Error("Service: Проверка здоровья не пройдена", err)
		return fmt.Errorf("проверка здоровья сервиса: %w", err)
	}
	return nil
}

func validate(t task.Task) error {
	if t.Name == "" {
		return NewValidationError("name", "название не может быть пустым")
	}
	if !t.Status.Valid() {
		return NewValidationError("status", fmt.Sprintf("неизвестный статус %q", t.Status))
	}
	if t.Duration != nil && *t.Duration < 0 {
		return NewValidationError("duration", "длительность не может быть отрицательной")
	}
	return nil
}

// conflictWith ищет в расписании запись, с которой пересекается окно t.
func (s *TaskService) conflictWith(t task.Task) int {
	for _, item := range s.store.GetPrioritizedTasks() {
		if item.ID != t.ID && schedule.Overlaps(item, t) {
			return item.ID
		}
	}
	return 0
}

func (s *TaskService) timeConflict(kind task.Type, t task.Task) error {
	conflictWith := s.conflictWith(t)
	logger.Info("Service: Отказ из-за пересечения по времени",
		zap.String("type", string(kind)),
		zap.Int("task_id", t.ID),
		zap.Int("conflict_with", conflictWith))
	return NewTimeConflict(kind, conflictWith)
}

func (s *TaskService) notFound(kind task.Type, id int) error {
	logger.Info("Service: Сущность не найдена", zap.String("type", string(kind)), zap.Int("target_id", id))
	return NewNotFound(kind, id)
}

func (s *TaskService) is(id int, kind task.Type) bool {
	found, ok := s.store.Kind(id)
	return ok && found == kind
}

// Задачи

func (s *TaskService) CreateTask(ctx context.Context, t task.Task) (task.Task, error) {
	if t.Status == "" {
		t.Status = task.StatusNew
	}
	if err := validate(t); err != nil {
		return task.Task{}, err
	}

	created := s.store.CreateTask(t)
	if created.ID == 0 {
		return task.Task{}, s.timeConflict(task.TypeTask, created)
	}
	return created, nil
}

func (s *TaskService) UpdateTask(ctx context.Context, t task.Task) error {
	if err := validate(t); err != nil {
		return err
	}
	if !s.is(t.ID, task.TypeTask) {
		return s.notFound(task.TypeTask, t.ID)
	}
	if !s.store.UpdateTask(t) {
		return s.timeConflict(task.TypeTask, t)
	}
	return nil
}

func (s *TaskService) GetTaskByID(ctx context.Context, id int) (task.Task, error) {
	t, ok := s.store.GetTaskByID(id)
	if !ok {
		return task.Task{}, s.notFound(task.TypeTask, id)
	}
	return t, nil
}

func (s *TaskService) GetAllTasks(ctx context.Context) []task.Task {
	return s.store.GetAllTasks()
}

func (s *TaskService) DeleteTaskByID(ctx context.Context, id int) (task.Task, error) {
	t, ok := s.store.DeleteTaskByID(id)
	if !ok {
		return task.Task{}, s.notFound(task.TypeTask, id)
	}
	logger.Info("Service: Задача удалена", zap.Int("task_id", id))
	return t, nil
}

func (s *TaskService) DeleteAllTasks(ctx context.Context) {
	s.store.DeleteAllTasks()
	logger.Info("Service: Все задачи удалены")
}

// Эпики

func (s *TaskService) CreateEpic(ctx context.Context, e task.Epic) (task.Epic, error) {
	if e.Name == "" {
		return task.Epic{}, NewValidationError("name", "название не может быть пустым")
	}
	return s.store.CreateEpic(e), nil
}

// UpdateEpic меняет только название и описание; остальные поля эпика вычисляются.
func (s *TaskService) UpdateEpic(ctx context.Context, e task.Epic) error {
	if e.Name == "" {
		return NewValidationError("name", "название не может быть пустым")
	}
	if !s.store.UpdateEpic(e) {
		return s.notFound(task.TypeEpic, e.ID)
	}
	return nil
}

func (s *TaskService) GetEpicByID(ctx context.Context, id int) (task.Epic, error) {
	e, ok := s.store.GetEpicByID(id)
	if !ok {
		return task.Epic{}, s.notFound(task.TypeEpic, id)
	}
	return e, nil
}

func (s *TaskService) GetAllEpics(ctx context.Context) []task.Epic {
	return s.store.GetAllEpics()
}

func (s *TaskService) GetEpicSubtasks(ctx context.Context, epicID int) ([]task.Subtask, error) {
	if !s.is(epicID, task.TypeEpic) {
		return nil, s.notFound(task.TypeEpic, epicID)
	}
	return s.store.GetEpicSubtasks(epicID), nil
}

func (s *TaskService) DeleteEpicByID(ctx context.Context, id int) (task.Epic, error) {
	e, ok := s.store.DeleteEpicByID(id)
	if !ok {
		return task.Epic{}, s.notFound(task.TypeEpic, id)
	}
	logger.Info("Service: Эпик удалён", zap.Int("epic_id", id), zap.Int("subtasks", len(e.SubtaskIDs)))
	return e, nil
}

func (s *TaskService) DeleteAllEpics(ctx context.Context) {
	s.store.DeleteAllEpics()
	logger.Info("Service: Все эпики и подзадачи удалены")
}

// Подзадачи

func (s *TaskService) CreateSubtask(ctx context.Context, st task.Subtask) (task.Subtask, error) {
	if st.Status == "" {
		st.Status = task.StatusNew
	}
	if err := validate(st.Task); err != nil {
		return task.Subtask{}, err
	}
	if !s.is(st.EpicID, task.TypeEpic) {
		logger.Info("Service: Эпик подзадачи не найден", zap.Int("epic_id", st.EpicID))
		return task.Subtask{}, NewEpicNotFound(st.EpicID)
	}

	created := s.store.CreateSubtask(st)
	if created.ID == 0 {
		return task.Subtask{}, s.timeConflict(task.TypeSubtask, created.Task)
	}
	return created, nil
}

func (s *TaskService) UpdateSubtask(ctx context.Context, st task.Subtask) error {
	if err := validate(st.Task); err != nil {
		return err
	}
	if !s.is(st.ID, task.TypeSubtask) {
		return s.notFound(task.TypeSubtask, st.ID)
	}
	siblings := s.store.GetEpicSubtasks(st.EpicID)
	if !slices.ContainsFunc(siblings, func(sibling task.Subtask) bool { return sibling.ID == st.ID }) {
		logger.Info("Service: Подзадача принадлежит другому эпику",
			zap.Int("task_id", st.ID),
			zap.Int("epic_id", st.EpicID))
		return NewEpicMismatch(st.ID, st.EpicID)
	}
	if !s.store.UpdateSubtask(st) {
		return s.timeConflict(task.TypeSubtask, st.Task)
	}
	return nil
}

func (s *TaskService) GetSubtaskByID(ctx context.Context, id int) (task.Subtask, error) {
	st, ok := s.store.GetSubtaskByID(id)
	if !ok {
		return task.Subtask{}, s.notFound(task.TypeSubtask, id)
	}
	return st, nil
}

func (s *TaskService) GetAllSubtasks(ctx context.Context) []task.Subtask {
	return s.store.GetAllSubtasks()
}

func (s *TaskService) DeleteSubtaskByID(ctx context.Context, id int) (task.Subtask, error) {
	st, ok := s.store.DeleteSubtaskByID(id)
	if !ok {
		return task.Subtask{}, s.notFound(task.TypeSubtask, id)
	}
	logger.Info("Service: Подзадача удалена", zap.Int("task_id", id), zap.Int("epic_id", st.EpicID))
	return st, nil
}

func (s *TaskService) DeleteAllSubtasks(ctx context.Context) {
	s.store.DeleteAllSubtasks()
	logger.Info("Service: Все подзадачи удалены")
}

// Представления

func (s *TaskService) GetPrioritizedTasks(ctx context.Context) []task.Task {
	return s.store.GetPrioritizedTasks()
}

func (s *TaskService) GetHistory(ctx context.Context) []history.Entry {
	return s.store.GetHistory()
}
