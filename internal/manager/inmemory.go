package manager

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"taskManager/internal/history"
	"taskManager/internal/logger"
	"taskManager/internal/models/task"
	"taskManager/internal/repository"
	"taskManager/internal/schedule"

	"go.uber.org/zap"
)

// InMemory хранит три коллекции под одной блокировкой: пересчёт эпиков, индекс расписания
// и история - побочные эффекты одной операции и должны наблюдаться атомарно.
type InMemory struct {
	mtx      *sync.RWMutex
	tasks    map[int]*task.Task
	epics    map[int]*task.Epic
	subtasks map[int]*task.Subtask
	counter  int
	history  *history.Tracker
	schedule *schedule.Index
}

var _ Manager = (*InMemory)(nil)

func NewInMemory() *InMemory {
	return &InMemory{
		mtx:      &sync.RWMutex{},
		tasks:    make(map[int]*task.Task),
		epics:    make(map[int]*task.Epic),
		subtasks: make(map[int]*task.Subtask),
		history:  history.New(),
		schedule: schedule.New(),
	}
}

func (s *InMemory) nextID() int {
	s.counter++
	return s.counter
}

// conflicts проверяет окно задачи по индексу и пишет предупреждение при пересечении.
func (s *InMemory) conflicts(t task.Task, kind task.Type) bool {
	if !t.Timed() {
		return false
	}
	other, conflict := s.schedule.Conflict(t)
	if conflict {
		logger.Warn("Manager: Пересечение по времени",
			zap.String("type", string(kind)),
			zap.Int("task_id", t.ID),
			zap.Int("conflict_with", other.ID),
			zap.Time("start_time", *t.StartTime))
	}
	return conflict
}

// reindex снимает прежнюю запись из индекса и вставляет актуальную.
func (s *InMemory) reindex(t task.Task) {
	s.schedule.Remove(t.ID)
	if t.Timed() {
		s.schedule.Add(t)
	}
}

func (s *InMemory) CreateTask(t task.Task) task.Task {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	t = t.Clone()
	t.ID = 0
	if s.conflicts(t, task.TypeTask) {
		return t
	}

	t.ID = s.nextID()
	stored := t.Clone()
	s.tasks[t.ID] = &stored
	s.reindex(stored)

	logger.Debug("Manager: Задача создана", zap.Int("task_id", t.ID))
	return t
}

func (s *InMemory) CreateEpic(e task.Epic) task.Epic {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	epic := task.NewEpic(e.Name, e.Description)
	epic.ID = s.nextID()
	s.epics[epic.ID] = &epic

	logger.Debug("Manager: Эпик создан", zap.Int("epic_id", epic.ID))
	return epic.Clone()
}

func (s *InMemory) CreateSubtask(st task.Subtask) task.Subtask {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	st = st.Clone()
	st.ID = 0
	epic, ok := s.epics[st.EpicID]
	if !ok {
		logger.Warn("Manager: Эпик подзадачи не найден", zap.Int("epic_id", st.EpicID))
		return st
	}
	if s.conflicts(st.Task, task.TypeSubtask) {
		return st
	}

	st.ID = s.nextID()
	stored := st.Clone()
	s.subtasks[st.ID] = &stored
	s.reindex(stored.Task)
	epic.AddSubtaskID(st.ID)
	s.refreshEpic(epic)

	logger.Debug("Manager: Подзадача создана", zap.Int("task_id", st.ID), zap.Int("epic_id", st.EpicID))
	return st
}

func (s *InMemory) UpdateTask(t task.Task) bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.tasks[t.ID]; !ok {
		return false
	}
	if s.conflicts(t, task.TypeTask) {
		return false
	}

	stored := t.Clone()
	s.tasks[t.ID] = &stored
	s.reindex(stored)
	return true
}

// UpdateEpic меняет только название и описание; статус и время эпика всегда вычисляются.
func (s *InMemory) UpdateEpic(e task.Epic) bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	epic, ok := s.epics[e.ID]
	if !ok {
		return false
	}
	epic.Name = e.Name
	epic.Description = e.Description
	return true
}

// UpdateSubtask отклоняет попытку перенести подзадачу в другой эпик целиком.
func (s *InMemory) UpdateSubtask(st task.Subtask) bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	existing, ok := s.subtasks[st.ID]
	if !ok {
		return false
	}
	if existing.EpicID != st.EpicID {
		logger.Warn("Manager: Попытка сменить эпик подзадачи",
			zap.Int("task_id", st.ID),
			zap.Int("epic_id", existing.EpicID),
			zap.Int("requested_epic_id", st.EpicID))
		return false
	}
	if s.conflicts(st.Task, task.TypeSubtask) {
		return false
	}

	stored := st.Clone()
	s.subtasks[st.ID] = &stored
	s.reindex(stored.Task)
	if epic, ok := s.epics[st.EpicID]; ok {
		s.refreshEpic(epic)
	}
	return true
}

// Поиск по id берёт блокировку на запись: найденная сущность попадает в историю.

func (s *InMemory) GetTaskByID(id int) (task.Task, bool) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return task.Task{}, false
	}
	s.history.Record(*t, task.TypeTask)
	return t.Clone(), true
}

func (s *InMemory) GetEpicByID(id int) (task.Epic, bool) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	epic, ok := s.epics[id]
	if !ok {
		return task.Epic{}, false
	}
	s.history.Record(epic.Task, task.TypeEpic)
	return epic.Clone(), true
}

func (s *InMemory) GetSubtaskByID(id int) (task.Subtask, bool) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	st, ok := s.subtasks[id]
	if !ok {
		return task.Subtask{}, false
	}
	s.history.Record(st.Task, task.TypeSubtask)
	return st.Clone(), true
}

// GetAll* возвращают сущности по возрастанию id.

func (s *InMemory) GetAllTasks() []task.Task {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	return s.allTasks()
}

func (s *InMemory) GetAllEpics() []task.Epic {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	return s.allEpics()
}

func (s *InMemory) GetAllSubtasks() []task.Subtask {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	return s.allSubtasks()
}

func (s *InMemory) allTasks() []task.Task {
	res := make([]task.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		res = append(res, t.Clone())
	}
	slices.SortFunc(res, func(a, b task.Task) int { return cmp.Compare(a.ID, b.ID) })
	return res
}

func (s *InMemory) allEpics() []task.Epic {
	res := make([]task.Epic, 0, len(s.epics))
	for _, e := range s.epics {
		res = append(res, e.Clone())
	}
	slices.SortFunc(res, func(a, b task.Epic) int { return cmp.Compare(a.ID, b.ID) })
	return res
}

func (s *InMemory) allSubtasks() []task.Subtask {
	res := make([]task.Subtask, 0, len(s.subtasks))
	for _, st := range s.subtasks {
		res = append(res, st.Clone())
	}
	slices.SortFunc(res, func(a, b task.Subtask) int { return cmp.Compare(a.ID, b.ID) })
	return res
}

// GetEpicSubtasks возвращает подзадачи в порядке их добавления в эпик.
func (s *InMemory) GetEpicSubtasks(epicID int) []task.Subtask {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []task.Subtask{}
	epic, ok := s.epics[epicID]
	if !ok {
		return res
	}
	for _, id := range epic.SubtaskIDs {
		if st, ok := s.subtasks[id]; ok {
			res = append(res, st.Clone())
		}
	}
	return res
}

func (s *InMemory) DeleteTaskByID(id int) (task.Task, bool) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return task.Task{}, false
	}
	delete(s.tasks, id)
	s.schedule.Remove(id)
	s.history.Remove(id)
	return *t, true
}

// DeleteEpicByID удаляет эпик вместе со всеми его подзадачами.
func (s *InMemory) DeleteEpicByID(id int) (task.Epic, bool) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	epic, ok := s.epics[id]
	if !ok {
		return task.Epic{}, false
	}
	for _, subtaskID := range epic.SubtaskIDs {
		s.dropSubtask(subtaskID)
	}
	delete(s.epics, id)
	s.history.Remove(id)

	logger.Debug("Manager: Эпик удалён", zap.Int("epic_id", id), zap.Int("subtasks", len(epic.SubtaskIDs)))
	return *epic, true
}

func (s *InMemory) DeleteSubtaskByID(id int) (task.Subtask, bool) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	st, ok := s.subtasks[id]
	if !ok {
		return task.Subtask{}, false
	}
	s.dropSubtask(id)
	if epic, ok := s.epics[st.EpicID]; ok {
		epic.RemoveSubtaskID(id)
		s.refreshEpic(epic)
	}
	return *st, true
}

// dropSubtask убирает подзадачу из коллекции, индекса и истории, не трогая эпик.
func (s *InMemory) dropSubtask(id int) {
	delete(s.subtasks, id)
	s.schedule.Remove(id)
	s.history.Remove(id)
}

func (s *InMemory) DeleteAllTasks() {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	for id := range s.tasks {
		s.schedule.Remove(id)
		s.history.Remove(id)
	}
	clear(s.tasks)
}

// DeleteAllEpics удаляет эпики вместе с подзадачами: подзадача не существует без эпика.
func (s *InMemory) DeleteAllEpics() {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	for id := range s.epics {
		s.history.Remove(id)
	}
	for id := range s.subtasks {
		s.schedule.Remove(id)
		s.history.Remove(id)
	}
	clear(s.epics)
	clear(s.subtasks)
}

func (s *InMemory) DeleteAllSubtasks() {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	for id := range s.subtasks {
		s.schedule.Remove(id)
		s.history.Remove(id)
	}
	clear(s.subtasks)
	for _, epic := range s.epics {
		epic.ClearSubtaskIDs()
		s.refreshEpic(epic)
	}
}

func (s *InMemory) GetPrioritizedTasks() []task.Task {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	return s.schedule.Items()
}

func (s *InMemory) GetHistory() []history.Entry {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	return s.history.History()
}

func (s *InMemory) Kind(id int) (task.Type, bool) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	switch {
	case s.tasks[id] != nil:
		return task.TypeTask, true
	case s.epics[id] != nil:
		return task.TypeEpic, true
	case s.subtasks[id] != nil:
		return task.TypeSubtask, true
	}
	return "", false
}

// Snapshot копирует все коллекции для сохранения.
func (s *InMemory) Snapshot() repository.Snapshot {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	return repository.Snapshot{
		Tasks:    s.allTasks(),
		Epics:    s.allEpics(),
		Subtasks: s.allSubtasks(),
	}
}

// Restore заменяет содержимое хранилища снимком. Эпики пересчитываются, индекс строится заново,
// счётчик продолжается с наибольшего id снимка. Некорректные записи пропускаются,
// а причины возвращаются одной ошибкой.
func (s *InMemory) Restore(snap repository.Snapshot) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.tasks = make(map[int]*task.Task)
	s.epics = make(map[int]*task.Epic)
	s.subtasks = make(map[int]*task.Subtask)
	s.history = history.New()
	s.schedule = schedule.New()
	s.counter = 0

	var errs []error
	seen := make(map[int]bool)
	accept := func(id int, kind task.Type, status task.Status) bool {
		if id > s.counter {
			s.counter = id
		}
		switch {
		case id <= 0:
			errs = append(errs, fmt.Errorf("%s: некорректный id %d: %w", kind, id, repository.ErrBrokenSnapshot))
			return false
		case seen[id]:
			errs = append(errs, fmt.Errorf("%s %d: повторный id: %w", kind, id, repository.ErrBrokenSnapshot))
			return false
		case kind != task.TypeEpic && !status.Valid():
			errs = append(errs, fmt.Errorf("%s %d: статус %q: %w", kind, id, status, repository.ErrBrokenSnapshot))
			return false
		}
		seen[id] = true
		return true
	}

	for _, e := range snap.Epics {
		if !accept(e.ID, task.TypeEpic, e.Status) {
			continue
		}
		epic := task.NewEpic(e.Name, e.Description)
		epic.ID = e.ID
		s.epics[epic.ID] = &epic
	}

	for _, t := range snap.Tasks {
		if !accept(t.ID, task.TypeTask, t.Status) {
			continue
		}
		if s.conflicts(t, task.TypeTask) {
			errs = append(errs, fmt.Errorf("TASK %d: пересечение по времени: %w", t.ID, repository.ErrBrokenSnapshot))
			continue
		}
		stored := t.Clone()
		s.tasks[t.ID] = &stored
		s.reindex(stored)
	}

	for _, st := range snap.Subtasks {
		if !accept(st.ID, task.TypeSubtask, st.Status) {
			continue
		}
		epic, ok := s.epics[st.EpicID]
		if !ok {
			errs = append(errs, fmt.Errorf("SUBTASK %d: эпик %d не найден: %w", st.ID, st.EpicID, repository.ErrBrokenSnapshot))
			continue
		}
		if s.conflicts(st.Task, task.TypeSubtask) {
			errs = append(errs, fmt.Errorf("SUBTASK %d: пересечение по времени: %w", st.ID, repository.ErrBrokenSnapshot))
			continue
		}
		stored := st.Clone()
		s.subtasks[st.ID] = &stored
		s.reindex(stored.Task)
		epic.AddSubtaskID(st.ID)
	}

	for _, epic := range s.epics {
		s.refreshEpic(epic)
	}

	logger.Info("Manager: Хранилище восстановлено из снимка",
		zap.Int("tasks", len(s.tasks)),
		zap.Int("epics", len(s.epics)),
		zap.Int("subtasks", len(s.subtasks)),
		zap.Int("skipped", len(errs)),
		zap.Int("last_id", s.counter))

	return errors.Join(errs...)
}

func (s *InMemory) HealthCheck(ctx context.Context) error {
	return nil
}
