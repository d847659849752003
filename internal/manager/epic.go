package manager

import (
	"time"

	"taskManager/internal/models/task"
)

// epicStatus: IN_PROGRESS у любой подзадачи решает сразу; иначе все NEW -> NEW, все DONE -> DONE,
// смесь NEW и DONE -> IN_PROGRESS. Эпик без подзадач - NEW.
func epicStatus(subtasks []task.Subtask) task.Status {
	if len(subtasks) == 0 {
		return task.StatusNew
	}

	var newCount, doneCount int
	for _, st := range subtasks {
		switch st.Status {
		case task.StatusInProgress:
			return task.StatusInProgress
		case task.StatusDone:
			doneCount++
		default:
			newCount++
		}
	}

	switch {
	case doneCount == 0:
		return task.StatusNew
	case newCount == 0:
		return task.StatusDone
	default:
		return task.StatusInProgress
	}
}

// epicWindow: начало - самое раннее из заданных, длительность - сумма заданных,
// конец - самый поздний из вычислимых. Отсутствующие значения не считаются нулём.
func epicWindow(subtasks []task.Subtask) (start *time.Time, duration *time.Duration, end *time.Time) {
	for _, st := range subtasks {
		if st.StartTime != nil && (start == nil || st.StartTime.Before(*start)) {
			s := *st.StartTime
			start = &s
		}
		if st.Duration != nil {
			var sum time.Duration
			if duration != nil {
				sum = *duration
			}
			sum += *st.Duration
			duration = &sum
		}
		if e, ok := st.EndTime(); ok && (end == nil || e.After(*end)) {
			end = &e
		}
	}
	return start, duration, end
}

// refreshEpic пересчитывает статус и временное окно эпика по текущим подзадачам.
// Вызывается под блокировкой хранилища.
func (s *InMemory) refreshEpic(epic *task.Epic) {
	subtasks := make([]task.Subtask, 0, len(epic.SubtaskIDs))
	for _, id := range epic.SubtaskIDs {
		if st, ok := s.subtasks[id]; ok {
			subtasks = append(subtasks, *st)
		}
	}
	epic.Status = epicStatus(subtasks)
	epic.StartTime, epic.Duration, epic.End = epicWindow(subtasks)
}
