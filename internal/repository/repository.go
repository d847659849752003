package repository

import (
	"context"
	"errors"

	"taskManager/internal/models/task"
)

var ErrBrokenSnapshot = errors.New("повреждённый снимок")

// Snapshot - полный набор сущностей хранилища. История обращений в снимок не входит.
type Snapshot struct {
	Tasks    []task.Task
	Epics    []task.Epic
	Subtasks []task.Subtask
}

func (s Snapshot) Len() int {
	return len(s.Tasks) + len(s.Epics) + len(s.Subtasks)
}

// Clone возвращает глубокую копию снимка.
func (s Snapshot) Clone() Snapshot {
	res := Snapshot{
		Tasks:    make([]task.Task, 0, len(s.Tasks)),
		Epics:    make([]task.Epic, 0, len(s.Epics)),
		Subtasks: make([]task.Subtask, 0, len(s.Subtasks)),
	}
	for _, t := range s.Tasks {
		res.Tasks = append(res.Tasks, t.Clone())
	}
	for _, e := range s.Epics {
		res.Epics = append(res.Epics, e.Clone())
	}
	for _, st := range s.Subtasks {
		res.Subtasks = append(res.Subtasks, st.Clone())
	}
	return res
}

// SnapshotRepository сохраняет и загружает снимок целиком.
type SnapshotRepository interface {
	Save(context.Context, Snapshot) error
	Load(context.Context) (Snapshot, error)
	HealthCheck(context.Context) error
}
