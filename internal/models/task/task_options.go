package task

import (
	"time"
)

type TaskOption func(*Task)

// New собирает задачу со статусом NEW; опции со значением nil пропускаются.
func New(name, description string, opts ...TaskOption) Task {
	t := Task{
		Name:        name,
		Description: description,
		Status:      StatusNew,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&t)
	}
	return t
}

func NewEpic(name, description string) Epic {
	return Epic{
		Task:       New(name, description),
		SubtaskIDs: []int{},
	}
}

func NewSubtask(name, description string, epicID int, opts ...TaskOption) Subtask {
	return Subtask{
		Task:   New(name, description, opts...),
		EpicID: epicID,
	}
}

func WithID(id int) TaskOption {
	return func(task *Task) {
		task.ID = id
	}
}

func WithStatus(status Status) TaskOption {
	if status == "" {
		return nil
	}
	return func(task *Task) {
		task.Status = status
	}
}

func WithDuration(duration time.Duration) TaskOption {
	if duration < 0 {
		return nil
	}
	return func(task *Task) {
		task.Duration = &duration
	}
}

func WithStartTime(startTime time.Time) TaskOption {
	if startTime.IsZero() {
		return nil
	}
	return func(task *Task) {
		task.StartTime = &startTime
	}
}

// WithWindow задаёт начало и длительность одновременно.
func WithWindow(startTime time.Time, duration time.Duration) TaskOption {
	if startTime.IsZero() || duration < 0 {
		return nil
	}
	return func(task *Task) {
		task.StartTime = &startTime
		task.Duration = &duration
	}
}
