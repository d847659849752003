package task

import (
	"fmt"
	"slices"
	"time"
)

// Task - самостоятельная единица работы. ID == 0 означает, что задача ещё не сохранена
// (или хранилище отклонило её создание).
type Task struct {
	ID          int
	Name        string
	Description string
	Status      Status
	Duration    *time.Duration
	StartTime   *time.Time
}

// Epic группирует подзадачи. Статус и временное окно эпика всегда вычисляются по подзадачам.
type Epic struct {
	Task
	SubtaskIDs []int
	End        *time.Time
}

// Subtask принадлежит ровно одному эпику.
type Subtask struct {
	Task
	EpicID int
}

type Status string
type Type string

const StatusNew Status = "NEW"
const StatusInProgress Status = "IN_PROGRESS"
const StatusDone Status = "DONE"

const TypeTask Type = "TASK"
const TypeEpic Type = "EPIC"
const TypeSubtask Type = "SUBTASK"

func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusInProgress, StatusDone:
		return true
	}
	return false
}

func ParseStatus(raw string) (Status, error) {
	status := Status(raw)
	if !status.Valid() {
		return "", fmt.Errorf("неизвестный статус %q", raw)
	}
	return status, nil
}

func ParseType(raw string) (Type, error) {
	switch t := Type(raw); t {
	case TypeTask, TypeEpic, TypeSubtask:
		return t, nil
	}
	return "", fmt.Errorf("неизвестный тип %q", raw)
}

// EndTime возвращает момент окончания; ok == false, если не задано время начала или длительность.
func (t Task) EndTime() (time.Time, bool) {
	if t.StartTime == nil || t.Duration == nil {
		return time.Time{}, false
	}
	return t.StartTime.Add(*t.Duration), true
}

// Equal сравнивает задачи только по идентификатору.
func (t Task) Equal(other Task) bool {
	return t.ID == other.ID
}

func (t Task) Timed() bool {
	return t.StartTime != nil
}

// Clone копирует задачу вместе со значениями под указателями.
func (t Task) Clone() Task {
	if t.Duration != nil {
		d := *t.Duration
		t.Duration = &d
	}
	if t.StartTime != nil {
		start := *t.StartTime
		t.StartTime = &start
	}
	return t
}

// EndTime эпика - наибольшее время окончания среди его подзадач.
func (e Epic) EndTime() (time.Time, bool) {
	if e.End == nil {
		return time.Time{}, false
	}
	return *e.End, true
}

func (e Epic) Clone() Epic {
	e.Task = e.Task.Clone()
	e.SubtaskIDs = slices.Clone(e.SubtaskIDs)
	if e.SubtaskIDs == nil {
		e.SubtaskIDs = []int{}
	}
	if e.End != nil {
		end := *e.End
		e.End = &end
	}
	return e
}

// AddSubtaskID добавляет подзадачу в конец списка; повторное добавление игнорируется.
func (e *Epic) AddSubtaskID(id int) {
	if slices.Contains(e.SubtaskIDs, id) {
		return
	}
	e.SubtaskIDs = append(e.SubtaskIDs, id)
}

func (e *Epic) RemoveSubtaskID(id int) {
	e.SubtaskIDs = slices.DeleteFunc(e.SubtaskIDs, func(v int) bool { return v == id })
}

func (e *Epic) ClearSubtaskIDs() {
	e.SubtaskIDs = []int{}
}

func (s Subtask) Clone() Subtask {
	s.Task = s.Task.Clone()
	return s
}
