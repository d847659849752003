package dto

import (
	"fmt"
	"math"
	"time"

	"taskManager/internal/history"
	"taskManager/internal/models/task"
)

// Длительность передаётся в минутах, время - в RFC3339.

type TaskRequest struct {
	ID          int        `json:"id,omitempty"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Status      string     `json:"status,omitempty"`
	Duration    *int64     `json:"duration,omitempty"`
	StartTime   *time.Time `json:"start_time,omitempty"`
}

type SubtaskRequest struct {
	TaskRequest
	EpicID int `json:"epic_id"`
}

type EpicRequest struct {
	ID          int    `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type TaskResponse struct {
	ID          int        `json:"id"`
	Type        task.Type  `json:"type,omitempty"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Duration    *int64     `json:"duration,omitempty"`
	StartTime   *time.Time `json:"start_time,omitempty"`
	EndTime     *time.Time `json:"end_time,omitempty"`
}

type EpicResponse struct {
	TaskResponse
	SubtaskIDs []int `json:"subtask_ids"`
}

type SubtaskResponse struct {
	TaskResponse
	EpicID int `json:"epic_id"`
}

type CreatedResponse struct {
	ID int `json:"id"`
}

// MaxDurationMinutes - наибольшая длительность, которая помещается в time.Duration.
const MaxDurationMinutes = math.MaxInt64 / int64(time.Minute)

func (r TaskRequest) Validate() error {
	if r.Duration != nil && *r.Duration > MaxDurationMinutes {
		return fmt.Errorf("duration больше допустимого (%d минут)", MaxDurationMinutes)
	}
	return nil
}

// ToTask собирает задачу из запроса; пустой статус остаётся пустым и заменяется сервисом на NEW.
func (r TaskRequest) ToTask() task.Task {
	t := task.Task{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Status:      task.Status(r.Status),
	}
	if r.Duration != nil {
		d := time.Duration(*r.Duration) * time.Minute
		t.Duration = &d
	}
	if r.StartTime != nil {
		start := *r.StartTime
		t.StartTime = &start
	}
	return t
}

func (r SubtaskRequest) ToSubtask() task.Subtask {
	return task.Subtask{Task: r.TaskRequest.ToTask(), EpicID: r.EpicID}
}

func (r EpicRequest) ToEpic() task.Epic {
	epic := task.NewEpic(r.Name, r.Description)
	epic.ID = r.ID
	return epic
}

func FromTask(t task.Task) TaskResponse {
	res := TaskResponse{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Status:      string(t.Status),
	}
	if t.Duration != nil {
		minutes := int64(*t.Duration / time.Minute)
		res.Duration = &minutes
	}
	if t.StartTime != nil {
		start := *t.StartTime
		res.StartTime = &start
	}
	if end, ok := t.EndTime(); ok {
		res.EndTime = &end
	}
	return res
}

func FromTyped(t task.Task, kind task.Type) TaskResponse {
	res := FromTask(t)
	res.Type = kind
	return res
}

func FromEpic(e task.Epic) EpicResponse {
	res := EpicResponse{
		TaskResponse: FromTyped(e.Task, task.TypeEpic),
		SubtaskIDs:   e.SubtaskIDs,
	}
	if res.SubtaskIDs == nil {
		res.SubtaskIDs = []int{}
	}
	res.EndTime = nil
	if end, ok := e.EndTime(); ok {
		res.EndTime = &end
	}
	return res
}

func FromSubtask(st task.Subtask) SubtaskResponse {
	return SubtaskResponse{
		TaskResponse: FromTyped(st.Task, task.TypeSubtask),
		EpicID:       st.EpicID,
	}
}

// FromHistory отдаёт записи истории с типом сущности.
func FromHistory(entries []history.Entry) []TaskResponse {
	result := make([]TaskResponse, len(entries))
	for i, e := range entries {
		result[i] = FromTyped(e.Task, e.Type)
	}
	return result
}

func FromTaskList(tasks []task.Task) []TaskResponse {
	result := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = FromTask(t)
	}
	return result
}

func FromTypedList(tasks []task.Task, kind task.Type) []TaskResponse {
	result := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = FromTyped(t, kind)
	}
	return result
}

func FromEpicList(epics []task.Epic) []EpicResponse {
	result := make([]EpicResponse, len(epics))
	for i, e := range epics {
		result[i] = FromEpic(e)
	}
	return result
}

func FromSubtaskList(subtasks []task.Subtask) []SubtaskResponse {
	result := make([]SubtaskResponse, len(subtasks))
	for i, st := range subtasks {
		result[i] = FromSubtask(st)
	}
	return result
}
