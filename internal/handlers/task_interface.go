package handlers

import (
	"context"

	"taskManager/internal/history"
	"taskManager/internal/models/task"
)

type Service interface {
	HealthCheck(context.Context) error

	CreateTask(context.Context, task.Task) (task.Task, error)
	UpdateTask(context.Context, task.Task) error
	GetTaskByID(context.Context, int) (task.Task, error)
	GetAllTasks(context.Context) []task.Task
	DeleteTaskByID(context.Context, int) (task.Task, error)
	DeleteAllTasks(context.Context)

	CreateEpic(context.Context, task.Epic) (task.Epic, error)
	UpdateEpic(context.Context, task.Epic) error
	GetEpicByID(context.Context, int) (task.Epic, error)
	GetAllEpics(context.Context) []task.Epic
	GetEpicSubtasks(context.Context, int) ([]task.Subtask, error)
	DeleteEpicByID(context.Context, int) (task.Epic, error)
	DeleteAllEpics(context.Context)

	CreateSubtask(context.Context, task.Subtask) (task.Subtask, error)
	UpdateSubtask(context.Context, task.Subtask) error
	GetSubtaskByID(context.Context, int) (task.Subtask, error)
	GetAllSubtasks(context.Context) []task.Subtask
	DeleteSubtaskByID(context.Context, int) (task.Subtask, error)
	DeleteAllSubtasks(context.Context)

	GetPrioritizedTasks(context.Context) []task.Task
	GetHistory(context.Context) []history.Entry
}
