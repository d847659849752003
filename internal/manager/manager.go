// Package manager - хранилище задач, эпиков и подзадач с производным состоянием эпиков,
// индексом расписания и историей обращений.
//
// Отказы не являются ошибками: создание возвращает сущность с ID == 0, обновление - false,
// поиск и удаление - ok == false. Любой отказ оставляет состояние без изменений.
package manager

import (
	"taskManager/internal/history"
	"taskManager/internal/models/task"
)

type Manager interface {
	CreateTask(task.Task) task.Task
	CreateEpic(task.Epic) task.Epic
	CreateSubtask(task.Subtask) task.Subtask

	UpdateTask(task.Task) bool
	UpdateEpic(task.Epic) bool
	UpdateSubtask(task.Subtask) bool

	GetTaskByID(int) (task.Task, bool)
	GetEpicByID(int) (task.Epic, bool)
	GetSubtaskByID(int) (task.Subtask, bool)

	GetAllTasks() []task.Task
	GetAllEpics() []task.Epic
	GetAllSubtasks() []task.Subtask
	GetEpicSubtasks(epicID int) []task.Subtask

	DeleteTaskByID(int) (task.Task, bool)
	DeleteEpicByID(int) (task.Epic, bool)
	DeleteSubtaskByID(int) (task.Subtask, bool)

	DeleteAllTasks()
	DeleteAllEpics()
	DeleteAllSubtasks()

	GetPrioritizedTasks() []task.Task
	GetHistory() []history.Entry

	// Kind сообщает тип сущности с данным id, не записывая обращение в историю.
	Kind(int) (task.Type, bool)
}
