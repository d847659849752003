package manager

import (
	"sync"
	"taskManager/internal/history"
	"taskManager/internal/models/task"
	"taskManager/internal/repository"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var noon = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return time.Date(2024, 5, 1, hour, minute, 0, 0, time.UTC)
}

func taskIDs(tasks []task.Task) []int {
	ids := make([]int, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	return ids
}

func historyIDs(entries []history.Entry) []int {
	ids := make([]int, 0, len(entries))
	for _, t := range entries {
		ids = append(ids, t.ID)
	}
	return ids
}

// TestInMemory_CreateTask тестирует создание задач и выдачу id
func TestInMemory_CreateTask(t *testing.T) {
	s := NewInMemory()

	first := s.CreateTask(task.New("Homework1", "Do my homework1"))
	second := s.CreateTask(task.New("Homework2", "", task.WithID(42)))
	epic := s.CreateEpic(task.NewEpic("Epic", ""))

	assert.Equal(t, 1, first.ID)
	// переданный id игнорируется
	assert.Equal(t, 2, second.ID)
	// один счётчик на все виды сущностей
	assert.Equal(t, 3, epic.ID)

	stored, ok := s.GetTaskByID(1)
	require.True(t, ok)
	assert.Equal(t, "Homework1", stored.Name)
	assert.Equal(t, task.StatusNew, stored.Status)
}

// TestInMemory_ValuesAreCopies проверяет, что наружу отдаются копии
func TestInMemory_ValuesAreCopies(t *testing.T) {
	s := NewInMemory()
	input := task.New("a", "", task.WithWindow(noon, time.Hour))
	created := s.CreateTask(input)

	*input.Duration = time.Minute
	*created.Duration = 2 * time.Minute
	got, ok := s.GetTaskByID(created.ID)
	require.True(t, ok)
	*got.StartTime = noon.Add(time.Hour)

	again, ok := s.GetTaskByID(created.ID)
	require.True(t, ok)
	assert.Equal(t, time.Hour, *again.Duration)
	assert.True(t, noon.Equal(*again.StartTime))

	epic := s.CreateEpic(task.NewEpic("e", ""))
	s.CreateSubtask(task.NewSubtask("s", "", epic.ID))
	loaded, _ := s.GetEpicByID(epic.ID)
	loaded.SubtaskIDs[0] = 100
	reloaded, _ := s.GetEpicByID(epic.ID)
	assert.NotEqual(t, 100, reloaded.SubtaskIDs[0])
}

// TestInMemory_EpicAggregation повторяет сценарий вычисления статуса и времени эпика
func TestInMemory_EpicAggregation(t *testing.T) {
	s := NewInMemory()

	epic := s.CreateEpic(task.NewEpic("Epic", "desc"))
	got, ok := s.GetEpicByID(epic.ID)
	require.True(t, ok)
	assert.Equal(t, task.StatusNew, got.Status)
	assert.Nil(t, got.StartTime)
	assert.Nil(t, got.Duration)
	assert.Nil(t, got.End)

	s1 := s.CreateSubtask(task.NewSubtask("S1", "", epic.ID, task.WithWindow(noon, 15*time.Minute)))
	require.NotZero(t, s1.ID)
	got, _ = s.GetEpicByID(epic.ID)
	assert.Equal(t, task.StatusNew, got.Status)
	require.NotNil(t, got.StartTime)
	require.NotNil(t, got.Duration)
	assert.True(t, noon.Equal(*got.StartTime))
	assert.Equal(t, 15*time.Minute, *got.Duration)

	s2 := s.CreateSubtask(task.NewSubtask("S2", "", epic.ID, task.WithStatus(task.StatusInProgress)))
	require.NotZero(t, s2.ID)
	got, _ = s.GetEpicByID(epic.ID)
	assert.Equal(t, task.StatusInProgress, got.Status)
	assert.True(t, noon.Equal(*got.StartTime))
	assert.Equal(t, 15*time.Minute, *got.Duration)
	assert.Equal(t, []int{s1.ID, s2.ID}, got.SubtaskIDs)

	s1.Status = task.StatusDone
	s2.Status = task.StatusDone
	require.True(t, s.UpdateSubtask(s1))
	require.True(t, s.UpdateSubtask(s2))
	got, _ = s.GetEpicByID(epic.ID)
	assert.Equal(t, task.StatusDone, got.Status)
}

// TestInMemory_UpdateSubtaskWindow проверяет пересчёт окна эпика при переносе подзадачи
func TestInMemory_UpdateSubtaskWindow(t *testing.T) {
	s := NewInMemory()
	epic := s.CreateEpic(task.NewEpic("Epic", ""))
	a := s.CreateSubtask(task.NewSubtask("A", "", epic.ID, task.WithWindow(at(9, 0), time.Hour)))
	b := s.CreateSubtask(task.NewSubtask("B", "", epic.ID, task.WithWindow(at(12, 0), time.Hour)))
	require.NotZero(t, a.ID)
	require.NotZero(t, b.ID)

	got, _ := s.GetEpicByID(epic.ID)
	assert.True(t, at(9, 0).Equal(*got.StartTime))
	assert.True(t, at(13, 0).Equal(*got.End))

	// перенос A позже B: начало эпика сдвигается на B, конец - на A
	a.StartTime = ptr(at(13, 0))
	require.True(t, s.UpdateSubtask(a))
	got, _ = s.GetEpicByID(epic.ID)
	require.NotNil(t, got.StartTime)
	require.NotNil(t, got.End)
	assert.True(t, at(12, 0).Equal(*got.StartTime))
	assert.Equal(t, 2*time.Hour, *got.Duration)
	assert.True(t, at(14, 0).Equal(*got.End))

	a.Duration = ptr(90 * time.Minute)
	require.True(t, s.UpdateSubtask(a))
	got, _ = s.GetEpicByID(epic.ID)
	assert.Equal(t, 150*time.Minute, *got.Duration)
	assert.True(t, at(14, 30).Equal(*got.End))

	// B на 14:00 пересекается с A (13:00-14:30): отказ без изменений
	moved := b
	moved.StartTime = ptr(at(14, 0))
	assert.False(t, s.UpdateSubtask(moved))

	stored, ok := s.GetSubtaskByID(b.ID)
	require.True(t, ok)
	assert.True(t, at(12, 0).Equal(*stored.StartTime))
	got, _ = s.GetEpicByID(epic.ID)
	assert.True(t, at(12, 0).Equal(*got.StartTime))
	assert.Equal(t, 150*time.Minute, *got.Duration)
	assert.True(t, at(14, 30).Equal(*got.End))
	assert.Equal(t, []int{b.ID, a.ID}, taskIDs(s.GetPrioritizedTasks()))
}

// TestInMemory_CreateSubtaskWithoutEpic проверяет отказ без существующего эпика
func TestInMemory_CreateSubtaskWithoutEpic(t *testing.T) {
	s := NewInMemory()
	plain := s.CreateTask(task.New("task", ""))

	rejected := s.CreateSubtask(task.NewSubtask("s", "", 99))
	assert.Zero(t, rejected.ID)

	// id обычной задачи - не эпик
	rejected = s.CreateSubtask(task.NewSubtask("s", "", plain.ID))
	assert.Zero(t, rejected.ID)
	assert.Empty(t, s.GetAllSubtasks())
}

// TestInMemory_OverlapRejected повторяет сценарий отказа при пересечении окон
func TestInMemory_OverlapRejected(t *testing.T) {
	s := NewInMemory()

	a := s.CreateTask(task.New("A", "", task.WithWindow(at(12, 0), 15*time.Minute)))
	require.NotZero(t, a.ID)

	b := s.CreateTask(task.New("B", "", task.WithWindow(at(11, 55), 15*time.Minute)))
	assert.Zero(t, b.ID)

	prioritized := s.GetPrioritizedTasks()
	require.Len(t, prioritized, 1)
	assert.Equal(t, a.ID, prioritized[0].ID)
	assert.Len(t, s.GetAllTasks(), 1)

	// смежные окна не пересекаются
	c := s.CreateTask(task.New("C", "", task.WithWindow(at(12, 15), 15*time.Minute)))
	assert.NotZero(t, c.ID)

	// подзадачи и задачи делят одно расписание
	epic := s.CreateEpic(task.NewEpic("e", ""))
	sub := s.CreateSubtask(task.NewSubtask("s", "", epic.ID, task.WithWindow(at(12, 20), 5*time.Minute)))
	assert.Zero(t, sub.ID)
	assert.Empty(t, s.GetEpicSubtasks(epic.ID))
}

// TestInMemory_PrioritizedOrder проверяет порядок по времени начала
func TestInMemory_PrioritizedOrder(t *testing.T) {
	s := NewInMemory()
	epic := s.CreateEpic(task.NewEpic("e", ""))

	late := s.CreateTask(task.New("late", "", task.WithWindow(at(15, 0), time.Hour)))
	s.CreateTask(task.New("untimed", ""))
	early := s.CreateSubtask(task.NewSubtask("early", "", epic.ID, task.WithWindow(at(9, 0), time.Hour)))
	mid := s.CreateTask(task.New("mid", "", task.WithStartTime(at(11, 0))))

	assert.Equal(t, []int{early.ID, mid.ID, late.ID}, taskIDs(s.GetPrioritizedTasks()))

	// эпики в расписание не попадают
	for _, item := range s.GetPrioritizedTasks() {
		assert.NotEqual(t, epic.ID, item.ID)
	}
}

// TestInMemory_UpdateTask тестирует обновление задачи и переиндексацию
func TestInMemory_UpdateTask(t *testing.T) {
	s := NewInMemory()
	a := s.CreateTask(task.New("A", "", task.WithWindow(at(10, 0), time.Hour)))
	b := s.CreateTask(task.New("B", "", task.WithWindow(at(12, 0), time.Hour)))

	// сдвиг в пределах собственного окна не считается конфликтом
	a.StartTime = ptr(at(10, 30))
	require.True(t, s.UpdateTask(a))

	// пересечение с другой задачей отклоняется и ничего не меняет
	moved := a.Clone()
	moved.StartTime = ptr(at(12, 30))
	assert.False(t, s.UpdateTask(moved))
	stored, _ := s.GetTaskByID(a.ID)
	assert.True(t, at(10, 30).Equal(*stored.StartTime))

	// снятие времени убирает задачу из расписания
	a.StartTime = nil
	require.True(t, s.UpdateTask(a))
	assert.Equal(t, []int{b.ID}, taskIDs(s.GetPrioritizedTasks()))

	assert.False(t, s.UpdateTask(task.New("ghost", "", task.WithID(100))))
}

// TestInMemory_UpdateEpic проверяет, что меняются только название и описание
func TestInMemory_UpdateEpic(t *testing.T) {
	s := NewInMemory()
	epic := s.CreateEpic(task.NewEpic("old", "old desc"))
	sub := s.CreateSubtask(task.NewSubtask("s", "", epic.ID, task.WithStatus(task.StatusDone)))

	update := task.NewEpic("new", "new desc")
	update.ID = epic.ID
	update.Status = task.StatusNew
	update.SubtaskIDs = []int{}
	require.True(t, s.UpdateEpic(update))

	got, _ := s.GetEpicByID(epic.ID)
	assert.Equal(t, "new", got.Name)
	assert.Equal(t, "new desc", got.Description)
	assert.Equal(t, task.StatusDone, got.Status)
	assert.Equal(t, []int{sub.ID}, got.SubtaskIDs)

	update.ID = 999
	assert.False(t, s.UpdateEpic(update))
}

// TestInMemory_UpdateSubtaskEpicMismatch проверяет отказ при смене эпика
func TestInMemory_UpdateSubtaskEpicMismatch(t *testing.T) {
	s := NewInMemory()
	first := s.CreateEpic(task.NewEpic("first", ""))
	second := s.CreateEpic(task.NewEpic("second", ""))
	sub := s.CreateSubtask(task.NewSubtask("s", "", first.ID))

	sub.EpicID = second.ID
	sub.Status = task.StatusDone
	assert.False(t, s.UpdateSubtask(sub))

	assert.Len(t, s.GetEpicSubtasks(first.ID), 1)
	assert.Empty(t, s.GetEpicSubtasks(second.ID))
	got, _ := s.GetSubtaskByID(sub.ID)
	assert.Equal(t, task.StatusNew, got.Status)
}

// TestInMemory_History повторяет сценарий порядка истории просмотров
func TestInMemory_History(t *testing.T) {
	s := NewInMemory()
	epic := s.CreateEpic(task.NewEpic("epic", ""))
	sub1 := s.CreateSubtask(task.NewSubtask("sub1", "", epic.ID))
	sub2 := s.CreateSubtask(task.NewSubtask("sub2", "", epic.ID))

	assert.Empty(t, s.GetHistory())

	s.GetEpicByID(epic.ID)
	s.GetSubtaskByID(sub1.ID)
	s.GetSubtaskByID(sub2.ID)
	s.GetSubtaskByID(sub1.ID)

	assert.Equal(t, []int{epic.ID, sub2.ID, sub1.ID}, historyIDs(s.GetHistory()))

	// промах не попадает в историю, как и выборка списков
	s.GetTaskByID(999)
	s.GetAllSubtasks()
	s.GetEpicSubtasks(epic.ID)
	assert.Len(t, s.GetHistory(), 3)
}

// TestInMemory_DeleteTaskByID тестирует удаление задачи
func TestInMemory_DeleteTaskByID(t *testing.T) {
	s := NewInMemory()
	a := s.CreateTask(task.New("A", "", task.WithWindow(noon, time.Hour)))
	s.GetTaskByID(a.ID)

	removed, ok := s.DeleteTaskByID(a.ID)
	require.True(t, ok)
	assert.Equal(t, "A", removed.Name)
	assert.Empty(t, s.GetPrioritizedTasks())
	assert.Empty(t, s.GetHistory())

	_, ok = s.DeleteTaskByID(a.ID)
	assert.False(t, ok)

	// освободившееся окно снова доступно
	b := s.CreateTask(task.New("B", "", task.WithWindow(noon, time.Hour)))
	assert.NotZero(t, b.ID)
}

// TestInMemory_DeleteByIDKeepsOtherKinds проверяет, что промах по виду не трогает историю других сущностей
func TestInMemory_DeleteByIDKeepsOtherKinds(t *testing.T) {
	s := NewInMemory()
	a := s.CreateTask(task.New("A", ""))
	s.GetTaskByID(a.ID)

	_, ok := s.DeleteEpicByID(a.ID)
	assert.False(t, ok)
	_, ok = s.DeleteSubtaskByID(a.ID)
	assert.False(t, ok)

	assert.Equal(t, []int{a.ID}, historyIDs(s.GetHistory()))
}

// TestInMemory_DeleteEpicCascade тестирует каскадное удаление подзадач
func TestInMemory_DeleteEpicCascade(t *testing.T) {
	s := NewInMemory()
	epic := s.CreateEpic(task.NewEpic("epic", ""))
	other := s.CreateEpic(task.NewEpic("other", ""))
	sub1 := s.CreateSubtask(task.NewSubtask("sub1", "", epic.ID, task.WithWindow(noon, time.Hour)))
	sub2 := s.CreateSubtask(task.NewSubtask("sub2", "", epic.ID))
	kept := s.CreateSubtask(task.NewSubtask("kept", "", other.ID))

	s.GetEpicByID(epic.ID)
	s.GetSubtaskByID(sub1.ID)
	s.GetSubtaskByID(kept.ID)

	removed, ok := s.DeleteEpicByID(epic.ID)
	require.True(t, ok)
	assert.Equal(t, []int{sub1.ID, sub2.ID}, removed.SubtaskIDs)

	_, ok = s.GetSubtaskByID(sub1.ID)
	assert.False(t, ok)
	_, ok = s.GetSubtaskByID(sub2.ID)
	assert.False(t, ok)
	assert.Empty(t, s.GetPrioritizedTasks())

	history := historyIDs(s.GetHistory())
	assert.NotContains(t, history, epic.ID)
	assert.NotContains(t, history, sub1.ID)
	assert.Contains(t, history, kept.ID)

	assert.Len(t, s.GetAllSubtasks(), 1)
}

// TestInMemory_DeleteSubtaskByID проверяет пересчёт эпика после удаления подзадачи
func TestInMemory_DeleteSubtaskByID(t *testing.T) {
	s := NewInMemory()
	epic := s.CreateEpic(task.NewEpic("epic", ""))
	done := s.CreateSubtask(task.NewSubtask("done", "", epic.ID, task.WithStatus(task.StatusDone)))
	fresh := s.CreateSubtask(task.NewSubtask("new", "", epic.ID, task.WithWindow(noon, time.Hour)))

	got, _ := s.GetEpicByID(epic.ID)
	assert.Equal(t, task.StatusInProgress, got.Status)
	require.NotNil(t, got.StartTime)

	_, ok := s.DeleteSubtaskByID(fresh.ID)
	require.True(t, ok)

	got, _ = s.GetEpicByID(epic.ID)
	assert.Equal(t, task.StatusDone, got.Status)
	assert.Nil(t, got.StartTime)
	assert.Equal(t, []int{done.ID}, got.SubtaskIDs)
	assert.Empty(t, s.GetPrioritizedTasks())
}

// TestInMemory_DeleteAll тестирует массовое удаление по видам
func TestInMemory_DeleteAll(t *testing.T) {
	s := NewInMemory()
	a := s.CreateTask(task.New("A", "", task.WithWindow(at(9, 0), time.Hour)))
	epic := s.CreateEpic(task.NewEpic("epic", ""))
	sub := s.CreateSubtask(task.NewSubtask("sub", "", epic.ID,
		task.WithWindow(at(11, 0), time.Hour), task.WithStatus(task.StatusDone)))
	s.GetTaskByID(a.ID)
	s.GetSubtaskByID(sub.ID)

	s.DeleteAllSubtasks()
	assert.Empty(t, s.GetAllSubtasks())
	got, _ := s.GetEpicByID(epic.ID)
	assert.Empty(t, got.SubtaskIDs)
	assert.Equal(t, task.StatusNew, got.Status)
	assert.Nil(t, got.StartTime)
	assert.Equal(t, []int{a.ID}, taskIDs(s.GetPrioritizedTasks()))
	assert.Equal(t, []int{a.ID, epic.ID}, historyIDs(s.GetHistory()))

	s.DeleteAllTasks()
	assert.Empty(t, s.GetAllTasks())
	assert.Empty(t, s.GetPrioritizedTasks())
	assert.Equal(t, []int{epic.ID}, historyIDs(s.GetHistory()))

	s.CreateSubtask(task.NewSubtask("again", "", epic.ID, task.WithWindow(at(9, 0), time.Hour)))
	s.DeleteAllEpics()
	assert.Empty(t, s.GetAllEpics())
	assert.Empty(t, s.GetAllSubtasks())
	assert.Empty(t, s.GetPrioritizedTasks())
	assert.Empty(t, s.GetHistory())

	// id не переиспользуются
	next := s.CreateTask(task.New("next", ""))
	assert.Greater(t, next.ID, sub.ID)
}

// TestInMemory_Kind проверяет определение вида сущности без записи в историю
func TestInMemory_Kind(t *testing.T) {
	s := NewInMemory()
	a := s.CreateTask(task.New("A", ""))
	epic := s.CreateEpic(task.NewEpic("epic", ""))
	sub := s.CreateSubtask(task.NewSubtask("sub", "", epic.ID))

	tests := []struct {
		id   int
		want task.Type
		ok   bool
	}{
		{id: a.ID, want: task.TypeTask, ok: true},
		{id: epic.ID, want: task.TypeEpic, ok: true},
		{id: sub.ID, want: task.TypeSubtask, ok: true},
		{id: 100, ok: false},
	}
	for _, tt := range tests {
		kind, ok := s.Kind(tt.id)
		assert.Equal(t, tt.ok, ok)
		assert.Equal(t, tt.want, kind)
	}
	assert.Empty(t, s.GetHistory())
}

// TestInMemory_SnapshotRestore тестирует восстановление из снимка
func TestInMemory_SnapshotRestore(t *testing.T) {
	s := NewInMemory()
	s.CreateTask(task.New("A", "", task.WithWindow(at(9, 0), time.Hour)))
	epic := s.CreateEpic(task.NewEpic("epic", ""))
	s.CreateSubtask(task.NewSubtask("sub", "", epic.ID,
		task.WithWindow(at(11, 0), time.Hour), task.WithStatus(task.StatusInProgress)))

	restored := NewInMemory()
	require.NoError(t, restored.Restore(s.Snapshot()))

	assert.Equal(t, s.GetAllTasks(), restored.GetAllTasks())
	assert.Equal(t, s.GetAllEpics(), restored.GetAllEpics())
	assert.Equal(t, s.GetAllSubtasks(), restored.GetAllSubtasks())
	assert.Equal(t, s.GetPrioritizedTasks(), restored.GetPrioritizedTasks())

	// счётчик продолжается с наибольшего id
	next := restored.CreateTask(task.New("next", ""))
	assert.Equal(t, 4, next.ID)
}

// TestInMemory_RestoreSkipsBroken проверяет пропуск некорректных записей
func TestInMemory_RestoreSkipsBroken(t *testing.T) {
	epic := task.NewEpic("epic", "")
	epic.ID = 1
	epic.Status = task.StatusDone

	snap := repository.Snapshot{
		Epics: []task.Epic{epic},
		Tasks: []task.Task{
			task.New("ok", "", task.WithID(2), task.WithWindow(at(9, 0), time.Hour)),
			task.New("overlap", "", task.WithID(3), task.WithWindow(at(9, 30), time.Hour)),
			task.New("duplicate", "", task.WithID(1)),
			{ID: 4, Name: "bad status", Status: "LATER"},
		},
		Subtasks: []task.Subtask{
			task.NewSubtask("orphan", "", 50, task.WithID(5)),
			task.NewSubtask("sub", "", 1, task.WithID(9)),
		},
	}

	s := NewInMemory()
	err := s.Restore(snap)
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrBrokenSnapshot)

	assert.Equal(t, []int{2}, taskIDs(s.GetAllTasks()))
	assert.Len(t, s.GetAllSubtasks(), 1)

	// сохранённый статус эпика не используется
	got, ok := s.GetEpicByID(1)
	require.True(t, ok)
	assert.Equal(t, task.StatusNew, got.Status)
	assert.Equal(t, []int{9}, got.SubtaskIDs)

	next := s.CreateTask(task.New("next", ""))
	assert.Equal(t, 10, next.ID)
}

// TestInMemory_Concurrent проверяет отсутствие гонок и потерянных обновлений
func TestInMemory_Concurrent(t *testing.T) {
	s := NewInMemory()
	epic := s.CreateEpic(task.NewEpic("epic", ""))

	const workers = 8
	const perWorker = 50

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				start := noon.Add(time.Duration(w*perWorker+i) * time.Hour)
				created := s.CreateSubtask(task.NewSubtask("s", "", epic.ID, task.WithWindow(start, time.Minute)))
				s.GetSubtaskByID(created.ID)
				s.GetPrioritizedTasks()
				s.GetHistory()
			}
		}(w)
	}
	wg.Wait()

	got, _ := s.GetEpicByID(epic.ID)
	assert.Len(t, got.SubtaskIDs, workers*perWorker)
	assert.Len(t, s.GetPrioritizedTasks(), workers*perWorker)
	assert.Len(t, s.GetHistory(), workers*perWorker+1)
}

func ptr[T any](v T) *T {
	return &v
}
