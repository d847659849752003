// Package schedule хранит задачи с заданным временем начала, упорядоченные по нему,
// и не допускает пересечения их временных окон.
package schedule

import (
	"cmp"
	"slices"
	"time"

	"taskManager/internal/models/task"
)

// Index не потокобезопасен: синхронизацию обеспечивает владелец (хранилище).
type Index struct {
	items  []task.Task
	starts map[int]time.Time
}

func New() *Index {
	return &Index{
		items:  []task.Task{},
		starts: make(map[int]time.Time),
	}
}

// Interval возвращает полуоткрытый интервал [start, end) задачи.
// Задача без длительности считается интервалом нулевой длины.
func Interval(t task.Task) (time.Time, time.Time, bool) {
	if t.StartTime == nil {
		return time.Time{}, time.Time{}, false
	}
	end, ok := t.EndTime()
	if !ok {
		end = *t.StartTime
	}
	return *t.StartTime, end, true
}

// Overlaps - строгая проверка пересечения: касание концами пересечением не считается.
func Overlaps(a, b task.Task) bool {
	aStart, aEnd, ok := Interval(a)
	if !ok {
		return false
	}
	bStart, bEnd, ok := Interval(b)
	if !ok {
		return false
	}
	return bStart.Before(aEnd) && aStart.Before(bEnd)
}

// Conflict ищет в индексе задачу, пересекающуюся с t. Собственная запись t (по id) не учитывается.
func (x *Index) Conflict(t task.Task) (task.Task, bool) {
	_, end, ok := Interval(t)
	if !ok {
		return task.Task{}, false
	}
	for _, item := range x.items {
		if !item.StartTime.Before(end) {
			// дальше только задачи, начинающиеся не раньше конца t
			break
		}
		if t.ID != 0 && item.ID == t.ID {
			continue
		}
		if Overlaps(item, t) {
			return item.Clone(), true
		}
	}
	return task.Task{}, false
}

// Add вставляет задачу, заменяя прежнюю запись с тем же id.
// Возвращает false для задачи без времени начала или при пересечении.
func (x *Index) Add(t task.Task) bool {
	if !t.Timed() {
		return false
	}
	if _, conflict := x.Conflict(t); conflict {
		return false
	}
	x.Remove(t.ID)

	t = t.Clone()
	pos, _ := slices.BinarySearchFunc(x.items, t, compare)
	x.items = slices.Insert(x.items, pos, t)
	x.starts[t.ID] = *t.StartTime
	return true
}

func (x *Index) Remove(id int) bool {
	start, ok := x.starts[id]
	if !ok {
		return false
	}
	key := task.Task{ID: id, StartTime: &start}
	pos, found := slices.BinarySearchFunc(x.items, key, compare)
	if !found {
		return false
	}
	x.items = slices.Delete(x.items, pos, pos+1)
	delete(x.starts, id)
	return true
}

func (x *Index) Contains(id int) bool {
	_, ok := x.starts[id]
	return ok
}

// Items возвращает копию содержимого по возрастанию времени начала.
func (x *Index) Items() []task.Task {
	res := make([]task.Task, 0, len(x.items))
	for _, item := range x.items {
		res = append(res, item.Clone())
	}
	return res
}

func (x *Index) Len() int {
	return len(x.items)
}

func (x *Index) Clear() {
	x.items = []task.Task{}
	clear(x.starts)
}

func compare(a, b task.Task) int {
	if c := a.StartTime.Compare(*b.StartTime); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}
