// Package history запоминает порядок обращений к задачам.
package history

import "taskManager/internal/models/task"

// Entry - запись истории: снимок задачи и её тип на момент обращения.
type Entry struct {
	task.Task
	Type task.Type
}

type node struct {
	prev  *node
	next  *node
	entry Entry
}

// Tracker - словарь id -> узел поверх двусвязного списка. head - самое старое обращение,
// tail - самое свежее. Повторное обращение переносит запись в конец.
// Не потокобезопасен: синхронизацию обеспечивает хранилище.
type Tracker struct {
	nodes map[int]*node
	head  *node
	tail  *node
}

func New() *Tracker {
	return &Tracker{
		nodes: make(map[int]*node),
	}
}

// Record сохраняет тип и снимок id, названия, описания и статуса на момент обращения.
func (h *Tracker) Record(t task.Task, kind task.Type) {
	if old, ok := h.nodes[t.ID]; ok {
		h.unlink(old)
	}
	n := &node{
		entry: Entry{
			Task: task.Task{
				ID:          t.ID,
				Name:        t.Name,
				Description: t.Description,
				Status:      t.Status,
			},
			Type: kind,
		},
	}
	h.linkLast(n)
	h.nodes[t.ID] = n
}

func (h *Tracker) Remove(id int) {
	n, ok := h.nodes[id]
	if !ok {
		return
	}
	h.unlink(n)
	delete(h.nodes, id)
}

// History возвращает записи от самой старой к самой свежей.
func (h *Tracker) History() []Entry {
	res := make([]Entry, 0, len(h.nodes))
	for n := h.head; n != nil; n = n.next {
		res = append(res, n.entry)
	}
	return res
}

func (h *Tracker) Len() int {
	return len(h.nodes)
}

func (h *Tracker) linkLast(n *node) {
	n.prev = h.tail
	n.next = nil
	if h.tail == nil {
		h.head = n
	} else {
		h.tail.next = n
	}
	h.tail = n
}

func (h *Tracker) unlink(n *node) {
	if n.prev == nil {
		h.head = n.next
	} else {
		n.prev.next = n.next
	}
	if n.next == nil {
		h.tail = n.prev
	} else {
		n.next.prev = n.prev
	}
	n.prev = nil
	n.next = nil
}
