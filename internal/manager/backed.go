package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"taskManager/internal/logger"
	"taskManager/internal/models/task"
	"taskManager/internal/repository"

	"go.uber.org/zap"
)

// Backed - хранилище в памяти, которое сохраняет снимок в репозиторий после каждой
// успешной мутации. При отложенном режиме мутация только помечает снимок устаревшим,
// а сохраняет его Flush (см. worker.SnapshotWorker).
// Ошибка сохранения не откатывает мутацию: она логируется и отдаётся через HealthCheck.
type Backed struct {
	*InMemory

	repo     repository.SnapshotRepository
	deferred bool

	saveMtx sync.Mutex
	dirty   bool
	lastErr error
}

var _ Manager = (*Backed)(nil)

// NewBacked: flushInterval == 0 - синхронное сохранение, иначе отложенное.
func NewBacked(repo repository.SnapshotRepository, flushInterval time.Duration) *Backed {
	return &Backed{
		InMemory: NewInMemory(),
		repo:     repo,
		deferred: flushInterval > 0,
	}
}

// Load восстанавливает хранилище из репозитория. Ошибка с repository.ErrBrokenSnapshot
// означает, что часть записей пропущена, но остальные загружены.
func (b *Backed) Load(ctx context.Context) error {
	snap, err := b.repo.Load(ctx)
	if err != nil && !errors.Is(err, repository.ErrBrokenSnapshot) {
		return fmt.Errorf("загрузка снимка: %w", err)
	}
	return errors.Join(err, b.InMemory.Restore(snap))
}

// Flush сохраняет снимок, если с прошлого сохранения были изменения.
func (b *Backed) Flush(ctx context.Context) error {
	b.saveMtx.Lock()
	defer b.saveMtx.Unlock()

	if !b.dirty {
		return nil
	}
	return b.saveLocked(ctx)
}

func (b *Backed) saveLocked(ctx context.Context) error {
	start := time.Now()
	snap := b.InMemory.Snapshot()

	if err := b.repo.Save(ctx, snap); err != nil {
		b.lastErr = err
		logger.Error("Manager: Ошибка сохранения снимка", err, zap.Int("entities", snap.Len()))
		return fmt.Errorf("сохранение снимка: %w", err)
	}

	b.dirty = false
	b.lastErr = nil
	logger.Debug("Manager: Снимок сохранён",
		zap.Int("entities", snap.Len()),
		zap.Duration("ms", time.Since(start)))
	return nil
}

func (b *Backed) changed() {
	b.saveMtx.Lock()
	defer b.saveMtx.Unlock()

	b.dirty = true
	if b.deferred {
		return
	}
	_ = b.saveLocked(context.Background())
}

func (b *Backed) Dirty() bool {
	b.saveMtx.Lock()
	defer b.saveMtx.Unlock()
	return b.dirty
}

func (b *Backed) HealthCheck(ctx context.Context) error {
	b.saveMtx.Lock()
	lastErr := b.lastErr
	b.saveMtx.Unlock()

	if lastErr != nil {
		return fmt.Errorf("последнее сохранение не удалось: %w", lastErr)
	}
	return b.repo.HealthCheck(ctx)
}

func (b *Backed) CreateTask(t task.Task) task.Task {
	created := b.InMemory.CreateTask(t)
	if created.ID != 0 {
		b.changed()
	}
	return created
}

func (b *Backed) CreateEpic(e task.Epic) task.Epic {
	created := b.InMemory.CreateEpic(e)
	b.changed()
	return created
}

func (b *Backed) CreateSubtask(st task.Subtask) task.Subtask {
	created := b.InMemory.CreateSubtask(st)
	if created.ID != 0 {
		b.changed()
	}
	return created
}

func (b *Backed) UpdateTask(t task.Task) bool {
	return b.ifChanged(b.InMemory.UpdateTask(t))
}

func (b *Backed) UpdateEpic(e task.Epic) bool {
	return b.ifChanged(b.InMemory.UpdateEpic(e))
}

func (b *Backed) UpdateSubtask(st task.Subtask) bool {
	return b.ifChanged(b.InMemory.UpdateSubtask(st))
}

func (b *Backed) DeleteTaskByID(id int) (task.Task, bool) {
	removed, ok := b.InMemory.DeleteTaskByID(id)
	b.ifChanged(ok)
	return removed, ok
}

func (b *Backed) DeleteEpicByID(id int) (task.Epic, bool) {
	removed, ok := b.InMemory.DeleteEpicByID(id)
	b.ifChanged(ok)
	return removed, ok
}

func (b *Backed) DeleteSubtaskByID(id int) (task.Subtask, bool) {
	removed, ok := b.InMemory.DeleteSubtaskByID(id)
	b.ifChanged(ok)
	return removed, ok
}

func (b *Backed) DeleteAllTasks() {
	b.InMemory.DeleteAllTasks()
	b.changed()
}

func (b *Backed) DeleteAllEpics() {
	b.InMemory.DeleteAllEpics()
	b.changed()
}

func (b *Backed) DeleteAllSubtasks() {
	b.InMemory.DeleteAllSubtasks()
	b.changed()
}

func (b *Backed) ifChanged(ok bool) bool {
	if ok {
		b.changed()
	}
	return ok
}
