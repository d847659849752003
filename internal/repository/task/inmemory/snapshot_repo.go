package inmemory

import (
	"context"
	"sync"

	"taskManager/internal/logger"
	"taskManager/internal/repository"

	"go.uber.org/zap"
)

// SnapshotStorage держит последний сохранённый снимок в памяти процесса.
type SnapshotStorage struct {
	snapshot repository.Snapshot
	saves    int
	mtx      *sync.RWMutex
}

var _ repository.SnapshotRepository = (*SnapshotStorage)(nil)

func NewSnapshotStorage() *SnapshotStorage {
	return &SnapshotStorage{
		mtx: &sync.RWMutex{},
	}
}

func (s *SnapshotStorage) HealthCheck(ctx context.Context) error {
	logger.Debug("Repository: Хранилище в памяти доступно")
	return nil
}

func (s *SnapshotStorage) Save(ctx context.Context, snap repository.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.snapshot = snap.Clone()
	s.saves++
	logger.Debug("Repository: Снимок сохранён в памяти", zap.Int("entities", snap.Len()))
	return nil
}

func (s *SnapshotStorage) Load(ctx context.Context) (repository.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return repository.Snapshot{}, err
	}

	s.mtx.RLock()
	defer s.mtx.RUnlock()

	return s.snapshot.Clone(), nil
}

// Saves - число успешных сохранений.
func (s *SnapshotStorage) Saves() int {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.saves
}
