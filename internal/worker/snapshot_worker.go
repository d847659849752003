package worker

import (
	"context"
	"time"

	"taskManager/internal/logger"

	"go.uber.org/zap"
)

// Flusher сохраняет накопленные изменения хранилища.
type Flusher interface {
	Flush(context.Context) error
	Dirty() bool
}

type SnapshotWorker struct {
	store        Flusher
	interval     time.Duration
	flushTimeout time.Duration
}

func NewSnapshotWorker(store Flusher, interval *time.Duration) *SnapshotWorker {
	var intervalToSet time.Duration
	if interval == nil || *interval <= 0 {
		intervalToSet = 5 * time.Second
	} else {
		intervalToSet = *interval
	}

	return &SnapshotWorker{
		store:        store,
		interval:     intervalToSet,
		flushTimeout: 10 * time.Second,
	}
}

// Start сохраняет снимок по таймеру до отмены контекста, затем делает последнее сохранение.
func (w *SnapshotWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logger.Info("Worker: Фоновое сохранение запущено", zap.Duration("interval", w.interval))

	for {
		select {
		case <-ticker.C:
			w.Flush(ctx)
		case <-ctx.Done():
			logger.Info("Worker: Фоновое сохранение останавливается")

			final, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.flushTimeout)
			w.Flush(final)
			cancel()
			return
		}
	}
}

func (w *SnapshotWorker) Flush(ctx context.Context) {
	if !w.store.Dirty() {
		return
	}

	start := time.Now()
	if err := w.store.Flush(ctx); err != nil {
		logger.Warn("Worker: Ошибка сохранения снимка", zap.Error(err))
		return
	}
	logger.Info("Worker: Снимок сохранён", zap.Duration("ms", time.Since(start)))
}
