package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"taskManager/internal/config"
	"taskManager/internal/handlers"
	"taskManager/internal/logger"
	"taskManager/internal/manager"
	"taskManager/internal/repository"
	"taskManager/internal/repository/task/file"
	"taskManager/internal/repository/task/inmemory"
	"taskManager/internal/repository/task/postgres"
	"taskManager/internal/service"
	"taskManager/internal/worker"

	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

const defaultShutdownTimeout = 15 * time.Second

type App struct {
	config     *config.Config
	server     *http.Server
	router     http.Handler
	repository repository.SnapshotRepository
	store      *manager.Backed
	service    handlers.Service
	worker     *worker.SnapshotWorker
	shutdowns  []func() // функции для graceful shutdown, вызываются в обратном порядке
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make([]func(), 0),
	}
}

func (a *App) Init(ctx context.Context) (*App, error) {
	if err := logger.Init(a.config.Logging.Development); err != nil {
		return nil, fmt.Errorf("инициализация логгера: %w", err)
	}

	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("Завершение работы логгирования...")
		logger.Sync()
	})

	tp := InitTracing()
	a.shutdowns = append(a.shutdowns, func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Warn("App: Ошибка остановки трассировки", zap.Error(err))
		}
	})

	repo, err := a.initRepository(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.repository = repo

	a.store = manager.NewBacked(repo, a.config.Repository.FlushInterval)
	if err := a.store.Load(ctx); err != nil {
		if !errors.Is(err, repository.ErrBrokenSnapshot) {
			a.Close()
			return nil, fmt.Errorf("восстановление хранилища: %w", err)
		}
		logger.Warn("App: Часть записей снимка пропущена", zap.Error(err))
	}

	if a.config.Repository.FlushInterval > 0 {
		interval := a.config.Repository.FlushInterval
		a.worker = worker.NewSnapshotWorker(a.store, &interval)
	}

	a.service = service.NewTaskService(a.store)
	handler := handlers.NewTaskHandler(a.service)
	a.router = NewRouter(&handler, a.config.Server)

	a.server = &http.Server{
		Addr:         a.config.GetServerAddr(),
		Handler:      a.router,
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
	}

	logger.Info("App: Приложение инициализировано",
		zap.String("addr", a.server.Addr),
		zap.String("repository", a.config.Repository.Type),
		zap.Duration("flush_interval", a.config.Repository.FlushInterval))
	return a, nil
}

func (a *App) initRepository(ctx context.Context) (repository.SnapshotRepository, error) {
	switch a.config.Repository.Type {
	case config.RepositoryFile:
		return file.New(a.config.Repository.FilePath), nil
	case config.RepositoryPostgres:
		db := a.config.Database
		if err := postgres.Migrate(db.URL); err != nil {
			return nil, fmt.Errorf("миграции: %w", err)
		}
		storage, err := postgres.New(ctx, postgres.Options{
			URL:          db.URL,
			MaxConns:     int32(db.MaxConnections),
			MinConns:     int32(db.MinConnections),
			IdleTimeout:  db.IdleTimeout,
			ConnectRetry: db.ConnectRetry,
		})
		if err != nil {
			return nil, fmt.Errorf("подключение к PostgreSQL: %w", err)
		}
		a.shutdowns = append(a.shutdowns, storage.Close)
		return storage, nil
	default:
		return inmemory.NewSnapshotStorage(), nil
	}
}

// Handler отдаёт собранный роутер; нужен для тестов без запуска сервера.
func (a *App) Handler() http.Handler {
	return a.router
}

// Run обслуживает запросы до отмены контекста, затем останавливает сервер и сохраняет снимок.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg conc.WaitGroup
	serveErr := make(chan error, 1)

	wg.Go(func() {
		logger.Info("App: Сервер запущен", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("App: Ошибка сервера", err)
			serveErr <- err
			cancel()
		}
	})

	if a.worker != nil {
		wg.Go(func() {
			a.worker.Start(ctx)
		})
	}

	<-ctx.Done()
	logger.Info("App: Остановка приложения")

	timeout := a.config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, stop := context.WithTimeout(context.Background(), timeout)
	defer stop()

	var errs []error
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("остановка сервера: %w", err))
	}
	wg.Wait()

	if err := a.store.Flush(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("финальное сохранение: %w", err))
	}

	select {
	case err := <-serveErr:
		errs = append(errs, err)
	default:
	}

	a.Close()
	return errors.Join(errs...)
}

func (a *App) Close() {
	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		a.shutdowns[i]()
	}
	a.shutdowns = nil
}
