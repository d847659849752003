package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskManager/internal/logger"
	"taskManager/internal/models/task"
	"taskManager/internal/repository"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrations embed.FS

var columns = []string{"id", "kind", "name", "description", "status", "start_time", "duration_ns", "epic_id"}

type Options struct {
	URL          string
	MaxConns     int32
	MinConns     int32
	IdleTimeout  time.Duration
	ConnectRetry time.Duration
}

type Storage struct {
	pool *pgxpool.Pool
}

var _ repository.SnapshotRepository = (*Storage)(nil)

func New(ctx context.Context, opts Options) (*Storage, error) {
	config, err := pgxpool.ParseConfig(opts.URL)
	if err != nil {
		logger.Error("Repository: Ошибка загрузки конфига", err)
		return nil, fmt.Errorf("загрузка конфига: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnIdleTime = time.Minute * 5
	if opts.MaxConns > 0 {
		config.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		config.MinConns = opts.MinConns
	}
	if opts.IdleTimeout > 0 {
		config.MaxConnIdleTime = opts.IdleTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		logger.Error("Repository: Ошибка создания пула", err)
		return nil, fmt.Errorf("создание пула: %w", err)
	}

	// база может подниматься дольше приложения
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = opts.ConnectRetry
	attempt := 0
	ping := func() error {
		attempt++
		if err := pool.Ping(ctx); err != nil {
			logger.Warn("Repository: Неудачная проверка ping", zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		return nil
	}
	if opts.ConnectRetry <= 0 {
		err = ping()
	} else {
		err = backoff.Retry(ping, backoff.WithContext(b, ctx))
	}
	if err != nil {
		pool.Close()
		logger.Error("Repository: Неудачная проверка ping", err, zap.Int("attempts", attempt))
		return nil, fmt.Errorf("проверка соединения ping: %w", err)
	}

	logger.Info("Repository: Успешное создание подключения к PostgreSQL")
	return &Storage{pool: pool}, nil
}

// Migrate применяет встроенные миграции. Отсутствие новых миграций ошибкой не считается.
func Migrate(url string) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("источник миграций: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, migrationURL(url))
	if err != nil {
		logger.Error("Repository: Ошибка подготовки миграций", err)
		return fmt.Errorf("подготовка миграций: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Error("Repository: Ошибка применения миграций", err)
		return fmt.Errorf("применение миграций: %w", err)
	}

	version, _, _ := m.Version()
	logger.Info("Repository: Миграции применены", zap.Uint("version", version))
	return nil
}

// migrationURL переводит адрес postgres:// на схему драйвера pgx5://.
func migrationURL(url string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(url, prefix) {
			return "pgx5://" + strings.TrimPrefix(url, prefix)
		}
	}
	return url
}

func (s *Storage) Close() {
	s.pool.Close()
	logger.Info("Repository: Закрытие всех соединений PostgreSQL")
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	err := s.pool.Ping(ctx)
	if err != nil {
		logger.Error("Repository: Неудачная проверка ping", err)
		return fmt.Errorf("проверка соединения ping: %w", err)
	}
	return nil
}

// Save заменяет содержимое таблицы снимком в одной транзакции.
func (s *Storage) Save(ctx context.Context, snap repository.Snapshot) error {
	start := time.Now()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		logger.Error("Repository: Не удалось начать транзакцию", err)
		return fmt.Errorf("начало транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM tasks`); err != nil {
		logger.Error("Repository: Не удалось очистить таблицу", err)
		return fmt.Errorf("очистка таблицы: %w", err)
	}

	rows := make([][]any, 0, snap.Len())
	for _, t := range snap.Tasks {
		rows = append(rows, row(t, task.TypeTask, nil))
	}
	for _, e := range snap.Epics {
		rows = append(rows, row(e.Task, task.TypeEpic, nil))
	}
	for _, st := range snap.Subtasks {
		epicID := st.EpicID
		rows = append(rows, row(st.Task, task.TypeSubtask, &epicID))
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"tasks"}, columns, pgx.CopyFromRows(rows)); err != nil {
		logger.Error("Repository: Не удалось записать снимок", err, zap.Int("rows", len(rows)))
		return fmt.Errorf("запись снимка: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		logger.Error("Repository: Не удалось зафиксировать транзакцию", err)
		return fmt.Errorf("фиксация транзакции: %w", err)
	}

	if time.Since(start) > time.Millisecond*100 {
		logger.Warn("Repository: Медленная операция", zap.Duration("ms", time.Since(start)))
	}
	return nil
}

func row(t task.Task, kind task.Type, epicID *int) []any {
	var duration *int64
	if t.Duration != nil {
		ns := t.Duration.Nanoseconds()
		duration = &ns
	}
	return []any{t.ID, string(kind), t.Name, t.Description, string(t.Status), t.StartTime, duration, epicID}
}

// Load читает снимок. Записи неизвестного вида пропускаются с repository.ErrBrokenSnapshot.
func (s *Storage) Load(ctx context.Context) (repository.Snapshot, error) {
	start := time.Now()

	query := `SELECT id, kind, name, description, status, start_time, duration_ns, epic_id
			FROM tasks
			ORDER BY id`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		logger.Error("Repository: Не удалось прочитать снимок", err)
		return repository.Snapshot{}, fmt.Errorf("чтение снимка: %w", err)
	}
	defer rows.Close()

	snap := repository.Snapshot{}
	var errs []error
	for rows.Next() {
		var (
			t        task.Task
			kind     string
			status   string
			duration *int64
			epicID   *int
		)
		if err := rows.Scan(&t.ID, &kind, &t.Name, &t.Description, &status, &t.StartTime, &duration, &epicID); err != nil {
			return repository.Snapshot{}, fmt.Errorf("сканирование строки: %w", err)
		}
		t.Status = task.Status(status)
		if duration != nil {
			d := time.Duration(*duration)
			t.Duration = &d
		}

		switch task.Type(kind) {
		case task.TypeTask:
			snap.Tasks = append(snap.Tasks, t)
		case task.TypeEpic:
			snap.Epics = append(snap.Epics, task.Epic{Task: t, SubtaskIDs: []int{}})
		case task.TypeSubtask:
			if epicID == nil {
				errs = append(errs, fmt.Errorf("подзадача %d без эпика: %w", t.ID, repository.ErrBrokenSnapshot))
				continue
			}
			snap.Subtasks = append(snap.Subtasks, task.Subtask{Task: t, EpicID: *epicID})
		default:
			errs = append(errs, fmt.Errorf("запись %d: вид %q: %w", t.ID, kind, repository.ErrBrokenSnapshot))
		}
	}
	if err := rows.Err(); err != nil {
		return repository.Snapshot{}, fmt.Errorf("чтение строк: %w", err)
	}

	if time.Since(start) > time.Millisecond*100 {
		logger.Warn("Repository: Медленная операция", zap.Duration("ms", time.Since(start)))
	}
	return snap, errors.Join(errs...)
}
