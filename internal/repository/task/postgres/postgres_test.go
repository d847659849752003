package postgres_test

import (
	"context"
	"fmt"
	"taskManager/internal/models/task"
	"taskManager/internal/repository"
	"taskManager/internal/repository/task/postgres"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresTestSuite для интеграционных тестов с PostgreSQL
type PostgresTestSuite struct {
	suite.Suite
	container  testcontainers.Container
	storage    *postgres.Storage
	ctx        context.Context
	connString string
}

// SetupSuite запускается один раз перед всеми тестами
func (s *PostgresTestSuite) SetupSuite() {
	s.ctx = context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(s.ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(s.T(), err)
	s.container = container

	host, err := container.Host(s.ctx)
	require.NoError(s.T(), err)

	port, err := container.MappedPort(s.ctx, "5432")
	require.NoError(s.T(), err)

	s.connString = fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	require.NoError(s.T(), postgres.Migrate(s.connString))
	// повторный запуск миграций ничего не ломает
	require.NoError(s.T(), postgres.Migrate(s.connString))

	s.storage, err = postgres.New(s.ctx, postgres.Options{
		URL:          s.connString,
		MaxConns:     4,
		MinConns:     1,
		ConnectRetry: 10 * time.Second,
	})
	require.NoError(s.T(), err)
}

// TearDownSuite очищает после всех тестов
func (s *PostgresTestSuite) TearDownSuite() {
	if s.storage != nil {
		s.storage.Close()
	}
	if s.container != nil {
		s.container.Terminate(s.ctx)
	}
}

// SetupTest запускается перед каждым тестом
func (s *PostgresTestSuite) SetupTest() {
	s.exec("DELETE FROM tasks")
}

func (s *PostgresTestSuite) exec(query string, args ...any) {
	conn, err := pgx.Connect(s.ctx, s.connString)
	require.NoError(s.T(), err)
	defer conn.Close(s.ctx)

	_, err = conn.Exec(s.ctx, query, args...)
	require.NoError(s.T(), err)
}

func TestPostgresTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Пропускаем интеграционные тесты в коротком режиме")
	}
	suite.Run(t, new(PostgresTestSuite))
}

func (s *PostgresTestSuite) TestStorage_HealthCheck() {
	s.NoError(s.storage.HealthCheck(s.ctx))
}

func (s *PostgresTestSuite) TestStorage_LoadEmpty() {
	snap, err := s.storage.Load(s.ctx)
	s.Require().NoError(err)
	s.Equal(0, snap.Len())
}

func (s *PostgresTestSuite) TestStorage_SaveLoad() {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	epic := task.NewEpic("epic", "desc")
	epic.ID = 2

	snap := repository.Snapshot{
		Tasks: []task.Task{
			task.New("plain", "", task.WithID(1)),
			task.New("timed", "", task.WithID(4), task.WithStatus(task.StatusDone), task.WithWindow(start, 90*time.Minute)),
		},
		Epics: []task.Epic{epic},
		Subtasks: []task.Subtask{
			task.NewSubtask("sub", "", 2, task.WithID(3), task.WithDuration(time.Minute)),
		},
	}
	s.Require().NoError(s.storage.Save(s.ctx, snap))

	loaded, err := s.storage.Load(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(loaded.Tasks, 2)
	s.Require().Len(loaded.Epics, 1)
	s.Require().Len(loaded.Subtasks, 1)

	timed := loaded.Tasks[1]
	s.Equal(4, timed.ID)
	s.Equal(task.StatusDone, timed.Status)
	s.Require().NotNil(timed.StartTime)
	s.True(start.Equal(*timed.StartTime))
	s.Equal(90*time.Minute, *timed.Duration)
	s.Nil(loaded.Tasks[0].StartTime)
	s.Nil(loaded.Tasks[0].Duration)

	s.Equal("desc", loaded.Epics[0].Description)
	s.Equal(2, loaded.Subtasks[0].EpicID)
	s.Equal(time.Minute, *loaded.Subtasks[0].Duration)
}

func (s *PostgresTestSuite) TestStorage_SaveReplaces() {
	first := repository.Snapshot{Tasks: []task.Task{
		task.New("a", "", task.WithID(1)),
		task.New("b", "", task.WithID(2)),
	}}
	s.Require().NoError(s.storage.Save(s.ctx, first))

	second := repository.Snapshot{Tasks: []task.Task{task.New("c", "", task.WithID(3))}}
	s.Require().NoError(s.storage.Save(s.ctx, second))

	loaded, err := s.storage.Load(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(loaded.Tasks, 1)
	s.Equal("c", loaded.Tasks[0].Name)
}

func (s *PostgresTestSuite) TestStorage_SaveDuplicateRollsBack() {
	s.Require().NoError(s.storage.Save(s.ctx, repository.Snapshot{Tasks: []task.Task{task.New("a", "", task.WithID(1))}}))

	broken := repository.Snapshot{Tasks: []task.Task{
		task.New("x", "", task.WithID(5)),
		task.New("y", "", task.WithID(5)),
	}}
	s.Error(s.storage.Save(s.ctx, broken))

	// прежний снимок на месте
	loaded, err := s.storage.Load(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(loaded.Tasks, 1)
	s.Equal("a", loaded.Tasks[0].Name)
}

func (s *PostgresTestSuite) TestStorage_LoadSubtaskWithoutEpic() {
	s.exec(`INSERT INTO tasks (id, kind, name, status) VALUES (7, 'SUBTASK', 'orphan', 'NEW'), (8, 'TASK', 'ok', 'NEW')`)

	loaded, err := s.storage.Load(s.ctx)
	s.Require().Error(err)
	s.ErrorIs(err, repository.ErrBrokenSnapshot)
	s.Empty(loaded.Subtasks)
	s.Len(loaded.Tasks, 1)
}
