// Package file сохраняет снимок хранилища в CSV-файл:
// id,type,name,status,description,start_time,duration,epic_id
package file

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"taskManager/internal/logger"
	"taskManager/internal/models/task"
	"taskManager/internal/repository"

	"go.uber.org/zap"
)

var header = []string{"id", "type", "name", "status", "description", "start_time", "duration", "epic_id"}

type Storage struct {
	path string
}

var _ repository.SnapshotRepository = (*Storage)(nil)

func New(path string) *Storage {
	return &Storage{path: path}
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	dir := filepath.Dir(s.path)
	info, err := os.Stat(dir)
	if err != nil {
		logger.Error("Repository: Каталог файла недоступен", err, zap.String("path", s.path))
		return fmt.Errorf("проверка каталога: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s не является каталогом", dir)
	}
	return nil
}

// Save пишет снимок во временный файл и переименовывает его поверх основного,
// чтобы при сбое не остался наполовину записанный файл.
func (s *Storage) Save(ctx context.Context, snap repository.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".tasks-*.csv")
	if err != nil {
		return fmt.Errorf("создание временного файла: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := writeSnapshot(tmp, snap); err != nil {
		tmp.Close()
		return fmt.Errorf("запись в файл: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("закрытие файла: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("замена файла: %w", err)
	}

	if time.Since(start) > time.Millisecond*100 {
		logger.Warn("Repository: Медленная операция", zap.Duration("ms", time.Since(start)))
	}
	return nil
}

// Load читает снимок. Отсутствующий файл - пустой снимок. Строки, которые не удалось
// разобрать, пропускаются; причины возвращаются ошибкой с repository.ErrBrokenSnapshot
// вместе с остальной частью снимка.
func (s *Storage) Load(ctx context.Context) (repository.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return repository.Snapshot{}, err
	}

	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Info("Repository: Файл не найден, начинаем с пустого хранилища", zap.String("path", s.path))
		return repository.Snapshot{}, nil
	}
	if err != nil {
		return repository.Snapshot{}, fmt.Errorf("открытие файла: %w", err)
	}
	defer f.Close()

	return readSnapshot(f)
}

func writeSnapshot(w io.Writer, snap repository.Snapshot) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, t := range snap.Tasks {
		if err := cw.Write(record(t, task.TypeTask, "")); err != nil {
			return err
		}
	}
	for _, e := range snap.Epics {
		if err := cw.Write(record(e.Task, task.TypeEpic, "")); err != nil {
			return err
		}
	}
	for _, st := range snap.Subtasks {
		if err := cw.Write(record(st.Task, task.TypeSubtask, strconv.Itoa(st.EpicID))); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func record(t task.Task, kind task.Type, epic string) []string {
	var start, duration string
	if t.StartTime != nil {
		start = t.StartTime.UTC().Format(time.RFC3339Nano)
	}
	if t.Duration != nil {
		duration = t.Duration.String()
	}
	return []string{
		strconv.Itoa(t.ID),
		string(kind),
		t.Name,
		string(t.Status),
		t.Description,
		start,
		duration,
		epic,
	}
}

func readSnapshot(r io.Reader) (repository.Snapshot, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(header)

	snap := repository.Snapshot{}
	var errs []error
	line := 0
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) && errors.Is(parseErr.Err, csv.ErrFieldCount) {
				errs = append(errs, fmt.Errorf("строка %d: %w: %w", line, err, repository.ErrBrokenSnapshot))
				continue
			}
			return snap, fmt.Errorf("чтение файла: %w", err)
		}
		if line == 1 && row[0] == header[0] {
			continue
		}
		if err := appendRecord(&snap, row); err != nil {
			errs = append(errs, fmt.Errorf("строка %d: %w: %w", line, err, repository.ErrBrokenSnapshot))
		}
	}
	return snap, errors.Join(errs...)
}

func appendRecord(snap *repository.Snapshot, row []string) error {
	id, err := strconv.Atoi(row[0])
	if err != nil {
		return fmt.Errorf("id %q: %w", row[0], err)
	}
	kind, err := task.ParseType(row[1])
	if err != nil {
		return err
	}
	t := task.Task{
		ID:          id,
		Name:        row[2],
		Status:      task.Status(row[3]),
		Description: row[4],
	}
	if row[5] != "" {
		start, err := time.Parse(time.RFC3339Nano, row[5])
		if err != nil {
			return fmt.Errorf("start_time %q: %w", row[5], err)
		}
		t.StartTime = &start
	}
	if row[6] != "" {
		duration, err := time.ParseDuration(row[6])
		if err != nil {
			return fmt.Errorf("duration %q: %w", row[6], err)
		}
		t.Duration = &duration
	}

	switch kind {
	case task.TypeTask:
		snap.Tasks = append(snap.Tasks, t)
	case task.TypeEpic:
		snap.Epics = append(snap.Epics, task.Epic{Task: t, SubtaskIDs: []int{}})
	case task.TypeSubtask:
		epicID, err := strconv.Atoi(row[7])
		if err != nil {
			return fmt.Errorf("epic %q: %w", row[7], err)
		}
		snap.Subtasks = append(snap.Subtasks, task.Subtask{Task: t, EpicID: epicID})
	}
	return nil
}
