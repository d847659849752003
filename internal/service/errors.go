package service

import (
	"fmt"

	"taskManager/internal/models/task"
)

const (
	CodeNotFound      = "NOT_FOUND"
	CodeValidation    = "VALIDATION_ERROR"
	CodeTimeConflict  = "TIME_CONFLICT"
	CodeEpicNotFound  = "EPIC_NOT_FOUND"
	CodeEpicMismatch  = "EPIC_MISMATCH"
	CodeStoreDegraded = "STORE_DEGRADED"
)

type BusinessError struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

type Detail struct {
	Key     string
	Payload any
}

func (b *BusinessError) Error() string {
	if b.Err != nil {
		return fmt.Sprintf("[%s] %s: %s", b.Code, b.Message, b.Err.Error())
	}
	return fmt.Sprintf("[%s] %s", b.Code, b.Message)
}

func (b *BusinessError) Unwrap() error {
	return b.Err
}

func ToDetail(key string, payload any) Detail {
	return Detail{
		Key:     key,
		Payload: payload,
	}
}

func NewBusinessError(code string, message string, details ...Detail) *BusinessError {
	busErr := &BusinessError{
		Code:    code,
		Message: message,
		Details: make(map[string]any),
	}

	for _, detail := range details {
		busErr.Details[detail.Key] = detail.Payload
	}

	return busErr
}

func NewNotFound(resource task.Type, id int) *BusinessError {
	return NewBusinessError(CodeNotFound,
		fmt.Sprintf("%s %d не найден(а)", resource, id),
		ToDetail("resource", resource),
		ToDetail("id", id),
	)
}

func NewValidationError(field, reason string) *BusinessError {
	return NewBusinessError(CodeValidation,
		fmt.Sprintf("Неверное значение поля '%s': %s", field, reason),
		ToDetail("field", field),
		ToDetail("reason", reason),
	)
}

// NewTimeConflict: conflictWith == 0, если пересекающуюся запись найти не удалось.
func NewTimeConflict(resource task.Type, conflictWith int) *BusinessError {
	details := []Detail{ToDetail("resource", resource)}
	if conflictWith != 0 {
		details = append(details, ToDetail("conflict_with", conflictWith))
	}
	return NewBusinessError(CodeTimeConflict,
		fmt.Sprintf("%s пересекается по времени с другой задачей", resource),
		details...,
	)
}

func NewEpicNotFound(epicID int) *BusinessError {
	return NewBusinessError(CodeEpicNotFound,
		fmt.Sprintf("эпик %d не найден", epicID),
		ToDetail("epic_id", epicID),
	)
}

func NewEpicMismatch(subtaskID, epicID int) *BusinessError {
	return NewBusinessError(CodeEpicMismatch,
		fmt.Sprintf("подзадача %d не принадлежит эпику %d", subtaskID, epicID),
		ToDetail("id", subtaskID),
		ToDetail("epic_id", epicID),
	)
}

func NewStoreDegraded(err error) *BusinessError {
	busErr := NewBusinessError(CodeStoreDegraded, "хранилище не может сохранить данные")
	busErr.Err = err
	return busErr
}
