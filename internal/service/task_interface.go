package service

import (
	"context"

	"taskManager/internal/manager"
)

// Store - хранилище сущностей с проверкой состояния постоянного хранения.
type Store interface {
	manager.Manager
	HealthCheck(context.Context) error
}
