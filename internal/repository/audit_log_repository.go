package repository

import (
	"context"

	"app/internal/domain/model"
)

type AuditLogFilter struct {
	Page  int
	Limit int
}

type AuditLogRepository interface {
	Create(ctx context.Context, log model.AuditLog) error
	List(ctx context.Context, f AuditLogFilter) ([]model.AuditLog, error)
}
