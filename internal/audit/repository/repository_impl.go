package repository

import (
	"context"
	"strings"

	"github.com/smallbiznis/missioncontrol/internal/audit/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// Insert writes through db, so callers inside a transaction pass tx and the
// entry commits or rolls back with the change it records.
func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.AuditLog) error {
	if entry == nil {
		return nil
	}
	return db.WithContext(ctx).Create(entry).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.AuditLog, error) {
	query := `SELECT id, org_id, actor_type, actor_id, action, target_type, target_id,
			metadata, ip_address, user_agent, created_at
		FROM audit_logs
		WHERE org_id = ?`
	args := []any{filter.OrgID}

	if action := strings.TrimSpace(filter.Action); action != "" {
		if strings.HasSuffix(action, ".*") {
			query += ` AND action LIKE ?`
			args = append(args, strings.TrimSuffix(action, "*")+"%")
		} else {
			query += ` AND action = ?`
			args = append(args, action)
		}
	}

	query += ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	var logs []domain.AuditLog
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
