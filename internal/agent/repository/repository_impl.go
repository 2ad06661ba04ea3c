package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/missioncontrol/internal/agent/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindBySessionKey(ctx context.Context, db *gorm.DB, departmentID snowflake.ID, sessionKey string) (*domain.Agent, error) {
	var item domain.Agent
	err := db.WithContext(ctx).Raw(
		`SELECT id, department_id, slug, name, role, level, status, session_key, created_at
		 FROM agents
		 WHERE department_id = ? AND session_key = ?
		 LIMIT 1`,
		departmentID,
		sessionKey,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, agent *domain.Agent) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO agents (id, department_id, slug, name, role, level, status, session_key, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		agent.ID,
		agent.DepartmentID,
		agent.Slug,
		agent.Name,
		agent.Role,
		agent.Level,
		agent.Status,
		agent.SessionKey,
		agent.CreatedAt,
	).Error
}

func (r *repo) ListByDepartment(ctx context.Context, db *gorm.DB, departmentID snowflake.ID) ([]domain.Agent, error) {
	var items []domain.Agent
	err := db.WithContext(ctx).Raw(
		`SELECT id, department_id, slug, name, role, level, status, session_key, created_at
		 FROM agents
		 WHERE department_id = ?
		 ORDER BY created_at ASC, id ASC`,
		departmentID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
