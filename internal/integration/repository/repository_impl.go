package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/missioncontrol/internal/integration/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) WithTx(tx *gorm.DB) domain.Repository {
	return &repo{db: tx}
}

func (r *repo) FindByOrgAndType(ctx context.Context, orgID snowflake.ID, integrationType string) (*domain.Integration, error) {
	var item domain.Integration
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, org_id, department_id, type, name, config, auth_type, status,
		        last_sync_at, last_error, created_at, updated_at
		 FROM integrations
		 WHERE org_id = ? AND type = ?
		 LIMIT 1`,
		orgID, integrationType,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) Insert(ctx context.Context, item *domain.Integration) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repo) Update(ctx context.Context, item *domain.Integration) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE integrations
		 SET name = ?, department_id = ?, config = ?, status = ?,
		     last_sync_at = ?, last_error = ?, updated_at = ?
		 WHERE id = ?`,
		item.Name,
		item.DepartmentID,
		item.Config,
		item.Status,
		item.LastSyncAt,
		item.LastError,
		item.UpdatedAt,
		item.ID,
	).Error
}
