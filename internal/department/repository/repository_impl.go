package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/missioncontrol/internal/department/domain"
	"gorm.io/gorm"
)

const departmentColumns = `id, name, slug, org_id, plan, created_at, updated_at`

type repo struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) WithTx(tx *gorm.DB) domain.Repository {
	return &repo{db: tx}
}

func (r *repo) FindByID(ctx context.Context, id snowflake.ID) (*domain.Department, error) {
	var item domain.Department
	err := r.db.WithContext(ctx).Raw(
		`SELECT `+departmentColumns+`
		 FROM departments
		 WHERE id = ?
		 LIMIT 1`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindBySlug(ctx context.Context, slug string) (*domain.Department, error) {
	var item domain.Department
	err := r.db.WithContext(ctx).Raw(
		`SELECT `+departmentColumns+`
		 FROM departments
		 WHERE slug = ?
		 LIMIT 1`,
		slug,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) Insert(ctx context.Context, department *domain.Department) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO departments (`+departmentColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		department.ID,
		department.Name,
		department.Slug,
		department.Org,
		department.Plan,
		department.CreatedAt,
		department.UpdatedAt,
	).Error
}

func (r *repo) ListByOrg(ctx context.Context, orgID snowflake.ID, limit int) ([]domain.Department, error) {
	var items []domain.Department
	err := r.db.WithContext(ctx).Raw(
		`SELECT `+departmentColumns+`
		 FROM departments
		 WHERE org_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		orgID,
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListAll(ctx context.Context) ([]domain.Department, error) {
	var items []domain.Department
	err := r.db.WithContext(ctx).Raw(
		`SELECT ` + departmentColumns + `
		 FROM departments
		 ORDER BY created_at DESC, id DESC`,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) CountByOrg(ctx context.Context, orgID snowflake.ID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM departments WHERE org_id = ?`,
		orgID,
	).Scan(&count).Error
	return count, err
}

func (r *repo) UpdateName(ctx context.Context, id snowflake.ID, name string, updatedAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE departments
		 SET name = ?, updated_at = ?
		 WHERE id = ?`,
		name,
		updatedAt,
		id,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) Delete(ctx context.Context, id snowflake.ID) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`DELETE FROM departments WHERE id = ?`, id)
	return res.RowsAffected, res.Error
}

func (r *repo) LinkAllToOrg(ctx context.Context, orgID snowflake.ID, updatedAt time.Time) (int64, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Raw(`SELECT COUNT(1) FROM departments`).Scan(&total).Error; err != nil {
		return 0, 0, err
	}

	res := r.db.WithContext(ctx).Exec(
		`UPDATE departments
		 SET org_id = ?, updated_at = ?
		 WHERE org_id IS NULL OR org_id <> ?`,
		orgID,
		updatedAt,
		orgID,
	)
	if res.Error != nil {
		return 0, 0, res.Error
	}
	return res.RowsAffected, total, nil
}

func (r *repo) FindMembership(ctx context.Context, departmentID, userID snowflake.ID) (*domain.Membership, error) {
	var item domain.Membership
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, department_id, user_id, role, joined_at
		 FROM department_memberships
		 WHERE department_id = ? AND user_id = ?
		 LIMIT 1`,
		departmentID,
		userID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) InsertMembership(ctx context.Context, membership *domain.Membership) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO department_memberships (id, department_id, user_id, role, joined_at)
		 VALUES (?, ?, ?, ?, ?)`,
		membership.ID,
		membership.DepartmentID,
		membership.UserID,
		membership.Role,
		membership.JoinedAt,
	).Error
}

func (r *repo) ListMembershipsByUser(ctx context.Context, userID snowflake.ID) ([]domain.Membership, error) {
	var items []domain.Membership
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, department_id, user_id, role, joined_at
		 FROM department_memberships
		 WHERE user_id = ?
		 ORDER BY joined_at ASC, id ASC`,
		userID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
