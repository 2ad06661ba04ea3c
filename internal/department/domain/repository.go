package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id snowflake.ID) (*Department, error)
	FindBySlug(ctx context.Context, slug string) (*Department, error)
	Insert(ctx context.Context, department *Department) error
	ListByOrg(ctx context.Context, orgID snowflake.ID, limit int) ([]Department, error)
	ListAll(ctx context.Context) ([]Department, error)
	CountByOrg(ctx context.Context, orgID snowflake.ID) (int64, error)
	UpdateName(ctx context.Context, id snowflake.ID, name string, updatedAt time.Time) (bool, error)
	Delete(ctx context.Context, id snowflake.ID) (int64, error)
	LinkAllToOrg(ctx context.Context, orgID snowflake.ID, updatedAt time.Time) (updated int64, total int64, err error)

	FindMembership(ctx context.Context, departmentID, userID snowflake.ID) (*Membership, error)
	InsertMembership(ctx context.Context, membership *Membership) error
	ListMembershipsByUser(ctx context.Context, userID snowflake.ID) ([]Membership, error)
}
