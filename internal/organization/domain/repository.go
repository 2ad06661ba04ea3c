package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("organization_not_found")

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, orgID snowflake.ID) (*Organization, error)
	FindMember(ctx context.Context, orgID, userID snowflake.ID) (*OrganizationMember, error)
}
