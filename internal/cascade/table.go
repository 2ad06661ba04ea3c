// Package cascade deletes department-scoped records on behalf of the
// packages that own them.
package cascade

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	departmentdomain "github.com/smallbiznis/missioncontrol/internal/department/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// GroupTag is the fx value group collecting every registered Cascader.
const GroupTag = `group:"department.cascaders"`

// Table removes rows of one table keyed by a department column.
type Table struct {
	Name   string
	Table  string
	Column string
}

// NewTable returns a cascader for table using the department_id column.
func NewTable(name, table string) Table {
	return Table{Name: name, Table: table, Column: "department_id"}
}

func (t Table) Collection() string {
	return t.Name
}

func (t Table) CountByDepartment(ctx context.Context, db *gorm.DB, departmentID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Table(t.Table).
		Where(fmt.Sprintf("%s = ?", t.Column), departmentID).
		Count(&count).Error
	return count, err
}

func (t Table) DeleteByDepartment(ctx context.Context, db *gorm.DB, departmentID snowflake.ID) (int64, error) {
	res := db.WithContext(ctx).Exec(
		fmt.Sprintf(`DELETE FROM %s WHERE %s = ?`, t.Table, t.Column),
		departmentID,
	)
	return res.RowsAffected, res.Error
}

// Provide annotates a cascader constructor into the department.cascaders group.
func Provide(ctor any) fx.Option {
	return fx.Provide(fx.Annotate(ctor,
		fx.As(new(departmentdomain.Cascader)),
		fx.ResultTags(GroupTag),
	))
}

// Supply registers fixed cascaders into the department.cascaders group.
func Supply(tables ...Table) fx.Option {
	opts := make([]fx.Option, 0, len(tables))
	for _, table := range tables {
		table := table
		opts = append(opts, Provide(func() Table { return table }))
	}
	return fx.Options(opts...)
}

var _ departmentdomain.Cascader = Table{}
