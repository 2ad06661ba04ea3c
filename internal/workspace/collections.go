// Package workspace registers the department-scoped collections written by
// the task, messaging, document and telemetry subsystems so that department
// removal can cascade into them.
package workspace

import (
	"context"
	"fmt"

	"github.com/smallbiznis/missioncontrol/internal/cascade"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// Tables lists the workspace collections keyed by department_id.
var Tables = []string{
	"tasks",
	"messages",
	"thread_read_markers",
	"activity_log",
	"documents",
	"notifications",
	"thread_subscriptions",
	"execution_runs",
	"ux_events",
}

func Cascaders() []cascade.Table {
	out := make([]cascade.Table, 0, len(Tables))
	for _, table := range Tables {
		out = append(out, cascade.NewTable(table, table))
	}
	return out
}

// EnsureTables creates minimal workspace tables when they do not exist yet.
// Postgres deployments get the full schema from migrations instead.
func EnsureTables(ctx context.Context, db *gorm.DB) error {
	for _, table := range Tables {
		stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id BIGINT PRIMARY KEY,
			department_id BIGINT NOT NULL,
			payload TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`, table)
		if err := db.WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("ensure %s: %w", table, err)
		}
		idx := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS ix_%s_department_id ON %s (department_id)`, table, table)
		if err := db.WithContext(ctx).Exec(idx).Error; err != nil {
			return fmt.Errorf("ensure %s index: %w", table, err)
		}
	}
	return nil
}

var Module = fx.Module("workspace.collections",
	cascade.Supply(Cascaders()...),
)
