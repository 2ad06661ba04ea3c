package cascade

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.Exec(`CREATE TABLE tasks (id INTEGER PRIMARY KEY, department_id BIGINT NOT NULL)`).Error)
	return db
}

func TestRegistryOrdersAndRejectsDuplicates(t *testing.T) {
	reg, err := NewRegistry(NewTable("tasks", "tasks"), NewTable("agents", "agents"))
	require.NoError(t, err)
	assert.Equal(t, []string{"agents", "tasks"}, reg.Collections())

	_, err = NewRegistry(NewTable("tasks", "tasks"), NewTable("tasks", "tasks_v2"))
	assert.Error(t, err)

	_, err = NewRegistry(NewTable(" ", "tasks"))
	assert.Error(t, err)
}

func TestTableCountAndDelete(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	dept := snowflake.ID(10)
	other := snowflake.ID(11)

	for i, d := range []snowflake.ID{dept, dept, other} {
		require.NoError(t, db.Exec(`INSERT INTO tasks (id, department_id) VALUES (?, ?)`, i+1, d).Error)
	}

	table := NewTable("tasks", "tasks")
	count, err := table.CountByDepartment(ctx, db, dept)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	deleted, err := table.DeleteByDepartment(ctx, db, dept)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	count, err = table.CountByDepartment(ctx, db, other)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
