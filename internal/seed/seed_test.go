package seed

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/missioncontrol/internal/auditcontext"
	departmentdomain "github.com/smallbiznis/missioncontrol/internal/department/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type stubDepartments struct {
	departmentdomain.Service

	items   []departmentdomain.Department
	failing map[snowflake.ID]bool
	seen    []snowflake.ID
	actors  []string
}

func (s *stubDepartments) ListAll(context.Context) ([]departmentdomain.Department, error) {
	return s.items, nil
}

func (s *stubDepartments) EnsureDefaults(ctx context.Context, id snowflake.ID) error {
	actorType, _ := auditcontext.ActorFromContext(ctx)
	s.actors = append(s.actors, actorType)
	s.seen = append(s.seen, id)
	if s.failing[id] {
		return errors.New("hook failed")
	}
	return nil
}

func TestEnsureDepartmentDefaultsContinuesPastFailures(t *testing.T) {
	stub := &stubDepartments{
		items:   []departmentdomain.Department{{ID: 1}, {ID: 2}, {ID: 3}},
		failing: map[snowflake.ID]bool{2: true},
	}

	res, err := EnsureDepartmentDefaults(context.Background(), stub, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Checked)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, []snowflake.ID{1, 2, 3}, stub.seen)
	assert.Equal(t, []string{"system", "system", "system"}, stub.actors)
}

func TestEnsureDepartmentDefaultsRequiresService(t *testing.T) {
	_, err := EnsureDepartmentDefaults(context.Background(), nil, zaptest.NewLogger(t))
	assert.Error(t, err)
}
