package cascade

import (
	"fmt"
	"sort"
	"strings"

	departmentdomain "github.com/smallbiznis/missioncontrol/internal/department/domain"
	"go.uber.org/fx"
)

// Registry holds the cascaders run when a department is removed.
type Registry struct {
	cascaders []departmentdomain.Cascader
}

type RegistryParams struct {
	fx.In

	Cascaders []departmentdomain.Cascader `group:"department.cascaders"`
}

func NewRegistryFromGroup(p RegistryParams) (*Registry, error) {
	return NewRegistry(p.Cascaders...)
}

// NewRegistry rejects duplicate or empty collection names and orders
// cascaders by collection name.
func NewRegistry(cascaders ...departmentdomain.Cascader) (*Registry, error) {
	seen := make(map[string]struct{}, len(cascaders))
	ordered := make([]departmentdomain.Cascader, 0, len(cascaders))
	for _, c := range cascaders {
		if c == nil {
			continue
		}
		name := strings.TrimSpace(c.Collection())
		if name == "" {
			return nil, fmt.Errorf("cascade: empty collection name")
		}
		if _, ok := seen[name]; ok {
			return nil, fmt.Errorf("cascade: duplicate collection %q", name)
		}
		seen[name] = struct{}{}
		ordered = append(ordered, c)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Collection() < ordered[j].Collection()
	})
	return &Registry{cascaders: ordered}, nil
}

func (r *Registry) Cascaders() []departmentdomain.Cascader {
	if r == nil {
		return nil
	}
	out := make([]departmentdomain.Cascader, len(r.cascaders))
	copy(out, r.cascaders)
	return out
}

func (r *Registry) Collections() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.cascaders))
	for _, c := range r.cascaders {
		names = append(names, c.Collection())
	}
	return names
}

var Module = fx.Module("department.cascade",
	fx.Provide(NewRegistryFromGroup),
)
