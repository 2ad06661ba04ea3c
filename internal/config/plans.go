package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const DefaultPlan = "free"

// PlanConfig lists the commercial plans and what each one allows.
type PlanConfig struct {
	Plans map[string]Plan `mapstructure:"plans"`
}

type Plan struct {
	// MaxDepartments caps departments per organization; 0 means unlimited.
	MaxDepartments int      `mapstructure:"maxDepartments"`
	Integrations   []string `mapstructure:"integrations"`
}

func DefaultPlanConfig() PlanConfig {
	return PlanConfig{
		Plans: map[string]Plan{
			"free":       {MaxDepartments: 3, Integrations: []string{"gmail"}},
			"pro":        {MaxDepartments: 25, Integrations: []string{"gmail"}},
			"enterprise": {MaxDepartments: 0, Integrations: []string{"gmail"}},
		},
	}
}

// Lookup returns the named plan, falling back to the default plan.
func (c PlanConfig) Lookup(name string) (Plan, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = DefaultPlan
	}
	plan, ok := c.Plans[name]
	return plan, ok
}

// AllowsIntegration reports whether the plan enables the integration type.
func (p Plan) AllowsIntegration(integrationType string) bool {
	for _, allowed := range p.Integrations {
		if strings.EqualFold(strings.TrimSpace(allowed), integrationType) {
			return true
		}
	}
	return false
}

type PlanConfigHolder struct {
	current atomic.Value // holds PlanConfig
}

// NewStaticPlanConfigHolder serves a fixed plan set without watching files.
func NewStaticPlanConfigHolder(cfg PlanConfig) *PlanConfigHolder {
	holder := &PlanConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewPlanConfigHolder() (*PlanConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("plans")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/missioncontrol/config")
	v.AddConfigPath("/etc/missioncontrol")
	v.AddConfigPath(".")

	return newPlanConfigHolder(v)
}

func newPlanConfigHolder(v *viper.Viper) (*PlanConfigHolder, error) {
	v.SetEnvPrefix("MISSIONCONTROL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	watch := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		watch = false
	}

	cfg := DefaultPlanConfig()
	if v.IsSet("plans") {
		if err := v.Unmarshal(&cfg); err != nil {
			return nil, err
		}
	}
	if err := validatePlanConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticPlanConfigHolder(cfg)
	if !watch {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated PlanConfig
		if err := v.Unmarshal(&updated); err != nil {
			log.Printf("[plan-config] reload failed: %v", err)
			return
		}
		if err := validatePlanConfig(updated); err != nil {
			log.Printf("[plan-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[plan-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *PlanConfigHolder) Get() PlanConfig {
	return h.current.Load().(PlanConfig)
}

func validatePlanConfig(cfg PlanConfig) error {
	if len(cfg.Plans) == 0 {
		return errors.New("plans cannot be empty")
	}
	if _, ok := cfg.Plans[DefaultPlan]; !ok {
		return fmt.Errorf("plans must define %q", DefaultPlan)
	}
	for name, plan := range cfg.Plans {
		if plan.MaxDepartments < 0 {
			return fmt.Errorf("plans.%s.maxDepartments must not be negative", name)
		}
	}
	return nil
}
