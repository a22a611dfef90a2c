// Package config loads a persisted run configuration into a
// scheduler.RunConfig. It is isolated from package scheduler so the
// kernel itself never depends on a config-file format (spec.md 6, "no
// file format ... is part of the core").
//
// Uses the common viper-based CLI config loading pattern
// (evalgo-org-eve's cli.initConfig: file discovery by name/path,
// AutomaticEnv, then Get* reads with flag/env/file precedence).
package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/pflow-xyz/hybridnet/scheduler"
	"github.com/spf13/viper"
)

// Keys used in the persisted config file / environment, one per RunConfig
// field except Integrator and StiffDetection, which have no key.
const (
	KeyTimeStep         = "time_step"
	KeyMaxSteps         = "max_steps"
	KeyMaxTime          = "max_time"
	KeyConflictPolicy   = "conflict_policy"
	KeySeed             = "seed"
	KeyMicroStepBudget  = "micro_step_budget"
	KeyTickBudgetMillis = "tick_budget_ms"
	KeyQuiescenceSteps  = "quiescence_steps"
)

// LoadRunConfig reads a run configuration from path (YAML/JSON/TOML,
// detected by extension) overlaid with `PNSIM_`-prefixed environment
// variables, falling back to scheduler.DefaultRunConfig for any key left
// unset. An empty path skips the file and reads only defaults + environment.
func LoadRunConfig(path string) (scheduler.RunConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("pnsim")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := scheduler.DefaultRunConfig()
	v.SetDefault(KeyTimeStep, def.TimeStep)
	v.SetDefault(KeyMaxSteps, def.MaxSteps)
	v.SetDefault(KeyMaxTime, def.MaxTime)
	v.SetDefault(KeyConflictPolicy, def.ConflictPolicy.String())
	v.SetDefault(KeySeed, def.Seed)
	v.SetDefault(KeyMicroStepBudget, 0)
	v.SetDefault(KeyTickBudgetMillis, 0)
	v.SetDefault(KeyQuiescenceSteps, 0)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return scheduler.RunConfig{}, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	policy, err := parseConflictPolicy(v.GetString(KeyConflictPolicy))
	if err != nil {
		return scheduler.RunConfig{}, err
	}

	maxTime := v.GetFloat64(KeyMaxTime)
	if maxTime <= 0 {
		maxTime = math.Inf(1)
	}

	cfg := scheduler.RunConfig{
		TimeStep:        v.GetFloat64(KeyTimeStep),
		MaxSteps:        v.GetInt(KeyMaxSteps),
		MaxTime:         maxTime,
		ConflictPolicy:  policy,
		Seed:            v.GetInt64(KeySeed),
		MicroStepBudget: v.GetInt(KeyMicroStepBudget),
		TickBudget:      time.Duration(v.GetInt64(KeyTickBudgetMillis)) * time.Millisecond,
		QuiescenceSteps: v.GetInt(KeyQuiescenceSteps),
	}
	return cfg, nil
}

func parseConflictPolicy(s string) (scheduler.ConflictPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "weighted_random":
		return scheduler.WeightedRandom, nil
	case "priority":
		return scheduler.Priority, nil
	case "first_enabled":
		return scheduler.FirstEnabled, nil
	default:
		return 0, fmt.Errorf("config: unknown conflict_policy %q", s)
	}
}
