package config

import (
	"fmt"
	"time"

	"fleets-server/internal/shared/utils"
)

// Deploy policies accepted by MISSION_DEPLOY_POLICY.
const (
	DeployPolicyFreedom                = "FREEDOM"
	DeployPolicyDisallowed             = "DISALLOWED"
	DeployPolicyOnlyOnceReturnSource   = "ONLY_ONCE_RETURN_SOURCE"
	DeployPolicyOnlyOnceReturnDeployed = "ONLY_ONCE_RETURN_DEPLOYED"
)

// MissionTypeCodes lists the mission types that carry a configurable base time.
var MissionTypeCodes = []string{
	"EXPLORE",
	"GATHER",
	"ESTABLISH_BASE",
	"ATTACK",
	"COUNTERATTACK",
	"CONQUEST",
	"DEPLOY",
	"RETURN_MISSION",
}

var defaultBaseTimes = map[string]float64{
	"EXPLORE":        60,
	"GATHER":         180,
	"ESTABLISH_BASE": 600,
	"ATTACK":         300,
	"COUNTERATTACK":  300,
	"CONQUEST":       900,
	"DEPLOY":         120,
	"RETURN_MISSION": 60,
}

// MissionsConfig is the snapshot handed to the mission service. It is copied,
// never read from GlobalConfig inside mission code.
type MissionsConfig struct {
	BaseTimes          map[string]float64
	DeployPolicy       string
	MaxRunningMissions int
	Scheduler          SchedulerConfig
}

type SchedulerConfig struct {
	Workers           int
	PollInterval      time.Duration
	ReconcileInterval time.Duration
	MaxAttempts       int
	RetryBackoff      time.Duration
	QueueKey          string
}

// BaseTime returns the configured base time in seconds for a mission type code.
func (c MissionsConfig) BaseTime(typeCode string) float64 {
	if t, ok := c.BaseTimes[typeCode]; ok {
		return t
	}
	return defaultBaseTimes[typeCode]
}

// DefaultMissionsConfig returns the built-in defaults, used by tests and tools
// that run without an environment.
func DefaultMissionsConfig() MissionsConfig {
	baseTimes := make(map[string]float64, len(defaultBaseTimes))
	for k, v := range defaultBaseTimes {
		baseTimes[k] = v
	}

	return MissionsConfig{
		BaseTimes:          baseTimes,
		DeployPolicy:       DeployPolicyFreedom,
		MaxRunningMissions: 10,
		Scheduler: SchedulerConfig{
			Workers:           4,
			PollInterval:      500 * time.Millisecond,
			ReconcileInterval: 60 * time.Second,
			MaxAttempts:       5,
			RetryBackoff:      2 * time.Second,
			QueueKey:          "fleets:missions:schedule",
		},
	}
}

func loadMissionsConfig() (MissionsConfig, error) {
	cfg := DefaultMissionsConfig()

	for _, code := range MissionTypeCodes {
		cfg.BaseTimes[code] = utils.GetEnvFloat("MISSION_TIME_"+code, defaultBaseTimes[code])
	}

	cfg.DeployPolicy = utils.GetEnv("MISSION_DEPLOY_POLICY", DeployPolicyFreedom)
	cfg.MaxRunningMissions = utils.GetEnvInt("MISSION_MAX_RUNNING", cfg.MaxRunningMissions)

	cfg.Scheduler.Workers = utils.GetEnvInt("SCHEDULER_WORKERS", cfg.Scheduler.Workers)
	cfg.Scheduler.PollInterval = time.Duration(utils.GetEnvInt("SCHEDULER_POLL_MS", 500)) * time.Millisecond
	cfg.Scheduler.ReconcileInterval = time.Duration(utils.GetEnvInt("SCHEDULER_RECONCILE_SECONDS", 60)) * time.Second
	cfg.Scheduler.MaxAttempts = utils.GetEnvInt("SCHEDULER_MAX_ATTEMPTS", cfg.Scheduler.MaxAttempts)
	cfg.Scheduler.RetryBackoff = time.Duration(utils.GetEnvInt("SCHEDULER_RETRY_BACKOFF_MS", 2000)) * time.Millisecond
	cfg.Scheduler.QueueKey = utils.GetEnv("SCHEDULER_QUEUE_KEY", cfg.Scheduler.QueueKey)

	return cfg, nil
}

func (c MissionsConfig) validate() error {
	switch c.DeployPolicy {
	case DeployPolicyFreedom, DeployPolicyDisallowed, DeployPolicyOnlyOnceReturnSource, DeployPolicyOnlyOnceReturnDeployed:
	default:
		return fmt.Errorf("MISSION_DEPLOY_POLICY %q is not a known policy", c.DeployPolicy)
	}

	for code, t := range c.BaseTimes {
		if t <= 0 {
			return fmt.Errorf("MISSION_TIME_%s must be positive", code)
		}
	}

	if c.MaxRunningMissions < 1 {
		return fmt.Errorf("MISSION_MAX_RUNNING must be at least 1")
	}

	if c.Scheduler.Workers < 1 {
		return fmt.Errorf("SCHEDULER_WORKERS must be at least 1")
	}

	if c.Scheduler.PollInterval <= 0 {
		return fmt.Errorf("SCHEDULER_POLL_MS must be positive")
	}

	if c.Scheduler.MaxAttempts < 1 {
		return fmt.Errorf("SCHEDULER_MAX_ATTEMPTS must be at least 1")
	}

	return nil
}
