package config

import (
	"testing"
	"time"
)

func TestLoadMissionsConfigFromEnvironment(t *testing.T) {
	t.Setenv("MISSION_TIME_ATTACK", "42")
	t.Setenv("MISSION_DEPLOY_POLICY", DeployPolicyOnlyOnceReturnSource)
	t.Setenv("MISSION_MAX_RUNNING", "3")
	t.Setenv("SCHEDULER_WORKERS", "2")
	t.Setenv("SCHEDULER_POLL_MS", "250")

	cfg, err := loadMissionsConfig()
	if err != nil {
		t.Fatalf("loadMissionsConfig() error = %v", err)
	}

	if got := cfg.BaseTime("ATTACK"); got != 42 {
		t.Errorf("BaseTime(ATTACK) = %v, want 42", got)
	}
	if got := cfg.BaseTime("EXPLORE"); got != defaultBaseTimes["EXPLORE"] {
		t.Errorf("BaseTime(EXPLORE) = %v, want %v", got, defaultBaseTimes["EXPLORE"])
	}
	if cfg.DeployPolicy != DeployPolicyOnlyOnceReturnSource {
		t.Errorf("DeployPolicy = %s, want %s", cfg.DeployPolicy, DeployPolicyOnlyOnceReturnSource)
	}
	if cfg.MaxRunningMissions != 3 {
		t.Errorf("MaxRunningMissions = %d, want 3", cfg.MaxRunningMissions)
	}
	if cfg.Scheduler.Workers != 2 {
		t.Errorf("Scheduler.Workers = %d, want 2", cfg.Scheduler.Workers)
	}
	if cfg.Scheduler.PollInterval != 250*time.Millisecond {
		t.Errorf("Scheduler.PollInterval = %v, want 250ms", cfg.Scheduler.PollInterval)
	}
	if err := cfg.validate(); err != nil {
		t.Errorf("validate() error = %v", err)
	}
}

func TestMissionsConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*MissionsConfig)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*MissionsConfig) {}},
		{name: "unknown policy", mutate: func(c *MissionsConfig) { c.DeployPolicy = "SOMETIMES" }, wantErr: true},
		{name: "zero base time", mutate: func(c *MissionsConfig) { c.BaseTimes["GATHER"] = 0 }, wantErr: true},
		{name: "no workers", mutate: func(c *MissionsConfig) { c.Scheduler.Workers = 0 }, wantErr: true},
		{name: "no running missions", mutate: func(c *MissionsConfig) { c.MaxRunningMissions = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultMissionsConfig()
			tt.mutate(&cfg)
			err := cfg.validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
