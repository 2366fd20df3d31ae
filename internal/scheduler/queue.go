package scheduler

import (
	"context"
	"time"
)

// Entry is one armed mission resolution.
type Entry struct {
	MissionID int64
	FireAt    time.Time
	// Attempt counts previous failed resolutions of this entry.
	Attempt int
}

// Queue holds armed entries ordered by fire time. Push replaces any entry
// already armed for the mission and clears its buried mark.
type Queue interface {
	Push(ctx context.Context, e Entry) error
	Remove(ctx context.Context, missionID int64) error
	// PopDue claims up to limit entries due at now. A claimed entry is
	// returned to exactly one caller.
	PopDue(ctx context.Context, now time.Time, limit int) ([]Entry, error)
	Contains(ctx context.Context, missionID int64) (bool, error)
	Len(ctx context.Context) (int, error)
	// Bury marks a mission whose resolution was given up. Reconcile skips
	// buried missions; only Recover re-arms them.
	Bury(ctx context.Context, missionID int64) error
	Buried(ctx context.Context, missionID int64) (bool, error)
}
