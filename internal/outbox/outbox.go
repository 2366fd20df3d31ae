package outbox

import (
	"context"
	"log/slog"
	"sync"
)

// Entry is an action that must only run once the transaction that queued it
// has committed.
type Entry struct {
	Kind string
	Run  func(ctx context.Context) error
}

// Outbox collects after-commit actions for one transaction. A rolled back
// transaction discards its outbox without running anything.
type Outbox struct {
	mu      sync.Mutex
	entries []Entry
}

func New() *Outbox {
	return &Outbox{}
}

func (o *Outbox) Add(kind string, run func(ctx context.Context) error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries = append(o.entries, Entry{Kind: kind, Run: run})
}

func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.entries)
}

// Flush runs the queued entries in order. Failures are logged and do not stop
// later entries: the data is already committed.
func (o *Outbox) Flush(ctx context.Context, logger *slog.Logger) {
	o.mu.Lock()
	entries := o.entries
	o.entries = nil
	o.mu.Unlock()

	for _, entry := range entries {
		if err := entry.Run(ctx); err != nil {
			logger.Error("Failed to dispatch after-commit action",
				"component", "outbox",
				"kind", entry.Kind,
				"error", err)
		}
	}
}

// Discard drops every queued entry.
func (o *Outbox) Discard() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries = nil
}
