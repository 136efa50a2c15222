package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"deck-backend/internal/storage"

	"github.com/robfig/cron/v3"
)

// Pruner deletes sessions that have not been updated for TTL.
type Pruner struct {
	store storage.SnapshotStore
	ttl   time.Duration
	now   func() time.Time
	cron  *cron.Cron
}

func NewPruner(store storage.SnapshotStore, ttl time.Duration) *Pruner {
	return &Pruner{store: store, ttl: ttl, now: time.Now}
}

// Start schedules RunOnce on a cron expression such as "@daily" or "0 3 * * *".
func (p *Pruner) Start(ctx context.Context, schedule string) error {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if _, err := p.RunOnce(ctx); err != nil {
			log.Printf("prune cron: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid prune schedule %q: %w", schedule, err)
	}
	c.Start()
	p.cron = c
	log.Printf("prune cron: scheduled %q, ttl %s", schedule, p.ttl)
	return nil
}

func (p *Pruner) RunOnce(ctx context.Context) (int64, error) {
	cutoff := p.now().Add(-p.ttl)
	n, err := p.store.PruneBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Printf("prune cron: removed %d session(s) idle since %s", n, cutoff.Format(time.RFC3339))
	}
	return n, nil
}

// Stop halts the schedule and waits for a running prune to finish.
func (p *Pruner) Stop() {
	if p.cron == nil {
		return
	}
	<-p.cron.Stop().Done()
}
