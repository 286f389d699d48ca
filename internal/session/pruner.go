package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/robfig/cron/v3"
)

// Pruner deletes sessions older than a TTL on a cron schedule.
type Pruner struct {
	store *Store
	ttl   time.Duration
	cron  *cron.Cron
	now   func() time.Time

	// OnPruned, if set, is called with the ids removed by each prune.
	OnPruned func(ids []string)
}

// NewPruner schedules pruning with a standard cron expression or descriptor
// such as "@hourly".
func NewPruner(store *Store, ttl time.Duration, schedule string) (*Pruner, error) {
	if ttl <= 0 {
		return nil, errors.Newf("session: prune ttl must be positive, got %s", ttl)
	}
	p := &Pruner{store: store, ttl: ttl, cron: cron.New(), now: time.Now}
	if _, err := p.cron.AddFunc(schedule, p.run); err != nil {
		return nil, errors.Wrapf(err, "session: invalid prune schedule %q", schedule)
	}
	return p, nil
}

// Start runs the schedule in the background.
func (p *Pruner) Start() {
	p.cron.Start()
	slog.Info("session pruner started", "ttl", p.ttl)
}

// Stop stops the schedule and waits for a running prune to finish.
func (p *Pruner) Stop() {
	<-p.cron.Stop().Done()
	slog.Info("session pruner stopped")
}

// Prune deletes sessions created more than ttl ago and returns their ids.
func (p *Pruner) Prune(ctx context.Context) ([]string, error) {
	ids, err := p.store.PruneBefore(ctx, p.now().Add(-p.ttl))
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 && p.OnPruned != nil {
		p.OnPruned(ids)
	}
	return ids, nil
}

func (p *Pruner) run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ids, err := p.Prune(ctx)
	if err != nil {
		slog.Error("session prune failed", "err", err)
		return
	}
	if len(ids) > 0 {
		slog.Info("sessions pruned", "removed", len(ids))
	}
}
