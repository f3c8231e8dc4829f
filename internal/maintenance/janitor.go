// Package maintenance runs periodic background sweeps over cart state.
package maintenance

import (
	"context"
	"log"
	"time"

	"shopcore/internal/domain"
)

type cartRepo interface {
	ListIdleBefore(ctx context.Context, status domain.CartStatus, cutoff time.Time, limit int) ([]string, error)
	SetStatus(ctx context.Context, cartID string, from, to domain.CartStatus) (bool, error)
}

// Janitor marks active carts ABANDONED after a period of inactivity and
// abandoned carts EXPIRED after a longer one. Sweeps use the repository's
// conditional transition, so a cart revived between the listing and the
// update is left alone.
type Janitor struct {
	carts        cartRepo
	abandonAfter time.Duration
	expireAfter  time.Duration
	interval     time.Duration
	batchSize    int
	logger       *log.Logger
	now          func() time.Time
}

type JanitorConfig struct {
	AbandonAfter time.Duration
	ExpireAfter  time.Duration
	Interval     time.Duration
	BatchSize    int
}

func NewJanitor(carts cartRepo, cfg JanitorConfig, logger *log.Logger) *Janitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 200
	}
	return &Janitor{
		carts:        carts,
		abandonAfter: cfg.AbandonAfter,
		expireAfter:  cfg.ExpireAfter,
		interval:     cfg.Interval,
		batchSize:    cfg.BatchSize,
		logger:       logger,
		now:          time.Now,
	}
}

// Run blocks, sweeping on a fixed interval until the context is cancelled.
func (j *Janitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

// Sweep performs one pass of both transitions and reports how many carts
// were abandoned and expired.
func (j *Janitor) Sweep(ctx context.Context) (abandoned, expired int) {
	now := j.now().UTC()
	if j.abandonAfter > 0 {
		abandoned = j.sweepStatus(ctx, domain.CartActive, domain.CartAbandoned, now.Add(-j.abandonAfter))
	}
	if j.expireAfter > 0 {
		expired = j.sweepStatus(ctx, domain.CartAbandoned, domain.CartExpired, now.Add(-j.expireAfter))
	}
	if abandoned > 0 || expired > 0 {
		j.logger.Printf("[maintenance] cart sweep: abandoned=%d expired=%d", abandoned, expired)
	}
	return abandoned, expired
}

func (j *Janitor) sweepStatus(ctx context.Context, from, to domain.CartStatus, cutoff time.Time) int {
	ids, err := j.carts.ListIdleBefore(ctx, from, cutoff, j.batchSize)
	if err != nil {
		j.logger.Printf("[maintenance] list %s carts: %v", from, err)
		return 0
	}
	var n int
	for _, id := range ids {
		applied, err := j.carts.SetStatus(ctx, id, from, to)
		if err != nil {
			j.logger.Printf("[maintenance] cart %s %s->%s: %v", id, from, to, err)
			continue
		}
		if applied {
			n++
		}
	}
	return n
}
