package scenario

import (
	"context"

	"go.uber.org/zap"
)

// Distribution is where a Runner offers surplus Config once the
// concurrency controller has declared TpsLimited: the goal TPS the
// local run cannot reach is handed off as a new Config with the
// remaining duration and the unmet TPS, for something else to pick up.
// internal/peer implements this over HTTP to a configured set of peer
// addresses; ChannelDistribution, built with NewChannelDistribution, is
// an in-process alternative grounded on balter's BALTER_OUT mpsc
// channel. The zero value of ChannelDistribution is not usable.
type Distribution interface {
	Offer(ctx context.Context, cfg Config) error
}

// ChannelDistribution buffers offered configs on a channel for a local
// consumer to drain. Offer never blocks past ctx or channel capacity: balter docs
// this handoff as no-delivery-guarantee ("TODO: handle the error
// case"), and this mirrors that by logging and dropping on a full
// channel rather than propagating backpressure into the run loop.
type ChannelDistribution struct {
	ch  chan Config
	log *zap.SugaredLogger
}

// NewChannelDistribution creates a distribution sink with the given
// buffer capacity.
func NewChannelDistribution(capacity int, log *zap.SugaredLogger) *ChannelDistribution {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &ChannelDistribution{ch: make(chan Config, capacity), log: log}
}

// Offer enqueues cfg, dropping it with a logged warning if the buffer
// is full or ctx is already done.
func (d *ChannelDistribution) Offer(ctx context.Context, cfg Config) error {
	select {
	case d.ch <- cfg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		d.log.Warnw("distribution channel full, dropping surplus config", "scenario", cfg.Name, "goal_tps", cfg.GoalTps)
		return nil
	}
}

// Offers returns the receive side for a consumer to range over.
func (d *ChannelDistribution) Offers() <-chan Config {
	return d.ch
}
