// Package sweep periodically relabels overdue pending challenges.
package sweep

import (
	"context"
	"time"

	"github.com/park285/cheese-social/internal/obslog"
	"go.uber.org/zap"
)

// Expirer is satisfied by *challenge.Machine.
type Expirer interface {
	ExpireDue(ctx context.Context) (int, error)
}

type Sweeper struct {
	exp      Expirer
	interval time.Duration
}

// New returns nil when interval is not positive; a nil Sweeper's Run
// returns immediately.
func New(exp Expirer, interval time.Duration) *Sweeper {
	if exp == nil || interval <= 0 {
		return nil
	}
	return &Sweeper{exp: exp, interval: interval}
}

// Run ticks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	if s == nil {
		return
	}
	t := time.NewTicker(s.interval)
	defer t.Stop()
	obslog.L().Info("expiry_sweep_start", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			obslog.L().Info("expiry_sweep_stop")
			return
		case <-t.C:
			s.Once(ctx)
		}
	}
}

// Once runs a single pass. Panics are recovered and logged.
func (s *Sweeper) Once(ctx context.Context) (n int) {
	defer func() {
		if r := recover(); r != nil {
			obslog.L().Error("expiry_sweep_panic", zap.Any("recover", r))
			n = 0
		}
	}()
	n, err := s.exp.ExpireDue(ctx)
	if err != nil {
		obslog.L().Warn("expiry_sweep_error", zap.Int("expired", n), zap.Error(err))
	}
	return n
}
