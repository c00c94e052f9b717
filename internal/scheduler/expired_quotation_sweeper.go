package scheduler

import (
	"context"
	"time"

	"procurement_backend/platform/logger"
)

const defaultSweepInterval = time.Minute

// ExpiredQuotationCloser closes open quotations past their deadline.
type ExpiredQuotationCloser interface {
	SweepExpired(ctx context.Context) (int, error)
}

// ExpiredQuotationSweeper periodically closes quotations whose auto-close
// task was lost, for example when Redis was flushed.
type ExpiredQuotationSweeper struct {
	closer   ExpiredQuotationCloser
	log      *logger.Logger
	interval time.Duration
}

func NewExpiredQuotationSweeper(closer ExpiredQuotationCloser, log *logger.Logger, interval time.Duration) *ExpiredQuotationSweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &ExpiredQuotationSweeper{closer: closer, log: log, interval: interval}
}

func (s *ExpiredQuotationSweeper) Run(ctx context.Context) {
	if s == nil || s.closer == nil {
		return
	}

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *ExpiredQuotationSweeper) sweep(ctx context.Context) {
	closed, err := s.closer.SweepExpired(ctx)
	if err != nil {
		s.log.Warn("expired quotation sweep failed", "error", err)
		return
	}

	if closed > 0 {
		s.log.Info("expired quotation sweep closed quotations", "closed", closed)
	}
}
