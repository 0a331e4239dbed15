// Package orders contains the order processing step run by checkout.
package orders

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/avatarctic/checkout-system/internal/core/domain/cart"
	"github.com/avatarctic/checkout-system/internal/core/ports"
)

// DefaultProcessingDelay stands in for the round trip to the order system.
const DefaultProcessingDelay = 3 * time.Second

// SimulatedProcessor waits for a fixed delay instead of calling a real order
// system. The wait is abandoned as soon as ctx is done.
type SimulatedProcessor struct {
	delay  time.Duration
	logger *logrus.Logger
}

func NewSimulatedProcessor(delay time.Duration, logger *logrus.Logger) *SimulatedProcessor {
	if delay < 0 {
		delay = 0
	}
	return &SimulatedProcessor{delay: delay, logger: logger}
}

func (p *SimulatedProcessor) Process(ctx context.Context, c *cart.Cart) error {
	if p.logger != nil {
		p.logger.WithFields(logrus.Fields{"user_id": c.UserID, "items": len(c.Items), "delay": p.delay}).Info("processing order")
	}
	t := time.NewTimer(p.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (p *SimulatedProcessor) Delay() time.Duration { return p.delay }

var _ ports.OrderProcessor = (*SimulatedProcessor)(nil)
