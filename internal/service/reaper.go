package service

import (
	"context"
	"time"

	"github.com/willow-wellness/bookings-api/pkg/logger"
)

// Reaper releases slots held by unpaid bookings: any pending_payment
// row past its payment_expires_at is marked expired.
type Reaper struct {
	bookings BookingService
	interval time.Duration
}

func NewReaper(bookings BookingService, interval time.Duration) *Reaper {
	return &Reaper{bookings: bookings, interval: interval}
}

// Run blocks until ctx is cancelled, sweeping on every tick.
func (r *Reaper) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			expired, err := r.bookings.ExpireOverdue(ctx)
			if err != nil {
				logger.ErrorContext(ctx, "failed to expire overdue bookings", "error", err)
				continue
			}
			if expired > 0 {
				logger.InfoContext(ctx, "expired unpaid bookings", "count", expired)
			}
		}
	}
}
