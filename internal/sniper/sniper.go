// Package sniper drives the check/sleep/book loop: poll availability for
// the target slot, and the moment it opens up, authenticate and grab it.
package sniper

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/example/xbook/internal/booking"
	"github.com/example/xbook/internal/journal"
	"github.com/example/xbook/internal/timeslot"
)

const (
	phaseChecking = "checking"
	phaseBooking  = "booking"
)

// Sniper retries until the booking succeeds. It never gives up on its
// own; cancel the context to stop it.
type Sniper struct {
	Checker  booking.AvailabilityChecker
	Auth     booking.Authenticator
	Creds    booking.Credentials
	Interval time.Duration
	Journal  journal.Journal
	Log      *zap.Logger

	// sleep is overridable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// Run loops until the target slot is booked or a fatal error occurs.
// Transient conditions (slot not yet available, booking rejected by the
// service) wait out the interval and try again; everything else
// propagates.
func (s *Sniper) Run(ctx context.Context, target timeslot.Target) error {
	if s.sleep == nil {
		s.sleep = sleep
	}
	for {
		booked, err := s.attempt(ctx, target)
		if err != nil {
			return err
		}
		if booked {
			s.Log.Info("successfully booked slot", zap.String("slot", target.String()))
			return nil
		}
		s.Log.Info("retrying", zap.Duration("interval", s.Interval))
		if err := s.sleep(ctx, s.Interval); err != nil {
			return err
		}
	}
}

func (s *Sniper) attempt(ctx context.Context, target timeslot.Target) (bool, error) {
	s.Log.Info("attempting to book slot", zap.String("slot", target.String()))

	slot, available, err := s.Checker.SlotAt(ctx, target)
	if err != nil {
		s.record(ctx, target, phaseChecking, false, err.Error())
		return false, err
	}
	if !available {
		s.Log.Info("requested slot is not available yet")
		s.record(ctx, target, phaseChecking, false, "not available")
		return false, nil
	}
	s.Log.Info("requested slot seems available")

	// A fresh session per booking attempt, released whatever the outcome.
	sess, err := s.Auth.Login(ctx, s.Creds)
	if err != nil {
		s.record(ctx, target, phaseBooking, false, err.Error())
		return false, err
	}
	defer sess.Close()

	ok, err := sess.Book(ctx, slot)
	if err != nil {
		s.record(ctx, target, phaseBooking, false, err.Error())
		return false, err
	}
	if !ok {
		// A concurrent booker likely beat us to it; availability may
		// open up again if they cancel.
		s.Log.Info("booking rejected, will retry")
		s.record(ctx, target, phaseBooking, false, "rejected")
		return false, nil
	}
	s.record(ctx, target, phaseBooking, true, "booked")
	return true, nil
}

func (s *Sniper) record(ctx context.Context, target timeslot.Target, phase string, success bool, detail string) {
	if s.Journal == nil {
		return
	}
	a := journal.Attempt{
		TargetStart: target.UTCString(),
		Phase:       phase,
		Success:     success,
		Detail:      detail,
	}
	if err := s.Journal.Record(ctx, a); err != nil {
		s.Log.Warn("journal write failed", zap.Error(err))
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
