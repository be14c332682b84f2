package booking

import (
	"context"

	"github.com/example/xbook/internal/timeslot"
)

// Credentials are the remote service login credentials.
type Credentials struct {
	Email    string
	Password string
}

// Slot is a bookable time window as published by the remote service.
// Start and end dates are canonical UTC strings (millisecond precision,
// trailing Z) and are compared by string equality, never re-parsed.
type Slot struct {
	BookingID         int64
	StartDate         string
	EndDate           string
	BookableProductID int64
	LinkedProductID   int64
	IsAvailable       bool
}

// Session is an authenticated connection to the booking service, scoped
// to a single booking attempt. Close must be called when the attempt
// completes, on both success and failure paths.
type Session interface {
	MemberID() int64
	// Book submits the reservation for slot. A rejection by the service
	// (non-2xx) returns ok=false with a nil error; err is reserved for
	// transport and encoding failures.
	Book(ctx context.Context, slot Slot) (ok bool, err error)
	Close()
}

// Authenticator produces an authenticated session from credentials.
type Authenticator interface {
	Login(ctx context.Context, creds Credentials) (Session, error)
}

// AvailabilityChecker looks up the slot starting exactly at the target
// instant. ok is false when the slot exists but is not yet available.
// A day with no slot at the target instant at all is an error
// (the schedule simply has no such slot).
type AvailabilityChecker interface {
	SlotAt(ctx context.Context, target timeslot.Target) (slot Slot, ok bool, err error)
}
