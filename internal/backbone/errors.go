package backbone

import (
	"errors"
	"fmt"
)

// ErrNoMatchingSlot means the day's schedule has no slot starting at the
// requested instant at all. Distinct from "exists but not available":
// waiting will never make a slot appear that isn't in the schedule.
var ErrNoMatchingSlot = errors.New("no slot starts at the requested time")

// RemoteError is a non-success response from the availability or booking
// endpoints.
type RemoteError struct {
	Status int
	Body   string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote service error: status=%d body=%s", e.Status, e.Body)
}

// AuthError is a credential rejection or malformed auth response. Never
// retried: credentials don't change between attempts.
type AuthError struct {
	Status int
	Body   string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: status=%d body=%s", e.Status, e.Body)
}
