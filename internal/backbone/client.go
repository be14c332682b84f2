// Package backbone is a minimal client for the backbone-web-api booking
// service, based on the request flow observed from its web frontend. The
// API is undocumented; query encodings and payload shapes here mirror
// what the frontend sends on the wire.
package backbone

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/example/xbook/internal/booking"
	"github.com/example/xbook/internal/timeslot"
)

// Client queries the remote service for bookable slots. Availability
// reads are unauthenticated; use Login for everything else.
type Client struct {
	hc        *http.Client
	baseURL   string
	authority string
	tagID     int
	log       *zap.Logger

	// Now is the freshness bound for availability queries. Overridable
	// in tests.
	Now func() time.Time
}

func New(baseURL string, tagID int, log *zap.Logger) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	return &Client{
		hc:        &http.Client{},
		baseURL:   baseURL,
		authority: u.Host,
		tagID:     tagID,
		log:       log,
		Now:       time.Now,
	}, nil
}

// The listing endpoint takes its filter as a single JSON document in the
// "s" query parameter.
type idFilter struct {
	In []int `json:"$in"`
}

type timeBound struct {
	Gt  string `json:"$gt,omitempty"`
	Gte string `json:"$gte,omitempty"`
}

type availabilityFilter struct {
	StartDate         string    `json:"startDate"`
	EndDate           string    `json:"endDate"`
	TagIDs            idFilter  `json:"tagIds"`
	AvailableFromDate timeBound `json:"availableFromDate"`
	AvailableTillDate timeBound `json:"availableTillDate"`
}

// availabilityQuery builds the encoded query string for all slots on the
// target's calendar day, bounded by now for freshness.
func availabilityQuery(target timeslot.Target, now time.Time, tagID int) (string, error) {
	nowStr := timeslot.UTCString(now)
	f := availabilityFilter{
		StartDate:         timeslot.UTCString(target.DayStart()),
		EndDate:           timeslot.UTCString(target.DayEnd()),
		TagIDs:            idFilter{In: []int{tagID}},
		AvailableFromDate: timeBound{Gt: nowStr},
		AvailableTillDate: timeBound{Gte: nowStr},
	}
	b, err := json.Marshal(f)
	if err != nil {
		return "", err
	}
	return url.Values{"s": {string(b)}}.Encode(), nil
}

type slotRecord struct {
	StartDate         string `json:"startDate"`
	EndDate           string `json:"endDate"`
	BookingID         int64  `json:"bookingId"`
	BookableProductID int64  `json:"bookableProductId"`
	LinkedProductID   int64  `json:"linkedProductId"`
	IsAvailable       bool   `json:"isAvailable"`
}

type slotsResponse struct {
	Data []slotRecord `json:"data"`
}

// SlotAt returns the slot starting exactly at the target instant. ok is
// false when the slot exists but is not (yet) available. ErrNoMatchingSlot
// when no slot in the day's schedule starts at that instant.
func (c *Client) SlotAt(ctx context.Context, target timeslot.Target) (booking.Slot, bool, error) {
	q, err := availabilityQuery(target, c.Now(), c.tagID)
	if err != nil {
		return booking.Slot{}, false, err
	}

	c.log.Info("checking availability",
		zap.String("day_start", timeslot.UTCString(target.DayStart())),
		zap.String("day_end", timeslot.UTCString(target.DayEnd())))

	status, body, err := c.get(ctx, c.baseURL+"/bookable-slots?"+q)
	if err != nil {
		return booking.Slot{}, false, err
	}
	if status >= 400 {
		return booking.Slot{}, false, &RemoteError{Status: status, Body: string(body)}
	}

	var res slotsResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return booking.Slot{}, false, fmt.Errorf("decode slot list: %w", err)
	}

	want := target.UTCString()
	for _, s := range res.Data {
		if s.StartDate != want {
			continue
		}
		slot := booking.Slot{
			BookingID:         s.BookingID,
			StartDate:         s.StartDate,
			EndDate:           s.EndDate,
			BookableProductID: s.BookableProductID,
			LinkedProductID:   s.LinkedProductID,
			IsAvailable:       s.IsAvailable,
		}
		return slot, s.IsAvailable, nil
	}
	return booking.Slot{}, false, fmt.Errorf("%w (%s)", ErrNoMatchingSlot, want)
}

func (c *Client) get(ctx context.Context, rawURL string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, nil, err
	}
	return do(c.hc, req)
}
