// Package calendar registers booked slots on an external calendar. The
// booking workflow treats this as best effort: a failure here never
// unwinds a successful booking.
package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

type Notifier interface {
	BookingConfirmed(ctx context.Context, summary string, start, end time.Time) error
}

// Noop is used when no calendar is configured.
type Noop struct{}

func (Noop) BookingConfirmed(context.Context, string, time.Time, time.Time) error { return nil }

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	// TokenFile holds a previously obtained oauth2 token as JSON.
	TokenFile  string
	CalendarID string
}

// Google inserts events through the Google Calendar API using a cached
// OAuth2 token. Obtaining the token (the consent flow) is out of scope;
// any tool that writes the standard token JSON will do.
type Google struct {
	conf       *oauth2.Config
	token      *oauth2.Token
	calendarID string
	log        *zap.Logger
}

func NewGoogle(cfg GoogleConfig, log *zap.Logger) (*Google, error) {
	b, err := os.ReadFile(cfg.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("read calendar token: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(b, &token); err != nil {
		return nil, fmt.Errorf("parse calendar token: %w", err)
	}

	conf := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       []string{gcal.CalendarEventsScope},
		Endpoint:     google.Endpoint,
	}
	calendarID := cfg.CalendarID
	if calendarID == "" {
		calendarID = "primary"
	}
	return &Google{conf: conf, token: &token, calendarID: calendarID, log: log}, nil
}

func (g *Google) BookingConfirmed(ctx context.Context, summary string, start, end time.Time) error {
	client := g.conf.Client(ctx, g.token)
	srv, err := gcal.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return fmt.Errorf("create calendar service: %w", err)
	}

	ev := &gcal.Event{
		Summary: summary,
		Start:   &gcal.EventDateTime{DateTime: start.Format(time.RFC3339)},
		End:     &gcal.EventDateTime{DateTime: end.Format(time.RFC3339)},
	}
	created, err := srv.Events.Insert(g.calendarID, ev).Do()
	if err != nil {
		return fmt.Errorf("insert calendar event: %w", err)
	}
	g.log.Info("calendar event created", zap.String("event_id", created.Id))
	return nil
}
