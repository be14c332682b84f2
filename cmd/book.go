package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/xbook/internal/backbone"
	"github.com/example/xbook/internal/booking"
	"github.com/example/xbook/internal/calendar"
	"github.com/example/xbook/internal/config"
	"github.com/example/xbook/internal/journal"
	"github.com/example/xbook/internal/sniper"
	"github.com/example/xbook/internal/timeslot"
)

func newBookCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "book",
		Short: "Poll for the requested slot and book it once it opens up",
		Long: `Poll the reservation service for a slot starting at the requested time
and book it the moment it becomes available. Retries on a fixed interval
until it succeeds; interrupt the process to stop.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			if cfg.Username == "" {
				return fmt.Errorf("username required (--username or X_USERNAME)")
			}
			if cfg.Password == "" {
				return fmt.Errorf("password required (--password or X_PASSWORD)")
			}

			log, err := newLogger(cfg.LogJSON)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			loc, err := time.LoadLocation(cfg.Timezone)
			if err != nil {
				return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
			}

			// Validate the target before any network activity.
			target, err := timeslot.Normalize(cfg.When, time.Now(), loc)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			client, err := backbone.New(cfg.Host, cfg.TagID, log)
			if err != nil {
				return err
			}

			var jnl journal.Journal = journal.Noop{}
			if cfg.JournalURL != "" {
				pg, err := journal.Open(ctx, cfg.JournalURL)
				if err != nil {
					return fmt.Errorf("open journal: %w", err)
				}
				defer pg.Close()
				jnl = pg
			}

			var notifier calendar.Notifier = calendar.Noop{}
			if cfg.CalendarConfigured() {
				notifier, err = calendar.NewGoogle(calendar.GoogleConfig{
					ClientID:     cfg.CalendarClientID,
					ClientSecret: cfg.CalendarClientSecret,
					TokenFile:    cfg.CalendarTokenFile,
					CalendarID:   cfg.CalendarID,
				}, log)
				if err != nil {
					return err
				}
			}

			s := &sniper.Sniper{
				Checker:  client,
				Auth:     client,
				Creds:    booking.Credentials{Email: cfg.Username, Password: cfg.Password},
				Interval: cfg.Interval(),
				Journal:  jnl,
				Log:      log,
			}
			if err := s.Run(ctx, target); err != nil {
				return err
			}

			start := target.Time()
			if err := notifier.BookingConfirmed(ctx, "Gym session", start, start.Add(time.Hour)); err != nil {
				log.Warn("calendar notification failed", zap.Error(err))
			}
			return nil
		},
	}

	c.Flags().String("username", "", "login email for the reservation service")
	c.Flags().String("password", "", "login password for the reservation service")
	c.Flags().String("when", "4pm tomorrow", "slot start time, on the hour (e.g. \"2024-03-01 16:00\" or \"4pm tomorrow\")")
	c.Flags().Int("interval", 60, "seconds between availability checks")
	c.Flags().String("timezone", timeslot.DefaultZone, "timezone assumed when the time expression has none")
	c.Flags().String("journal-url", "", "optional Postgres URL for recording attempts")
	c.Flags().Bool("log-json", false, "log as JSON instead of console output")
	c.Flags().String("calendar-client-id", "", "Google OAuth2 client id for the calendar event")
	c.Flags().String("calendar-client-secret", "", "Google OAuth2 client secret")
	c.Flags().String("calendar-token-file", "", "path to a cached Google OAuth2 token (JSON)")
	c.Flags().String("calendar-id", "primary", "calendar to insert the event into")
	c.Flags().String("host", "", "override the reservation service base URL")
	c.Flags().Int("tag-id", 28, "slot category tag id")
	_ = c.Flags().MarkHidden("host")
	_ = c.Flags().MarkHidden("tag-id")

	return c
}
