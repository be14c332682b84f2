package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/xbook/internal/config"
	"github.com/example/xbook/internal/journal"
)

func newAttemptsCmd() *cobra.Command {
	var limit int

	c := &cobra.Command{
		Use:   "attempts",
		Short: "List recorded booking attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			if cfg.JournalURL == "" {
				return fmt.Errorf("journal not configured (--journal-url or X_JOURNAL_URL)")
			}

			ctx := context.Background()
			pg, err := journal.Open(ctx, cfg.JournalURL)
			if err != nil {
				return err
			}
			defer pg.Close()

			attempts, err := pg.Recent(ctx, limit)
			if err != nil {
				return err
			}
			for _, a := range attempts {
				fmt.Fprintf(os.Stdout, "id=%d at=%s phase=%s success=%t target=%s detail=%q\n",
					a.ID, a.CreatedAt.Format(time.RFC3339), a.Phase, a.Success, a.TargetStart, a.Detail)
			}
			return nil
		},
	}

	c.Flags().IntVar(&limit, "limit", 50, "maximum number of attempts to list")
	c.Flags().String("journal-url", "", "Postgres URL of the attempt journal")
	return c
}
