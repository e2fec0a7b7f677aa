package stats

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/silkway-digital/showcase-bot/cmd/showcasebot/internal"
	"github.com/silkway-digital/showcase-bot/pkg/catalog"
	"github.com/silkway-digital/showcase-bot/pkg/stats"
	"github.com/silkway-digital/showcase-bot/pkg/store"
)

// NewStatsCommand prints the same registration report the admin panel shows,
// without talking to Telegram.
func NewStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print user registration stats",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return statsCmd()
		},
	}
}

func statsCmd() error {
	cfg, err := internal.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	links, err := catalog.LoadDeepLinks(cfg.Catalog.DeepLinksPath)
	if err != nil {
		return fmt.Errorf("error loading deep links: %w", err)
	}

	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("error opening database: %w", err)
	}
	defer db.Close()

	report, err := stats.BuildReport(context.Background(), db, links)
	if err != nil {
		return fmt.Errorf("error building report: %w", err)
	}

	fmt.Println(stats.FormatAdminStats(report))
	return nil
}
