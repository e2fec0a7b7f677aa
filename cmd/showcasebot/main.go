package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/silkway-digital/showcase-bot/cmd/showcasebot/internal"
	"github.com/silkway-digital/showcase-bot/cmd/showcasebot/internal/run"
	"github.com/silkway-digital/showcase-bot/cmd/showcasebot/internal/stats"
	"github.com/silkway-digital/showcase-bot/cmd/showcasebot/internal/version"
)

func NewShowcaseBotCommand() *cobra.Command {
	short := fmt.Sprintf("showcasebot - Telegram showcase bot v%s", internal.GetVersion())

	cmd := &cobra.Command{
		Use:     "showcasebot",
		Short:   short,
		Example: "showcasebot run",
	}

	cmd.AddCommand(
		run.NewRunCommand(),
		stats.NewStatsCommand(),
		version.NewVersionCommand(),
	)

	return cmd
}

func main() {
	cmd := NewShowcaseBotCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
