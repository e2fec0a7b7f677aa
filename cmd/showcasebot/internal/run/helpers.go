package run

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/silkway-digital/showcase-bot/cmd/showcasebot/internal"
	"github.com/silkway-digital/showcase-bot/pkg/bot"
	"github.com/silkway-digital/showcase-bot/pkg/bus"
	"github.com/silkway-digital/showcase-bot/pkg/catalog"
	"github.com/silkway-digital/showcase-bot/pkg/logger"
	"github.com/silkway-digital/showcase-bot/pkg/store"
	"github.com/silkway-digital/showcase-bot/pkg/transport/telegram"
)

func runCmd(debug bool) error {
	cfg, err := internal.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if debug {
		logger.SetLevel(logger.DEBUG)
		fmt.Println("Debug mode enabled")
	} else {
		logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	}

	if cfg.Logging.Dir != "" {
		logFile, err := openLogFile(cfg.Logging.Dir)
		if err != nil {
			return fmt.Errorf("error opening log file: %w", err)
		}
		defer logFile.Close()
		logger.SetOutput(io.MultiWriter(os.Stderr, logFile))
	}

	cat, err := catalog.Load(cfg.Catalog.SectionsPath, cfg.Catalog.AssetsDir)
	if err != nil {
		return fmt.Errorf("error loading catalog: %w", err)
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

	events := bus.NewEventBus()
	channel, err := telegram.NewChannel(cfg.Telegram.Token, events, debug)
	if err != nil {
		return err
	}

	b := bot.New(cfg, cat, links, db, channel, channel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := channel.Start(ctx); err != nil {
		return fmt.Errorf("error starting telegram channel: %w", err)
	}

	go dispatch(ctx, events, b)

	fmt.Println("Bot started. Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	fmt.Println("\nShutting down...")
	cancel()
	events.Close()
	if err := channel.Stop(context.Background()); err != nil {
		logger.WarnCF("run", "Channel stop failed", map[string]any{"error": err.Error()})
	}
	fmt.Println("Bot stopped")

	return nil
}

// dispatch consumes the event bus and handles each interaction in its own
// goroutine. A panicking handler loses only its own interaction.
func dispatch(ctx context.Context, events *bus.EventBus, b *bot.Bot) {
	for {
		e, ok := events.Consume(ctx)
		if !ok {
			return
		}
		go func(e bus.Event) {
			defer func() {
				if r := recover(); r != nil {
					logger.ErrorCF("run", "Handler panic", map[string]any{
						"chat_id": e.ChatID,
						"panic":   fmt.Sprintf("%v", r),
					})
				}
			}()
			b.Handle(ctx, e)
		}(e)
	}
}

func openLogFile(dir string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, "showcasebot.log")
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}
