package e2e

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/silkway-digital/showcase-bot/pkg/bot"
	"github.com/silkway-digital/showcase-bot/pkg/bus"
	"github.com/silkway-digital/showcase-bot/pkg/catalog"
	"github.com/silkway-digital/showcase-bot/pkg/config"
	"github.com/silkway-digital/showcase-bot/pkg/store"
	"github.com/silkway-digital/showcase-bot/pkg/transport"
)

const sectionsYAML = `
welcome:
  text: "Добро пожаловать в каталог!"
sections:
  - id: "1"
    title: "Товары"
    text: "Наши товары"
    children:
      - id: "1"
        title: "Новинки"
        text: "Новые поступления"
        images:
          - "https://example.com/new.jpg"
info:
  text: "О компании"
`

const deepLinksYAML = `
links:
  - slug: promo1
    name: "Весенняя акция"
`

// recorder is an in-memory transport: every outbound call is appended so the
// test can assert on what each chat received.
type recorder struct {
	messages map[int64][]string
	nextID   int
}

func newRecorder() *recorder {
	return &recorder{messages: map[int64][]string{}, nextID: 500}
}

func (r *recorder) record(chatID int64, text string) int {
	r.messages[chatID] = append(r.messages[chatID], text)
	r.nextID++
	return r.nextID
}

func (r *recorder) SendText(_ context.Context, chatID int64, text string, _ *transport.Keyboard) (int, error) {
	return r.record(chatID, text), nil
}

func (r *recorder) EditText(_ context.Context, chatID int64, _ int, text string, _ *transport.Keyboard) error {
	r.record(chatID, text)
	return nil
}

func (r *recorder) SendPhoto(_ context.Context, chatID int64, _, caption string, _ *transport.Keyboard) (int, error) {
	return r.record(chatID, caption), nil
}

func (r *recorder) EditPhoto(_ context.Context, chatID int64, _ int, _, caption string, _ *transport.Keyboard) error {
	r.record(chatID, caption)
	return nil
}

func (r *recorder) SendAlbum(_ context.Context, chatID int64, photos []string) ([]int, error) {
	ids := make([]int, len(photos))
	for i := range photos {
		ids[i] = r.record(chatID, "")
	}
	return ids, nil
}

func (r *recorder) DeleteMessage(context.Context, int64, int) error { return nil }

func (r *recorder) AnswerCallback(context.Context, string, string, bool) error { return nil }

func (r *recorder) lastFor(chatID int64) string {
	msgs := r.messages[chatID]
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1]
}

// TestUserJourney drives the whole pipeline short of the Telegram API: events
// go through the bus, users land in a real sqlite database, and the admin
// broadcast fans out to everyone who ever pressed /start.
func TestUserJourney(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "sections.yaml"), sectionsYAML)
	writeFile(t, filepath.Join(dir, "deep_links.yaml"), deepLinksYAML)

	cat, err := catalog.Load(filepath.Join(dir, "sections.yaml"), dir)
	if err != nil {
		t.Fatalf("loading catalog: %v", err)
	}
	links, err := catalog.LoadDeepLinks(filepath.Join(dir, "deep_links.yaml"))
	if err != nil {
		t.Fatalf("loading deep links: %v", err)
	}

	dbPath := filepath.Join(dir, "bot.db")
	db, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	defer db.Close()

	cfg := config.DefaultConfig()
	cfg.Admin.IDs = config.FlexibleStringSlice{"99"}

	rec := newRecorder()
	b := bot.New(cfg, cat, links, db, rec, rec)

	events := bus.NewEventBus()
	ctx := context.Background()

	journey := []bus.Event{
		{ChatID: 10, SenderID: 10, Username: "alice", Text: "/start promo1"},
		{ChatID: 11, SenderID: 11, Username: "bob", Text: "/start"},
		{ChatID: 99, SenderID: 99, Username: "admin", Text: "/start"},
		{ChatID: 10, MessageID: 1, CallbackID: "c1", CallbackData: "menu:open:1"},
		{ChatID: 10, MessageID: 1, CallbackID: "c2", CallbackData: "menu:open:1_1"},
		{ChatID: 10, MessageID: 1, CallbackID: "c3", CallbackData: "menu:back:1"},
		{ChatID: 99, MessageID: 2, CallbackID: "c4", CallbackData: "admin:panel"},
		{ChatID: 99, CallbackID: "c5", CallbackData: "admin:broadcast"},
		{ChatID: 99, SenderID: 99, Text: "Скидка 20% до пятницы!"},
	}
	for _, e := range journey {
		if err := events.Publish(ctx, e); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	// Drain the bus sequentially; ordering within one chat matters here.
	for range journey {
		e, ok := events.Consume(ctx)
		if !ok {
			t.Fatal("bus closed early")
		}
		b.Handle(ctx, e)
	}
	events.Close()

	// Everyone who started is registered, with the referral recorded.
	n, err := db.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Errorf("registered users: %d, want 3", n)
	}
	origins, err := db.CountByDeepLink(ctx)
	if err != nil {
		t.Fatalf("group: %v", err)
	}
	promo := 0
	for _, o := range origins {
		if o.DeepLink != nil && *o.DeepLink == "promo1" {
			promo = o.Count
		}
	}
	if promo != 1 {
		t.Errorf("promo1 registrations: %d, want 1", promo)
	}

	// The broadcast reached every registered chat.
	for _, chatID := range []int64{10, 11, 99} {
		found := false
		for _, msg := range rec.messages[chatID] {
			if msg == "Скидка 20% до пятницы!" {
				found = true
			}
		}
		if !found {
			t.Errorf("chat %d did not receive the broadcast: %v", chatID, rec.messages[chatID])
		}
	}

	// The admin got the completion summary after the fan-out.
	if got := rec.lastFor(99); got != "Рассылка завершена. Отправлено: 3 из 3. Ошибок: 0." {
		t.Errorf("broadcast summary: %q", got)
	}

	// Navigation edited the menu with section content along the way.
	joined := strings.Join(rec.messages[10], "\n")
	for _, want := range []string{"Наши товары", "Новые поступления"} {
		if !strings.Contains(joined, want) {
			t.Errorf("chat 10 never saw %q: %v", want, rec.messages[10])
		}
	}

	// Registrations survive a restart.
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	reopened, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	n, err = reopened.Count(ctx)
	if err != nil {
		t.Fatalf("count after reopen: %v", err)
	}
	if n != 3 {
		t.Errorf("users after reopen: %d, want 3", n)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
