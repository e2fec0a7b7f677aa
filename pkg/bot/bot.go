// Package bot routes inbound interactions to the catalog menu, the admin
// panel and the broadcast workflow. One Handle call is one unit of work; any
// failure inside it degrades that single response and nothing else.
package bot

import (
	"context"
	"strconv"
	"strings"

	"github.com/silkway-digital/showcase-bot/pkg/broadcast"
	"github.com/silkway-digital/showcase-bot/pkg/bus"
	"github.com/silkway-digital/showcase-bot/pkg/catalog"
	"github.com/silkway-digital/showcase-bot/pkg/config"
	"github.com/silkway-digital/showcase-bot/pkg/logger"
	"github.com/silkway-digital/showcase-bot/pkg/menu"
	"github.com/silkway-digital/showcase-bot/pkg/stats"
	"github.com/silkway-digital/showcase-bot/pkg/store"
	"github.com/silkway-digital/showcase-bot/pkg/transport"
)

// User-visible texts.
const (
	textAccessDenied    = "Доступ запрещён."
	textBroadcastPrompt = "Введите текст рассылки (одним сообщением). Отмена: /cancel"
	textBroadcastEmpty  = "Текст не может быть пустым. Введите текст рассылки или /cancel для отмены."
	textBroadcastCancel = "Рассылка отменена."
)

// UserStore is the persistence surface the bot needs.
type UserStore interface {
	GetOrCreate(ctx context.Context, chatID int64, username string, deepLink *string) (*store.User, error)
	Count(ctx context.Context) (int, error)
	ListAll(ctx context.Context) ([]store.User, error)
	CountByDeepLink(ctx context.Context) ([]store.OriginCount, error)
	AllChatIDs(ctx context.Context) ([]int64, error)
}

// Bot wires the catalog, user store and transport together.
type Bot struct {
	cfg      *config.Config
	cat      *catalog.Catalog
	links    *catalog.DeepLinks
	users    UserStore
	m        transport.Messenger
	answerer transport.CallbackAnswerer

	renderer  *menu.Renderer
	menuSess  *menu.Sessions
	bcastSess *broadcast.Sessions
	bcaster   *broadcast.Broadcaster
}

func New(
	cfg *config.Config,
	cat *catalog.Catalog,
	links *catalog.DeepLinks,
	users UserStore,
	m transport.Messenger,
	answerer transport.CallbackAnswerer,
) *Bot {
	return &Bot{
		cfg:       cfg,
		cat:       cat,
		links:     links,
		users:     users,
		m:         m,
		answerer:  answerer,
		renderer:  menu.NewRenderer(cat, m),
		menuSess:  menu.NewSessions(),
		bcastSess: broadcast.NewSessions(),
		bcaster:   broadcast.NewBroadcaster(users, m),
	}
}

// Handle processes one inbound event.
func (b *Bot) Handle(ctx context.Context, e bus.Event) {
	if e.IsCallback() {
		b.handleCallback(ctx, e)
		return
	}
	b.handleMessage(ctx, e)
}

func (b *Bot) handleMessage(ctx context.Context, e bus.Event) {
	cmd, payload := parseCommand(e.Text)
	switch cmd {
	case "start":
		b.handleStart(ctx, e, payload)
	case "info":
		b.handleInfo(ctx, e)
	case "cancel":
		b.handleCancel(ctx, e)
	default:
		if b.bcastSess.Stage(e.ChatID) == broadcast.StageAwaitingText {
			b.handleBroadcastText(ctx, e)
		}
	}
}

func (b *Bot) handleCallback(ctx context.Context, e bus.Event) {
	if path, ok := menu.ParseMenuCallback(e.CallbackData); ok {
		b.handleMenuCallback(ctx, e, path)
		return
	}
	if action, ok := menu.ParseAdminCallback(e.CallbackData); ok {
		b.handleAdminCallback(ctx, e, action)
		return
	}
	logger.DebugCF("bot", "Unknown callback", map[string]any{
		"chat_id": e.ChatID, "data": e.CallbackData,
	})
	b.answer(ctx, e, "", false)
}

func (b *Bot) handleStart(ctx context.Context, e bus.Event, payload string) {
	deepLink := b.validDeepLink(payload)

	logger.InfoCF("bot", "User started the bot", map[string]any{
		"chat_id":   e.ChatID,
		"username":  e.Username,
		"deep_link": derefOr(deepLink, "—"),
	})

	if _, err := b.users.GetOrCreate(ctx, e.ChatID, e.Username, deepLink); err != nil {
		logger.ErrorCF("bot", "User registration failed", map[string]any{
			"chat_id": e.ChatID, "error": err.Error(),
		})
	}

	isAdmin := b.cfg.IsAdmin(e.ChatID)
	text := b.cat.Text("")
	images := b.cat.Images("")
	kb := menu.BuildMenu(b.cat, "", isAdmin)

	st := &menu.State{}
	if len(images) > 0 {
		id, err := b.m.SendPhoto(ctx, e.ChatID, images[0], text, kb)
		if err == nil {
			st.MenuID = id
			st.Shape = menu.ShapeSingle
			b.menuSess.Reset(e.ChatID, st)
			return
		}
		logger.WarnCF("bot", "Welcome photo send failed, falling back to text", map[string]any{
			"chat_id": e.ChatID, "error": err.Error(),
		})
	}
	id, err := b.m.SendText(ctx, e.ChatID, text, kb)
	if err != nil {
		logger.ErrorCF("bot", "Welcome send failed", map[string]any{
			"chat_id": e.ChatID, "error": err.Error(),
		})
		return
	}
	st.MenuID = id
	b.menuSess.Reset(e.ChatID, st)
}

func (b *Bot) handleInfo(ctx context.Context, e bus.Event) {
	logger.InfoCF("bot", "User opened info", map[string]any{
		"chat_id": e.ChatID, "username": e.Username,
	})

	text := b.cat.InfoText()
	images := b.cat.InfoImages()

	var err error
	switch {
	case len(images) == 0:
		_, err = b.m.SendText(ctx, e.ChatID, text, nil)
	case len(images) == 1:
		_, err = b.m.SendPhoto(ctx, e.ChatID, images[0], text, nil)
	default:
		if _, albumErr := b.m.SendAlbum(ctx, e.ChatID, images); albumErr != nil {
			logger.WarnCF("bot", "Info album send failed", map[string]any{
				"chat_id": e.ChatID, "error": albumErr.Error(),
			})
		}
		_, err = b.m.SendText(ctx, e.ChatID, text, nil)
	}
	if err != nil {
		logger.WarnCF("bot", "Info send failed", map[string]any{
			"chat_id": e.ChatID, "error": err.Error(),
		})
	}
}

func (b *Bot) handleCancel(ctx context.Context, e bus.Event) {
	if b.bcastSess.Stage(e.ChatID) != broadcast.StageAwaitingText {
		return
	}
	if !b.cfg.IsAdmin(e.ChatID) {
		b.bcastSess.SetStage(e.ChatID, broadcast.StageIdle)
		return
	}
	logger.InfoCF("bot", "Admin canceled broadcast", map[string]any{"chat_id": e.ChatID})
	b.bcastSess.SetStage(e.ChatID, broadcast.StageIdle)
	b.sendText(ctx, e.ChatID, textBroadcastCancel)
}

func (b *Bot) handleMenuCallback(ctx context.Context, e bus.Event, path string) {
	b.answer(ctx, e, "", false)

	logger.InfoCF("bot", "Menu navigation", map[string]any{
		"chat_id": e.ChatID,
		"path":    pathOrRoot(path),
	})

	st := b.menuSess.Get(e.ChatID)
	if st.MenuID == 0 {
		// Render state was lost (restart); adopt the on-screen message.
		st.MenuID = e.MessageID
	}
	b.renderer.Show(ctx, st, e.ChatID, path, b.cfg.IsAdmin(e.ChatID))
}

func (b *Bot) handleAdminCallback(ctx context.Context, e bus.Event, action string) {
	// Membership is re-checked on every transition: an admin revoked
	// mid-flow must be rejected.
	if !b.cfg.IsAdmin(e.ChatID) {
		b.answer(ctx, e, textAccessDenied, true)
		return
	}
	b.answer(ctx, e, "", false)

	logger.InfoCF("bot", "Admin panel action", map[string]any{
		"chat_id": e.ChatID, "action": action,
	})

	switch action {
	case menu.AdminActionPanel:
		b.showAdminPanel(ctx, e.ChatID)
	case menu.AdminActionBroadcast:
		b.bcastSess.SetStage(e.ChatID, broadcast.StageAwaitingText)
		b.sendText(ctx, e.ChatID, textBroadcastPrompt)
	case menu.AdminActionUserList:
		b.showUserList(ctx, e.ChatID)
	case menu.AdminActionBack:
		st := b.menuSess.Get(e.ChatID)
		b.showMenuText(ctx, st, e.ChatID, b.cat.Text(""), menu.BuildMenu(b.cat, "", true))
		st.Path = ""
	}
}

func (b *Bot) showAdminPanel(ctx context.Context, chatID int64) {
	report, err := stats.BuildReport(ctx, b.users, b.links)
	if err != nil {
		logger.ErrorCF("bot", "Stats aggregation failed", map[string]any{
			"chat_id": chatID, "error": err.Error(),
		})
		b.sendText(ctx, chatID, "Не удалось получить статистику.")
		return
	}

	text := "Админ панель.\n\n" + stats.FormatAdminStats(report) + "\n\nВыберите действие."
	st := b.menuSess.Get(chatID)
	b.showMenuText(ctx, st, chatID, text, menu.BuildAdminPanel())
}

func (b *Bot) showUserList(ctx context.Context, chatID int64) {
	users, err := b.users.ListAll(ctx)
	if err != nil {
		logger.ErrorCF("bot", "User listing failed", map[string]any{
			"chat_id": chatID, "error": err.Error(),
		})
		b.sendText(ctx, chatID, "Не удалось получить список пользователей.")
		return
	}

	header := "Список пользователей (всего " + itoa(len(users)) + "):\n\n"
	chunks := stats.FormatUserChunks(users)
	if len(header)+len(chunks[0]) <= stats.MaxMessageLength {
		b.sendText(ctx, chatID, header+chunks[0])
		chunks = chunks[1:]
	} else {
		b.sendText(ctx, chatID, header)
	}
	for _, chunk := range chunks {
		b.sendText(ctx, chatID, chunk)
	}
}

func (b *Bot) handleBroadcastText(ctx context.Context, e bus.Event) {
	if !b.cfg.IsAdmin(e.ChatID) {
		b.bcastSess.SetStage(e.ChatID, broadcast.StageIdle)
		return
	}
	if !broadcast.ValidText(e.Text) {
		// Stay in AwaitingText and ask again.
		b.sendText(ctx, e.ChatID, textBroadcastEmpty)
		return
	}

	// Clear the state before sending so a repeated submission cannot start
	// a second fan-out.
	b.bcastSess.SetStage(e.ChatID, broadcast.StageIdle)

	logger.InfoCF("bot", "Admin submitted broadcast", map[string]any{
		"chat_id": e.ChatID, "username": e.Username,
	})

	res, err := b.bcaster.Send(ctx, e.Text)
	if err != nil {
		logger.ErrorCF("bot", "Broadcast aborted", map[string]any{
			"chat_id": e.ChatID, "error": err.Error(),
		})
		b.sendText(ctx, e.ChatID, "Не удалось получить список получателей.")
		return
	}

	summary := "Рассылка завершена. Отправлено: " + itoa(res.Sent) +
		" из " + itoa(res.Total) + ". Ошибок: " + itoa(res.Failed) + "."
	b.sendText(ctx, e.ChatID, summary)
}

// showMenuText replaces the chat's menu message with a plain text one. A text
// menu is edited in place; photo and album menus are retracted first.
func (b *Bot) showMenuText(ctx context.Context, st *menu.State, chatID int64, text string, kb *transport.Keyboard) {
	if st.Shape == menu.ShapeNone && st.MenuID != 0 {
		if err := b.m.EditText(ctx, chatID, st.MenuID, text, kb); err == nil {
			return
		}
	}
	for _, id := range st.AlbumIDs {
		if err := b.m.DeleteMessage(ctx, chatID, id); err != nil {
			logger.DebugCF("bot", "Album message delete failed", map[string]any{
				"chat_id": chatID, "message_id": id, "error": err.Error(),
			})
		}
	}
	st.AlbumIDs = nil
	if st.MenuID != 0 {
		if err := b.m.DeleteMessage(ctx, chatID, st.MenuID); err != nil {
			logger.DebugCF("bot", "Menu message delete failed", map[string]any{
				"chat_id": chatID, "message_id": st.MenuID, "error": err.Error(),
			})
		}
	}
	id, err := b.m.SendText(ctx, chatID, text, kb)
	if err != nil {
		logger.WarnCF("bot", "Menu text send failed", map[string]any{
			"chat_id": chatID, "error": err.Error(),
		})
		return
	}
	st.MenuID = id
	st.Shape = menu.ShapeNone
}

func (b *Bot) sendText(ctx context.Context, chatID int64, text string) {
	if _, err := b.m.SendText(ctx, chatID, text, nil); err != nil {
		logger.WarnCF("bot", "Send failed", map[string]any{
			"chat_id": chatID, "error": err.Error(),
		})
	}
}

func (b *Bot) answer(ctx context.Context, e bus.Event, text string, alert bool) {
	if b.answerer == nil {
		return
	}
	if err := b.answerer.AnswerCallback(ctx, e.CallbackID, text, alert); err != nil {
		logger.DebugCF("bot", "Callback answer failed", map[string]any{
			"chat_id": e.ChatID, "error": err.Error(),
		})
	}
}

// validDeepLink validates the /start payload against the deep-link catalog;
// unknown payloads are dropped rather than recorded.
func (b *Bot) validDeepLink(payload string) *string {
	payload = strings.TrimSpace(payload)
	if payload == "" || !b.links.Valid(payload) {
		return nil
	}
	return &payload
}

// parseCommand splits "/start promo1" into ("start", "promo1"). A trailing
// @botname on the command is ignored. Non-command text yields ("", text).
func parseCommand(text string) (cmd, payload string) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "/") {
		return "", text
	}
	parts := strings.SplitN(trimmed, " ", 2)
	cmd = strings.TrimPrefix(parts[0], "/")
	if at := strings.Index(cmd, "@"); at >= 0 {
		cmd = cmd[:at]
	}
	if len(parts) > 1 {
		payload = strings.TrimSpace(parts[1])
	}
	return strings.ToLower(cmd), payload
}

func pathOrRoot(path string) string {
	if path == "" {
		return "root"
	}
	return path
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
