// Package broadcast implements the admin fan-out: a per-admin conversation
// state machine that collects the message text, then a sequential best-effort
// delivery to every known user. One attempt per recipient, no retries; a
// failed recipient is counted and never halts the loop.
package broadcast

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/silkway-digital/showcase-bot/pkg/logger"
	"github.com/silkway-digital/showcase-bot/pkg/transport"
)

// Stage is the broadcast conversation state for one admin chat.
type Stage int

const (
	// StageIdle means no broadcast conversation is in progress.
	StageIdle Stage = iota
	// StageAwaitingText means the next text message is the broadcast body.
	StageAwaitingText
)

// Sessions owns the per-admin-chat conversation stage.
type Sessions struct {
	mu    sync.Mutex
	chats map[int64]Stage
}

func NewSessions() *Sessions {
	return &Sessions{chats: make(map[int64]Stage)}
}

func (s *Sessions) Stage(chatID int64) Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chats[chatID]
}

func (s *Sessions) SetStage(chatID int64, stage Stage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if stage == StageIdle {
		delete(s.chats, chatID)
		return
	}
	s.chats[chatID] = stage
}

// RecipientSource lists the chat ids a broadcast fans out to.
type RecipientSource interface {
	AllChatIDs(ctx context.Context) ([]int64, error)
}

// Result summarizes one broadcast run. Sent + Failed == Total always holds.
type Result struct {
	Total  int
	Sent   int
	Failed int
}

// Broadcaster delivers one message to every known recipient.
type Broadcaster struct {
	recipients RecipientSource
	m          transport.Messenger
}

func NewBroadcaster(recipients RecipientSource, m transport.Messenger) *Broadcaster {
	return &Broadcaster{recipients: recipients, m: m}
}

// Send fans text out sequentially to every recipient. It returns an error
// only when the recipient list itself cannot be read; delivery failures are
// folded into the result.
func (b *Broadcaster) Send(ctx context.Context, text string) (Result, error) {
	ids, err := b.recipients.AllChatIDs(ctx)
	if err != nil {
		return Result{}, err
	}

	runID := uuid.New().String()
	res := Result{Total: len(ids)}

	logger.InfoCF("broadcast", "Broadcast started", map[string]any{
		"run_id": runID,
		"total":  res.Total,
	})

	for _, chatID := range ids {
		if _, err := b.m.SendText(ctx, chatID, text, nil); err != nil {
			res.Failed++
			logger.WarnCF("broadcast", "Delivery failed", map[string]any{
				"run_id":  runID,
				"chat_id": chatID,
				"error":   err.Error(),
			})
			continue
		}
		res.Sent++
	}

	logger.InfoCF("broadcast", "Broadcast finished", map[string]any{
		"run_id": runID,
		"sent":   res.Sent,
		"failed": res.Failed,
	})
	return res, nil
}

// ValidText reports whether text is an acceptable broadcast body. Empty and
// whitespace-only messages are rejected without consuming the conversation
// state.
func ValidText(text string) bool {
	return strings.TrimSpace(text) != ""
}
