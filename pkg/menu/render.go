// Package menu renders the content catalog into chat messages: it plans which
// transport operations turn the current on-screen state into the requested
// section, builds the navigation keyboards, and tracks per-chat render state.
package menu

import (
	"context"
	"sync"

	"github.com/silkway-digital/showcase-bot/pkg/catalog"
	"github.com/silkway-digital/showcase-bot/pkg/logger"
	"github.com/silkway-digital/showcase-bot/pkg/transport"
)

// Shape is the current on-screen composition of a chat's menu message.
type Shape int

const (
	// ShapeNone is a plain text menu message.
	ShapeNone Shape = iota
	// ShapeSingle is one photo with the menu as its caption.
	ShapeSingle
	// ShapeAlbum is a 2..3 photo media group plus a separate text menu message.
	ShapeAlbum
)

func (s Shape) String() string {
	switch s {
	case ShapeNone:
		return "none"
	case ShapeSingle:
		return "single"
	case ShapeAlbum:
		return "album"
	}
	return "unknown"
}

// ShapeFor maps a target image count onto the shape it renders as.
func ShapeFor(imageCount int) Shape {
	switch {
	case imageCount >= 2:
		return ShapeAlbum
	case imageCount == 1:
		return ShapeSingle
	default:
		return ShapeNone
	}
}

// Op is a single transport operation within a render plan.
type Op int

const (
	// OpDeleteAlbum retracts the tracked album messages. Always first in any
	// plan leaving ShapeAlbum: a stale album outlives its text companion and
	// orphans the chat otherwise.
	OpDeleteAlbum Op = iota
	// OpDeleteMenu deletes the current menu message.
	OpDeleteMenu
	// OpEditText edits the menu text message in place.
	OpEditText
	// OpEditPhoto swaps photo and caption of the menu message in place.
	OpEditPhoto
	// OpSendText sends a new text message that becomes the menu message.
	OpSendText
	// OpSendPhoto sends a new photo message that becomes the menu message.
	OpSendPhoto
	// OpSendAlbum sends the new media group.
	OpSendAlbum
)

func (o Op) String() string {
	switch o {
	case OpDeleteAlbum:
		return "delete_album"
	case OpDeleteMenu:
		return "delete_menu"
	case OpEditText:
		return "edit_text"
	case OpEditPhoto:
		return "edit_photo"
	case OpSendText:
		return "send_text"
	case OpSendPhoto:
		return "send_photo"
	case OpSendAlbum:
		return "send_album"
	}
	return "unknown"
}

// Plan returns the ordered transport operations that move a chat from the
// current shape to the one implied by the target's image count.
func Plan(current Shape, imageCount int) []Op {
	switch current {
	case ShapeSingle:
		switch ShapeFor(imageCount) {
		case ShapeNone:
			return []Op{OpDeleteMenu, OpSendText}
		case ShapeSingle:
			return []Op{OpEditPhoto}
		default:
			return []Op{OpSendAlbum, OpDeleteMenu, OpSendText}
		}
	case ShapeAlbum:
		switch ShapeFor(imageCount) {
		case ShapeNone:
			return []Op{OpDeleteAlbum, OpEditText}
		case ShapeSingle:
			return []Op{OpDeleteAlbum, OpDeleteMenu, OpSendPhoto}
		default:
			return []Op{OpDeleteAlbum, OpSendAlbum, OpEditText}
		}
	default: // ShapeNone
		switch ShapeFor(imageCount) {
		case ShapeNone:
			return []Op{OpEditText}
		case ShapeSingle:
			return []Op{OpDeleteMenu, OpSendPhoto}
		default:
			return []Op{OpSendAlbum, OpEditText}
		}
	}
}

// State is the per-chat render state. It is ephemeral: losing it on restart
// only degrades the next transition, it never corrupts the chat.
type State struct {
	Path     string
	Shape    Shape
	MenuID   int
	AlbumIDs []int
}

// Sessions owns all per-chat render state. Interactions from different chats
// never share a State; concurrent interactions from the same chat are
// last-writer-wins.
type Sessions struct {
	mu    sync.Mutex
	chats map[int64]*State
}

func NewSessions() *Sessions {
	return &Sessions{chats: make(map[int64]*State)}
}

// Get returns the chat's state, creating an empty one on first touch.
func (s *Sessions) Get(chatID int64) *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.chats[chatID]
	if !ok {
		st = &State{}
		s.chats[chatID] = st
	}
	return st
}

// Reset replaces the chat's state, e.g. after /start sends a fresh menu.
func (s *Sessions) Reset(chatID int64, st *State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats[chatID] = st
}

// Renderer executes render plans against the transport.
type Renderer struct {
	cat *catalog.Catalog
	m   transport.Messenger
}

func NewRenderer(cat *catalog.Catalog, m transport.Messenger) *Renderer {
	return &Renderer{cat: cat, m: m}
}

// Show navigates the chat to the section at path. Transport failures are
// logged and the remaining steps still run: a duplicated or missing message
// is preferable to a stuck menu.
func (r *Renderer) Show(ctx context.Context, st *State, chatID int64, path string, isAdmin bool) {
	text := r.cat.Text(path)
	images := r.cat.Images(path)
	kb := BuildMenu(r.cat, path, isAdmin)

	for _, op := range Plan(st.Shape, len(images)) {
		switch op {
		case OpDeleteAlbum:
			for _, id := range st.AlbumIDs {
				if err := r.m.DeleteMessage(ctx, chatID, id); err != nil {
					logger.DebugCF("menu", "Album message delete failed", map[string]any{
						"chat_id": chatID, "message_id": id, "error": err.Error(),
					})
				}
			}
			st.AlbumIDs = nil

		case OpDeleteMenu:
			if err := r.m.DeleteMessage(ctx, chatID, st.MenuID); err != nil {
				logger.DebugCF("menu", "Menu message delete failed", map[string]any{
					"chat_id": chatID, "message_id": st.MenuID, "error": err.Error(),
				})
			}

		case OpEditText:
			if err := r.m.EditText(ctx, chatID, st.MenuID, text, kb); err != nil {
				logger.WarnCF("menu", "Menu text edit failed", map[string]any{
					"chat_id": chatID, "path": path, "error": err.Error(),
				})
			}

		case OpEditPhoto:
			if err := r.m.EditPhoto(ctx, chatID, st.MenuID, images[0], text, kb); err != nil {
				logger.WarnCF("menu", "Menu photo edit failed", map[string]any{
					"chat_id": chatID, "path": path, "error": err.Error(),
				})
			}

		case OpSendText:
			id, err := r.m.SendText(ctx, chatID, text, kb)
			if err != nil {
				logger.WarnCF("menu", "Menu text send failed", map[string]any{
					"chat_id": chatID, "path": path, "error": err.Error(),
				})
				break
			}
			st.MenuID = id

		case OpSendPhoto:
			id, err := r.m.SendPhoto(ctx, chatID, images[0], text, kb)
			if err != nil {
				logger.WarnCF("menu", "Menu photo send failed", map[string]any{
					"chat_id": chatID, "path": path, "error": err.Error(),
				})
				break
			}
			st.MenuID = id

		case OpSendAlbum:
			ids, err := r.m.SendAlbum(ctx, chatID, images)
			if err != nil {
				logger.WarnCF("menu", "Album send failed", map[string]any{
					"chat_id": chatID, "path": path, "error": err.Error(),
				})
				st.AlbumIDs = nil
				break
			}
			st.AlbumIDs = ids
		}
	}

	st.Path = path
	st.Shape = ShapeFor(len(images))
	if st.Shape != ShapeAlbum {
		st.AlbumIDs = nil
	}
}
