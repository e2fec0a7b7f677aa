package menu

import (
	"strings"

	"github.com/silkway-digital/showcase-bot/pkg/catalog"
	"github.com/silkway-digital/showcase-bot/pkg/transport"
)

// Button labels shown to users.
const (
	LabelAdminPanel = "Админ панель"
	LabelBack       = "Назад"
	LabelBroadcast  = "Рассылка"
	LabelUserList   = "Список пользователей"
)

// Callback data prefixes. Menu callbacks carry the target path; admin
// callbacks carry an action.
const (
	prefixMenuOpen = "menu:open:"
	prefixMenuBack = "menu:back:"
	prefixAdmin    = "admin:"
)

// Admin panel actions.
const (
	AdminActionPanel     = "panel"
	AdminActionBroadcast = "broadcast"
	AdminActionUserList  = "users"
	AdminActionBack      = "back"
)

func OpenCallback(path string) string  { return prefixMenuOpen + path }
func BackCallback(path string) string  { return prefixMenuBack + path }
func AdminCallback(action string) string { return prefixAdmin + action }

// ParseMenuCallback extracts the target path from a menu callback. Both
// "open" and "back" navigate to the carried path.
func ParseMenuCallback(data string) (path string, ok bool) {
	if p, found := strings.CutPrefix(data, prefixMenuOpen); found {
		return p, true
	}
	if p, found := strings.CutPrefix(data, prefixMenuBack); found {
		return p, true
	}
	return "", false
}

// ParseAdminCallback extracts the action from an admin callback.
func ParseAdminCallback(data string) (action string, ok bool) {
	return strings.CutPrefix(data, prefixAdmin)
}

// BuildMenu builds the navigation keyboard for path: one row per child in
// stored order, an admin entry at the root for admins, and a trailing Back
// button bound to the parent for any non-root path.
func BuildMenu(cat *catalog.Catalog, path string, isAdmin bool) *transport.Keyboard {
	kb := &transport.Keyboard{}

	for _, child := range cat.Children(path) {
		title := child.Title
		if title == "" {
			title = child.ID
		}
		kb.Buttons = append(kb.Buttons, transport.Button{
			Label: title,
			Data:  OpenCallback(child.Path),
		})
	}

	if path == "" && isAdmin {
		kb.Buttons = append(kb.Buttons, transport.Button{
			Label: LabelAdminPanel,
			Data:  AdminCallback(AdminActionPanel),
		})
	}

	if path != "" {
		kb.Buttons = append(kb.Buttons, transport.Button{
			Label: LabelBack,
			Data:  BackCallback(catalog.ParentPath(path)),
		})
	}

	return kb
}

// BuildAdminPanel builds the admin panel keyboard.
func BuildAdminPanel() *transport.Keyboard {
	return &transport.Keyboard{Buttons: []transport.Button{
		{Label: LabelBroadcast, Data: AdminCallback(AdminActionBroadcast)},
		{Label: LabelUserList, Data: AdminCallback(AdminActionUserList)},
		{Label: LabelBack, Data: AdminCallback(AdminActionBack)},
	}}
}
