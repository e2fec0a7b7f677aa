// Package stats aggregates the user base for the admin panel: per-deep-link
// registration counts and the chunked user listing.
package stats

import (
	"context"
	"fmt"
	"strings"

	"github.com/silkway-digital/showcase-bot/pkg/store"
)

// MaxMessageLength is the transport's single-message size limit. User
// listings are split into chunks below it, never mid-record.
const MaxMessageLength = 4096

// UserSource is the slice of the user store the aggregator needs.
type UserSource interface {
	Count(ctx context.Context) (int, error)
	ListAll(ctx context.Context) ([]store.User, error)
	CountByDeepLink(ctx context.Context) ([]store.OriginCount, error)
}

// NameResolver resolves a deep-link slug to its display name, falling back to
// the raw slug for entries removed from the catalog.
type NameResolver interface {
	Name(slug string) string
}

// Origin is one group of the per-source aggregation. Slug is nil for users
// that arrived without a referral link.
type Origin struct {
	Slug  *string
	Name  string
	Count int
}

// Report is the admin stats snapshot. The origin counts always sum to Total.
type Report struct {
	Total   int
	Origins []Origin
}

// BuildReport joins the store's grouping against the deep-link catalog. The
// catalog's key set may have changed since users registered; unknown slugs
// keep their raw value as the name.
func BuildReport(ctx context.Context, src UserSource, names NameResolver) (*Report, error) {
	total, err := src.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting users: %w", err)
	}

	groups, err := src.CountByDeepLink(ctx)
	if err != nil {
		return nil, fmt.Errorf("grouping users: %w", err)
	}

	r := &Report{Total: total, Origins: make([]Origin, 0, len(groups))}
	for _, g := range groups {
		o := Origin{Slug: g.DeepLink, Count: g.Count}
		if g.DeepLink != nil {
			o.Name = names.Name(*g.DeepLink)
		}
		r.Origins = append(r.Origins, o)
	}
	return r, nil
}

// FormatAdminStats renders the report as the admin panel stats block.
func FormatAdminStats(r *Report) string {
	lines := []string{fmt.Sprintf("Пользователей: %d", r.Total)}
	for _, o := range r.Origins {
		if o.Slug == nil {
			lines = append(lines, fmt.Sprintf("Без ссылки: %d", o.Count))
			continue
		}
		lines = append(lines, fmt.Sprintf("По ссылке %s (%s): %d", *o.Slug, o.Name, o.Count))
	}
	return strings.Join(lines, "\n")
}

// FormatUserChunks renders all users (ascending internal-id order as listed)
// into messages no longer than MaxMessageLength, splitting strictly between
// records.
func FormatUserChunks(users []store.User) []string {
	if len(users) == 0 {
		return []string{"Пользователей пока нет."}
	}

	var (
		chunks  []string
		current []string
		length  int
	)
	for _, u := range users {
		line := formatUserLine(u)
		lineLen := len(line) + 1
		if length+lineLen > MaxMessageLength && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, "\n"))
			current = nil
			length = 0
		}
		current = append(current, line)
		length += lineLen
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, "\n"))
	}
	return chunks
}

func formatUserLine(u store.User) string {
	username := "—"
	if u.Username != "" {
		username = "@" + u.Username
	}
	created := "—"
	if !u.CreatedAt.IsZero() {
		created = u.CreatedAt.Format("2006-01-02 15:04")
	}
	deepLink := "—"
	if u.DeepLink != nil {
		deepLink = *u.DeepLink
	}
	return fmt.Sprintf("• id: %d, chat_id: %d, username: %s, дата: %s, deep_link: %s",
		u.ID, u.ChatID, username, created, deepLink)
}
