// Package store persists known users in SQLite. A user row is created once on
// first contact; later contacts only refresh the display name. The join date
// and the origin deep link never change after creation, and rows are never
// deleted by the bot.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/silkway-digital/showcase-bot/pkg/logger"
)

// User is one known bot user.
type User struct {
	ID        int64
	ChatID    int64
	Username  string // empty when the user has no visible name
	CreatedAt time.Time
	DeepLink  *string // nil when the user arrived without a referral link
}

// OriginCount is one group of the per-deep-link aggregation. A nil DeepLink
// groups users that arrived without a referral.
type OriginCount struct {
	DeepLink *string
	Count    int
}

// Store wraps the SQLite connection.
type Store struct {
	db *sql.DB
}

// Open opens (and creates if needed) the database at path and applies schema
// migrations. Migrations are additive only: missing columns are added,
// existing data is never dropped.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	logger.InfoCF("store", "Database opened", map[string]any{"path": path})
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			chat_id    BIGINT NOT NULL UNIQUE,
			username   VARCHAR(255),
			created_at TIMESTAMP NOT NULL,
			deep_link  VARCHAR(255)
		)`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// Older deployments predate the created_at and deep_link columns.
	cols, err := s.columns("users")
	if err != nil {
		return err
	}
	if !cols["created_at"] {
		if _, err := s.db.Exec(`ALTER TABLE users ADD COLUMN created_at TIMESTAMP`); err != nil {
			return fmt.Errorf("adding created_at column: %w", err)
		}
	}
	if !cols["deep_link"] {
		if _, err := s.db.Exec(`ALTER TABLE users ADD COLUMN deep_link VARCHAR(255)`); err != nil {
			return fmt.Errorf("adding deep_link column: %w", err)
		}
	}
	return nil
}

func (s *Store) columns(table string) (map[string]bool, error) {
	rows, err := s.db.Query(fmt.Sprintf(`PRAGMA table_info(%s)`, table))
	if err != nil {
		return nil, fmt.Errorf("reading schema of %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid       int
			name      string
			ctype     string
			notnull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

// GetOrCreate returns the user with the given chat id, creating it on first
// contact. On later contacts only a changed, non-empty username is written
// back; created_at and deep_link stay as first recorded.
func (s *Store) GetOrCreate(ctx context.Context, chatID int64, username string, deepLink *string) (*User, error) {
	u, err := s.byChatID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if u != nil {
		if username != "" && u.Username != username {
			if _, err := s.db.ExecContext(ctx,
				`UPDATE users SET username = ? WHERE chat_id = ?`, username, chatID); err != nil {
				return nil, fmt.Errorf("updating username: %w", err)
			}
			u.Username = username
		}
		return u, nil
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (chat_id, username, created_at, deep_link) VALUES (?, ?, ?, ?)`,
		chatID, nullable(username), now, deepLink)
	if err != nil {
		return nil, fmt.Errorf("inserting user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &User{ID: id, ChatID: chatID, Username: username, CreatedAt: now, DeepLink: deepLink}, nil
}

func (s *Store) byChatID(ctx context.Context, chatID int64) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, chat_id, username, created_at, deep_link FROM users WHERE chat_id = ?`, chatID)
	u, err := scanUser(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("selecting user: %w", err)
	}
	return u, nil
}

// AllChatIDs returns every known chat id, for broadcast fan-out.
func (s *Store) AllChatIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT chat_id FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("selecting chat ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Count returns the total number of known users.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}

// ListAll returns all users in ascending internal-id order.
func (s *Store) ListAll(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, chat_id, username, created_at, deep_link FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("selecting users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows.Scan)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// CountByDeepLink groups users by their origin deep link. The NULL group
// (users without a referral) is included.
func (s *Store) CountByDeepLink(ctx context.Context) ([]OriginCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT deep_link, COUNT(id) FROM users GROUP BY deep_link ORDER BY deep_link`)
	if err != nil {
		return nil, fmt.Errorf("grouping users by deep link: %w", err)
	}
	defer rows.Close()

	var out []OriginCount
	for rows.Next() {
		var (
			link sql.NullString
			n    int
		)
		if err := rows.Scan(&link, &n); err != nil {
			return nil, err
		}
		oc := OriginCount{Count: n}
		if link.Valid {
			v := link.String
			oc.DeepLink = &v
		}
		out = append(out, oc)
	}
	return out, rows.Err()
}

func scanUser(scan func(dest ...any) error) (*User, error) {
	var (
		u        User
		username sql.NullString
		deepLink sql.NullString
	)
	if err := scan(&u.ID, &u.ChatID, &username, &u.CreatedAt, &deepLink); err != nil {
		return nil, err
	}
	u.Username = username.String
	if deepLink.Valid {
		v := deepLink.String
		u.DeepLink = &v
	}
	return &u, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
