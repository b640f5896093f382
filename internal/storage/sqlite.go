package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/mattn/go-sqlite3"

	"github.com/zhouzirui/z-messenger/internal/model/auth"
	"github.com/zhouzirui/z-messenger/internal/model/chat"
)

var schema = []string{
	`users (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		login         TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		created_at    INTEGER NOT NULL
	)`,
	`chats (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		name       TEXT NOT NULL,
		creator_id INTEGER NOT NULL,
		is_group   BOOLEAN NOT NULL,
		avatar_url TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		FOREIGN KEY (creator_id) REFERENCES users(id)
	)`,
	`messages (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		chat_id   INTEGER NOT NULL,
		sender_id INTEGER NOT NULL,
		content   TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		FOREIGN KEY (chat_id) REFERENCES chats(id) ON DELETE CASCADE
	)`,
}

const sqliteDSNParams = "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"

var (
	userColumns    = []string{"id", "login", "password_hash", "created_at"}
	chatColumns    = []string{"id", "name", "creator_id", "is_group", "avatar_url", "created_at"}
	messageColumns = []string{"id", "chat_id", "sender_id", "content", "timestamp"}
)

// SQLiteStore implements Store on a single SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and ensures the schema exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Connection settings live in the DSN so every pooled connection gets them.
	db, err := sql.Open("sqlite3", path+sqliteDSNParams)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	for _, table := range schema {
		if _, err := db.Exec("CREATE TABLE IF NOT EXISTS " + table); err != nil {
			db.Close()
			return nil, fmt.Errorf("create tables: %w", err)
		}
	}
	if _, err := db.Exec("CREATE INDEX IF NOT EXISTS idx_messages_chat ON messages(chat_id, timestamp)"); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) CreateUser(ctx context.Context, login, passwordHash string) (auth.User, error) {
	now := time.Now().UTC()
	res, err := sq.Insert("users").
		Columns("login", "password_hash", "created_at").
		Values(login, passwordHash, now.UnixNano()).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return auth.User{}, ErrConflict
		}
		return auth.User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return auth.User{}, fmt.Errorf("user id: %w", err)
	}
	return auth.User{ID: id, Login: login, PasswordHash: passwordHash, CreatedAt: now}, nil
}

func (s *SQLiteStore) FindUserByLogin(ctx context.Context, login string) (auth.User, error) {
	var (
		user    auth.User
		created int64
	)
	err := sq.Select(userColumns...).
		From("users").
		Where(sq.Eq{"login": login}).
		RunWith(s.db).
		QueryRowContext(ctx).
		Scan(&user.ID, &user.Login, &user.PasswordHash, &created)
	if err != nil {
		return auth.User{}, notFound(err, "select user")
	}
	user.CreatedAt = time.Unix(0, created).UTC()
	return user, nil
}

func (s *SQLiteStore) CreateChat(ctx context.Context, c chat.Chat) (chat.Chat, error) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	res, err := sq.Insert("chats").
		Columns("name", "creator_id", "is_group", "avatar_url", "created_at").
		Values(c.Name, c.CreatorID, c.IsGroup, c.AvatarURL, c.CreatedAt.UnixNano()).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return chat.Chat{}, fmt.Errorf("insert chat: %w", err)
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return chat.Chat{}, fmt.Errorf("chat id: %w", err)
	}
	return c, nil
}

func (s *SQLiteStore) GetChat(ctx context.Context, id int64) (chat.Chat, error) {
	row := sq.Select(chatColumns...).
		From("chats").
		Where(sq.Eq{"id": id}).
		RunWith(s.db).
		QueryRowContext(ctx)
	c, err := scanChat(row)
	if err != nil {
		return chat.Chat{}, notFound(err, "select chat")
	}
	return c, nil
}

func (s *SQLiteStore) UpdateChat(ctx context.Context, update chat.Update) (chat.Chat, error) {
	if update.Name == nil && update.AvatarURL == nil {
		return s.GetChat(ctx, update.ChatID)
	}

	builder := sq.Update("chats").Where(sq.Eq{"id": update.ChatID})
	if update.Name != nil {
		builder = builder.Set("name", *update.Name)
	}
	if update.AvatarURL != nil {
		builder = builder.Set("avatar_url", *update.AvatarURL)
	}
	res, err := builder.RunWith(s.db).ExecContext(ctx)
	if err != nil {
		return chat.Chat{}, fmt.Errorf("update chat: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return chat.Chat{}, ErrNotFound
	}
	return s.GetChat(ctx, update.ChatID)
}

func (s *SQLiteStore) ListChatsByCreator(ctx context.Context, creatorID int64) ([]chat.Chat, error) {
	rows, err := sq.Select(chatColumns...).
		From("chats").
		Where(sq.Eq{"creator_id": creatorID}).
		OrderBy("id").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("select chats: %w", err)
	}
	defer rows.Close()

	out := make([]chat.Chat, 0, 8)
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CreateMessage(ctx context.Context, m chat.Message) (chat.Message, error) {
	if _, err := s.GetChat(ctx, m.ChatID); err != nil {
		return chat.Message{}, err
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	res, err := sq.Insert("messages").
		Columns("chat_id", "sender_id", "content", "timestamp").
		Values(m.ChatID, m.SenderID, m.Content, m.Timestamp.UnixNano()).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return chat.Message{}, fmt.Errorf("insert message: %w", err)
	}
	if m.ID, err = res.LastInsertId(); err != nil {
		return chat.Message{}, fmt.Errorf("message id: %w", err)
	}
	return m, nil
}

func (s *SQLiteStore) GetMessage(ctx context.Context, id int64) (chat.Message, error) {
	row := sq.Select(messageColumns...).
		From("messages").
		Where(sq.Eq{"id": id}).
		RunWith(s.db).
		QueryRowContext(ctx)
	m, err := scanMessage(row)
	if err != nil {
		return chat.Message{}, notFound(err, "select message")
	}
	return m, nil
}

func (s *SQLiteStore) UpdateMessageContent(ctx context.Context, id int64, content string) (chat.Message, error) {
	res, err := sq.Update("messages").
		Set("content", content).
		Where(sq.Eq{"id": id}).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return chat.Message{}, fmt.Errorf("update message: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return chat.Message{}, ErrNotFound
	}
	return s.GetMessage(ctx, id)
}

func (s *SQLiteStore) DeleteMessage(ctx context.Context, id int64) error {
	res, err := sq.Delete("messages").
		Where(sq.Eq{"id": id}).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) ListMessages(ctx context.Context, chatID int64) ([]chat.Message, error) {
	rows, err := sq.Select(messageColumns...).
		From("messages").
		Where(sq.Eq{"chat_id": chatID}).
		OrderBy("timestamp", "id").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("select messages: %w", err)
	}
	defer rows.Close()

	out := make([]chat.Message, 0, 16)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanChat(row scanner) (chat.Chat, error) {
	var (
		c       chat.Chat
		created int64
	)
	if err := row.Scan(&c.ID, &c.Name, &c.CreatorID, &c.IsGroup, &c.AvatarURL, &created); err != nil {
		return chat.Chat{}, err
	}
	c.CreatedAt = time.Unix(0, created).UTC()
	return c, nil
}

func scanMessage(row scanner) (chat.Message, error) {
	var (
		m  chat.Message
		ts int64
	)
	if err := row.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Content, &ts); err != nil {
		return chat.Message{}, err
	}
	m.Timestamp = time.Unix(0, ts).UTC()
	return m, nil
}

func notFound(err error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
