package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/vovakirdan/supportchat-server/internal/store"
)

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New opens the SQLite database at dbPath and applies pending migrations.
// Use ":memory:" for a throwaway database.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=1")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; it also keeps ":memory:" a single database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if err := migrate(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) timestamp() int64 {
	return s.now().UTC().UnixNano()
}

func fromTimestamp(ns int64) time.Time {
	return time.Unix(0, ns).UTC()
}

// ==== UserStore implementation ====

// CreateUser creates a new user with hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, email, name, passwordHash string, role store.Role) (*store.User, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("insert user: invalid role %q", role)
	}

	query := `
		INSERT INTO users (id, email, name, password_hash, role, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	id := uuid.NewString()
	if _, err := s.db.ExecContext(ctx, query, id, email, name, passwordHash, string(role), s.timestamp()); err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrEmailTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

const userColumns = `id, email, name, password_hash, role, created_at`

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*store.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// GetUserByEmail retrieves a user by email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

// FindAdminUser returns the oldest administrator account.
func (s *SQLiteStore) FindAdminUser(ctx context.Context) (*store.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE role = 'ADMIN'
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	`
	return scanUser(s.db.QueryRowContext(ctx, query))
}

func scanUser(row *sql.Row) (*store.User, error) {
	var (
		user      store.User
		role      string
		createdAt int64
	)
	err := row.Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &role, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	user.Role = store.Role(role)
	user.CreatedAt = fromTimestamp(createdAt)
	return &user, nil
}

// ==== ChatStore implementation ====

// FindOrCreateChat returns the chat between idA and idB, creating it on first use.
// The UNIQUE pair_key column turns concurrent first calls into a single row.
func (s *SQLiteStore) FindOrCreateChat(ctx context.Context, idA, idB string) (*store.Chat, error) {
	if idA == idB {
		return nil, store.ErrSameParticipant
	}
	key := store.PairKey(idA, idB)

	chat, err := chatByPairKey(ctx, s.db, key)
	if err == nil {
		return checkPair(chat, idA, idB)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("check existing chat: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after commit
	}()

	var known int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE id IN (?, ?)`, idA, idB).Scan(&known); err != nil {
		return nil, fmt.Errorf("check participants: %w", err)
	}
	if known != 2 {
		return nil, fmt.Errorf("participant: %w", store.ErrNotFound)
	}

	chatID := uuid.NewString()
	result, err := tx.ExecContext(ctx, `
		INSERT INTO chats (id, pair_key, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(pair_key) DO NOTHING
	`, chatID, key, s.timestamp())
	if err != nil {
		return nil, fmt.Errorf("insert chat: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if inserted == 1 {
		memberQuery := `INSERT INTO chat_participants (chat_id, user_id) VALUES (?, ?)`
		if _, err := tx.ExecContext(ctx, memberQuery, chatID, idA); err != nil {
			return nil, fmt.Errorf("add participant: %w", err)
		}
		if _, err := tx.ExecContext(ctx, memberQuery, chatID, idB); err != nil {
			return nil, fmt.Errorf("add participant: %w", err)
		}
	}

	chat, err = chatByPairKey(ctx, tx, key)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return checkPair(chat, idA, idB)
}

// checkPair guards against a chat row whose participant set is not exactly {a, b}.
func checkPair(chat *store.Chat, a, b string) (*store.Chat, error) {
	if a > b {
		a, b = b, a
	}
	if chat.Participants != [2]string{a, b} {
		return nil, fmt.Errorf("chat %s: participant set mismatch", chat.ID)
	}
	return chat, nil
}

// GetChat retrieves a chat by ID.
func (s *SQLiteStore) GetChat(ctx context.Context, id string) (*store.Chat, error) {
	var createdAt int64
	err := s.db.QueryRowContext(ctx, `SELECT created_at FROM chats WHERE id = ?`, id).Scan(&createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("chat: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query chat: %w", err)
	}

	chat := &store.Chat{ID: id, CreatedAt: fromTimestamp(createdAt)}
	if err := loadParticipants(ctx, s.db, chat); err != nil {
		return nil, err
	}
	return chat, nil
}

func chatByPairKey(ctx context.Context, q querier, key string) (*store.Chat, error) {
	var (
		chat      store.Chat
		createdAt int64
	)
	err := q.QueryRowContext(ctx, `SELECT id, created_at FROM chats WHERE pair_key = ?`, key).Scan(&chat.ID, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("chat: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query chat: %w", err)
	}
	chat.CreatedAt = fromTimestamp(createdAt)

	if err := loadParticipants(ctx, q, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

func loadParticipants(ctx context.Context, q querier, chat *store.Chat) error {
	rows, err := q.QueryContext(ctx, `
		SELECT user_id FROM chat_participants
		WHERE chat_id = ?
		ORDER BY user_id ASC
	`, chat.ID)
	if err != nil {
		return fmt.Errorf("query participants: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("scan participant: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate participants: %w", err)
	}
	if len(ids) != 2 {
		return fmt.Errorf("chat %s has %d participants", chat.ID, len(ids))
	}

	chat.Participants = [2]string{ids[0], ids[1]}
	return nil
}

// ==== Message implementation ====

// CreateMessage appends a message to a chat.
func (s *SQLiteStore) CreateMessage(ctx context.Context, chatID, senderID, body string) (*store.Message, error) {
	msg := &store.Message{
		ID:       uuid.NewString(),
		ChatID:   chatID,
		SenderID: senderID,
		Body:     body,
	}
	createdAt := s.timestamp()

	query := `
		INSERT INTO messages (id, chat_id, sender_id, body, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, msg.ID, chatID, senderID, body, createdAt); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	msg.CreatedAt = fromTimestamp(createdAt)
	return msg, nil
}

// ListMessages returns every message of a chat, oldest first. Messages with
// equal timestamps keep their insertion order.
func (s *SQLiteStore) ListMessages(ctx context.Context, chatID string) ([]*store.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, chat_id, sender_id, body, created_at
		FROM messages
		WHERE chat_id = ?
		ORDER BY created_at ASC, seq ASC
	`, chatID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*store.Message, 0)
	for rows.Next() {
		var (
			msg       store.Message
			createdAt int64
		)
		if err := rows.Scan(&msg.ID, &msg.ChatID, &msg.SenderID, &msg.Body, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.CreatedAt = fromTimestamp(createdAt)
		messages = append(messages, &msg)
	}

	return messages, rows.Err()
}

// ListUserChatsForAdmin returns one row per USER account that shares a chat
// with an administrator, carrying the latest message of that chat.
// Users without messages sort last.
//
// With more than one administrator a user can have several such chats; the
// row then reflects the chat with the newest message.
func (s *SQLiteStore) ListUserChatsForAdmin(ctx context.Context) ([]*store.UserChat, error) {
	query := `
		WITH admin_chats AS (
			SELECT pu.user_id AS user_id, c.id AS chat_id
			FROM chats c
			JOIN chat_participants pa ON pa.chat_id = c.id
			JOIN users a ON a.id = pa.user_id AND a.role = 'ADMIN'
			JOIN chat_participants pu ON pu.chat_id = c.id AND pu.user_id <> pa.user_id
		),
		latest AS (
			SELECT m.chat_id, m.body, m.created_at, m.seq,
				ROW_NUMBER() OVER (
					PARTITION BY m.chat_id
					ORDER BY m.created_at DESC, m.seq DESC
				) AS rn
			FROM messages m
			WHERE m.chat_id IN (SELECT chat_id FROM admin_chats)
		),
		per_user AS (
			SELECT ac.user_id, l.body, l.created_at,
				ROW_NUMBER() OVER (
					PARTITION BY ac.user_id
					ORDER BY l.created_at DESC, l.seq DESC
				) AS rn
			FROM admin_chats ac
			JOIN latest l ON l.chat_id = ac.chat_id AND l.rn = 1
		)
		SELECT u.id, u.email, r.body, r.created_at
		FROM users u
		JOIN (SELECT DISTINCT user_id FROM admin_chats) ac ON ac.user_id = u.id
		LEFT JOIN per_user r ON r.user_id = u.id AND r.rn = 1
		WHERE u.role = 'USER'
		ORDER BY r.created_at IS NULL, r.created_at DESC, u.email ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query user chats: %w", err)
	}
	defer rows.Close()

	chats := make([]*store.UserChat, 0)
	for rows.Next() {
		var (
			uc       store.UserChat
			lastBody sql.NullString
			lastTime sql.NullInt64
		)
		if err := rows.Scan(&uc.ID, &uc.Email, &lastBody, &lastTime); err != nil {
			return nil, fmt.Errorf("scan user chat: %w", err)
		}
		if lastBody.Valid {
			uc.LastMessage = &lastBody.String
		}
		if lastTime.Valid {
			t := fromTimestamp(lastTime.Int64)
			uc.LastMessageTime = &t
		}
		chats = append(chats, &uc)
	}

	return chats, rows.Err()
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
