package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tripchat/internal/migrations"
	"tripchat/internal/models"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Store is the primary structured store for conversations and messages. It
// runs over database/sql with either the postgres or the sqlite3 driver;
// queries are written with '?' placeholders and rebound for postgres.
type Store struct {
	db        *sql.DB
	driver    string
	encryptor *encryptor
}

// New opens the primary store, bootstraps the schema, and verifies
// connectivity with a ping.
func New(driver, dsn string) (*Store, error) {
	schema, err := migrations.Schema(driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open primary store: %w", err)
	}

	if err := db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to ping primary store: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to ping primary store: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize schema: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	encryptor, err := NewEncryptor()
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize encryptor: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize encryptor: %w", err)
	}

	return &Store{db: db, driver: driver, encryptor: encryptor}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// rebind rewrites '?' placeholders to '$N' for the postgres driver.
func (s *Store) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

const conversationColumns = `id, customer_ref, customer_name, customer_email, customer_phone,
	assigned_to, status, created_at, updated_at, last_message_at`

func (s *Store) scanConversation(scan func(...interface{}) error) (*models.Conversation, error) {
	var c models.Conversation
	var status, encEmail, encPhone string

	err := scan(&c.ID, &c.CustomerRef, &c.CustomerName, &encEmail, &encPhone,
		&c.AssignedTo, &status, &c.CreatedAt, &c.UpdatedAt, &c.LastMessageAt)
	if err != nil {
		return nil, err
	}
	c.Status = models.ConversationStatus(status)

	if c.CustomerEmail, err = s.encryptor.DecryptIfEnabled(encEmail); err != nil {
		return nil, fmt.Errorf("failed to decrypt customer email: %w", err)
	}
	if c.CustomerPhone, err = s.encryptor.DecryptIfEnabled(encPhone); err != nil {
		return nil, fmt.Errorf("failed to decrypt customer phone: %w", err)
	}
	return &c, nil
}

func (s *Store) ListConversations(ctx context.Context, filter models.ConversationFilter) ([]models.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations`
	var where []string
	var args []interface{}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Assignee != "" {
		where = append(where, "assigned_to = ?")
		args = append(args, filter.Assignee)
	}
	if filter.CustomerRef != "" {
		where = append(where, "customer_ref = ?")
		args = append(args, filter.CustomerRef)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY last_message_at DESC"

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var out []models.Conversation
	for rows.Next() {
		c, err := s.scanConversation(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// GetConversation returns nil, nil when no conversation has the given id.
func (s *Store) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id = ?`
	row := s.db.QueryRowContext(ctx, s.rebind(query), id)

	c, err := s.scanConversation(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return c, nil
}

func (s *Store) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	encEmail, err := s.encryptor.EncryptIfEnabled(conv.CustomerEmail)
	if err != nil {
		return fmt.Errorf("failed to encrypt customer email: %w", err)
	}
	encPhone, err := s.encryptor.EncryptIfEnabled(conv.CustomerPhone)
	if err != nil {
		return fmt.Errorf("failed to encrypt customer phone: %w", err)
	}

	query := `
		INSERT INTO conversations (` + conversationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, s.rebind(query),
		conv.ID, conv.CustomerRef, conv.CustomerName, encEmail, encPhone,
		conv.AssignedTo, string(conv.Status), conv.CreatedAt, conv.UpdatedAt, conv.LastMessageAt)
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}

// UpdateConversation applies the non-nil patch fields and returns the updated
// record, or nil, nil when the conversation does not exist.
func (s *Store) UpdateConversation(ctx context.Context, id string, patch models.ConversationPatch) (*models.Conversation, error) {
	var sets []string
	var args []interface{}

	if patch.CustomerName != nil {
		sets = append(sets, "customer_name = ?")
		args = append(args, *patch.CustomerName)
	}
	if patch.CustomerEmail != nil {
		enc, err := s.encryptor.EncryptIfEnabled(*patch.CustomerEmail)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt customer email: %w", err)
		}
		sets = append(sets, "customer_email = ?")
		args = append(args, enc)
	}
	if patch.CustomerPhone != nil {
		enc, err := s.encryptor.EncryptIfEnabled(*patch.CustomerPhone)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt customer phone: %w", err)
		}
		sets = append(sets, "customer_phone = ?")
		args = append(args, enc)
	}
	if patch.AssignedTo != nil {
		sets = append(sets, "assigned_to = ?")
		args = append(args, *patch.AssignedTo)
	}
	if patch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*patch.Status))
	}
	if patch.LastMessageAt != nil {
		sets = append(sets, "last_message_at = ?")
		args = append(args, *patch.LastMessageAt)
	}
	if patch.UpdatedAt != nil {
		sets = append(sets, "updated_at = ?")
		args = append(args, *patch.UpdatedAt)
	}

	if len(sets) == 0 {
		return s.GetConversation(ctx, id)
	}

	query := "UPDATE conversations SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	args = append(args, id)

	result, err := s.db.ExecContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update conversation: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return nil, nil
	}
	return s.GetConversation(ctx, id)
}

const messageColumns = `id, conversation_id, sender_ref, sender_name, sender_role,
	content, type, read_at, created_at`

func scanMessage(scan func(...interface{}) error) (*models.Message, error) {
	var m models.Message
	var role, msgType string
	var readAt sql.NullTime

	err := scan(&m.ID, &m.ConversationID, &m.SenderRef, &m.SenderName, &role,
		&m.Content, &msgType, &readAt, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	m.SenderRole = models.SenderRole(role)
	m.Type = models.MessageType(msgType)
	if readAt.Valid {
		t := readAt.Time
		m.ReadAt = &t
	}
	return &m, nil
}

func (s *Store) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE conversation_id = ? ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var out []models.Message
	for rows.Next() {
		m, err := scanMessage(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (s *Store) CreateMessage(ctx context.Context, msg *models.Message) error {
	query := `
		INSERT INTO messages (` + messageColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	var readAt interface{}
	if msg.ReadAt != nil {
		readAt = *msg.ReadAt
	}
	_, err := s.db.ExecContext(ctx, s.rebind(query),
		msg.ID, msg.ConversationID, msg.SenderRef, msg.SenderName, string(msg.SenderRole),
		msg.Content, string(msg.Type), readAt, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// MarkMessagesRead sets read_at on currently-unread customer messages in the
// conversation, optionally restricted to the given message ids.
func (s *Store) MarkMessagesRead(ctx context.Context, conversationID string, messageIDs []string, at time.Time) (int64, error) {
	query := `
		UPDATE messages SET read_at = ?
		WHERE conversation_id = ? AND sender_role = ? AND read_at IS NULL
	`
	args := []interface{}{at, conversationID, string(models.RoleCustomer)}

	if len(messageIDs) > 0 {
		placeholders := strings.Repeat("?, ", len(messageIDs))
		query += " AND id IN (" + strings.TrimSuffix(placeholders, ", ") + ")"
		for _, id := range messageIDs {
			args = append(args, id)
		}
	}

	result, err := s.db.ExecContext(ctx, s.rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages read: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows, nil
}

func (s *Store) unreadWhere(f models.UnreadFilter) (string, []interface{}) {
	where := `m.sender_role = ? AND m.read_at IS NULL AND c.status = ?`
	args := []interface{}{string(models.RoleCustomer), string(models.ConversationActive)}
	if f.Role == models.RoleStaff {
		where += " AND c.assigned_to = ?"
		args = append(args, f.Assignee)
	}
	return where, args
}

func (s *Store) CountUnread(ctx context.Context, f models.UnreadFilter) (int, error) {
	where, args := s.unreadWhere(f)
	query := `
		SELECT COUNT(*) FROM messages m
		JOIN conversations c ON m.conversation_id = c.id
		WHERE ` + where

	var count int
	if err := s.db.QueryRowContext(ctx, s.rebind(query), args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return count, nil
}

func (s *Store) UnreadByConversation(ctx context.Context, f models.UnreadFilter) (map[string]int, error) {
	where, args := s.unreadWhere(f)
	query := `
		SELECT m.conversation_id, COUNT(*) FROM messages m
		JOIN conversations c ON m.conversation_id = c.id
		WHERE ` + where + `
		GROUP BY m.conversation_id`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count unread by conversation: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var id string
		var count int
		if err := rows.Scan(&id, &count); err != nil {
			return nil, fmt.Errorf("failed to scan unread count: %w", err)
		}
		out[id] = count
	}
	return out, rows.Err()
}
