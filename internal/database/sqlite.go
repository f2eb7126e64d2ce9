package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"roomchat/internal/models"
	"roomchat/pkg/logger"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteGateway is the default single-file store.
type SQLiteGateway struct {
	db *sql.DB
}

func NewSQLiteGateway(path string) (*SQLiteGateway, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY under concurrent sends.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	g := &SQLiteGateway{db: db}
	if err := g.ensureSchema(); err != nil {
		return nil, err
	}

	logger.Info("Opened sqlite database at %s", path)
	return g, nil
}

func (g *SQLiteGateway) ensureSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS rooms (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			room_id TEXT NOT NULL,
			username TEXT NOT NULL,
			message TEXT NOT NULL DEFAULT '',
			message_type TEXT NOT NULL DEFAULT 'text',
			file_url TEXT NOT NULL DEFAULT '',
			file_name TEXT NOT NULL DEFAULT '',
			timestamp DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_room ON messages (room_id, id)`,
	}

	for _, stmt := range statements {
		if _, err := g.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

func (g *SQLiteGateway) Close() error {
	return g.db.Close()
}

func (g *SQLiteGateway) EnsureRoom(ctx context.Context, roomID string) error {
	query := `INSERT OR IGNORE INTO rooms (id, name) VALUES (?, ?)`
	if _, err := g.db.ExecContext(ctx, query, roomID, roomDisplayName(roomID)); err != nil {
		return fmt.Errorf("failed to ensure room %q: %w", roomID, err)
	}
	return nil
}

func (g *SQLiteGateway) Room(ctx context.Context, roomID string) (*models.Room, error) {
	query := `SELECT id, name, created_at FROM rooms WHERE id = ?`

	room := &models.Room{}
	err := g.db.QueryRowContext(ctx, query, roomID).Scan(&room.ID, &room.Name, &room.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query room %q: %w", roomID, err)
	}
	return room, nil
}

func (g *SQLiteGateway) InsertMessage(ctx context.Context, msg *models.Message) error {
	query := `
		INSERT INTO messages (id, room_id, username, message, message_type, file_url, file_name, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := g.db.ExecContext(ctx, query,
		msg.ID, msg.RoomID, msg.Username, msg.Body, string(msg.Kind), msg.FileURL, msg.FileName, msg.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert message %s: %w", msg.ID, err)
	}
	return nil
}

func (g *SQLiteGateway) RecentMessages(ctx context.Context, roomID string, limit int) ([]*models.Message, error) {
	query := `
		SELECT id, room_id, username, message, message_type, file_url, file_name, timestamp
		FROM messages
		WHERE room_id = ?
		ORDER BY id DESC
		LIMIT ?`

	rows, err := g.db.QueryContext(ctx, query, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages for %q: %w", roomID, err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		msg := &models.Message{}
		var kind string
		if err := rows.Scan(&msg.ID, &msg.RoomID, &msg.Username, &msg.Body, &kind, &msg.FileURL, &msg.FileName, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		msg.Kind = models.MessageKind(kind)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message rows for %q: %w", roomID, err)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

func (g *SQLiteGateway) MessageAuthor(ctx context.Context, messageID, roomID string) (string, error) {
	query := `SELECT username FROM messages WHERE id = ? AND room_id = ?`

	var author string
	err := g.db.QueryRowContext(ctx, query, messageID, roomID).Scan(&author)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to query message author: %w", err)
	}
	return author, nil
}

func (g *SQLiteGateway) DeleteMessage(ctx context.Context, messageID, roomID string) error {
	query := `DELETE FROM messages WHERE id = ? AND room_id = ?`
	if _, err := g.db.ExecContext(ctx, query, messageID, roomID); err != nil {
		return fmt.Errorf("failed to delete message %s: %w", messageID, err)
	}
	return nil
}
