package database

import (
	"context"
	"errors"
	"fmt"

	"roomchat/internal/models"
	"roomchat/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresGateway struct {
	pool *pgxpool.Pool
}

func NewPostgresGateway(ctx context.Context, databaseURL string) (*PostgresGateway, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &PostgresGateway{pool: pool}
	if err := db.ensureSchema(ctx); err != nil {
		return nil, err
	}

	logger.Info("Connected to postgres successfully")
	return db, nil
}

func (db *PostgresGateway) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS rooms (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			room_id TEXT NOT NULL,
			username TEXT NOT NULL,
			message TEXT NOT NULL DEFAULT '',
			message_type TEXT NOT NULL DEFAULT 'text',
			file_url TEXT NOT NULL DEFAULT '',
			file_name TEXT NOT NULL DEFAULT '',
			timestamp TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_room ON messages (room_id, id)`,
	}

	for _, stmt := range statements {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

func (db *PostgresGateway) Close() error {
	db.pool.Close()
	return nil
}

func (db *PostgresGateway) EnsureRoom(ctx context.Context, roomID string) error {
	query := `
		INSERT INTO rooms (id, name) VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING`

	_, err := db.pool.Exec(ctx, query, roomID, roomDisplayName(roomID))
	return err
}

func (db *PostgresGateway) Room(ctx context.Context, roomID string) (*models.Room, error) {
	query := `SELECT id, name, created_at FROM rooms WHERE id = $1`

	room := &models.Room{}
	err := db.pool.QueryRow(ctx, query, roomID).Scan(&room.ID, &room.Name, &room.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return room, nil
}

func (db *PostgresGateway) InsertMessage(ctx context.Context, msg *models.Message) error {
	query := `
		INSERT INTO messages (id, room_id, username, message, message_type, file_url, file_name, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := db.pool.Exec(ctx, query,
		msg.ID, msg.RoomID, msg.Username, msg.Body, string(msg.Kind), msg.FileURL, msg.FileName, msg.Timestamp,
	)
	return err
}

func (db *PostgresGateway) RecentMessages(ctx context.Context, roomID string, limit int) ([]*models.Message, error) {
	// Message ids are ULIDs, so lexicographic id order is send order.
	query := `
		SELECT id, room_id, username, message, message_type, file_url, file_name, timestamp
		FROM messages
		WHERE room_id = $1
		ORDER BY id DESC
		LIMIT $2`

	rows, err := db.pool.Query(ctx, query, roomID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		msg := &models.Message{}
		var kind string
		if err := rows.Scan(&msg.ID, &msg.RoomID, &msg.Username, &msg.Body, &kind, &msg.FileURL, &msg.FileName, &msg.Timestamp); err != nil {
			return nil, err
		}
		msg.Kind = models.MessageKind(kind)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to show oldest first
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

func (db *PostgresGateway) MessageAuthor(ctx context.Context, messageID, roomID string) (string, error) {
	query := `SELECT username FROM messages WHERE id = $1 AND room_id = $2`

	var author string
	err := db.pool.QueryRow(ctx, query, messageID, roomID).Scan(&author)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return author, nil
}

func (db *PostgresGateway) DeleteMessage(ctx context.Context, messageID, roomID string) error {
	query := `DELETE FROM messages WHERE id = $1 AND room_id = $2`
	_, err := db.pool.Exec(ctx, query, messageID, roomID)
	return err
}
