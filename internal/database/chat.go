package database

import (
	"time"

	"github.com/pkg/errors"
)

const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

// ChatMessage is one stored line of conversation with the bot.
type ChatMessage struct {
	ID        int64
	ChatID    int64
	Direction string
	Text      string
	CreatedAt time.Time
}

// InsertChatMessage appends a message to the chat history.
func InsertChatMessage(chatID int64, direction, text string) error {
	if DB == nil {
		return errors.New("database not initialized")
	}
	query := `
	INSERT INTO chat_messages (chat_id, direction, text, created_at)
	VALUES (?, ?, ?, ?);`

	_, err := DB.Exec(query, chatID, direction, text, time.Now().Unix())
	if err != nil {
		return errors.Wrapf(err, "failed to insert chat message for chat %d", chatID)
	}
	return nil
}

// RecentChatMessages returns up to limit messages of a chat, oldest first.
func RecentChatMessages(chatID int64, limit int) ([]ChatMessage, error) {
	if DB == nil {
		return nil, errors.New("database not initialized")
	}
	query := `
	SELECT id, chat_id, direction, text, created_at
	FROM chat_messages
	WHERE chat_id = ?
	ORDER BY id DESC
	LIMIT ?;`

	rows, err := DB.Query(query, chatID, limit)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query chat history for chat %d", chatID)
	}
	defer rows.Close()

	var messages []ChatMessage
	for rows.Next() {
		var m ChatMessage
		var createdAt int64
		if err := rows.Scan(&m.ID, &m.ChatID, &m.Direction, &m.Text, &createdAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan row")
		}
		m.CreatedAt = time.Unix(createdAt, 0).UTC()
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
