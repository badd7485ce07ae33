package database

import (
	"database/sql"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	_ "modernc.org/sqlite"
)

var DB *sql.DB

func InitDB(dbPath string) error {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(err, "failed to create database directory %s", dir)
		}
	}

	var err error
	DB, err = sql.Open("sqlite", dbPath)
	if err != nil {
		return errors.Wrap(err, "failed to connect to database")
	}
	DB.SetMaxOpenConns(1)

	createChatTable := `
	CREATE TABLE IF NOT EXISTS chat_messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		chat_id INTEGER NOT NULL,
		direction TEXT NOT NULL,
		text TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);`
	if _, err = DB.Exec(createChatTable); err != nil {
		return errors.Wrap(err, "failed to create chat_messages table")
	}
	if _, err = DB.Exec(`CREATE INDEX IF NOT EXISTS idx_chat_messages_chat ON chat_messages (chat_id, id);`); err != nil {
		return errors.Wrap(err, "failed to create chat_messages index")
	}

	createMetricsTable := `
		CREATE TABLE IF NOT EXISTS metrics (
		metric_name TEXT NOT NULL,
		label_key TEXT NOT NULL DEFAULT '',
		label_value TEXT NOT NULL DEFAULT '',
		metric_value REAL NOT NULL,
		PRIMARY KEY (metric_name, label_key, label_value)
	);`
	if _, err = DB.Exec(createMetricsTable); err != nil {
		return errors.Wrap(err, "failed to create metrics table")
	}

	log.WithField("path", dbPath).Info("🗄️ Database initialized successfully.")
	return nil
}

func CloseDB() error {
	if DB != nil {
		err := DB.Close()
		DB = nil
		return err
	}
	return nil
}
