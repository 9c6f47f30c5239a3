// Package seeds loads bootstrap memories for agents from a SQLite database.
// A fresh database is created with a small sample set so the application is
// usable out of the box.
package seeds

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// ModeCombined selects seed rows regardless of their mode column.
const ModeCombined = "combined"

// InitDB creates the seeds table at path and inserts sample rows when the
// table is empty.
func InitDB(path string) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("failed to open seed database: %w", err)
	}
	defer db.Close()

	_, err = db.Exec(
		`CREATE TABLE IF NOT EXISTS seeds (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			agent TEXT NOT NULL,
			mode TEXT NOT NULL,
			text TEXT NOT NULL
		)`,
	)
	if err != nil {
		return fmt.Errorf("failed to create seeds table: %w", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM seeds").Scan(&count); err != nil {
		return fmt.Errorf("failed to count seeds: %w", err)
	}
	if count > 0 {
		return nil
	}

	sample := []struct {
		agent, mode, text string
	}{
		{"mateo", "interview", "I study HCI at Stanford."},
		{"mateo", "web", "I enjoy Radiohead."},
		{"dünya", "interview", "I was born in Turkey."},
		{"dünya", "web", "I like to dance."},
	}
	for _, s := range sample {
		if _, err := db.Exec(
			"INSERT INTO seeds(agent, mode, text) VALUES(?, ?, ?)",
			s.agent, s.mode, s.text,
		); err != nil {
			return fmt.Errorf("failed to insert sample seed: %w", err)
		}
	}
	return nil
}

// LoadSeedMemories returns the seed texts for an agent in insertion order.
// Mode ModeCombined matches every mode. A missing database file yields an
// empty result rather than an error.
func LoadSeedMemories(path, agent, mode string) ([]string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open seed database: %w", err)
	}
	defer db.Close()

	agent = strings.ToLower(agent)

	var rows *sql.Rows
	if mode == ModeCombined {
		rows, err = db.Query("SELECT text FROM seeds WHERE agent=? ORDER BY id", agent)
	} else {
		rows, err = db.Query("SELECT text FROM seeds WHERE agent=? AND mode=? ORDER BY id", agent, mode)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query seeds: %w", err)
	}
	defer rows.Close()

	var texts []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, fmt.Errorf("failed to scan seed row: %w", err)
		}
		texts = append(texts, text)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read seed rows: %w", err)
	}
	return texts, nil
}
