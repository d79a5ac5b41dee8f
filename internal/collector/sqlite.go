package collector

import (
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/trustflow/internal/agents"
)

// SQLite persists generated traffic to a local database file.
type SQLite struct {
	conn *sqlx.DB
}

// OpenSQLite opens or creates the database at path and runs migrations.
func OpenSQLite(path string) (*SQLite, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &SQLite{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *SQLite) Close() error {
	return db.conn.Close()
}

func (db *SQLite) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS agents (
		id TEXT PRIMARY KEY,
		profile TEXT NOT NULL,
		addresses_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS actions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		iteration INTEGER NOT NULL,
		block INTEGER NOT NULL,
		agent_id TEXT NOT NULL,
		address TEXT NOT NULL,
		action TEXT NOT NULL,
		success INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS iterations (
		iteration INTEGER PRIMARY KEY,
		block INTEGER NOT NULL,
		total_actions INTEGER NOT NULL,
		successful_actions INTEGER NOT NULL,
		counts_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_actions_iteration ON actions(iteration);
	CREATE INDEX IF NOT EXISTS idx_actions_agent ON actions(agent_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// RecordAgent upserts one agent's identity and address set.
func (db *SQLite) RecordAgent(a *agents.Agent) error {
	addrs, _ := json.Marshal(a.Addresses)
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO agents (id, profile, addresses_json) VALUES (?, ?, ?)",
		a.ID.String(), a.Profile.Name, string(addrs),
	)
	return err
}

// RecordAction appends one executed action outcome.
func (db *SQLite) RecordAction(rec ActionRecord) error {
	success := 0
	if rec.Success {
		success = 1
	}
	_, err := db.conn.Exec(
		"INSERT INTO actions (iteration, block, agent_id, address, action, success) VALUES (?, ?, ?, ?, ?, ?)",
		rec.Iteration, rec.Block, rec.AgentID, string(rec.Address), rec.Action, success,
	)
	return err
}

// RecordIteration stores one iteration summary.
func (db *SQLite) RecordIteration(rec IterationRecord) error {
	counts, _ := json.Marshal(rec.ActionCounts)
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO iterations (iteration, block, total_actions, successful_actions, counts_json) VALUES (?, ?, ?, ?, ?)",
		rec.Iteration, rec.Block, rec.TotalActions, rec.SuccessfulActions, string(counts),
	)
	return err
}

// ActionCount returns the number of recorded action outcomes.
func (db *SQLite) ActionCount() (int, error) {
	var n int
	err := db.conn.Get(&n, "SELECT COUNT(*) FROM actions")
	return n, err
}
