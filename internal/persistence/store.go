// Package persistence provides SQLite-based story storage.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/storytown/internal/story"
)

// ErrStoryNotFound marks a lookup for a name that was never saved.
var ErrStoryNotFound = errors.New("story not found")

// DB wraps a SQLite connection for story persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS stories (
		name TEXT PRIMARY KEY,
		scene_json TEXT NOT NULL,
		agents_json TEXT NOT NULL,
		outline_json TEXT NOT NULL,
		config_json TEXT NOT NULL,
		use_llm INTEGER NOT NULL,
		agent_states_json TEXT,
		current_step INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := db.conn.Exec(schema)
	return err
}

type storyRow struct {
	Name            string         `db:"name"`
	SceneJSON       string         `db:"scene_json"`
	AgentsJSON      string         `db:"agents_json"`
	OutlineJSON     string         `db:"outline_json"`
	ConfigJSON      string         `db:"config_json"`
	UseLLM          int            `db:"use_llm"`
	AgentStatesJSON sql.NullString `db:"agent_states_json"`
	CurrentStep     int            `db:"current_step"`
	CreatedAt       string         `db:"created_at"`
	UpdatedAt       string         `db:"updated_at"`
}

// SaveStory upserts one story record. An existing row keeps its creation
// time; everything else is replaced.
func (db *DB) SaveStory(name string, rec story.Record) error {
	sceneJSON, err := json.Marshal(rec.Scene)
	if err != nil {
		return fmt.Errorf("marshal scene: %w", err)
	}
	agentsJSON, err := json.Marshal(rec.Agents)
	if err != nil {
		return fmt.Errorf("marshal agents: %w", err)
	}
	outlineJSON, err := json.Marshal(rec.Outline)
	if err != nil {
		return fmt.Errorf("marshal outline: %w", err)
	}
	configJSON, err := json.Marshal(rec.Config)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	statesJSON, err := json.Marshal(rec.AgentStates)
	if err != nil {
		return fmt.Errorf("marshal agent states: %w", err)
	}

	useLLM := 0
	if rec.UseLLM {
		useLLM = 1
	}
	now := time.Now().UTC().Format(time.RFC3339)

	_, err = db.conn.Exec(`
		INSERT INTO stories (name, scene_json, agents_json, outline_json, config_json,
			use_llm, agent_states_json, current_step, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			scene_json = excluded.scene_json,
			agents_json = excluded.agents_json,
			outline_json = excluded.outline_json,
			config_json = excluded.config_json,
			use_llm = excluded.use_llm,
			agent_states_json = excluded.agent_states_json,
			current_step = excluded.current_step,
			updated_at = excluded.updated_at`,
		name, string(sceneJSON), string(agentsJSON), string(outlineJSON), string(configJSON),
		useLLM, string(statesJSON), rec.CurrentStep, now, now)
	if err != nil {
		return fmt.Errorf("save story %q: %w", name, err)
	}
	return nil
}

// LoadStory reads one story record. Room connections are pruned on every
// load; stored structures are not trusted either.
func (db *DB) LoadStory(name string) (story.Record, error) {
	var row storyRow
	err := db.conn.Get(&row, "SELECT * FROM stories WHERE name = ?", name)
	if errors.Is(err, sql.ErrNoRows) {
		return story.Record{}, fmt.Errorf("%w: %s", ErrStoryNotFound, name)
	}
	if err != nil {
		return story.Record{}, fmt.Errorf("load story %q: %w", name, err)
	}

	var rec story.Record
	if err := json.Unmarshal([]byte(row.SceneJSON), &rec.Scene); err != nil {
		return story.Record{}, fmt.Errorf("unmarshal scene: %w", err)
	}
	if err := json.Unmarshal([]byte(row.AgentsJSON), &rec.Agents); err != nil {
		return story.Record{}, fmt.Errorf("unmarshal agents: %w", err)
	}
	if err := json.Unmarshal([]byte(row.OutlineJSON), &rec.Outline); err != nil {
		return story.Record{}, fmt.Errorf("unmarshal outline: %w", err)
	}
	if err := json.Unmarshal([]byte(row.ConfigJSON), &rec.Config); err != nil {
		return story.Record{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if row.AgentStatesJSON.Valid && row.AgentStatesJSON.String != "" {
		if err := json.Unmarshal([]byte(row.AgentStatesJSON.String), &rec.AgentStates); err != nil {
			return story.Record{}, fmt.Errorf("unmarshal agent states: %w", err)
		}
	}
	rec.UseLLM = row.UseLLM != 0
	rec.CurrentStep = row.CurrentStep

	rec.Scene.Structure.PruneConnections()
	rec.Outline.SceneStructure.PruneConnections()

	return rec, nil
}

// StoryInfo is one row of the story list.
type StoryInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	AgentCount  int    `json:"agent_count"`
	CurrentStep int    `json:"current_step"`
	Created     string `json:"created"`
}

// ListStories returns summaries of all saved stories, newest first.
func (db *DB) ListStories() ([]StoryInfo, error) {
	var rows []storyRow
	err := db.conn.Select(&rows, "SELECT * FROM stories ORDER BY created_at DESC, name DESC")
	if err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}

	infos := make([]StoryInfo, 0, len(rows))
	for _, row := range rows {
		var cfg story.Config
		if err := json.Unmarshal([]byte(row.ConfigJSON), &cfg); err != nil {
			continue
		}
		infos = append(infos, StoryInfo{
			Name:        row.Name,
			Description: cfg.SceneDescription,
			AgentCount:  cfg.AgentCount,
			CurrentStep: row.CurrentStep,
			Created:     row.CreatedAt,
		})
	}
	return infos, nil
}

// DeleteStory removes one story. Deleting a missing story is not an error.
func (db *DB) DeleteStory(name string) error {
	_, err := db.conn.Exec("DELETE FROM stories WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("delete story %q: %w", name, err)
	}
	return nil
}
