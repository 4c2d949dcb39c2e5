// internal/store/sqlite.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vihaan69-420/school-agent-simple/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id            TEXT PRIMARY KEY,
	title         TEXT NOT NULL DEFAULT 'New Chat',
	model         TEXT NOT NULL DEFAULT 'general',
	created_at    TEXT NOT NULL,
	updated_at    TEXT NOT NULL,
	is_starred    INTEGER NOT NULL DEFAULT 0,
	is_archived   INTEGER NOT NULL DEFAULT 0,
	folder_id     TEXT,
	message_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS messages (
	id              TEXT PRIMARY KEY,
	session_id      TEXT NOT NULL,
	seq             INTEGER NOT NULL,
	role            TEXT NOT NULL,
	content         TEXT NOT NULL,
	created_at      TEXT NOT NULL,
	model           TEXT,
	sources         TEXT,
	processing_time REAL,
	error           INTEGER NOT NULL DEFAULT 0,
	UNIQUE (session_id, seq)
);

CREATE TABLE IF NOT EXISTS folders (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	icon       TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions (updated_at DESC);
CREATE INDEX IF NOT EXISTS idx_sessions_folder ON sessions (folder_id);
CREATE INDEX IF NOT EXISTS idx_messages_session ON messages (session_id, seq);
`

// Store is the SQLite-backed session and folder store. All mutations
// run inside transactions so readers never observe a partially written
// message list.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

const timeLayout = time.RFC3339Nano

func encodeTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func decodeTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

// Create inserts an empty session with a fresh id and both timestamps
// set to now. An empty modelID falls back to "general".
func (s *Store) Create(ctx context.Context, modelID string) (*types.Session, error) {
	if modelID == "" {
		modelID = "general"
	}
	now := time.Now()
	sess := &types.Session{
		ID:        types.NewSessionID(),
		Title:     "New Chat",
		ModelID:   modelID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, title, model, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		string(sess.ID), sess.Title, sess.ModelID, encodeTime(now), encodeTime(now))
	if err != nil {
		return nil, &types.PersistenceError{Op: "create session", Err: err}
	}
	return sess, nil
}

// CreateWithID inserts an empty session under a caller-chosen id, used
// when the presentation client names the session up front.
func (s *Store) CreateWithID(ctx context.Context, id types.SessionID, modelID string) (*types.Session, error) {
	if modelID == "" {
		modelID = "general"
	}
	now := time.Now()
	sess := &types.Session{
		ID:        id,
		Title:     "New Chat",
		ModelID:   modelID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, title, model, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		string(id), sess.Title, sess.ModelID, encodeTime(now), encodeTime(now))
	if err != nil {
		return nil, &types.PersistenceError{Op: "create session", Err: err}
	}
	return sess, nil
}

const sessionColumns = `id, title, model, created_at, updated_at, is_starred, is_archived, folder_id, message_count`

func scanSession(row interface{ Scan(...any) error }) (*types.Session, error) {
	var (
		sess                 types.Session
		id, created, updated string
		folder               sql.NullString
	)
	if err := row.Scan(&id, &sess.Title, &sess.ModelID, &created, &updated,
		&sess.IsStarred, &sess.IsArchived, &folder, &sess.MessageCount); err != nil {
		return nil, err
	}
	sess.ID = types.SessionID(id)
	sess.CreatedAt = decodeTime(created)
	sess.UpdatedAt = decodeTime(updated)
	if folder.Valid && folder.String != "" {
		fid := types.FolderID(folder.String)
		sess.FolderID = &fid
	}
	return &sess, nil
}

// Get returns the session with the given id.
func (s *Store) Get(ctx context.Context, id types.SessionID) (*types.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, string(id))
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session %s: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// List returns sessions matching the filter ordered by updated_at
// descending. Archived sessions are excluded unless requested.
func (s *Store) List(ctx context.Context, filter types.ListFilter) ([]*types.Session, error) {
	var (
		where []string
		args  []any
	)
	if !filter.IncludeArchived {
		where = append(where, "is_archived = 0")
	}
	if filter.StarredOnly {
		where = append(where, "is_starred = 1")
	}
	if filter.FolderID != nil {
		where = append(where, "folder_id = ?")
		args = append(args, string(*filter.FolderID))
	}
	query := `SELECT ` + sessionColumns + ` FROM sessions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY updated_at DESC, created_at DESC, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []*types.Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// Update applies a partial patch to session metadata and bumps
// updated_at. Returns the updated record.
func (s *Store) Update(ctx context.Context, id types.SessionID, patch types.SessionPatch) (*types.Session, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var (
		sets []string
		args []any
	)
	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.ModelID != nil {
		sets = append(sets, "model = ?")
		args = append(args, *patch.ModelID)
	}
	if patch.IsStarred != nil {
		sets = append(sets, "is_starred = ?")
		args = append(args, *patch.IsStarred)
	}
	if patch.IsArchived != nil {
		sets = append(sets, "is_archived = ?")
		args = append(args, *patch.IsArchived)
	}
	if patch.FolderID != nil {
		sets = append(sets, "folder_id = ?")
		if *patch.FolderID == "" {
			args = append(args, nil)
		} else {
			args = append(args, string(*patch.FolderID))
		}
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, encodeTime(monotonicNow(sess.UpdatedAt)))
	args = append(args, string(id))

	query := "UPDATE sessions SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return nil, &types.PersistenceError{Op: "update session", Err: err}
	}
	return s.Get(ctx, id)
}

// Delete removes the session and all its messages. Irreversible.
func (s *Store) Delete(ctx context.Context, id types.SessionID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &types.PersistenceError{Op: "delete session", Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, string(id)); err != nil {
		return &types.PersistenceError{Op: "delete messages", Err: err}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, string(id))
	if err != nil {
		return &types.PersistenceError{Op: "delete session", Err: err}
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("session %s: %w", id, types.ErrNotFound)
	}
	if err := tx.Commit(); err != nil {
		return &types.PersistenceError{Op: "delete session", Err: err}
	}
	return nil
}

// AppendMessage appends msg to the session's message list, recomputes
// message_count, and bumps updated_at, all in one transaction.
func (s *Store) AppendMessage(ctx context.Context, id types.SessionID, msg *types.Message) (*types.Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &types.PersistenceError{Op: "append message", Err: err}
	}
	defer tx.Rollback()

	var prevUpdated string
	err = tx.QueryRowContext(ctx, `SELECT updated_at FROM sessions WHERE id = ?`, string(id)).Scan(&prevUpdated)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session %s: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return nil, &types.PersistenceError{Op: "append message", Err: err}
	}

	var seq int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE session_id = ?`, string(id)).Scan(&seq); err != nil {
		return nil, &types.PersistenceError{Op: "append message", Err: err}
	}

	if msg.ID == "" {
		msg.ID = types.NewMessageID()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	msg.SessionID = id

	var sources any
	if len(msg.Sources) > 0 {
		data, err := json.Marshal(msg.Sources)
		if err != nil {
			return nil, &types.PersistenceError{Op: "append message", Err: err}
		}
		sources = string(data)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO messages (id, session_id, seq, role, content, created_at, model, sources, processing_time, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(msg.ID), string(id), seq, string(msg.Role), msg.Content,
		encodeTime(msg.Timestamp), nullIfEmpty(msg.Model), sources, msg.ProcessingTime, msg.Error)
	if err != nil {
		return nil, &types.PersistenceError{Op: "append message", Err: err}
	}

	updated := monotonicNow(decodeTime(prevUpdated))
	_, err = tx.ExecContext(ctx,
		`UPDATE sessions SET message_count = ?, updated_at = ? WHERE id = ?`,
		seq+1, encodeTime(updated), string(id))
	if err != nil {
		return nil, &types.PersistenceError{Op: "append message", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return nil, &types.PersistenceError{Op: "append message", Err: err}
	}
	return s.Get(ctx, id)
}

// Messages returns the session's messages in insertion order.
func (s *Store) Messages(ctx context.Context, id types.SessionID) ([]*types.Message, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, role, content, created_at, model, sources, processing_time, error
		 FROM messages WHERE session_id = ? ORDER BY seq`, string(id))
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := []*types.Message{}
	for rows.Next() {
		var (
			msg            types.Message
			mid, created   string
			model, sources sql.NullString
			procTime       sql.NullFloat64
		)
		if err := rows.Scan(&mid, &msg.Role, &msg.Content, &created, &model, &sources, &procTime, &msg.Error); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.ID = types.MessageID(mid)
		msg.SessionID = id
		msg.Timestamp = decodeTime(created)
		msg.Model = model.String
		if procTime.Valid {
			msg.ProcessingTime = procTime.Float64
		}
		if sources.Valid && sources.String != "" {
			if err := json.Unmarshal([]byte(sources.String), &msg.Sources); err != nil {
				return nil, fmt.Errorf("decode sources: %w", err)
			}
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

// Search returns sessions whose title or any message content contains
// query case-insensitively, in list order. An empty query is the
// unfiltered listing.
func (s *Store) Search(ctx context.Context, query string) ([]*types.Session, error) {
	if strings.TrimSpace(query) == "" {
		return s.List(ctx, types.ListFilter{IncludeArchived: true})
	}
	pattern := "%" + strings.ToLower(query) + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions s
		 WHERE lower(s.title) LIKE ?
		    OR EXISTS (SELECT 1 FROM messages m WHERE m.session_id = s.id AND lower(m.content) LIKE ?)
		 ORDER BY s.updated_at DESC, s.created_at DESC, s.id`,
		pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("search sessions: %w", err)
	}
	defer rows.Close()

	sessions := []*types.Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search sessions: %w", err)
	}
	return sessions, nil
}

// ReplaceAndTruncate rewrites the content of the user message at index
// and deletes every message after it, recomputing message_count, in one
// transaction. The message at index must have role "user".
func (s *Store) ReplaceAndTruncate(ctx context.Context, id types.SessionID, index int, content string) (*types.Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &types.PersistenceError{Op: "edit message", Err: err}
	}
	defer tx.Rollback()

	var prevUpdated string
	err = tx.QueryRowContext(ctx, `SELECT updated_at FROM sessions WHERE id = ?`, string(id)).Scan(&prevUpdated)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session %s: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return nil, &types.PersistenceError{Op: "edit message", Err: err}
	}

	var role string
	err = tx.QueryRowContext(ctx,
		`SELECT role FROM messages WHERE session_id = ? AND seq = ?`, string(id), index).Scan(&role)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("message index %d: %w", index, types.ErrNotFound)
	}
	if err != nil {
		return nil, &types.PersistenceError{Op: "edit message", Err: err}
	}
	if types.Role(role) != types.RoleUser {
		return nil, fmt.Errorf("%w: only user messages can be edited", types.ErrValidation)
	}

	now := time.Now()
	if _, err := tx.ExecContext(ctx,
		`UPDATE messages SET content = ?, created_at = ? WHERE session_id = ? AND seq = ?`,
		content, encodeTime(now), string(id), index); err != nil {
		return nil, &types.PersistenceError{Op: "edit message", Err: err}
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM messages WHERE session_id = ? AND seq > ?`, string(id), index); err != nil {
		return nil, &types.PersistenceError{Op: "edit message", Err: err}
	}

	updated := monotonicNow(decodeTime(prevUpdated))
	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET message_count = ?, updated_at = ? WHERE id = ?`,
		index+1, encodeTime(updated), string(id)); err != nil {
		return nil, &types.PersistenceError{Op: "edit message", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return nil, &types.PersistenceError{Op: "edit message", Err: err}
	}
	return s.Get(ctx, id)
}

// monotonicNow keeps updated_at non-decreasing even when the wall
// clock steps backwards between writes: the new stamp never precedes
// the previous updated_at.
func monotonicNow(prevUpdated time.Time) time.Time {
	now := time.Now()
	if now.Before(prevUpdated) {
		return prevUpdated
	}
	return now
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
