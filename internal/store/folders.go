// internal/store/folders.go
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vihaan69-420/school-agent-simple/internal/types"
)

// CreateFolder inserts a new folder. The name must be non-empty.
func (s *Store) CreateFolder(ctx context.Context, name, icon string) (*types.Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: folder name is required", types.ErrValidation)
	}
	folder := &types.Folder{
		ID:        types.NewFolderID(),
		Name:      name,
		Icon:      icon,
		CreatedAt: time.Now(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO folders (id, name, icon, created_at) VALUES (?, ?, ?, ?)`,
		string(folder.ID), folder.Name, folder.Icon, encodeTime(folder.CreatedAt))
	if err != nil {
		return nil, &types.PersistenceError{Op: "create folder", Err: err}
	}
	return folder, nil
}

// ListFolders returns all folders ordered by name, with the member
// session count computed live.
func (s *Store) ListFolders(ctx context.Context) ([]*types.Folder, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT f.id, f.name, f.icon, f.created_at,
		        (SELECT COUNT(*) FROM sessions s WHERE s.folder_id = f.id) AS count
		 FROM folders f ORDER BY f.name, f.id`)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	defer rows.Close()

	folders := []*types.Folder{}
	for rows.Next() {
		var (
			folder      types.Folder
			id, created string
		)
		if err := rows.Scan(&id, &folder.Name, &folder.Icon, &created, &folder.Count); err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		folder.ID = types.FolderID(id)
		folder.CreatedAt = decodeTime(created)
		folders = append(folders, &folder)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	return folders, nil
}

// DeleteFolder removes the folder and detaches its member sessions.
// The sessions themselves are kept.
func (s *Store) DeleteFolder(ctx context.Context, id types.FolderID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &types.PersistenceError{Op: "delete folder", Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET folder_id = NULL WHERE folder_id = ?`, string(id)); err != nil {
		return &types.PersistenceError{Op: "detach sessions", Err: err}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM folders WHERE id = ?`, string(id))
	if err != nil {
		return &types.PersistenceError{Op: "delete folder", Err: err}
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("folder %s: %w", id, types.ErrNotFound)
	}
	if err := tx.Commit(); err != nil {
		return &types.PersistenceError{Op: "delete folder", Err: err}
	}
	return nil
}
