// internal/types/interfaces.go
package types

import "context"

// SessionStore is the durable mapping of session id to session record
// and its ordered message list. List and Search return sessions ordered
// by updated_at descending.
type SessionStore interface {
	Create(ctx context.Context, modelID string) (*Session, error)
	CreateWithID(ctx context.Context, id SessionID, modelID string) (*Session, error)
	Get(ctx context.Context, id SessionID) (*Session, error)
	List(ctx context.Context, filter ListFilter) ([]*Session, error)
	Update(ctx context.Context, id SessionID, patch SessionPatch) (*Session, error)
	Delete(ctx context.Context, id SessionID) error
	AppendMessage(ctx context.Context, id SessionID, msg *Message) (*Session, error)
	Messages(ctx context.Context, id SessionID) ([]*Message, error)
	Search(ctx context.Context, query string) ([]*Session, error)

	// ReplaceAndTruncate rewrites the content of the user message at
	// index and discards every message after it, in one transaction.
	ReplaceAndTruncate(ctx context.Context, id SessionID, index int, content string) (*Session, error)
}

// FolderStore owns folder records. Deleting a folder detaches member
// sessions instead of deleting them.
type FolderStore interface {
	CreateFolder(ctx context.Context, name, icon string) (*Folder, error)
	ListFolders(ctx context.Context) ([]*Folder, error)
	DeleteFolder(ctx context.Context, id FolderID) error
}
