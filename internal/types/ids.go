// internal/types/ids.go
package types

import "github.com/google/uuid"

type SessionID string
type MessageID string
type FolderID string
type ArtifactID string

func NewSessionID() SessionID {
	return SessionID(uuid.New().String())
}

func NewMessageID() MessageID {
	return MessageID(uuid.New().String())
}

func NewFolderID() FolderID {
	return FolderID(uuid.New().String())
}

func NewArtifactID() ArtifactID {
	return ArtifactID(uuid.New().String())
}
