// internal/types/models.go
package types

import (
	"fmt"
	"time"
)

// Role is a closed tag for message authorship. Any other value is
// rejected at the API boundary.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ParseRole validates a raw role string against the closed tag set.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleAssistant:
		return Role(s), nil
	}
	return "", fmt.Errorf("%w: unknown role %q", ErrValidation, s)
}

// Session is one persisted conversation thread.
type Session struct {
	ID           SessionID `json:"id"`
	Title        string    `json:"title"`
	ModelID      string    `json:"model"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	IsStarred    bool      `json:"is_starred"`
	IsArchived   bool      `json:"is_archived"`
	FolderID     *FolderID `json:"folder_id,omitempty"`
	MessageCount int       `json:"message_count"`
}

// Message is a single turn entry within a session. Assistant messages
// carry the model that produced them, any cited sources, and timing
// metadata; Error marks synthetic messages written after an upstream
// failure.
type Message struct {
	ID             MessageID `json:"id"`
	SessionID      SessionID `json:"session_id"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
	Model          string    `json:"model,omitempty"`
	Sources        []string  `json:"sources,omitempty"`
	ProcessingTime float64   `json:"processing_time,omitempty"`
	Error          bool      `json:"error,omitempty"`
}

// Folder groups sessions into a named collection. Count is derived at
// read time from session membership.
type Folder struct {
	ID        FolderID  `json:"id"`
	Name      string    `json:"name"`
	Icon      string    `json:"icon"`
	CreatedAt time.Time `json:"created_at"`
	Count     int       `json:"count"`
}

// Capabilities are the feature flags advertised for a model.
type Capabilities struct {
	SupportsWebScraping   bool `json:"supports_web_scraping"`
	SupportsKnowledgeBase bool `json:"supports_knowledge_base"`
	SupportsCitations     bool `json:"supports_citations"`
	SupportsStreaming     bool `json:"supports_streaming"`
}

// ModelDescriptor describes one selectable response strategy. The
// registry of descriptors is static configuration, not mutable state.
type ModelDescriptor struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Capabilities Capabilities `json:"capabilities"`
}

// Artifact is a structured fragment extracted from generated text.
// Artifacts are derived data: re-running extraction over the same
// message content yields the same (language, content) pairs.
type Artifact struct {
	ID        ArtifactID `json:"id"`
	Kind      string     `json:"kind"`
	Language  string     `json:"language"`
	Content   string     `json:"content"`
	MessageID MessageID  `json:"extracted_from"`
}

// ArtifactKindCode is the only artifact kind currently extracted.
const ArtifactKindCode = "code"

// SessionPatch is a partial update to session metadata. Nil fields are
// left untouched. A non-nil FolderID pointing at an empty value
// detaches the session from its folder.
type SessionPatch struct {
	Title      *string   `json:"title,omitempty"`
	ModelID    *string   `json:"model,omitempty"`
	IsStarred  *bool     `json:"is_starred,omitempty"`
	IsArchived *bool     `json:"is_archived,omitempty"`
	FolderID   *FolderID `json:"folder_id,omitempty"`
}

// IsZero reports whether the patch would change nothing.
func (p SessionPatch) IsZero() bool {
	return p.Title == nil && p.ModelID == nil && p.IsStarred == nil &&
		p.IsArchived == nil && p.FolderID == nil
}

// ListFilter narrows the session listing. The zero value lists all
// non-archived sessions.
type ListFilter struct {
	IncludeArchived bool
	StarredOnly     bool
	FolderID        *FolderID
}
