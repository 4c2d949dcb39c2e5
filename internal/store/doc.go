// Package store provides the SQLite-backed session and folder stores.
package store

import "github.com/vihaan69-420/school-agent-simple/internal/types"

// Compile-time interface compliance checks.
var _ types.SessionStore = (*Store)(nil)
var _ types.FolderStore = (*Store)(nil)
