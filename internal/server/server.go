// Package server exposes the chat service over a JSON HTTP API.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/vihaan69-420/school-agent-simple/internal/artifact"
	"github.com/vihaan69-420/school-agent-simple/internal/chat"
	"github.com/vihaan69-420/school-agent-simple/internal/router"
	"github.com/vihaan69-420/school-agent-simple/internal/store"
	"github.com/vihaan69-420/school-agent-simple/internal/types"
)

// Server routes the HTTP API. Session and folder reads go straight to
// the stores; anything that generates a reply goes through the chat
// service.
type Server struct {
	sessions types.SessionStore
	folders  types.FolderStore
	chats    *chat.Service
	mux      *http.ServeMux
}

// NewServer wires the API handlers.
func NewServer(sessions types.SessionStore, folders types.FolderStore, chats *chat.Service) *Server {
	s := &Server{
		sessions: sessions,
		folders:  folders,
		chats:    chats,
		mux:      http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/models", s.handleModels)
	s.mux.HandleFunc("POST /api/chat", s.handleChat)
	s.mux.HandleFunc("GET /api/sessions", s.handleListSessions)
	s.mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	s.mux.HandleFunc("GET /api/sessions/search", s.handleSearchSessions)
	s.mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	s.mux.HandleFunc("PUT /api/sessions/{id}", s.handleUpdateSession)
	s.mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDeleteSession)
	s.mux.HandleFunc("POST /api/sessions/{id}/edit", s.handleEditMessage)
	s.mux.HandleFunc("GET /api/sessions/{id}/artifacts", s.handleArtifacts)
	s.mux.HandleFunc("GET /api/folders", s.handleListFolders)
	s.mux.HandleFunc("POST /api/folders", s.handleCreateFolder)
	s.mux.HandleFunc("DELETE /api/folders/{id}", s.handleDeleteFolder)
	return s
}

// ServeHTTP delegates to the internal mux, implementing http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Success: false, Error: msg})
}

// writeDomainError maps the error taxonomy to status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, types.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, types.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		slog.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	writeData(w, map[string]any{
		"models":  router.Models(),
		"default": router.DefaultModelID,
	})
}

// chatRequest is the JSON body for POST /api/chat. Clients send the
// turn as a message list; the latest user entry is the one answered.
// An empty session_id starts a new conversation.
type chatRequest struct {
	Messages  []chatTurn `json:"messages"`
	SessionID string     `json:"session_id"`
	Model     string     `json:"model"`
}

type chatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatMetadata struct {
	ProcessingTime float64          `json:"processing_time"`
	Artifacts      []types.Artifact `json:"artifacts,omitempty"`
}

type chatResponse struct {
	Success   bool           `json:"success"`
	SessionID string         `json:"session_id"`
	Message   *types.Message `json:"message"`
	Model     string         `json:"model"`
	Sources   []string       `json:"sources"`
	Metadata  chatMetadata   `json:"metadata"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	var content string
	for _, m := range req.Messages {
		role, err := types.ParseRole(m.Role)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if role == types.RoleUser {
			content = m.Content
		}
	}

	id := types.SessionID(req.SessionID)
	if id == "" {
		id = types.NewSessionID()
	}

	turn, err := s.chats.Send(r.Context(), id, content, req.Model)
	if err != nil {
		var persist *types.PersistenceError
		if errors.As(err, &persist) {
			slog.Error("chat persistence failed", "session", id, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to save message")
			return
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.turnResponse(turn))
}

// turnResponse builds the chat payload, deriving artifacts from the
// reply on the fly. An error-flagged reply still reports success: the
// turn was recorded even though the upstream call failed.
func (s *Server) turnResponse(turn *chat.Turn) chatResponse {
	resp := chatResponse{
		Success:   true,
		SessionID: string(turn.Session.ID),
		Message:   turn.Assistant,
		Model:     turn.Assistant.Model,
		Sources:   turn.Assistant.Sources,
		Metadata:  chatMetadata{ProcessingTime: turn.Assistant.ProcessingTime},
	}
	if resp.Sources == nil {
		resp.Sources = []string{}
	}
	if !turn.Assistant.Error {
		resp.Metadata.Artifacts = artifact.Extract(turn.Assistant.Content, turn.Assistant.ID)
	}
	return resp
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	filter := types.ListFilter{
		IncludeArchived: r.URL.Query().Get("include_archived") == "true",
	}
	sessions, err := s.sessions.List(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if r.URL.Query().Get("grouped") == "true" {
		writeData(w, map[string]any{"sessions": store.BucketSessions(time.Now(), sessions)})
		return
	}
	writeData(w, map[string]any{"sessions": sessions})
}

type createSessionRequest struct {
	Title string `json:"title"`
	Model string `json:"model"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
	}
	if req.Model != "" {
		if _, ok := router.Lookup(req.Model); !ok {
			writeError(w, http.StatusBadRequest, "unknown model "+req.Model)
			return
		}
	}

	session, err := s.sessions.Create(r.Context(), req.Model)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if req.Title != "" {
		session, err = s.sessions.Update(r.Context(), session.ID, types.SessionPatch{Title: &req.Title})
		if err != nil {
			writeDomainError(w, err)
			return
		}
	}
	writeData(w, session)
}

func (s *Server) handleSearchSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.sessions.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, map[string]any{"results": sessions})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := types.SessionID(r.PathValue("id"))
	session, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	messages, err := s.sessions.Messages(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, map[string]any{
		"session":  session,
		"messages": messages,
		"model":    session.ModelID,
	})
}

func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	var patch types.SessionPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if patch.ModelID != nil {
		if _, ok := router.Lookup(*patch.ModelID); !ok {
			writeError(w, http.StatusBadRequest, "unknown model "+*patch.ModelID)
			return
		}
	}
	session, err := s.sessions.Update(r.Context(), types.SessionID(r.PathValue("id")), patch)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := types.SessionID(r.PathValue("id"))
	if err := s.sessions.Delete(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	s.chats.Forget(id)
	writeData(w, map[string]string{"deleted": string(id)})
}

type editRequest struct {
	Index   int    `json:"index"`
	Content string `json:"content"`
}

func (s *Server) handleEditMessage(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	turn, err := s.chats.EditMessage(r.Context(), types.SessionID(r.PathValue("id")), req.Index, req.Content)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.turnResponse(turn))
}

func (s *Server) handleArtifacts(w http.ResponseWriter, r *http.Request) {
	id := types.SessionID(r.PathValue("id"))
	if _, err := s.sessions.Get(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	artifacts, err := s.chats.Artifacts(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, artifacts)
}

func (s *Server) handleListFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := s.folders.ListFolders(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, map[string]any{"folders": folders})
}

type createFolderRequest struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
}

func (s *Server) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	var req createFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	folder, err := s.folders.CreateFolder(r.Context(), req.Name, req.Icon)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, folder)
}

func (s *Server) handleDeleteFolder(w http.ResponseWriter, r *http.Request) {
	id := types.FolderID(r.PathValue("id"))
	if err := s.folders.DeleteFolder(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, map[string]string{"deleted": string(id)})
}
