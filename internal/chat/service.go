// Package chat orchestrates conversation turns: it owns the
// append-route-append protocol, per-session write ordering, and the
// concurrency budget for outbound provider calls.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/vihaan69-420/school-agent-simple/internal/artifact"
	"github.com/vihaan69-420/school-agent-simple/internal/router"
	"github.com/vihaan69-420/school-agent-simple/internal/types"
)

const (
	titleMaxChars = 50
	defaultTitle  = "New Chat"
)

// failureReply is persisted as an error-flagged assistant message when
// the upstream provider fails, so the conversation keeps a durable
// record of the attempt.
const failureReply = "Sorry, I ran into a problem generating a response. Please try again."

// Responder produces the next assistant turn for a history. Satisfied
// by router.Router.
type Responder interface {
	Route(ctx context.Context, modelID string, history []*types.Message) (*router.Result, error)
}

// Turn is the outcome of one chat exchange: the session after the
// exchange plus the two messages it appended.
type Turn struct {
	Session   *types.Session `json:"session"`
	User      *types.Message `json:"user_message"`
	Assistant *types.Message `json:"assistant_message"`
}

// Service coordinates session mutations around routing. Store writes
// for a session are serialized by a per-session lock; the lock is
// never held across the provider call, so a slow upstream does not
// block reads or other sessions.
type Service struct {
	store     types.SessionStore
	responder Responder
	sem       *semaphore.Weighted

	mu    sync.Mutex
	locks map[types.SessionID]*sync.Mutex
}

// NewService creates the orchestrator. maxConcurrent bounds the number
// of in-flight provider calls across all sessions.
func NewService(store types.SessionStore, responder Responder, maxConcurrent int64) *Service {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Service{
		store:     store,
		responder: responder,
		sem:       semaphore.NewWeighted(maxConcurrent),
		locks:     make(map[types.SessionID]*sync.Mutex),
	}
}

func (s *Service) sessionLock(id types.SessionID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	return lock
}

// Send runs one turn against the session: append the user message,
// route the full history, append the assistant reply. The user message
// is never rolled back; an upstream failure appends an error-flagged
// reply instead. If the session does not exist yet it is created under
// the given id, so a client can open a conversation with its first
// message. modelID overrides the session's model for this and later
// turns; empty keeps the current one.
func (s *Service) Send(ctx context.Context, id types.SessionID, content, modelID string) (*Turn, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: message content is empty", types.ErrValidation)
	}
	if modelID != "" {
		if _, ok := router.Lookup(modelID); !ok {
			return nil, fmt.Errorf("%w: unknown model %q", types.ErrValidation, modelID)
		}
	}

	lock := s.sessionLock(id)

	lock.Lock()
	session, userMsg, err := s.appendUserTurn(ctx, id, content, modelID)
	lock.Unlock()
	if err != nil {
		return nil, err
	}

	history, err := s.store.Messages(ctx, id)
	if err != nil {
		return nil, err
	}

	result, routeErr := s.route(ctx, session.ModelID, history)
	if routeErr != nil && result == nil {
		return nil, routeErr
	}

	assistant := &types.Message{
		Role:           types.RoleAssistant,
		Content:        result.Content,
		Model:          result.ModelName,
		Sources:        result.Sources,
		ProcessingTime: result.ProcessingTime,
	}
	if routeErr != nil {
		slog.Warn("routing failed", "session", id, "model", session.ModelID, "error", routeErr)
		assistant.Content = failureReply
		assistant.Error = true
	}

	lock.Lock()
	session, err = s.store.AppendMessage(ctx, id, assistant)
	lock.Unlock()
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			// Session was deleted while the provider call was in
			// flight; the reply has nowhere to go.
			slog.Info("discarding reply for deleted session", "session", id)
		}
		return nil, err
	}

	return &Turn{Session: session, User: userMsg, Assistant: assistant}, nil
}

// appendUserTurn creates the session if needed, appends the user
// message, and sets the inferred title on the first message. Caller
// holds the session lock.
func (s *Service) appendUserTurn(ctx context.Context, id types.SessionID, content, modelID string) (*types.Session, *types.Message, error) {
	session, err := s.store.Get(ctx, id)
	if errors.Is(err, types.ErrNotFound) {
		session, err = s.store.CreateWithID(ctx, id, modelID)
	}
	if err != nil {
		return nil, nil, err
	}

	if modelID != "" && modelID != session.ModelID {
		session, err = s.store.Update(ctx, id, types.SessionPatch{ModelID: &modelID})
		if err != nil {
			return nil, nil, err
		}
	}

	firstMessage := session.MessageCount == 0

	userMsg := &types.Message{Role: types.RoleUser, Content: content}
	session, err = s.store.AppendMessage(ctx, id, userMsg)
	if err != nil {
		return nil, nil, err
	}

	if firstMessage && session.Title == defaultTitle {
		title := InferTitle(content)
		session, err = s.store.Update(ctx, id, types.SessionPatch{Title: &title})
		if err != nil {
			return nil, nil, err
		}
	}
	return session, userMsg, nil
}

// EditMessage rewrites the user message at index, discards everything
// after it, and regenerates the assistant reply from the truncated
// history. The messages list afterwards ends with the regenerated
// reply at index+1.
func (s *Service) EditMessage(ctx context.Context, id types.SessionID, index int, content string) (*Turn, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: message content is empty", types.ErrValidation)
	}

	lock := s.sessionLock(id)

	lock.Lock()
	session, err := s.store.ReplaceAndTruncate(ctx, id, index, content)
	lock.Unlock()
	if err != nil {
		return nil, err
	}

	history, err := s.store.Messages(ctx, id)
	if err != nil {
		return nil, err
	}
	userMsg := history[len(history)-1]

	result, routeErr := s.route(ctx, session.ModelID, history)
	if routeErr != nil && result == nil {
		return nil, routeErr
	}

	assistant := &types.Message{
		Role:           types.RoleAssistant,
		Content:        result.Content,
		Model:          result.ModelName,
		Sources:        result.Sources,
		ProcessingTime: result.ProcessingTime,
	}
	if routeErr != nil {
		slog.Warn("regeneration failed", "session", id, "index", index, "error", routeErr)
		assistant.Content = failureReply
		assistant.Error = true
	}

	lock.Lock()
	session, err = s.store.AppendMessage(ctx, id, assistant)
	lock.Unlock()
	if err != nil {
		return nil, err
	}

	return &Turn{Session: session, User: userMsg, Assistant: assistant}, nil
}

// route calls the responder under the global concurrency budget.
func (s *Service) route(ctx context.Context, modelID string, history []*types.Message) (*router.Result, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.sem.Release(1)
	return s.responder.Route(ctx, modelID, history)
}

// Artifacts re-derives the structured fragments from the session's
// assistant messages. Nothing is persisted; extraction runs on demand.
func (s *Service) Artifacts(ctx context.Context, id types.SessionID) ([]types.Artifact, error) {
	messages, err := s.store.Messages(ctx, id)
	if err != nil {
		return nil, err
	}
	artifacts := []types.Artifact{}
	for _, msg := range messages {
		if msg.Role != types.RoleAssistant || msg.Error {
			continue
		}
		artifacts = append(artifacts, artifact.Extract(msg.Content, msg.ID)...)
	}
	return artifacts, nil
}

// Forget drops the session's lock entry after deletion so the map does
// not grow without bound.
func (s *Service) Forget(id types.SessionID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, id)
}

// InferTitle derives a session title from the first user message:
// whitespace flattened, truncated to 50 characters with an ellipsis.
func InferTitle(content string) string {
	flat := strings.Join(strings.Fields(content), " ")
	if flat == "" {
		return defaultTitle
	}
	runes := []rune(flat)
	if len(runes) <= titleMaxChars {
		return flat
	}
	return string(runes[:titleMaxChars]) + "..."
}
