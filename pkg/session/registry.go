// Package session routes CSA server events to the manager owning the session.
package session

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/tecu23/csa-client/pkg/csa"
)

// ErrAlreadyRegistered is returned when a session ID is registered twice.
var ErrAlreadyRegistered = errors.New("session already registered")

// Target receives the events of one session
type Target interface {
	OnGameSummary(summary csa.GameSummary)
	OnReject()
	OnStart(states csa.PlayerStates)
	OnMove(token string, states csa.PlayerStates)
	OnGameResult(move csa.SpecialMove, result csa.GameResult)
	OnClose()
}

// Registry maps session IDs to their targets. It implements csa.EventHandler.
type Registry struct {
	targets map[int]Target
	mu      sync.RWMutex
	logger  *zap.Logger
}

// NewRegistry creates an empty registry
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		targets: make(map[int]Target),
		logger:  logger,
	}
}

// Register binds a session ID to its target
func (r *Registry) Register(sessionID int, target Target) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.targets[sessionID]; ok {
		return fmt.Errorf("%w: %d", ErrAlreadyRegistered, sessionID)
	}
	r.targets[sessionID] = target

	r.logger.Debug("registered session", zap.Int("session_id", sessionID))
	return nil
}

// Unregister removes a session ID. Unknown IDs are ignored.
func (r *Registry) Unregister(sessionID int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.targets[sessionID]; !ok {
		return
	}
	delete(r.targets, sessionID)

	r.logger.Debug("unregistered session", zap.Int("session_id", sessionID))
}

// Lookup returns the target of a session ID
func (r *Registry) Lookup(sessionID int) (Target, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	target, ok := r.targets[sessionID]
	return target, ok
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.targets)
}

// Dispatch hands the target of sessionID to fn. Events for sessions that
// were torn down or never existed are dropped.
func (r *Registry) Dispatch(sessionID int, fn func(Target)) {
	target, ok := r.Lookup(sessionID)
	if !ok {
		r.logger.Debug("dropped event for unknown session", zap.Int("session_id", sessionID))
		return
	}
	fn(target)
}

// OnGameSummary routes a match offer to the session owner.
func (r *Registry) OnGameSummary(sessionID int, summary csa.GameSummary) {
	r.Dispatch(sessionID, func(t Target) { t.OnGameSummary(summary) })
}

// OnReject routes a rejected match.
func (r *Registry) OnReject(sessionID int) {
	r.Dispatch(sessionID, func(t Target) { t.OnReject() })
}

// OnStart routes the start of a match.
func (r *Registry) OnStart(sessionID int, states csa.PlayerStates) {
	r.Dispatch(sessionID, func(t Target) { t.OnStart(states) })
}

// OnMove routes a move played by either side.
func (r *Registry) OnMove(sessionID int, token string, states csa.PlayerStates) {
	r.Dispatch(sessionID, func(t Target) { t.OnMove(token, states) })
}

// OnGameResult routes the end of a match.
func (r *Registry) OnGameResult(sessionID int, move csa.SpecialMove, result csa.GameResult) {
	r.Dispatch(sessionID, func(t Target) { t.OnGameResult(move, result) })
}

// OnClose routes a connection closed by the server.
func (r *Registry) OnClose(sessionID int) {
	r.Dispatch(sessionID, func(t Target) { t.OnClose() })
}
