// Package game implements the CSA game session manager: the state machine
// that logs in, plays a match against the server with a search engine and
// chains into the next match or a retry.
package game

import "errors"

// State represents the state of a session manager
type State int

// All the possible manager states
const (
	StateOffline State = iota
	StateWaitingLogin
	StateLoginFailed
	StateLoginRetryInterval
	StateReady
	StateGame
)

var stateNames = map[State]string{
	StateOffline:            "offline",
	StateWaitingLogin:       "waiting_login",
	StateLoginFailed:        "login_failed",
	StateLoginRetryInterval: "login_retry_interval",
	StateReady:              "ready",
	StateGame:               "game",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// ReloginBehavior decides what happens after a session is torn down
type ReloginBehavior int

const (
	DoNotRelogin ReloginBehavior = iota
	ReloginImmediately
	ReloginWithInterval
)

var (
	// ErrSessionExists is returned by Login while a session is active.
	ErrSessionExists = errors.New("csa session already exists")
	// ErrUnexpectedState is returned by Login when the manager is not offline.
	ErrUnexpectedState = errors.New("unexpected session state")
	// ErrPlayerNotInitialized is reported when a turn starts without a player.
	ErrPlayerNotInitialized = errors.New("player not initialized")
	// ErrManagerClosed is returned once Shutdown has completed.
	ErrManagerClosed = errors.New("session manager closed")
)
