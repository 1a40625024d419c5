// Package player defines the contract between the session manager and a
// move-search engine, and implements it for USI engines.
package player

import (
	"context"

	"github.com/tecu23/csa-client/pkg/config"
	"github.com/tecu23/csa-client/pkg/shogi"
)

// SearchInfo is the latest analysis reported by an engine
type SearchInfo struct {
	Score *int // centipawns from the side to move
	Mate  *int // moves to mate, negative when being mated
	Depth int
	Nodes int64
	PV    []shogi.Move
}

// TimeLimit is the match time control in milliseconds
type TimeLimit struct {
	TimeMs      int64
	ByoyomiMs   int64
	IncrementMs int64
}

// SearchHandler receives the outcome of one search. Exactly one of the
// callbacks fires per search.
type SearchHandler struct {
	OnMove   func(move shogi.Move, info *SearchInfo)
	OnResign func()
	OnWin    func()
	OnError  func(err error)
}

// Record is the part of the match record an engine needs to set up a search
type Record interface {
	InitialSFEN() string
	USIMoves() []string
	Position() *shogi.Position
}

// Player is a running search engine
type Player interface {
	StartSearch(ctx context.Context, rec Record, tl TimeLimit, blackMs, whiteMs int64, h SearchHandler) error
	StartPonder(ctx context.Context, rec Record, tl TimeLimit, blackMs, whiteMs int64) error
	Close(ctx context.Context) error
}

// Builder starts players. onSearchInfo receives every analysis update.
type Builder interface {
	Build(ctx context.Context, setting config.PlayerSetting, onSearchInfo func(SearchInfo)) (Player, error)
}
