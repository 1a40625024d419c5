// Package csa speaks the CSA server protocol: message types, the move codec
// and a line oriented TCP client that pushes server events by session ID.
package csa

import "github.com/tecu23/csa-client/pkg/shogi"

// SpecialMove is the code of a special move line reported by the server ("#RESIGN")
type SpecialMove string

// Special move codes sent by the server before the game result
const (
	SpecialMoveNone SpecialMove = ""
	Resign          SpecialMove = "RESIGN"
	Sennichite      SpecialMove = "SENNICHITE"
	OuteSennichite  SpecialMove = "OUTE_SENNICHITE"
	IllegalMove     SpecialMove = "ILLEGAL_MOVE"
	IllegalAction   SpecialMove = "ILLEGAL_ACTION"
	TimeUp          SpecialMove = "TIME_UP"
	Jishogi         SpecialMove = "JISHOGI"
	MaxMoves        SpecialMove = "MAX_MOVES"
	Chudan          SpecialMove = "CHUDAN"
)

// GameResult is the result line closing a game ("#WIN")
type GameResult string

// Game results as seen by this client
const (
	Win      GameResult = "WIN"
	Lose     GameResult = "LOSE"
	Draw     GameResult = "DRAW"
	Censored GameResult = "CENSORED"
)

// GameSummary is the per-match metadata negotiated before a game starts.
// Times are in protocol ticks; TimeUnitMs converts them to milliseconds.
type GameSummary struct {
	ID              string
	MyColor         shogi.Color
	BlackPlayerName string
	WhitePlayerName string
	Position        string
	ToMove          shogi.Color
	MaxMoves        int
	TimeUnitMs      int
	TotalTime       int
	Byoyomi         int
	Increment       int
}

// EmptyGameSummary returns the summary held before the server sends one.
func EmptyGameSummary() GameSummary {
	return GameSummary{
		MyColor:    shogi.Black,
		ToMove:     shogi.Black,
		Position:   "PI\n+\n",
		TimeUnitMs: 1000,
	}
}

// TicksToMs converts protocol ticks to milliseconds.
func (s GameSummary) TicksToMs(ticks int) int64 {
	return int64(ticks) * int64(s.TimeUnitMs)
}

// PlayerState is the remaining time of one side, in protocol ticks
type PlayerState struct {
	Time int
}

// PlayerStates is the authoritative remaining-time snapshot for both sides
type PlayerStates struct {
	Black PlayerState
	White PlayerState
}

// Of returns the state of the given color.
func (p PlayerStates) Of(c shogi.Color) PlayerState {
	if c == shogi.Black {
		return p.Black
	}
	return p.White
}
