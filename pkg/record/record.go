// Package record keeps the match record: the starting position, the moves
// and special moves played since, elapsed times and search annotations.
package record

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tecu23/csa-client/pkg/player"
	"github.com/tecu23/csa-client/pkg/shogi"
)

// Sender tells whose search produced an annotation
type Sender int

const (
	SenderPlayer Sender = iota
	SenderOpponent
)

// CommentBehavior decides how a new comment combines with an existing one
type CommentBehavior int

const (
	CommentAppend CommentBehavior = iota
	CommentInsert
	CommentOverwrite
)

// Metadata is the match information filled in when a game starts
type Metadata struct {
	Title     string
	BlackName string
	WhiteName string
	TimeLimit player.TimeLimit
	StartedAt time.Time
}

// Entry is one node of the record. The first entry is the starting position
// and carries neither a move nor a special move.
type Entry struct {
	Number       int
	Move         *shogi.Move
	Special      shogi.SpecialMove
	ElapsedMs    int64
	Comment      string
	PlayerInfo   *player.SearchInfo
	OpponentInfo *player.SearchInfo
}

// MoveParams describes a move to append
type MoveParams struct {
	Move      shogi.Move
	ElapsedMs int64
	// IgnoreValidation skips the side-to-move check; the server is the
	// legality authority for moves it reports.
	IgnoreValidation bool
}

// Record is a match record safe for concurrent readers
type Record struct {
	mutex sync.RWMutex

	initial  *shogi.Position
	position *shogi.Position
	entries  []Entry
	metadata Metadata
}

// New creates a record starting from the standard position.
func New() *Record {
	r := &Record{}
	r.reset(shogi.NewStandardPosition())
	return r
}

func (r *Record) reset(pos *shogi.Position) {
	r.initial = pos
	r.position = pos.Clone()
	r.entries = []Entry{{Number: 0}}
	r.metadata = Metadata{}
}

// ImportCSA resets the record to a CSA position. Moves listed after the
// position are folded into the starting position.
func (r *Record) ImportCSA(text string) error {
	pos, err := shogi.ParseCSAPosition(text)
	if err != nil {
		return fmt.Errorf("import csa: %w", err)
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.reset(pos)
	return nil
}

// SetGameStartMetadata stores the match information.
func (r *Record) SetGameStartMetadata(m Metadata) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.metadata = m
}

// Metadata returns the match information.
func (r *Record) Metadata() Metadata {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.metadata
}

// AppendMove plays the move on the current position and records it.
func (r *Record) AppendMove(p MoveParams) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.finished() {
		return fmt.Errorf("%w: record already ends with %s", shogi.ErrInvalidMove, r.last().Special)
	}
	if !p.IgnoreValidation && p.Move.Color != r.position.Color() {
		return fmt.Errorf("%w: %s is not to move", shogi.ErrInvalidMove, p.Move.Color)
	}
	if err := r.position.ApplyMove(p.Move); err != nil {
		return err
	}

	m := p.Move
	r.entries = append(r.entries, Entry{
		Number:    len(r.entries),
		Move:      &m,
		ElapsedMs: p.ElapsedMs,
	})
	return nil
}

// AppendSpecialMove terminates the record with a special move.
func (r *Record) AppendSpecialMove(s shogi.SpecialMove) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.finished() {
		return fmt.Errorf("record already ends with %s", r.last().Special)
	}
	r.entries = append(r.entries, Entry{
		Number:  len(r.entries),
		Special: s,
	})
	return nil
}

// UpdateSearchInfo attaches info to the latest entry.
func (r *Record) UpdateSearchInfo(sender Sender, info player.SearchInfo) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	last := r.last()
	if sender == SenderPlayer {
		last.PlayerInfo = &info
	} else {
		last.OpponentInfo = &info
	}
}

// AppendSearchComment writes a comment describing info on the latest entry.
func (r *Record) AppendSearchComment(sender Sender, info player.SearchInfo, behavior CommentBehavior) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	last := r.last()
	comment := buildSearchComment(sender, info)
	if comment == "" {
		return
	}

	switch {
	case behavior == CommentOverwrite || last.Comment == "":
		last.Comment = comment
	case behavior == CommentInsert:
		last.Comment = comment + "\n" + last.Comment
	default:
		last.Comment = last.Comment + "\n" + comment
	}
}

// SideToMove returns the color to move in the current position.
func (r *Record) SideToMove() shogi.Color {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.position.Color()
}

// Position returns a copy of the current position.
func (r *Record) Position() *shogi.Position {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.position.Clone()
}

// InitialSFEN returns the starting position in SFEN.
func (r *Record) InitialSFEN() string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.initial.SFEN(1)
}

// USIMoves returns the moves played since the starting position.
func (r *Record) USIMoves() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	moves := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		if e.Move != nil {
			moves = append(moves, shogi.USIMove(*e.Move))
		}
	}
	return moves
}

// Entries returns a copy of the record entries.
func (r *Record) Entries() []Entry {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return append([]Entry(nil), r.entries...)
}

func (r *Record) last() *Entry {
	return &r.entries[len(r.entries)-1]
}

func (r *Record) finished() bool {
	return r.last().Special != ""
}

func buildSearchComment(sender Sender, info player.SearchInfo) string {
	prefix := "*"
	if sender == SenderOpponent {
		prefix = "#"
	}

	var lines []string
	if info.Score != nil {
		lines = append(lines, fmt.Sprintf("%s評価値=%d", prefix, *info.Score))
	}
	if info.Mate != nil {
		lines = append(lines, fmt.Sprintf("%s詰み=%d", prefix, *info.Mate))
	}
	if len(info.PV) > 0 {
		tokens := make([]string, len(info.PV))
		for i, m := range info.PV {
			tokens[i] = m.String()
		}
		lines = append(lines, fmt.Sprintf("%s読み筋=%s", prefix, strings.Join(tokens, " ")))
	}
	if info.Depth > 0 {
		lines = append(lines, fmt.Sprintf("%s深さ=%d", prefix, info.Depth))
	}
	if info.Nodes > 0 {
		lines = append(lines, fmt.Sprintf("%sノード数=%d", prefix, info.Nodes))
	}
	return strings.Join(lines, "\n")
}
