package record

import (
	"time"

	"github.com/tecu23/csa-client/pkg/shogi"
)

// Snapshot is a read-only, JSON friendly copy of a record
type Snapshot struct {
	Title       string          `json:"title"`
	BlackName   string          `json:"blackName"`
	WhiteName   string          `json:"whiteName"`
	TimeMs      int64           `json:"timeMs"`
	ByoyomiMs   int64           `json:"byoyomiMs"`
	IncrementMs int64           `json:"incrementMs"`
	StartedAt   time.Time       `json:"startedAt"`
	InitialSFEN string          `json:"initialSfen"`
	Entries     []SnapshotEntry `json:"entries"`
}

// SnapshotEntry is one record entry in a Snapshot
type SnapshotEntry struct {
	Number    int    `json:"number"`
	Move      string `json:"move,omitempty"`
	USI       string `json:"usi,omitempty"`
	Special   string `json:"special,omitempty"`
	Display   string `json:"display,omitempty"`
	ElapsedMs int64  `json:"elapsedMs"`
	Comment   string `json:"comment,omitempty"`
}

// Snapshot copies the record.
func (r *Record) Snapshot() Snapshot {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	s := Snapshot{
		Title:       r.metadata.Title,
		BlackName:   r.metadata.BlackName,
		WhiteName:   r.metadata.WhiteName,
		TimeMs:      r.metadata.TimeLimit.TimeMs,
		ByoyomiMs:   r.metadata.TimeLimit.ByoyomiMs,
		IncrementMs: r.metadata.TimeLimit.IncrementMs,
		StartedAt:   r.metadata.StartedAt,
		InitialSFEN: r.initial.SFEN(1),
		Entries:     make([]SnapshotEntry, 0, len(r.entries)),
	}

	for _, e := range r.entries {
		se := SnapshotEntry{
			Number:    e.Number,
			ElapsedMs: e.ElapsedMs,
			Comment:   e.Comment,
		}
		switch {
		case e.Move != nil:
			se.Move = e.Move.String()
			se.USI = shogi.USIMove(*e.Move)
		case e.Special != "":
			se.Special = string(e.Special)
			se.Display = e.Special.DisplayString()
		}
		s.Entries = append(s.Entries, se)
	}
	return s
}

// Result returns the special move ending the record, if any.
func (s Snapshot) Result() (shogi.SpecialMove, bool) {
	if len(s.Entries) == 0 {
		return "", false
	}
	last := s.Entries[len(s.Entries)-1]
	if last.Special == "" {
		return "", false
	}
	return shogi.SpecialMove(last.Special), true
}
