package game

import (
	"context"

	"github.com/tecu23/csa-client/pkg/clock"
	"github.com/tecu23/csa-client/pkg/config"
	"github.com/tecu23/csa-client/pkg/player"
	"github.com/tecu23/csa-client/pkg/record"
	"github.com/tecu23/csa-client/pkg/session"
	"github.com/tecu23/csa-client/pkg/shogi"
)

// Server is the outbound side of the CSA protocol
type Server interface {
	Login(ctx context.Context, setting config.ServerSetting) (int, error)
	// Start begins delivering the session's events to the registry. It is
	// called once the session is registered.
	Start(sessionID int) error
	Agree(sessionID int, gameID string) error
	Move(sessionID int, token string, score *int, pv string) error
	Resign(sessionID int) error
	Win(sessionID int) error
	Stop(sessionID int) error
	Logout(ctx context.Context, sessionID int) error
}

// Registry routes inbound server events to the manager owning the session
type Registry interface {
	Register(sessionID int, target session.Target) error
	Unregister(sessionID int)
}

// Clock is one side's countdown clock
type Clock interface {
	Setup(setting clock.Setting)
	Start()
	Stop()
	TimeMs() int64
	IsRunning() bool
}

// Record is the match record the manager writes to
type Record interface {
	player.Record
	ImportCSA(text string) error
	SetGameStartMetadata(m record.Metadata)
	AppendMove(p record.MoveParams) error
	AppendSpecialMove(s shogi.SpecialMove) error
	UpdateSearchInfo(sender record.Sender, info player.SearchInfo)
	AppendSearchComment(sender record.Sender, info player.SearchInfo, behavior record.CommentBehavior)
	SideToMove() shogi.Color
}

// Observer is notified of everything the host may want to present. Calls are
// made from the manager's loop, one at a time.
type Observer interface {
	OnStateChanged(state State)
	OnSaveRecord()
	OnGameNext()
	OnGameEnd()
	OnFlipBoard(flip bool)
	OnPieceBeat()
	OnBeepShort()
	OnBeepUnlimited()
	OnStopBeep()
	OnError(err error)
}
