package game

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tecu23/csa-client/pkg/clock"
	"github.com/tecu23/csa-client/pkg/config"
	"github.com/tecu23/csa-client/pkg/csa"
	"github.com/tecu23/csa-client/pkg/player"
	"github.com/tecu23/csa-client/pkg/record"
	"github.com/tecu23/csa-client/pkg/shogi"
)

// inbound queues a server event. Events arriving once the session is gone
// are dropped.
func (m *Manager) inbound(fn func()) {
	m.post(func() {
		if m.sessionID == 0 {
			return
		}
		fn()
	})
}

// OnGameSummary stores the offered match and accepts it.
func (m *Manager) OnGameSummary(summary csa.GameSummary) {
	m.inbound(func() {
		m.summary = summary
		m.logger.Info("game summary received",
			zap.String("game_id", summary.ID),
			zap.String("my_color", string(summary.MyColor)),
			zap.String("black", summary.BlackPlayerName),
			zap.String("white", summary.WhitePlayerName))

		if err := m.server.Agree(m.sessionID, summary.ID); err != nil {
			m.reportError(fmt.Errorf("agree: %w", err))
		}
	})
}

// OnReject retries the login after the interval.
func (m *Manager) OnReject() {
	m.inbound(func() {
		m.logger.Info("game rejected", zap.String("game_id", m.summary.ID))
		m.close(ReloginWithInterval)
	})
}

// OnStart resets the record to the summary position and starts the first turn.
func (m *Manager) OnStart(states csa.PlayerStates) {
	m.inbound(func() {
		m.repeat++

		if err := m.record.ImportCSA(m.summary.Position); err != nil {
			m.reportError(fmt.Errorf("import game summary position: %w", err))
		}
		m.record.SetGameStartMetadata(record.Metadata{
			Title:     m.summary.ID,
			BlackName: m.summary.BlackPlayerName,
			WhiteName: m.summary.WhitePlayerName,
			TimeLimit: m.timeLimit(),
			StartedAt: time.Now(),
		})

		if m.setting.AutoFlip {
			m.observer.OnFlipBoard(m.summary.MyColor == shogi.White)
		}

		m.setState(StateGame)
		m.next(states)
	})
}

// OnMove applies a move reported by the server and starts the next turn.
func (m *Manager) OnMove(token string, states csa.PlayerStates) {
	m.inbound(func() {
		myMove := m.isMyTurn()

		move, err := csa.ParseMove(m.record.Position(), token)
		if err != nil {
			m.reportError(fmt.Errorf("unparsable move %q: %w", token, err))
			return
		}

		elapsedMs := m.summary.TicksToMs(csa.ElapsedTicks(token))
		if err := m.record.AppendMove(record.MoveParams{
			Move:             move,
			ElapsedMs:        elapsedMs,
			IgnoreValidation: true,
		}); err != nil {
			m.reportError(fmt.Errorf("append move %q: %w", token, err))
			return
		}

		if myMove && m.searchInfo != nil {
			m.record.UpdateSearchInfo(record.SenderPlayer, *m.searchInfo)
			if m.setting.EnableComment {
				m.record.AppendSearchComment(record.SenderPlayer, *m.searchInfo, record.CommentAppend)
			}
		}

		m.observer.OnPieceBeat()
		m.next(states)
	})
}

// OnGameResult records how the game ended and moves on to the next match.
func (m *Manager) OnGameResult(move csa.SpecialMove, result csa.GameResult) {
	m.inbound(func() {
		outcome := specialMoveFor(move, result, m.record.SideToMove(), m.summary.MyColor)
		m.logger.Info("game ended",
			zap.String("game_id", m.summary.ID),
			zap.String("special_move", string(move)),
			zap.String("result", string(result)),
			zap.String("outcome", outcome.DisplayString()))

		if err := m.record.AppendSpecialMove(outcome); err != nil {
			m.reportError(fmt.Errorf("append %s: %w", outcome, err))
		}
		if m.setting.EnableAutoSave {
			m.observer.OnSaveRecord()
		}
		m.close(ReloginImmediately)
	})
}

// OnClose handles a connection closed by the server.
func (m *Manager) OnClose() {
	m.inbound(func() {
		m.logger.Info("csa connection closed by server", zap.Int("session_id", m.sessionID))
		if m.setting.AutoRelogin {
			m.close(ReloginWithInterval)
		} else {
			m.close(DoNotRelogin)
		}
	})
}

// next synchronizes the clocks with the server snapshot and starts the
// search or ponder for the side to move.
func (m *Manager) next(states csa.PlayerStates) {
	m.blackClock.Stop()
	m.whiteClock.Stop()

	tl := m.timeLimit()
	m.blackClock.Setup(m.clockSetting(states.Black.Time, tl))
	m.whiteClock.Setup(m.clockSetting(states.White.Time, tl))

	color := m.record.SideToMove()
	if color == shogi.Black {
		m.blackClock.Start()
	} else {
		m.whiteClock.Start()
	}

	if m.player == nil {
		m.reportError(fmt.Errorf("%w: server data received without a player", ErrPlayerNotInitialized))
		return
	}

	if color == m.summary.MyColor {
		err := m.player.StartSearch(m.ctx, m.record, tl,
			m.summary.TicksToMs(states.Black.Time),
			m.summary.TicksToMs(states.White.Time),
			m.searchHandler())
		if err != nil {
			m.reportError(fmt.Errorf("start search: %w", err))
		}
		return
	}

	if err := m.player.StartPonder(m.ctx, m.record, tl, m.blackClock.TimeMs(), m.whiteClock.TimeMs()); err != nil {
		m.reportError(fmt.Errorf("start ponder: %w", err))
	}
}

func (m *Manager) timeLimit() player.TimeLimit {
	return player.TimeLimit{
		TimeMs:      m.summary.TicksToMs(m.summary.TotalTime),
		ByoyomiMs:   m.summary.TicksToMs(m.summary.Byoyomi),
		IncrementMs: m.summary.TicksToMs(m.summary.Increment),
	}
}

func (m *Manager) clockSetting(ticks int, tl player.TimeLimit) clock.Setting {
	gameID := m.summary.ID
	return clock.Setting{
		TimeMs:          m.summary.TicksToMs(ticks),
		ByoyomiMs:       tl.ByoyomiMs,
		IncrementMs:     tl.IncrementMs,
		OnBeepShort:     func() { m.post(m.observer.OnBeepShort) },
		OnBeepUnlimited: func() { m.post(m.observer.OnBeepUnlimited) },
		OnStopBeep:      func() { m.post(m.observer.OnStopBeep) },
		OnTimeout: func() {
			m.logger.Debug("local clock expired", zap.String("game_id", gameID))
		},
	}
}

// searchHandler binds player callbacks to the current login attempt.
func (m *Manager) searchHandler() player.SearchHandler {
	attempt := m.attempt
	current := func(fn func()) {
		m.post(func() {
			if attempt != m.attempt || m.sessionID == 0 {
				return
			}
			fn()
		})
	}

	return player.SearchHandler{
		OnMove: func(move shogi.Move, info *player.SearchInfo) {
			current(func() { m.onPlayerMove(move, info) })
		},
		OnResign: func() {
			current(m.onPlayerResign)
		},
		OnWin: func() {
			current(m.onPlayerWin)
		},
		OnError: func(err error) {
			current(func() { m.reportError(fmt.Errorf("player: %w", err)) })
		},
	}
}

func (m *Manager) onPlayerMove(move shogi.Move, info *player.SearchInfo) {
	m.searchInfo = info

	var (
		score *int
		pv    string
	)
	if m.setting.Server.ProtocolVersion == config.ProtocolV121Floodgate && info != nil {
		score = info.Score
		pv = csa.FormatPV(info.PV)
	}

	if err := m.server.Move(m.sessionID, csa.FormatMove(move), score, pv); err != nil {
		m.reportError(fmt.Errorf("send move: %w", err))
	}
}

func (m *Manager) onPlayerResign() {
	if err := m.server.Resign(m.sessionID); err != nil {
		m.reportError(fmt.Errorf("resign: %w", err))
	}
}

func (m *Manager) onPlayerWin() {
	if err := m.server.Win(m.sessionID); err != nil {
		m.reportError(fmt.Errorf("declare win: %w", err))
	}
}
