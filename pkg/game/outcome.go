package game

import (
	"github.com/tecu23/csa-client/pkg/csa"
	"github.com/tecu23/csa-client/pkg/shogi"
)

// specialMoveFor maps the server's special move and result to the outcome
// recorded. acting is the side to move when the game ended.
func specialMoveFor(move csa.SpecialMove, result csa.GameResult, acting, mine shogi.Color) shogi.SpecialMove {
	switch move {
	case csa.Resign:
		return shogi.Resign
	case csa.Sennichite:
		return shogi.RepetitionDraw
	case csa.OuteSennichite, csa.IllegalMove, csa.IllegalAction:
		switch result {
		case csa.Win:
			if acting == mine {
				return shogi.FoulWin
			}
			return shogi.FoulLose
		case csa.Lose:
			if acting == mine {
				return shogi.FoulLose
			}
			return shogi.FoulWin
		}
	case csa.TimeUp:
		return shogi.Timeout
	case csa.Jishogi:
		return shogi.EnteringOfKing
	case csa.MaxMoves:
		return shogi.Impass
	}

	if result == csa.Draw {
		return shogi.Draw
	}
	return shogi.Interrupt
}
