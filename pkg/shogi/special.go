package shogi

// SpecialMove is a terminal record entry describing how a game ended
type SpecialMove string

// Canonical game outcomes
const (
	Resign         SpecialMove = "resign"
	Interrupt      SpecialMove = "interrupt"
	Impass         SpecialMove = "impass"
	Draw           SpecialMove = "draw"
	RepetitionDraw SpecialMove = "repetitionDraw"
	Mate           SpecialMove = "mate"
	Timeout        SpecialMove = "timeout"
	FoulWin        SpecialMove = "foulWin"
	FoulLose       SpecialMove = "foulLose"
	EnteringOfKing SpecialMove = "enteringOfKing"
	WinByDefault   SpecialMove = "winByDefault"
	LossByDefault  SpecialMove = "lossByDefault"
)

var specialMoveDisplay = map[SpecialMove]string{
	Resign:         "投了",
	Interrupt:      "中断",
	Impass:         "持将棋",
	Draw:           "引き分け",
	RepetitionDraw: "千日手",
	Mate:           "詰み",
	Timeout:        "切れ負け",
	FoulWin:        "反則勝ち",
	FoulLose:       "反則負け",
	EnteringOfKing: "入玉",
	WinByDefault:   "不戦勝",
	LossByDefault:  "不戦敗",
}

// DisplayString returns the Japanese label shown in records.
func (s SpecialMove) DisplayString() string {
	if d, ok := specialMoveDisplay[s]; ok {
		return d
	}
	return string(s)
}
