package csa

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tecu23/csa-client/pkg/shogi"
)

// parseGameSummary reads the lines between BEGIN Game_Summary and
// END Game_Summary.
func parseGameSummary(lines []string) (GameSummary, error) {
	summary := EmptyGameSummary()
	summary.Position = ""

	var position []string
	inPosition := false
	for _, line := range lines {
		if inPosition {
			if line == "END Position" {
				inPosition = false
				continue
			}
			position = append(position, line)
			continue
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			if line == "BEGIN Position" {
				inPosition = true
			}
			continue
		}

		var err error
		switch key {
		case "Game_ID":
			summary.ID = value
		case "Name+":
			summary.BlackPlayerName = value
		case "Name-":
			summary.WhitePlayerName = value
		case "Your_Turn":
			summary.MyColor, err = parseColor(value)
		case "To_Move":
			summary.ToMove, err = parseColor(value)
		case "Max_Moves":
			summary.MaxMoves, err = strconv.Atoi(value)
		case "Time_Unit":
			summary.TimeUnitMs, err = parseTimeUnit(value)
		case "Total_Time":
			summary.TotalTime, err = strconv.Atoi(value)
		case "Byoyomi":
			summary.Byoyomi, err = strconv.Atoi(value)
		case "Increment":
			summary.Increment, err = strconv.Atoi(value)
		}
		if err != nil {
			return GameSummary{}, fmt.Errorf("game summary %s: %w", key, err)
		}
	}

	if summary.ID == "" {
		return GameSummary{}, fmt.Errorf("game summary without Game_ID")
	}
	if len(position) == 0 {
		return GameSummary{}, fmt.Errorf("game summary without position")
	}
	summary.Position = strings.Join(position, "\n") + "\n"
	return summary, nil
}

func parseColor(s string) (shogi.Color, error) {
	switch s {
	case "+":
		return shogi.Black, nil
	case "-":
		return shogi.White, nil
	}
	return "", fmt.Errorf("unknown color %q", s)
}

// parseTimeUnit converts values such as "1sec", "1min" or "100msec" to milliseconds.
func parseTimeUnit(s string) (int, error) {
	var scale float64
	var num string
	switch {
	case strings.HasSuffix(s, "msec"):
		scale, num = 1, strings.TrimSuffix(s, "msec")
	case strings.HasSuffix(s, "sec"):
		scale, num = 1000, strings.TrimSuffix(s, "sec")
	case strings.HasSuffix(s, "min"):
		scale, num = 60000, strings.TrimSuffix(s, "min")
	default:
		return 0, fmt.Errorf("unknown time unit %q", s)
	}
	n, err := strconv.ParseFloat(num, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("bad time unit %q", s)
	}
	return int(n * scale), nil
}
