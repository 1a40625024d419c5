package csa

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tecu23/csa-client/pkg/shogi"
)

var elapsedPattern = regexp.MustCompile(`^.*,T([0-9]+)$`)

// ParseMove decodes a move token as pushed by the server ("+7776FU,T12")
// against the current position. Anything after the first comma is ignored.
func ParseMove(pos *shogi.Position, token string) (shogi.Move, error) {
	bare, _, _ := strings.Cut(strings.TrimSpace(token), ",")
	return shogi.ParseCSAMove(pos, bare)
}

// FormatMove encodes the move as a protocol token without time or comment.
func FormatMove(m shogi.Move) string {
	return shogi.FormatCSAMove(m)
}

// ElapsedTicks returns the time consumed by the move from its trailing
// ",T<n>" suffix, or 0 when the token has none.
func ElapsedTicks(token string) int {
	match := elapsedPattern.FindStringSubmatch(strings.TrimSpace(token))
	if match == nil {
		return 0
	}
	n, err := strconv.Atoi(match[1])
	if err != nil {
		return 0
	}
	return n
}

// FormatPV joins the principal variation as space separated protocol tokens.
func FormatPV(pv []shogi.Move) string {
	tokens := make([]string, 0, len(pv))
	for _, m := range pv {
		tokens = append(tokens, FormatMove(m))
	}
	return strings.Join(tokens, " ")
}
