package shogi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const standardSFEN = "lnsgkgsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL b - 1"

func TestStandardPositionSFEN(t *testing.T) {
	assert.Equal(t, standardSFEN, NewStandardPosition().SFEN(1))
}

func TestApplyMoveCaptureAndPromotion(t *testing.T) {
	pos := NewStandardPosition()
	for _, token := range []string{"+7776FU", "-3334FU", "+8822UM"} {
		m, err := ParseCSAMove(pos, token)
		require.NoError(t, err, token)
		require.NoError(t, pos.ApplyMove(m), token)
	}

	assert.Equal(t, White, pos.Color())
	assert.Equal(t, 1, pos.HandCount(Black, Bishop))
	assert.Equal(t, Piece{Black, Horse}, pos.PieceAt(Square{2, 2}))
	assert.Equal(t,
		"lnsgkgsnl/1r5+B1/pppppp1pp/6p2/9/2P6/PP1PPPPPP/7R1/LNSGKGSNL w B 4",
		pos.SFEN(4))
}

func TestApplyMoveRejectsMissingPiece(t *testing.T) {
	pos := NewStandardPosition()
	err := pos.ApplyMove(Move{Color: Black, From: Square{5, 5}, To: Square{5, 4}, PieceType: Pawn})
	assert.ErrorIs(t, err, ErrInvalidMove)

	err = pos.ApplyMove(Move{Color: Black, To: Square{5, 5}, PieceType: Gold})
	assert.ErrorIs(t, err, ErrInvalidMove)
}

func TestCloneIsIndependent(t *testing.T) {
	pos := NewStandardPosition()
	clone := pos.Clone()
	m, err := ParseCSAMove(clone, "+2726FU")
	require.NoError(t, err)
	require.NoError(t, clone.ApplyMove(m))

	assert.Equal(t, standardSFEN, pos.SFEN(1))
	assert.Equal(t, White, clone.Color())
}
