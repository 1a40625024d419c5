package player

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tecu23/csa-client/pkg/config"
	"github.com/tecu23/csa-client/pkg/shogi"
)

// TestHelperProcess is not a real test: it is re-executed by the tests below
// as a scripted USI engine.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	defer os.Exit(0)

	mode := os.Getenv("FAKE_USI_MODE")
	pondering := false
	in := bufio.NewScanner(os.Stdin)
	for in.Scan() {
		line := in.Text()
		if mode == "mute" && line != "quit" {
			continue
		}
		switch {
		case line == "usi":
			fmt.Println("id name FakeEngine")
			fmt.Println("option name USI_Hash type spin default 256")
			fmt.Println("usiok")
		case line == "isready":
			fmt.Println("readyok")
		case line == "go infinite":
			pondering = true
			fmt.Println("info depth 3 score cp -20 pv 3c3d")
		case line == "stop":
			if pondering {
				pondering = false
				fmt.Println("bestmove 3c3d")
			}
		case strings.HasPrefix(line, "go "):
			switch mode {
			case "resign":
				fmt.Println("bestmove resign")
			case "win":
				fmt.Println("bestmove win")
			case "bogus":
				fmt.Println("bestmove 5e5d")
			default:
				fmt.Println("info string thinking")
				fmt.Println("info depth 8 seldepth 10 nodes 12345 score cp 55 pv 7g7f 3c3d 9z9z")
				fmt.Println("bestmove 7g7f ponder 3c3d")
			}
		case line == "quit":
			return
		}
	}
}

type fakeRecord struct{}

func (fakeRecord) InitialSFEN() string       { return shogi.NewStandardPosition().SFEN(1) }
func (fakeRecord) USIMoves() []string        { return nil }
func (fakeRecord) Position() *shogi.Position { return shogi.NewStandardPosition() }

type searchResult struct {
	kind string
	move shogi.Move
	info *SearchInfo
	err  error
}

func resultHandler(ch chan<- searchResult) SearchHandler {
	return SearchHandler{
		OnMove:   func(m shogi.Move, info *SearchInfo) { ch <- searchResult{kind: "move", move: m, info: info} },
		OnResign: func() { ch <- searchResult{kind: "resign"} },
		OnWin:    func() { ch <- searchResult{kind: "win"} },
		OnError:  func(err error) { ch <- searchResult{kind: "error", err: err} },
	}
}

func startFakeEngine(t *testing.T, mode string, onSearchInfo func(SearchInfo)) *USIEngine {
	t.Helper()
	t.Setenv("GO_WANT_HELPER_PROCESS", "1")
	t.Setenv("FAKE_USI_MODE", mode)

	setting := config.PlayerSetting{
		Name:    "fake",
		Path:    os.Args[0],
		Args:    []string{"-test.run=TestHelperProcess", "--"},
		Options: map[string]string{"USI_Hash": "128", "Threads": "1"},
		Ponder:  true,
	}
	e, err := NewUSIEngine(context.Background(), setting, onSearchInfo, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close(context.Background()) })
	return e
}

func waitResult(t *testing.T, ch <-chan searchResult) searchResult {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for search result")
		return searchResult{}
	}
}

func TestUSIEngineSearchMove(t *testing.T) {
	infos := make(chan SearchInfo, 8)
	e := startFakeEngine(t, "move", func(info SearchInfo) { infos <- info })
	assert.Equal(t, "FakeEngine", e.Name)

	results := make(chan searchResult, 2)
	tl := TimeLimit{TimeMs: 600_000, ByoyomiMs: 10_000}
	require.NoError(t, e.StartSearch(context.Background(), fakeRecord{}, tl, 600_000, 600_000, resultHandler(results)))

	r := waitResult(t, results)
	require.Equal(t, "move", r.kind)
	assert.Equal(t, "7g7f", shogi.USIMove(r.move))
	require.NotNil(t, r.info)
	require.NotNil(t, r.info.Score)
	assert.Equal(t, 55, *r.info.Score)
	assert.Equal(t, 8, r.info.Depth)
	assert.Equal(t, int64(12345), r.info.Nodes)
	require.Len(t, r.info.PV, 2, "pv stops at the first undecodable move")
	assert.Equal(t, "3c3d", shogi.USIMove(r.info.PV[1]))

	info := <-infos
	assert.Equal(t, 8, info.Depth)

	assert.NoError(t, e.Close(context.Background()))
}

func TestUSIEngineResignAndWin(t *testing.T) {
	for _, mode := range []string{"resign", "win"} {
		t.Run(mode, func(t *testing.T) {
			e := startFakeEngine(t, mode, nil)
			results := make(chan searchResult, 2)
			require.NoError(t, e.StartSearch(context.Background(), fakeRecord{}, TimeLimit{}, 1000, 1000, resultHandler(results)))
			assert.Equal(t, mode, waitResult(t, results).kind)
		})
	}
}

func TestUSIEngineBadBestMove(t *testing.T) {
	e := startFakeEngine(t, "bogus", nil)
	results := make(chan searchResult, 2)
	require.NoError(t, e.StartSearch(context.Background(), fakeRecord{}, TimeLimit{}, 1000, 1000, resultHandler(results)))

	r := waitResult(t, results)
	require.Equal(t, "error", r.kind)
	assert.ErrorIs(t, r.err, shogi.ErrInvalidMove)
}

func TestUSIEnginePonderThenSearch(t *testing.T) {
	infos := make(chan SearchInfo, 8)
	e := startFakeEngine(t, "move", func(info SearchInfo) { infos <- info })

	require.NoError(t, e.StartPonder(context.Background(), fakeRecord{}, TimeLimit{}, 1000, 1000))
	ponderInfo := <-infos
	require.NotNil(t, ponderInfo.Score)
	assert.Equal(t, -20, *ponderInfo.Score)

	results := make(chan searchResult, 2)
	require.NoError(t, e.StartSearch(context.Background(), fakeRecord{}, TimeLimit{}, 1000, 1000, resultHandler(results)))

	r := waitResult(t, results)
	assert.Equal(t, "move", r.kind)
	assert.Equal(t, "7g7f", shogi.USIMove(r.move))

	select {
	case extra := <-results:
		t.Fatalf("unexpected second result %+v", extra)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestUSIEngineHandshakeTimeout(t *testing.T) {
	t.Setenv("GO_WANT_HELPER_PROCESS", "1")
	t.Setenv("FAKE_USI_MODE", "mute")

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	_, err := NewUSIBuilder(zap.NewNop()).Build(ctx, config.PlayerSetting{
		Path: os.Args[0],
		Args: []string{"-test.run=TestHelperProcess", "--"},
	}, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestUSIBuilderMissingBinary(t *testing.T) {
	_, err := NewUSIBuilder(zap.NewNop()).Build(context.Background(), config.PlayerSetting{
		Path: "/nonexistent/engine",
	}, nil)
	assert.Error(t, err)
}

func TestGoCommand(t *testing.T) {
	assert.Equal(t, "go btime 1000 wtime 2000 byoyomi 10000",
		goCommand(TimeLimit{ByoyomiMs: 10_000}, 1000, 2000))
	assert.Equal(t, "go btime 1000 wtime 2000 binc 5000 winc 5000",
		goCommand(TimeLimit{IncrementMs: 5000}, 1000, 2000))
	assert.Equal(t, "go btime 1000 wtime 2000 byoyomi 500",
		goCommand(TimeLimit{ByoyomiMs: 500}, 1000, 2000))
	assert.Equal(t, "go btime 0 wtime 0 byoyomi 0", goCommand(TimeLimit{}, 0, 0))
}

func TestPositionCommand(t *testing.T) {
	sfen := "lnsgkgsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL b - 1"
	assert.Equal(t, "position sfen "+sfen, positionCommand(sfen, nil))
	assert.Equal(t, "position sfen "+sfen+" moves 7g7f 3c3d", positionCommand(sfen, []string{"7g7f", "3c3d"}))
}

func TestParseInfoMate(t *testing.T) {
	info, ok := parseInfo(shogi.NewStandardPosition(), "info depth 12 score mate -3 pv")
	require.True(t, ok)
	require.NotNil(t, info.Mate)
	assert.Equal(t, -3, *info.Mate)
	assert.Nil(t, info.Score)
	assert.Empty(t, info.PV)

	_, ok = parseInfo(shogi.NewStandardPosition(), "info string hello")
	assert.False(t, ok)
}
