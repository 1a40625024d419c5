package csa

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tecu23/csa-client/pkg/config"
)

type recordedEvent struct {
	kind    string
	id      int
	token   string
	summary GameSummary
	states  PlayerStates
	special SpecialMove
	result  GameResult
}

type recorder struct {
	events chan recordedEvent
}

func newRecorder() *recorder {
	return &recorder{events: make(chan recordedEvent, 32)}
}

func (r *recorder) OnGameSummary(id int, s GameSummary) {
	r.events <- recordedEvent{kind: "summary", id: id, summary: s}
}
func (r *recorder) OnReject(id int) { r.events <- recordedEvent{kind: "reject", id: id} }
func (r *recorder) OnStart(id int, s PlayerStates) {
	r.events <- recordedEvent{kind: "start", id: id, states: s}
}
func (r *recorder) OnMove(id int, token string, s PlayerStates) {
	r.events <- recordedEvent{kind: "move", id: id, token: token, states: s}
}
func (r *recorder) OnGameResult(id int, m SpecialMove, res GameResult) {
	r.events <- recordedEvent{kind: "result", id: id, special: m, result: res}
}
func (r *recorder) OnClose(id int) { r.events <- recordedEvent{kind: "close", id: id} }

func (r *recorder) next(t *testing.T) recordedEvent {
	t.Helper()
	select {
	case ev := <-r.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return recordedEvent{}
	}
}

// fakeServer accepts a single connection and hands it to script.
func fakeServer(t *testing.T, script func(r *bufio.Reader, w net.Conn)) config.ServerSetting {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		nc, err := ln.Accept()
		if err != nil {
			return
		}
		defer nc.Close()
		script(bufio.NewReader(nc), nc)
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return config.ServerSetting{
		ProtocolVersion: config.ProtocolV121,
		Host:            "127.0.0.1",
		Port:            addr.Port,
		ID:              "tester",
		Password:        "secret",
	}
}

func expectLine(r *bufio.Reader, want string) error {
	line, err := r.ReadString('\n')
	if err != nil {
		return err
	}
	if got := strings.TrimRight(line, "\r\n"); got != want {
		return fmt.Errorf("got %q, want %q", got, want)
	}
	return nil
}

func TestClientGameFlow(t *testing.T) {
	serverErr := make(chan error, 1)
	setting := fakeServer(t, func(r *bufio.Reader, w net.Conn) {
		serverErr <- func() error {
			if err := expectLine(r, "LOGIN tester secret"); err != nil {
				return err
			}
			io.WriteString(w, "LOGIN:tester OK\n")
			fmt.Fprintf(w, "BEGIN Game_Summary\n%s\nEND Game_Summary\n", strings.Replace(sampleSummary, "Byoyomi:10", "Byoyomi:0\nIncrement:5", 1))
			if err := expectLine(r, "AGREE 20150505-CSA25-3-5-7"); err != nil {
				return err
			}
			io.WriteString(w, "START:20150505-CSA25-3-5-7\n+7776FU,T12\n")
			if err := expectLine(r, "-3334FU,'* 30 +2726FU"); err != nil {
				return err
			}
			io.WriteString(w, "-3334FU,T700\n%TORYO,T3\n#RESIGN\n#LOSE\n")
			if err := expectLine(r, "LOGOUT"); err != nil {
				return err
			}
			io.WriteString(w, "LOGOUT:completed\n")
			return nil
		}()
	})

	rec := newRecorder()
	client := NewClient(rec, zap.NewNop())
	id, err := client.Login(context.Background(), setting)
	require.NoError(t, err)
	assert.Equal(t, 1, id)
	require.NoError(t, client.Start(id))

	ev := rec.next(t)
	require.Equal(t, "summary", ev.kind)
	assert.Equal(t, 5, ev.summary.Increment)
	require.NoError(t, client.Agree(id, ev.summary.ID))

	ev = rec.next(t)
	require.Equal(t, "start", ev.kind)
	assert.Equal(t, PlayerStates{Black: PlayerState{600}, White: PlayerState{600}}, ev.states)

	ev = rec.next(t)
	require.Equal(t, "move", ev.kind)
	assert.Equal(t, "+7776FU,T12", ev.token)
	assert.Equal(t, 593, ev.states.Black.Time)

	score := 30
	require.NoError(t, client.Move(id, "-3334FU", &score, "+2726FU"))

	ev = rec.next(t)
	require.Equal(t, "move", ev.kind)
	assert.Equal(t, 5, ev.states.White.Time, "clamped at zero then incremented")

	ev = rec.next(t)
	require.Equal(t, "result", ev.kind)
	assert.Equal(t, Resign, ev.special)
	assert.Equal(t, Lose, ev.result)

	require.NoError(t, client.Logout(context.Background(), id))
	require.NoError(t, <-serverErr)

	ev = rec.next(t)
	assert.Equal(t, "close", ev.kind)
	assert.ErrorIs(t, client.Resign(id), ErrUnknownSession)
}

func TestClientLoginIncorrect(t *testing.T) {
	setting := fakeServer(t, func(r *bufio.Reader, w net.Conn) {
		_, _ = r.ReadString('\n')
		io.WriteString(w, "LOGIN:incorrect\n")
	})

	client := NewClient(newRecorder(), zap.NewNop())
	_, err := client.Login(context.Background(), setting)
	assert.ErrorIs(t, err, ErrLoginIncorrect)
}

func TestClientLoginTimeout(t *testing.T) {
	setting := fakeServer(t, func(r *bufio.Reader, w net.Conn) {
		_, _ = r.ReadString('\n')
		time.Sleep(time.Second)
	})

	client := NewClient(newRecorder(), zap.NewNop())
	client.loginTimeout = 100 * time.Millisecond
	_, err := client.Login(context.Background(), setting)
	assert.Error(t, err)
}

func TestClientRejectChudanAndServerClose(t *testing.T) {
	setting := fakeServer(t, func(r *bufio.Reader, w net.Conn) {
		_, _ = r.ReadString('\n')
		io.WriteString(w, "LOGIN:tester OK\nREJECT:g1 by other\n#CHUDAN\n")
	})

	rec := newRecorder()
	client := NewClient(rec, zap.NewNop())
	id, err := client.Login(context.Background(), setting)
	require.NoError(t, err)
	require.NoError(t, client.Start(id))

	assert.Equal(t, "reject", rec.next(t).kind)
	ev := rec.next(t)
	assert.Equal(t, "result", ev.kind)
	assert.Equal(t, Chudan, ev.special)
	assert.Equal(t, Censored, ev.result)
	ev = rec.next(t)
	assert.Equal(t, "close", ev.kind)
	assert.Equal(t, id, ev.id)
}

func TestClientHoldsEventsUntilStarted(t *testing.T) {
	setting := fakeServer(t, func(r *bufio.Reader, w net.Conn) {
		_, _ = r.ReadString('\n')
		fmt.Fprintf(w, "LOGIN:tester OK\nBEGIN Game_Summary\n%s\nEND Game_Summary\nSTART:g1\n", sampleSummary)
		_, _ = r.ReadString('\n')
	})

	rec := newRecorder()
	client := NewClient(rec, zap.NewNop())
	id, err := client.Login(context.Background(), setting)
	require.NoError(t, err)

	select {
	case ev := <-rec.events:
		t.Fatalf("event %q delivered before start", ev.kind)
	case <-time.After(100 * time.Millisecond):
	}

	require.NoError(t, client.Start(id))
	assert.Equal(t, "summary", rec.next(t).kind)
	assert.Equal(t, "start", rec.next(t).kind)

	require.NoError(t, client.Start(id))
	require.NoError(t, client.Close())
	assert.Equal(t, "close", rec.next(t).kind)
}

func TestClientUnknownSession(t *testing.T) {
	client := NewClient(newRecorder(), zap.NewNop())
	assert.ErrorIs(t, client.Agree(7, "g"), ErrUnknownSession)
	assert.ErrorIs(t, client.Start(7), ErrUnknownSession)
	assert.ErrorIs(t, client.Logout(context.Background(), 7), ErrUnknownSession)
	assert.NoError(t, client.Close())
}
