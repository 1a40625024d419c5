package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tecu23/csa-client/pkg/csa"
)

type fakeTarget struct {
	calls []string
}

func (f *fakeTarget) OnGameSummary(s csa.GameSummary) { f.calls = append(f.calls, "summary:"+s.ID) }
func (f *fakeTarget) OnReject()                       { f.calls = append(f.calls, "reject") }
func (f *fakeTarget) OnStart(csa.PlayerStates)        { f.calls = append(f.calls, "start") }
func (f *fakeTarget) OnMove(token string, _ csa.PlayerStates) {
	f.calls = append(f.calls, "move:"+token)
}
func (f *fakeTarget) OnGameResult(m csa.SpecialMove, r csa.GameResult) {
	f.calls = append(f.calls, "result:"+string(m)+":"+string(r))
}
func (f *fakeTarget) OnClose() { f.calls = append(f.calls, "close") }

var _ csa.EventHandler = (*Registry)(nil)

func TestRegistryRoutesBySessionID(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	a, b := &fakeTarget{}, &fakeTarget{}
	require.NoError(t, r.Register(1, a))
	require.NoError(t, r.Register(2, b))

	r.OnGameSummary(1, csa.GameSummary{ID: "g1"})
	r.OnStart(1, csa.PlayerStates{})
	r.OnMove(2, "+7776FU", csa.PlayerStates{})
	r.OnGameResult(2, csa.Resign, csa.Win)
	r.OnReject(1)
	r.OnClose(2)

	assert.Equal(t, []string{"summary:g1", "start", "reject"}, a.calls)
	assert.Equal(t, []string{"move:+7776FU", "result:RESIGN:WIN", "close"}, b.calls)
}

func TestRegistryIgnoresUnknownSessions(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	a := &fakeTarget{}
	require.NoError(t, r.Register(1, a))
	r.Unregister(1)
	r.Unregister(1)

	r.OnClose(1)
	r.OnMove(9, "+7776FU", csa.PlayerStates{})

	assert.Empty(t, a.calls)
	assert.Equal(t, 0, r.Len())
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	require.NoError(t, r.Register(3, &fakeTarget{}))
	assert.ErrorIs(t, r.Register(3, &fakeTarget{}), ErrAlreadyRegistered)

	_, ok := r.Lookup(3)
	assert.True(t, ok)
}
