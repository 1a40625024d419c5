package game

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tecu23/csa-client/pkg/clock"
	"github.com/tecu23/csa-client/pkg/config"
	"github.com/tecu23/csa-client/pkg/player"
)

type sentMove struct {
	sessionID int
	token     string
	score     *int
	pv        string
}

type fakeServer struct {
	mu        sync.Mutex
	lastID    int
	loginErrs []error
	logins    int
	started   []int
	agreed    []string
	moves     []sentMove
	resigns   int
	wins      int
	stops     int
	logouts   []int
}

func (s *fakeServer) Login(_ context.Context, _ config.ServerSetting) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logins++
	if len(s.loginErrs) > 0 {
		err := s.loginErrs[0]
		s.loginErrs = s.loginErrs[1:]
		if err != nil {
			return 0, err
		}
	}
	s.lastID++
	return s.lastID, nil
}

func (s *fakeServer) Start(sessionID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = append(s.started, sessionID)
	return nil
}

func (s *fakeServer) Agree(_ int, gameID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agreed = append(s.agreed, gameID)
	return nil
}

func (s *fakeServer) Move(sessionID int, token string, score *int, pv string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.moves = append(s.moves, sentMove{sessionID, token, score, pv})
	return nil
}

func (s *fakeServer) Resign(int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resigns++
	return nil
}

func (s *fakeServer) Win(int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wins++
	return nil
}

func (s *fakeServer) Stop(int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
	return nil
}

func (s *fakeServer) Logout(_ context.Context, sessionID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logouts = append(s.logouts, sessionID)
	return nil
}

func (s *fakeServer) loginCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logins
}

func (s *fakeServer) startedIDs() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.started...)
}

func (s *fakeServer) sentMoves() []sentMove {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentMove(nil), s.moves...)
}

func (s *fakeServer) logoutIDs() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.logouts...)
}

type searchCall struct {
	ponder  bool
	blackMs int64
	whiteMs int64
	tl      player.TimeLimit
	handler player.SearchHandler
}

type fakePlayer struct {
	mu       sync.Mutex
	searches []searchCall
	closed   int
	startErr error
}

func (p *fakePlayer) StartSearch(_ context.Context, _ player.Record, tl player.TimeLimit, blackMs, whiteMs int64, h player.SearchHandler) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.searches = append(p.searches, searchCall{blackMs: blackMs, whiteMs: whiteMs, tl: tl, handler: h})
	return p.startErr
}

func (p *fakePlayer) StartPonder(_ context.Context, _ player.Record, tl player.TimeLimit, blackMs, whiteMs int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.searches = append(p.searches, searchCall{ponder: true, blackMs: blackMs, whiteMs: whiteMs, tl: tl})
	return p.startErr
}

func (p *fakePlayer) Close(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
	return nil
}

func (p *fakePlayer) calls() []searchCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]searchCall(nil), p.searches...)
}

func (p *fakePlayer) lastCall() searchCall {
	calls := p.calls()
	if len(calls) == 0 {
		return searchCall{}
	}
	return calls[len(calls)-1]
}

func (p *fakePlayer) closeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

type fakeBuilder struct {
	mu           sync.Mutex
	err          error
	nilPlayer    bool
	players      []*fakePlayer
	onSearchInfo func(player.SearchInfo)
}

func (b *fakeBuilder) Build(_ context.Context, _ config.PlayerSetting, onSearchInfo func(player.SearchInfo)) (player.Player, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return nil, b.err
	}
	b.onSearchInfo = onSearchInfo
	if b.nilPlayer {
		return nil, nil
	}
	p := &fakePlayer{}
	b.players = append(b.players, p)
	return p, nil
}

func (b *fakeBuilder) at(i int) *fakePlayer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.players[i]
}

func (b *fakeBuilder) last() *fakePlayer {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.players) == 0 {
		return nil
	}
	return b.players[len(b.players)-1]
}

type fakeClock struct {
	mu      sync.Mutex
	setting clock.Setting
	running bool
	stops   int
}

func (c *fakeClock) Setup(s clock.Setting) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setting = s
}

func (c *fakeClock) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = true
}

func (c *fakeClock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	c.stops++
}

func (c *fakeClock) TimeMs() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setting.TimeMs
}

func (c *fakeClock) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *fakeClock) current() clock.Setting {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setting
}

type fakeObserver struct {
	mu     sync.Mutex
	events []string
	errs   []error
}

func (o *fakeObserver) add(event string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event)
}

func (o *fakeObserver) OnStateChanged(s State) { o.add("state:" + s.String()) }
func (o *fakeObserver) OnSaveRecord()          { o.add("save") }
func (o *fakeObserver) OnGameNext()            { o.add("game_next") }
func (o *fakeObserver) OnGameEnd()             { o.add("game_end") }
func (o *fakeObserver) OnFlipBoard(flip bool)  { o.add(fmt.Sprintf("flip:%t", flip)) }
func (o *fakeObserver) OnPieceBeat()           { o.add("piece_beat") }
func (o *fakeObserver) OnBeepShort()           { o.add("beep_short") }
func (o *fakeObserver) OnBeepUnlimited()       { o.add("beep_unlimited") }
func (o *fakeObserver) OnStopBeep()            { o.add("stop_beep") }

func (o *fakeObserver) OnError(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, "error")
	o.errs = append(o.errs, err)
}

func (o *fakeObserver) count(event string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, e := range o.events {
		if e == event {
			n++
		}
	}
	return n
}

func (o *fakeObserver) hasError(target error) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, err := range o.errs {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (o *fakeObserver) errorCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.errs)
}
