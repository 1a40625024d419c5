package game

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tecu23/csa-client/pkg/config"
	"github.com/tecu23/csa-client/pkg/csa"
	"github.com/tecu23/csa-client/pkg/player"
	"github.com/tecu23/csa-client/pkg/record"
	"github.com/tecu23/csa-client/pkg/shogi"
)

const (
	defaultRetryInterval = 5 * time.Second
	teardownTimeout      = 10 * time.Second
)

// Options holds the collaborators of a Manager
type Options struct {
	Server     Server
	Registry   Registry
	Record     Record
	BlackClock Clock
	WhiteClock Clock
	Observer   Observer
	Logger     *zap.Logger

	// RetryInterval is the wait before a failed login is retried.
	RetryInterval time.Duration
}

// Manager conducts CSA matches for one login sequence. Every operation,
// server event, timer and player callback runs on a single loop goroutine.
type Manager struct {
	server        Server
	registry      Registry
	record        Record
	blackClock    Clock
	whiteClock    Clock
	observer      Observer
	logger        *zap.Logger
	retryInterval time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	tasksMu  sync.Mutex
	tasks    []func()
	wakeup   chan struct{}
	done     chan struct{}
	doneOnce sync.Once
	pending  sync.WaitGroup

	// owned by the loop
	state         State
	sessionID     int
	setting       config.GameSetting
	builder       player.Builder
	player        player.Player
	attempt       int
	repeat        int
	stopRequested bool
	shuttingDown  bool
	summary       csa.GameSummary
	searchInfo    *player.SearchInfo
	retryTimer    *time.Timer
	retryGen      int
}

// Status is a point-in-time view of the manager
type Status struct {
	State       State
	SessionID   int
	Repeat      int
	GameID      string
	MyColor     shogi.Color
	BlackTimeMs int64
	WhiteTimeMs int64
}

// New creates an offline manager and starts its loop.
func New(opts Options) *Manager {
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = defaultRetryInterval
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		server:        opts.Server,
		registry:      opts.Registry,
		record:        opts.Record,
		blackClock:    opts.BlackClock,
		whiteClock:    opts.WhiteClock,
		observer:      opts.Observer,
		logger:        opts.Logger,
		retryInterval: opts.RetryInterval,
		ctx:           ctx,
		cancel:        cancel,
		wakeup:        make(chan struct{}, 1),
		done:          make(chan struct{}),
		summary:       csa.EmptyGameSummary(),
	}

	go m.loop()
	return m
}

func (m *Manager) loop() {
	for {
		select {
		case <-m.done:
			return
		case <-m.wakeup:
		}

		for {
			task, ok := m.dequeue()
			if !ok {
				break
			}
			task()
		}
	}
}

func (m *Manager) dequeue() (func(), bool) {
	m.tasksMu.Lock()
	defer m.tasksMu.Unlock()

	if len(m.tasks) == 0 {
		return nil, false
	}
	task := m.tasks[0]
	m.tasks[0] = nil
	m.tasks = m.tasks[1:]
	return task, true
}

// post queues fn on the loop without waiting. It never blocks.
func (m *Manager) post(fn func()) {
	m.tasksMu.Lock()
	m.tasks = append(m.tasks, fn)
	m.tasksMu.Unlock()

	select {
	case m.wakeup <- struct{}{}:
	default:
	}
}

// call runs fn on the loop and waits for its result.
func (m *Manager) call(fn func() error) error {
	result := make(chan error, 1)
	m.post(func() { result <- fn() })

	select {
	case err := <-result:
		return err
	case <-m.done:
		return ErrManagerClosed
	}
}

// Login starts a login sequence and waits for its first attempt. A failed
// attempt is returned and a retry is scheduled.
func (m *Manager) Login(ctx context.Context, setting config.GameSetting, builder player.Builder) error {
	var result <-chan error
	err := m.call(func() error {
		if m.sessionID != 0 {
			return ErrSessionExists
		}
		if m.state != StateOffline {
			return fmt.Errorf("%w: %s", ErrUnexpectedState, m.state)
		}
		if m.shuttingDown {
			return ErrManagerClosed
		}

		m.setting = setting
		m.builder = builder
		m.repeat = 0
		result = m.login()
		return nil
	})
	if err != nil {
		return err
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop asks the server to interrupt the match. The session ends when the
// server answers, and no further match follows.
func (m *Manager) Stop() error {
	return m.call(func() error {
		if m.sessionID == 0 {
			return nil
		}
		m.stopRequested = true
		if err := m.server.Stop(m.sessionID); err != nil {
			m.reportError(fmt.Errorf("stop: %w", err))
		}
		return nil
	})
}

// Logout tears the session down without reconnecting.
func (m *Manager) Logout() error {
	return m.call(func() error {
		m.close(DoNotRelogin)
		return nil
	})
}

// Shutdown logs out, waits for pending logins and teardowns, and stops the loop.
func (m *Manager) Shutdown(ctx context.Context) error {
	err := m.call(func() error {
		m.shuttingDown = true
		m.close(DoNotRelogin)
		return nil
	})
	m.cancel()

	drained := make(chan struct{})
	go func() {
		m.pending.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-ctx.Done():
		err = ctx.Err()
	}

	m.doneOnce.Do(func() { close(m.done) })
	return err
}

// State returns the current state.
func (m *Manager) State() State {
	var s State
	if err := m.call(func() error {
		s = m.state
		return nil
	}); err != nil {
		return StateOffline
	}
	return s
}

// Setting returns the setting of the current login sequence.
func (m *Manager) Setting() config.GameSetting {
	var s config.GameSetting
	_ = m.call(func() error {
		s = m.setting
		return nil
	})
	return s
}

// IsMyTurn reports whether the side to move is the assigned color.
func (m *Manager) IsMyTurn() bool {
	var mine bool
	_ = m.call(func() error {
		mine = m.isMyTurn()
		return nil
	})
	return mine
}

// Status returns a snapshot of the session.
func (m *Manager) Status() Status {
	var s Status
	if err := m.call(func() error {
		s = Status{
			State:       m.state,
			SessionID:   m.sessionID,
			Repeat:      m.repeat,
			GameID:      m.summary.ID,
			MyColor:     m.summary.MyColor,
			BlackTimeMs: m.blackClock.TimeMs(),
			WhiteTimeMs: m.whiteClock.TimeMs(),
		}
		return nil
	}); err != nil {
		return Status{State: StateOffline}
	}
	return s
}

func (m *Manager) isMyTurn() bool {
	return m.record.SideToMove() == m.summary.MyColor
}

// login builds the player and logs in off the loop; the result is applied
// back on the loop.
func (m *Manager) login() <-chan error {
	m.attempt++
	attempt := m.attempt
	setting, builder := m.setting, m.builder
	m.setState(StateWaitingLogin)

	result := make(chan error, 1)
	m.pending.Add(1)
	go func() {
		p, id, err := m.connect(setting, builder, attempt)
		m.post(func() {
			defer m.pending.Done()
			m.onLoginResult(p, id, err)
			result <- err
		})
	}()
	return result
}

func (m *Manager) connect(setting config.GameSetting, builder player.Builder, attempt int) (player.Player, int, error) {
	p, err := builder.Build(m.ctx, setting.Player, func(info player.SearchInfo) {
		m.post(func() {
			if attempt != m.attempt || m.sessionID == 0 {
				return
			}
			m.record.UpdateSearchInfo(record.SenderOpponent, info)
		})
	})
	if err != nil {
		return nil, 0, fmt.Errorf("build player: %w", err)
	}

	id, err := m.server.Login(m.ctx, setting.Server)
	if err != nil {
		return p, 0, fmt.Errorf("login to %s: %w", setting.Server.Address(), err)
	}
	return p, id, nil
}

func (m *Manager) onLoginResult(p player.Player, id int, err error) {
	m.player = p
	if err == nil {
		m.sessionID = id
		err = m.registry.Register(id, m)
		if err == nil {
			err = m.server.Start(id)
		}
	}

	if err != nil {
		m.reportError(err)
		m.setState(StateLoginFailed)
		m.close(ReloginWithInterval)
		return
	}

	m.logger.Info("csa session ready", zap.Int("session_id", id), zap.Int("repeat", m.repeat))
	m.setState(StateReady)
	m.observer.OnGameNext()

	if m.shuttingDown {
		m.close(DoNotRelogin)
	}
}

// close tears the session down and decides whether to log in again.
func (m *Manager) close(behavior ReloginBehavior) {
	if m.state == StateOffline || m.state == StateWaitingLogin {
		return
	}
	if m.stopRequested || m.shuttingDown {
		behavior = DoNotRelogin
		m.stopRequested = false
	}

	if m.sessionID != 0 {
		id := m.sessionID
		m.registry.Unregister(id)
		m.async("logout", func(ctx context.Context) error {
			return m.server.Logout(ctx, id)
		})
		m.sessionID = 0
	}
	if m.player != nil {
		m.async("close player", m.player.Close)
		m.player = nil
	}

	m.blackClock.Stop()
	m.whiteClock.Stop()
	m.setState(StateOffline)
	m.cancelRetry()

	if behavior == DoNotRelogin || m.repeat >= m.setting.Repeat {
		m.logger.Info("csa game sequence ended", zap.Int("repeat", m.repeat))
		m.observer.OnGameEnd()
		return
	}

	if behavior == ReloginImmediately {
		m.login()
		return
	}
	m.setState(StateLoginRetryInterval)
	m.scheduleRetry()
}

func (m *Manager) scheduleRetry() {
	m.cancelRetry()
	gen := m.retryGen
	m.retryTimer = time.AfterFunc(m.retryInterval, func() {
		m.post(func() {
			if gen != m.retryGen || m.state != StateLoginRetryInterval {
				return
			}
			m.retryTimer = nil
			m.login()
		})
	})
	m.logger.Debug("login retry scheduled", zap.Duration("interval", m.retryInterval))
}

func (m *Manager) cancelRetry() {
	m.retryGen++
	if m.retryTimer != nil {
		m.retryTimer.Stop()
		m.retryTimer = nil
	}
}

// async runs a best-effort teardown step off the loop and reports its failure.
func (m *Manager) async(name string, fn func(ctx context.Context) error) {
	m.pending.Add(1)
	go func() {
		defer m.pending.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(m.ctx), teardownTimeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			m.post(func() { m.reportError(fmt.Errorf("%s: %w", name, err)) })
		}
	}()
}

func (m *Manager) setState(s State) {
	if m.state == s {
		return
	}
	m.logger.Debug("state changed",
		zap.Stringer("from", m.state),
		zap.Stringer("to", s),
		zap.Int("session_id", m.sessionID))
	m.state = s
	m.observer.OnStateChanged(s)
}

func (m *Manager) reportError(err error) {
	m.logger.Warn("csa session error", zap.Int("session_id", m.sessionID), zap.Error(err))
	m.observer.OnError(err)
}
