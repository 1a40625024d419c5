package player

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/tecu23/csa-client/pkg/config"
	"github.com/tecu23/csa-client/pkg/shogi"
)

const (
	defaultReadyTimeout = 10 * time.Second
	defaultStopTimeout  = 3 * time.Second
	defaultQuitTimeout  = 3 * time.Second
)

// ErrEngineClosed is returned once the engine process has gone away.
var ErrEngineClosed = errors.New("usi engine closed")

// search is the search or ponder currently running on the engine
type search struct {
	pos     *shogi.Position
	handler SearchHandler
	ponder  bool
	info    *SearchInfo
	done    chan struct{}
}

// USIEngine represents a USI-compatible shogi engine process
type USIEngine struct {
	ID   uuid.UUID
	Name string

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	reader *bufio.Reader

	writeMutex sync.Mutex

	mutex   sync.Mutex
	search  *search
	waiters map[string]chan struct{}
	closing bool

	onSearchInfo func(SearchInfo)
	ponder       bool

	exited    chan struct{}
	closeOnce sync.Once
	closeErr  error

	logger *zap.Logger

	readyTimeout time.Duration
	stopTimeout  time.Duration
	quitTimeout  time.Duration
}

// NewUSIEngine starts the engine process and runs the USI handshake:
// usi/usiok, setoption, isready/readyok and usinewgame.
func NewUSIEngine(ctx context.Context, setting config.PlayerSetting, onSearchInfo func(SearchInfo), logger *zap.Logger) (*USIEngine, error) {
	cmd := exec.Command(setting.Path, setting.Args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close()
		return nil, fmt.Errorf("start engine %s: %w", setting.Path, err)
	}

	id := uuid.New()
	e := &USIEngine{
		ID:           id,
		Name:         setting.Name,
		cmd:          cmd,
		stdin:        stdin,
		reader:       bufio.NewReader(stdout),
		waiters:      make(map[string]chan struct{}),
		onSearchInfo: onSearchInfo,
		ponder:       setting.Ponder,
		exited:       make(chan struct{}),
		logger:       logger.With(zap.String("engine_id", id.String())),
		readyTimeout: defaultReadyTimeout,
		stopTimeout:  defaultStopTimeout,
		quitTimeout:  defaultQuitTimeout,
	}

	go e.readLoop()

	if err := e.initialize(ctx, setting.Options); err != nil {
		return nil, multierr.Append(err, e.Close(context.Background()))
	}

	e.logger.Info("usi engine ready", zap.String("name", e.Name), zap.String("path", setting.Path))
	return e, nil
}

func (e *USIEngine) initialize(ctx context.Context, options map[string]string) error {
	ctx, cancel := context.WithTimeout(ctx, e.readyTimeout)
	defer cancel()

	if err := e.request(ctx, "usi", "usiok"); err != nil {
		return err
	}

	names := make([]string, 0, len(options))
	for name := range options {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := e.writeCommand(fmt.Sprintf("setoption name %s value %s", name, options[name])); err != nil {
			return fmt.Errorf("apply options: %w", err)
		}
	}

	if err := e.request(ctx, "isready", "readyok"); err != nil {
		return err
	}
	if err := e.writeCommand("usinewgame"); err != nil {
		return fmt.Errorf("send usinewgame: %w", err)
	}
	return nil
}

// request sends cmd and waits until the engine answers with token.
func (e *USIEngine) request(ctx context.Context, cmd, token string) error {
	ch := make(chan struct{})
	e.mutex.Lock()
	e.waiters[token] = ch
	e.mutex.Unlock()

	if err := e.writeCommand(cmd); err != nil {
		return fmt.Errorf("send %s: %w", cmd, err)
	}

	select {
	case <-ch:
		return nil
	case <-e.exited:
		return fmt.Errorf("wait %s: %w", token, ErrEngineClosed)
	case <-ctx.Done():
		return fmt.Errorf("wait %s: %w", token, ctx.Err())
	}
}

// StartSearch stops any ponder, sends the position and starts a timed search.
func (e *USIEngine) StartSearch(ctx context.Context, rec Record, tl TimeLimit, blackMs, whiteMs int64, h SearchHandler) error {
	if err := e.stopPonder(ctx); err != nil {
		return err
	}
	return e.start(&search{pos: rec.Position(), handler: h}, rec, goCommand(tl, blackMs, whiteMs))
}

// StartPonder starts an unbounded analysis of the opponent's turn when
// pondering is enabled. Its bestmove is discarded.
func (e *USIEngine) StartPonder(ctx context.Context, rec Record, tl TimeLimit, blackMs, whiteMs int64) error {
	if err := e.stopPonder(ctx); err != nil {
		return err
	}
	if !e.ponder {
		return nil
	}
	e.logger.Debug("usi ponder",
		zap.Int64("black_ms", blackMs),
		zap.Int64("white_ms", whiteMs),
		zap.Int64("byoyomi_ms", tl.ByoyomiMs))
	return e.start(&search{pos: rec.Position(), ponder: true}, rec, "go infinite")
}

func (e *USIEngine) start(s *search, rec Record, goCmd string) error {
	s.done = make(chan struct{})

	e.mutex.Lock()
	if e.closing {
		e.mutex.Unlock()
		return ErrEngineClosed
	}
	if e.search != nil && !e.search.ponder {
		e.mutex.Unlock()
		return errors.New("usi engine is already searching")
	}
	e.search = s
	e.mutex.Unlock()

	err := multierr.Combine(
		e.writeCommand(positionCommand(rec.InitialSFEN(), rec.USIMoves())),
		e.writeCommand(goCmd),
	)
	if err != nil {
		e.mutex.Lock()
		if e.search == s {
			e.search = nil
		}
		e.mutex.Unlock()
		return fmt.Errorf("start search: %w", err)
	}
	return nil
}

// stopPonder stops a running ponder and waits for its bestmove.
func (e *USIEngine) stopPonder(ctx context.Context) error {
	e.mutex.Lock()
	s := e.search
	e.mutex.Unlock()

	if s == nil || !s.ponder {
		return nil
	}
	if err := e.writeCommand("stop"); err != nil {
		return fmt.Errorf("send stop: %w", err)
	}

	timer := time.NewTimer(e.stopTimeout)
	defer timer.Stop()
	select {
	case <-s.done:
		return nil
	case <-e.exited:
		return ErrEngineClosed
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return errors.New("usi engine did not stop pondering")
	}
}

// Close sends quit and kills the process if it does not exit in time.
func (e *USIEngine) Close(ctx context.Context) error {
	e.closeOnce.Do(func() {
		e.mutex.Lock()
		e.closing = true
		e.mutex.Unlock()

		var err error
		if werr := e.writeCommand("quit"); werr != nil && !errors.Is(werr, ErrEngineClosed) {
			err = multierr.Append(err, fmt.Errorf("send quit: %w", werr))
		}

		timer := time.NewTimer(e.quitTimeout)
		defer timer.Stop()
		select {
		case <-e.exited:
		case <-ctx.Done():
		case <-timer.C:
		}

		select {
		case <-e.exited:
		default:
			e.logger.Warn("usi engine did not quit, killing")
			err = multierr.Append(err, e.cmd.Process.Kill())
			<-e.exited
		}
		e.closeErr = err
		e.logger.Info("usi engine closed")
	})
	return e.closeErr
}

func (e *USIEngine) writeCommand(cmd string) error {
	e.writeMutex.Lock()
	defer e.writeMutex.Unlock()

	select {
	case <-e.exited:
		return ErrEngineClosed
	default:
	}

	if _, err := io.WriteString(e.stdin, cmd+"\n"); err != nil {
		return err
	}
	e.logger.Debug("usi send", zap.String("line", cmd))
	return nil
}

func (e *USIEngine) readLoop() {
	for {
		line, err := e.reader.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) {
				e.logger.Warn("usi read error", zap.Error(err))
			}
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		e.handleLine(line)
	}

	e.stdin.Close()
	if err := e.cmd.Wait(); err != nil {
		e.logger.Debug("usi engine exited", zap.Error(err))
	}
	close(e.exited)

	e.mutex.Lock()
	s := e.search
	e.search = nil
	closing := e.closing
	e.mutex.Unlock()

	if s != nil {
		close(s.done)
		if !s.ponder && !closing && s.handler.OnError != nil {
			s.handler.OnError(ErrEngineClosed)
		}
	}
}

func (e *USIEngine) handleLine(line string) {
	switch {
	case strings.HasPrefix(line, "info "):
		e.handleInfo(line)
		return
	case strings.HasPrefix(line, "bestmove"):
		e.handleBestMove(line)
		return
	case strings.HasPrefix(line, "id name "):
		e.Name = strings.TrimPrefix(line, "id name ")
	}

	e.logger.Debug("usi recv", zap.String("line", line))

	e.mutex.Lock()
	ch, ok := e.waiters[line]
	delete(e.waiters, line)
	e.mutex.Unlock()
	if ok {
		close(ch)
	}
}

func (e *USIEngine) handleInfo(line string) {
	e.mutex.Lock()
	s := e.search
	e.mutex.Unlock()
	if s == nil {
		return
	}

	info, ok := parseInfo(s.pos, line)
	if !ok {
		return
	}

	e.mutex.Lock()
	s.info = &info
	e.mutex.Unlock()

	if e.onSearchInfo != nil {
		e.onSearchInfo(info)
	}
}

func (e *USIEngine) handleBestMove(line string) {
	e.logger.Debug("usi recv", zap.String("line", line))

	e.mutex.Lock()
	s := e.search
	e.search = nil
	e.mutex.Unlock()
	if s == nil {
		return
	}
	close(s.done)
	if s.ponder {
		return
	}

	h := s.handler
	fields := strings.Fields(line)
	if len(fields) < 2 {
		if h.OnError != nil {
			h.OnError(fmt.Errorf("malformed bestmove: %q", line))
		}
		return
	}

	switch fields[1] {
	case "resign":
		if h.OnResign != nil {
			h.OnResign()
		}
	case "win":
		if h.OnWin != nil {
			h.OnWin()
		}
	default:
		move, err := shogi.ParseUSIMove(s.pos, fields[1])
		if err != nil {
			if h.OnError != nil {
				h.OnError(fmt.Errorf("engine bestmove: %w", err))
			}
			return
		}
		e.mutex.Lock()
		info := s.info
		e.mutex.Unlock()
		if h.OnMove != nil {
			h.OnMove(move, info)
		}
	}
}

func positionCommand(sfen string, moves []string) string {
	var sb strings.Builder
	sb.WriteString("position sfen ")
	sb.WriteString(sfen)
	if len(moves) > 0 {
		sb.WriteString(" moves ")
		sb.WriteString(strings.Join(moves, " "))
	}
	return sb.String()
}

func goCommand(tl TimeLimit, blackMs, whiteMs int64) string {
	cmd := fmt.Sprintf("go btime %d wtime %d", blackMs, whiteMs)
	if tl.IncrementMs > 0 {
		return cmd + fmt.Sprintf(" binc %d winc %d", tl.IncrementMs, tl.IncrementMs)
	}
	return cmd + fmt.Sprintf(" byoyomi %d", tl.ByoyomiMs)
}

// parseInfo reads depth, nodes, score and pv from an info line. PV moves are
// decoded against pos until the first one that does not apply.
func parseInfo(pos *shogi.Position, line string) (SearchInfo, bool) {
	var (
		info SearchInfo
		seen bool
	)
	parts := strings.Fields(line)

	for i := 1; i < len(parts); i++ {
		switch parts[i] {
		case "depth":
			if i+1 < len(parts) {
				if v, err := strconv.Atoi(parts[i+1]); err == nil {
					info.Depth = v
					seen = true
				}
				i++
			}
		case "nodes":
			if i+1 < len(parts) {
				if v, err := strconv.ParseInt(parts[i+1], 10, 64); err == nil {
					info.Nodes = v
					seen = true
				}
				i++
			}
		case "score":
			if i+2 < len(parts) {
				if v, err := strconv.Atoi(parts[i+2]); err == nil {
					switch parts[i+1] {
					case "cp":
						info.Score = &v
						seen = true
					case "mate":
						info.Mate = &v
						seen = true
					}
				}
				i += 2
			}
		case "pv":
			info.PV = parsePV(pos, parts[i+1:])
			seen = seen || len(info.PV) > 0
			i = len(parts)
		case "string":
			i = len(parts)
		}
	}
	return info, seen
}

func parsePV(pos *shogi.Position, tokens []string) []shogi.Move {
	if pos == nil || len(tokens) == 0 {
		return nil
	}
	p := pos.Clone()
	pv := make([]shogi.Move, 0, len(tokens))
	for _, token := range tokens {
		m, err := shogi.ParseUSIMove(p, token)
		if err != nil {
			break
		}
		if err := p.ApplyMove(m); err != nil {
			break
		}
		pv = append(pv, m)
	}
	return pv
}

// USIBuilder builds USIEngine players
type USIBuilder struct {
	logger *zap.Logger
}

// NewUSIBuilder creates a builder whose engines log to logger.
func NewUSIBuilder(logger *zap.Logger) *USIBuilder {
	return &USIBuilder{logger: logger}
}

// Build starts a USI engine for setting.
func (b *USIBuilder) Build(ctx context.Context, setting config.PlayerSetting, onSearchInfo func(SearchInfo)) (Player, error) {
	return NewUSIEngine(ctx, setting, onSearchInfo, b.logger)
}
