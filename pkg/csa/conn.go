package csa

import (
	"bufio"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tecu23/csa-client/pkg/config"
	"github.com/tecu23/csa-client/pkg/shogi"
)

// conn is one logged-in CSA session. Only readLoop touches the parsing state.
type conn struct {
	id     int
	nc     net.Conn
	reader *bufio.Reader
	client *Client
	logger *zap.Logger

	writeMu sync.Mutex

	summaryLines []string
	inSummary    bool
	summary      GameSummary
	states       PlayerStates
	special      SpecialMove

	// Events are held until the session is started so that nothing is
	// delivered before the owner has registered the session id.
	deliverMu sync.Mutex
	started   bool
	held      []func(EventHandler)

	loggedOut chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	ackOnce   sync.Once
}

func newConn(id int, nc net.Conn, reader *bufio.Reader, client *Client, logger *zap.Logger) *conn {
	return &conn{
		id:        id,
		nc:        nc,
		reader:    reader,
		client:    client,
		logger:    logger,
		summary:   EmptyGameSummary(),
		loggedOut: make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (c *conn) send(line string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if _, err := io.WriteString(c.nc, line+"\n"); err != nil {
		return err
	}
	if line != "" {
		c.logger.Debug("csa send", zap.String("line", line))
	}
	return nil
}

func (c *conn) close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.nc.Close()
		if errors.Is(err, net.ErrClosed) {
			err = nil
		}
	})
	return err
}

// start releases the held events in order and delivers later ones directly.
func (c *conn) start() {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	if c.started {
		return
	}
	c.started = true
	for _, fn := range c.held {
		fn(c.client.handler)
	}
	c.held = nil
}

func (c *conn) deliver(fn func(EventHandler)) {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	if !c.started {
		c.held = append(c.held, fn)
		return
	}
	fn(c.client.handler)
}

func (c *conn) readLoop() {
	defer func() {
		c.close()
		close(c.done)
		c.deliver(func(h EventHandler) {
			c.client.remove(c.id)
			h.OnClose(c.id)
		})
	}()

	for {
		line, err := c.reader.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				c.logger.Warn("csa read error", zap.Error(err))
			} else {
				c.logger.Info("csa connection closed")
			}
			return
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}
		c.logger.Debug("csa recv", zap.String("line", line))
		c.handleLine(line)
	}
}

func (c *conn) handleLine(line string) {
	if c.inSummary {
		if line == "END Game_Summary" {
			c.inSummary = false
			summary, err := parseGameSummary(c.summaryLines)
			if err != nil {
				c.logger.Error("invalid game summary", zap.Error(err))
				return
			}
			c.summary = summary
			c.states = PlayerStates{
				Black: PlayerState{Time: summary.TotalTime},
				White: PlayerState{Time: summary.TotalTime},
			}
			c.deliver(func(h EventHandler) { h.OnGameSummary(c.id, summary) })
			return
		}
		c.summaryLines = append(c.summaryLines, line)
		return
	}

	switch {
	case line == "BEGIN Game_Summary":
		c.inSummary = true
		c.summaryLines = c.summaryLines[:0]
		c.special = SpecialMoveNone
	case strings.HasPrefix(line, "START:"):
		states := c.states
		c.deliver(func(h EventHandler) { h.OnStart(c.id, states) })
	case strings.HasPrefix(line, "REJECT:"):
		c.deliver(func(h EventHandler) { h.OnReject(c.id) })
	case strings.HasPrefix(line, "LOGOUT:"):
		c.ackOnce.Do(func() { close(c.loggedOut) })
	case line[0] == '+' || line[0] == '-':
		c.consume(line)
		states := c.states
		c.deliver(func(h EventHandler) { h.OnMove(c.id, line, states) })
	case line == "#CHUDAN":
		c.deliver(func(h EventHandler) { h.OnGameResult(c.id, Chudan, Censored) })
	case line[0] == '#':
		code := strings.TrimLeft(line[1:], "+-")
		switch result := GameResult(code); result {
		case Win, Lose, Draw, Censored:
			special := c.special
			c.special = SpecialMoveNone
			c.deliver(func(h EventHandler) { h.OnGameResult(c.id, special, result) })
		default:
			c.special = SpecialMove(code)
		}
	case line[0] == '%':
		// Echo of a resign/win declaration; the following # lines carry the outcome.
	default:
		c.logger.Debug("csa line ignored", zap.String("line", line))
	}
}

// consume updates the remaining time of the side that moved.
func (c *conn) consume(token string) {
	color := shogi.Black
	if token[0] == '-' {
		color = shogi.White
	}

	state := c.states.Of(color)
	state.Time -= ElapsedTicks(token)
	if state.Time < 0 {
		state.Time = 0
	}
	state.Time += c.summary.Increment

	if color == shogi.Black {
		c.states.Black = state
	} else {
		c.states.White = state
	}
}

func (c *conn) keepalive(setting config.KeepaliveSetting) {
	if setting.Interval <= 0 {
		return
	}

	timer := time.NewTimer(setting.InitialDelayDuration())
	defer timer.Stop()
	select {
	case <-c.done:
		return
	case <-timer.C:
	}

	ticker := time.NewTicker(setting.IntervalDuration())
	defer ticker.Stop()
	for {
		if err := c.send(""); err != nil {
			c.logger.Warn("csa keepalive failed", zap.Error(err))
			return
		}
		select {
		case <-c.done:
			return
		case <-ticker.C:
		}
	}
}
