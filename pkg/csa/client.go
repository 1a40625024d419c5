package csa

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/tecu23/csa-client/pkg/config"
)

const (
	defaultLoginTimeout  = 10 * time.Second
	defaultLogoutTimeout = 5 * time.Second
)

var (
	// ErrLoginIncorrect is returned when the server refuses the credentials.
	ErrLoginIncorrect = errors.New("csa login incorrect")
	// ErrUnknownSession is returned for a session ID the client does not hold.
	ErrUnknownSession = errors.New("csa session not found")
)

// EventHandler receives the server push stream of every session
type EventHandler interface {
	OnGameSummary(sessionID int, summary GameSummary)
	OnReject(sessionID int)
	OnStart(sessionID int, states PlayerStates)
	OnMove(sessionID int, token string, states PlayerStates)
	OnGameResult(sessionID int, move SpecialMove, result GameResult)
	OnClose(sessionID int)
}

// Client opens CSA sessions over TCP and hands out non-zero session IDs
type Client struct {
	handler EventHandler
	dial    func(ctx context.Context, network, address string) (net.Conn, error)
	logger  *zap.Logger

	mu       sync.Mutex
	lastID   int
	sessions map[int]*conn

	loginTimeout  time.Duration
	logoutTimeout time.Duration
}

// NewClient creates a client delivering server events to handler.
func NewClient(handler EventHandler, logger *zap.Logger) *Client {
	var d net.Dialer
	return &Client{
		handler:       handler,
		dial:          d.DialContext,
		logger:        logger,
		sessions:      make(map[int]*conn),
		loginTimeout:  defaultLoginTimeout,
		logoutTimeout: defaultLogoutTimeout,
	}
}

// Login connects, authenticates and starts reading the push stream. Server
// events are held until Start is called for the returned session id.
func (c *Client) Login(ctx context.Context, setting config.ServerSetting) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.loginTimeout)
	defer cancel()

	nc, err := c.dial(ctx, "tcp", setting.Address())
	if err != nil {
		return 0, fmt.Errorf("dial %s: %w", setting.Address(), err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = nc.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = nc.SetDeadline(time.Now())
	})
	defer stop()

	reader := bufio.NewReader(nc)
	if _, err := fmt.Fprintf(nc, "LOGIN %s %s\n", setting.ID, setting.Password); err != nil {
		nc.Close()
		return 0, fmt.Errorf("send login: %w", err)
	}
	c.logger.Debug("csa send", zap.String("line", "LOGIN "+setting.ID+" *****"))

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			nc.Close()
			return 0, fmt.Errorf("wait login response: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}
		c.logger.Debug("csa recv", zap.String("line", line))
		if !strings.HasPrefix(line, "LOGIN:") {
			continue
		}
		if line != "LOGIN:"+setting.ID+" OK" {
			nc.Close()
			return 0, fmt.Errorf("%w: %s", ErrLoginIncorrect, line)
		}
		break
	}

	if !stop() {
		nc.Close()
		return 0, ctx.Err()
	}
	_ = nc.SetDeadline(time.Time{})

	c.mu.Lock()
	c.lastID++
	id := c.lastID
	session := newConn(id, nc, reader, c, c.logger.With(zap.Int("session_id", id)))
	c.sessions[id] = session
	c.mu.Unlock()

	go session.readLoop()
	go session.keepalive(setting.Keepalive)

	c.logger.Info("csa login succeeded",
		zap.Int("session_id", id),
		zap.String("address", setting.Address()),
		zap.String("id", setting.ID))
	return id, nil
}

// Start delivers the session's events to the handler, beginning with any
// received since login.
func (c *Client) Start(sessionID int) error {
	session, ok := c.get(sessionID)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownSession, sessionID)
	}
	session.start()
	return nil
}

// Agree accepts the game offered by the last summary.
func (c *Client) Agree(sessionID int, gameID string) error {
	return c.send(sessionID, "AGREE "+gameID)
}

// Move sends a move. With a non-nil score the Floodgate comment carrying the
// score and principal variation is appended.
func (c *Client) Move(sessionID int, token string, score *int, pv string) error {
	line := token
	if score != nil {
		line += fmt.Sprintf(",'* %d", *score)
		if pv != "" {
			line += " " + pv
		}
	}
	return c.send(sessionID, line)
}

// Resign sends %TORYO.
func (c *Client) Resign(sessionID int) error {
	return c.send(sessionID, "%TORYO")
}

// Win declares an entering-king win with %KACHI.
func (c *Client) Win(sessionID int) error {
	return c.send(sessionID, "%KACHI")
}

// Stop asks the server to interrupt the game with %CHUDAN.
func (c *Client) Stop(sessionID int) error {
	return c.send(sessionID, "%CHUDAN")
}

// Logout sends LOGOUT and waits for the acknowledgement before closing.
func (c *Client) Logout(ctx context.Context, sessionID int) error {
	session, ok := c.get(sessionID)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownSession, sessionID)
	}

	ctx, cancel := context.WithTimeout(ctx, c.logoutTimeout)
	defer cancel()

	sendErr := session.send("LOGOUT")
	if sendErr == nil {
		select {
		case <-session.loggedOut:
		case <-session.done:
		case <-ctx.Done():
			sendErr = fmt.Errorf("wait logout: %w", ctx.Err())
		}
	}

	c.remove(sessionID)
	return multierr.Append(sendErr, session.close())
}

// Close drops every open session.
func (c *Client) Close() error {
	c.mu.Lock()
	sessions := make([]*conn, 0, len(c.sessions))
	for _, s := range c.sessions {
		sessions = append(sessions, s)
	}
	c.mu.Unlock()

	var err error
	for _, s := range sessions {
		err = multierr.Append(err, s.close())
	}
	return err
}

func (c *Client) send(sessionID int, line string) error {
	session, ok := c.get(sessionID)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownSession, sessionID)
	}
	return session.send(line)
}

func (c *Client) get(sessionID int) (*conn, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[sessionID]
	return s, ok
}

func (c *Client) remove(sessionID int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, sessionID)
}
