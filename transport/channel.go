// Package transport wraps one persistent bidirectional WebSocket
// connection per role. Two channel instances exist per process pair: one
// for the customer credential, one for the admin credential; they are
// independent connections with no cross-channel ordering guarantee.
package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"support-chat/domain"
	apperrors "support-chat/errors"
)

type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Channel manages the connection lifecycle and frame traffic for one role.
// Sends while not Connected are rejected locally, never queued; the caller
// surfaces the failure to the user.
type Channel struct {
	url   string
	role  domain.Role
	token string
	log   *slog.Logger

	dispatcher *Dispatcher
	state      atomic.Int32

	mu   sync.Mutex // guards conn and writes
	conn *websocket.Conn
}

func NewChannel(url, token string, role domain.Role, log *slog.Logger) *Channel {
	return &Channel{
		url:        url,
		role:       role,
		token:      token,
		log:        log,
		dispatcher: NewDispatcher(),
	}
}

func (c *Channel) State() State {
	return State(c.state.Load())
}

func (c *Channel) IsConnected() bool {
	return c.State() == Connected
}

// Dispatcher exposes the inbound listener registry of this channel.
func (c *Channel) Dispatcher() *Dispatcher {
	return c.dispatcher
}

// Connect dials the server and starts the single reader goroutine.
// Already-connected channels are left untouched, so widget-visibility
// driven callers may call it on every open.
func (c *Channel) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.State() == Connected {
		return nil
	}
	c.state.Store(int32(Connecting))

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.token)
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, c.url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		c.state.Store(int32(Disconnected))
		return fmt.Errorf("dial %s channel: %w", c.role, err)
	}

	c.conn = conn
	c.state.Store(int32(Connected))
	c.log.Info("channel connected", "role", c.role)

	go c.readLoop(conn)
	return nil
}

// Disconnect closes the connection. Subscriptions survive a disconnect so
// a later Connect resumes delivery to the same listeners.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.state.Store(int32(Disconnected))
}

// Send transmits one frame. Callers must treat Connecting and Disconnected
// as send-disabled states; this rejects instead of queueing.
func (c *Channel) Send(f Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.State() != Connected || c.conn == nil {
		return fmt.Errorf("%w (%s channel is %s)", apperrors.ErrNotConnected, c.role, c.State())
	}
	if err := c.conn.WriteJSON(f); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrSendRejected, err)
	}
	return nil
}

// readLoop delivers inbound frames to the dispatcher in the order the
// connection received them. It owns the connection's read side until the
// connection dies.
func (c *Channel) readLoop(conn *websocket.Conn) {
	for {
		var frame Frame
		if err := conn.ReadJSON(&frame); err != nil {
			c.mu.Lock()
			if c.conn == conn {
				c.conn = nil
				c.state.Store(int32(Disconnected))
			}
			c.mu.Unlock()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Warn("channel read failed", "role", c.role, "error", err)
			}
			return
		}
		c.dispatcher.Dispatch(frame)
	}
}
