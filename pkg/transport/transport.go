// Package transport implements the websocket duplex connection carrying
// the wire protocol between the SDK and a commy server: a writer goroutine
// draining an outbound queue, a reader goroutine decoding inbound frames,
// and transport-level ping/pong keep-alive independent of the façade's own
// application-level Heartbeat message.
package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ciresnave/commy-go/internal/logger"
	"github.com/ciresnave/commy-go/pkg/commyerr"
	"github.com/ciresnave/commy-go/pkg/wire"
)

const (
	// writeTimeout bounds how long a single websocket write may block.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong before the read loop gives up
	// on the connection.
	pongWait = 60 * time.Second

	// pingInterval must stay below pongWait to keep the server's deadline
	// from expiring while the link is otherwise idle.
	pingInterval = 30 * time.Second

	// outboundQueueSize bounds how many unsent ClientMessages may queue up
	// before Send blocks.
	outboundQueueSize = 256

	// inboundQueueSize bounds how many decoded ServerMessages may queue up
	// before the reader goroutine blocks on delivery.
	inboundQueueSize = 256
)

// Conn is one websocket connection to a commy server.
type Conn struct {
	conn *websocket.Conn

	outbound chan wire.ClientMessage
	inbound  chan wire.ServerMessage
	errs     chan error

	closeOnce sync.Once
	closed    chan struct{}
}

// Dial establishes a websocket connection to url and starts its reader and
// writer goroutines. The returned Conn is live until Close is called or
// the connection drops.
func Dial(ctx context.Context, url string) (*Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 15 * time.Second,
	}

	ws, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, commyerr.NewTransportError(fmt.Errorf("websocket dial failed: %w", err))
	}

	c := &Conn{
		conn:     ws,
		outbound: make(chan wire.ClientMessage, outboundQueueSize),
		inbound:  make(chan wire.ServerMessage, inboundQueueSize),
		errs:     make(chan error, 1),
		closed:   make(chan struct{}),
	}

	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.writePump()
	go c.readPump()
	go c.pingLoop()

	return c, nil
}

// Send enqueues a ClientMessage for transmission. It does not block on the
// network; it blocks only if the outbound queue is full.
func (c *Conn) Send(msg wire.ClientMessage) error {
	select {
	case c.outbound <- msg:
		return nil
	case <-c.closed:
		return commyerr.NewConnectionLost(fmt.Errorf("connection closed"))
	}
}

// Messages returns the channel decoded ServerMessages are delivered on.
func (c *Conn) Messages() <-chan wire.ServerMessage { return c.inbound }

// Errors returns the channel terminal transport errors are delivered on.
// A single error is sent when the reader or writer pump exits abnormally.
func (c *Conn) Errors() <-chan error { return c.errs }

// Close closes the underlying websocket and stops both pumps.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeTimeout),
		)
		err = c.conn.Close()
	})
	return err
}

func (c *Conn) writePump() {
	for {
		select {
		case <-c.closed:
			return
		case msg := <-c.outbound:
			data, err := wire.MarshalClientMessage(msg)
			if err != nil {
				logger.Error("failed to marshal client message", logger.KeyError, err)
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.fail(commyerr.NewTransportError(err))
				return
			}
		}
	}
}

func (c *Conn) readPump() {
	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			c.fail(commyerr.NewConnectionLost(err))
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		msg, err := wire.UnmarshalServerMessage(data)
		if err != nil {
			// A single malformed frame is logged and dropped rather than
			// tearing down the connection over it.
			logger.Warn("dropping malformed server message",
				logger.KeyError, err,
			)
			continue
		}

		select {
		case c.inbound <- msg:
		case <-c.closed:
			return
		}
	}
}

func (c *Conn) pingLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.closed:
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.fail(commyerr.NewTransportError(err))
				return
			}
		}
	}
}

// fail records a terminal transport error and closes the connection. Only
// the first failure is reported; later calls are no-ops since Close has
// already fired.
func (c *Conn) fail(err error) {
	select {
	case c.errs <- err:
	default:
	}
	c.Close()
}
