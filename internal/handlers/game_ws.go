// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/hanabi/internal/middleware"
	"github.com/sirupsen/logrus"
)

// Subprotocol is the websocket subprotocol clients must request.
const Subprotocol = "hanabi"

var (
	ErrUnknownConn = errors.New("unknown connection")
	ErrOutboxFull  = errors.New("connection outbox full")
)

type frame struct {
	data   []byte
	close  bool
	reason string
}

type wsConn struct {
	c      *websocket.Conn
	outbox chan frame
	done   chan struct{}
}

// WSHub is the websocket Transport. Each connection gets a buffered outbox
// drained by its own write pump, so Send and Close never wait on the network
// and frames reach a connection in the order they were queued.
type WSHub struct {
	mu           sync.Mutex
	conns        map[string]*wsConn
	log          logrus.FieldLogger
	outboxSize   int
	writeTimeout time.Duration
}

func NewWSHub(logger logrus.FieldLogger) *WSHub {
	return &WSHub{
		conns:        make(map[string]*wsConn),
		log:          logger,
		outboxSize:   64,
		writeTimeout: 5 * time.Second,
	}
}

// Register starts the write pump for c under connID.
func (h *WSHub) Register(connID string, c *websocket.Conn) {
	wc := &wsConn{
		c:      c,
		outbox: make(chan frame, h.outboxSize),
		done:   make(chan struct{}),
	}
	h.mu.Lock()
	h.conns[connID] = wc
	h.mu.Unlock()
	go h.pump(connID, wc)
}

// Unregister stops the pump. Frames still queued are dropped.
func (h *WSHub) Unregister(connID string) {
	h.mu.Lock()
	wc, ok := h.conns[connID]
	delete(h.conns, connID)
	h.mu.Unlock()
	if ok {
		close(wc.done)
	}
}

// Send queues data for connID. A connection that cannot keep up is closed.
func (h *WSHub) Send(connID string, data []byte) error {
	wc := h.lookup(connID)
	if wc == nil {
		return ErrUnknownConn
	}
	select {
	case wc.outbox <- frame{data: data}:
		return nil
	case <-wc.done:
		return ErrUnknownConn
	default:
		go wc.c.Close(websocket.StatusPolicyViolation, "Client is not reading messages.")
		return ErrOutboxFull
	}
}

// Close queues a close frame behind any pending messages.
func (h *WSHub) Close(connID string, reason string) {
	wc := h.lookup(connID)
	if wc == nil {
		return
	}
	select {
	case wc.outbox <- frame{close: true, reason: reason}:
	case <-wc.done:
	default:
		go wc.c.Close(websocket.StatusNormalClosure, reason)
	}
}

func (h *WSHub) lookup(connID string) *wsConn {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conns[connID]
}

func (h *WSHub) pump(connID string, wc *wsConn) {
	for {
		select {
		case <-wc.done:
			return
		case f := <-wc.outbox:
			if f.close {
				if err := wc.c.Close(websocket.StatusNormalClosure, f.reason); err != nil {
					h.log.WithField("conn", connID).Debugf("Close handshake: %v", err)
				}
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), h.writeTimeout)
			err := wc.c.Write(ctx, websocket.MessageText, f.data)
			cancel()
			if err != nil {
				h.log.WithField("conn", connID).Warnf("Failed to write message: %v", err)
				wc.c.CloseNow()
				return
			}
		}
	}
}

// GameWSHandler upgrades the request, registers the connection with hub and
// table and feeds every text message to the table until the socket closes.
func GameWSHandler(logger logrus.FieldLogger, table *Table, hub *WSHub, originPatterns []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{Subprotocol},
			OriginPatterns: originPatterns,
		})
		if err != nil {
			logger.Warnf("WebSocket accept error: %v", err)
			return
		}
		defer c.CloseNow()

		if c.Subprotocol() != Subprotocol {
			logger.Warnf("Client %s connected with invalid subprotocol %q", r.RemoteAddr, c.Subprotocol())
			c.Close(BadSubprotocolError, "Client must use the 'hanabi' subprotocol.")
			return
		}

		connID := uuid.NewString()
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path, connID)

		hub.Register(connID, c)
		table.Connect(connID)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		err = readMessages(ctx, c, connID, table, logger)

		table.Disconnect(connID)
		hub.Unregister(connID)
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, connID, err)
	}
}

// readMessages blocks until the connection fails or closes. A normal close
// returns nil.
func readMessages(ctx context.Context, c *websocket.Conn, connID string, table *Table, logger logrus.FieldLogger) error {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if msgType != websocket.MessageText {
			logger.WithField("conn", connID).Warnf("Ignoring non-text message type %d.", msgType)
			continue
		}
		table.HandleRequest(connID, data)
	}
}
