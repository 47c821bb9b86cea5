package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"Naqqal/internal/story"

	"github.com/gorilla/websocket"
)

// Frame types on the websocket wire.
const (
	frameMessage      = "message"
	frameEdit         = "edit"
	frameClearChoices = "clear_choices"
)

// inboundFrame is one JSON frame from a connected client.
type inboundFrame struct {
	Type string `json:"type"` // start | cancel | text | choice
	Text string `json:"text,omitempty"`
}

// outboundFrame is one JSON frame to a connected client. The client
// renders choices as buttons and applies "edit" to its last message.
type outboundFrame struct {
	Type    string         `json:"type"`
	Text    string         `json:"text,omitempty"`
	Choices []story.Choice `json:"choices,omitempty"`
}

// wsConn wraps one connection with a write mutex; gorilla connections
// do not tolerate concurrent writers.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// WebSocketGateway serves a chat surface over websockets, one
// connection per user. It is an EditableTarget: edits and choice
// retraction are delivered as frames the client applies in place.
type WebSocketGateway struct {
	handler Handler
	token   string
	logger  *slog.Logger

	upgrader websocket.Upgrader

	mu    sync.RWMutex
	conns map[string]*wsConn
}

// NewWebSocketGateway creates a gateway. Connections must present
// token to be accepted. The event handler is attached with SetHandler
// once the engine is wired, since the engine in turn emits through
// this gateway.
func NewWebSocketGateway(token string, logger *slog.Logger) *WebSocketGateway {
	return &WebSocketGateway{
		token:  token,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		conns: make(map[string]*wsConn),
	}
}

// SetHandler attaches the inbound event handler. Must be called before
// the gateway starts serving.
func (g *WebSocketGateway) SetHandler(h Handler) {
	g.handler = h
}

// ServeHTTP upgrades a connection and pumps its events until it closes.
func (g *WebSocketGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("token") != g.token {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	userID := r.URL.Query().Get("user")
	if userID == "" {
		http.Error(w, "missing user", http.StatusBadRequest)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("websocket upgrade failed", "user", userID, "error", err)
		return
	}

	wc := &wsConn{conn: conn}
	g.mu.Lock()
	g.conns[userID] = wc
	g.mu.Unlock()

	g.logger.Info("websocket client connected", "user", userID)
	g.readLoop(r.Context(), userID, wc)

	g.mu.Lock()
	delete(g.conns, userID)
	g.mu.Unlock()
	conn.Close()
	g.logger.Info("websocket client disconnected", "user", userID)
}

// readLoop dispatches each inbound frame as an event in its own
// goroutine; same-user serialization is the engine's concern.
func (g *WebSocketGateway) readLoop(ctx context.Context, userID string, wc *wsConn) {
	for {
		var frame inboundFrame
		if err := wc.conn.ReadJSON(&frame); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				g.logger.Warn("websocket read failed", "user", userID, "error", err)
			}
			return
		}

		ev := Event{UserID: userID, Text: frame.Text}
		switch frame.Type {
		case "start":
			ev.Kind = EventStart
		case "cancel":
			ev.Kind = EventCancel
		case "choice":
			ev.Kind = EventChoice
		case "text":
			ev.Kind = EventText
		default:
			g.logger.Warn("unknown frame type", "user", userID, "type", frame.Type)
			continue
		}

		go g.handler.HandleEvent(ctx, ev)
	}
}

func (g *WebSocketGateway) connFor(userID string) (*wsConn, error) {
	g.mu.RLock()
	wc, ok := g.conns[userID]
	g.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no connection for user %s", userID)
	}
	return wc, nil
}

// SendText delivers a plain message frame.
func (g *WebSocketGateway) SendText(userID, text string) error {
	wc, err := g.connFor(userID)
	if err != nil {
		return err
	}
	return wc.writeJSON(outboundFrame{Type: frameMessage, Text: text})
}

// SendTextWithChoices delivers a message frame with choice buttons.
func (g *WebSocketGateway) SendTextWithChoices(userID, text string, choices []story.Choice) error {
	wc, err := g.connFor(userID)
	if err != nil {
		return err
	}
	return wc.writeJSON(outboundFrame{Type: frameMessage, Text: text, Choices: choices})
}

// EditLastMessage rewrites the client's last rendered message.
func (g *WebSocketGateway) EditLastMessage(userID, text string) error {
	wc, err := g.connFor(userID)
	if err != nil {
		return err
	}
	return wc.writeJSON(outboundFrame{Type: frameEdit, Text: text})
}

// ClearChoices retracts the choice buttons on the last message.
func (g *WebSocketGateway) ClearChoices(userID string) error {
	wc, err := g.connFor(userID)
	if err != nil {
		return err
	}
	return wc.writeJSON(outboundFrame{Type: frameClearChoices})
}
