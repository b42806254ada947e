package api

import (
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"
	"github.com/memevote/backend/events"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	wsWriteWait    = 10 * time.Second
	wsPongWait     = 60 * time.Second
	wsPingPeriod   = wsPongWait * 9 / 10
	wsMaxFrameSize = 4096
)

// Frame types sent in reply to client actions.
const (
	frameSubscribed   = "SUBSCRIBED"
	frameUnsubscribed = "UNSUBSCRIBED"
	frameError        = "ERROR"
)

// ClientFrame is what clients send: {"action":"subscribe","topic":"/topic/memes"}.
type ClientFrame struct {
	Action string `json:"action"`
	Topic  string `json:"topic"`
}

type controlFrame struct {
	Type  string `json:"type"`
	Topic string `json:"topic,omitempty"`
	Error string `json:"error,omitempty"`
}

type wsHandler struct {
	responder Responder
	logger    zerolog.Logger
	hub       *events.Hub
	upgrader  websocket.Upgrader
}

func newWsHandler(hub *events.Hub, acceptedOrigins []string) wsHandler {
	logger := log.With().Str("handlerName", "wsHandler").Logger()

	return wsHandler{
		responder: NewResponder(logger),
		logger:    logger,
		hub:       hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(acceptedOrigins),
		},
	}
}

func originChecker(acceptedOrigins []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(acceptedOrigins) == 0 {
			return true
		}
		return slices.Contains(acceptedOrigins, "*") || slices.Contains(acceptedOrigins, origin)
	}
}

// connect upgrades to a WebSocket carrying topic subscriptions
// @Summary Live updates
// @Description Send {"action":"subscribe"|"unsubscribe","topic":...}; receive {"topic","type","payload"}.
// @Tags Events
// @Router /ws [get]
func (h wsHandler) connect() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			// the upgrader has already replied
			h.logger.Debug().Err(err).Msg("websocket upgrade failed")
			return
		}

		c := &wsConn{
			conn:       conn,
			sub:        h.hub.NewSubscription(events.DefaultBufferSize),
			replies:    make(chan controlFrame, 8),
			writerDone: make(chan struct{}),
			logger:     h.logger.With().Str("remote_addr", r.RemoteAddr).Logger(),
		}
		go c.writeLoop()
		c.readLoop()
	}
}

type wsConn struct {
	conn       *websocket.Conn
	sub        *events.Subscription
	replies    chan controlFrame
	writerDone chan struct{}
	logger     zerolog.Logger
}

func (c *wsConn) readLoop() {
	defer func() {
		c.sub.Close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(wsMaxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		var frame ClientFrame
		if err := c.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug().Err(err).Msg("websocket closed")
			}
			return
		}
		if !c.reply(c.handle(frame)) {
			return
		}
	}
}

func (c *wsConn) handle(frame ClientFrame) controlFrame {
	if frame.Action != "subscribe" && frame.Action != "unsubscribe" {
		return controlFrame{Type: frameError, Topic: frame.Topic, Error: "unknown action"}
	}
	if !events.ValidTopic(frame.Topic) {
		return controlFrame{Type: frameError, Topic: frame.Topic, Error: "unknown topic"}
	}

	if frame.Action == "subscribe" {
		c.sub.Subscribe(frame.Topic)
		return controlFrame{Type: frameSubscribed, Topic: frame.Topic}
	}
	c.sub.Unsubscribe(frame.Topic)
	return controlFrame{Type: frameUnsubscribed, Topic: frame.Topic}
}

func (c *wsConn) reply(frame controlFrame) bool {
	select {
	case c.replies <- frame:
		return true
	case <-c.writerDone:
		return false
	}
}

// writeLoop is the only writer on the connection.
func (c *wsConn) writeLoop() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		close(c.writerDone)
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.sub.Messages():
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Debug().Err(err).Str("topic", msg.Topic).Msg("dropping websocket connection")
				return
			}
		case frame := <-c.replies:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteJSON(frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
