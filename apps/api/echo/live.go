package echoapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/educryption/core"
	"github.com/trezcool/educryption/core/content"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16

	liveEventCreated = "comment.created"
	liveEventUpdated = "comment.updated"
	liveEventDeleted = "comment.deleted"
)

// newUpgrader accepts handshakes without an Origin header, or from an allowed CORS origin.
func newUpgrader(allowOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range allowOrigins {
				if allowed == "*" || strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

type (
	liveEvent struct {
		Type string      `json:"type"`
		Data interface{} `json:"data"`
	}

	liveMessage struct {
		contentID string
		payload   []byte
	}

	liveClient struct {
		hub       *commentHub
		conn      *websocket.Conn
		contentID string
		send      chan []byte
	}

	// commentHub fans out comment events to the clients watching a content.
	commentHub struct {
		rooms      map[string]map[*liveClient]struct{} // {contentID: clients}
		register   chan *liveClient
		unregister chan *liveClient
		broadcast  chan liveMessage
		quit       chan struct{}
		done       chan struct{}
		stopOnce   sync.Once
		logger     core.Logger
	}
)

func newCommentHub(logger core.Logger) *commentHub {
	return &commentHub{
		rooms:      make(map[string]map[*liveClient]struct{}),
		register:   make(chan *liveClient),
		unregister: make(chan *liveClient),
		broadcast:  make(chan liveMessage, 64),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

func (h *commentHub) run() {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			room, ok := h.rooms[client.contentID]
			if !ok {
				room = make(map[*liveClient]struct{})
				h.rooms[client.contentID] = room
			}
			room[client] = struct{}{}
		case client := <-h.unregister:
			h.remove(client)
		case msg := <-h.broadcast:
			for client := range h.rooms[msg.contentID] {
				select {
				case client.send <- msg.payload:
				default: // too slow
					h.remove(client)
				}
			}
		case <-h.quit:
			for _, room := range h.rooms {
				for client := range room {
					close(client.send)
				}
			}
			h.rooms = nil
			return
		}
	}
}

func (h *commentHub) remove(client *liveClient) {
	room := h.rooms[client.contentID]
	if _, ok := room[client]; !ok {
		return
	}
	delete(room, client)
	close(client.send)
	if len(room) == 0 {
		delete(h.rooms, client.contentID)
	}
}

// publish sends an event to the clients of contentID; it never blocks the caller for long.
func (h *commentHub) publish(contentID, eventType string, data interface{}) {
	payload, err := json.Marshal(liveEvent{Type: eventType, Data: data})
	if err != nil {
		h.logger.Error("marshalling live event", errors.Wrap(err, eventType))
		return
	}
	select {
	case h.broadcast <- liveMessage{contentID: contentID, payload: payload}:
	case <-h.quit:
	case <-time.After(writeWait):
		h.logger.Warn("live event dropped", map[string]interface{}{"type": eventType, "content": contentID})
	}
}

func (h *commentHub) join(client *liveClient) bool {
	select {
	case h.register <- client:
		return true
	case <-h.quit:
		return false
	}
}

func (h *commentHub) leave(client *liveClient) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// stop disconnects every client; safe to call more than once.
func (h *commentHub) stop() {
	h.stopOnce.Do(func() { close(h.quit) })
	<-h.done
}

// readPump only handles control frames; clients do not send events.
func (c *liveClient) readPump() {
	defer func() {
		c.hub.leave(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("live connection closed", err)
			}
			return
		}
	}
}

func (c *liveClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

type liveApi struct {
	svc      *content.Service
	hub      *commentHub
	upgrader websocket.Upgrader
}

func registerLiveAPI(g *echo.Group, conf *core.Config, svc *content.Service, hub *commentHub) {
	api := liveApi{svc: svc, hub: hub, upgrader: newUpgrader(conf.Server.CORSAllowOrigins)}
	// browsers cannot set headers on websockets: the token comes in `?token=`
	g.GET("/contents/:id/comments/live", api.comments, queryJWTMiddleware(conf))
}

// comments streams the comment events of a content.
func (api *liveApi) comments(ctx echo.Context) error {
	c, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding content by ID")
	}

	conn, err := api.upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		// the upgrader already replied
		ctx.Logger().Warnf("websocket upgrade: %v", err)
		return nil
	}

	client := &liveClient{hub: api.hub, conn: conn, contentID: c.ID, send: make(chan []byte, sendBuffer)}
	if !api.hub.join(client) {
		_ = conn.Close()
		return nil
	}
	go client.writePump()
	go client.readPump()
	return nil
}
