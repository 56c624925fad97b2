package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/application"
	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/domain/route"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Live channel message types sent by the server.
const (
	MessageResult = "comparison.result"
	MessageError  = "comparison.error"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	readLimit  = 4096
)

// LiveMessage is a server-to-client frame.
type LiveMessage struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// LiveError is the payload of a MessageError frame.
type LiveError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// LiveHandler serves comparisons over a WebSocket. Each connection owns a session,
// so a new request from the client supersedes the one in flight.
type LiveHandler struct {
	service  application.Comparer
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewLiveHandler creates a new LiveHandler.
func NewLiveHandler(service application.Comparer, logger *zap.Logger) *LiveHandler {
	return &LiveHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// RegisterRoutes registers the live comparison route.
func (h *LiveHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/api/v1/comparisons/live", h.Serve)
}

// Serve handles GET /api/v1/comparisons/live.
func (h *LiveHandler) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := &liveClient{
		conn:    conn,
		send:    make(chan LiveMessage, 8),
		session: application.NewSession(h.service),
		logger:  h.logger,
	}

	go client.writePump(ctx)
	client.readPump(ctx)

	cancel()
	client.session.Close()
}

type liveClient struct {
	conn    *websocket.Conn
	send    chan LiveMessage
	session *application.Session
	logger  *zap.Logger
}

func (c *liveClient) readPump(ctx context.Context) {
	defer func() { _ = c.conn.Close() }()

	c.conn.SetReadLimit(readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}

		var req application.CompareRequest
		if err := json.Unmarshal(data, &req); err != nil {
			c.push(ctx, LiveMessage{
				Type:      MessageError,
				Payload:   LiveError{Code: "INVALID_INPUT", Message: route.CauseInvalidInput},
				Timestamp: time.Now().UTC(),
			})
			continue
		}

		go c.compare(ctx, req)
	}
}

func (c *liveClient) compare(ctx context.Context, req application.CompareRequest) {
	result, err := c.session.Compare(ctx, req.Start, req.End)
	if errors.Is(err, route.ErrSuperseded) || ctx.Err() != nil {
		return
	}

	msg := LiveMessage{Timestamp: time.Now().UTC()}
	if err != nil {
		msg.Type = MessageError
		msg.Payload = LiveError{Code: route.Code(err), Message: route.Cause(err)}
	} else {
		msg.Type = MessageResult
		msg.Payload = application.ToComparisonDTO(result)
	}
	c.push(ctx, msg)
}

func (c *liveClient) push(ctx context.Context, msg LiveMessage) {
	select {
	case c.send <- msg:
	case <-ctx.Done():
	}
}

func (c *liveClient) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}
