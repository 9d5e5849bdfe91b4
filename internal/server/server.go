// Package server exposes the three HTTP routes the notification system
// needs: the private-channel authorization endpoint the mobile client
// calls, the websocket upgrade into the broker, and the backend-facing
// publish endpoint.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/hathynn/warehouse-mobile-sub001/internal/broker"
	"github.com/hathynn/warehouse-mobile-sub001/internal/channel"
	"github.com/hathynn/warehouse-mobile-sub001/internal/grant"
	"github.com/hathynn/warehouse-mobile-sub001/internal/notification"
	"github.com/hathynn/warehouse-mobile-sub001/internal/server/middleware"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Mobile clients connect without an Origin header.
		return true
	},
}

type Server struct {
	engine    *gin.Engine
	hub       *broker.Hub
	jwtSecret string
	log       *slog.Logger
}

// New builds the router. Call Engine() to serve it.
func New(hub *broker.Hub, jwtSecret string, allowedOrigins []string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		engine:    gin.New(),
		hub:       hub,
		jwtSecret: jwtSecret,
		log:       log,
	}
	s.setupRoutes(allowedOrigins)
	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) setupRoutes(allowedOrigins []string) {
	s.engine.Use(gin.Recovery())
	s.engine.Use(middleware.LogAPI())
	s.engine.Use(middleware.CORS(allowedOrigins))

	auth := middleware.NewAuthMiddleware(s.jwtSecret)

	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/ws", s.handleWS)
	s.engine.POST("/broker/auth", auth.RequireAuth(), s.handleChannelAuth)

	v1 := s.engine.Group("/api/v1")
	v1.Use(auth.RequireAuth())
	v1.POST("/events", s.handlePublish)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type channelAuthRequest struct {
	SocketID    string `json:"socket_id" binding:"required"`
	ChannelName string `json:"channel_name" binding:"required"`
}

// handleChannelAuth vouches for the caller on the requested channel. The
// grant is bound to the socket id so it cannot be replayed elsewhere.
func (s *Server) handleChannelAuth(c *gin.Context) {
	var req channelAuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "socket_id and channel_name are required"})
		return
	}

	accountID, role := middleware.Identity(c)
	if !channel.Authorized(role, accountID, req.ChannelName) {
		s.log.Warn("channel auth refused", "accountID", accountID, "role", role, "channel", req.ChannelName)
		c.JSON(http.StatusForbidden, gin.H{"error": "channel not permitted for this account"})
		return
	}

	token, err := grant.Sign(s.jwtSecret, req.SocketID, req.ChannelName, grant.DefaultTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot issue grant"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"auth": token})
}

type publishRequest struct {
	Channel string          `json:"channel" binding:"required"`
	Event   string          `json:"event" binding:"required"`
	Data    json.RawMessage `json:"data"`
}

// handlePublish is the backend-facing ingress. Only the admin role (the
// backend service identity) may publish.
func (s *Server) handlePublish(c *gin.Context) {
	_, role := middleware.Identity(c)
	if role != channel.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "publishing requires the admin role"})
		return
	}

	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "channel and event are required"})
		return
	}
	if notification.IsSystem(req.Event) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "event name uses the reserved system prefix"})
		return
	}

	pub := broker.Publication{Channel: req.Channel, Event: req.Event, Data: req.Data}
	if err := s.hub.Publish(c.Request.Context(), pub); err != nil {
		s.log.Error("publish failed", "channel", req.Channel, "event", req.Event, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "publish failed"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

// handleWS upgrades the connection and hands it to the hub.
func (s *Server) handleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Error("websocket upgrade failed", "error", err)
		return
	}
	client := broker.NewClient(s.hub, conn)
	go client.Serve()
}
