// Package socket serves the authenticated realtime websocket. Each connection
// joins its user's hub room; inbound frames drive the friendship, messaging and
// notification services.
package socket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"socialcal/backend/internal/auth"
	"socialcal/backend/internal/friendship"
	"socialcal/backend/internal/hub"
	"socialcal/backend/internal/metrics"
	"socialcal/backend/internal/models"
	"socialcal/backend/pkg/jwt"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Close codes sent before the connection joins a room.
const (
	CloseInvalidToken websocket.StatusCode = 4001
	CloseUnknownUser  websocket.StatusCode = 4002
)

// Outbound event types written directly by the socket layer.
const (
	EventPresence = "presence"
	EventError    = "error"
	EventPong     = "pong"
)

const (
	readLimit    = 64 << 10
	writeTimeout = 5 * time.Second
	pingInterval = 30 * time.Second
)

// Frame is an inbound client message.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Presence is the payload of a presence event.
type Presence struct {
	UserID uint `json:"userId"`
	Online bool `json:"online"`
}

type FriendshipService interface {
	Apply(ctx context.Context, action friendship.Action, actor, other uint) (friendship.Update, error)
	FriendIDs(ctx context.Context, userID uint) ([]uint, error)
}

type MessageSender interface {
	Send(ctx context.Context, sender, receiver uint, content string) (models.Message, error)
}

type NotificationReader interface {
	MarkRead(ctx context.Context, userID, id uint) error
}

type Handler struct {
	hub           *hub.Hub
	db            *gorm.DB
	friends       FriendshipService
	messages      MessageSender
	notifications NotificationReader
	secret        string
	origins       []string
	log           *logrus.Logger
}

// NewHandler builds the socket handler and registers presence announcements on
// the hub. frontendURL restricts the accepted Origin; empty allows any.
func NewHandler(h *hub.Hub, db *gorm.DB, friends FriendshipService, messages MessageSender, notifications NotificationReader, secret, frontendURL string, log *logrus.Logger) *Handler {
	handler := &Handler{
		hub:           h,
		db:            db,
		friends:       friends,
		messages:      messages,
		notifications: notifications,
		secret:        secret,
		origins:       originPatterns(frontendURL),
		log:           log,
	}
	h.OnPresence(handler.announcePresence)
	return handler
}

func originPatterns(frontendURL string) []string {
	if frontendURL == "" {
		return []string{"*"}
	}
	u, err := url.Parse(frontendURL)
	if err != nil || u.Host == "" {
		return []string{"*"}
	}
	return []string{u.Host}
}

// ServeWS godoc
// @Summary      Realtime socket
// @Description  Upgrades to a websocket. Authenticate with the token query parameter or a bearer header.
// @Tags         realtime
// @Param        token  query  string  false  "JWT"
// @Success      101
// @Router       /ws [get]
func (h *Handler) ServeWS(c *gin.Context) {
	r := c.Request
	// gin's writer breaks the hijacked stream; accept on the underlying one.
	w := http.ResponseWriter(c.Writer)
	if u, ok := c.Writer.(interface{ Unwrap() http.ResponseWriter }); ok {
		w = u.Unwrap()
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.origins})
	if err != nil {
		h.log.WithError(err).Warn("websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "handler finished")
	conn.SetReadLimit(readLimit)

	token := c.Query("token")
	if token == "" {
		token = auth.BearerToken(c.GetHeader("Authorization"))
	}
	userID, err := jwt.Parse(h.secret, token)
	if err != nil {
		conn.Close(CloseInvalidToken, "invalid token")
		return
	}

	var user models.User
	if err := h.db.WithContext(r.Context()).Select("id").First(&user, userID).Error; err != nil {
		conn.Close(CloseUnknownUser, "unknown user")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	client := h.hub.Subscribe(userID)
	metrics.SocketConnected()
	log := h.log.WithFields(logrus.Fields{"user": userID, "remote": r.RemoteAddr})
	log.Info("socket connected")

	h.sendOnlineFriends(ctx, userID, client)

	go h.writePump(ctx, conn, client, log)
	h.readPump(ctx, conn, userID, client, log)

	cancel()
	h.hub.Unsubscribe(userID, client)
	metrics.SocketDisconnected()
	log.Info("socket disconnected")
	conn.Close(websocket.StatusNormalClosure, "")
}

func (h *Handler) readPump(ctx context.Context, conn *websocket.Conn, userID uint, client hub.Client, log *logrus.Entry) {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && !errors.Is(err, context.Canceled) {
				log.WithError(err).Debug("socket read ended")
			}
			return
		}
		if typ != websocket.MessageText {
			reply(client, errorEvent("", "binary frames are not supported"))
			continue
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			reply(client, errorEvent("", "invalid JSON frame"))
			continue
		}
		if ev, ok := h.handleFrame(ctx, userID, frame); ok {
			reply(client, ev)
		}
	}
}

// writePump drains the client channel until the hub closes it or ctx ends.
func (h *Handler) writePump(ctx context.Context, conn *websocket.Conn, client hub.Client, log *logrus.Entry) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-client:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				log.WithError(err).Debug("socket write failed")
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 3*writeTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				log.WithError(err).Debug("socket ping failed")
				return
			}
		}
	}
}

// reply queues an event on one client without blocking.
func reply(client hub.Client, ev hub.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	select {
	case client <- data:
	default:
	}
}

func errorEvent(frameType, message string) hub.Event {
	return hub.Event{Type: EventError, Payload: gin.H{"type": frameType, "error": message}}
}

func (h *Handler) announcePresence(userID uint, online bool) {
	ids, err := h.friends.FriendIDs(context.Background(), userID)
	if err != nil {
		h.log.WithError(err).WithField("user", userID).Warn("failed to load friends for presence")
		return
	}
	// Friends on other processes are reached through the hub bridge.
	ev := hub.Event{Type: EventPresence, Payload: Presence{UserID: userID, Online: online}}
	for _, id := range ids {
		h.hub.SendToUser(id, ev)
	}
}

// sendOnlineFriends snapshots the friends connected to this process. Friends on
// other processes show up with their next presence change.
func (h *Handler) sendOnlineFriends(ctx context.Context, userID uint, client hub.Client) {
	ids, err := h.friends.FriendIDs(ctx, userID)
	if err != nil {
		h.log.WithError(err).WithField("user", userID).Warn("failed to load friends for presence")
		return
	}
	for _, id := range ids {
		if h.hub.IsOnline(id) {
			reply(client, hub.Event{Type: EventPresence, Payload: Presence{UserID: id, Online: true}})
		}
	}
}
