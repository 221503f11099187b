package gateway

import (
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"pulsechat/domain/event"
	"pulsechat/errors"
	"pulsechat/runtime"
	"pulsechat/services"
)

// Inbound event names received over the socket.
const (
	inboundSendMessage = "send_message"
	inboundTyping      = "typing"
	inboundAddContact  = "add_contact"
)

type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type sendMessagePayload struct {
	RecipientID string `json:"recipient_id"`
	Content     string `json:"content"`
	IsGroup     bool   `json:"is_group"`
	Type        string `json:"type"`
}

type typingPayload struct {
	RecipientID string `json:"recipient_id"`
	Char        string `json:"char"`
	IsGroup     bool   `json:"is_group"`
}

type addContactPayload struct {
	ContactUsername string `json:"contact_username"`
}

// WSGateway upgrades authenticated clients and pumps their events through
// the core.
type WSGateway struct {
	log         *slog.Logger
	registry    *runtime.Registry
	router      *runtime.Router
	limiter     *runtime.RateLimiter
	users       services.IUserService
	messages    services.IMessageService
	contacts    services.IContactService
	upgrader    websocket.Upgrader
	bufferSize  int
	sendTimeout time.Duration
}

func NewWSGateway(
	log *slog.Logger,
	registry *runtime.Registry,
	router *runtime.Router,
	limiter *runtime.RateLimiter,
	users services.IUserService,
	messages services.IMessageService,
	contacts services.IContactService,
	bufferSize int,
	sendTimeout time.Duration,
) *WSGateway {
	return &WSGateway{
		log:         log,
		registry:    registry,
		router:      router,
		limiter:     limiter,
		users:       users,
		messages:    messages,
		contacts:    contacts,
		upgrader:    websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		bufferSize:  bufferSize,
		sendTimeout: sendTimeout,
	}
}

// Handle is the websocket handshake endpoint. Auth failures refuse the
// connection before it is ever registered.
func (g *WSGateway) Handle(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionID")
	token := r.URL.Query().Get("token")

	user, err := g.users.GetBySession(sessionID)
	if err != nil {
		g.log.Info("Rejecting connection: unknown session", "session", sessionID)
		http.Error(w, "invalid session", http.StatusUnauthorized)
		return
	}
	if !g.limiter.Allow("connect", user.ID) {
		http.Error(w, "too many connection attempts", http.StatusTooManyRequests)
		return
	}

	socket, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warn("Upgrade failed", "error", err)
		return
	}

	conn := newWSConn(socket, g.bufferSize, g.sendTimeout)
	rooms, err := g.registry.Connect(user.ID, sessionID, token, conn)
	if err != nil {
		g.log.Info("Rejecting connection: bad token", "user", user.ID)
		_ = conn.Close()
		return
	}
	g.log.Info("Connection accepted", "user", user.Username, "rooms", len(rooms))

	if err := g.users.SetOnline(user.ID, true); err != nil {
		g.log.Warn("Failed to persist online flag", "user", user.ID, "error", err)
	}
	g.notifyPresence(user.ID, user.Username, "online")

	defer func() {
		_ = conn.Close()
		identity, offline := g.registry.Disconnect(conn.ID())
		if offline && identity != "" {
			if err := g.users.SetOnline(identity, false); err != nil {
				g.log.Warn("Failed to persist offline flag", "user", identity, "error", err)
			}
			g.notifyPresence(user.ID, user.Username, "offline")
		}
	}()

	g.readLoop(r, conn, user.ID, user.Username)
}

func (g *WSGateway) readLoop(r *http.Request, conn *wsConn, userID, username string) {
	for {
		var env inboundFrame
		if err := conn.socket.ReadJSON(&env); err != nil {
			return
		}
		g.registry.Touch(conn.ID())

		switch env.Event {
		case inboundSendMessage:
			g.handleSendMessage(r, conn, userID, username, env.Data)
		case inboundTyping:
			g.handleTyping(conn, userID, username, env.Data)
		case inboundAddContact:
			g.handleAddContact(conn, userID, username, env.Data)
		default:
			g.sendError(conn, "unknown event")
		}
	}
}

func (g *WSGateway) handleSendMessage(r *http.Request, conn *wsConn, userID, username string, data json.RawMessage) {
	var payload sendMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		g.sendError(conn, "malformed send_message payload")
		return
	}
	if !g.limiter.Allow("send_message", userID) {
		g.sendError(conn, "sending too fast")
		return
	}

	// The message must be durable before anyone sees it live.
	msg, err := g.messages.Send(r.Context(), userID, payload.RecipientID, payload.Content, payload.Type, payload.IsGroup)
	if err != nil {
		g.sendError(conn, errorMessage(err))
		return
	}

	evt := event.NewMessage{
		MessageID:      msg.ID.String(),
		SenderID:       userID,
		SenderUsername: username,
		Content:        msg.Content,
		Type:           string(msg.Type),
		Timestamp:      msg.SentAt.Format(time.RFC3339),
		IsGroup:        msg.IsGroup,
		RecipientID:    msg.RecipientID,
	}
	if err := g.router.Deliver(evt, userID, msg.RecipientID, msg.IsGroup); err != nil {
		g.log.Warn("Fanout failed", "message_id", msg.ID, "error", err)
	}
}

func (g *WSGateway) handleTyping(conn *wsConn, userID, username string, data json.RawMessage) {
	var payload typingPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return
	}
	evt := event.TypingIndicator{
		UserID:    userID,
		Username:  username,
		IsTyping:  payload.Char != "",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	err := g.router.DeliverTransient("typing", evt, userID, payload.RecipientID, payload.IsGroup)
	if err != nil && !stderrors.Is(err, errors.ErrRateLimited) {
		// Rate-limited typing events are dropped silently.
		g.log.Debug("Typing fanout failed", "user", userID, "error", err)
	}
}

func (g *WSGateway) handleAddContact(conn *wsConn, userID, username string, data json.RawMessage) {
	var payload addContactPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		g.sendError(conn, "malformed add_contact payload")
		return
	}
	if !g.limiter.Allow("add_contact", userID) {
		g.sendError(conn, "too many contact requests")
		return
	}

	view, suggestions, err := g.contacts.AddContactByName(userID, payload.ContactUsername)
	if stderrors.Is(err, errors.ErrNotFound) {
		msg := "user not found"
		if len(suggestions) > 0 {
			msg = "user not found, did you mean: " + strings.Join(suggestions, ", ")
		}
		g.sendError(conn, msg)
		return
	}
	if err != nil {
		g.sendError(conn, errorMessage(err))
		return
	}

	if err := conn.Send(event.ContactAdded{
		UserID:   view.ContactID,
		Username: view.Name,
		Status:   string(view.Status),
	}); err != nil {
		g.log.Debug("Contact ack lost", "user", userID, "error", err)
	}
	g.router.NotifyDirect(view.ContactID, event.ContactRequest{
		UserID:   userID,
		Username: username,
	})
}

// notifyPresence tells every FRIEND peer about a status change.
func (g *WSGateway) notifyPresence(userID, username, status string) {
	peers, err := g.contacts.FriendPeers(userID)
	if err != nil {
		g.log.Warn("Presence notification failed", "user", userID, "error", err)
		return
	}
	evt := event.UserStatus{UserID: userID, Username: username, Status: status}
	for _, peer := range peers {
		g.router.NotifyDirect(peer, evt)
	}
}

func (g *WSGateway) sendError(conn *wsConn, message string) {
	if err := conn.Send(event.Error{Message: message}); err != nil {
		g.log.Debug("Error frame lost", "conn", conn.ID(), "error", err)
	}
}
