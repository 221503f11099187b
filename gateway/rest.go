package gateway

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"pulsechat/auth"
	"pulsechat/errors"
	"pulsechat/services"
)

type ctxKey string

const ctxUserID ctxKey = "userID"

// RESTGateway exposes the HTTP API. Everything under /api except register
// and login requires a bearer JWT.
type RESTGateway struct {
	log         *slog.Logger
	users       services.IUserService
	contacts    services.IContactService
	messages    services.IMessageService
	groups      services.IGroupService
	searchLimit int
}

func NewRESTGateway(
	log *slog.Logger,
	users services.IUserService,
	contacts services.IContactService,
	messages services.IMessageService,
	groups services.IGroupService,
	searchLimit int,
) *RESTGateway {
	return &RESTGateway{
		log:         log,
		users:       users,
		contacts:    contacts,
		messages:    messages,
		groups:      groups,
		searchLimit: searchLimit,
	}
}

// Mount attaches all routes, including the websocket handshake, to a router.
func (g *RESTGateway) Mount(r chi.Router, ws *WSGateway) {
	r.Post("/api/register", g.handleRegister)
	r.Post("/api/login", g.handleLogin)
	r.Get("/ws", ws.Handle)

	r.Group(func(r chi.Router) {
		r.Use(g.requireAuth)
		r.Post("/api/logout", g.handleLogout)
		r.Get("/api/contacts", g.handleListContacts)
		r.Post("/api/contacts", g.handleAddContact)
		r.Put("/api/contacts/{contactID}/status", g.handleChangeStatus)
		r.Get("/api/messages/search", g.handleSearch)
		r.Get("/api/messages/{peerID}", g.handleHistory)
		r.Delete("/api/messages/{messageID}", g.handleDeleteMessage)
		r.Post("/api/groups", g.handleCreateGroup)
		r.Post("/api/groups/{groupID}/members", g.handleAddGroupMember)
	})
}

func (g *RESTGateway) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := auth.ValidateToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		ctx := context.WithValue(r.Context(), ctxUserID, claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userIDFrom(r *http.Request) string {
	id, _ := r.Context().Value(ctxUserID).(string)
	return id
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
	SessionID    string `json:"session_id"`
	SessionToken string `json:"session_token"`
	Token        string `json:"token"`
}

func (g *RESTGateway) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}
	result, err := g.users.Register(req.Username, req.Password)
	if err != nil {
		g.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLoginResponse(result))
}

func (g *RESTGateway) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}
	result, err := g.users.Login(req.Username, req.Password)
	if err != nil {
		g.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLoginResponse(result))
}

func toLoginResponse(result services.LoginResult) loginResponse {
	return loginResponse{
		UserID:       result.UserID,
		Username:     result.Username,
		SessionID:    result.SessionID,
		SessionToken: result.SessionToken,
		Token:        result.JWT,
	}
}

type logoutRequest struct {
	SessionID string `json:"session_id"`
}

func (g *RESTGateway) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}
	if err := g.users.Logout(req.SessionID); err != nil {
		g.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type contactResponse struct {
	ContactID      string `json:"contact_id"`
	Name           string `json:"name"`
	ProfilePicture string `json:"profile_picture"`
	Status         string `json:"status"`
	Streak         uint32 `json:"streak"`
	IsGroup        bool   `json:"is_group"`
}

func (g *RESTGateway) handleListContacts(w http.ResponseWriter, r *http.Request) {
	views, err := g.contacts.ListContacts(userIDFrom(r), time.Now().UTC())
	if err != nil {
		g.writeServiceError(w, err)
		return
	}
	out := make([]contactResponse, 0, len(views))
	for _, v := range views {
		out = append(out, contactResponse{
			ContactID:      v.ContactID,
			Name:           v.Name,
			ProfilePicture: v.ProfilePicture,
			Status:         string(v.Status),
			Streak:         v.Streak,
			IsGroup:        v.IsGroup,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type addContactRequest struct {
	ContactUsername string `json:"contact_username"`
}

type addContactResponse struct {
	Contact     contactResponse `json:"contact"`
	Suggestions []string        `json:"suggestions,omitempty"`
}

func (g *RESTGateway) handleAddContact(w http.ResponseWriter, r *http.Request) {
	var req addContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}
	view, suggestions, err := g.contacts.AddContactByName(userIDFrom(r), req.ContactUsername)
	if stderrors.Is(err, errors.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, addContactResponse{Suggestions: suggestions})
		return
	}
	if err != nil {
		g.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, addContactResponse{Contact: contactResponse{
		ContactID:      view.ContactID,
		Name:           view.Name,
		ProfilePicture: view.ProfilePicture,
		Status:         string(view.Status),
		Streak:         view.Streak,
		IsGroup:        view.IsGroup,
	}})
}

type changeStatusRequest struct {
	Request string `json:"request"`
}

type changeStatusResponse struct {
	Status string `json:"status"`
}

func (g *RESTGateway) handleChangeStatus(w http.ResponseWriter, r *http.Request) {
	var req changeStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}
	status, err := g.contacts.ChangeStatus(userIDFrom(r), chi.URLParam(r, "contactID"), req.Request)
	if err != nil {
		g.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, changeStatusResponse{Status: string(status)})
}

type messageResponse struct {
	MessageID   string `json:"message_id"`
	SenderID    string `json:"sender_id"`
	RecipientID string `json:"recipient_id"`
	Content     string `json:"content"`
	Type        string `json:"type"`
	Timestamp   string `json:"timestamp"`
	IsGroup     bool   `json:"is_group"`
}

type historyResponse struct {
	Messages   []messageResponse `json:"messages"`
	NextCursor *string           `json:"next_cursor,omitempty"`
}

func (g *RESTGateway) handleHistory(w http.ResponseWriter, r *http.Request) {
	peerID := chi.URLParam(r, "peerID")
	isGroup := r.URL.Query().Get("is_group") == "true"
	var cursor *string
	if raw := r.URL.Query().Get("cursor"); raw != "" {
		cursor = &raw
	}
	messages, next, err := g.messages.History(userIDFrom(r), peerID, isGroup, cursor)
	if err != nil {
		g.writeServiceError(w, err)
		return
	}
	out := historyResponse{Messages: make([]messageResponse, 0, len(messages)), NextCursor: next}
	for _, m := range messages {
		out.Messages = append(out.Messages, messageResponse{
			MessageID:   m.ID.String(),
			SenderID:    m.SenderID,
			RecipientID: m.RecipientID,
			Content:     m.Content,
			Type:        string(m.Type),
			Timestamp:   m.SentAt.Format(time.RFC3339),
			IsGroup:     m.IsGroup,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (g *RESTGateway) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	messageID, err := uuid.Parse(chi.URLParam(r, "messageID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid message id")
		return
	}
	if err := g.messages.Delete(userIDFrom(r), messageID); err != nil {
		g.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (g *RESTGateway) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing query")
		return
	}
	messages, err := g.messages.Search(r.Context(), userIDFrom(r), query, g.searchLimit)
	if err != nil {
		g.writeServiceError(w, err)
		return
	}
	out := make([]messageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, messageResponse{
			MessageID:   m.ID.String(),
			SenderID:    m.SenderID,
			RecipientID: m.RecipientID,
			Content:     m.Content,
			Type:        string(m.Type),
			Timestamp:   m.SentAt.Format(time.RFC3339),
			IsGroup:     m.IsGroup,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type createGroupRequest struct {
	Name string `json:"name"`
}

type groupResponse struct {
	GroupID string `json:"group_id"`
	Name    string `json:"name"`
	OwnerID string `json:"owner_id"`
}

func (g *RESTGateway) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}
	group, err := g.groups.CreateGroup(userIDFrom(r), req.Name)
	if err != nil {
		g.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, groupResponse{GroupID: group.ID, Name: group.Name, OwnerID: group.OwnerID})
}

type addGroupMemberRequest struct {
	UserID string `json:"user_id"`
}

func (g *RESTGateway) handleAddGroupMember(w http.ResponseWriter, r *http.Request) {
	var req addGroupMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}
	if err := g.groups.AddMember(userIDFrom(r), chi.URLParam(r, "groupID"), req.UserID); err != nil {
		g.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (g *RESTGateway) writeServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		g.log.Error("Request failed", "error", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, errorMessage(err))
}

// statusFor maps the sentinel error families to HTTP statuses.
func statusFor(err error) int {
	switch {
	case stderrors.Is(err, errors.ErrValidation):
		return http.StatusBadRequest
	case stderrors.Is(err, errors.ErrUnauthenticated):
		return http.StatusUnauthorized
	case stderrors.Is(err, errors.ErrForbidden):
		return http.StatusForbidden
	case stderrors.Is(err, errors.ErrNotFound):
		return http.StatusNotFound
	case stderrors.Is(err, errors.ErrConflict), stderrors.Is(err, errors.ErrAlreadyExists):
		return http.StatusConflict
	case stderrors.Is(err, errors.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage strips nothing: sentinel chains are already safe to show.
func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
