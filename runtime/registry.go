// Package runtime owns the live half of the system: the presence/session
// registry, the fan-out router, and the rate limiter. It carries no domain
// rules beyond what is needed to route events.
package runtime

import (
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"

	"pulsechat/contract"
	"pulsechat/domain"
	"pulsechat/errors"
)

// Session is one authenticated live connection instance for an identity.
type Session struct {
	Identity       string
	Conn           contract.Conn
	CreatedAt      time.Time
	LastActivityAt time.Time
}

// TokenVerifier validates the (sessionID, token) handshake pair.
type TokenVerifier interface {
	Verify(sessionID, token string) bool
}

// RoomSource supplies the rooms an identity should join at connect time:
// DM rooms for FRIEND peers and group rooms for memberships.
type RoomSource interface {
	FriendPeers(identity string) ([]string, error)
	GroupsFor(identity string) ([]string, error)
}

// Registry maps identities to their live sessions. It is the single owner
// of the session map; every mutation happens under its mutex, including the
// background sweep.
type Registry struct {
	mu             sync.RWMutex
	log            *slog.Logger
	verifier       TokenVerifier
	rooms          RoomSource
	sessions       map[string][]*Session // identity -> live sessions
	connIndex      map[string]*Session   // connection id -> session
	maxSessions    int
	sessionTimeout time.Duration
	now            func() time.Time
}

func NewRegistry(log *slog.Logger, verifier TokenVerifier, rooms RoomSource,
	maxSessions int, sessionTimeout time.Duration) *Registry {
	return &Registry{
		log:            log,
		verifier:       verifier,
		rooms:          rooms,
		sessions:       make(map[string][]*Session),
		connIndex:      make(map[string]*Session),
		maxSessions:    maxSessions,
		sessionTimeout: sessionTimeout,
		now:            time.Now,
	}
}

// Connect validates the handshake token and registers the connection. When
// the identity already holds the maximum number of sessions, the least
// recently active one is force-closed before the new one is admitted. The
// returned rooms are the ones the identity should join.
func (r *Registry) Connect(identity, sessionID, token string, conn contract.Conn) ([]domain.RoomID, error) {
	if identity == "" || !r.verifier.Verify(sessionID, token) {
		return nil, errors.ErrUnauthenticated
	}

	// Rooms are derived before the session is registered: a failed lookup
	// must not leave a ghost session counting toward the cap.
	rooms, err := r.roomsFor(identity)
	if err != nil {
		return nil, err
	}

	now := r.now()
	session := &Session{
		Identity:       identity,
		Conn:           conn,
		CreatedAt:      now,
		LastActivityAt: now,
	}

	r.mu.Lock()
	if len(r.sessions[identity]) >= r.maxSessions {
		r.evictOldestLocked(identity)
	}
	r.sessions[identity] = append(r.sessions[identity], session)
	r.connIndex[conn.ID()] = session
	r.mu.Unlock()

	return rooms, nil
}

// evictOldestLocked force-closes the least recently active session of an
// identity. Caller holds the lock.
func (r *Registry) evictOldestLocked(identity string) {
	sessions := r.sessions[identity]
	if len(sessions) == 0 {
		return
	}
	oldest := 0
	for i, s := range sessions {
		if s.LastActivityAt.Before(sessions[oldest].LastActivityAt) {
			oldest = i
		}
	}
	victim := sessions[oldest]
	r.log.Info("Evicting least-recently-active session",
		"identity", identity, "conn", victim.Conn.ID())
	_ = victim.Conn.Close()
	delete(r.connIndex, victim.Conn.ID())
	r.sessions[identity] = append(sessions[:oldest], sessions[oldest+1:]...)
}

func (r *Registry) roomsFor(identity string) ([]domain.RoomID, error) {
	peers, err := r.rooms.FriendPeers(identity)
	if err != nil {
		return nil, err
	}
	groups, err := r.rooms.GroupsFor(identity)
	if err != nil {
		return nil, err
	}

	roomIDs := lo.Map(peers, func(peer string, _ int) domain.RoomID {
		return domain.DMRoom(identity, peer)
	})
	for _, groupID := range groups {
		roomIDs = append(roomIDs, domain.GroupRoom(groupID))
	}
	return roomIDs, nil
}

// Disconnect removes the session owning a connection. It is idempotent:
// unknown connection ids are ignored. It reports the identity and whether
// that identity just went fully offline.
func (r *Registry) Disconnect(connID string) (identity string, offline bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disconnectLocked(connID)
}

func (r *Registry) disconnectLocked(connID string) (string, bool) {
	session, ok := r.connIndex[connID]
	if !ok {
		return "", false
	}
	delete(r.connIndex, connID)

	identity := session.Identity
	remaining := lo.Reject(r.sessions[identity], func(s *Session, _ int) bool {
		return s == session
	})
	if len(remaining) == 0 {
		delete(r.sessions, identity)
		return identity, true
	}
	r.sessions[identity] = remaining
	return identity, false
}

// Touch refreshes the activity stamp of the session owning a connection.
// Called on every inbound event.
func (r *Registry) Touch(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if session, ok := r.connIndex[connID]; ok {
		session.LastActivityAt = r.now()
	}
}

// SocketsFor returns the live connection handles of an identity. The slice
// is a copy; callers may iterate without holding the registry lock.
func (r *Registry) SocketsFor(identity string) []contract.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Map(r.sessions[identity], func(s *Session, _ int) contract.Conn {
		return s.Conn
	})
}

// IsOnline reports whether an identity holds at least one live session.
func (r *Registry) IsOnline(identity string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions[identity]) > 0
}

// SweepExpired force-disconnects every session inactive longer than the
// session timeout and returns the identities that went offline as a result.
// Safe to run concurrently with Connect/Disconnect.
func (r *Registry) SweepExpired() []string {
	cutoff := r.now().Add(-r.sessionTimeout)

	r.mu.Lock()
	defer r.mu.Unlock()

	var expired []*Session
	for _, sessions := range r.sessions {
		for _, s := range sessions {
			if s.LastActivityAt.Before(cutoff) {
				expired = append(expired, s)
			}
		}
	}

	var wentOffline []string
	for _, s := range expired {
		r.log.Info("Sweeping expired session", "identity", s.Identity, "conn", s.Conn.ID())
		_ = s.Conn.Close()
		if identity, offline := r.disconnectLocked(s.Conn.ID()); offline {
			wentOffline = append(wentOffline, identity)
		}
	}
	return wentOffline
}
