package runtime

import (
	"log/slog"
	"sync"

	"pulsechat/domain"
	"pulsechat/domain/event"
	"pulsechat/errors"
)

// GroupSource resolves group membership for fan-out.
type GroupSource interface {
	Members(groupID string) ([]string, error)
}

// Router resolves a logical destination to the set of live connections and
// emits events to them. Delivery is serialized: events for one room are
// emitted in the order Deliver is called, best effort, at most once. Offline
// members rely on persisted history.
type Router struct {
	deliverMu sync.Mutex
	log       *slog.Logger
	registry  *Registry
	groups    GroupSource
	limiter   *RateLimiter
}

func NewRouter(log *slog.Logger, registry *Registry, groups GroupSource, limiter *RateLimiter) *Router {
	return &Router{log: log, registry: registry, groups: groups, limiter: limiter}
}

// Resolve maps a destination to its canonical room id.
func (r *Router) Resolve(senderID, destinationID string, isGroup bool) domain.RoomID {
	return domain.ResolveRoom(senderID, destinationID, isGroup)
}

// Deliver emits an event to every live connection in the destination room.
// A failed Send is an implicit disconnect: the connection is cleaned up
// through the same path as an explicit one.
func (r *Router) Deliver(e event.DomainEvent, senderID, destinationID string, isGroup bool) error {
	members, err := r.roomMembers(senderID, destinationID, isGroup)
	if err != nil {
		return err
	}

	r.deliverMu.Lock()
	defer r.deliverMu.Unlock()

	for _, member := range members {
		for _, conn := range r.registry.SocketsFor(member) {
			if err := conn.Send(e); err != nil {
				r.log.Warn("Send failed, dropping connection",
					"identity", member, "conn", conn.ID(), "event", e.Name(), "error", err)
				_ = conn.Close()
				r.registry.Disconnect(conn.ID())
			}
		}
	}
	return nil
}

// DeliverTransient routes high-frequency, non-persisted events (typing,
// read receipts) through the rate limiter. Callers drop ErrRateLimited
// silently for these events.
func (r *Router) DeliverTransient(action string, e event.DomainEvent, senderID, destinationID string, isGroup bool) error {
	if !r.limiter.Allow(action, senderID) {
		return errors.ErrRateLimited
	}
	return r.Deliver(e, senderID, destinationID, isGroup)
}

// NotifyDirect pushes an event to one identity's sockets, outside any room.
// Used for presence updates and contact requests.
func (r *Router) NotifyDirect(identity string, e event.DomainEvent) {
	r.deliverMu.Lock()
	defer r.deliverMu.Unlock()

	for _, conn := range r.registry.SocketsFor(identity) {
		if err := conn.Send(e); err != nil {
			r.log.Warn("Send failed, dropping connection",
				"identity", identity, "conn", conn.ID(), "event", e.Name(), "error", err)
			_ = conn.Close()
			r.registry.Disconnect(conn.ID())
		}
	}
}

func (r *Router) roomMembers(senderID, destinationID string, isGroup bool) ([]string, error) {
	if !isGroup {
		return []string{senderID, destinationID}, nil
	}
	members, err := r.groups.Members(destinationID)
	if err != nil {
		return nil, err
	}
	return members, nil
}
