// Package session tracks who is connected: one entry per registered userId,
// bound to the connection that last registered it.
package session

import (
	"math/rand/v2"
	"time"

	"github.com/orchestra-mcp/canvas/src/types"
)

// Palette is the fixed set of presence colors.
var Palette = [15]string{
	"#FF6B6B", "#4ECDC4", "#45B7D1", "#FFA07A", "#98D8C8",
	"#F38181", "#AA96DA", "#FCBAD3", "#A8E6CF", "#FFD3B6",
	"#FF8B94", "#A8DADC", "#E63946", "#06FFA5", "#F77F00",
}

// Session is a registered user bound to a live connection.
type Session struct {
	UserID      string
	Color       string
	ConnID      string
	ConnectedAt time.Time
}

// Info returns the public presence record.
func (s Session) Info() types.UserInfo {
	return types.UserInfo{UserID: s.UserID, Color: s.Color}
}

// Registry maps userIds to sessions. Like the operation log it relies on
// the hub loop for serialization and takes no locks.
type Registry struct {
	sessions map[string]*Session
	order    []string
	rng      *rand.Rand
	now      func() time.Time
}

// NewRegistry creates a registry drawing colors from rng. A nil rng uses a
// randomly seeded source.
func NewRegistry(rng *rand.Rand) *Registry {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Registry{
		sessions: make(map[string]*Session),
		rng:      rng,
		now:      time.Now,
	}
}

// Register creates or replaces the session for userID. The color is drawn
// uniformly from the palette without regard to colors already in use. A
// previous session for the same userID is overwritten; its connection is
// left open.
func (r *Registry) Register(userID, connID string) Session {
	s := &Session{
		UserID:      userID,
		Color:       Palette[r.rng.IntN(len(Palette))],
		ConnID:      connID,
		ConnectedAt: r.now(),
	}
	if _, exists := r.sessions[userID]; !exists {
		r.order = append(r.order, userID)
	}
	r.sessions[userID] = s
	return *s
}

// Unregister removes the session for userID.
func (r *Registry) Unregister(userID string) bool {
	if _, ok := r.sessions[userID]; !ok {
		return false
	}
	delete(r.sessions, userID)
	for i, id := range r.order {
		if id == userID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// UnregisterConn removes every session still bound to connID and returns
// their userIds. Sessions that a later register moved to another
// connection are kept.
func (r *Registry) UnregisterConn(connID string) []string {
	var removed []string
	for _, id := range r.order {
		if r.sessions[id].ConnID == connID {
			removed = append(removed, id)
		}
	}
	for _, id := range removed {
		r.Unregister(id)
	}
	return removed
}

// Get returns the session for userID.
func (r *Registry) Get(userID string) (Session, bool) {
	s, ok := r.sessions[userID]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// Sessions returns every session in registration order.
func (r *Registry) Sessions() []Session {
	out := make([]Session, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.sessions[id])
	}
	return out
}

// List returns the presence roster.
func (r *Registry) List() []types.UserInfo {
	out := make([]types.UserInfo, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.sessions[id].Info())
	}
	return out
}

// Len returns the number of sessions.
func (r *Registry) Len() int { return len(r.sessions) }
