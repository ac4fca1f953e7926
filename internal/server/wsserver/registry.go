package wsserver

import (
	"github.com/yndnr/boardmesh-go/pkg/cmap"
)

// Registry tracks live connections grouped by document.
//
// The outer map is sharded; per-document membership is copy-on-write,
// so List returns an immutable slice that broadcast can iterate
// without holding any lock.
type Registry struct {
	docs *cmap.Map[string, map[string]*Conn]
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		docs: cmap.New[string, map[string]*Conn](),
	}
}

// Add registers a connection under its document.
// Re-adding the same connection id replaces the previous entry.
func (r *Registry) Add(conn *Conn) {
	r.docs.Update(conn.DocumentID(), func(conns map[string]*Conn, exists bool) map[string]*Conn {
		next := make(map[string]*Conn, len(conns)+1)
		for id, c := range conns {
			next[id] = c
		}
		next[conn.ID()] = conn
		return next
	})
}

// Remove unregisters a connection. Idempotent; removing an unknown
// connection is a no-op.
func (r *Registry) Remove(documentID, connID string) {
	r.docs.Update(documentID, func(conns map[string]*Conn, exists bool) map[string]*Conn {
		if !exists {
			return nil
		}
		if _, ok := conns[connID]; !ok {
			return conns
		}
		next := make(map[string]*Conn, len(conns)-1)
		for id, c := range conns {
			if id != connID {
				next[id] = c
			}
		}
		return next
	})

	// Drop empty documents so the map does not grow forever.
	r.docs.DeleteIf(documentID, func(conns map[string]*Conn, exists bool) bool {
		return exists && len(conns) == 0
	})
}

// List returns the live connections for a document, unordered.
func (r *Registry) List(documentID string) []*Conn {
	conns, ok := r.docs.Get(documentID)
	if !ok {
		return nil
	}
	out := make([]*Conn, 0, len(conns))
	for _, c := range conns {
		out = append(out, c)
	}
	return out
}

// Get returns a single connection by document and connection id.
func (r *Registry) Get(documentID, connID string) (*Conn, bool) {
	conns, ok := r.docs.Get(documentID)
	if !ok {
		return nil, false
	}
	c, ok := conns[connID]
	return c, ok
}

// Count returns the total number of live connections.
func (r *Registry) Count() int {
	total := 0
	r.docs.Range(func(_ string, conns map[string]*Conn) bool {
		total += len(conns)
		return true
	})
	return total
}

// CountDocument returns the number of connections on one document.
func (r *Registry) CountDocument(documentID string) int {
	conns, ok := r.docs.Get(documentID)
	if !ok {
		return 0
	}
	return len(conns)
}

// Documents returns the ids of documents with at least one connection.
func (r *Registry) Documents() []string {
	return r.docs.Keys()
}

// Each calls fn for every live connection across all documents.
//
// Membership is snapshotted first and fn runs with no lock held, so
// callbacks may call back into the registry (the heartbeat monitor
// removes timed-out connections from inside Each).
func (r *Registry) Each(fn func(conn *Conn)) {
	var conns []*Conn
	r.docs.Range(func(_ string, members map[string]*Conn) bool {
		for _, c := range members {
			conns = append(conns, c)
		}
		return true
	})
	for _, c := range conns {
		fn(c)
	}
}
