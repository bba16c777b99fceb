package tcprelay

import (
	"net"
	"sync"
	"time"
)

// ClientConn is a downstream player's data connection, pending pairing
// with the host's corresponding link connection.
type ClientConn struct {
	Conn    net.Conn
	Addr    [addrSize]byte
	Created time.Time
}

// HostLinkConn is the host's data connection for one client link,
// pending pairing with that client's ClientConn.
type HostLinkConn struct {
	Conn    net.Conn
	Created time.Time
}

// Session is one host's relay session: its control connection plus
// whatever client and host-link connections are currently pending
// pairing.
type Session struct {
	ID       [12]byte
	HostConn net.Conn

	Clients       map[[12]byte]*ClientConn
	HostLinks     map[[12]byte]*HostLinkConn
	LinkAddresses map[[12]byte][addrSize]byte

	Created  time.Time
	LastSeen time.Time
}

func newSession(id [12]byte, hostConn net.Conn) *Session {
	now := time.Now()
	return &Session{
		ID:            id,
		HostConn:      hostConn,
		Clients:       make(map[[12]byte]*ClientConn),
		HostLinks:     make(map[[12]byte]*HostLinkConn),
		LinkAddresses: make(map[[12]byte][addrSize]byte),
		Created:       now,
		LastSeen:      now,
	}
}

// RelayState is the TCP relay's shared session table. The Python
// original relies on asyncio's single-threaded event loop to make
// these maps safe to mutate from any handler; net/http-style Go
// instead runs one goroutine per connection, so a mutex stands in for
// that single-thread guarantee.
type RelayState struct {
	mu            sync.Mutex
	sessions      map[[12]byte]*Session
	linkToSession map[[12]byte][12]byte
	maxSessions   int
}

// NewRelayState creates an empty session table capped at maxSessions.
func NewRelayState(maxSessions int) *RelayState {
	return &RelayState{
		sessions:      make(map[[12]byte]*Session),
		linkToSession: make(map[[12]byte][12]byte),
		maxSessions:   maxSessions,
	}
}

// ErrFull indicates the relay cannot accept a new host session.
type ErrFull struct{}

func (ErrFull) Error() string { return "session table is full" }

// CreateSession allocates a fresh session id and registers hostConn as
// its control connection.
func (st *RelayState) CreateSession(hostConn net.Conn) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if len(st.sessions) >= st.maxSessions {
		return nil, ErrFull{}
	}
	id := newUniqueID(func(id [12]byte) bool {
		_, exists := st.sessions[id]
		return exists
	})
	sess := newSession(id, hostConn)
	st.sessions[id] = sess
	return sess, nil
}

// GetSession looks up a session by id.
func (st *RelayState) GetSession(id [12]byte) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	sess, ok := st.sessions[id]
	return sess, ok
}

// SessionForLink resolves a link id to its owning session.
func (st *RelayState) SessionForLink(linkID [12]byte) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	sessionID, ok := st.linkToSession[linkID]
	if !ok {
		return nil, false
	}
	sess, ok := st.sessions[sessionID]
	return sess, ok
}

// RemoveSession drops a session and every pending link it owns,
// returning the connections the caller must close.
func (st *RelayState) RemoveSession(id [12]byte) (clients []*ClientConn, links []*HostLinkConn, hostConn net.Conn, ok bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	sess, found := st.sessions[id]
	if !found {
		return nil, nil, nil, false
	}
	delete(st.sessions, id)

	for linkID, client := range sess.Clients {
		clients = append(clients, client)
		delete(st.linkToSession, linkID)
	}
	for linkID, link := range sess.HostLinks {
		links = append(links, link)
		delete(st.linkToSession, linkID)
	}
	return clients, links, sess.HostConn, true
}

// RegisterClient assigns a link id to a newly arrived client data
// connection and records it against the session.
func (st *RelayState) RegisterClient(sess *Session, conn net.Conn) [12]byte {
	st.mu.Lock()
	defer st.mu.Unlock()

	linkID := newUniqueID(func(id [12]byte) bool {
		_, exists := st.linkToSession[id]
		return exists
	})
	addr := encodeAddress(peerIP(conn.RemoteAddr()))
	sess.Clients[linkID] = &ClientConn{Conn: conn, Addr: addr, Created: time.Now()}
	sess.LinkAddresses[linkID] = addr
	st.linkToSession[linkID] = sess.ID
	return linkID
}

// UnregisterClient removes a pending client registration, e.g. after a
// failed announcement to the host.
func (st *RelayState) UnregisterClient(sess *Session, linkID [12]byte) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(sess.Clients, linkID)
	delete(sess.LinkAddresses, linkID)
	delete(st.linkToSession, linkID)
}

// RegisterHostLink records the host's data connection for linkID.
func (st *RelayState) RegisterHostLink(sess *Session, linkID [12]byte, conn net.Conn) {
	st.mu.Lock()
	defer st.mu.Unlock()
	sess.HostLinks[linkID] = &HostLinkConn{Conn: conn, Created: time.Now()}
}

// TryPair returns and clears the client and host-link pair for linkID
// once both sides have arrived, ready for bridging.
func (st *RelayState) TryPair(sess *Session, linkID [12]byte) (*ClientConn, *HostLinkConn, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	client, hasClient := sess.Clients[linkID]
	hostLink, hasLink := sess.HostLinks[linkID]
	if !hasClient || !hasLink {
		return nil, nil, false
	}
	delete(sess.Clients, linkID)
	delete(sess.HostLinks, linkID)
	delete(sess.LinkAddresses, linkID)
	delete(st.linkToSession, linkID)
	return client, hostLink, true
}

// LookupLinkAddress returns the address recorded for linkID within
// sess, for the host's RATA (address) query.
func (st *RelayState) LookupLinkAddress(sess *Session, linkID [12]byte) ([addrSize]byte, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	addr, ok := sess.LinkAddresses[linkID]
	return addr, ok
}

// Touch refreshes a session's last-seen time.
func (st *RelayState) Touch(sess *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	sess.LastSeen = time.Now()
}

// PruneStale closes and drops any client or host-link connection that
// has waited longer than pendingTTL to be paired.
func (st *RelayState) PruneStale(pendingTTL time.Duration) {
	st.mu.Lock()
	type closer interface{ Close() error }
	var toClose []closer
	now := time.Now()
	for _, sess := range st.sessions {
		for linkID, client := range sess.Clients {
			if now.Sub(client.Created) > pendingTTL {
				delete(sess.Clients, linkID)
				delete(sess.LinkAddresses, linkID)
				delete(st.linkToSession, linkID)
				toClose = append(toClose, client.Conn)
			}
		}
		for linkID, link := range sess.HostLinks {
			if now.Sub(link.Created) > pendingTTL {
				delete(sess.HostLinks, linkID)
				delete(sess.LinkAddresses, linkID)
				delete(st.linkToSession, linkID)
				toClose = append(toClose, link.Conn)
			}
		}
	}
	st.mu.Unlock()

	for _, c := range toClose {
		c.Close()
	}
}

// Count returns the number of active sessions, for tests and
// diagnostics.
func (st *RelayState) Count() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}
