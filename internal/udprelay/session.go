package udprelay

import (
	"net"
	"time"
)

// ClientSlot is one occupant of a session's slot 1 or slot 2.
type ClientSlot struct {
	Addr     *net.UDPAddr
	LastSeen time.Time
}

// Session pairs up to two clients under a session id so datagrams sent
// by one are forwarded to the other.
type Session struct {
	Clients map[int]*ClientSlot
	Updated time.Time
}

type addrEntry struct {
	sessionID string
	slot      int
}

// Table is the UDP relay's session and address-to-slot index. It is
// only ever touched from Server.Start's single receive loop — unlike
// the TCP relay's goroutine-per-connection model, there is no second
// goroutine mutating this table, so no mutex is needed.
type Table struct {
	sessions    map[string]*Session
	addressMap  map[string]addrEntry
	maxSessions int
}

// NewTable creates an empty session table.
func NewTable(maxSessions int) *Table {
	return &Table{
		sessions:    make(map[string]*Session),
		addressMap:  make(map[string]addrEntry),
		maxSessions: maxSessions,
	}
}

// ErrFull indicates the relay cannot accept a new session.
type ErrFull struct{}

func (ErrFull) Error() string { return "session table is full" }

// GetOrCreate returns the named session, creating it if room permits.
func (t *Table) GetOrCreate(sessionID string, now time.Time) (*Session, error) {
	if sess, ok := t.sessions[sessionID]; ok {
		return sess, nil
	}
	if len(t.sessions) >= t.maxSessions {
		return nil, ErrFull{}
	}
	sess := &Session{
		Clients: map[int]*ClientSlot{1: nil, 2: nil},
		Updated: now,
	}
	t.sessions[sessionID] = sess
	return sess, nil
}

// Get returns the named session without creating it.
func (t *Table) Get(sessionID string) (*Session, bool) {
	sess, ok := t.sessions[sessionID]
	return sess, ok
}

// removeClient clears addr's slot binding in whichever session it
// belongs to.
func (t *Table) removeClient(addr string) {
	entry, ok := t.addressMap[addr]
	if !ok {
		return
	}
	delete(t.addressMap, addr)
	sess, ok := t.sessions[entry.sessionID]
	if !ok {
		return
	}
	if client := sess.Clients[entry.slot]; client != nil && client.Addr.String() == addr {
		sess.Clients[entry.slot] = nil
	}
}

// RemoveClient clears addr's slot binding.
func (t *Table) RemoveClient(addr string) {
	t.removeClient(addr)
}

// Bind assigns addr to a slot within sessionID's session, evicting any
// prior binding for addr first. If requestedSlot is 0, the first free
// slot (1, then 2) is chosen. Returns the assigned slot, whether the
// session is now ready (both slots filled), and whether the slot was
// already occupied by a different address (busy).
func (t *Table) Bind(sessionID string, requestedSlot int, addr *net.UDPAddr, now time.Time) (slot int, ready bool, busy bool, err error) {
	sess, ok := t.sessions[sessionID]
	if !ok {
		if len(t.sessions) >= t.maxSessions {
			return 0, false, false, ErrFull{}
		}
		sess = &Session{Clients: map[int]*ClientSlot{1: nil, 2: nil}, Updated: now}
		t.sessions[sessionID] = sess
	}

	if requestedSlot != 0 {
		slot = requestedSlot
	} else if sess.Clients[1] == nil {
		slot = 1
	} else {
		slot = 2
	}

	addrStr := addr.String()
	if current := sess.Clients[slot]; current != nil && current.Addr.String() != addrStr {
		return slot, false, true, nil
	}

	t.removeClient(addrStr)
	sess.Clients[slot] = &ClientSlot{Addr: addr, LastSeen: now}
	sess.Updated = now
	t.addressMap[addrStr] = addrEntry{sessionID: sessionID, slot: slot}

	ready = sess.Clients[1] != nil && sess.Clients[2] != nil
	return slot, ready, false, nil
}

// Touch refreshes addr's last-seen time and returns the session id and
// slot it belongs to, if any.
func (t *Table) Touch(addr string, now time.Time) (sessionID string, slot int, ok bool) {
	entry, found := t.addressMap[addr]
	if !found {
		return "", 0, false
	}
	sess, found := t.sessions[entry.sessionID]
	if !found {
		return "", 0, false
	}
	client := sess.Clients[entry.slot]
	if client == nil {
		return "", 0, false
	}
	client.LastSeen = now
	sess.Updated = now
	return entry.sessionID, entry.slot, true
}

// Peer returns the other slot's client address within sessionID, if
// bound.
func (t *Table) Peer(sessionID string, slot int) (*net.UDPAddr, bool) {
	sess, ok := t.sessions[sessionID]
	if !ok {
		return nil, false
	}
	other := 2
	if slot == 2 {
		other = 1
	}
	client := sess.Clients[other]
	if client == nil {
		return nil, false
	}
	return client.Addr, true
}

// Prune drops clients idle past clientTTL and, once both slots of a
// session are empty, drops the session itself once idle past
// sessionTTL.
func (t *Table) Prune(now time.Time, clientTTL, sessionTTL time.Duration) {
	for sessionID, sess := range t.sessions {
		for slot, client := range sess.Clients {
			if client == nil {
				continue
			}
			if now.Sub(client.LastSeen) > clientTTL {
				delete(t.addressMap, client.Addr.String())
				sess.Clients[slot] = nil
			}
		}
		if sess.Clients[1] == nil && sess.Clients[2] == nil && now.Sub(sess.Updated) > sessionTTL {
			delete(t.sessions, sessionID)
		}
	}
}

// Count returns the current number of sessions, for tests and
// diagnostics.
func (t *Table) Count() int {
	return len(t.sessions)
}
