package rendezvous

import (
	"net"
	"time"
)

// Room pairs up to two peers under a shared name: a host (role 'H') and
// a client (role 'C'), each with its own last-seen timestamp so one
// side's silence doesn't evict the other.
type Room struct {
	Name string

	HasHost    bool
	HostAddr   *net.UDPAddr
	HostSeen   time.Time

	HasClient  bool
	ClientAddr *net.UDPAddr
	ClientSeen time.Time
}

// Table is the rendezvous coordinator's in-memory room set. It is only
// ever touched from the single UDP read loop, so unlike the lobby and
// the TCP relay it needs no mutex (§5 of the spec: single-threaded
// blocking receive loop, no concurrent mutation).
type Table struct {
	rooms       map[string]*Room
	maxRooms    int
	roomTimeout time.Duration
}

// NewTable creates an empty rendezvous room table.
func NewTable(maxRooms int, roomTimeout time.Duration) *Table {
	return &Table{
		rooms:       make(map[string]*Room),
		maxRooms:    maxRooms,
		roomTimeout: roomTimeout,
	}
}

// Prune clears any slot whose occupant hasn't been seen within the room
// timeout, and removes rooms left with neither slot occupied.
func (t *Table) Prune(now time.Time) {
	for name, room := range t.rooms {
		if room.HasHost && now.Sub(room.HostSeen) > t.roomTimeout {
			room.HasHost = false
		}
		if room.HasClient && now.Sub(room.ClientSeen) > t.roomTimeout {
			room.HasClient = false
		}
		if !room.HasHost && !room.HasClient {
			delete(t.rooms, name)
		}
	}
}

// FindOrCreate returns the room with the given name, creating it if the
// table isn't already at capacity. The second return value reports
// whether a new room was created. If the table is full and name is new,
// returns (nil, false).
func (t *Table) FindOrCreate(name string) (*Room, bool) {
	if room, ok := t.rooms[name]; ok {
		return room, false
	}
	if len(t.rooms) >= t.maxRooms {
		return nil, false
	}
	room := &Room{Name: name}
	t.rooms[name] = room
	return room, true
}

// Count returns the current number of rooms, for tests and diagnostics.
func (t *Table) Count() int {
	return len(t.rooms)
}
