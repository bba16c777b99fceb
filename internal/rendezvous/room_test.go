package rendezvous

import (
	"net"
	"testing"
	"time"
)

func TestFindOrCreateReusesExistingRoom(t *testing.T) {
	tbl := NewTable(4, time.Minute)

	room1, created1 := tbl.FindOrCreate("arena")
	if !created1 {
		t.Fatalf("expected first lookup to create the room")
	}
	room2, created2 := tbl.FindOrCreate("arena")
	if created2 {
		t.Fatalf("expected second lookup to reuse the room")
	}
	if room1 != room2 {
		t.Fatalf("expected the same room pointer across lookups")
	}
}

func TestFindOrCreateRejectsAtCapacity(t *testing.T) {
	tbl := NewTable(1, time.Minute)

	if _, created := tbl.FindOrCreate("first"); !created {
		t.Fatalf("expected first room to be created")
	}
	room, created := tbl.FindOrCreate("second")
	if room != nil || created {
		t.Fatalf("expected nil room when table is at capacity")
	}
}

func TestPruneDropsTimedOutSlotsAndEmptyRooms(t *testing.T) {
	tbl := NewTable(4, 10*time.Millisecond)

	room, _ := tbl.FindOrCreate("arena")
	room.HasHost = true
	room.HostAddr = &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 1}
	room.HostSeen = time.Now()

	tbl.Prune(time.Now())
	if tbl.Count() != 1 {
		t.Fatalf("expected room to survive before timeout, got count %d", tbl.Count())
	}

	tbl.Prune(time.Now().Add(50 * time.Millisecond))
	if tbl.Count() != 0 {
		t.Fatalf("expected empty room to be pruned, got count %d", tbl.Count())
	}
}

func TestPruneKeepsRoomWithOneLiveSlot(t *testing.T) {
	tbl := NewTable(4, 100*time.Millisecond)

	room, _ := tbl.FindOrCreate("arena")
	room.HasHost = true
	room.HostAddr = &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 1}
	room.HostSeen = time.Now().Add(-200 * time.Millisecond)

	room.HasClient = true
	room.ClientAddr = &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 2}
	room.ClientSeen = time.Now()

	tbl.Prune(time.Now())

	if tbl.Count() != 1 {
		t.Fatalf("expected room to survive with a live client slot, got count %d", tbl.Count())
	}
	if room.HasHost {
		t.Fatalf("expected stale host slot to be cleared")
	}
	if !room.HasClient {
		t.Fatalf("expected live client slot to remain")
	}
}
