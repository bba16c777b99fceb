package lobby

import (
	"strings"
	"testing"
	"time"
)

func newTestFields(ip string, port int, user, crc string) Fields {
	return Fields{
		Username: user,
		GameCRC:  crc,
		Port:     port,
		IP:       ip,
	}
}

func TestUpsertSameKeyUpdatesInPlace(t *testing.T) {
	reg := NewRegistry(time.Minute, 4)

	f := newTestFields("10.0.0.5", 55435, "alice", "AB12CD34")
	id1, err := reg.Upsert(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	id2, err := reg.Upsert(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if id1 != id2 {
		t.Fatalf("expected same room id on repeated POST, got %d then %d", id1, id2)
	}
	if reg.Count() != 1 {
		t.Fatalf("expected exactly 1 room, got %d", reg.Count())
	}
}

func TestUpsertDistinctKeysAllocateNewIDs(t *testing.T) {
	reg := NewRegistry(time.Minute, 4)

	id1, _ := reg.Upsert(newTestFields("10.0.0.5", 55435, "alice", "AB12CD34"))
	id2, _ := reg.Upsert(newTestFields("10.0.0.6", 55436, "bob", "EF567890"))

	if id1 == id2 {
		t.Fatalf("expected distinct ids for distinct natural keys")
	}
	if reg.Count() != 2 {
		t.Fatalf("expected 2 rooms, got %d", reg.Count())
	}
}

func TestUpsertFullRejectsNewRoom(t *testing.T) {
	reg := NewRegistry(time.Minute, 1)

	if _, err := reg.Upsert(newTestFields("10.0.0.5", 1, "a", "1")); err != nil {
		t.Fatalf("unexpected error on first insert: %v", err)
	}

	if _, err := reg.Upsert(newTestFields("10.0.0.6", 2, "b", "2")); err == nil {
		t.Fatalf("expected ErrFull when capacity is exceeded")
	}

	// An update to the existing room must still succeed at capacity.
	if _, err := reg.Upsert(newTestFields("10.0.0.5", 1, "a", "1")); err != nil {
		t.Fatalf("expected update of existing room to succeed at capacity: %v", err)
	}
}

func TestPruneRemovesStaleRooms(t *testing.T) {
	reg := NewRegistry(10*time.Millisecond, 10)

	if _, err := reg.Upsert(newTestFields("10.0.0.5", 1, "a", "1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	time.Sleep(30 * time.Millisecond)

	if got := reg.List(); len(got) != 0 {
		t.Fatalf("expected stale room to be pruned, found %d", len(got))
	}
}

func TestPlainResponseFieldOrderAndCoercion(t *testing.T) {
	f := Fields{
		Username:    "alice",
		GameCRC:     "ab12cd34",
		Port:        55435,
		GGPO:        true,
		Connectable: true,
		HostMethod:  HostMethodManual,
	}
	f.GameCRC = coerceHex(f.GameCRC)

	body := f.PlainResponse(1)
	if body[:5] != "id=1\n" {
		t.Fatalf("expected response to start with id=1, got %q", body[:10])
	}
	wantSub := "game_crc=AB12CD34\n"
	if !strings.Contains(body, wantSub) {
		t.Fatalf("expected %q in response, got %q", wantSub, body)
	}
}
