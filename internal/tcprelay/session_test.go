package tcprelay

import (
	"net"
	"testing"
	"time"
)

func pipeConn() (net.Conn, net.Conn) {
	return net.Pipe()
}

func TestCreateSessionRejectsAtCapacity(t *testing.T) {
	st := NewRelayState(1)

	hostA, _ := pipeConn()
	if _, err := st.CreateSession(hostA); err != nil {
		t.Fatalf("unexpected error on first session: %v", err)
	}

	hostB, _ := pipeConn()
	if _, err := st.CreateSession(hostB); err == nil {
		t.Fatalf("expected ErrFull at capacity")
	}
}

func TestRegisterClientAndHostLinkPairUp(t *testing.T) {
	st := NewRelayState(8)
	host, _ := pipeConn()
	sess, err := st.CreateSession(host)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	clientConn, _ := pipeConn()
	linkID := st.RegisterClient(sess, clientConn)

	if _, _, ready := st.TryPair(sess, linkID); ready {
		t.Fatalf("expected no pairing before the host link arrives")
	}

	hostLinkConn, _ := pipeConn()
	st.RegisterHostLink(sess, linkID, hostLinkConn)

	client, hostLink, ready := st.TryPair(sess, linkID)
	if !ready {
		t.Fatalf("expected pairing once both sides are registered")
	}
	if client.Conn != clientConn || hostLink.Conn != hostLinkConn {
		t.Fatalf("expected paired connections to match what was registered")
	}

	if _, _, readyAgain := st.TryPair(sess, linkID); readyAgain {
		t.Fatalf("expected TryPair to clear the link after pairing once")
	}
}

func TestSessionForLinkResolvesOwningSession(t *testing.T) {
	st := NewRelayState(8)
	host, _ := pipeConn()
	sess, _ := st.CreateSession(host)

	clientConn, _ := pipeConn()
	linkID := st.RegisterClient(sess, clientConn)

	found, ok := st.SessionForLink(linkID)
	if !ok || found.ID != sess.ID {
		t.Fatalf("expected SessionForLink to resolve back to the owning session")
	}
}

func TestRemoveSessionReturnsAllPendingConnections(t *testing.T) {
	st := NewRelayState(8)
	host, _ := pipeConn()
	sess, _ := st.CreateSession(host)

	clientConn, _ := pipeConn()
	st.RegisterClient(sess, clientConn)

	clients, links, hostConn, ok := st.RemoveSession(sess.ID)
	if !ok {
		t.Fatalf("expected session to be found for removal")
	}
	if len(clients) != 1 || len(links) != 0 || hostConn != host {
		t.Fatalf("expected 1 pending client, 0 links, and the host conn returned")
	}

	if _, ok := st.GetSession(sess.ID); ok {
		t.Fatalf("expected session to no longer exist after removal")
	}
}

func TestPruneStaleClosesExpiredPendingConnections(t *testing.T) {
	st := NewRelayState(8)
	host, _ := pipeConn()
	sess, _ := st.CreateSession(host)

	clientConn, otherEnd := pipeConn()
	defer otherEnd.Close()
	linkID := st.RegisterClient(sess, clientConn)

	sess.Clients[linkID].Created = time.Now().Add(-time.Minute)

	st.PruneStale(time.Second)

	if _, _, ready := st.TryPair(sess, linkID); ready {
		t.Fatalf("expected stale client registration to have been pruned")
	}
}
