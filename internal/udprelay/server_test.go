package udprelay

import (
	"net"
	"strings"
	"testing"
	"time"
)

func startTestRelay(t *testing.T) (*Server, int) {
	t.Helper()

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	if err != nil {
		t.Fatalf("failed to reserve ephemeral port: %v", err)
	}
	port := conn.LocalAddr().(*net.UDPAddr).Port
	conn.Close()

	s := NewServer("127.0.0.1", port, "RARELAY1", time.Minute, time.Minute, 8, 8192)

	go s.Start()
	t.Cleanup(func() { s.Close() })

	deadline := time.Now().Add(time.Second)
	for s.conn == nil && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	return s, port
}

func openClient(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	if err != nil {
		t.Fatalf("failed to open client socket: %v", err)
	}
	return conn
}

func TestHelloAloneReturnsWait(t *testing.T) {
	_, port := startTestRelay(t)
	serverAddr := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: port}

	c := openClient(t)
	defer c.Close()

	c.WriteToUDP([]byte("RARELAY1 HELLO game1"), serverAddr)
	c.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 256)
	n, _, err := c.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !strings.Contains(string(buf[:n]), "WAIT game1") {
		t.Fatalf("expected WAIT response, got %q", string(buf[:n]))
	}
}

func TestHelloBothSlotsReturnsReadyAndRelaysData(t *testing.T) {
	_, port := startTestRelay(t)
	serverAddr := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: port}

	a := openClient(t)
	defer a.Close()
	b := openClient(t)
	defer b.Close()

	a.WriteToUDP([]byte("RARELAY1 HELLO game2 1"), serverAddr)
	a.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 256)
	n, _, _ := a.ReadFromUDP(buf)
	if !strings.Contains(string(buf[:n]), "WAIT game2") {
		t.Fatalf("expected WAIT for first HELLO, got %q", string(buf[:n]))
	}

	b.WriteToUDP([]byte("RARELAY1 HELLO game2 2"), serverAddr)
	b.SetReadDeadline(time.Now().Add(time.Second))
	n, _, _ = b.ReadFromUDP(buf)
	if !strings.Contains(string(buf[:n]), "READY game2") {
		t.Fatalf("expected READY for second HELLO, got %q", string(buf[:n]))
	}

	a.WriteToUDP([]byte("ping-payload"), serverAddr)
	b.SetReadDeadline(time.Now().Add(time.Second))
	n, _, err := b.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("expected relayed data at peer b: %v", err)
	}
	if string(buf[:n]) != "ping-payload" {
		t.Fatalf("expected relayed payload to be forwarded unmodified, got %q", string(buf[:n]))
	}
}

func TestByeClearsBinding(t *testing.T) {
	_, port := startTestRelay(t)
	serverAddr := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: port}

	a := openClient(t)
	defer a.Close()

	a.WriteToUDP([]byte("RARELAY1 HELLO game3 1"), serverAddr)
	a.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 256)
	a.ReadFromUDP(buf)

	a.WriteToUDP([]byte("RARELAY1 BYE game3"), serverAddr)
	a.SetReadDeadline(time.Now().Add(time.Second))
	n, _, err := a.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("expected OK response to BYE: %v", err)
	}
	if !strings.Contains(string(buf[:n]), "OK game3") {
		t.Fatalf("expected OK game3, got %q", string(buf[:n]))
	}
}
