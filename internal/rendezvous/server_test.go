package rendezvous

import (
	"net"
	"strings"
	"testing"
	"time"
)

// startTestServer launches a rendezvous Server on an ephemeral loopback
// port and returns it along with that port, stopping the server on
// test cleanup.
func startTestServer(t *testing.T) (*Server, int) {
	t.Helper()

	s := NewServer("127.0.0.1", 0, 8, time.Second, 256, 64, 3, "debug")

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	if err != nil {
		t.Fatalf("failed to reserve ephemeral port: %v", err)
	}
	port := conn.LocalAddr().(*net.UDPAddr).Port
	conn.Close()

	s.port = port
	go s.Serve()

	deadline := time.Now().Add(time.Second)
	for s.conn == nil && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	t.Cleanup(func() { s.Close() })

	return s, port
}

func sendAndRecv(t *testing.T, client *net.UDPConn, serverAddr *net.UDPAddr, msg string) string {
	t.Helper()
	if _, err := client.WriteToUDP([]byte(msg), serverAddr); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	client.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 256)
	n, _, err := client.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	return string(buf[:n])
}

func TestHostAloneReceivesWait(t *testing.T) {
	_, port := startTestServer(t)
	serverAddr := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: port}

	client, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	if err != nil {
		t.Fatalf("failed to open client socket: %v", err)
	}
	defer client.Close()

	reply := sendAndRecv(t, client, serverAddr, "RNDV1 H roomone")
	if !strings.HasPrefix(reply, "WAIT roomone") {
		t.Fatalf("expected WAIT reply, got %q", reply)
	}
}

func TestHostAndClientExchangePeerAddrs(t *testing.T) {
	_, port := startTestServer(t)
	serverAddr := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: port}

	host, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	if err != nil {
		t.Fatalf("failed to open host socket: %v", err)
	}
	defer host.Close()

	if _, err := host.WriteToUDP([]byte("RNDV1 H roomtwo"), serverAddr); err != nil {
		t.Fatalf("host write failed: %v", err)
	}
	host.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 256)
	n, _, err := host.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("host read failed: %v", err)
	}
	if !strings.HasPrefix(string(buf[:n]), "WAIT roomtwo") {
		t.Fatalf("expected WAIT for lone host, got %q", string(buf[:n]))
	}

	client, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	if err != nil {
		t.Fatalf("failed to open client socket: %v", err)
	}
	defer client.Close()

	if _, err := client.WriteToUDP([]byte("RNDV1 C roomtwo"), serverAddr); err != nil {
		t.Fatalf("client write failed: %v", err)
	}

	client.SetReadDeadline(time.Now().Add(time.Second))
	n, _, err = client.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("client read failed: %v", err)
	}
	if !strings.HasPrefix(string(buf[:n]), "PEER ") {
		t.Fatalf("expected PEER reply to client, got %q", string(buf[:n]))
	}

	host.SetReadDeadline(time.Now().Add(time.Second))
	n, _, err = host.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("expected host to receive a PEER burst too: %v", err)
	}
	if !strings.HasPrefix(string(buf[:n]), "PEER ") {
		t.Fatalf("expected PEER reply to host, got %q", string(buf[:n]))
	}
}

func TestMalformedPacketIsDropped(t *testing.T) {
	_, port := startTestServer(t)
	serverAddr := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: port}

	client, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	if err != nil {
		t.Fatalf("failed to open client socket: %v", err)
	}
	defer client.Close()

	if _, err := client.WriteToUDP([]byte("garbage"), serverAddr); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	client.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	buf := make([]byte, 256)
	if _, _, err := client.ReadFromUDP(buf); err == nil {
		t.Fatalf("expected no reply to a malformed packet")
	}
}
