package udprelay

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/retroarch-netplay/netplay-infra/internal/netlog"
)

// Server is the stateful UDP forwarder pairing two peers behind
// symmetric NAT under a shared session id (RARELAY1 protocol).
type Server struct {
	conn       *net.UDPConn
	bind       string
	port       int
	magic      string
	maxPacket  int
	sessionTTL time.Duration
	clientTTL  time.Duration
	table      *Table
}

// NewServer builds a UDP relay Server.
func NewServer(bind string, port int, magic string, sessionTTL, clientTTL time.Duration, maxSessions, maxPacket int) *Server {
	return &Server{
		bind:       bind,
		port:       port,
		magic:      magic,
		maxPacket:  maxPacket,
		sessionTTL: sessionTTL,
		clientTTL:  clientTTL,
		table:      NewTable(maxSessions),
	}
}

// Start opens the UDP socket and runs a single-threaded receive loop:
// every read carries a 1s deadline, and pruning runs inline on the same
// goroutine whenever a second has elapsed since the last prune — the
// same shape as relay_server.py's `sock.settimeout(1.0)` plus
// `now - last_prune > 1.0` check. Unlike the TCP relay, there is no
// second goroutine and no mutex: the session table is only ever
// touched from this loop.
func (s *Server) Start() error {
	addr := &net.UDPAddr{IP: net.ParseIP(s.bind), Port: s.port}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("udprelay: listen: %w", err)
	}
	s.conn = conn

	netlog.Printf("udprelay: listening on %s:%d (magic=%s session_ttl=%s)", s.bind, s.port, s.magic, s.sessionTTL)

	buf := make([]byte, s.maxPacket)
	lastPrune := time.Now()
	for {
		conn.SetReadDeadline(time.Now().Add(time.Second))
		n, peer, err := conn.ReadFromUDP(buf)

		now := time.Now()
		if now.Sub(lastPrune) > time.Second {
			s.table.Prune(now, s.clientTTL, s.sessionTTL)
			lastPrune = now
		}

		if err != nil {
			if isClosedConnError(err) {
				return nil
			}
			// Timeouts are the expected once-a-second case that drives
			// pruning above; any other read error is also just retried.
			continue
		}
		if n == 0 {
			continue
		}
		s.handlePacket(buf[:n], peer)
	}
}

// Close stops Start by closing the underlying socket.
func (s *Server) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *Server) handlePacket(data []byte, peer *net.UDPAddr) {
	now := time.Now()

	cmd, sessionID, slotToken, ok := s.parseCommand(data)
	if !ok {
		s.relayData(data, peer, now)
		return
	}

	switch cmd {
	case "HELLO":
		s.handleHello(sessionID, slotToken, peer, now)
	case "BYE":
		s.table.RemoveClient(peer.String())
		s.sendResponse(peer, "OK %s", sessionID)
	case "PING":
		s.table.Touch(peer.String(), now)
		s.sendResponse(peer, "PONG %s", sessionID)
	default:
		s.sendResponse(peer, "ERR %s unknown_command", sessionID)
	}
}

func (s *Server) handleHello(sessionID, slotToken string, peer *net.UDPAddr, now time.Time) {
	requestedSlot := 0
	if slotToken != "" {
		parsed, err := strconv.Atoi(slotToken)
		if err != nil || (parsed != 1 && parsed != 2) {
			s.sendResponse(peer, "ERR %s bad_slot", sessionID)
			return
		}
		requestedSlot = parsed
	}

	slot, ready, busy, err := s.table.Bind(sessionID, requestedSlot, peer, now)
	if err != nil {
		s.sendResponse(peer, "FULL %s", sessionID)
		return
	}
	if busy {
		s.sendResponse(peer, "BUSY %s", sessionID)
		return
	}

	status := "WAIT"
	if ready {
		status = "READY"
	}
	s.sendResponse(peer, "%s %s %d", status, sessionID, slot)
}

func (s *Server) relayData(data []byte, peer *net.UDPAddr, now time.Time) {
	sessionID, slot, ok := s.table.Touch(peer.String(), now)
	if !ok {
		return
	}
	otherAddr, ok := s.table.Peer(sessionID, slot)
	if !ok {
		return
	}
	s.conn.WriteToUDP(data, otherAddr)
}

// parseCommand recognizes "<magic> <CMD> <session> [slot]" frames. Any
// payload not starting with the magic prefix is treated as relay data,
// not a command.
func (s *Server) parseCommand(data []byte) (cmd, sessionID, slot string, ok bool) {
	prefix := s.magic + " "
	if !strings.HasPrefix(string(data), prefix) {
		return "", "", "", false
	}
	parts := strings.Fields(strings.TrimSpace(string(data)))
	if len(parts) < 3 || parts[0] != s.magic {
		return "", "", "", false
	}
	cmd = strings.ToUpper(parts[1])
	sessionID = parts[2]
	if len(parts) >= 4 {
		slot = parts[3]
	}
	return cmd, sessionID, slot, true
}

func (s *Server) sendResponse(to *net.UDPAddr, format string, args ...interface{}) {
	msg := fmt.Sprintf("%s %s\n", s.magic, fmt.Sprintf(format, args...))
	s.conn.WriteToUDP([]byte(msg), to)
}

func isClosedConnError(err error) bool {
	return strings.Contains(err.Error(), "use of closed network connection")
}
