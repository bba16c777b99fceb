package tcprelay

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/retroarch-netplay/netplay-infra/internal/netlog"
)

// bridgeBufferSize matches the Python original's 4096-byte pipe reads.
// Netplay traffic is small interactive frames, not bulk transfer, so
// this stays far below the teacher's 256KB bulk-transfer buffer.
const bridgeBufferSize = 4096

const (
	headerReadTimeout = 10 * time.Second
	writeTimeout      = 10 * time.Second
)

// Server is the TCP relay: a multiplexing bridge pairing a host's
// control connection with many clients' data connections, using the
// 16-byte RATS/RATL/RATA/RATP header protocol.
type Server struct {
	bind        string
	port        int
	pendingTTL  time.Duration
	maxSessions int
	listener    net.Listener
	state       *RelayState
}

// NewServer builds a TCP relay Server.
func NewServer(bind string, port int, pendingTTL time.Duration, maxSessions int) *Server {
	return &Server{
		bind:        bind,
		port:        port,
		pendingTTL:  pendingTTL,
		maxSessions: maxSessions,
		state:       NewRelayState(maxSessions),
	}
}

// Start listens and accepts connections, dispatching each to its own
// goroutine. Blocks until the listener is closed.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.bind, s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("tcprelay: listen: %w", err)
	}
	s.listener = ln

	netlog.Printf("tcprelay: listening on %s (pending_ttl=%s max_sessions=%d)", addr, s.pendingTTL, s.maxSessions)

	go s.cleanupLoop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if isClosedListenerError(err) {
				return nil
			}
			netlog.Printf("tcprelay: accept error: %v", err)
			continue
		}
		go s.handleConnection(conn)
	}
}

// Close stops Start by closing the listener.
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

func (s *Server) cleanupLoop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for range ticker.C {
		s.state.PruneStale(s.pendingTTL)
	}
}

// handleConnection reads the 16-byte header every connection opens
// with, then dispatches based on its magic: a zero-id RATS header
// starts a new host session, a session-id RATS header is a client data
// connection, and a RATL header is the host's data connection for one
// client link.
func (s *Server) handleConnection(conn net.Conn) {
	header := make([]byte, idSize)
	conn.SetReadDeadline(time.Now().Add(headerReadTimeout))
	if _, err := io.ReadFull(conn, header); err != nil {
		conn.Close()
		return
	}
	conn.SetReadDeadline(time.Time{})

	magic, unique := decodeID(header)

	switch magic {
	case MagicSession:
		if unique == zeroID {
			s.handleNewHost(conn)
			return
		}
		s.handleClient(conn, unique)
	case MagicLink:
		s.handleHostLink(conn, unique)
	default:
		conn.Close()
	}
}

func (s *Server) handleNewHost(conn net.Conn) {
	sess, err := s.state.CreateSession(conn)
	if err != nil {
		conn.Close()
		return
	}
	if err := writeFrame(conn, encodeID(MagicSession, sess.ID)); err != nil {
		s.closeSession(sess.ID, "handshake_failed")
		return
	}
	s.handleHostControl(sess)
}

// handleHostControl services the host's control connection for the
// life of the session: RATP frames are 4-byte pings with no body, and
// RATA frames carry a 12-byte link id the relay answers with that
// link's recorded peer address.
func (s *Server) handleHostControl(sess *Session) {
	sessionHex := hex.EncodeToString(sess.ID[:])
	netlog.Printf("tcprelay: host session ready: %s (base64 %s)", sessionHex, base64.StdEncoding.EncodeToString(sess.ID[:]))

	magicBuf := make([]byte, 4)
	linkBuf := make([]byte, 12)
	for {
		if _, err := io.ReadFull(sess.HostConn, magicBuf); err != nil {
			break
		}
		s.state.Touch(sess)

		magic := decodeMagic(magicBuf)
		if magic == MagicPing {
			continue
		}

		if _, err := io.ReadFull(sess.HostConn, linkBuf); err != nil {
			break
		}
		if magic != MagicAddr {
			continue
		}

		var linkID [12]byte
		copy(linkID[:], linkBuf)
		addr, ok := s.state.LookupLinkAddress(sess, linkID)
		if !ok {
			continue
		}
		payload := append(encodeID(MagicAddr, linkID), addr[:]...)
		if err := writeFrame(sess.HostConn, payload); err != nil {
			break
		}
	}

	s.closeSession(sess.ID, "host_disconnected")
}

func (s *Server) handleClient(conn net.Conn, sessionID [12]byte) {
	sess, ok := s.state.GetSession(sessionID)
	if !ok {
		conn.Close()
		return
	}

	linkID := s.state.RegisterClient(sess, conn)
	if err := writeFrame(sess.HostConn, encodeID(MagicLink, linkID)); err != nil {
		s.state.UnregisterClient(sess, linkID)
		conn.Close()
		return
	}
	s.tryPair(sess, linkID)
}

func (s *Server) handleHostLink(conn net.Conn, linkID [12]byte) {
	sess, ok := s.state.SessionForLink(linkID)
	if !ok {
		conn.Close()
		return
	}
	s.state.RegisterHostLink(sess, linkID, conn)
	s.tryPair(sess, linkID)
}

func (s *Server) tryPair(sess *Session, linkID [12]byte) {
	client, hostLink, ready := s.state.TryPair(sess, linkID)
	if !ready {
		return
	}
	go s.bridge(client, hostLink)
}

// bridge copies data in both directions. As soon as either direction
// ends (EOF or error), both connections are closed, which also stops
// the other direction.
func (s *Server) bridge(client *ClientConn, hostLink *HostLinkConn) {
	defer func() {
		client.Conn.Close()
		hostLink.Conn.Close()
	}()

	done := make(chan struct{}, 2)

	go func() {
		buf := make([]byte, bridgeBufferSize)
		io.CopyBuffer(hostLink.Conn, client.Conn, buf)
		if tc, ok := hostLink.Conn.(*net.TCPConn); ok {
			tc.CloseWrite()
		}
		done <- struct{}{}
	}()

	go func() {
		buf := make([]byte, bridgeBufferSize)
		io.CopyBuffer(client.Conn, hostLink.Conn, buf)
		if tc, ok := client.Conn.(*net.TCPConn); ok {
			tc.CloseWrite()
		}
		done <- struct{}{}
	}()

	<-done
}

func (s *Server) closeSession(id [12]byte, reason string) {
	clients, links, hostConn, ok := s.state.RemoveSession(id)
	if !ok {
		return
	}
	for _, c := range clients {
		c.Conn.Close()
	}
	for _, l := range links {
		l.Conn.Close()
	}
	if hostConn != nil {
		hostConn.Close()
	}
	netlog.Printf("tcprelay: session closed: %s (%s)", hex.EncodeToString(id[:]), reason)
}

func writeFrame(conn net.Conn, payload []byte) error {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_, err := conn.Write(payload)
	conn.SetWriteDeadline(time.Time{})
	return err
}

func decodeMagic(buf []byte) uint32 {
	return uint32(buf[0])<<24 | uint32(buf[1])<<16 | uint32(buf[2])<<8 | uint32(buf[3])
}

func isClosedListenerError(err error) bool {
	return strings.Contains(err.Error(), "use of closed network connection")
}
