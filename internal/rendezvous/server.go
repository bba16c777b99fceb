package rendezvous

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const magic = "RNDV1"

// Server is the UDP hole-punch coordinator. It holds a single socket and
// a single room table, both touched only from Serve's receive loop —
// there is no concurrency to guard against here.
type Server struct {
	conn        *net.UDPConn
	bind        string
	port        int
	bufSize     int
	roomNameMax int
	burstCount  int
	table       *Table
	log         zerolog.Logger
}

// NewServer builds a rendezvous Server. logLevel is parsed the same way
// the original's RENDEZVOUS_LOG_LEVEL env var was: any unrecognized
// level falls back to info.
func NewServer(bind string, port, maxRooms int, roomTimeout time.Duration, bufSize, roomNameMax, burstCount int, logLevel string) *Server {
	level, err := zerolog.ParseLevel(strings.ToLower(logLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		Level(level).
		With().Timestamp().Str("component", "rendezvous").Logger()

	return &Server{
		bind:        bind,
		port:        port,
		bufSize:     bufSize,
		roomNameMax: roomNameMax,
		burstCount:  burstCount,
		table:       NewTable(maxRooms, roomTimeout),
		log:         logger,
	}
}

// Serve opens the UDP socket and blocks, processing packets until the
// socket is closed (by Close, from another goroutine, or process exit).
func (s *Server) Serve() error {
	addr := &net.UDPAddr{IP: net.ParseIP(s.bind), Port: s.port}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("rendezvous: listen: %w", err)
	}
	s.conn = conn

	s.log.Info().Str("bind", s.bind).Int("port", s.port).Msg("listening")

	buf := make([]byte, s.bufSize)
	for {
		n, peer, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			if isClosedConnError(err) {
				return nil
			}
			return fmt.Errorf("rendezvous: read: %w", err)
		}
		if n == 0 {
			continue
		}
		s.handlePacket(buf[:n], peer)
	}
}

// Close stops Serve by closing the underlying socket.
func (s *Server) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *Server) handlePacket(data []byte, peer *net.UDPAddr) {
	text := strings.TrimSpace(string(data))
	s.log.Debug().Str("peer", peer.String()).Str("text", text).Msg("recv")

	parts := strings.Fields(text)
	if len(parts) < 3 {
		s.log.Debug().Str("peer", peer.String()).Msg("dropping malformed packet")
		return
	}

	magicTok, roleTok, roomName := parts[0], parts[1], parts[2]
	if magicTok != magic {
		s.log.Debug().Str("peer", peer.String()).Msg("dropping packet with bad magic")
		return
	}

	role := roleTok[:1]
	if len(roomName) > s.roomNameMax-1 {
		roomName = roomName[:s.roomNameMax-1]
	}
	if roomName == "" {
		return
	}

	now := time.Now()
	s.table.Prune(now)

	room, created := s.table.FindOrCreate(roomName)
	if room == nil {
		s.log.Warn().Str("room", roomName).Msg("room limit reached; dropping")
		return
	}
	if created {
		s.log.Info().Str("room", roomName).Msg("room created")
	}

	switch role {
	case "H":
		room.HostAddr = peer
		room.HostSeen = now
		room.HasHost = true
		s.log.Info().Str("room", roomName).Str("peer", peer.String()).Msg("host registered")
	case "C":
		room.ClientAddr = peer
		room.ClientSeen = now
		room.HasClient = true
		s.log.Info().Str("room", roomName).Str("peer", peer.String()).Msg("client registered")
	default:
		s.log.Debug().Str("peer", peer.String()).Msg("dropping packet with unknown role")
		return
	}

	if room.HasHost && room.HasClient {
		s.log.Info().Str("room", roomName).
			Str("host", room.HostAddr.String()).
			Str("client", room.ClientAddr.String()).
			Msg("exchanging peers")
		s.sendPeerBurst(room.HostAddr, room.ClientAddr)
		s.sendPeerBurst(room.ClientAddr, room.HostAddr)
	} else {
		s.log.Debug().Str("room", roomName).Msg("waiting for peer")
		s.sendWait(peer, roomName)
	}
}

func (s *Server) sendWait(to *net.UDPAddr, room string) {
	msg := fmt.Sprintf("WAIT %s", room)
	s.conn.WriteToUDP([]byte(msg), to)
}

func (s *Server) sendPeer(to, peerAddr *net.UDPAddr) {
	msg := fmt.Sprintf("PEER %s %s", peerAddr.IP.String(), strconv.Itoa(peerAddr.Port))
	s.conn.WriteToUDP([]byte(msg), to)
}

func (s *Server) sendPeerBurst(to, peerAddr *net.UDPAddr) {
	for i := 0; i < s.burstCount; i++ {
		s.sendPeer(to, peerAddr)
	}
}

func isClosedConnError(err error) bool {
	return strings.Contains(err.Error(), "use of closed network connection")
}
