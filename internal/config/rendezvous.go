package config

// RendezvousConfig holds the UDP rendezvous coordinator's settings.
type RendezvousConfig struct {
	Bind            string
	Port            int
	MaxRooms        int
	RoomNameMax     int
	BufSize         int
	RoomTimeoutSec  int
	PeerBurstCount  int
	LogLevel        string // DEBUG/INFO/WARN/ERROR, consumed by internal/rendezvous's zerolog setup
}

func LoadRendezvousConfig() *RendezvousConfig {
	LoadDotEnv()
	return &RendezvousConfig{
		Bind:           GetString("RENDEZVOUS_BIND", "0.0.0.0"),
		Port:           GetInt("RENDEZVOUS_PORT", 7000),
		MaxRooms:       GetInt("RENDEZVOUS_MAX_ROOMS", 128),
		RoomNameMax:    GetInt("RENDEZVOUS_ROOM_NAME_MAX", 64),
		BufSize:        GetInt("RENDEZVOUS_BUF_SIZE", 256),
		RoomTimeoutSec: GetInt("RENDEZVOUS_ROOM_TIMEOUT_SEC", 30),
		PeerBurstCount: GetInt("RENDEZVOUS_PEER_BURST_COUNT", 3),
		LogLevel:       GetString("RENDEZVOUS_LOG_LEVEL", "INFO"),
	}
}
