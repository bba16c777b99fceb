package config

// UDPRelayConfig holds the UDP relay forwarder's settings.
type UDPRelayConfig struct {
	Bind        string
	Port        int
	Magic       string
	SessionTTL  float64 // seconds
	ClientTTL   float64 // seconds
	MaxSessions int
	MaxPacket   int
	LogFile     string
}

func LoadUDPRelayConfig() *UDPRelayConfig {
	LoadDotEnv()
	return &UDPRelayConfig{
		Bind:        GetString("RELAY_BIND", "0.0.0.0"),
		Port:        GetInt("RELAY_PORT", 7001),
		Magic:       GetString("RELAY_MAGIC", "RARELAY1"),
		SessionTTL:  GetFloat("RELAY_SESSION_TTL", 120.0),
		ClientTTL:   GetFloat("RELAY_CLIENT_TTL", 30.0),
		MaxSessions: GetInt("RELAY_MAX_SESSIONS", 512),
		MaxPacket:   GetInt("RELAY_MAX_PACKET", 8192),
		LogFile:     GetString("RELAY_LOG_FILE", ""),
	}
}
