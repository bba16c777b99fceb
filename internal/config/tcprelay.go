package config

// TCPRelayConfig holds the TCP multiplexing relay's settings.
type TCPRelayConfig struct {
	Bind        string
	Port        int
	PendingTTL  float64 // seconds
	MaxSessions int
	LogFile     string
}

func LoadTCPRelayConfig() *TCPRelayConfig {
	LoadDotEnv()
	return &TCPRelayConfig{
		Bind:        GetString("TCP_RELAY_BIND", "0.0.0.0"),
		Port:        GetInt("TCP_RELAY_PORT", 7002),
		PendingTTL:  GetFloat("TCP_RELAY_PENDING_TTL", 30.0),
		MaxSessions: GetInt("TCP_RELAY_MAX_SESSIONS", 512),
		LogFile:     GetString("TCP_RELAY_LOG_FILE", ""),
	}
}
