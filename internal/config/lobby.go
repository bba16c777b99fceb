package config

// LobbyConfig holds the lobby registry's tunable settings.
type LobbyConfig struct {
	Bind        string
	Port        int
	RoomTTL     int // seconds
	MaxRooms    int
	MITMConfig  string // path to mitm_servers.json
	LogFile     string
}

// LoadLobbyConfig reads LobbyConfig from the environment (and an
// optional .env file), falling back to the defaults the original lobby
// server shipped with.
func LoadLobbyConfig() *LobbyConfig {
	LoadDotEnv()
	return &LobbyConfig{
		Bind:       GetString("LOBBY_BIND", "0.0.0.0"),
		Port:       GetInt("LOBBY_PORT", 55435),
		RoomTTL:    GetInt("LOBBY_ROOM_TTL", 180),
		MaxRooms:   GetInt("LOBBY_MAX_ROOMS", 512),
		MITMConfig: GetString("LOBBY_MITM_CONFIG", "mitm_servers.json"),
		LogFile:    GetString("LOBBY_LOG_FILE", ""),
	}
}
