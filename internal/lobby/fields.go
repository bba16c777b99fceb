package lobby

import (
	"net/url"
	"strconv"
	"strings"
)

// HostMethod enumerates how a client should connect to a hosted room.
type HostMethod int

const (
	HostMethodUnknown HostMethod = 0
	HostMethodManual  HostMethod = 1
	HostMethodUPnP    HostMethod = 2 // reserved, never emitted
	HostMethodMITM    HostMethod = 3
)

// Fields is one room's advertised hosting metadata. JSON tags match the
// wire field names the original lobby emits in both /add's plain-text
// response and /list's JSON envelope.
type Fields struct {
	Username             string     `json:"username"`
	CoreName             string     `json:"core_name"`
	CoreVersion          string     `json:"core_version"`
	GameName             string     `json:"game_name"`
	GameCRC              string     `json:"game_crc"`
	Port                 int        `json:"port"`
	RetroArchVersion     string     `json:"retroarch_version"`
	Frontend             string     `json:"frontend"`
	SubsystemName        string     `json:"subsystem_name"`
	PlayerCount          int        `json:"player_count"`
	SpectatorCount       int        `json:"spectator_count"`
	HasPassword          bool       `json:"has_password"`
	HasSpectatePassword  bool       `json:"has_spectate_password"`
	GGPO                 bool       `json:"ggpo"`
	Rendezvous           bool       `json:"rendezvous"`
	RendezvousServer     string     `json:"rendezvous_server"`
	RendezvousRoom       string     `json:"rendezvous_room"`
	RendezvousPort       int        `json:"rendezvous_port"`
	GGPORelay            bool       `json:"ggpo_relay"`
	GGPORelayServer      string     `json:"ggpo_relay_server"`
	GGPORelaySession     string     `json:"ggpo_relay_session"`
	GGPORelayPort        int        `json:"ggpo_relay_port"`
	MITMServer           string     `json:"mitm_server"`
	IP                   string     `json:"ip"`
	Connectable          bool       `json:"connectable"`
	IsRetroArch          bool       `json:"is_retroarch"`
	HostMethod           HostMethod `json:"host_method"`
	MITMIP               string     `json:"mitm_ip"`
	MITMPort             int        `json:"mitm_port"`
	MITMSession          string     `json:"mitm_session"`
	Country              string     `json:"country"`
}

func coerceBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func coerceInt(v string, def int) int {
	v = strings.TrimSpace(v)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func coerceHex(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	return strings.ToUpper(v)
}

// ExtractFields builds a Fields value from a POST /add form body and the
// caller's observed client IP. It mirrors the original lobby's coercion
// rules exactly: unknown/empty values default to "" or 0, game_crc is
// uppercased, and legacy use_ggpo_relay is honored when ggpo_relay is
// absent.
func ExtractFields(form url.Values, clientIP string, mitm MITMConfig) Fields {
	ggpoRelayRaw := form.Get("ggpo_relay")
	if ggpoRelayRaw == "" {
		ggpoRelayRaw = form.Get("use_ggpo_relay")
	}

	f := Fields{
		Username:            form.Get("username"),
		CoreName:            form.Get("core_name"),
		CoreVersion:         form.Get("core_version"),
		GameName:            form.Get("game_name"),
		GameCRC:             coerceHex(form.Get("game_crc")),
		Port:                coerceInt(form.Get("port"), 0),
		RetroArchVersion:    form.Get("retroarch_version"),
		Frontend:            form.Get("frontend"),
		SubsystemName:       form.Get("subsystem_name"),
		PlayerCount:         coerceInt(form.Get("player_count"), 0),
		SpectatorCount:      coerceInt(form.Get("spectator_count"), 0),
		HasPassword:         coerceBool(form.Get("has_password")),
		HasSpectatePassword: coerceBool(form.Get("has_spectate_password")),
		GGPO:                coerceBool(form.Get("ggpo")),
		Rendezvous:          coerceBool(form.Get("rendezvous")),
		RendezvousServer:    form.Get("rendezvous_server"),
		RendezvousRoom:      form.Get("rendezvous_room"),
		RendezvousPort:      coerceInt(form.Get("rendezvous_port"), 0),
		GGPORelay:           coerceBool(ggpoRelayRaw),
		GGPORelayServer:     form.Get("ggpo_relay_server"),
		GGPORelaySession:    form.Get("ggpo_relay_session"),
		GGPORelayPort:       coerceInt(form.Get("ggpo_relay_port"), 0),
		MITMServer:          form.Get("mitm_server"),
		IP:                  clientIP,
		Connectable:         true,
		IsRetroArch:         true,
		MITMSession:         form.Get("mitm_session"),
		Country:             form.Get("country"),
	}

	if coerceBool(form.Get("force_mitm")) {
		f.HostMethod = HostMethodMITM
	} else {
		f.HostMethod = HostMethodManual
	}

	customAddr := form.Get("mitm_custom_addr")
	customPort := coerceInt(form.Get("mitm_custom_port"), 0)
	switch {
	case customAddr != "":
		f.MITMIP = customAddr
		f.MITMPort = customPort
	case f.MITMServer != "":
		entry := mitm[f.MITMServer]
		f.MITMIP = entry.Addr
		f.MITMPort = entry.Port
	default:
		f.MITMIP = ""
		f.MITMPort = 0
	}

	return f
}

// NaturalKey is the dedup key used to decide whether an /add POST updates
// an existing room or creates a new one.
func (f Fields) NaturalKey() string {
	return f.IP + ":" + strconv.Itoa(f.Port) + ":" + f.Username + ":" + f.GameCRC
}

func boolFlag(b bool) int {
	if b {
		return 1
	}
	return 0
}

// PlainResponse renders the exact ordered key=value lines the original
// lobby sends back from /add.
func (f Fields) PlainResponse(roomID int) string {
	var b strings.Builder
	line := func(key, value string) {
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(value)
		b.WriteByte('\n')
	}
	line("id", strconv.Itoa(roomID))
	line("username", f.Username)
	line("core_name", f.CoreName)
	line("core_version", f.CoreVersion)
	line("game_name", f.GameName)
	line("game_crc", f.GameCRC)
	line("retroarch_version", f.RetroArchVersion)
	line("frontend", f.Frontend)
	line("subsystem_name", f.SubsystemName)
	line("ip", f.IP)
	line("port", strconv.Itoa(f.Port))
	line("host_method", strconv.Itoa(int(f.HostMethod)))
	line("ggpo", strconv.Itoa(boolFlag(f.GGPO)))
	line("rendezvous", strconv.Itoa(boolFlag(f.Rendezvous)))
	line("rendezvous_server", f.RendezvousServer)
	line("rendezvous_room", f.RendezvousRoom)
	line("rendezvous_port", strconv.Itoa(f.RendezvousPort))
	line("ggpo_relay", strconv.Itoa(boolFlag(f.GGPORelay)))
	line("ggpo_relay_server", f.GGPORelayServer)
	line("ggpo_relay_session", f.GGPORelaySession)
	line("ggpo_relay_port", strconv.Itoa(f.GGPORelayPort))
	line("has_password", strconv.Itoa(boolFlag(f.HasPassword)))
	line("has_spectate_password", strconv.Itoa(boolFlag(f.HasSpectatePassword)))
	line("country", f.Country)
	line("connectable", strconv.Itoa(boolFlag(f.Connectable)))
	return b.String()
}
