package lobby

import (
	"encoding/json"
	"os"

	"github.com/fsnotify/fsnotify"

	"github.com/retroarch-netplay/netplay-infra/internal/netlog"
)

// MITMEntry is one cooperative relay host published under a short name in
// mitm_servers.json.
type MITMEntry struct {
	Addr string `json:"addr"`
	Port int    `json:"port"`
}

// MITMConfig maps a short mitm_server name to its resolved endpoint.
type MITMConfig map[string]MITMEntry

// LoadMITMConfig re-reads path from disk on every call. This is
// intentional: the lobby never caches the MITM mapping, so operators can
// edit mitm_servers.json and have it take effect on the very next
// request. A missing or malformed file is treated as an empty mapping,
// never an error.
func LoadMITMConfig(path string) MITMConfig {
	data, err := os.ReadFile(path)
	if err != nil {
		return MITMConfig{}
	}
	var cfg MITMConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return MITMConfig{}
	}
	if cfg == nil {
		cfg = MITMConfig{}
	}
	return cfg
}

// WatchMITMConfig logs when path changes on disk. It never caches the
// config and never gates or replaces the per-request LoadMITMConfig call
// above — it exists purely so operators can see in the log that their
// edit was picked up. If the watch cannot be established (e.g. the file
// does not exist yet), it logs that and returns without watching; /add
// and /tunnel keep working against an empty mapping until the file
// appears.
func WatchMITMConfig(path string, stop <-chan struct{}) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		netlog.Printf("lobby: could not start mitm config watcher: %v", err)
		return
	}

	if err := watcher.Add(path); err != nil {
		netlog.Printf("lobby: not watching %s for changes: %v", path, err)
		watcher.Close()
		return
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				netlog.Printf("lobby: mitm config changed on disk: %s (%s)", event.Name, event.Op)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				netlog.Printf("lobby: mitm config watcher error: %v", err)
			case <-stop:
				return
			}
		}
	}()
}
