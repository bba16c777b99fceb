// Package netlog provides a tee-to-file logger shared by the lobby,
// UDP relay, and TCP relay services: every Printf message goes to stdout
// through a standard-library log.Logger, and — once Init has been called with a
// log file path — also to a dedicated per-service log file.
package netlog

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"
)

var stdout = log.New(os.Stdout, "", log.LstdFlags)

var state struct {
	mu       sync.Mutex
	file     *os.File
	logger   *log.Logger
	initOnce sync.Once
}

// Init opens path for appending and starts teeing future Printf calls
// to it. Safe to call multiple times; only the first call with a
// non-empty path takes effect. An empty path disables file teeing.
func Init(path string) {
	if path == "" {
		return
	}
	state.initOnce.Do(func() {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("netlog: could not open log file %s: %v (logs will only go to stdout)", path, err)
			return
		}
		state.mu.Lock()
		state.file = f
		state.logger = log.New(f, "", 0)
		state.mu.Unlock()
		log.Printf("netlog: log file initialized: %s", path)
	})
}

// Printf writes a message to stdout and, if Init succeeded, to the
// dedicated log file with a timestamp prefix.
func Printf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	stdout.Print(msg)

	state.mu.Lock()
	defer state.mu.Unlock()
	if state.logger != nil {
		state.logger.Printf("%s %s", time.Now().Format("2006/01/02 15:04:05"), msg)
	}
}

// Close closes the dedicated log file, if one was opened.
func Close() {
	state.mu.Lock()
	defer state.mu.Unlock()
	if state.file != nil {
		state.file.Close()
		state.file = nil
		state.logger = nil
	}
}
