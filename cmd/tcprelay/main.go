package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/retroarch-netplay/netplay-infra/internal/config"
	"github.com/retroarch-netplay/netplay-infra/internal/netlog"
	"github.com/retroarch-netplay/netplay-infra/internal/tcprelay"
)

func main() {
	cfg := config.LoadTCPRelayConfig()
	netlog.Init(cfg.LogFile)
	defer netlog.Close()

	instanceID := uuid.New().String()
	netlog.Printf("tcprelay: starting (instance=%s)", instanceID)

	server := tcprelay.NewServer(
		cfg.Bind,
		cfg.Port,
		time.Duration(cfg.PendingTTL*float64(time.Second)),
		cfg.MaxSessions,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			netlog.Printf("tcprelay: server error: %v", err)
		}
	case <-sigChan:
		netlog.Printf("tcprelay: shutdown signal received")
	}

	server.Close()

	netlog.Printf("tcprelay: stopped")
}
