package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/retroarch-netplay/netplay-infra/internal/config"
	"github.com/retroarch-netplay/netplay-infra/internal/netlog"
	"github.com/retroarch-netplay/netplay-infra/internal/udprelay"
)

func main() {
	cfg := config.LoadUDPRelayConfig()
	netlog.Init(cfg.LogFile)
	defer netlog.Close()

	instanceID := uuid.New().String()
	netlog.Printf("udprelay: starting (instance=%s)", instanceID)

	server := udprelay.NewServer(
		cfg.Bind,
		cfg.Port,
		cfg.Magic,
		time.Duration(cfg.SessionTTL*float64(time.Second)),
		time.Duration(cfg.ClientTTL*float64(time.Second)),
		cfg.MaxSessions,
		cfg.MaxPacket,
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
			netlog.Printf("udprelay: server error: %v", err)
		}
	case <-sigChan:
		netlog.Printf("udprelay: shutdown signal received")
	}

	server.Close()

	netlog.Printf("udprelay: stopped")
}
