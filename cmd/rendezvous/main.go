package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/retroarch-netplay/netplay-infra/internal/config"
	"github.com/retroarch-netplay/netplay-infra/internal/rendezvous"
)

func main() {
	cfg := config.LoadRendezvousConfig()

	server := rendezvous.NewServer(
		cfg.Bind,
		cfg.Port,
		cfg.MaxRooms,
		time.Duration(cfg.RoomTimeoutSec)*time.Second,
		cfg.BufSize,
		cfg.RoomNameMax,
		cfg.PeerBurstCount,
		cfg.LogLevel,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			fmt.Fprintf(os.Stderr, "rendezvous: %v\n", err)
			os.Exit(1)
		}
	case <-sigChan:
		server.Close()
	}
}
