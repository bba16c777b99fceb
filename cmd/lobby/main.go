package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/retroarch-netplay/netplay-infra/internal/config"
	"github.com/retroarch-netplay/netplay-infra/internal/lobby"
	"github.com/retroarch-netplay/netplay-infra/internal/netlog"
)

func main() {
	cfg := config.LoadLobbyConfig()
	netlog.Init(cfg.LogFile)
	defer netlog.Close()

	instanceID := uuid.New().String()
	netlog.Printf("lobby: starting (instance=%s)", instanceID)
	netlog.Printf("lobby: bind=%s port=%d room_ttl=%ds max_rooms=%d mitm_config=%s",
		cfg.Bind, cfg.Port, cfg.RoomTTL, cfg.MaxRooms, cfg.MITMConfig)

	server := lobby.NewServer(cfg.Bind, cfg.Port, time.Duration(cfg.RoomTTL)*time.Second, cfg.MaxRooms, cfg.MITMConfig)

	stop := make(chan struct{})
	lobby.WatchMITMConfig(cfg.MITMConfig, stop)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("lobby: server error: %v", err)
		}
	case <-sigChan:
		netlog.Printf("lobby: shutdown signal received")
	}

	close(stop)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		netlog.Printf("lobby: error during shutdown: %v", err)
	}

	netlog.Printf("lobby: stopped")
}
