package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/bluesea-chat/bluesea/internal/adapters/http"
	wssignal "github.com/bluesea-chat/bluesea/internal/adapters/signal"
	"github.com/bluesea-chat/bluesea/internal/app"
	"github.com/bluesea-chat/bluesea/internal/app/orch"
	"github.com/bluesea-chat/bluesea/internal/auth"
	"github.com/bluesea-chat/bluesea/internal/config"
	"github.com/bluesea-chat/bluesea/internal/store/memory"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Secret == "" {
		log.Fatal().Msg("secret must be configured")
	}

	presence := app.NewPresence()
	rooms := app.NewRooms()
	relay := app.NewRelay(presence, rooms)
	calls := app.NewCalls(relay)

	messages := memory.NewMessageRepository()
	roomRepo := memory.NewRoomRepository()
	callLogs := memory.NewCallLogRepository()

	o := &orch.Orchestrator{
		Presence: presence,
		Rooms:    rooms,
		Relay:    relay,
		Calls:    calls,
		Messages: messages,
	}

	gate := auth.NewTokenGate(cfg.Secret, cfg.TokenTTL)
	ctl := wssignal.NewController(o, gate, cfg)

	r := router.SetupRouter(cfg, router.Deps{
		Gate:     gate,
		Signal:   ctl,
		Rooms:    roomRepo,
		Messages: messages,
		CallLogs: callLogs,
	})
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("bluesea server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
