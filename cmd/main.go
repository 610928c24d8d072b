package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/xenn00/classroom-chat/config"
	event_handler "github.com/xenn00/classroom-chat/internal/handlers/event-handler"
	chat_repo "github.com/xenn00/classroom-chat/internal/repo/chat"
	memory_repo "github.com/xenn00/classroom-chat/internal/repo/memory"
	room_repo "github.com/xenn00/classroom-chat/internal/repo/room"
	user_repo "github.com/xenn00/classroom-chat/internal/repo/user"
	"github.com/xenn00/classroom-chat/internal/routers"
	chat_service "github.com/xenn00/classroom-chat/internal/use-case/chat-case"
	"github.com/xenn00/classroom-chat/internal/use-case/core"
	moderation_service "github.com/xenn00/classroom-chat/internal/use-case/moderation-case"
	poll_service "github.com/xenn00/classroom-chat/internal/use-case/poll-case"
	room_service "github.com/xenn00/classroom-chat/internal/use-case/room-case"
	user_service "github.com/xenn00/classroom-chat/internal/use-case/user-case"
	"github.com/xenn00/classroom-chat/internal/utils"
	"github.com/xenn00/classroom-chat/internal/websocket"
	"github.com/xenn00/classroom-chat/internal/worker"
	"github.com/xenn00/classroom-chat/state"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// initialize the application
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	conf := config.Conf

	appState, err := state.InitAppState(ctx, stop)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize application state")
	}
	defer appState.Close()

	wsHub := websocket.NewHub()
	go wsHub.Run()
	log.Info().Msg("Websocket hub initialized")

	deps := &core.Deps{
		Hub:          wsHub,
		StoreTimeout: conf.STORE.Timeout,
		HistoryLimit: conf.ROOM.HistoryLimit,
	}
	if conf.STORE.Driver == "memory" {
		store := memory_repo.NewStore()
		deps.Users, deps.Rooms, deps.Chats = store, store, store
	} else {
		deps.Users = user_repo.NewUserRepo(appState)
		deps.Rooms = room_repo.NewRoomRepo(appState)
		deps.Chats = chat_repo.NewChatRepo(appState)
	}

	locks := utils.NewKeyMutex()
	roomService := room_service.NewRoomService(deps, conf.ROOM.DefaultDuration)
	chatService := chat_service.NewChatService(deps, locks)
	pollService := poll_service.NewPollService(deps, locks)
	moderationService := moderation_service.NewModerationService(deps, locks)
	userService := user_service.NewUserService(deps.Users, appState.Redis, appState.JwtSecret.Private, conf.AUTH.TokenTTL)

	dispatcher := event_handler.NewEventHandler(roomService, chatService, pollService, moderationService)
	wsHandler := websocket.NewWebSocketHandler(
		wsHub,
		dispatcher,
		websocket.JWTWebSocketAuth(appState.JwtSecret.Public, appState.Redis),
		conf.WS.MaxConnections,
		websocket.RateLimitConfig{
			Enabled:          true,
			ConnectionsPerIP: conf.WS.ConnectionsPerIP,
			EventsPerSecond:  conf.WS.EventsPerSecond,
			EventBurst:       conf.WS.EventBurst,
		},
	)
	log.Info().Msg("Websocket handler initialized")

	reaper, err := worker.NewReaper(deps, conf.REAPER.Interval, conf.REAPER.Cron, conf.REAPER.RoomTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure reaper")
	}
	reaper.Start(ctx)

	r := routers.NewRouter(routers.Dependencies{
		PublicKey: appState.JwtSecret.Public,
		Redis:     appState.Redis,
		Users:     userService,
		Rooms:     roomService,
		Chats:     chatService,
		Hub:       wsHub,
		WSHandler: wsHandler,
	})

	server := &http.Server{
		Addr:        conf.App.Port,
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// serve the application
	go func() {
		log.Info().Msgf("Starting server on http://localhost%s", conf.App.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutdown initiated...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	} else {
		log.Info().Msg("Server exited gracefully.")
	}

	wsHub.Close()
	reaper.Wait()
}
