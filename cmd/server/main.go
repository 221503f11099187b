package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"pulsechat/auth"
	"pulsechat/domain/event"
	"pulsechat/gateway"
	"pulsechat/internal"
	"pulsechat/repositories"
	"pulsechat/runtime"
	"pulsechat/runtime/workers"
	"pulsechat/services"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// This pattern ensures all 'defer' statements (like database cleanup) are executed before the
// program exits, and keeps the initialization logic testable.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()

	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	logger := internal.GetLoggerFromString(config.LogLevel)
	ctx := context.Background()

	// 2. Database (BadgerDB)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		// Defer ensures the database lock is released and buffers are flushed.
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	blugeCfg := bluge.DefaultConfig(config.BlugeFilepath)
	blugeWriter, err := bluge.OpenWriter(blugeCfg)
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open bluge writer: %w", err)
	}
	defer func() {
		logger.Info("Closing Bluge...")
		_ = blugeWriter.Close()
	}()

	// 3. Repositories & Services
	userRepository := repositories.NewUserRepository(db)
	contactRepository := repositories.NewContactRepository(db)
	messageRepository := repositories.NewMessageRepository(db, logger, config.LimitMessages)
	groupRepository := repositories.NewGroupRepository(db)
	messageIndex := repositories.NewMessageIndex(blugeWriter)

	streaks := services.NewStreakTracker(contactRepository, messageRepository, logger)
	userService := services.NewUserService(userRepository, []byte(config.ServerSecret), config.AuthTokenDuration)
	contactService := services.NewContactService(contactRepository, userRepository, streaks, logger)
	groupService := services.NewGroupService(groupRepository, userRepository)
	messageService := services.NewMessageService(
		messageRepository, messageIndex, userRepository, groupRepository,
		contactService, streaks, logger, config.MaxContentLength,
	)

	// 4. Live runtime: registry, limiter, router
	rooms := roomSource{contacts: contactService, groups: groupService}
	registry := runtime.NewRegistry(
		logger,
		auth.Verifier{Secret: []byte(config.ServerSecret)},
		rooms,
		config.MaxSessionsPerUser,
		config.SessionTimeout,
	)
	limiter := runtime.NewRateLimiter(runtime.DefaultRules())
	router := runtime.NewRouter(logger, registry, groupService, limiter)

	// 5. Gateways
	ws := gateway.NewWSGateway(
		logger, registry, router, limiter,
		userService, messageService, contactService,
		config.ConnectionBufferSize, config.DeliveryTimeout,
	)
	rest := gateway.NewRESTGateway(
		logger, userService, contactService, messageService, groupService,
		config.SearchResultLimit,
	)

	mux := chi.NewRouter()
	rest.Mount(mux, ws)

	// 6. Context & Signals
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 7. Background workers
	onOffline := func(identity string) {
		if err := userService.SetOnline(identity, false); err != nil {
			logger.Warn("Failed to persist offline flag", "user", identity, "error", err)
		}
		user, err := userService.GetUser(identity)
		if err != nil {
			return
		}
		peers, err := contactService.FriendPeers(identity)
		if err != nil {
			return
		}
		evt := event.UserStatus{UserID: identity, Username: user.Username, Status: "offline"}
		for _, peer := range peers {
			router.NotifyDirect(peer, evt)
		}
	}
	sup := workers.NewSupervisor(logger)
	sup.Add(workers.NewSweeperWorker(registry, config.SweepInterval, onOffline, logger))
	go sup.Run(ctx)

	// 8. HTTP Server
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{Addr: address, Handler: mux}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 9. Wait for Stop or Error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		return exitRuntime, err
	}

	// 10. Final Cleanup (Graceful Shutdown)
	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}
	sup.Stop()
	logger.Info("Program stopped cleanly")

	return exitOK, nil
}

// roomSource joins the two services that know which rooms an identity
// belongs to.
type roomSource struct {
	contacts services.IContactService
	groups   services.IGroupService
}

func (r roomSource) FriendPeers(identity string) ([]string, error) {
	return r.contacts.FriendPeers(identity)
}

func (r roomSource) GroupsFor(identity string) ([]string, error) {
	return r.groups.GroupsFor(identity)
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG)
	} else {
		options = options.WithLoggingLevel(badger.INFO)
	}

	return options
}
