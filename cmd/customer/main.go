package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"support-chat/auth"
	"support-chat/backend"
	"support-chat/cache"
	"support-chat/domain"
	apperrors "support-chat/errors"
	"support-chat/internal"
	"support-chat/reconcile"
	"support-chat/repositories"
	"support-chat/rooms"
	"support-chat/session"
	"support-chat/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run owns the whole widget lifecycle so every defer (badger close,
// channel disconnect) executes before the process exits.
func run() error {
	// 1. Configuration & logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	claims, err := auth.ParseBearer(config.BearerToken)
	if err != nil {
		return err
	}
	if claims.Role != domain.RoleUser {
		return fmt.Errorf("the customer widget needs a customer credential, got role %q", claims.Role)
	}

	// 2. Durable local cache
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("local cache opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing local cache...")
		_ = db.Close()
	}()

	// 3. Wiring
	store := cache.NewStore(repositories.NewMessageRepository(db, log), log)
	api := backend.NewClient(config.APIBaseURL, config.BearerToken, config.HTTPTimeout, log)
	registry := rooms.NewRegistry(api, repositories.NewRoomRepository(db, log), log)
	channel := transport.NewChannel(config.WebsocketURL, config.BearerToken, domain.RoleUser, log)
	defer channel.Disconnect()
	engine := reconcile.NewEngine(reconcile.HeuristicPolicy{Window: config.ReconcileWindow})

	chat := session.NewSession(claims, registry, store, channel, api, engine, log)

	// 4. Context & signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Open the widget: resolve room, load history, connect
	if err := chat.Open(ctx); err != nil {
		return fmt.Errorf("chat unavailable: %w", err)
	}
	defer chat.Close()

	for _, message := range chat.Messages() {
		printMessage(message)
	}

	// The CLI registers its own render scope next to the session's;
	// neither evicts the other.
	unsubscribe := channel.Dispatcher().Subscribe("cli", func(f transport.Frame) {
		if f.Event == transport.EventNewMessage && f.Message != nil &&
			f.Message.RoomID == chat.Room().ID && f.Message.Role == domain.RoleAdmin {
			printMessage(*f.Message)
		}
	})
	defer unsubscribe()

	log.Info(">>> Support chat open. Type a message, /close, /open or /quit.",
		"room", chat.Room().ID, "customer", claims.Name)

	// 6. Input loop
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info("Widget stopped")
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			switch strings.TrimSpace(line) {
			case "/quit":
				return nil
			case "/close":
				chat.Close()
				log.Info("Widget closed; the connection stays up")
			case "/open":
				if err := chat.Open(ctx); err != nil {
					log.Error("reopen failed", "error", err)
				}
			default:
				if err := chat.Send(line); err != nil {
					switch {
					case errors.Is(err, apperrors.ErrEmptyMessage):
						// Nothing to do for blank input.
					case errors.Is(err, apperrors.ErrNotConnected):
						log.Warn("Offline, message not sent; try again shortly")
					default:
						log.Error("send failed, message rolled back", "error", err)
					}
				}
			}
		}
	}
}

func printMessage(message domain.Message) {
	prefix := message.Sender.Name
	if message.Role == domain.RoleAdmin {
		prefix = "support"
	}
	fmt.Printf("[%s] %s: %s\n", message.SentAt.Format(time.TimeOnly), prefix, message.Content)
}
