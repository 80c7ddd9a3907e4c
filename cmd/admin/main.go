package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"

	"support-chat/auth"
	"support-chat/backend"
	"support-chat/cache"
	"support-chat/domain"
	apperrors "support-chat/errors"
	"support-chat/internal"
	"support-chat/moderation"
	"support-chat/reconcile"
	"support-chat/repositories"
	"support-chat/session"
	"support-chat/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

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
	if claims.Role != domain.RoleAdmin {
		return fmt.Errorf("the console needs an admin credential, got role %q", claims.Role)
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

	filter, err := moderation.NewFilter(config.BannedWords, '*')
	if err != nil {
		return fmt.Errorf("banned words list: %w", err)
	}

	// 3. Wiring
	store := cache.NewStore(repositories.NewMessageRepository(db, log), log)
	api := backend.NewClient(config.APIBaseURL, config.BearerToken, config.HTTPTimeout, log)
	channel := transport.NewChannel(config.WebsocketURL, config.BearerToken, domain.RoleAdmin, log)
	defer channel.Disconnect()
	engine := reconcile.NewEngine(reconcile.HeuristicPolicy{Window: config.ReconcileWindow})

	console := session.NewMultiplexer(claims, api, store, channel, engine, filter, log)

	// 4. Context & signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := console.Open(ctx); err != nil {
		return err
	}
	defer console.Close()

	// Live render of the selected room's inbound traffic.
	unsubscribe := channel.Dispatcher().Subscribe("cli", func(f transport.Frame) {
		if f.Event != transport.EventNewMessage || f.Message == nil {
			return
		}
		if selected, ok := console.Selected(); ok && selected.ID == f.Message.RoomID {
			printMessage(filter, *f.Message)
		}
	})
	defer unsubscribe()

	printRooms(console.Rooms())
	log.Info(">>> Admin console ready. /rooms, /select <roomId>, /quit, or type to reply.",
		"admin", claims.Name)

	// 5. Input loop
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
			log.Info("Console stopped")
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := handle(ctx, console, filter, line); err != nil {
				if errors.Is(err, errQuit) {
					return nil
				}
				log.Error("command failed", "error", err)
			}
		}
	}
}

var errQuit = errors.New("quit")

func handle(ctx context.Context, console *session.Multiplexer, filter *moderation.Filter, line string) error {
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "/quit":
		return errQuit
	case trimmed == "/rooms":
		if err := console.Open(ctx); err != nil {
			return err
		}
		printRooms(console.Rooms())
		return nil
	case strings.HasPrefix(trimmed, "/select "):
		roomID, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(trimmed, "/select ")))
		if err != nil {
			return fmt.Errorf("usage: /select <roomId>")
		}
		if err := console.SelectRoom(ctx, domain.RoomID(roomID)); err != nil {
			return err
		}
		for _, message := range console.Visible() {
			printMessage(nil, message)
		}
		return nil
	case trimmed == "":
		return nil
	default:
		err := console.Send(line)
		if errors.Is(err, apperrors.ErrNoRoomSelected) {
			return fmt.Errorf("select a room first: /select <roomId>")
		}
		return err
	}
}

func printRooms(rooms []domain.Room) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Room", "Customer ID", "Customer"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	for _, room := range rooms {
		table.Append([]string{
			strconv.Itoa(int(room.ID)),
			strconv.Itoa(room.CustomerID),
			room.CustomerName,
		})
	}
	table.Render()
}

// printMessage renders one line, customer content masked when a filter is
// provided (Visible already masks, so callers pass nil for those).
func printMessage(filter *moderation.Filter, message domain.Message) {
	content := message.Content
	name := message.Sender.Name
	if message.Role == domain.RoleUser {
		if filter != nil {
			content = filter.Mask(content)
		}
		name = color.New(color.FgCyan).Render(name)
	} else {
		name = color.New(color.FgGreen).Render(name)
	}
	fmt.Printf("[%s] %s: %s\n", message.SentAt.Format(time.TimeOnly), name, content)
}
