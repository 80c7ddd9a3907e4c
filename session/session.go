// Package session orchestrates room resolution, the message cache and the
// transport channel: one Session per customer, one Multiplexer for the
// whole admin side.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"support-chat/auth"
	"support-chat/cache"
	"support-chat/domain"
	apperrors "support-chat/errors"
	"support-chat/reconcile"
	"support-chat/rooms"
	"support-chat/transport"
)

// Transport is the slice of the channel the sessions depend on.
type Transport interface {
	Connect(ctx context.Context) error
	IsConnected() bool
	Send(transport.Frame) error
	Dispatcher() *transport.Dispatcher
}

// HistoryFetcher is the customer-scoped history endpoint.
type HistoryFetcher interface {
	CustomerMessages(ctx context.Context, customerID int, roomID domain.RoomID) ([]domain.Message, error)
}

type State int

const (
	Closed State = iota
	Opening
	Open
)

// Session drives the chat widget of one customer through
// Closed -> Opening -> Open. Opening resolves the room and loads history;
// Open installs exactly one scoped transport subscription which Close
// releases again. Closing does not disconnect the channel: the widget may
// reopen at any moment and the connection is shared state.
type Session struct {
	claims   auth.Claims
	registry *rooms.Registry
	cache    *cache.Store
	channel  Transport
	history  HistoryFetcher
	engine   *reconcile.Engine
	log      *slog.Logger

	mu          sync.Mutex
	state       State
	room        domain.Room
	unsubscribe func()
}

func NewSession(
	claims auth.Claims,
	registry *rooms.Registry,
	store *cache.Store,
	channel Transport,
	history HistoryFetcher,
	engine *reconcile.Engine,
	log *slog.Logger,
) *Session {
	return &Session{
		claims:   claims,
		registry: registry,
		cache:    store,
		channel:  channel,
		history:  history,
		engine:   engine,
		log:      log,
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Room returns the resolved room. Zero value until Open succeeds.
func (s *Session) Room() domain.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room
}

// Open brings the session up. Room resolution failure aborts the opening
// entirely; a history fetch failure does not, the cached placeholder
// stands in until the next successful load. Opening also connects the
// channel when the widget is the first consumer to need it.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	if s.state == Open {
		s.mu.Unlock()
		return nil
	}
	s.state = Opening
	s.mu.Unlock()

	room, err := s.registry.Resolve(ctx, s.claims.CustomerID, s.claims.Name)
	if err != nil {
		s.mu.Lock()
		s.state = Closed
		s.mu.Unlock()
		return err
	}

	s.cache.Load(room.CustomerID, room.ID)
	if history, err := s.history.CustomerMessages(ctx, room.CustomerID, room.ID); err != nil {
		s.log.Warn("serving cached history",
			"room", room.ID, "error", fmt.Errorf("%w: %v", apperrors.ErrHistoryFetch, err))
	} else {
		s.cache.Replace(room.CustomerID, room.ID, history)
	}

	if !s.channel.IsConnected() {
		if err := s.channel.Connect(ctx); err != nil {
			// The widget still opens on cached data; sends stay rejected
			// until the channel comes up.
			s.log.Warn("channel unavailable", "room", room.ID, "error", err)
		}
	}

	s.mu.Lock()
	s.room = room
	s.unsubscribe = s.channel.Dispatcher().Subscribe(
		fmt.Sprintf("customer:%d", room.CustomerID), s.handleFrame)
	s.state = Open
	s.mu.Unlock()
	return nil
}

// Close releases the transport subscription acquired by Open.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.state = Closed
}

// Send appends an optimistic message for instant feedback, then transmits
// it. Empty or whitespace-only text is a no-op; sends while the channel is
// down are rejected locally; a transport failure rolls the optimistic
// entry back so the user can retry.
func (s *Session) Send(text string) error {
	if strings.TrimSpace(text) == "" {
		return apperrors.ErrEmptyMessage
	}

	s.mu.Lock()
	if s.state != Open {
		s.mu.Unlock()
		return apperrors.ErrSessionClosed
	}
	room := s.room
	s.mu.Unlock()

	if !s.channel.IsConnected() {
		return apperrors.ErrNotConnected
	}

	optimistic := domain.Message{
		ID:        domain.NextProvisionalID(),
		RoomID:    room.ID,
		Content:   text,
		Role:      domain.RoleUser,
		Sender:    s.claims.Sender(),
		ClientKey: uuid.NewString(),
		SentAt:    time.Now().UTC(),
	}
	s.cache.Append(room.CustomerID, room.ID, optimistic)

	err := s.channel.Send(transport.Frame{
		Event: transport.EventSendMessage,
		Send: &transport.SendPayload{
			Content:   text,
			RoomID:    room.ID,
			AsAdmin:   false,
			ClientKey: optimistic.ClientKey,
			Sender:    optimistic.Sender,
		},
	})
	if err != nil {
		s.cache.RemoveByClientKey(room.CustomerID, room.ID, optimistic.ClientKey)
		return err
	}
	return nil
}

// Messages returns the room's log in display order.
func (s *Session) Messages() []domain.Message {
	s.mu.Lock()
	room := s.room
	s.mu.Unlock()
	return s.cache.Messages(room.CustomerID, room.ID)
}

// handleFrame runs on the channel's reader goroutine. Only this room's
// events reach the cache; reconciliation decides append versus confirm.
func (s *Session) handleFrame(f transport.Frame) {
	if f.Event != transport.EventNewMessage || f.Message == nil {
		return
	}
	s.mu.Lock()
	room := s.room
	s.mu.Unlock()
	if f.Message.RoomID != room.ID {
		return
	}
	s.cache.Ingest(room.CustomerID, room.ID, s.engine, *f.Message)
}
