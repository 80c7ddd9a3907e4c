package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"support-chat/auth"
	"support-chat/cache"
	"support-chat/domain"
	apperrors "support-chat/errors"
	"support-chat/moderation"
	"support-chat/reconcile"
	"support-chat/transport"
)

// AdminDirectory covers the admin-scoped collaborator endpoints.
type AdminDirectory interface {
	ListRooms(ctx context.Context) ([]domain.Room, error)
	RoomMessages(ctx context.Context, roomID domain.RoomID) ([]domain.Message, error)
}

// Multiplexer manages every support room through the single admin channel.
// Inbound messages are appended to their own room's cache entry whether or
// not that room is selected; the visible stream reads from the selected
// room's entry, so switching rooms never loses messages.
type Multiplexer struct {
	claims    auth.Claims
	directory AdminDirectory
	cache     *cache.Store
	channel   Transport
	engine    *reconcile.Engine
	filter    *moderation.Filter
	log       *slog.Logger

	mu          sync.RWMutex
	rooms       []domain.Room
	byID        map[domain.RoomID]domain.Room
	selected    domain.RoomID
	hasSelected bool
	unsubscribe func()
}

func NewMultiplexer(
	claims auth.Claims,
	directory AdminDirectory,
	store *cache.Store,
	channel Transport,
	engine *reconcile.Engine,
	filter *moderation.Filter,
	log *slog.Logger,
) *Multiplexer {
	return &Multiplexer{
		claims:    claims,
		directory: directory,
		cache:     store,
		channel:   channel,
		engine:    engine,
		filter:    filter,
		log:       log,
		byID:      make(map[domain.RoomID]domain.Room),
	}
}

// Open fetches the room list and installs the admin-wide subscription.
// Without the list the console has nothing to show, so a listing failure
// aborts the opening.
func (m *Multiplexer) Open(ctx context.Context) error {
	roomList, err := m.directory.ListRooms(ctx)
	if err != nil {
		return fmt.Errorf("open admin console: %w", err)
	}

	if !m.channel.IsConnected() {
		if err := m.channel.Connect(ctx); err != nil {
			m.log.Warn("admin channel unavailable", "error", err)
		}
	}

	m.mu.Lock()
	m.rooms = roomList
	m.byID = lo.SliceToMap(roomList, func(r domain.Room) (domain.RoomID, domain.Room) {
		return r.ID, r
	})
	if m.unsubscribe == nil {
		m.unsubscribe = m.channel.Dispatcher().Subscribe("admin", m.handleFrame)
	}
	m.mu.Unlock()
	return nil
}

// Close releases the admin subscription.
func (m *Multiplexer) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

// Rooms returns the directory snapshot from the last Open.
func (m *Multiplexer) Rooms() []domain.Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Room, len(m.rooms))
	copy(out, m.rooms)
	return out
}

// Selected reports the room the visible stream follows.
func (m *Multiplexer) Selected() (domain.Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.hasSelected {
		return domain.Room{}, false
	}
	return m.byID[m.selected], true
}

// SelectRoom makes a room the visible one and refreshes its history with a
// full replace. A fetch failure keeps the cached entry and still switches
// the selection.
func (m *Multiplexer) SelectRoom(ctx context.Context, roomID domain.RoomID) error {
	m.mu.RLock()
	room, known := m.byID[roomID]
	m.mu.RUnlock()
	if !known {
		return fmt.Errorf("room %d is not in the directory", roomID)
	}

	if history, err := m.directory.RoomMessages(ctx, roomID); err != nil {
		m.log.Warn("serving cached history",
			"room", roomID, "error", fmt.Errorf("%w: %v", apperrors.ErrHistoryFetch, err))
		m.cache.Load(room.CustomerID, room.ID)
	} else {
		m.cache.Replace(room.CustomerID, room.ID, history)
	}

	m.mu.Lock()
	m.selected = roomID
	m.hasSelected = true
	m.mu.Unlock()
	return nil
}

// Visible returns the selected room's log, customer content run through
// the moderation filter. The underlying cache keeps the original text.
func (m *Multiplexer) Visible() []domain.Message {
	m.mu.RLock()
	if !m.hasSelected {
		m.mu.RUnlock()
		return nil
	}
	room := m.byID[m.selected]
	m.mu.RUnlock()

	return lo.Map(m.cache.Messages(room.CustomerID, room.ID), func(msg domain.Message, _ int) domain.Message {
		if msg.Role == domain.RoleUser && m.filter != nil {
			msg.Content = m.filter.Mask(msg.Content)
		}
		return msg
	})
}

// Send posts an admin reply into the selected room with the same
// optimistic append and rollback discipline as the customer session.
func (m *Multiplexer) Send(text string) error {
	if strings.TrimSpace(text) == "" {
		return apperrors.ErrEmptyMessage
	}

	m.mu.RLock()
	if !m.hasSelected {
		m.mu.RUnlock()
		return apperrors.ErrNoRoomSelected
	}
	room := m.byID[m.selected]
	m.mu.RUnlock()

	if !m.channel.IsConnected() {
		return apperrors.ErrNotConnected
	}

	optimistic := domain.Message{
		ID:        domain.NextProvisionalID(),
		RoomID:    room.ID,
		Content:   text,
		Role:      domain.RoleAdmin,
		Sender:    m.claims.Sender(),
		ClientKey: uuid.NewString(),
		SentAt:    time.Now().UTC(),
	}
	m.cache.Append(room.CustomerID, room.ID, optimistic)

	err := m.channel.Send(transport.Frame{
		Event: transport.EventSendMessage,
		Send: &transport.SendPayload{
			Content:   text,
			RoomID:    room.ID,
			AsAdmin:   true,
			ClientKey: optimistic.ClientKey,
			Sender:    optimistic.Sender,
		},
	})
	if err != nil {
		m.cache.RemoveByClientKey(room.CustomerID, room.ID, optimistic.ClientKey)
		return err
	}
	return nil
}

// handleFrame routes an inbound message to its own room's cache entry.
// Messages for rooms missing from the directory are dropped with a warning
// until the next Open refreshes the list.
func (m *Multiplexer) handleFrame(f transport.Frame) {
	if f.Event != transport.EventNewMessage || f.Message == nil {
		return
	}
	m.mu.RLock()
	room, known := m.byID[f.Message.RoomID]
	m.mu.RUnlock()
	if !known {
		m.log.Warn("message for unknown room dropped", "room", f.Message.RoomID)
		return
	}
	m.cache.Ingest(room.CustomerID, room.ID, m.engine, *f.Message)
}
