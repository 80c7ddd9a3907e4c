//go:generate go run go.uber.org/mock/mockgen -source=registry.go -destination=../mocks/mock_room_creator.go -package=mocks
// Package rooms resolves which room a customer belongs to, creating one
// lazily on first contact and remembering it afterwards.
package rooms

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"support-chat/domain"
	apperrors "support-chat/errors"
	"support-chat/repositories"
)

// RoomCreator is the collaborator endpoint that pairs a customer with the
// admin pool.
type RoomCreator interface {
	CreateRoom(ctx context.Context, customerID int) (domain.RoomID, error)
}

// Registry caches resolved rooms in memory and in the durable repository.
// Once a room id is known for a customer it is never reassigned and the
// collaborator is never asked again.
type Registry struct {
	api  RoomCreator
	repo repositories.IRoomRepository
	log  *slog.Logger

	mu       sync.Mutex
	resolved map[int]domain.Room
}

func NewRegistry(api RoomCreator, repo repositories.IRoomRepository, log *slog.Logger) *Registry {
	return &Registry{
		api:      api,
		repo:     repo,
		log:      log,
		resolved: make(map[int]domain.Room),
	}
}

// Resolve returns the customer's room, consulting the in-memory map, then
// the durable record, and only then the collaborator. Idempotent from the
// caller's perspective. A creation failure wraps ErrRoomResolution and
// must block the chat session from opening.
func (r *Registry) Resolve(ctx context.Context, customerID int, customerName string) (domain.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if room, ok := r.resolved[customerID]; ok {
		return room, nil
	}

	room, found, err := r.repo.CurrentRoom(customerID)
	if err != nil {
		r.log.Warn("room record unavailable", "customer", customerID, "error", err)
	}
	if found {
		r.resolved[customerID] = room
		return room, nil
	}

	roomID, err := r.api.CreateRoom(ctx, customerID)
	if err != nil {
		return domain.Room{}, fmt.Errorf("%w: customer %d: %v", apperrors.ErrRoomResolution, customerID, err)
	}

	room = domain.Room{ID: roomID, CustomerID: customerID, CustomerName: customerName}
	if err := r.repo.StoreCurrentRoom(room); err != nil {
		// Memory still holds the id for this session; only persistence of
		// the record failed.
		r.log.Warn("room record not persisted", "customer", customerID, "room", roomID, "error", err)
	}
	r.resolved[customerID] = room
	r.log.Info("room resolved", "customer", customerID, "room", roomID)
	return room, nil
}
