//go:generate go run go.uber.org/mock/mockgen -source=room.go -destination=../mocks/mock_room_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"support-chat/domain"
)

type IRoomRepository interface {
	StoreCurrentRoom(room domain.Room) error
	CurrentRoom(customerID int) (domain.Room, bool, error)
}

// RoomRepository persists which room a customer currently belongs to.
// The record survives process restarts so a returning customer reuses the
// room resolved in an earlier session instead of creating a new one.
type RoomRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewRoomRepository(db *badger.DB, log *slog.Logger) RoomRepository {
	return RoomRepository{db: db, log: log}
}

func roomKey(customerID int) []byte {
	return []byte(fmt.Sprintf("room:%d", customerID))
}

func (r RoomRepository) StoreCurrentRoom(room domain.Room) error {
	bytes, err := json.Marshal(room)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(roomKey(room.CustomerID), bytes)
	})
}

// CurrentRoom returns the persisted room record for a customer. The second
// return value is false when no room has been resolved yet.
func (r RoomRepository) CurrentRoom(customerID int) (domain.Room, bool, error) {
	var room domain.Room
	found := false
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(roomKey(customerID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(value []byte) error {
			return json.Unmarshal(value, &room)
		})
	})
	if err != nil {
		return domain.Room{}, false, err
	}
	return room, found, nil
}
