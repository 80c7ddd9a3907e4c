//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"support-chat/domain"
)

type IMessageRepository interface {
	StoreLog(customerID int, roomID domain.RoomID, messages []domain.Message) error
	LoadLog(customerID int, roomID domain.RoomID) ([]domain.Message, error)
}

// MessageRepository persists one ordered message log per (customer, room)
// pair in BadgerDB. The whole log is written through on every in-memory
// mutation; the stored slice order is the display order, so no timestamp
// sorting happens on load.
//
// The persisted log is a latency placeholder, not a source of truth: the
// authoritative history fetched from the collaborator replaces it in full.
type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) MessageRepository {
	return MessageRepository{db: db, log: log}
}

func logKey(customerID int, roomID domain.RoomID) []byte {
	return []byte(fmt.Sprintf("msgs:%d:%d", customerID, roomID))
}

func (m MessageRepository) StoreLog(customerID int, roomID domain.RoomID, messages []domain.Message) error {
	bytes, err := json.Marshal(messages)
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(logKey(customerID, roomID), bytes)
	})
}

// LoadLog returns the persisted log in stored order, or nil when the pair
// has no cached messages yet.
func (m MessageRepository) LoadLog(customerID int, roomID domain.RoomID) ([]domain.Message, error) {
	var messages []domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(logKey(customerID, roomID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			return json.Unmarshal(value, &messages)
		})
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}
