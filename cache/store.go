// Package cache holds the per-room ordered message logs. The in-memory
// log is the display source; every mutation writes the whole log through
// to the durable repository so a reopened widget shows history instantly
// while the authoritative fetch is in flight.
package cache

import (
	"log/slog"
	"sync"

	"support-chat/domain"
	"support-chat/reconcile"
	"support-chat/repositories"
)

// Key addresses one room's log. The customer id is part of the key because
// the persisted cache is shared by every session in the same environment.
type Key struct {
	CustomerID int
	RoomID     domain.RoomID
}

// Store is an explicit dependency handed to Session and Multiplexer
// constructors; nothing in this subsystem reads ambient global state.
type Store struct {
	mu   sync.RWMutex
	logs map[Key][]domain.Message
	repo repositories.IMessageRepository
	log  *slog.Logger
}

func NewStore(repo repositories.IMessageRepository, log *slog.Logger) *Store {
	return &Store{
		logs: make(map[Key][]domain.Message),
		repo: repo,
		log:  log,
	}
}

// Load primes the in-memory log from the durable cache and returns it.
// The result is a stale-but-instant placeholder; callers overwrite it via
// Replace once the authoritative history arrives.
func (s *Store) Load(customerID int, roomID domain.RoomID) []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := Key{CustomerID: customerID, RoomID: roomID}
	if _, ok := s.logs[key]; !ok {
		persisted, err := s.repo.LoadLog(customerID, roomID)
		if err != nil {
			s.log.Warn("cached history unavailable", "customer", customerID, "room", roomID, "error", err)
			persisted = nil
		}
		s.logs[key] = persisted
	}
	return snapshot(s.logs[key])
}

// Replace overwrites a room's log with the authoritative history. Full
// replace, not a merge: the local cache is only a placeholder.
func (s *Store) Replace(customerID int, roomID domain.RoomID, messages []domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := Key{CustomerID: customerID, RoomID: roomID}
	s.logs[key] = snapshot(messages)
	s.writeThrough(key)
}

// Append adds one message at the end of the log. Existing entries are
// never reordered.
func (s *Store) Append(customerID int, roomID domain.RoomID, message domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := Key{CustomerID: customerID, RoomID: roomID}
	s.logs[key] = append(s.logs[key], message)
	s.writeThrough(key)
}

// Ingest runs an inbound message through the reconciliation engine and
// applies the decision: append, replace the matched provisional entry in
// place, or drop the duplicate.
func (s *Store) Ingest(customerID int, roomID domain.RoomID, engine *reconcile.Engine, inbound domain.Message) reconcile.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := Key{CustomerID: customerID, RoomID: roomID}
	decision := engine.Classify(s.logs[key], inbound)
	switch decision.Outcome {
	case reconcile.Confirmed:
		s.logs[key][decision.Index] = inbound
		s.writeThrough(key)
	case reconcile.Appended:
		s.logs[key] = append(s.logs[key], inbound)
		s.writeThrough(key)
	case reconcile.Discarded:
		s.log.Debug("duplicate inbound message dropped", "room", roomID, "id", inbound.ID)
	}
	return decision.Outcome
}

// RemoveByClientKey rolls back an optimistic entry after a transport
// failure. This is the only removal path in the subsystem.
func (s *Store) RemoveByClientKey(customerID int, roomID domain.RoomID, clientKey string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := Key{CustomerID: customerID, RoomID: roomID}
	for i, message := range s.logs[key] {
		if message.ClientKey == clientKey && message.Provisional() {
			s.logs[key] = append(s.logs[key][:i], s.logs[key][i+1:]...)
			s.writeThrough(key)
			return true
		}
	}
	return false
}

// Messages returns a copy of a room's log in display order.
func (s *Store) Messages(customerID int, roomID domain.RoomID) []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshot(s.logs[Key{CustomerID: customerID, RoomID: roomID}])
}

// writeThrough persists the current log. Failures degrade to memory-only
// operation; the cache is a UX optimization, not a source of truth.
// Callers hold the write lock.
func (s *Store) writeThrough(key Key) {
	if err := s.repo.StoreLog(key.CustomerID, key.RoomID, s.logs[key]); err != nil {
		s.log.Warn("cache write-through failed", "customer", key.CustomerID, "room", key.RoomID, "error", err)
	}
}

func snapshot(messages []domain.Message) []domain.Message {
	if messages == nil {
		return nil
	}
	out := make([]domain.Message, len(messages))
	copy(out, messages)
	return out
}
