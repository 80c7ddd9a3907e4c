// Package domain contains core concepts of the support chat client.
// This file defines messages and their identity rules.
// Messages are immutable once accepted; a provisional message may be
// replaced by its server-confirmed counterpart during reconciliation.
package domain

import (
	"sync/atomic"
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Sender identifies the author of a message.
type Sender struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// Message represents one chat entry within a room.
//
// IDs are positive when assigned by the server and negative while
// provisional (allocated locally for an optimistic send). ClientKey is a
// client-generated idempotency key attached to every optimistic message;
// servers that echo it back allow exact reconciliation instead of the
// content heuristic.
type Message struct {
	ID        int       `json:"id"`
	RoomID    RoomID    `json:"roomId"`
	Content   string    `json:"content"`
	Role      Role      `json:"role"`
	Sender    Sender    `json:"sender"`
	ClientKey string    `json:"clientKey,omitempty"`
	SentAt    time.Time `json:"sentAt"`
}

// Provisional reports whether the message still awaits server confirmation.
func (m Message) Provisional() bool {
	return m.ID < 0
}

var provisionalSeq atomic.Int64

// NextProvisionalID allocates a process-local negative id for an
// optimistic message. Server ids are positive, so the two ranges never
// collide.
func NextProvisionalID() int {
	return int(-provisionalSeq.Add(1))
}
