// Package reconcile matches optimistic local messages against the
// authoritative echoes the server later delivers, so a self-sent message
// never shows up twice.
package reconcile

import (
	"time"

	"support-chat/domain"
)

type Outcome int

const (
	// Appended marks a genuinely new message.
	Appended Outcome = iota
	// Confirmed marks the server echo of a provisional entry; the entry is
	// replaced in place, keeping its position in the log.
	Confirmed
	// Discarded marks a duplicate of an already-confirmed entry.
	Discarded
)

// Decision carries the classification and, for Confirmed, the index of the
// provisional entry to replace.
type Decision struct {
	Outcome Outcome
	Index   int
}

// DuplicatePolicy decides whether a provisional local entry and an inbound
// message are the same send when no client key correlates them.
type DuplicatePolicy interface {
	SameSend(local, inbound domain.Message) bool
}

// HeuristicPolicy correlates by content and sender id within a bounded
// arrival window. The provisional and confirmed ids are unrelated
// integers, so this is the only signal left for servers that do not echo
// client keys. Known imprecision: rapid duplicate sends of identical text
// within the window collapse into one entry.
type HeuristicPolicy struct {
	Window time.Duration
	Now    func() time.Time
}

func (p HeuristicPolicy) SameSend(local, inbound domain.Message) bool {
	if !local.Provisional() {
		return false
	}
	if local.Content != inbound.Content || local.Sender.ID != inbound.Sender.ID {
		return false
	}
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	return now().Sub(local.SentAt) <= p.Window
}

type Engine struct {
	policy DuplicatePolicy
}

// NewEngine builds an engine with the fallback policy applied after exact
// client-key and id matching. A nil policy disables the heuristic and
// relies on client keys alone.
func NewEngine(policy DuplicatePolicy) *Engine {
	return &Engine{policy: policy}
}

// Classify decides what an inbound message means for a room's log, in
// order: exact client-key match, exact server-id match, then the
// configured duplicate policy against provisional entries (newest first).
func (e *Engine) Classify(log []domain.Message, inbound domain.Message) Decision {
	if inbound.ClientKey != "" {
		for i, local := range log {
			if local.ClientKey != inbound.ClientKey {
				continue
			}
			if local.Provisional() {
				return Decision{Outcome: Confirmed, Index: i}
			}
			return Decision{Outcome: Discarded}
		}
	}

	if inbound.ID > 0 {
		for _, local := range log {
			if local.ID == inbound.ID {
				return Decision{Outcome: Discarded}
			}
		}
	}

	if e.policy != nil {
		for i := len(log) - 1; i >= 0; i-- {
			if e.policy.SameSend(log[i], inbound) {
				return Decision{Outcome: Confirmed, Index: i}
			}
		}
	}

	return Decision{Outcome: Appended}
}
