package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"support-chat/domain"
)

func fixedNow() time.Time {
	return time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
}

func newTestEngine() *Engine {
	return NewEngine(HeuristicPolicy{Window: 5 * time.Second, Now: fixedNow})
}

func TestClassify_ClientKeyConfirmsProvisional(t *testing.T) {
	req := require.New(t)
	engine := newTestEngine()

	log := []domain.Message{
		{ID: 1, Content: "earlier"},
		{ID: -1, Content: "Hi", Sender: domain.Sender{ID: 7}, ClientKey: "k-1"},
	}
	inbound := domain.Message{ID: 999, Content: "Hi", Sender: domain.Sender{ID: 7}, ClientKey: "k-1"}

	decision := engine.Classify(log, inbound)

	req.Equal(Confirmed, decision.Outcome)
	req.Equal(1, decision.Index)
}

func TestClassify_ClientKeyDuplicateOfConfirmedIsDiscarded(t *testing.T) {
	req := require.New(t)
	engine := newTestEngine()

	log := []domain.Message{
		{ID: 999, Content: "Hi", Sender: domain.Sender{ID: 7}, ClientKey: "k-1"},
	}
	inbound := domain.Message{ID: 999, Content: "Hi", Sender: domain.Sender{ID: 7}, ClientKey: "k-1"}

	req.Equal(Discarded, engine.Classify(log, inbound).Outcome)
}

func TestClassify_ExactIDMatchIsDiscarded(t *testing.T) {
	req := require.New(t)
	engine := newTestEngine()

	log := []domain.Message{{ID: 501, Content: "Hello"}}
	inbound := domain.Message{ID: 501, Content: "Hello"}

	req.Equal(Discarded, engine.Classify(log, inbound).Outcome)
}

func TestClassify_HeuristicConfirmsRecentProvisional(t *testing.T) {
	req := require.New(t)
	engine := newTestEngine()

	log := []domain.Message{
		{ID: -3, Content: "Hi", Sender: domain.Sender{ID: 7}, SentAt: fixedNow().Add(-2 * time.Second)},
	}
	// No client key echoed by this server.
	inbound := domain.Message{ID: 999, Content: "Hi", Sender: domain.Sender{ID: 7}}

	decision := engine.Classify(log, inbound)

	req.Equal(Confirmed, decision.Outcome)
	req.Equal(0, decision.Index)
}

func TestClassify_HeuristicIgnoresOldProvisional(t *testing.T) {
	req := require.New(t)
	engine := newTestEngine()

	log := []domain.Message{
		{ID: -3, Content: "Hi", Sender: domain.Sender{ID: 7}, SentAt: fixedNow().Add(-time.Minute)},
	}
	inbound := domain.Message{ID: 999, Content: "Hi", Sender: domain.Sender{ID: 7}}

	req.Equal(Appended, engine.Classify(log, inbound).Outcome)
}

func TestClassify_HeuristicRequiresSameSender(t *testing.T) {
	req := require.New(t)
	engine := newTestEngine()

	log := []domain.Message{
		{ID: -3, Content: "Hi", Sender: domain.Sender{ID: 7}, SentAt: fixedNow()},
	}
	inbound := domain.Message{ID: 999, Content: "Hi", Sender: domain.Sender{ID: 8}}

	req.Equal(Appended, engine.Classify(log, inbound).Outcome)
}

func TestClassify_DistinctMessagesAppend(t *testing.T) {
	req := require.New(t)
	engine := newTestEngine()

	log := []domain.Message{{ID: 1, Content: "first"}}
	inbound := domain.Message{ID: 2, Content: "second"}

	req.Equal(Appended, engine.Classify(log, inbound).Outcome)
}

func TestClassify_NilPolicyReliesOnKeysOnly(t *testing.T) {
	req := require.New(t)
	engine := NewEngine(nil)

	log := []domain.Message{
		{ID: -3, Content: "Hi", Sender: domain.Sender{ID: 7}, SentAt: fixedNow()},
	}
	inbound := domain.Message{ID: 999, Content: "Hi", Sender: domain.Sender{ID: 7}}

	// Without a key echo nor a heuristic, the echo is treated as new.
	req.Equal(Appended, engine.Classify(log, inbound).Outcome)
}
