package session

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"support-chat/auth"
	"support-chat/cache"
	"support-chat/domain"
	"support-chat/reconcile"
	"support-chat/repositories"
	"support-chat/transport"
)

// fakeTransport stands in for the WebSocket channel. Inbound traffic is
// injected through the real dispatcher so subscription semantics match
// production.
type fakeTransport struct {
	mu         sync.Mutex
	dispatcher *transport.Dispatcher
	connected  bool
	connectErr error
	sendErr    error
	sent       []transport.Frame
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{dispatcher: transport.NewDispatcher()}
}

func (f *fakeTransport) Connect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = true
	return nil
}

func (f *fakeTransport) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTransport) Send(frame transport.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, frame)
	return nil
}

func (f *fakeTransport) Dispatcher() *transport.Dispatcher {
	return f.dispatcher
}

func (f *fakeTransport) deliver(msg domain.Message) {
	f.dispatcher.Dispatch(transport.Frame{Event: transport.EventNewMessage, Message: &msg})
}

func (f *fakeTransport) sentFrames() []transport.Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]transport.Frame, len(f.sent))
	copy(out, f.sent)
	return out
}

type fakeBackend struct {
	mu          sync.Mutex
	createCalls int
	roomID      domain.RoomID
	createErr   error
	rooms       []domain.Room
	listErr     error
	histories   map[domain.RoomID][]domain.Message
	historyErr  error
}

func (f *fakeBackend) CreateRoom(_ context.Context, _ int) (domain.RoomID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	return f.roomID, f.createErr
}

func (f *fakeBackend) ListRooms(context.Context) ([]domain.Room, error) {
	return f.rooms, f.listErr
}

func (f *fakeBackend) RoomMessages(_ context.Context, roomID domain.RoomID) ([]domain.Message, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return f.histories[roomID], nil
}

func (f *fakeBackend) CustomerMessages(_ context.Context, _ int, roomID domain.RoomID) ([]domain.Message, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return f.histories[roomID], nil
}

func newTestStore(t *testing.T) (*cache.Store, repositories.RoomRepository) {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	store := cache.NewStore(repositories.NewMessageRepository(db, slog.Default()), slog.Default())
	return store, repositories.NewRoomRepository(db, slog.Default())
}

func testEngine() *reconcile.Engine {
	return reconcile.NewEngine(reconcile.HeuristicPolicy{Window: 5 * time.Second})
}

func customerClaims() auth.Claims {
	return auth.Claims{CustomerID: 7, Name: "Linh", Role: domain.RoleUser}
}

func adminClaims() auth.Claims {
	return auth.Claims{CustomerID: 1, Name: "Chi", Role: domain.RoleAdmin}
}
