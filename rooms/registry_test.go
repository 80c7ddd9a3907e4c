package rooms

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"support-chat/domain"
	apperrors "support-chat/errors"
	"support-chat/mocks"
	"support-chat/repositories"
)

func newTestRepo(t *testing.T) repositories.RoomRepository {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return repositories.NewRoomRepository(db, slog.Default())
}

func TestRegistry_ResolveCreatesRoomOnce(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	api := mocks.NewMockRoomCreator(ctrl)
	// At most one creation request for repeated resolves.
	api.EXPECT().CreateRoom(gomock.Any(), 7).Return(domain.RoomID(42), nil).Times(1)

	registry := NewRegistry(api, newTestRepo(t), slog.Default())

	first, err := registry.Resolve(context.Background(), 7, "Linh")
	req.NoError(err)
	second, err := registry.Resolve(context.Background(), 7, "Linh")
	req.NoError(err)

	req.Equal(domain.RoomID(42), first.ID)
	req.Equal(first, second)
}

func TestRegistry_ResolveReusesPersistedRecord(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := newTestRepo(t)
	req.NoError(repo.StoreCurrentRoom(domain.Room{ID: 42, CustomerID: 7, CustomerName: "Linh"}))

	// No creation call at all for a customer with a durable record.
	api := mocks.NewMockRoomCreator(ctrl)

	registry := NewRegistry(api, repo, slog.Default())
	room, err := registry.Resolve(context.Background(), 7, "Linh")

	req.NoError(err)
	req.Equal(domain.RoomID(42), room.ID)
}

func TestRegistry_CreationFailureBlocksResolution(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	api := mocks.NewMockRoomCreator(ctrl)
	api.EXPECT().CreateRoom(gomock.Any(), 7).Return(domain.RoomID(0), fmt.Errorf("collaborator down"))

	registry := NewRegistry(api, newTestRepo(t), slog.Default())
	_, err := registry.Resolve(context.Background(), 7, "Linh")

	req.ErrorIs(err, apperrors.ErrRoomResolution)
}

func TestRegistry_DistinctCustomersGetDistinctRooms(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	api := mocks.NewMockRoomCreator(ctrl)
	api.EXPECT().CreateRoom(gomock.Any(), 7).Return(domain.RoomID(42), nil)
	api.EXPECT().CreateRoom(gomock.Any(), 9).Return(domain.RoomID(43), nil)

	registry := NewRegistry(api, newTestRepo(t), slog.Default())

	linh, err := registry.Resolve(context.Background(), 7, "Linh")
	req.NoError(err)
	minh, err := registry.Resolve(context.Background(), 9, "Minh")
	req.NoError(err)

	req.NotEqual(linh.ID, minh.ID)
}
