package e2e

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/stretchr/testify/suite"

	"support-chat/auth"
	"support-chat/backend"
	"support-chat/cache"
	"support-chat/domain"
	"support-chat/reconcile"
	"support-chat/repositories"
	"support-chat/rooms"
	"support-chat/session"
	"support-chat/transport"
)

type SupportChatSuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration before running tests
func (s *SupportChatSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
}

func (s *SupportChatSuite) logStep(t *testing.T, step string) {
	header := fmt.Sprintf("  ====== %s ======", step)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	t.Log(header)
}

type actors struct {
	customer *session.Session
	admin    *session.Multiplexer
}

// buildActors wires a real customer session and a real admin multiplexer
// against the in-process collaborator, each on its own channel and its own
// local cache (two browsing contexts).
func (s *SupportChatSuite) buildActors(t *testing.T, collab *Collaborator) actors {
	newStore := func() (*cache.Store, repositories.RoomRepository) {
		db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
		s.Require().NoError(err)
		t.Cleanup(func() { _ = db.Close() })
		return cache.NewStore(repositories.NewMessageRepository(db, slog.Default()), slog.Default()),
			repositories.NewRoomRepository(db, slog.Default())
	}
	engine := func() *reconcile.Engine {
		return reconcile.NewEngine(reconcile.HeuristicPolicy{Window: 5 * time.Second})
	}

	customerClaims := auth.Claims{CustomerID: 7, Name: "Linh", Role: domain.RoleUser}
	customerStore, customerRooms := newStore()
	customerAPI := backend.NewClient(collab.APIBaseURL(), "customer-token", 2*time.Second, slog.Default())
	customerChannel := transport.NewChannel(collab.WebsocketURL(), "customer-token", domain.RoleUser, slog.Default())
	customer := session.NewSession(
		customerClaims,
		rooms.NewRegistry(customerAPI, customerRooms, slog.Default()),
		customerStore, customerChannel, customerAPI, engine(), slog.Default(),
	)

	adminClaims := auth.Claims{CustomerID: 1, Name: "Chi", Role: domain.RoleAdmin}
	adminStore, _ := newStore()
	adminAPI := backend.NewClient(collab.APIBaseURL(), "admin-token", 2*time.Second, slog.Default())
	adminChannel := transport.NewChannel(collab.WebsocketURL(), "admin-token", domain.RoleAdmin, slog.Default())
	admin := session.NewMultiplexer(
		adminClaims, adminAPI, adminStore, adminChannel, engine(), nil, slog.Default(),
	)

	t.Cleanup(func() {
		customer.Close()
		admin.Close()
		customerChannel.Disconnect()
		adminChannel.Disconnect()
	})
	return actors{customer: customer, admin: admin}
}

// waitFor polls until the condition holds; inbound frames arrive on the
// channels' reader goroutines.
func waitFor(t *testing.T, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func (s *SupportChatSuite) TestCustomerGreetingReachesAdminAndBack() {
	t := s.T()
	collab := NewCollaborator(s.Config.DebugFrames)
	defer collab.Close()

	ctx := context.Background()

	s.logStep(t, "customer opens the widget and greets")
	a := s.buildActors(t, collab)
	s.Require().NoError(a.customer.Open(ctx))
	s.Require().NoError(a.customer.Send("Xin chào"))

	// The confirmed echo replaces the provisional entry: exactly one
	// visible message with a server id.
	waitFor(t, func() bool {
		messages := a.customer.Messages()
		return len(messages) == 1 && !messages[0].Provisional()
	})
	messages := a.customer.Messages()
	s.Equal("Xin chào", messages[0].Content)

	s.logStep(t, "admin selects the room and sees the greeting")
	s.Require().NoError(a.admin.Open(ctx))
	roomList := a.admin.Rooms()
	s.Require().Len(roomList, 1)
	s.Require().NoError(a.admin.SelectRoom(ctx, roomList[0].ID))

	visible := a.admin.Visible()
	s.Require().Len(visible, 1)
	s.Equal("Xin chào", visible[0].Content)
	s.Equal(domain.RoleUser, visible[0].Role)

	s.logStep(t, "admin replies and the customer receives it")
	s.Require().NoError(a.admin.Send("Chào bạn, how can I help?"))

	waitFor(t, func() bool { return len(a.customer.Messages()) == 2 })
	reply := a.customer.Messages()[1]
	s.Equal("Chào bạn, how can I help?", reply.Content)
	s.Equal(domain.RoleAdmin, reply.Role)

	// The admin's own echo was reconciled too.
	waitFor(t, func() bool {
		adminVisible := a.admin.Visible()
		return len(adminVisible) == 2 && !adminVisible[1].Provisional()
	})
}

func (s *SupportChatSuite) TestReopenedWidgetReusesRoomAndCache() {
	t := s.T()
	collab := NewCollaborator(s.Config.DebugFrames)
	defer collab.Close()

	ctx := context.Background()
	a := s.buildActors(t, collab)

	s.Require().NoError(a.customer.Open(ctx))
	room := a.customer.Room()
	s.Require().NoError(a.customer.Send("first visit"))
	waitFor(t, func() bool {
		messages := a.customer.Messages()
		return len(messages) == 1 && !messages[0].Provisional()
	})

	a.customer.Close()

	// Reopening resolves the same room without another creation call and
	// still shows the conversation.
	s.Require().NoError(a.customer.Open(ctx))
	s.Equal(room.ID, a.customer.Room().ID)
	messages := a.customer.Messages()
	s.Require().Len(messages, 1)
	s.Equal("first visit", messages[0].Content)
}

func TestSupportChatSuite(t *testing.T) {
	suite.Run(t, new(SupportChatSuite))
}
