package presence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/typerace/internal/dependencies/mocks"
	"github.com/mcoot/typerace/internal/events"
	"github.com/mcoot/typerace/internal/model"
	"github.com/mcoot/typerace/internal/services/identity"
	"github.com/mcoot/typerace/internal/services/membership"
	"github.com/mcoot/typerace/internal/services/room"
	"github.com/mcoot/typerace/internal/testutil"
)

type SupervisorSuite struct {
	suite.Suite
	ctx        context.Context
	clock      *mocks.MockClock
	identities *identity.Registry
	rooms      *room.Store
	members    *membership.Engine
	recorder   *events.Recorder
	supervisor *Supervisor
}

func TestSupervisorSuite(t *testing.T) {
	suite.Run(t, new(SupervisorSuite))
}

func (s *SupervisorSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	random := mocks.NewMockRandom()
	logger := testutil.NopLogger()
	s.identities = identity.New(random, s.clock, logger)
	s.rooms = room.New(s.identities, s.clock, random, logger)
	s.recorder = events.NewRecorder()
	s.members = membership.NewEngine(s.rooms, s.identities, s.recorder, s.clock, logger)
	s.supervisor = NewSupervisor(DefaultConfig(), s.identities, s.rooms, s.members, s.recorder, s.clock, logger)
}

func (s *SupervisorSuite) register(name string) *model.Identity {
	ident, err := s.identities.Register(identity.RegisterParams{
		DisplayName: name,
		Connection:  model.ConnectionID("c-" + name),
	})
	s.Require().NoError(err)
	return ident
}

// roomWith creates a room hosted by the first identity and joined by the rest
func (s *SupervisorSuite) roomWith(idents ...*model.Identity) model.RoomID {
	r, err := s.members.Create(s.ctx, idents[0], room.CreateParams{})
	s.Require().NoError(err)
	for _, ident := range idents[1:] {
		_, err := s.members.Join(s.ctx, r.ID, membership.JoinParams{
			DisplayName: ident.DisplayName,
			Connection:  ident.Connection,
			Token:       ident.Token,
		})
		s.Require().NoError(err)
	}
	return r.ID
}

func (s *SupervisorSuite) identityExists(token model.Token) bool {
	_, err := s.identities.FindByToken(token)
	return err == nil
}

// Disconnect tests

func (s *SupervisorSuite) TestDisconnectOutsideRoomRemovesIdentity() {
	alice := s.register("Alice")

	s.Require().NoError(s.supervisor.Disconnect(s.ctx, alice.Connection))

	s.False(s.identityExists(alice.Token))
	s.Zero(s.supervisor.Pending())
}

func (s *SupervisorSuite) TestDisconnectUnknownConnection() {
	s.ErrorIs(s.supervisor.Disconnect(s.ctx, "c-ghost"), model.ErrIdentityNotFound)
}

func (s *SupervisorSuite) TestDisconnectMarksPlayerAndExpiresAfterGrace() {
	alice, bob := s.register("Alice"), s.register("Bob")
	roomID := s.roomWith(alice, bob)
	s.recorder.Reset()

	s.Require().NoError(s.supervisor.Disconnect(s.ctx, bob.Connection))

	r, _ := s.rooms.Get(roomID)
	s.True(r.PlayerByName("Bob").IsDisconnected)
	s.NotEmpty(s.recorder.OfType(model.EventMembershipChanged))
	s.Equal(1, s.supervisor.Pending())

	s.clock.Advance(29 * time.Second)
	r, _ = s.rooms.Get(roomID)
	s.NotNil(r.PlayerByName("Bob"))

	s.clock.Advance(time.Second)
	r, _ = s.rooms.Get(roomID)
	s.Nil(r.PlayerByName("Bob"))
	s.False(s.identityExists(bob.Token))
	s.Zero(s.supervisor.Pending())

	removed := s.recorder.OfType(model.EventPlayerRemoved)
	s.Require().Len(removed, 1)
	s.Equal(model.PlayerRemovedPayload{Reason: model.RemovalExpired}, removed[0].Payload)
}

func (s *SupervisorSuite) TestExpiryOfLastPlayerDeletesRoom() {
	alice, bob := s.register("Alice"), s.register("Bob")
	roomID := s.roomWith(alice, bob)
	s.Require().NoError(s.supervisor.Disconnect(s.ctx, bob.Connection))
	_, err := s.members.Leave(s.ctx, roomID, alice.Connection)
	s.Require().NoError(err)
	s.True(s.rooms.Exists(roomID))
	s.recorder.Reset()

	s.clock.Advance(30 * time.Second)

	s.False(s.rooms.Exists(roomID))
	s.False(s.identityExists(bob.Token))
	s.NotEmpty(s.recorder.OfType(model.EventPublicRoomsChanged))
}

func (s *SupervisorSuite) TestReconnectCancelsExpiry() {
	alice, bob := s.register("Alice"), s.register("Bob")
	roomID := s.roomWith(alice, bob)
	s.Require().NoError(s.supervisor.Disconnect(s.ctx, bob.Connection))

	_, err := s.identities.Register(identity.RegisterParams{Connection: "c-bob-2", Token: bob.Token})
	s.Require().NoError(err)
	_, err = s.members.Join(s.ctx, roomID, membership.JoinParams{DisplayName: "Bob", Connection: "c-bob-2", Token: bob.Token})
	s.Require().NoError(err)
	s.True(s.supervisor.Reconnect(bob.Token))

	s.clock.Advance(time.Minute)

	r, _ := s.rooms.Get(roomID)
	bobSeat := r.PlayerByName("Bob")
	s.Require().NotNil(bobSeat)
	s.False(bobSeat.IsDisconnected)
	s.True(s.identityExists(bob.Token))
}

func (s *SupervisorSuite) TestStaleTimerIsNoOpAfterRejoin() {
	alice, bob := s.register("Alice"), s.register("Bob")
	roomID := s.roomWith(alice, bob)
	s.Require().NoError(s.supervisor.Disconnect(s.ctx, bob.Connection))

	// Rejoin without cancelling the timer
	_, _ = s.identities.Register(identity.RegisterParams{Connection: "c-bob-2", Token: bob.Token})
	_, err := s.members.Join(s.ctx, roomID, membership.JoinParams{DisplayName: "Bob", Connection: "c-bob-2", Token: bob.Token})
	s.Require().NoError(err)

	s.clock.Advance(30 * time.Second)

	r, _ := s.rooms.Get(roomID)
	s.NotNil(r.PlayerByName("Bob"))
	s.True(s.identityExists(bob.Token))
}

func (s *SupervisorSuite) TestSecondDisconnectSupersedesFirstTimer() {
	alice, bob := s.register("Alice"), s.register("Bob")
	roomID := s.roomWith(alice, bob)
	s.Require().NoError(s.supervisor.Disconnect(s.ctx, bob.Connection))

	s.clock.Advance(20 * time.Second)
	_, _ = s.identities.Register(identity.RegisterParams{Connection: "c-bob-2", Token: bob.Token})
	_, _ = s.members.Join(s.ctx, roomID, membership.JoinParams{DisplayName: "Bob", Connection: "c-bob-2", Token: bob.Token})
	s.Require().NoError(s.supervisor.Disconnect(s.ctx, "c-bob-2"))
	s.Equal(1, s.supervisor.Pending())

	// The first timer's deadline passes without effect
	s.clock.Advance(15 * time.Second)
	r, _ := s.rooms.Get(roomID)
	s.NotNil(r.PlayerByName("Bob"))

	s.clock.Advance(15 * time.Second)
	r, _ = s.rooms.Get(roomID)
	s.Nil(r.PlayerByName("Bob"))
}

func (s *SupervisorSuite) TestMassDisconnectDeletesRoomImmediately() {
	alice, bob := s.register("Alice"), s.register("Bob")
	roomID := s.roomWith(alice, bob)
	s.Require().NoError(s.supervisor.Disconnect(s.ctx, bob.Connection))
	s.recorder.Reset()

	s.Require().NoError(s.supervisor.Disconnect(s.ctx, alice.Connection))

	s.False(s.rooms.Exists(roomID))
	s.Zero(s.supervisor.Pending())
	s.False(s.identityExists(alice.Token))
	s.False(s.identityExists(bob.Token))
	s.Len(s.recorder.OfType(model.EventPublicRoomsChanged), 1)

	// Nothing left to fire
	s.clock.Advance(time.Minute)
	s.Zero(s.identities.Count())
}

func (s *SupervisorSuite) TestRejoinBeforeLastDisconnectKeepsRoom() {
	alice, bob := s.register("Alice"), s.register("Bob")
	roomID := s.roomWith(alice, bob)
	s.Require().NoError(s.supervisor.Disconnect(s.ctx, bob.Connection))

	_, _ = s.identities.Register(identity.RegisterParams{Connection: "c-bob-2", Token: bob.Token})
	_, err := s.members.Join(s.ctx, roomID, membership.JoinParams{DisplayName: "Bob", Connection: "c-bob-2", Token: bob.Token})
	s.Require().NoError(err)
	s.recorder.Reset()

	s.Require().NoError(s.supervisor.Disconnect(s.ctx, alice.Connection))

	r, err := s.rooms.Get(roomID)
	s.Require().NoError(err)
	s.True(r.PlayerByName("Alice").IsDisconnected)
	s.False(r.PlayerByName("Bob").IsDisconnected)
	s.True(s.identityExists(alice.Token))
	s.Empty(s.recorder.OfType(model.EventPublicRoomsChanged))
}

func (s *SupervisorSuite) TestSessionRestoreWithoutConnectionKeepsDisconnectTracking() {
	alice, bob := s.register("Alice"), s.register("Bob")
	roomID := s.roomWith(alice, bob)

	// An HTTP session restore carries no connection
	_, err := s.identities.Register(identity.RegisterParams{Token: bob.Token})
	s.Require().NoError(err)

	s.Require().NoError(s.supervisor.Disconnect(s.ctx, bob.Connection))

	r, _ := s.rooms.Get(roomID)
	s.True(r.PlayerByName("Bob").IsDisconnected)
	s.Equal(1, s.supervisor.Pending())

	s.clock.Advance(30 * time.Second)
	r, _ = s.rooms.Get(roomID)
	s.Nil(r.PlayerByName("Bob"))
}

// Logout tests

func (s *SupervisorSuite) TestLogoutBypassesGrace() {
	alice, bob := s.register("Alice"), s.register("Bob")
	roomID := s.roomWith(alice, bob)

	s.Require().NoError(s.supervisor.Logout(s.ctx, bob.Token))

	r, _ := s.rooms.Get(roomID)
	s.Nil(r.PlayerByName("Bob"))
	s.False(s.identityExists(bob.Token))
	s.ErrorIs(s.supervisor.Logout(s.ctx, bob.Token), model.ErrIdentityNotFound)
}

func (s *SupervisorSuite) TestLogoutCancelsPendingGrace() {
	alice, bob := s.register("Alice"), s.register("Bob")
	s.roomWith(alice, bob)
	s.Require().NoError(s.supervisor.Disconnect(s.ctx, bob.Connection))

	s.Require().NoError(s.supervisor.Logout(s.ctx, bob.Token))

	s.Zero(s.supervisor.Pending())
	s.Zero(s.clock.PendingTimers())
}
