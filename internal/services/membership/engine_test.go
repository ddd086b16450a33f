package membership

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/typerace/internal/dependencies/mocks"
	"github.com/mcoot/typerace/internal/events"
	"github.com/mcoot/typerace/internal/model"
	"github.com/mcoot/typerace/internal/services/identity"
	"github.com/mcoot/typerace/internal/services/room"
	"github.com/mcoot/typerace/internal/testutil"
)

type EngineSuite struct {
	suite.Suite
	ctx        context.Context
	clock      *mocks.MockClock
	random     *mocks.MockRandom
	identities *identity.Registry
	rooms      *room.Store
	recorder   *events.Recorder
	engine     *Engine
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	logger := testutil.NopLogger()
	s.identities = identity.New(s.random, s.clock, logger)
	s.rooms = room.New(s.identities, s.clock, s.random, logger)
	s.recorder = events.NewRecorder()
	s.engine = NewEngine(s.rooms, s.identities, s.recorder, s.clock, logger)
}

func (s *EngineSuite) register(name string) *model.Identity {
	ident, err := s.identities.Register(identity.RegisterParams{
		DisplayName: name,
		Connection:  model.ConnectionID("c-" + name),
	})
	s.Require().NoError(err)
	return ident
}

func (s *EngineSuite) createRoom(host *model.Identity) *model.Room {
	r, err := s.engine.Create(s.ctx, host, room.CreateParams{
		Visibility:      model.VisibilityPublic,
		Mode:            model.GameModeClassic,
		DurationSeconds: 60,
	})
	s.Require().NoError(err)
	return r
}

func (s *EngineSuite) join(roomID model.RoomID, ident *model.Identity) *model.Room {
	r, err := s.engine.Join(s.ctx, roomID, JoinParams{
		DisplayName: ident.DisplayName,
		Connection:  ident.Connection,
		Token:       ident.Token,
	})
	s.Require().NoError(err)
	return r
}

func (s *EngineSuite) assertSingleHost(r *model.Room) {
	hosts := 0
	for _, p := range r.Players {
		if p.IsHost() {
			hosts++
			s.True(p.IsReady, "host must be ready")
		}
	}
	s.Equal(1, hosts)
}

// Join tests

func (s *EngineSuite) TestCreateAndJoin() {
	alice, bob := s.register("Alice"), s.register("Bob")
	r := s.createRoom(alice)
	s.Require().Len(r.Players, 1)
	s.Equal(model.RoleHost, r.Players[0].Role)
	s.True(r.Players[0].IsReady)

	r = s.join(r.ID, bob)

	s.Len(r.Players, 2)
	s.Equal(model.RoleRegular, r.Players[1].Role)
	s.False(r.Players[1].IsReady)
	s.Equal(0, r.Players[1].Score)
	found, _ := s.identities.FindByToken(bob.Token)
	s.Equal(r.ID, found.RoomID)
	s.NotEmpty(s.recorder.OfType(model.EventMembershipChanged))
}

func (s *EngineSuite) TestJoinIsIdempotent() {
	alice, bob := s.register("Alice"), s.register("Bob")
	r := s.createRoom(alice)

	first := s.join(r.ID, bob)
	second := s.join(r.ID, bob)

	s.Equal(first.Players, second.Players)
}

func (s *EngineSuite) TestJoinRejectedMidMatchButRejoinAllowed() {
	alice, bob, carol := s.register("Alice"), s.register("Bob"), s.register("Carol")
	r := s.createRoom(alice)
	s.join(r.ID, bob)
	_, _, err := s.rooms.Update(r.ID, func(r *model.Room) error {
		r.IsPlaying = true
		r.Players[1].IsDisconnected = true
		return nil
	})
	s.Require().NoError(err)

	_, err = s.engine.Join(s.ctx, r.ID, JoinParams{DisplayName: "Carol", Connection: carol.Connection, Token: carol.Token})
	s.ErrorIs(err, model.ErrMatchInProgress)

	rejoined, err := s.engine.Join(s.ctx, r.ID, JoinParams{DisplayName: "Bob", Connection: "c-bob-2", Token: bob.Token})
	s.Require().NoError(err)
	s.Len(rejoined.Players, 2)
	s.Equal(model.ConnectionID("c-bob-2"), rejoined.Players[1].Connection)
	s.False(rejoined.Players[1].IsDisconnected)
}

func (s *EngineSuite) TestJoinMissingRoom() {
	bob := s.register("Bob")
	_, err := s.engine.Join(s.ctx, "NOPE1", JoinParams{DisplayName: "Bob", Token: bob.Token})
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *EngineSuite) TestJoiningAnotherRoomLeavesTheFirst() {
	alice, bob, carol := s.register("Alice"), s.register("Bob"), s.register("Carol")
	first := s.createRoom(alice)
	second := s.createRoom(bob)
	s.join(first.ID, carol)

	s.join(second.ID, carol)

	r, err := s.rooms.Get(first.ID)
	s.Require().NoError(err)
	s.Nil(r.PlayerByName("Carol"))
	found, _ := s.identities.FindByToken(carol.Token)
	s.Equal(second.ID, found.RoomID)
}

// Leave tests

func (s *EngineSuite) TestLeavePromotesNewHost() {
	alice, bob, carol := s.register("Alice"), s.register("Bob"), s.register("Carol")
	r := s.createRoom(alice)
	s.join(r.ID, bob)
	s.join(r.ID, carol)

	res, err := s.engine.Leave(s.ctx, r.ID, alice.Connection)
	s.Require().NoError(err)

	s.False(res.Deleted)
	s.Equal("Alice", res.Removed.DisplayName)
	s.Require().Len(res.Room.Players, 2)
	s.Equal("Bob", res.Room.Players[0].DisplayName)
	s.Equal(model.RoleHost, res.Room.Players[0].Role)
	s.assertSingleHost(res.Room)

	found, _ := s.identities.FindByToken(alice.Token)
	s.False(found.InRoom())
}

func (s *EngineSuite) TestLastLeaveDeletesRoom() {
	alice := s.register("Alice")
	r := s.createRoom(alice)
	s.recorder.Reset()

	res, err := s.engine.Leave(s.ctx, r.ID, alice.Connection)
	s.Require().NoError(err)

	s.True(res.Deleted)
	s.False(s.rooms.Exists(r.ID))
	s.Len(s.recorder.OfType(model.EventPublicRoomsChanged), 1)
	s.Empty(s.recorder.OfType(model.EventMembershipChanged))
}

func (s *EngineSuite) TestLeaveUnknownPlayer() {
	alice := s.register("Alice")
	r := s.createRoom(alice)

	_, err := s.engine.Leave(s.ctx, r.ID, "c-stranger")
	s.ErrorIs(err, model.ErrPlayerNotFound)
	_, err = s.engine.Leave(s.ctx, "NOPE1", alice.Connection)
	s.ErrorIs(err, model.ErrRoomNotFound)
}

// Readiness tests

func (s *EngineSuite) TestReadinessGate() {
	alice, bob := s.register("Alice"), s.register("Bob")
	r := s.createRoom(alice)
	s.join(r.ID, bob)

	ready, err := s.engine.AreAllReady(r.ID)
	s.Require().NoError(err)
	s.False(ready)

	_, err = s.engine.SetReady(s.ctx, r.ID, bob.Connection, true)
	s.Require().NoError(err)

	ready, _ = s.engine.AreAllReady(r.ID)
	s.True(ready)
}

func (s *EngineSuite) TestSetReadyIgnoredForHost() {
	alice := s.register("Alice")
	r := s.createRoom(alice)
	s.recorder.Reset()

	updated, err := s.engine.SetReady(s.ctx, r.ID, alice.Connection, false)
	s.Require().NoError(err)

	s.True(updated.Players[0].IsReady)
	s.Empty(s.recorder.Events())
}

func (s *EngineSuite) TestDisconnectedPlayersDoNotBlockReadiness() {
	alice, bob := s.register("Alice"), s.register("Bob")
	r := s.createRoom(alice)
	s.join(r.ID, bob)

	_, deleted, err := s.engine.MarkDisconnected(s.ctx, r.ID, bob.Token)
	s.Require().NoError(err)
	s.False(deleted)

	ready, _ := s.engine.AreAllReady(r.ID)
	s.True(ready)
}

func (s *EngineSuite) TestMarkDisconnectedDeletesRoomWithNobodyConnected() {
	alice, bob := s.register("Alice"), s.register("Bob")
	r := s.createRoom(alice)
	s.join(r.ID, bob)

	_, deleted, err := s.engine.MarkDisconnected(s.ctx, r.ID, bob.Token)
	s.Require().NoError(err)
	s.False(deleted)
	s.recorder.Reset()

	_, deleted, err = s.engine.MarkDisconnected(s.ctx, r.ID, alice.Token)
	s.Require().NoError(err)
	s.True(deleted)
	s.False(s.rooms.Exists(r.ID))
	s.Empty(s.recorder.OfType(model.EventMembershipChanged))

	for _, token := range []model.Token{alice.Token, bob.Token} {
		ident, err := s.identities.FindByToken(token)
		s.Require().NoError(err)
		s.False(ident.InRoom())
	}
}

func (s *EngineSuite) TestMarkDisconnectedKeepsRoomAfterRejoin() {
	alice, bob := s.register("Alice"), s.register("Bob")
	r := s.createRoom(alice)
	s.join(r.ID, bob)
	_, _, _ = s.engine.MarkDisconnected(s.ctx, r.ID, bob.Token)

	// Bob takes the seat back before Alice drops
	s.join(r.ID, bob)

	_, deleted, err := s.engine.MarkDisconnected(s.ctx, r.ID, alice.Token)
	s.Require().NoError(err)
	s.False(deleted)

	current, err := s.rooms.Get(r.ID)
	s.Require().NoError(err)
	s.False(current.PlayerByName("Bob").IsDisconnected)
	s.True(current.PlayerByName("Alice").IsDisconnected)
}

func (s *EngineSuite) TestResetReadiness() {
	alice, bob := s.register("Alice"), s.register("Bob")
	r := s.createRoom(alice)
	s.join(r.ID, bob)
	_, _ = s.engine.SetReady(s.ctx, r.ID, bob.Connection, true)
	_, _, _ = s.rooms.Update(r.ID, func(r *model.Room) error {
		now := s.clock.Now()
		r.IsPlaying = true
		r.StartedAt = &now
		return nil
	})

	_, err := s.engine.ResetReadiness(s.ctx, r.ID, bob.Connection)
	s.ErrorIs(err, model.ErrNotHost)

	updated, err := s.engine.ResetReadiness(s.ctx, r.ID, alice.Connection)
	s.Require().NoError(err)
	s.False(updated.IsPlaying)
	s.Nil(updated.StartedAt)
	s.True(updated.Players[0].IsReady)
	s.False(updated.Players[1].IsReady)
}

// Host tests

func (s *EngineSuite) TestTransferHostRoundTrip() {
	alice, bob := s.register("Alice"), s.register("Bob")
	r := s.createRoom(alice)
	original := s.join(r.ID, bob)

	_, err := s.engine.TransferHost(s.ctx, r.ID, alice.Connection, bob.Connection)
	s.Require().NoError(err)
	mid, _ := s.rooms.Get(r.ID)
	s.Equal(model.RoleHost, mid.Players[1].Role)
	s.True(mid.Players[1].IsReady)
	s.False(mid.Players[0].IsReady)
	s.assertSingleHost(mid)

	restored, err := s.engine.TransferHost(s.ctx, r.ID, bob.Connection, alice.Connection)
	s.Require().NoError(err)
	s.Equal(original.Players, restored.Players)
}

func (s *EngineSuite) TestTransferHostRequiresHost() {
	alice, bob := s.register("Alice"), s.register("Bob")
	r := s.createRoom(alice)
	s.join(r.ID, bob)

	_, err := s.engine.TransferHost(s.ctx, r.ID, bob.Connection, alice.Connection)
	s.ErrorIs(err, model.ErrNotHost)

	_, err = s.engine.TransferHost(s.ctx, r.ID, alice.Connection, "c-ghost")
	s.ErrorIs(err, model.ErrTargetNotFound)

	unchanged, _ := s.rooms.Get(r.ID)
	s.Equal(model.RoleHost, unchanged.Players[0].Role)
}

// Kick tests

func (s *EngineSuite) TestKickNotifiesRemovedConnection() {
	alice, bob := s.register("Alice"), s.register("Bob")
	r := s.createRoom(alice)
	s.join(r.ID, bob)
	s.recorder.Reset()

	res, err := s.engine.Kick(s.ctx, r.ID, bob.Connection, alice.Connection)
	s.Require().NoError(err)
	s.Len(res.Room.Players, 1)

	removed := s.recorder.OfType(model.EventPlayerRemoved)
	s.Require().Len(removed, 1)
	s.Equal(bob.Connection, removed[0].Connection)
	s.Equal(model.PlayerRemovedPayload{Reason: model.RemovalKicked}, removed[0].Payload)
}

func (s *EngineSuite) TestKickRequiresHost() {
	alice, bob := s.register("Alice"), s.register("Bob")
	r := s.createRoom(alice)
	s.join(r.ID, bob)

	_, err := s.engine.Kick(s.ctx, r.ID, alice.Connection, bob.Connection)
	s.ErrorIs(err, model.ErrNotHost)

	_, err = s.engine.Kick(s.ctx, r.ID, "c-ghost", alice.Connection)
	s.ErrorIs(err, model.ErrTargetNotFound)
	s.Empty(s.recorder.OfType(model.EventPlayerRemoved))
}

// Settings tests

func (s *EngineSuite) TestUpdateSettings() {
	alice, bob := s.register("Alice"), s.register("Bob")
	r := s.createRoom(alice)
	s.join(r.ID, bob)
	s.recorder.Reset()
	mode := model.GameModeSuddenDeath
	private := model.VisibilityPrivate

	_, err := s.engine.UpdateSettings(s.ctx, r.ID, bob.Connection, model.RoomSettings{Mode: &mode})
	s.ErrorIs(err, model.ErrNotHost)

	updated, err := s.engine.UpdateSettings(s.ctx, r.ID, alice.Connection, model.RoomSettings{Mode: &mode, Visibility: &private})
	s.Require().NoError(err)
	s.Equal(model.GameModeSuddenDeath, updated.Mode)
	s.Len(s.recorder.OfType(model.EventRoomStateChanged), 1)
	s.Len(s.recorder.OfType(model.EventPublicRoomsChanged), 1)
}

// Power-up tests

func (s *EngineSuite) TestRelayPowerUpReachesEveryoneElse() {
	alice, bob, carol := s.register("Alice"), s.register("Bob"), s.register("Carol")
	r := s.createRoom(alice)
	s.join(r.ID, bob)
	s.join(r.ID, carol)
	s.recorder.Reset()

	s.Require().NoError(s.engine.RelayPowerUp(s.ctx, r.ID, alice.Connection, "freeze"))

	relayed := s.recorder.OfType(model.EventPowerUp)
	s.Require().Len(relayed, 2)
	s.Equal(bob.Connection, relayed[0].Connection)
	s.Equal(carol.Connection, relayed[1].Connection)
	s.Equal(model.PowerUpPayload{Type: "freeze", From: "Alice"}, relayed[0].Payload)

	s.ErrorIs(s.engine.RelayPowerUp(s.ctx, r.ID, "c-ghost", "freeze"), model.ErrPlayerNotFound)
}
