package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mcoot/typerace/internal/api/apierr"
	"github.com/mcoot/typerace/internal/api/response"
	"github.com/mcoot/typerace/internal/model"
	"github.com/mcoot/typerace/internal/services/identity"
	"github.com/mcoot/typerace/internal/services/match"
	"github.com/mcoot/typerace/internal/services/membership"
	"github.com/mcoot/typerace/internal/services/presence"
)

var errUnknownFrame = errors.New("unknown frame type")

// Gateway upgrades websocket requests and routes client frames to the game services
type Gateway struct {
	hub        *Hub
	identities *identity.Registry
	members    *membership.Engine
	presence   *presence.Supervisor
	matches    *match.Controller
	upgrader   websocket.Upgrader
	logger     *slog.Logger
}

// NewGateway creates a Gateway
func NewGateway(
	hub *Hub,
	identities *identity.Registry,
	members *membership.Engine,
	presence *presence.Supervisor,
	matches *match.Controller,
	logger *slog.Logger,
) *Gateway {
	return &Gateway{
		hub:        hub,
		identities: identities,
		members:    members,
		presence:   presence,
		matches:    matches,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger.With(slog.String("component", "gateway")),
	}
}

// ServeWS upgrades the request and serves the connection until it drops.
// An optional token query parameter rebinds an existing session.
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	client := NewClient(model.ConnectionID(uuid.NewString()), ws, g.logger)
	g.hub.Register(client)
	go client.writePump()

	ctx := context.WithoutCancel(r.Context())
	if token := r.URL.Query().Get("token"); token != "" {
		reply, err := g.identify(ctx, client, IdentifyPayload{Token: token})
		g.reply(client, reply, err)
	}

	client.readPump(func(message []byte) {
		g.handle(ctx, client, message)
	})

	if g.hub.Unregister(client) {
		if err := g.presence.Disconnect(ctx, client.id); err != nil && !errors.Is(err, model.ErrIdentityNotFound) {
			g.logger.Warn("disconnect handling failed", slog.String("connection", string(client.id)), slog.Any("error", err))
		}
	}
}

// ServeHTTP implements http.Handler
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.ServeWS(w, r)
}

func (g *Gateway) handle(ctx context.Context, client *Client, message []byte) {
	var frame Inbound
	if err := json.Unmarshal(message, &frame); err != nil {
		g.reply(client, Reply{}, apierr.NewInvalidRequestError("Malformed frame"))
		return
	}
	reply, err := g.route(ctx, client, frame)
	g.reply(client, reply, err)
}

func (g *Gateway) route(ctx context.Context, client *Client, frame Inbound) (Reply, error) {
	if frame.Type == FrameIdentify {
		var p IdentifyPayload
		if err := decode(frame.Payload, &p); err != nil {
			return Reply{}, err
		}
		return g.identify(ctx, client, p)
	}

	ident, err := g.identities.FindByConnection(client.id)
	if err != nil {
		return Reply{}, err
	}

	switch frame.Type {
	case FrameJoinRoom:
		var p JoinRoomPayload
		if err := decode(frame.Payload, &p); err != nil {
			return Reply{}, err
		}
		r, err := g.members.Join(ctx, model.RoomID(p.RoomID), membership.JoinParams{
			DisplayName: ident.DisplayName,
			Connection:  client.id,
			Token:       ident.Token,
		})
		if err != nil {
			return Reply{}, err
		}
		g.presence.Reconnect(ident.Token)
		return Reply{Type: FrameJoined, Payload: response.RoomFromModel(r, nil)}, nil

	case FrameLeaveRoom:
		_, err := g.members.Leave(ctx, ident.RoomID, client.id)
		return Reply{}, err

	case FrameSetReady:
		var p SetReadyPayload
		if err := decode(frame.Payload, &p); err != nil {
			return Reply{}, err
		}
		_, err := g.members.SetReady(ctx, ident.RoomID, client.id, p.Ready)
		return Reply{}, err

	case FrameWordCompleted:
		var p WordCompletedPayload
		if err := decode(frame.Payload, &p); err != nil {
			return Reply{}, err
		}
		_, err := g.matches.WordCompleted(ctx, ident.RoomID, client.id, model.Difficulty(p.Difficulty))
		return Reply{}, err

	case FrameScoreUpdate:
		var p ScoreUpdatePayload
		if err := decode(frame.Payload, &p); err != nil {
			return Reply{}, err
		}
		_, err := g.matches.UpdateScore(ctx, ident.RoomID, ident.DisplayName, p.Score)
		return Reply{}, err

	case FramePlayerEliminated:
		_, err := g.matches.Eliminate(ctx, ident.RoomID, ident.DisplayName)
		return Reply{}, err

	case FramePowerUp:
		var p PowerUpPayload
		if err := decode(frame.Payload, &p); err != nil {
			return Reply{}, err
		}
		return Reply{}, g.members.RelayPowerUp(ctx, ident.RoomID, client.id, p.Type)

	case FrameLogout:
		return Reply{}, g.presence.Logout(ctx, ident.Token)

	default:
		return Reply{}, apierr.NewInvalidRequestError(errUnknownFrame.Error() + ": " + frame.Type)
	}
}

// identify binds the connection to a new or existing session
func (g *Gateway) identify(ctx context.Context, client *Client, p IdentifyPayload) (Reply, error) {
	ident, err := g.identities.Register(identity.RegisterParams{
		DisplayName: p.DisplayName,
		Connection:  client.id,
		Token:       model.Token(p.Token),
		IsGuest:     p.IsGuest,
	})
	if err != nil {
		return Reply{}, err
	}
	if g.presence.Reconnect(ident.Token) {
		g.logger.Info("session reconnected within grace", slog.String("display_name", ident.DisplayName))
	}
	if ident.InRoom() {
		// Take the seat back on the new connection
		_, err := g.members.Join(ctx, ident.RoomID, membership.JoinParams{
			DisplayName: ident.DisplayName,
			Connection:  client.id,
			Token:       ident.Token,
		})
		if err != nil {
			g.identities.ClearRoom(ident.Token, ident.RoomID)
			ident.RoomID = ""
		}
	}
	return Reply{
		Type: FrameIdentified,
		Payload: response.SessionResponse{
			Session:      response.SessionFromModel(ident),
			SessionToken: string(ident.Token),
		},
	}, nil
}

func (g *Gateway) reply(client *Client, reply Reply, err error) {
	if err != nil {
		_, apiErr := apierr.Describe(err)
		if apiErr.Code == apierr.CodeInternalError {
			g.logger.Error("frame handling failed", slog.String("connection", string(client.id)), slog.Any("error", err))
		}
		reply = Reply{Type: FrameError, Payload: apiErr}
	}
	if reply.Type == "" {
		return
	}
	data, err := json.Marshal(reply)
	if err != nil {
		g.logger.Error("failed to encode reply", slog.Any("error", err))
		return
	}
	g.hub.Send(client.id, data)
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return apierr.NewInvalidRequestError("Missing payload")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return apierr.NewInvalidRequestError("Malformed payload")
	}
	return nil
}
