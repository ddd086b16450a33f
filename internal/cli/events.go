package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/mcoot/typerace/internal/api/response"
)

func newEventsCmd() *cobra.Command {
	var jsonOutput bool
	var name string

	cmd := &cobra.Command{
		Use:   "events [room]",
		Short: "Hold a realtime connection and stream room events",
		Long: `Open the websocket connection for the current session and print
every frame the server sends. With a room argument the connection joins
that room first. Without a saved session, --name starts a guest session
and saves its token.

Frames include:
  - identified, joined, error: replies to this connection
  - membership-changed: the room's players changed
  - room-state-changed: settings or match state changed
  - public-room-list-changed: the public room list changed
  - player-eliminated, match-ended: survival match progress
  - input-locked, power-up: effects aimed at this player
  - player-removed: this player was kicked or timed out

Press Ctrl+C to disconnect.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			room := ""
			if len(args) == 1 {
				room = args[0]
			}
			return streamEvents(room, name, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output frames as JSON lines")
	cmd.Flags().StringVar(&name, "name", "", "Guest display name when no session is saved")

	return cmd
}

// Frame is the common shape of every server frame
type Frame struct {
	Type    string          `json:"type"`
	RoomID  string          `json:"room_id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// wsURL turns the server URL into the websocket endpoint
func wsURL(server, token string) (string, error) {
	u, err := url.Parse(strings.TrimSuffix(server, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path += "/ws"
	if token != "" {
		u.RawQuery = url.Values{"token": {token}}.Encode()
	}
	return u.String(), nil
}

func streamEvents(room, name string, jsonOutput bool) error {
	if cfg.Token == "" && name == "" {
		return fmt.Errorf("no saved session; pass --name or run 'typerace session start'")
	}

	endpoint, err := wsURL(cfg.ServerURL, cfg.Token)
	if err != nil {
		return err
	}

	// Set up cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = conn.Close() }()

	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	if cfg.Token == "" {
		if err := send(conn, "identify", map[string]any{"display_name": name, "is_guest": true}); err != nil {
			return err
		}
	}
	if room != "" {
		if err := send(conn, "join-room", map[string]string{"room_id": room}); err != nil {
			return err
		}
	}

	if !jsonOutput {
		fmt.Println("Connected")
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				if !jsonOutput {
					fmt.Println("\nDisconnected")
				}
				return nil
			}
			return fmt.Errorf("stream error: %w", err)
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		if frame.Type == "identified" {
			saveIdentified(frame.Payload)
		}
		printFrame(frame, data, jsonOutput)
	}
}

func send(conn *websocket.Conn, frameType string, payload any) error {
	data, err := json.Marshal(map[string]any{"type": frameType, "payload": payload})
	if err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to send %s: %w", frameType, err)
	}
	return nil
}

// saveIdentified keeps the token of a session created by this connection
func saveIdentified(payload json.RawMessage) {
	var sess response.SessionResponse
	if err := json.Unmarshal(payload, &sess); err != nil || sess.SessionToken == "" {
		return
	}
	if sess.SessionToken != cfg.Token {
		if err := cfg.SaveToken(sess.SessionToken); err != nil {
			fmt.Fprintf(os.Stderr, "failed to save token: %s\n", err)
		}
	}
}

func printFrame(frame Frame, raw []byte, jsonOutput bool) {
	if jsonOutput {
		fmt.Println(string(raw))
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	// Truncate data if it's too long for display
	displayData := string(frame.Payload)
	if len(displayData) > 100 {
		displayData = displayData[:100] + "..."
	}
	fmt.Printf("[%s] %s: %s\n", timestamp, frame.Type, displayData)
}
