package e2e_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/typerace/internal/api"
	"github.com/mcoot/typerace/internal/api/response"
	"github.com/mcoot/typerace/internal/factory"
)

// cliRunner manages CLI binary execution
type cliRunner struct {
	binaryPath      string
	serverURL       string
	tokenFile       string
	accessTokenFile string
}

func buildCLI(t *testing.T) string {
	t.Helper()

	// Find project root (where go.mod is)
	projectRoot := findProjectRoot(t)

	binaryPath := filepath.Join(t.TempDir(), "typerace-test")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/typerace")
	cmd.Dir = projectRoot
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "failed to build CLI: %s", string(output))
	return binaryPath
}

func newCLIRunner(t *testing.T, binaryPath, serverURL string) *cliRunner {
	t.Helper()

	dir := t.TempDir()
	return &cliRunner{
		binaryPath:      binaryPath,
		serverURL:       serverURL,
		tokenFile:       filepath.Join(dir, "token"),
		accessTokenFile: filepath.Join(dir, "access_token"),
	}
}

func (r *cliRunner) command(args ...string) *exec.Cmd {
	fullArgs := append([]string{
		"--server", r.serverURL,
		"--token-file", r.tokenFile,
		"--access-token-file", r.accessTokenFile,
		"--output", "json",
	}, args...)

	cmd := exec.Command(r.binaryPath, fullArgs...)
	// Keep the caller's TYPERACE_* settings out of the test
	cmd.Env = []string{"HOME=" + filepath.Dir(r.tokenFile), "PATH=" + os.Getenv("PATH")}
	return cmd
}

func (r *cliRunner) run(args ...string) (string, error) {
	output, err := r.command(args...).CombinedOutput()
	return string(output), err
}

// connect starts a background events stream so the session holds a live
// connection, and waits until the session token is saved
func (r *cliRunner) connect(t *testing.T, name string, room string) {
	t.Helper()

	args := []string{"events", "--json", "--name", name}
	if room != "" {
		args = append(args, room)
	}
	cmd := r.command(args...)
	require.NoError(t, cmd.Start())
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	})

	require.Eventually(t, func() bool {
		_, err := os.Stat(r.tokenFile)
		return err == nil
	}, 5*time.Second, 50*time.Millisecond, "events stream never identified")
}

func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// testServer manages a real HTTP server for e2e tests
type testServer struct {
	addr     string
	shutdown func()
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	// Create application
	app, err := factory.New(factory.Config{Logger: logger})
	require.NoError(t, err)

	router := api.NewRouter(api.RouterConfig{
		Logger:     logger,
		Identities: app.Identities,
		Rooms:      app.Rooms,
		Members:    app.Members,
		Presence:   app.Presence,
		Matches:    app.Matches,
		Accounts:   app.Accounts,
		Scores:     app.Scores,
		Words:      app.Words,
		Gateway:    app.Gateway,
	})

	server := api.NewServer(router, api.DefaultServerConfig(), logger)
	server.OnShutdown(app.Hub.Close)

	go func() {
		if err := server.Serve(listener); err != nil {
			t.Logf("server error: %v", err)
		}
	}()

	// Wait for server to be ready
	serverURL := "http://" + listener.Addr().String()
	waitForServer(t, serverURL+"/api/v1/health")

	return &testServer{
		addr: serverURL,
		shutdown: func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(ctx)
			_ = app.Close()
		},
	}
}

func waitForServer(t *testing.T, url string) {
	t.Helper()

	client := &http.Client{Timeout: 100 * time.Millisecond}
	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}

	t.Fatal("server did not become ready in time")
}

type messageResponse struct {
	Message string `json:"message"`
}

// Tests

func TestCLI(t *testing.T) {
	if testing.Short() {
		t.Skip("builds the CLI binary")
	}

	ts := startTestServer(t)
	defer ts.shutdown()

	binary := buildCLI(t)

	t.Run("HealthCheck", func(t *testing.T) {
		cli := newCLIRunner(t, binary, ts.addr)

		output, err := cli.run("health")
		require.NoError(t, err, "output: %s", output)

		var resp response.Health
		require.NoError(t, json.Unmarshal([]byte(output), &resp))
		assert.Equal(t, "ok", resp.Status)
	})

	t.Run("SessionCommands", func(t *testing.T) {
		cli := newCLIRunner(t, binary, ts.addr)

		output, err := cli.run("session", "start", "--name", "Alice")
		require.NoError(t, err, "output: %s", output)

		var created response.SessionResponse
		require.NoError(t, json.Unmarshal([]byte(output), &created))
		assert.Equal(t, "Alice", created.Session.DisplayName)
		assert.True(t, created.Session.IsGuest)
		assert.NotEmpty(t, created.SessionToken)

		// Token is read back from the token file
		output, err = cli.run("session", "show")
		require.NoError(t, err, "output: %s", output)
		var sess response.Session
		require.NoError(t, json.Unmarshal([]byte(output), &sess))
		assert.Equal(t, "Alice", sess.DisplayName)

		output, err = cli.run("session", "page", "game")
		require.NoError(t, err, "output: %s", output)

		output, err = cli.run("session", "end")
		require.NoError(t, err, "output: %s", output)
		var msg messageResponse
		require.NoError(t, json.Unmarshal([]byte(output), &msg))
		assert.Equal(t, "Session ended", msg.Message)

		_, err = cli.run("session", "show")
		assert.Error(t, err)
	})

	t.Run("AccountCommands", func(t *testing.T) {
		cli := newCLIRunner(t, binary, ts.addr)

		output, err := cli.run("account", "register", "--user", "carol", "--pass", "secret123", "--avatar", "owl")
		require.NoError(t, err, "output: %s", output)

		output, err = cli.run("account", "login", "--user", "carol", "--pass", "secret123")
		require.NoError(t, err, "output: %s", output)

		output, err = cli.run("account", "update", "--color", "purple")
		require.NoError(t, err, "output: %s", output)
		var acct response.Account
		require.NoError(t, json.Unmarshal([]byte(output), &acct))
		assert.Equal(t, "owl", acct.Avatar)
		assert.Equal(t, "purple", acct.Color)

		output, err = cli.run("session", "start", "--account")
		require.NoError(t, err, "output: %s", output)
		var created response.SessionResponse
		require.NoError(t, json.Unmarshal([]byte(output), &created))
		assert.Equal(t, "carol", created.Session.DisplayName)
		assert.False(t, created.Session.IsGuest)
	})

	t.Run("WordsAndStats", func(t *testing.T) {
		cli := newCLIRunner(t, binary, ts.addr)

		output, err := cli.run("words", "--difficulty", "hard", "--count", "2")
		require.NoError(t, err, "output: %s", output)
		var words response.Words
		require.NoError(t, json.Unmarshal([]byte(output), &words))
		assert.Len(t, words["hard"], 2)

		output, err = cli.run("stats")
		require.NoError(t, err, "output: %s", output)
	})

	t.Run("RoomFlow", func(t *testing.T) {
		host := newCLIRunner(t, binary, ts.addr)
		guest := newCLIRunner(t, binary, ts.addr)

		// Room changes need a live connection
		host.connect(t, "Dave", "")

		output, err := host.run("rooms", "create", "--name", "Dave's race", "--mode", "classic", "--duration", "30")
		require.NoError(t, err, "output: %s", output)
		var room response.Room
		require.NoError(t, json.Unmarshal([]byte(output), &room))
		assert.Equal(t, "Dave's race", room.Name)
		require.Len(t, room.Players, 1)

		output, err = host.run("rooms", "list")
		require.NoError(t, err, "output: %s", output)
		var rooms []response.RoomSummary
		require.NoError(t, json.Unmarshal([]byte(output), &rooms))
		assert.NotEmpty(t, rooms)

		// The guest's stream joins the room on connect
		guest.connect(t, "Erin", room.ID)
		require.Eventually(t, func() bool {
			output, err := host.run("rooms", "get", room.ID)
			if err != nil {
				return false
			}
			var current response.Room
			return json.Unmarshal([]byte(output), &current) == nil && len(current.Players) == 2
		}, 5*time.Second, 100*time.Millisecond)

		output, err = guest.run("rooms", "ready", room.ID)
		require.NoError(t, err, "output: %s", output)

		output, err = host.run("rooms", "start", room.ID)
		require.NoError(t, err, "output: %s", output)
		var started response.Room
		require.NoError(t, json.Unmarshal([]byte(output), &started))
		assert.True(t, started.IsPlaying)

		output, err = guest.run("rooms", "score", room.ID, "--score", "17", "--wpm", "64")
		require.NoError(t, err, "output: %s", output)

		output, err = host.run("scores", "Erin")
		require.NoError(t, err, "output: %s", output)
		var history []response.ScoreEntry
		require.NoError(t, json.Unmarshal([]byte(output), &history))
		require.Len(t, history, 1)
		assert.Equal(t, 17, history[0].Score)
	})
}
