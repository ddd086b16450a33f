package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/typerace/internal/testutil"
)

func TestLoggingRecordsStatus(t *testing.T) {
	logger, logs := testutil.CaptureLogger()
	h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/rooms", nil))

	records := logs.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "http request", records[0]["msg"])
	assert.Equal(t, "/api/v1/rooms", records[0]["path"])
	assert.EqualValues(t, http.StatusTeapot, records[0]["status"])
	assert.EqualValues(t, 5, records[0]["size"])
}

func TestRecoveryWritesHandlerResponse(t *testing.T) {
	logger, logs := testutil.CaptureLogger()
	h := Recovery(logger, DefaultPanicHandler)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/rooms", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	records := logs.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "panic recovered", records[0]["msg"])
	assert.Equal(t, false, records[0]["committed"])
}

func TestRecoveryLeavesCommittedResponse(t *testing.T) {
	logger, _ := testutil.CaptureLogger()
	h := Recovery(logger, DefaultPanicHandler)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		panic("late")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.NotContains(t, rec.Body.String(), "Internal Server Error")
}

func TestWebsocketUpgradeThroughMiddleware(t *testing.T) {
	logger, logs := testutil.CaptureLogger()
	upgrader := websocket.Upgrader{}
	handler := Recovery(logger, DefaultPanicHandler)(Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, msg)
	})))

	srv := httptest.NewServer(handler)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("ping")))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "ping", string(msg))
	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool {
		for _, rec := range logs.Records() {
			if rec["msg"] == "http request" && rec["upgraded"] == true {
				return rec["status"] == float64(http.StatusSwitchingProtocols)
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}
