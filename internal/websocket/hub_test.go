package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threadview/internal/models"
	"threadview/internal/store"
)

func startHub(t *testing.T) (*Hub, *RemoteUI, *websocket.Conn) {
	t.Helper()
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ui := NewRemoteUI(hub)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(hub, conn, 0)
		if !hub.Join(client) {
			conn.Close()
			return
		}
		go client.WritePump()
		go client.ReadPump()
	}))
	t.Cleanup(server.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return hub.NumViewers() == 1 }, 2*time.Second, 10*time.Millisecond)
	return hub, ui, conn
}

func readFrame(t *testing.T, conn *websocket.Conn, v interface{}) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, v))
}

func TestHub_BroadcastsChangeNotices(t *testing.T) {
	hub, _, conn := startHub(t)

	hub.BroadcastChange(store.ChangeSet{QuickUpdate: true, PostsToUpdate: []models.PostID{1, 5}, NumPosts: 9})

	var notice ChangeNotice
	readFrame(t, conn, &notice)
	assert.Equal(t, "change", notice.Type)
	assert.True(t, notice.QuickUpdate)
	assert.Equal(t, []models.PostID{1, 5}, notice.PostsToUpdate)
	assert.Equal(t, 9, notice.NumPosts)
}

func TestRemoteUI_BroadcastsEffects(t *testing.T) {
	_, ui, conn := startHub(t)

	ui.LayoutChanged(true)

	var effect UIEffect
	readFrame(t, conn, &effect)
	assert.Equal(t, EffectLayoutChanged, effect.Effect)
	require.NotNil(t, effect.Horizontal)
	assert.True(t, *effect.Horizontal)
}

func TestRemoteUI_TakesReportedHeights(t *testing.T) {
	_, ui, conn := startHub(t)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"heights","heights":{"12":300,"13":40}}`)))

	assert.Eventually(t, func() bool { return ui.RenderedHeight(12) == 300 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 40, ui.RenderedHeight(13))
	assert.Zero(t, ui.RenderedHeight(14))
}
