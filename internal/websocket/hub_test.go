package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, hub *Hub, secret []byte) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/ws", func(c *gin.Context) { ServeWs(hub, c, secret) })
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func TestPublishReachesClients(t *testing.T) {
	log, _ := test.NewNullLogger()
	hub := NewHub(log)
	go hub.Run()
	defer hub.Stop()

	conn, _, err := websocket.DefaultDialer.Dial(newServer(t, hub, nil), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, hub.Publish("stock_in.created", map[string]string{"item_name": "A"}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Event string            `json:"event"`
		Data  map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, "stock_in.created", msg.Event)
	assert.Equal(t, "A", msg.Data["item_name"])
}

func TestServeWsRequiresTokenWhenSecretSet(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	defer hub.Stop()
	secret := []byte("s3cret")
	url := newServer(t, hub, secret)

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "operator",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString(secret)
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(url+"?token="+token, nil)
	require.NoError(t, err)
	_ = conn.Close()
}

func TestPublishNeverBlocks(t *testing.T) {
	hub := NewHub(nil)
	for i := 0; i < cap(hub.Broadcast); i++ {
		require.NoError(t, hub.Publish("tick", i))
	}
	assert.ErrorIs(t, hub.Publish("tick", "overflow"), ErrHubFull)

	hub.Stop()
	hub.Stop() // idempotent
}
