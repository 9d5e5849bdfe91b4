package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/hathynn/warehouse-mobile-sub001/internal/broker"
	"github.com/hathynn/warehouse-mobile-sub001/internal/channel"
	"github.com/hathynn/warehouse-mobile-sub001/internal/grant"
	"github.com/hathynn/warehouse-mobile-sub001/internal/wire"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func signSession(t *testing.T, accountID string, role channel.Role) string {
	t.Helper()
	claims := jwt.MapClaims{
		"account_id": accountID,
		"role":       string(role),
		"exp":        time.Now().Add(time.Hour).Unix(),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return tok
}

func newTestServer(t *testing.T) (*Server, *broker.Hub) {
	t.Helper()
	verify := func(auth, socketID, channelName string) error {
		return grant.Verify(testSecret, auth, socketID, channelName)
	}
	hub := broker.NewHub(verify, nil, nil)
	go hub.Run()
	t.Cleanup(hub.Stop)
	return New(hub, testSecret, nil, nil), hub
}

func postJSON(t *testing.T, s *Server, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)
	return w
}

func TestChannelAuthIssuesGrant(t *testing.T) {
	s, _ := newTestServer(t)
	token := signSession(t, "42", channel.RoleStaff)

	w := postJSON(t, s, "/broker/auth", token, map[string]string{
		"socket_id":    "sock-1",
		"channel_name": "private-notifications-STAFF-42",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Auth string `json:"auth"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NoError(t, grant.Verify(testSecret, resp.Auth, "sock-1", "private-notifications-STAFF-42"))
}

func TestChannelAuthRefusesForeignChannel(t *testing.T) {
	s, _ := newTestServer(t)
	token := signSession(t, "42", channel.RoleStaff)

	w := postJSON(t, s, "/broker/auth", token, map[string]string{
		"socket_id":    "sock-1",
		"channel_name": "private-notifications-STAFF-43",
	})
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestChannelAuthRequiresSession(t *testing.T) {
	s, _ := newTestServer(t)

	w := postJSON(t, s, "/broker/auth", "", map[string]string{
		"socket_id":    "sock-1",
		"channel_name": "private-notifications-ADMIN",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestChannelAuthValidatesBody(t *testing.T) {
	s, _ := newTestServer(t)
	token := signSession(t, "42", channel.RoleStaff)

	w := postJSON(t, s, "/broker/auth", token, map[string]string{"socket_id": "sock-1"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPublishRequiresAdminRole(t *testing.T) {
	s, _ := newTestServer(t)

	body := map[string]any{"channel": "private-notifications-ADMIN", "event": "import-order-created"}

	w := postJSON(t, s, "/api/v1/events", signSession(t, "42", channel.RoleStaff), body)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = postJSON(t, s, "/api/v1/events", signSession(t, "backend", channel.RoleAdmin), body)
	require.Equal(t, http.StatusAccepted, w.Code)
}

func TestPublishRejectsSystemEvents(t *testing.T) {
	s, _ := newTestServer(t)

	w := postJSON(t, s, "/api/v1/events", signSession(t, "backend", channel.RoleAdmin), map[string]any{
		"channel": "private-notifications-ADMIN",
		"event":   "system:connection_established",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func readFrame(t *testing.T, conn *websocket.Conn) wire.Frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame wire.Frame
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

// Full path: connect, authorize, subscribe, publish over HTTP, receive.
func TestEndToEndDelivery(t *testing.T) {
	s, hub := newTestServer(t)
	ts := httptest.NewServer(s.Engine())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	frame := readFrame(t, conn)
	require.Equal(t, wire.SysConnectionEstablished, frame.Event)
	var established wire.ConnectionEstablishedData
	require.NoError(t, json.Unmarshal(frame.Data, &established))
	require.NotEmpty(t, established.SocketID)

	// Authorize over HTTP exactly as the mobile client would.
	authResp, err := http.Post(ts.URL+"/broker/auth", "application/json", nil)
	require.NoError(t, err)
	authResp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, authResp.StatusCode, "auth without a session must fail")

	w := postJSON(t, s, "/broker/auth", signSession(t, "42", channel.RoleStaff), map[string]string{
		"socket_id":    established.SocketID,
		"channel_name": "private-notifications-STAFF-42",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var auth struct {
		Auth string `json:"auth"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &auth))

	sub, err := wire.Marshal(wire.SysSubscribe, "", wire.SubscribeData{
		Channel: "private-notifications-STAFF-42",
		Auth:    auth.Auth,
	})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, sub))

	frame = readFrame(t, conn)
	require.Equal(t, wire.SysSubscriptionSucceeded, frame.Event)
	require.Eventually(t, func() bool {
		return hub.SubscriberCount("private-notifications-STAFF-42") == 1
	}, time.Second, 5*time.Millisecond)

	w = postJSON(t, s, "/api/v1/events", signSession(t, "backend", channel.RoleAdmin), map[string]any{
		"channel": "private-notifications-STAFF-42",
		"event":   "import-order-ready-to-store-1007",
		"data":    map[string]any{"importOrderId": "1007"},
	})
	require.Equal(t, http.StatusAccepted, w.Code)

	frame = readFrame(t, conn)
	require.Equal(t, "import-order-ready-to-store-1007", frame.Event)
	require.Equal(t, "private-notifications-STAFF-42", frame.Channel)
}

// A forged or foreign grant must not open the channel.
func TestSubscribeWithBadGrantRefused(t *testing.T) {
	s, hub := newTestServer(t)
	ts := httptest.NewServer(s.Engine())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	frame := readFrame(t, conn)
	require.Equal(t, wire.SysConnectionEstablished, frame.Event)

	sub, err := wire.Marshal(wire.SysSubscribe, "", wire.SubscribeData{
		Channel: "private-notifications-ADMIN",
		Auth:    "forged",
	})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, sub))

	frame = readFrame(t, conn)
	require.Equal(t, wire.SysError, frame.Event)
	require.Equal(t, 0, hub.SubscriberCount("private-notifications-ADMIN"))
}
