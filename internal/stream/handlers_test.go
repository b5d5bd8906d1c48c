package stream

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
)

func TestStreamHandlersUpgradeRequired(t *testing.T) {
	app := fiber.New()
	RegisterRoutes(app.Group("/stream"), NewHub(nil), "posts")

	req := httptest.NewRequest(http.MethodGet, "/stream/ws/posts", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	if resp.StatusCode != http.StatusUpgradeRequired {
		t.Fatalf("expected 426 for non-websocket request, got %d", resp.StatusCode)
	}
}

func TestStreamHandlersUnknownTopic(t *testing.T) {
	app := fiber.New()
	RegisterRoutes(app.Group("/stream"), NewHub(nil), "posts")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/stream/ws/secrets", nil))
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown topic, got %d", resp.StatusCode)
	}
}

func serve(t *testing.T, hub *Hub) string {
	t.Helper()
	app := fiber.New()
	RegisterRoutes(app.Group("/stream"), hub, "posts", "announcements")

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen error: %v", err)
	}
	go func() {
		_ = app.Listener(ln)
	}()
	t.Cleanup(func() { _ = app.Shutdown() })
	return "ws://" + ln.Addr().String()
}

func waitForSubscribers(t *testing.T, hub *Hub, topic string, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for hub.subscriberCount(topic) != n {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %d subscribers on %s", n, topic)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStreamHandlersWebsocketPublish(t *testing.T) {
	hub := NewHub(nil)
	base := serve(t, hub)

	conn, _, err := websocket.DefaultDialer.Dial(base+"/stream/ws/posts", nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	defer conn.Close()
	waitForSubscribers(t, hub, "posts", 1)

	hub.Publish("posts", []byte(`{"type":"post_accepted","post_id":"1"}`))
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	if string(msg) != `{"type":"post_accepted","post_id":"1"}` {
		t.Fatalf("unexpected message %s", msg)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("client")); err != nil {
		t.Fatalf("write error: %v", err)
	}
}

func TestStreamHandlersUnregisterOnClose(t *testing.T) {
	hub := NewHub(nil)
	base := serve(t, hub)

	conn, _, err := websocket.DefaultDialer.Dial(base+"/stream/ws/announcements", nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	waitForSubscribers(t, hub, "announcements", 1)

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	conn.Close()

	waitForSubscribers(t, hub, "announcements", 0)
	hub.Publish("announcements", []byte("ping"))
}
