package stream

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const pingInterval = 30 * time.Second

// RegisterRoutes serves /ws/:topic for the listed topics only.
func RegisterRoutes(r fiber.Router, hub *Hub, topics ...string) {
	known := make(map[string]struct{}, len(topics))
	for _, t := range topics {
		known[t] = struct{}{}
	}

	guard := func(c *fiber.Ctx) error {
		if _, ok := known[c.Params("topic")]; !ok {
			return fiber.NewError(fiber.StatusNotFound, "unknown topic")
		}
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	}

	r.Get("/ws/:topic", guard, websocket.New(func(c *websocket.Conn) {
		client := hub.Register(c.Params("topic"))
		defer hub.Unregister(client)

		done := make(chan struct{})
		go func() {
			defer close(done)
			ticker := time.NewTicker(pingInterval)
			defer ticker.Stop()
			for {
				select {
				case msg, ok := <-client.Send:
					if !ok {
						return
					}
					if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
						return
					}
				case <-ticker.C:
					if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
						return
					}
				}
			}
		}()

		// Clients only listen; reads detect the close.
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
		hub.Unregister(client)
		<-done
	}))
}
