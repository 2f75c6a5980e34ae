package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/bugmatch/bugmatch/internal/middleware"
)

// writeTimeout bounds a single outbound WebSocket write so one dead
// connection cannot stall its write pump indefinitely.
const writeTimeout = 3 * time.Second

// WSHandler upgrades the HTTP connection to the single game WebSocket. All
// inbound events for both room and game phases arrive on this socket.
func WSHandler(logger *logrus.Logger, s *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Resolve identity before Accept; the upgrade response is the last
		// chance to set the guest cookie.
		playerID, err := EnsureGuest(w, r)
		if err != nil {
			logger.Warnf("guest identity setup failed: %v", err)
			http.Error(w, "could not establish identity", http.StatusInternalServerError)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"bugmatch"},
			OriginPatterns: []string{"*"}, // Adjust for production security.
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "bugmatch" {
			c.Close(BadSubprotocolError, "client must speak the bugmatch subprotocol")
			return
		}

		middleware.LogWebSocketConnect(logger, r.RemoteAddr, playerID)

		client := NewClient(playerID)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		go writePump(ctx, c, client, logger)

		// Connection-scoped hello so the client knows its own id.
		s.Hub.Send(client, ServerMessage{Type: MsgSession, PlayerID: playerID.String()})

		readErr := readPump(ctx, c, s, client, logger)

		// A dropped connection routes through the same path as room:leave.
		s.Disconnect(client)
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, playerID, readErr)
	}
}

// readPump reads client messages until the connection closes, routing each
// through the server's dispatcher.
func readPump(ctx context.Context, c *websocket.Conn, s *GameServer, client *Client, logger *logrus.Logger) error {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				return nil
			}
			if strings.Contains(err.Error(), "context canceled") {
				return nil
			}
			return err
		}
		if msgType != websocket.MessageText {
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Warnf("invalid JSON from player %s: %v", client.PlayerID, err)
			s.Hub.Send(client, ServerMessage{Type: MsgRoomError, Error: "invalid JSON"})
			continue
		}

		logger.Debugf("event %q from player %s", msg.Type, client.PlayerID)
		s.HandleMessage(client, msg)
	}
}

// writePump drains the client's outbox onto the socket. Exits when the
// connection context ends; each write is individually time-bounded.
func writePump(ctx context.Context, c *websocket.Conn, client *Client, logger *logrus.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-client.Out:
			payload, err := json.Marshal(msg)
			if err != nil {
				logger.Errorf("failed to marshal %s message: %v", msg.Type, err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err = c.Write(writeCtx, websocket.MessageText, payload)
			cancel()
			if err != nil {
				logger.Warnf("write to player %s failed: %v", client.PlayerID, err)
				return
			}
		}
	}
}
