package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"shelter-finder-service/internal/domain"
	"shelter-finder-service/internal/platform/obs"
	"shelter-finder-service/internal/presentation"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client message types.
const (
	msgInput  = "input"
	msgSubmit = "submit"
	msgMode   = "mode"
)

type clientMessage struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	Mode string `json:"mode,omitempty"`
}

// SessionHandler gives every websocket connection its own presentation
// session and streams the session state back to the client.
type SessionHandler struct {
	Resolver    presentation.Resolver
	DefaultMode domain.TravelMode
	// InitialErr is shown by each new session, typically the directory
	// load error.
	InitialErr error
}

func (h *SessionHandler) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	logger := log.With().Str("req_id", obs.RequestID(ctx)).Str("remote", r.RemoteAddr).Logger()

	sess := presentation.NewSession(ctx, h.Resolver, h.DefaultMode, h.InitialErr)
	states, unsubscribe := sess.Subscribe()
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		writePump(conn, states, logger)
	}()

	readPump(conn, sess, logger)

	sess.Close()
	<-done
}

// readPump applies client messages to the session until the connection fails.
func readPump(conn *websocket.Conn, sess *presentation.Session, logger zerolog.Logger) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				logger.Debug().Err(err).Msg("ws ignoring malformed message")
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug().Err(err).Msg("ws read failed")
			}
			return
		}

		switch msg.Type {
		case msgInput:
			sess.SetInput(msg.Text)
		case msgSubmit:
			sess.Submit()
		case msgMode:
			mode, err := domain.ParseTravelMode(msg.Mode)
			if err != nil {
				logger.Debug().Str("mode", msg.Mode).Msg("ws ignoring unknown mode")
				continue
			}
			sess.SetMode(mode)
		default:
			logger.Debug().Str("type", msg.Type).Msg("ws ignoring unknown message type")
		}
	}
}

// writePump is the only writer on conn. It returns when states is closed
// or a write fails.
func writePump(conn *websocket.Conn, states <-chan presentation.State, logger zerolog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case st, ok := <-states:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(st); err != nil {
				logger.Debug().Err(err).Msg("ws write failed")
				// Unblock the reader so the session shuts down.
				conn.Close()
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}
		}
	}
}
