package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/meetlink/signaling/internal/application/config"
	"github.com/meetlink/signaling/internal/application/constant"
	"github.com/meetlink/signaling/internal/domain/events"
	"github.com/meetlink/signaling/internal/domain/models"
	"github.com/meetlink/signaling/internal/identity"
	"github.com/meetlink/signaling/internal/infra/adapters/memory"
	"github.com/meetlink/signaling/internal/usecase"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
)

type WebSocketHandler struct {
	upgrader *websocket.Upgrader

	resolver *identity.Resolver

	presenceUsecase  usecase.PresenceUsecase
	signalingUsecase usecase.SignalingUsecase

	connRegistry memory.ConnectionRegistry
}

func NewWebSocketHandler(
	cfg *config.Config,
	resolver *identity.Resolver,
	presenceUsecase usecase.PresenceUsecase,
	signalingUsecase usecase.SignalingUsecase,
	connRegistry memory.ConnectionRegistry,
) *WebSocketHandler {
	return &WebSocketHandler{
		upgrader: &websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if cfg.Debug {
					return true
				}

				return r.Header.Get("Origin") == cfg.Domain
			},
		},
		resolver:         resolver,
		presenceUsecase:  presenceUsecase,
		signalingUsecase: signalingUsecase,
		connRegistry:     connRegistry,
	}
}

func (h *WebSocketHandler) Handle(c echo.Context) error {
	// The credential is optional and unverified; identity resolution
	// never rejects the connection.
	credential := c.QueryParam("token")

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"WebSocket upgrade error",
			slog.Any(constant.Error, err),
		)
		return err
	}
	defer ws.Close()

	connID := uuid.New().String()

	sess := &models.Session{
		ConnID:   connID,
		Identity: h.resolver.Resolve(credential, connID),
	}

	slog.Info(
		"connected",
		slog.String(constant.ConnID, connID),
		slog.String(constant.MemberID, sess.Identity.ID),
		slog.String("name", sess.Identity.Name),
	)

	h.connRegistry.Add(connID, ws)
	defer h.connRegistry.Remove(connID)

	// Disconnect drives the leave path; everything downstream
	// (broadcasts, teardown) belongs to the presence usecase.
	defer func() {
		if err := h.presenceUsecase.HandleLeave(c.Request().Context(), sess); err != nil {
			slog.Error(
				"handle leave on disconnect",
				slog.Any(constant.Error, err),
				slog.String(constant.ConnID, connID),
			)
		}
	}()

	h.writeConnected(sess)

	if err := ws.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return err
	}
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ticker.C:
				if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
					return
				}
			case <-c.Request().Context().Done():
				return
			}
		}
	}()

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			h.logDisconnect(sess, err)
			return nil
		}

		msg := new(events.Message)

		if err = json.Unmarshal(raw, msg); err != nil {
			slog.Error(
				"unmarshal websocket message",
				slog.Any(constant.Error, err),
				slog.String(constant.ConnID, connID),
			)
			continue
		}

		// Events are isolated: a failing handler never takes down the
		// connection or touches other rooms.
		if err = h.handleMessage(c.Request().Context(), sess, msg); err != nil {
			slog.Error(
				"handle message",
				slog.Any(constant.Error, err),
				slog.String(constant.Event, msg.Type),
				slog.String(constant.ConnID, connID),
			)
		}
	}
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, sess *models.Session, msg *events.Message) error {
	switch msg.Type {
	case events.TypeJoinRoom:
		var ev events.JoinRoomEvent

		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			return fmt.Errorf("unmarshal join_room event: %w", err)
		}

		return h.presenceUsecase.HandleJoin(ctx, sess, ev)

	case events.TypeSetRoomName:
		var ev events.SetRoomNameEvent

		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			return fmt.Errorf("unmarshal set_room_name event: %w", err)
		}

		return h.presenceUsecase.HandleSetRoomName(ctx, ev)

	case events.TypeOffer:
		var ev events.OfferEvent

		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			return fmt.Errorf("unmarshal offer event: %w", err)
		}

		return h.signalingUsecase.HandleOffer(ctx, sess, ev)

	case events.TypeAnswer:
		var ev events.AnswerEvent

		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			return fmt.Errorf("unmarshal answer event: %w", err)
		}

		return h.signalingUsecase.HandleAnswer(ctx, sess, ev)

	case events.TypeIce:
		var ev events.IceEvent

		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			return fmt.Errorf("unmarshal ice event: %w", err)
		}

		return h.signalingUsecase.HandleCandidate(ctx, sess, ev)

	case events.TypeChatMessage:
		var ev events.ChatMessageEvent

		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			return fmt.Errorf("unmarshal chat_message event: %w", err)
		}

		return h.signalingUsecase.HandleChatMessage(ctx, sess, ev)

	case events.TypeMediaStateChange:
		var ev events.MediaStateEvent

		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			return fmt.Errorf("unmarshal media_state_change event: %w", err)
		}

		return h.signalingUsecase.HandleMediaState(ctx, sess, ev)

	default:
		return errors.New("unknown message type")
	}
}

func (h *WebSocketHandler) writeConnected(sess *models.Session) {
	msg, err := events.Wrap(events.TypeConnected, events.ConnectedEvent{SocketID: sess.ConnID})
	if err != nil {
		slog.Error("wrap connected payload", slog.Any(constant.Error, err))
		return
	}

	h.connRegistry.Write(sess.ConnID, msg)
}

func (h *WebSocketHandler) logDisconnect(sess *models.Session, err error) {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		switch closeErr.Code {
		case websocket.CloseNormalClosure, websocket.CloseGoingAway:
			slog.Info("disconnected", slog.String(constant.ConnID, sess.ConnID))
		default:
			slog.Error(
				"websocket close error",
				slog.Any(constant.Error, err),
				slog.String(constant.ConnID, sess.ConnID),
			)
		}
	} else {
		slog.Error(
			"websocket read",
			slog.Any(constant.Error, err),
			slog.String(constant.ConnID, sess.ConnID),
		)
	}
}
