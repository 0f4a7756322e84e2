package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/meetlink/signaling/internal/application/constant"
	"github.com/meetlink/signaling/internal/application/metric"
	"github.com/meetlink/signaling/internal/domain/events"
	"github.com/meetlink/signaling/internal/domain/models"
	"github.com/meetlink/signaling/internal/infra/adapters/memory"
)

// SignalingUsecase routes session negotiation messages between specific
// peers and fans room-scoped chat / media-state messages out. Payloads
// stay opaque; only addressing is interpreted.
type SignalingUsecase interface {
	HandleOffer(ctx context.Context, sess *models.Session, ev events.OfferEvent) error
	HandleAnswer(ctx context.Context, sess *models.Session, ev events.AnswerEvent) error
	HandleCandidate(ctx context.Context, sess *models.Session, ev events.IceEvent) error

	HandleChatMessage(ctx context.Context, sess *models.Session, ev events.ChatMessageEvent) error
	HandleMediaState(ctx context.Context, sess *models.Session, ev events.MediaStateEvent) error
}

type signalingUsecase struct {
	roomRegistry memory.RoomRegistry
	connRegistry memory.ConnectionRegistry

	now func() time.Time
}

func NewSignalingUsecase(roomRegistry memory.RoomRegistry, connRegistry memory.ConnectionRegistry) SignalingUsecase {
	return &signalingUsecase{
		roomRegistry: roomRegistry,
		connRegistry: connRegistry,
		now:          time.Now,
	}
}

func (s *signalingUsecase) HandleOffer(ctx context.Context, sess *models.Session, ev events.OfferEvent) error {
	return s.relay(sess, events.TypeOffer, ev.TargetID, events.OfferForward{From: sess.ConnID, Offer: ev.Offer})
}

func (s *signalingUsecase) HandleAnswer(ctx context.Context, sess *models.Session, ev events.AnswerEvent) error {
	return s.relay(sess, events.TypeAnswer, ev.TargetID, events.AnswerForward{From: sess.ConnID, Answer: ev.Answer})
}

func (s *signalingUsecase) HandleCandidate(ctx context.Context, sess *models.Session, ev events.IceEvent) error {
	return s.relay(sess, events.TypeIce, ev.TargetID, events.IceForward{From: sess.ConnID, Candidate: ev.Candidate})
}

// relay forwards payload to a single target connection. An unknown
// target means the peer disconnected mid-negotiation: the message is
// dropped with a diagnostic and the caller's next renegotiation
// surfaces the problem.
func (s *signalingUsecase) relay(sess *models.Session, eventType, targetID string, payload any) error {
	if !s.connRegistry.Connected(targetID) {
		slog.Warn(
			"relay target not connected",
			slog.String(constant.Event, eventType),
			slog.String(constant.ConnID, sess.ConnID),
			slog.String(constant.TargetID, targetID),
		)
		return nil
	}

	msg, err := events.Wrap(eventType, payload)
	if err != nil {
		return err
	}

	s.connRegistry.Write(targetID, msg)

	metric.IncrementRelayedMessages(eventType)

	return nil
}

func (s *signalingUsecase) HandleChatMessage(ctx context.Context, sess *models.Session, ev events.ChatMessageEvent) error {
	if strings.TrimSpace(ev.Message) == "" {
		return nil
	}

	chat := events.ChatBroadcast{
		Sender:    sess.Identity.Name,
		MemID:     sess.Identity.ID,
		Message:   ev.Message,
		Timestamp: s.now(),
		SocketID:  sess.ConnID,
	}

	// Chat echoes back to the sender too.
	s.broadcast(ev.RoomID, events.TypeChatMessage, chat, "")

	metric.IncrementRelayedMessages(events.TypeChatMessage)

	return nil
}

func (s *signalingUsecase) HandleMediaState(ctx context.Context, sess *models.Session, ev events.MediaStateEvent) error {
	state := events.MediaStateBroadcast{
		SocketID: sess.ConnID,
		Kind:     ev.Kind,
		Enabled:  ev.Enabled,
	}

	s.broadcast(ev.RoomID, events.TypeMediaStateChange, state, sess.ConnID)

	metric.IncrementRelayedMessages(events.TypeMediaStateChange)

	return nil
}

func (s *signalingUsecase) broadcast(roomID, eventType string, payload any, excludeConnID string) {
	msg, err := events.Wrap(eventType, payload)
	if err != nil {
		slog.Error("wrap broadcast payload", slog.Any(constant.Error, err), slog.String(constant.Event, eventType))
		return
	}

	for _, p := range s.roomRegistry.Participants(roomID) {
		if p.SocketID == excludeConnID {
			continue
		}
		s.connRegistry.Write(p.SocketID, msg)
	}
}
