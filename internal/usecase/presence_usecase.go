package usecase

import (
	"context"
	"log/slog"

	"github.com/meetlink/signaling/internal/application/constant"
	"github.com/meetlink/signaling/internal/domain/events"
	"github.com/meetlink/signaling/internal/domain/models"
	"github.com/meetlink/signaling/internal/infra/adapters/memory"
)

// PresenceUsecase implements join/leave semantics, the unique meeting
// participant count, and room teardown. Everything here is fail-open:
// a missing room or participant is an early return, never an error the
// caller has to care about.
type PresenceUsecase interface {
	HandleJoin(ctx context.Context, sess *models.Session, ev events.JoinRoomEvent) error
	HandleSetRoomName(ctx context.Context, ev events.SetRoomNameEvent) error

	// HandleLeave runs on disconnect. It removes the participant,
	// reports the departure to the room and tears the room down when
	// the last meeting member is gone.
	HandleLeave(ctx context.Context, sess *models.Session) error
}

type presenceUsecase struct {
	roomRegistry memory.RoomRegistry
	connRegistry memory.ConnectionRegistry
}

func NewPresenceUsecase(roomRegistry memory.RoomRegistry, connRegistry memory.ConnectionRegistry) PresenceUsecase {
	return &presenceUsecase{
		roomRegistry: roomRegistry,
		connRegistry: connRegistry,
	}
}

func (u *presenceUsecase) HandleJoin(ctx context.Context, sess *models.Session, ev events.JoinRoomEvent) error {
	if ev.RoomID == "" {
		// A joined connection with no room key would be unreachable
		// for cleanup on disconnect.
		slog.Warn("join with empty room id", slog.String(constant.ConnID, sess.ConnID))
		return nil
	}

	if sess.RoomID != "" && sess.RoomID != ev.RoomID {
		// A connection sits in at most one participant list; switching
		// rooms without a disconnect tears the old membership down
		// first so the old room can still empty out.
		if err := u.HandleLeave(ctx, sess); err != nil {
			return err
		}
	}

	sess.RoomID = ev.RoomID
	sess.UserType = ev.UserType

	participant := models.Participant{
		SocketID: sess.ConnID,
		MemID:    sess.Identity.ID,
		Name:     sess.Identity.Name,
		UserType: ev.UserType,
	}

	existing, added := u.roomRegistry.AddParticipant(ev.RoomID, participant)
	if !added {
		// Duplicate join is a no-op, not an error.
		slog.Info(
			"join skipped, already in room",
			slog.String(constant.ConnID, sess.ConnID),
			slog.String(constant.RoomID, ev.RoomID),
		)
		return nil
	}

	slog.Info(
		"participant joined",
		slog.String(constant.ConnID, sess.ConnID),
		slog.String(constant.RoomID, ev.RoomID),
		slog.String(constant.MemberID, sess.Identity.ID),
		slog.String("user_type", string(ev.UserType)),
	)

	if title := u.roomRegistry.Title(ev.RoomID); title != "" {
		u.writeTo(sess.ConnID, events.TypeRoomInfo, events.RoomInfoEvent{RoomName: title})
	}

	// Count and snapshot go out only after the participant list
	// mutation is committed, so the two are consistent.
	u.broadcastCount(ev.RoomID)

	u.writeTo(sess.ConnID, events.TypeAllUsers, existing)

	u.broadcast(ev.RoomID, events.TypeUserJoined, participant, sess.ConnID)

	return nil
}

func (u *presenceUsecase) HandleSetRoomName(ctx context.Context, ev events.SetRoomNameEvent) error {
	if !u.roomRegistry.SetTitle(ev.RoomID, ev.RoomName) {
		return nil
	}

	slog.Info(
		"room title set",
		slog.String(constant.RoomID, ev.RoomID),
		slog.String("title", ev.RoomName),
	)

	u.broadcast(ev.RoomID, events.TypeRoomInfo, events.RoomInfoEvent{RoomName: ev.RoomName}, "")

	return nil
}

func (u *presenceUsecase) HandleLeave(ctx context.Context, sess *models.Session) error {
	roomID := sess.RoomID
	if roomID == "" {
		return nil
	}

	leaving, ok := u.roomRegistry.RemoveParticipant(roomID, sess.ConnID)
	if !ok {
		// Room already torn down, or a duplicate disconnect.
		return nil
	}

	slog.Info(
		"participant left",
		slog.String(constant.ConnID, sess.ConnID),
		slog.String(constant.RoomID, roomID),
		slog.String(constant.MemberID, leaving.MemID),
	)

	u.broadcast(roomID, events.TypeUserDisconnectedReport, events.UserDisconnectedReport{MemID: leaving.MemID}, "")

	count := uniqueMeetingCount(u.roomRegistry.Participants(roomID))

	u.broadcast(roomID, events.TypeParticipantCount, events.ParticipantCountEvent{Count: count}, "")

	u.broadcast(roomID, events.TypeUserLeft, events.UserLeftEvent{SocketID: sess.ConnID}, sess.ConnID)

	if count == 0 {
		slog.Info("meeting empty, closing room", slog.String(constant.RoomID, roomID))

		u.broadcast(roomID, events.TypeTriggerCloseRoom, events.TriggerCloseRoomEvent{RoomID: roomID}, "")
		u.roomRegistry.Remove(roomID)
	}

	return nil
}

// uniqueMeetingCount counts distinct member ids among MEETING
// participants. A member with several tabs open counts once; observers
// never count.
func uniqueMeetingCount(participants []models.Participant) int {
	seen := make(map[string]struct{})

	for _, p := range participants {
		if p.UserType != models.UserTypeMeeting {
			continue
		}
		seen[p.MemID] = struct{}{}
	}

	return len(seen)
}

func (u *presenceUsecase) broadcastCount(roomID string) {
	count := uniqueMeetingCount(u.roomRegistry.Participants(roomID))
	u.broadcast(roomID, events.TypeParticipantCount, events.ParticipantCountEvent{Count: count}, "")
}

// broadcast fans payload out to every participant of the room except
// excludeConnID.
func (u *presenceUsecase) broadcast(roomID, eventType string, payload any, excludeConnID string) {
	msg, err := events.Wrap(eventType, payload)
	if err != nil {
		slog.Error("wrap broadcast payload", slog.Any(constant.Error, err), slog.String(constant.Event, eventType))
		return
	}

	for _, p := range u.roomRegistry.Participants(roomID) {
		if p.SocketID == excludeConnID {
			continue
		}
		u.connRegistry.Write(p.SocketID, msg)
	}
}

func (u *presenceUsecase) writeTo(connID, eventType string, payload any) {
	msg, err := events.Wrap(eventType, payload)
	if err != nil {
		slog.Error("wrap payload", slog.Any(constant.Error, err), slog.String(constant.Event, eventType))
		return
	}

	u.connRegistry.Write(connID, msg)
}
