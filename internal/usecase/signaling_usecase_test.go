package usecase

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/meetlink/signaling/internal/domain/events"
	"github.com/meetlink/signaling/internal/infra/adapters/memory"
)

func newSignaling(rooms memory.RoomRegistry, sink *connSink, now time.Time) SignalingUsecase {
	return &signalingUsecase{
		roomRegistry: rooms,
		connRegistry: sink,
		now:          func() time.Time { return now },
	}
}

func TestRelayOffer_Targeted(t *testing.T) {
	sink := newConnSink("a", "b")
	u := newSignaling(memory.NewRoomRegistry(), sink, time.Unix(0, 0))

	sess := sessionFor(meeting("a", "m1", "Alice"), "room-a")
	offer := json.RawMessage(`{"type":"offer","sdp":"v=0"}`)

	if err := u.HandleOffer(context.Background(), sess, events.OfferEvent{TargetID: "b", Offer: offer}); err != nil {
		t.Fatalf("offer: %v", err)
	}

	msgs := sink.messages("b", events.TypeOffer)
	if len(msgs) != 1 {
		t.Fatalf("offers delivered to b=%d, want 1", len(msgs))
	}

	var fwd events.OfferForward
	decodePayload(t, msgs[0], &fwd)
	if fwd.From != "a" {
		t.Fatalf("from=%q, want sender connection id", fwd.From)
	}
	if string(fwd.Offer) != string(offer) {
		t.Fatalf("offer payload altered: %s", fwd.Offer)
	}

	if sink.writeCount("a") != 0 {
		t.Fatalf("sender received %d messages, want 0", sink.writeCount("a"))
	}
}

func TestRelay_UnknownTargetIsDropped(t *testing.T) {
	sink := newConnSink("a")
	u := newSignaling(memory.NewRoomRegistry(), sink, time.Unix(0, 0))

	sess := sessionFor(meeting("a", "m1", "Alice"), "room-a")

	if err := u.HandleAnswer(context.Background(), sess, events.AnswerEvent{TargetID: "gone", Answer: json.RawMessage(`{}`)}); err != nil {
		t.Fatalf("answer to unknown target: %v", err)
	}
	if err := u.HandleCandidate(context.Background(), sess, events.IceEvent{TargetID: "gone", Candidate: json.RawMessage(`{}`)}); err != nil {
		t.Fatalf("ice to unknown target: %v", err)
	}

	if sink.writeCount("gone") != 0 || sink.writeCount("a") != 0 {
		t.Fatalf("drop produced deliveries")
	}
}

func TestHandleChatMessage(t *testing.T) {
	stamp := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	setup := func(t *testing.T) (SignalingUsecase, *connSink) {
		t.Helper()

		rooms := memory.NewRoomRegistry()
		rooms.AddParticipant("room-a", meeting("a", "m1", "Alice"))
		rooms.AddParticipant("room-a", meeting("b", "m2", "Bob"))

		sink := newConnSink("a", "b")
		return newSignaling(rooms, sink, stamp), sink
	}

	t.Run("echoes to the sender", func(t *testing.T) {
		u, sink := setup(t)

		sess := sessionFor(meeting("a", "m1", "Alice"), "room-a")

		if err := u.HandleChatMessage(context.Background(), sess, events.ChatMessageEvent{RoomID: "room-a", Message: "hello"}); err != nil {
			t.Fatalf("chat: %v", err)
		}

		for _, connID := range []string{"a", "b"} {
			msgs := sink.messages(connID, events.TypeChatMessage)
			if len(msgs) != 1 {
				t.Fatalf("chat messages to %s=%d, want 1", connID, len(msgs))
			}

			var chat events.ChatBroadcast
			decodePayload(t, msgs[0], &chat)

			if chat.Sender != "Alice" || chat.MemID != "m1" || chat.SocketID != "a" {
				t.Fatalf("chat stamp=%+v", chat)
			}
			if chat.Message != "hello" {
				t.Fatalf("message=%q", chat.Message)
			}
			if !chat.Timestamp.Equal(stamp) {
				t.Fatalf("timestamp=%v, want %v", chat.Timestamp, stamp)
			}
		}
	})

	t.Run("whitespace-only is a no-op", func(t *testing.T) {
		u, sink := setup(t)

		sess := sessionFor(meeting("a", "m1", "Alice"), "room-a")

		for _, msg := range []string{"", "   ", "\t\n"} {
			if err := u.HandleChatMessage(context.Background(), sess, events.ChatMessageEvent{RoomID: "room-a", Message: msg}); err != nil {
				t.Fatalf("chat %q: %v", msg, err)
			}
		}

		if sink.writeCount("a") != 0 || sink.writeCount("b") != 0 {
			t.Fatalf("blank chat produced broadcasts")
		}
	})
}

func TestHandleMediaState_ExcludesSender(t *testing.T) {
	rooms := memory.NewRoomRegistry()
	rooms.AddParticipant("room-a", meeting("a", "m1", "Alice"))
	rooms.AddParticipant("room-a", meeting("b", "m2", "Bob"))
	rooms.AddParticipant("room-a", observer("c", "m3", "Eve"))

	sink := newConnSink("a", "b", "c")
	u := newSignaling(rooms, sink, time.Unix(0, 0))

	sess := sessionFor(meeting("a", "m1", "Alice"), "room-a")

	if err := u.HandleMediaState(context.Background(), sess, events.MediaStateEvent{RoomID: "room-a", Kind: "audio", Enabled: false}); err != nil {
		t.Fatalf("media state: %v", err)
	}

	if sink.writeCount("a") != 0 {
		t.Fatalf("sender received its own media_state_change")
	}

	for _, connID := range []string{"b", "c"} {
		msgs := sink.messages(connID, events.TypeMediaStateChange)
		if len(msgs) != 1 {
			t.Fatalf("media_state_change to %s=%d, want 1", connID, len(msgs))
		}

		var state events.MediaStateBroadcast
		decodePayload(t, msgs[0], &state)
		if state.SocketID != "a" || state.Kind != "audio" || state.Enabled {
			t.Fatalf("state=%+v", state)
		}
	}
}
