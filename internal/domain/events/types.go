package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/meetlink/signaling/internal/domain/models"
)

// Event type names, inbound and outbound. These are the wire protocol.
const (
	TypeConnected = "connected"

	TypeJoinRoom         = "join_room"
	TypeSetRoomName      = "set_room_name"
	TypeOffer            = "offer"
	TypeAnswer           = "answer"
	TypeIce              = "ice"
	TypeChatMessage      = "chat_message"
	TypeMediaStateChange = "media_state_change"

	TypeRoomInfo               = "room_info"
	TypeParticipantCount       = "participant_count"
	TypeAllUsers               = "all_users"
	TypeUserJoined             = "user_joined"
	TypeUserDisconnectedReport = "user_disconnected_report"
	TypeUserLeft               = "user_left"
	TypeTriggerCloseRoom       = "trigger_close_room"
)

// Message is the envelope every frame travels in.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Wrap marshals payload into an outbound Message envelope.
func Wrap(eventType string, payload any) (Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}

	return Message{Type: eventType, Data: data}, nil
}

// ConnectedEvent tells a fresh connection its assigned id, which peers
// will later use as a signaling target.
type ConnectedEvent struct {
	SocketID string `json:"socketId"`
}

type JoinRoomEvent struct {
	RoomID   string          `json:"roomId"`
	UserType models.UserType `json:"userType"`
}

type SetRoomNameEvent struct {
	RoomID   string `json:"roomId"`
	RoomName string `json:"roomName"`
}

// OfferEvent carries an opaque session description; the relay
// re-addresses it without parsing.
type OfferEvent struct {
	TargetID string          `json:"targetId"`
	Offer    json.RawMessage `json:"offer"`
}

type AnswerEvent struct {
	TargetID string          `json:"targetId"`
	Answer   json.RawMessage `json:"answer"`
}

type IceEvent struct {
	TargetID  string          `json:"targetId"`
	Candidate json.RawMessage `json:"candidate"`
}

type ChatMessageEvent struct {
	RoomID  string `json:"roomId"`
	Message string `json:"message"`
}

type MediaStateEvent struct {
	RoomID  string `json:"roomId"`
	Kind    string `json:"type"`
	Enabled bool   `json:"enabled"`
}

type RoomInfoEvent struct {
	RoomName string `json:"roomName"`
}

type ParticipantCountEvent struct {
	Count int `json:"count"`
}

// OfferForward and friends tag the relayed payload with the sender's
// connection id so the recipient replies to the right peer.
type OfferForward struct {
	From  string          `json:"from"`
	Offer json.RawMessage `json:"offer"`
}

type AnswerForward struct {
	From   string          `json:"from"`
	Answer json.RawMessage `json:"answer"`
}

type IceForward struct {
	From      string          `json:"from"`
	Candidate json.RawMessage `json:"candidate"`
}

type ChatBroadcast struct {
	Sender    string    `json:"sender"`
	MemID     string    `json:"memId"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	SocketID  string    `json:"socketId"`
}

type MediaStateBroadcast struct {
	SocketID string `json:"socketId"`
	Kind     string `json:"type"`
	Enabled  bool   `json:"enabled"`
}

// UserDisconnectedReport carries the member id, not the connection id,
// so clients can reconcile departures across multi-tab connections.
type UserDisconnectedReport struct {
	MemID string `json:"memId"`
}

type UserLeftEvent struct {
	SocketID string `json:"socketId"`
}

type TriggerCloseRoomEvent struct {
	RoomID string `json:"roomId"`
}
