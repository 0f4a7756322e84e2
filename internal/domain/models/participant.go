package models

// UserType separates head-counted meeting members from observers.
// Unknown values are accepted and simply excluded from the count.
type UserType string

const (
	UserTypeMeeting  UserType = "MEETING"
	UserTypeObserver UserType = "OBSERVER"
)

// Participant is one live connection's membership record within a room.
// JSON field names are part of the wire protocol.
type Participant struct {
	SocketID string   `json:"socketId"`
	MemID    string   `json:"memId"`
	Name     string   `json:"name"`
	UserType UserType `json:"userType"`
}
